// Package config loads the chat server configuration from file and
// environment.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/enoylitydev/Collabglam-sub004/internal/server/hub"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/seen"
	pkgconfig "github.com/enoylitydev/Collabglam-sub004/pkg/config"
)

type Config struct {
	Server    ServerConfig
	WebSocket hub.Config `mapstructure:"websocket"`
	Database  DatabaseConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Path string
}

type StorageConfig struct {
	BasePath string `mapstructure:"base_path"`
}

type RedisConfig struct {
	// Enabled switches the seen registry from in-memory to redis.
	Enabled  bool
	Address  string
	Password string
	DB       int
	Prefix   string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// SeenConfig converts the redis section for the seen registry.
func (c RedisConfig) SeenConfig() seen.RedisConfig {
	return seen.RedisConfig{
		Address:  c.Address,
		Password: c.Password,
		DB:       c.DB,
		Prefix:   c.Prefix,
	}
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 1<<20)
	v.SetDefault("database.path", "chat.db")
	v.SetDefault("storage.base_path", "./data/files")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chat:seen")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("storage.base_path", "STORAGE_BASE_PATH")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
