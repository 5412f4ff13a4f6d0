package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/config"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/handler"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/hub"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/repository"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/seen"
	"github.com/enoylitydev/Collabglam-sub004/internal/server/service"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
	"github.com/enoylitydev/Collabglam-sub004/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, AppName: "chat-server"})
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat server")

	// Open the message store
	repo, err := repository.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("database ready")

	// Initialize the seen registry
	var registry seen.Registry
	if cfg.Redis.Enabled {
		registry, err = seen.NewRedisRegistry(cfg.Redis.SeenConfig())
		if err != nil {
			logger.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("failed to connect to redis")
		}
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis seen registry ready")
	} else {
		registry = seen.NewMemoryRegistry()
	}
	defer registry.Close()

	// Initialize attachment storage
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: cfg.Storage.BasePath})
	if err != nil {
		logger.Fatal().Err(err).Str("base_path", cfg.Storage.BasePath).Msg("failed to initialize storage")
	}

	// Initialize the hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	chatSvc := service.NewChatService(repo, registry, wsHub, service.NewUploadProcessor(store))

	if err := seedRooms(chatSvc); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed rooms")
	}

	// Setup HTTP routes
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware(logger))

	handler.NewHTTPHandler(chatSvc).RegisterRoutes(router)
	router.GET("/ws", handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket).Serve)
	router.Static("/files", store.GetBasePath())
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("chat server stopped")
}

// seedRooms makes sure the development lobby exists so clients have a
// room to join out of the box.
func seedRooms(chat *service.ChatService) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return chat.EnsureRoom(ctx, domain.Room{
		RoomID: "lobby",
		Participants: []domain.Participant{
			{UserID: "alice", Name: "Alice"},
			{UserID: "bob", Name: "Bob"},
		},
	})
}
