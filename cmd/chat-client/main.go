// Command chat-client is a terminal harness for the chat engine. It
// mounts one room, prints timeline changes and turns input lines into
// sends.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkgconfig "github.com/enoylitydev/Collabglam-sub004/pkg/config"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"

	"github.com/enoylitydev/Collabglam-sub004/internal/channel"
	"github.com/enoylitydev/Collabglam-sub004/internal/engine"
	"github.com/enoylitydev/Collabglam-sub004/internal/rest"
)

func main() {
	var (
		apiBase  = flag.String("api", pkgconfig.GetEnv("CHAT_API_BASE", "http://localhost:8090"), "REST API base URL")
		wsURL    = flag.String("ws", pkgconfig.GetEnv("CHAT_WS_URL", "ws://localhost:8090/ws"), "push channel URL")
		roomID   = flag.String("room", pkgconfig.GetEnv("CHAT_ROOM", "lobby"), "room to join")
		userID   = flag.String("user", pkgconfig.GetEnv("CHAT_USER", "alice"), "sender id")
		userName = flag.String("name", "", "display name, defaults to the sender id")
		logLevel = flag.String("log-level", pkgconfig.GetEnv("LOG_LEVEL", "warn"), "log level")
	)
	flag.Parse()

	log.Init(log.Config{Level: *logLevel, Pretty: true, AppName: "chat-client"})

	name := *userName
	if name == "" {
		name = *userID
	}

	eng := engine.New(engine.Config{
		RoomID:   *roomID,
		UserID:   *userID,
		UserName: name,
		FileBase: strings.TrimRight(*apiBase, "/") + "/files",
		API:      rest.NewClient(*apiBase),
		Dial: func(ctx context.Context, roomID string, onMessage channel.MessageFunc, onError channel.ErrorFunc) (engine.Conn, error) {
			conn, err := channel.Dial(ctx, channel.Config{URL: *wsURL}, roomID, onMessage, onError)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	})
	defer eng.Close()

	store := eng.Store()
	store.OnChange(func() {
		if msg, ok := store.Last(); ok {
			status := ""
			if !msg.Confirmed() {
				status = " (sending)"
			}
			line := msg.Text
			if msg.HasAttachments() {
				line = fmt.Sprintf("%s [%d attachment(s)]", line, len(msg.Attachments))
			}
			fmt.Printf("%s %s: %s%s\n", msg.Timestamp.Local().Format("15:04:05"), msg.SenderName, line, status)
		}
		if banner := eng.Banner(); banner != "" {
			fmt.Printf("! %s\n", banner)
			eng.ClearBanner()
		}
	})

	if err := eng.Mount(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "mount failed: %v\n", err)
		os.Exit(1)
	}
	if banner := eng.Banner(); banner != "" {
		fmt.Printf("! %s\n", banner)
		eng.ClearBanner()
	}

	fmt.Printf("joined %s as %s. /reply <id>, /file <path> [caption], /quit\n", *roomID, *userID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/reply "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/reply "))
			if err := eng.ReplyTo(id); err != nil {
				fmt.Printf("! %v\n", err)
				continue
			}
			fmt.Printf("replying to %s; next message carries the reference\n", id)
		case strings.HasPrefix(line, "/file "):
			sendFile(eng, strings.TrimSpace(strings.TrimPrefix(line, "/file ")))
		default:
			if err := eng.SendText(line); err != nil {
				fmt.Printf("! %v\n", err)
			}
		}
	}
}

// sendFile uploads one local file, with everything after the path used as
// the caption.
func sendFile(eng *engine.Engine, args string) {
	path, caption, _ := strings.Cut(args, " ")
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("! %v\n", err)
		return
	}
	defer f.Close()

	err = eng.SendFiles(strings.TrimSpace(caption), []rest.FileUpload{
		{Name: filepath.Base(path), Content: f},
	})
	if err != nil {
		fmt.Printf("! %v\n", err)
	}
}
