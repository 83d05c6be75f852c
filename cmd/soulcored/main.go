// Command soulcored runs the peer-networking core standalone: it logs
// into the central server, listens for inbound peer connections, and
// brokers NAT traversal, without any UI attached.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prxssh/soulcore/internal/client"
	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/logx"
)

func main() {
	username := flag.String("username", "", "Soulseek username")
	password := flag.String("password", "", "Soulseek password")
	version := flag.Uint("version", 160, "protocol version to advertise at login")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	setupLogger(*debug)

	if *username == "" || *password == "" {
		slog.Error("username and password are required")
		os.Exit(1)
	}

	if err := config.Init(); err != nil {
		slog.Error("failed to initialize config", "error", err)
		os.Exit(1)
	}
	if err := config.FromEnviron(); err != nil {
		slog.Error("failed to apply environment overrides", "error", err)
		os.Exit(1)
	}

	c := client.New(client.Opts{
		Config:   config.Load(),
		Logger:   slog.Default(),
		Username: *username,
		Password: *password,
		Version:  uint32(*version),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("soulcored exited with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	opts := logx.DefaultOptions()
	if debug {
		opts.Level = slog.LevelDebug
		opts.ShowSource = true
	}

	h := logx.NewHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(h))
}
