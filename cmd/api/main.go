package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"rummy-server/internal/server"
)

type CLI struct {
	Port        int           `help:"HTTP listen port" env:"PORT" default:"8080"`
	DatabaseURL string        `help:"Postgres connection string" env:"DATABASE_URL" default:"postgres://localhost:5432/rummy?sslmode=disable"`
	BotDelay    time.Duration `help:"Thinking delay before an automated seat moves" env:"BOT_DELAY" default:"1500ms"`
	RateLimit   int           `help:"Messages allowed per connection per window" env:"RATE_LIMIT" default:"10"`
	RateWindow  time.Duration `help:"Rate limit window" env:"RATE_WINDOW" default:"1s"`
	LogLevel    string        `help:"Log level (debug, info, warn, error)" env:"LOG_LEVEL" default:"info"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("rummy-server"),
		kong.Description("Four-seat rummy match server"),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "rummy",
	})
	if level, err := log.ParseLevel(cli.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	srv, httpServer, err := server.NewServer(server.Config{
		Port:        cli.Port,
		DatabaseURL: cli.DatabaseURL,
		BotDelay:    cli.BotDelay,
		RateLimit:   cli.RateLimit,
		RateWindow:  cli.RateWindow,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize server", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.RunBackgroundTasks(ctx)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Save every room before the sockets drop.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during state save", "err", err)
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("server error", "err", err)
	}
	logger.Info("graceful shutdown complete")
}
