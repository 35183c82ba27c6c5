package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/app"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/cli"
	"github.com/dmos82/goldkey-chat-app-sub000/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.Execute(ctx, func(ctx context.Context) (cli.Services, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return cli.Services{}, nil, err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

		a, err := app.New(ctx, cfg)
		if err != nil {
			return cli.Services{}, nil, err
		}
		svc := cli.Services{
			Users:     a.Users,
			Ingester:  a.Pipeline,
			Retriever: a.Engine,
			Syncer:    a.Syncer,
		}
		return svc, func() { _ = a.Close() }, nil
	})
	if err != nil {
		stop()
		os.Exit(1)
	}
}
