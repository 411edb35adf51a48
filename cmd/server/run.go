package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prior-it/socialauth/bootstrap"
	"github.com/prior-it/socialauth/config"
)

func run(ctx context.Context) error {
	cfg, err := config.Load(os.DirFS(configDir))
	if err != nil {
		return fmt.Errorf("could not load the configuration: %w", err)
	}
	server, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Start(ctx, nil)
}
