// Package main is the entrypoint for the Memora memory service.
// Memora ingests text as embedded memory chunks and answers questions
// grounded in recalled memories.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/memora-labs/memora/internal/config"
	"github.com/memora-labs/memora/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:           "memora",
		PortFromConfig: func(cfg *config.Config) int { return cfg.Port },
		Setup:          setup,
	}, server.Listeners{})
}
