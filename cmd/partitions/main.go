package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/nabzkeeper/internal/app"
	"github.com/dmitrijs2005/nabzkeeper/internal/config"
	"github.com/dmitrijs2005/nabzkeeper/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		os.Exit(1)
	}

	err = a.Run(ctx)
	if cerr := a.Close(); cerr != nil {
		logger.Error(ctx, "close failed", "error", cerr)
	}
	if err != nil {
		logger.Error(ctx, "sweep failed", "error", err)
		os.Exit(1)
	}
}
