package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "create or open an agentfs store and ensure its schema is installed",
		ArgsUsage: "DB-URI",
		Action:    runInit,
	}
}

func runInit(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("DB-URI is needed, e.g. sqlite:///var/lib/agentfs/agentfs.db")
	}
	db, err := openStore(ctx, 0)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	logger.Infof("store ready at %s (chunk size %d bytes)", ctx.Args().Get(0), db.ChunkSize())
	return nil
}
