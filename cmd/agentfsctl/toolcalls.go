package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ozanturksever/agentfs/pkg/toolcalls"
)

func toolCallsCommand() *cli.Command {
	return &cli.Command{
		Name:      "tool-calls",
		Usage:     "list recent entries in the tool-call log",
		ArgsUsage: "DB-URI",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "number of calls to show"},
		},
		Action: runToolCalls,
	}
}

func runToolCalls(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("DB-URI is needed")
	}
	db, err := openStore(ctx, 0)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	log := toolcalls.New(db)
	calls, err := log.GetRecent(ctx.Int("limit"))
	if err != nil {
		return fmt.Errorf("list tool calls: %w", err)
	}

	for _, c := range calls {
		started := time.Unix(c.StartedAt, 0).UTC().Format(time.RFC3339)
		dur := "-"
		if c.DurationMs != nil {
			dur = fmt.Sprintf("%dms", *c.DurationMs)
		}
		fmt.Printf("%5d  %-8s %-20s %s  %s\n", c.ID, c.Status, c.Name, started, dur)
	}
	return nil
}
