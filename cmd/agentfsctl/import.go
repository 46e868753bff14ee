package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ozanturksever/agentfs/pkg/meta"
	"github.com/ozanturksever/agentfs/pkg/overlay"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "copy a host directory into the store as a base overlay layer",
		ArgsUsage: "DB-URI BASE-PATH [MOUNT-PATH]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "exclude", Usage: "glob pattern to skip (repeatable), matched against the entry's path in the store, MOUNT-PATH prefix included"},
			&cli.BoolFlag{Name: "reset", Usage: "clear MOUNT-PATH before importing"},
		},
		Action: runImport,
	}
}

func runImport(ctx *cli.Context) error {
	if ctx.Args().Len() < 2 {
		return fmt.Errorf("DB-URI and BASE-PATH are needed")
	}
	mountPath := ctx.Args().Get(2)
	if mountPath == "" {
		mountPath = "/"
	}

	db, err := openStore(ctx, 0)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	fs := meta.New(db)
	cfg := overlay.Config{
		BasePath:        ctx.Args().Get(1),
		MountPath:       mountPath,
		ExcludePatterns: ctx.StringSlice("exclude"),
	}

	var result overlay.ImportResult
	if ctx.Bool("reset") {
		result, err = overlay.Reset(fs, cfg)
	} else {
		result, err = overlay.Initialize(fs, cfg)
	}
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	logger.Infof("imported %d file(s) (%d bytes), created %d director(y/ies)", result.FilesImported, result.BytesImported, result.DirectoriesCreated)
	if len(result.ExcludedPaths) > 0 {
		logger.Infof("excluded %d path(s): %s", len(result.ExcludedPaths), strings.Join(result.ExcludedPaths, ", "))
	}
	return nil
}
