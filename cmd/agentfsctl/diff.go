package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ozanturksever/agentfs/pkg/meta"
	"github.com/ozanturksever/agentfs/pkg/overlay"
)

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "compare the store against its host base tree and print a patch",
		ArgsUsage: "DB-URI BASE-PATH [MOUNT-PATH]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the patch to this file instead of stdout"},
			&cli.BoolFlag{Name: "summary", Usage: "print one line per change instead of a patch"},
		},
		Action: runDiff,
	}
}

func runDiff(ctx *cli.Context) error {
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
	changes, err := overlay.ChangeSet(fs, ctx.Args().Get(1), mountPath)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	if ctx.Bool("summary") {
		for _, c := range changes {
			fmt.Printf("%-8s %s\n", c.Kind, c.Path)
		}
		logger.Infof("%d change(s)", len(changes))
		return nil
	}

	patch, err := overlay.ExportPatch(changes)
	if err != nil {
		return fmt.Errorf("export patch: %w", err)
	}

	if out := ctx.String("output"); out != "" {
		return os.WriteFile(out, []byte(patch), 0644)
	}
	fmt.Print(patch)
	return nil
}
