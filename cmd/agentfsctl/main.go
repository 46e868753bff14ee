/*
 * JuiceFS, Copyright 2021 Juicedata, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ozanturksever/agentfs/pkg/store"
	"github.com/ozanturksever/agentfs/pkg/utils"
)

var logger = utils.GetLogger("agentfsctl")

func main() {
	utils.InitFromEnv()
	app := &cli.App{
		Name:    "agentfsctl",
		Usage:   "inspect and manage an agentfs store",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log warnings and errors"},
		},
		Before: setLoggerLevel,
		Commands: []*cli.Command{
			initCommand(),
			fsckCommand(),
			importCommand(),
			diffCommand(),
			toolCallsCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setLoggerLevel(ctx *cli.Context) error {
	switch {
	case ctx.Bool("quiet"):
		utils.SetLogLevel(logrus.WarnLevel)
	case ctx.Bool("verbose"):
		utils.SetLogLevel(logrus.DebugLevel)
	default:
		utils.SetLogLevel(logrus.InfoLevel)
	}
	if !utils.IsTTY() {
		utils.DisableLogColor()
	}
	return nil
}

// openStore opens the store at the DB-URI positional argument, defaulting
// to a local sqlite file if none is given.
func openStore(ctx *cli.Context, argPos int) (*store.Store, error) {
	uri := ctx.Args().Get(argPos)
	if uri == "" {
		uri = "sqlite://agentfs.db"
	}
	return store.Open(uri)
}
