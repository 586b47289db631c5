// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blinklabs-io/anchorage/internal/config"
	"github.com/blinklabs-io/anchorage/internal/node"
)

type serveFlags struct {
	databasePath  string
	apiPort       uint
	blockInterval string
	pinPolicy     string
}

func (f *serveFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.databasePath, "database-path", "", "directory for the governance database")
	fs.UintVar(&f.apiPort, "api-port", 0, "port for the HTTP API")
	fs.StringVar(&f.blockInterval, "block-interval", "", "derive heights from the clock at this interval (e.g. 20s)")
	fs.StringVar(&f.pinPolicy, "pin-policy", "", "who may add pins: open or participants")
}

// apply overrides the loaded config with the flags given on the command line
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("database-path") {
		cfg.DatabasePath = f.databasePath
	}
	if flags.Changed("api-port") {
		cfg.ApiPort = f.apiPort
	}
	if flags.Changed("block-interval") {
		cfg.BlockInterval = f.blockInterval
	}
	if flags.Changed("pin-policy") {
		cfg.PinPolicy = f.pinPolicy
	}
	return cfg.Validate()
}

func serveRun(cmd *cobra.Command, flags *serveFlags) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		slog.Error("no config found in context")
		os.Exit(1)
	}
	if flags != nil {
		if err := flags.apply(cmd, cfg); err != nil {
			slog.Error(err.Error())
			os.Exit(1)
		}
	}
	logger := commonRun()
	if err := node.Run(cfg, logger); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the governance node",
		Run: func(cmd *cobra.Command, _ []string) {
			serveRun(cmd, flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
