// Copyright 2024 The Conveyor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sorintlab/errors"
	"github.com/spf13/cobra"

	"github.com/conveyorci/conveyor/internal/services/completion"
	"github.com/conveyorci/conveyor/internal/services/config"
)

var cmdServe = &cobra.Command{
	Use:     "serve",
	Short:   "serve the completion decision engine",
	Version: Version,
	Run: func(c *cobra.Command, args []string) {
		if err := serve(c, args); err != nil {
			log.Fatal().Err(err).Send()
		}
	},
}

type serveOptions struct {
	config string
}

var serveOpts serveOptions

func init() {
	flags := cmdServe.PersistentFlags()

	flags.StringVar(&serveOpts.config, "config", "", "config file path")

	if err := cmdServe.MarkPersistentFlagRequired("config"); err != nil {
		log.Fatal().Err(err).Send()
	}

	cmdConveyor.AddCommand(cmdServe)
}

func serve(c *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Parse(serveOpts.config)
	if err != nil {
		return errors.Wrapf(err, "config error")
	}

	cs, err := completion.NewCompletionService(ctx, log.Logger, cfg)
	if err != nil {
		return errors.Wrapf(err, "failed to start completion service")
	}

	return errors.WithStack(cs.Run(ctx))
}
