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
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sorintlab/errors"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

func init() {
	cw := zerolog.ConsoleWriter{
		Out:                 os.Stderr,
		TimeFormat:          time.RFC3339Nano,
		FormatErrFieldValue: errors.FormatErrFieldValue,
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	log.Logger = log.With().Stack().Caller().Logger().Level(zerolog.InfoLevel).Output(cw)
}

type conveyorOptions struct {
	debug          bool
	detailedErrors bool
}

var conveyorOpts conveyorOptions

var cmdConveyor = &cobra.Command{
	Use:     "conveyor",
	Short:   "conveyor",
	Version: Version,
	// just defined to make --version work
	PersistentPreRun: func(c *cobra.Command, args []string) {
		if conveyorOpts.debug {
			log.Logger = log.Level(zerolog.DebugLevel)
		}
		if conveyorOpts.detailedErrors {
			zerolog.ErrorMarshalFunc = errors.ErrorMarshalFunc
		}
	},
	Run: func(c *cobra.Command, args []string) {
		if err := c.Help(); err != nil {
			log.Fatal().Err(err).Send()
		}
	},
}

func init() {
	flags := cmdConveyor.PersistentFlags()

	flags.BoolVar(&conveyorOpts.debug, "debug", false, "debug output")
	flags.BoolVar(&conveyorOpts.detailedErrors, "detailed-errors", false, "enabled detailed errors logging")
}

func Execute() {
	if err := cmdConveyor.Execute(); err != nil {
		os.Exit(1)
	}
}
