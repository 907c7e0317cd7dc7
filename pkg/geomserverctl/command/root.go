/*
Copyright 2024 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package command

import (
	"context"
	"os"

	"github.com/nuclio/geomserver/pkg/geomserverconfig"
	"github.com/nuclio/geomserver/pkg/ifc"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/spf13/cobra"
)

type RootCommandeer struct {
	loggerInstance logger.Logger
	cmd            *cobra.Command
	configPath     string
	logLevel       string
	configuration  *geomserverconfig.Config
}

func NewRootCommandeer() *RootCommandeer {
	commandeer := &RootCommandeer{}

	serveCommandeer := newServeCommandeer(commandeer)

	cmd := &cobra.Command{
		Use:           "geomserver [command]",
		Short:         "IFC geometry server",
		SilenceUsage:  true,
		SilenceErrors: true,

		// the parent process starts the binary without arguments
		RunE: serveCommandeer.cmd.RunE,
	}

	cmd.PersistentFlags().StringVarP(&commandeer.configPath,
		"config",
		"c",
		os.Getenv(geomserverconfig.ConfigPathEnvironmentVariable),
		"Path to a configuration file")
	cmd.PersistentFlags().StringVarP(&commandeer.logLevel,
		"log-level",
		"l",
		"",
		"Logger level - \"debug\", \"info\", \"warn\" or \"error\" (overrides the configuration)")

	// add children
	cmd.AddCommand(
		serveCommandeer.cmd,
		newInspectCommandeer(commandeer).cmd,
		newVersionCommandeer(commandeer).cmd,
	)

	commandeer.cmd = cmd

	return commandeer
}

// Execute uses os.Args to execute the command
func (rc *RootCommandeer) Execute() error {
	return rc.cmd.ExecuteContext(context.Background())
}

// GetCmd returns the underlying cobra command
func (rc *RootCommandeer) GetCmd() *cobra.Command {
	return rc.cmd
}

func (rc *RootCommandeer) initialize() error {
	var err error

	configReader, err := geomserverconfig.NewReader()
	if err != nil {
		return errors.Wrap(err, "Failed to create configuration reader")
	}

	rc.configuration, err = configReader.ReadFileOrDefault(rc.configPath, os.Environ())
	if err != nil {
		return errors.Wrap(err, "Failed to read configuration")
	}

	if rc.logLevel != "" {
		rc.configuration.Logger.Level = rc.logLevel
	}

	rc.loggerInstance, err = rc.createLogger()
	if err != nil {
		return errors.Wrap(err, "Failed to create logger")
	}

	rc.loggerInstance.DebugWith("Initialized",
		"configPath", rc.configPath,
		"configuration", rc.configuration)

	return nil
}

// createLogger writes to stderr only. stdout carries the protocol
func (rc *RootCommandeer) createLogger() (logger.Logger, error) {
	loggerInstance, err := nucliozap.NewNuclioZap("geomserver",
		rc.configuration.Logger.Encoding,
		nil,
		os.Stderr,
		os.Stderr,
		nucliozap.GetLevelByName(rc.configuration.Logger.Level))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create logger")
	}

	return loggerInstance, nil
}

func (rc *RootCommandeer) createModelFactory() *ifc.ModelFactory {
	return ifc.NewModelFactory(rc.loggerInstance, &ifc.FactoryOptions{
		Deflection:        rc.configuration.Geometry.Deflection,
		MinCircleSegments: rc.configuration.Geometry.CircleSegments.Min,
		MaxCircleSegments: rc.configuration.Geometry.CircleSegments.Max,
	})
}
