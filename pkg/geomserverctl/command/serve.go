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

	"github.com/nuclio/geomserver/pkg/errgroup"
	"github.com/nuclio/geomserver/pkg/geomserver/metrics"
	"github.com/nuclio/geomserver/pkg/geomserver/outputguard"
	"github.com/nuclio/geomserver/pkg/geomserver/serializer"
	"github.com/nuclio/geomserver/pkg/geomserver/session"
	"github.com/nuclio/geomserver/pkg/ifc/schema"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
)

type serveCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
	sessionID      string
}

func newServeCommandeer(rootCommandeer *RootCommandeer) *serveCommandeer {
	commandeer := &serveCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the geometry protocol over stdin and stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootCommandeer.initialize(); err != nil {
				return errors.Wrap(err, "Failed to initialize root")
			}

			return commandeer.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&commandeer.sessionID, "session-id", "", "Session identifier for logs and metrics (generated by default)")

	commandeer.cmd = cmd

	return commandeer
}

func (sc *serveCommandeer) serve(ctx context.Context) error {
	loggerInstance := sc.rootCommandeer.loggerInstance
	configuration := sc.rootCommandeer.configuration

	guard := outputguard.NewGuard(loggerInstance, os.Stdout, configuration.Capture.MaxBytes)

	// anything printed to stdout from here on must not corrupt the protocol stream
	releaseCapture, err := guard.Capture()
	if err != nil {
		return errors.Wrap(err, "Failed to capture output")
	}

	defer releaseCapture()

	geomSession, err := session.NewSession(loggerInstance,
		os.Stdin,
		guard,
		sc.rootCommandeer.createModelFactory(),
		schema.NewCatalog(),
		&session.Configuration{
			ID:        sc.sessionID,
			Extension: serializer.ExtensionKind(configuration.Metadata.Extension),
			ReportLog: configuration.Capture.ReportLog,
		})
	if err != nil {
		return errors.Wrap(err, "Failed to create session")
	}

	errGroup, errGroupCtx := errgroup.WithContext(ctx, loggerInstance)
	sessionCtx, cancelSession := context.WithCancel(errGroupCtx)

	errGroup.Go("session", func() error {
		defer cancelSession()

		return geomSession.Run(sessionCtx)
	})

	if configuration.MetricsEnabled() {
		metricSink, err := metrics.NewMetricSink(loggerInstance, &metrics.Configuration{
			InstanceName:  "geomserver",
			ListenAddress: configuration.Metrics.ListenAddress,
		}, geomSession)
		if err != nil {
			return errors.Wrap(err, "Failed to create metric sink")
		}

		// metric failures are logged, they never end the session
		errGroup.Go("metrics", func() error {
			if err := metricSink.Start(sessionCtx); err != nil {
				loggerInstance.WarnWith("Metric sink stopped", "err", errors.Cause(err).Error())
			}

			return nil
		})
	}

	err = errGroup.Wait()

	loggerInstance.DebugWith("Session done",
		"id", geomSession.ID(),
		"exitCode", session.ExitCode(err),
		"statistics", geomSession.GetStatistics().Snapshot())

	return err
}
