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
	"io"
	"os"

	"github.com/nuclio/geomserver/pkg/errgroup"
	"github.com/nuclio/geomserver/pkg/geomserver/client"
	"github.com/nuclio/geomserver/pkg/geomserver/message"
	"github.com/nuclio/geomserver/pkg/geomserver/outputguard"
	"github.com/nuclio/geomserver/pkg/geomserver/serializer"
	"github.com/nuclio/geomserver/pkg/geomserver/session"
	"github.com/nuclio/geomserver/pkg/ifc/schema"
	"github.com/nuclio/geomserver/pkg/renderer"

	"github.com/nuclio/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// inspectedElement is the summary of one entity printed by inspect
type inspectedElement struct {
	ExpressID        int32  `json:"expressId"`
	Type             string `json:"type"`
	GUID             string `json:"guid"`
	Name             string `json:"name,omitempty"`
	ParentID         int32  `json:"parentId"`
	RepresentationID int32  `json:"representationId"`
	Vertices         int    `json:"vertices"`
	Triangles        int    `json:"triangles"`
	Colors           int    `json:"colors"`
	Metadata         string `json:"metadata,omitempty"`
}

type inspectCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
	output         string
	deflection     float64
	limit          int
}

func newInspectCommandeer(rootCommandeer *RootCommandeer) *inspectCommandeer {
	commandeer := &inspectCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "inspect model-file",
		Short: "Serve a model file through an in-process session and print its entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootCommandeer.initialize(); err != nil {
				return errors.Wrap(err, "Failed to initialize root")
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "Failed to read %s", args[0])
			}

			elements, err := commandeer.inspect(cmd.Context(), content)
			if err != nil {
				return errors.Wrap(err, "Failed to inspect model")
			}

			return commandeer.render(cmd.OutOrStdout(), elements)
		},
	}

	cmd.Flags().StringVarP(&commandeer.output, "output", "o", string(renderer.OutputFormatTable), "Output format - \"table\", \"yaml\" or \"json\"")
	cmd.Flags().Float64Var(&commandeer.deflection, "deflection", 0, "Tessellation tolerance (configuration default when 0)")
	cmd.Flags().IntVar(&commandeer.limit, "limit", 0, "Stop after this many elements (all when 0)")

	commandeer.cmd = cmd

	return commandeer
}

// inspect runs a session over in-memory pipes and drives it with the protocol client
func (ic *inspectCommandeer) inspect(ctx context.Context, content []byte) ([]inspectedElement, error) {
	loggerInstance := ic.rootCommandeer.loggerInstance
	configuration := ic.rootCommandeer.configuration

	requestReader, requestWriter := io.Pipe()
	replyReader, replyWriter := io.Pipe()

	geomSession, err := session.NewSession(loggerInstance,
		requestReader,
		outputguard.NewGuard(loggerInstance, replyWriter, configuration.Capture.MaxBytes),
		ic.rootCommandeer.createModelFactory(),
		schema.NewCatalog(),
		&session.Configuration{
			Extension: serializer.ExtensionKind(configuration.Metadata.Extension),
		})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create session")
	}

	var elements []inspectedElement

	errGroup, errGroupCtx := errgroup.WithContext(ctx, loggerInstance)

	errGroup.Go("session", func() error {
		err := geomSession.Run(errGroupCtx)
		replyWriter.CloseWithError(io.ErrClosedPipe) // nolint: errcheck

		return err
	})

	errGroup.Go("client", func() error {
		geomClient := client.NewClient(loggerInstance, replyReader, requestWriter)

		err := ic.drive(geomClient, content, &elements)
		if err != nil {
			requestWriter.CloseWithError(err) // nolint: errcheck
		}

		return err
	})

	if err := errGroup.Wait(); err != nil {
		return nil, err
	}

	return elements, nil
}

func (ic *inspectCommandeer) drive(geomClient *client.Client, content []byte, elements *[]inspectedElement) error {
	if _, err := geomClient.Handshake(); err != nil {
		return errors.Wrap(err, "Failed to handshake")
	}

	if ic.deflection > 0 {
		if err := geomClient.SetDeflection(ic.deflection); err != nil {
			return errors.Wrap(err, "Failed to set deflection")
		}
	}

	err := geomClient.Entities(content, func(entity *message.Entity) error {
		*elements = append(*elements, inspectedElement{
			ExpressID:        entity.ExpressID,
			Type:             entity.ElementType,
			GUID:             entity.GUID,
			Name:             entity.Name,
			ParentID:         entity.ParentID,
			RepresentationID: entity.RepresentationID,
			Vertices:         len(entity.Vertices) / 3,
			Triangles:        entity.TriangleCount(),
			Colors:           len(entity.Colors) / 4,
			Metadata:         entity.Metadata,
		})

		if ic.limit > 0 && len(*elements) >= ic.limit {
			return errLimitReached
		}

		return nil
	})

	if err != nil && err != errLimitReached {
		return err
	}

	return geomClient.Bye()
}

func (ic *inspectCommandeer) render(output io.Writer, elements []inspectedElement) error {
	header := []interface{}{"ID", "Type", "GUID", "Name", "Parent", "Vertices", "Triangles", "Colors"}

	records := lo.Map(elements, func(element inspectedElement, _ int) []interface{} {
		return []interface{}{
			element.ExpressID,
			element.Type,
			element.GUID,
			element.Name,
			element.ParentID,
			element.Vertices,
			element.Triangles,
			element.Colors,
		}
	})

	return renderer.NewRenderer(output).Render(renderer.OutputFormat(ic.output), header, records, elements)
}

var errLimitReached = errors.New("Limit reached")
