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
	"github.com/nuclio/geomserver/pkg/geomserver/message"
	"github.com/nuclio/geomserver/pkg/renderer"

	"github.com/spf13/cobra"
	"github.com/v3io/version-go"
)

type versionCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
	output         string
}

func newVersionCommandeer(rootCommandeer *RootCommandeer) *versionCommandeer {
	commandeer := &versionCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the build and protocol versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			versionInfo := version.Get()

			versionRenderer := renderer.NewRenderer(cmd.OutOrStdout())

			return versionRenderer.Render(renderer.OutputFormat(commandeer.output),
				[]interface{}{"Label", "Git commit", "OS", "Arch", "Protocol"},
				[][]interface{}{{versionInfo.Label, versionInfo.GitCommit, versionInfo.OS, versionInfo.Arch, message.HelloVersion}},
				map[string]interface{}{
					"build":    versionInfo,
					"protocol": message.HelloVersion,
				})
		},
	}

	cmd.Flags().StringVarP(&commandeer.output, "output", "o", string(renderer.OutputFormatYAML), "Output format - \"table\", \"yaml\" or \"json\"")

	commandeer.cmd = cmd

	return commandeer
}
