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

// Package geomserverconfig reads the server's configuration file and environment
package geomserverconfig

import (
	"io"
	"os"
	"strings"

	"github.com/imdario/mergo"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/nuclio/errors"
	"sigs.k8s.io/yaml"
)

const (
	EnvironmentPrefix = "GEOMSERVER_"

	// ConfigPathEnvironmentVariable points at the configuration file when --config is not given
	ConfigPathEnvironmentVariable = EnvironmentPrefix + "CONFIG"

	DefaultConfigPath = "~/.geomserver/config.yaml"
)

type Reader struct{}

func NewReader() (*Reader, error) {
	return &Reader{}, nil
}

func (r *Reader) Read(reader io.Reader, config *Config) error {
	configBytes, err := io.ReadAll(reader)
	if err != nil {
		return errors.Wrap(err, "Failed to read configuration")
	}

	return yaml.Unmarshal(configBytes, config)
}

// ReadFileOrDefault reads the configuration file, fills whatever it leaves out with defaults
// and applies the environment on top. A missing file yields the defaults
func (r *Reader) ReadFileOrDefault(configurationPath string, environment []string) (*Config, error) {
	var configuration Config

	if configurationPath == "" {
		configurationPath = DefaultConfigPath
	}

	expandedPath, err := homedir.Expand(configurationPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to expand configuration path %s", configurationPath)
	}

	configurationFile, err := os.Open(expandedPath)
	if err == nil {

		// close after
		defer configurationFile.Close() // nolint: errcheck

		if err := r.Read(configurationFile, &configuration); err != nil {
			return nil, errors.Wrap(err, "Failed to read configuration file")
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "Failed to open configuration file %s", expandedPath)
	}

	if err := mergo.Merge(&configuration, r.GetDefaultConfiguration()); err != nil {
		return nil, errors.Wrap(err, "Failed to merge default configuration")
	}

	if err := r.ApplyEnvironment(&configuration, environment); err != nil {
		return nil, errors.Wrap(err, "Failed to apply environment")
	}

	if err := r.Validate(&configuration); err != nil {
		return nil, errors.Wrap(err, "Invalid configuration")
	}

	return &configuration, nil
}

// ApplyEnvironment overrides configuration values from GEOMSERVER_* variables, given as
// KEY=VALUE pairs
func (r *Reader) ApplyEnvironment(configuration *Config, environment []string) error {
	values := map[string]interface{}{}

	for _, variable := range environment {
		name, value, found := strings.Cut(variable, "=")
		if !found || !strings.HasPrefix(name, EnvironmentPrefix) {
			continue
		}

		values[strings.TrimPrefix(name, EnvironmentPrefix)] = value
	}

	if len(values) == 0 {
		return nil
	}

	overrides := environmentOverrides{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &overrides,
	})
	if err != nil {
		return errors.Wrap(err, "Failed to create environment decoder")
	}

	if err := decoder.Decode(values); err != nil {
		return errors.Wrap(err, "Failed to decode environment")
	}

	if overrides.LoggerLevel != nil {
		configuration.Logger.Level = *overrides.LoggerLevel
	}

	if overrides.LoggerEncoding != nil {
		configuration.Logger.Encoding = *overrides.LoggerEncoding
	}

	if overrides.Deflection != nil {
		configuration.Geometry.Deflection = *overrides.Deflection
	}

	if overrides.MinCircleSegments != nil {
		configuration.Geometry.CircleSegments.Min = *overrides.MinCircleSegments
	}

	if overrides.MaxCircleSegments != nil {
		configuration.Geometry.CircleSegments.Max = *overrides.MaxCircleSegments
	}

	if overrides.MetadataExtension != nil {
		configuration.Metadata.Extension = *overrides.MetadataExtension
	}

	if overrides.MetricsEnabled != nil {
		configuration.Metrics.Enabled = overrides.MetricsEnabled
	}

	if overrides.MetricsListenAddress != nil {
		configuration.Metrics.ListenAddress = *overrides.MetricsListenAddress
	}

	if overrides.CaptureMaxBytes != nil {
		configuration.Capture.MaxBytes = *overrides.CaptureMaxBytes
	}

	if overrides.CaptureReportLog != nil {
		configuration.Capture.ReportLog = *overrides.CaptureReportLog
	}

	return nil
}

func (r *Reader) Validate(configuration *Config) error {
	switch configuration.Logger.Encoding {
	case "console", "json":
	default:
		return errors.Errorf("Unknown logger encoding: %s", configuration.Logger.Encoding)
	}

	switch configuration.Metadata.Extension {
	case "none", "stub", "quantities":
	default:
		return errors.Errorf("Unknown metadata extension: %s", configuration.Metadata.Extension)
	}

	if configuration.Geometry.Deflection <= 0 {
		return errors.Errorf("Deflection must be positive, got %f", configuration.Geometry.Deflection)
	}

	if configuration.Geometry.CircleSegments.Min < 3 ||
		configuration.Geometry.CircleSegments.Max < configuration.Geometry.CircleSegments.Min {
		return errors.Errorf("Invalid circle segments: min %d, max %d",
			configuration.Geometry.CircleSegments.Min,
			configuration.Geometry.CircleSegments.Max)
	}

	return nil
}

func (r *Reader) GetDefaultConfiguration() *Config {
	falseValue := false

	return &Config{
		Logger: Logger{
			Level:    "info",
			Encoding: "console",
		},
		Geometry: Geometry{
			Deflection: 1e-3,
			CircleSegments: CircleSegments{
				Min: 12,
				Max: 64,
			},
		},
		Metadata: Metadata{
			Extension: "quantities",
		},
		Metrics: Metrics{
			Enabled:       &falseValue,
			ListenAddress: ":8090",
		},
		Capture: Capture{
			MaxBytes: 1024 * 1024,
		},
	}
}
