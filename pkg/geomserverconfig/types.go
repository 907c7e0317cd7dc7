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

package geomserverconfig

type Logger struct {
	Level    string `json:"level,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

type CircleSegments struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

type Geometry struct {
	Deflection     float64        `json:"deflection,omitempty"`
	CircleSegments CircleSegments `json:"circleSegments,omitempty"`
}

type Metadata struct {

	// none, stub or quantities
	Extension string `json:"extension,omitempty"`
}

type Metrics struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	ListenAddress string `json:"listenAddress,omitempty"`
}

type Capture struct {
	MaxBytes  int  `json:"maxBytes,omitempty"`
	ReportLog bool `json:"reportLog,omitempty"`
}

type Config struct {
	Logger   Logger   `json:"logger,omitempty"`
	Geometry Geometry `json:"geometry,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
	Metrics  Metrics  `json:"metrics,omitempty"`
	Capture  Capture  `json:"capture,omitempty"`
}

// MetricsEnabled returns whether the metrics endpoint should be served
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled != nil && *c.Metrics.Enabled
}

// environmentOverrides holds the values that can be set through GEOMSERVER_* variables,
// keyed by the variable name without the prefix
type environmentOverrides struct {
	LoggerLevel          *string  `mapstructure:"LOGGER_LEVEL"`
	LoggerEncoding       *string  `mapstructure:"LOGGER_ENCODING"`
	Deflection           *float64 `mapstructure:"GEOMETRY_DEFLECTION"`
	MinCircleSegments    *int     `mapstructure:"GEOMETRY_CIRCLE_SEGMENTS_MIN"`
	MaxCircleSegments    *int     `mapstructure:"GEOMETRY_CIRCLE_SEGMENTS_MAX"`
	MetadataExtension    *string  `mapstructure:"METADATA_EXTENSION"`
	MetricsEnabled       *bool    `mapstructure:"METRICS_ENABLED"`
	MetricsListenAddress *string  `mapstructure:"METRICS_LISTEN_ADDRESS"`
	CaptureMaxBytes      *int     `mapstructure:"CAPTURE_MAX_BYTES"`
	CaptureReportLog     *bool    `mapstructure:"CAPTURE_REPORT_LOG"`
}
