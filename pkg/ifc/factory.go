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

// Package ifc builds models and geometry kernels from IFC STEP files
package ifc

import (
	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/ifc/geometry"
	"github.com/nuclio/geomserver/pkg/ifc/loader"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/samber/lo"
)

// keys of settings the factory understands, any other key is ignored
const (
	SettingMinCircleSegments uint32 = 1
	SettingMaxCircleSegments uint32 = 2
)

const (
	DefaultDeflection        = 1e-3
	DefaultMinCircleSegments = 12
	DefaultMaxCircleSegments = 64
)

type FactoryOptions struct {

	// used when the client does not set a deflection
	Deflection        float64
	MinCircleSegments int
	MaxCircleSegments int
}

type ModelFactory struct {
	logger  logger.Logger
	options FactoryOptions
}

func NewModelFactory(parentLogger logger.Logger, options *FactoryOptions) *ModelFactory {
	newModelFactory := &ModelFactory{
		logger: parentLogger.GetChild("factory"),
		options: FactoryOptions{
			Deflection:        DefaultDeflection,
			MinCircleSegments: DefaultMinCircleSegments,
			MaxCircleSegments: DefaultMaxCircleSegments,
		},
	}

	if options != nil {
		if options.Deflection > 0 {
			newModelFactory.options.Deflection = options.Deflection
		}

		if options.MinCircleSegments > 0 {
			newModelFactory.options.MinCircleSegments = options.MinCircleSegments
		}

		if options.MaxCircleSegments > 0 {
			newModelFactory.options.MaxCircleSegments = options.MaxCircleSegments
		}
	}

	return newModelFactory
}

// Create loads a model through the supplier and creates a kernel over it
func (mf *ModelFactory) Create(supplier geomserver.ByteSupplier,
	options *geomserver.ModelOptions) (geomserver.Model, geomserver.Kernel, error) {
	kernelOptions, err := mf.resolveKernelOptions(options)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Failed to resolve kernel options")
	}

	model, err := loader.Load(mf.logger, supplier)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Failed to load model")
	}

	kernel := geometry.NewKernel(mf.logger, model.File(), model.Placements(), kernelOptions)

	mf.logger.DebugWith("Created model",
		"deflection", kernelOptions.Deflection,
		"minCircleSegments", kernelOptions.MinCircleSegments,
		"maxCircleSegments", kernelOptions.MaxCircleSegments)

	return model, kernel, nil
}

func (mf *ModelFactory) resolveKernelOptions(options *geomserver.ModelOptions) (*geometry.KernelOptions, error) {
	kernelOptions := geometry.KernelOptions{
		Deflection:        mf.options.Deflection,
		MinCircleSegments: mf.options.MinCircleSegments,
		MaxCircleSegments: mf.options.MaxCircleSegments,
		DefaultColor:      geomserver.NoColor,
		Transformation:    geometry.AxisCorrection,
	}

	if options == nil {
		return &kernelOptions, nil
	}

	if options.Deflection > 0 {
		kernelOptions.Deflection = options.Deflection
	}

	// later settings override earlier ones
	settings := lo.Associate(options.Settings, func(setting geomserver.Setting) (uint32, uint32) {
		return setting.Key, setting.Value
	})

	for key, value := range settings {
		switch key {
		case SettingMinCircleSegments:
			kernelOptions.MinCircleSegments = int(value)
		case SettingMaxCircleSegments:
			kernelOptions.MaxCircleSegments = int(value)
		default:
			mf.logger.DebugWith("Ignoring unknown setting", "key", key, "value", value)
		}
	}

	if kernelOptions.MinCircleSegments < 3 {
		return nil, errors.Errorf("Circles need at least 3 segments, got %d", kernelOptions.MinCircleSegments)
	}

	if kernelOptions.MaxCircleSegments < kernelOptions.MinCircleSegments {
		return nil, errors.Errorf("Maximum circle segments (%d) is below the minimum (%d)",
			kernelOptions.MaxCircleSegments,
			kernelOptions.MinCircleSegments)
	}

	return &kernelOptions, nil
}
