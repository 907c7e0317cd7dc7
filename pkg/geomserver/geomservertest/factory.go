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

package geomservertest

import (
	"github.com/nuclio/geomserver/pkg/geomserver"
)

// ModelFactory hands out the same model and kernel for every upload and records what it got
type ModelFactory struct {
	Model    *Model
	Kernel   *Kernel
	Err      error
	Contents [][]byte
	Options  []geomserver.ModelOptions
}

func NewModelFactory(model *Model, kernel *Kernel) *ModelFactory {
	return &ModelFactory{
		Model:  model,
		Kernel: kernel,
	}
}

func (mf *ModelFactory) Create(supplier geomserver.ByteSupplier,
	options *geomserver.ModelOptions) (geomserver.Model, geomserver.Kernel, error) {
	var content []byte

	chunk := make([]byte, 7)
	for {
		copied := supplier(chunk, len(content))
		if copied == 0 {
			break
		}

		content = append(content, chunk[:copied]...)
	}

	mf.Contents = append(mf.Contents, content)
	mf.Options = append(mf.Options, *options)

	if mf.Err != nil {
		return nil, nil, mf.Err
	}

	return mf.Model, mf.Kernel, nil
}
