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

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
)

// Kernel returns prepared flat meshes and meshes
type Kernel struct {
	FlatMeshes map[uint32]*geomserver.FlatMesh
	Meshes     map[uint32]*geomserver.Mesh
	Errors     map[uint32]error
	Requested  []uint32
	ClearCount int
}

func NewKernel() *Kernel {
	return &Kernel{
		FlatMeshes: map[uint32]*geomserver.FlatMesh{},
		Meshes:     map[uint32]*geomserver.Mesh{},
		Errors:     map[uint32]error{},
	}
}

// AddPart adds a part referencing a mesh to an element's flat mesh
func (k *Kernel) AddPart(expressID uint32,
	geometryID uint32,
	transformation mgl64.Mat4,
	color geomserver.Color,
	mesh *geomserver.Mesh) {
	flatMesh, found := k.FlatMeshes[expressID]
	if !found {
		flatMesh = &geomserver.FlatMesh{ExpressID: expressID}
		k.FlatMeshes[expressID] = flatMesh
	}

	flatMesh.Parts = append(flatMesh.Parts, geomserver.Part{
		GeometryID:     geometryID,
		Transformation: transformation,
		Color:          color,
	})

	if mesh != nil {
		k.Meshes[geometryID] = mesh
	}
}

func (k *Kernel) FlatMesh(expressID uint32) (*geomserver.FlatMesh, error) {
	k.Requested = append(k.Requested, expressID)

	if err, found := k.Errors[expressID]; found {
		return nil, err
	}

	if flatMesh, found := k.FlatMeshes[expressID]; found {
		return flatMesh, nil
	}

	return &geomserver.FlatMesh{ExpressID: expressID}, nil
}

func (k *Kernel) Geometry(geometryID uint32) (*geomserver.Mesh, error) {
	mesh, found := k.Meshes[geometryID]
	if !found {
		return nil, errors.Errorf("Geometry #%d not found", geometryID)
	}

	return mesh, nil
}

func (k *Kernel) Clear() {
	k.ClearCount++
}

// Triangle returns a mesh with one triangle in the xy plane facing +z
func Triangle() *geomserver.Mesh {
	return &geomserver.Mesh{
		Vertices: []float32{
			0, 0, 0, 0, 0, 1,
			1, 0, 0, 0, 0, 1,
			0, 1, 0, 0, 0, 1,
		},
		Indices: []uint32{0, 1, 2},
	}
}

// Quad returns a unit square in the xy plane made of two triangles facing +z
func Quad() *geomserver.Mesh {
	return &geomserver.Mesh{
		Vertices: []float32{
			0, 0, 0, 0, 0, 1,
			1, 0, 0, 0, 0, 1,
			1, 1, 0, 0, 0, 1,
			0, 1, 0, 0, 0, 1,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
