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

// Package geomserver declares what the protocol engine needs from a loaded model, the schema
// and the geometry kernel, and the records that flow between them
package geomserver

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// NoParent is the parent id of elements that are not contained in anything
const NoParent = -1

// Indices of IfcProduct attributes
const (
	ArgumentGlobalID       = 0
	ArgumentName           = 2
	ArgumentPlacement      = 5
	ArgumentRepresentation = 6
)

// TokenKind is the kind of an argument in a model record
type TokenKind int

const (
	TokenUnknown TokenKind = iota
	TokenString
	TokenEnum
	TokenRef
	TokenInteger
	TokenReal
	TokenList
	TokenTyped
	TokenNull
	TokenDerived
)

func (tk TokenKind) String() string {
	switch tk {
	case TokenString:
		return "string"
	case TokenEnum:
		return "enum"
	case TokenRef:
		return "ref"
	case TokenInteger:
		return "integer"
	case TokenReal:
		return "real"
	case TokenList:
		return "list"
	case TokenTyped:
		return "typed"
	case TokenNull:
		return "null"
	case TokenDerived:
		return "derived"
	}

	return fmt.Sprintf("unknown(%d)", int(tk))
}

// Color is an RGBA color. Any component equal to -1 means there is no color
type Color [4]float64

// NoColor is the color of parts that have no style
var NoColor = Color{-1, -1, -1, -1}

// IsSet returns whether every component holds a value
func (c Color) IsSet() bool {
	for _, component := range c {
		if component == -1 {
			return false
		}
	}

	return true
}

// Mesh is triangulated geometry shared between parts
type Mesh struct {

	// px, py, pz, nx, ny, nz per vertex
	Vertices []float32
	Indices  []uint32
}

// VertexSize is the number of floats per vertex in Mesh.Vertices
const VertexSize = 6

// VertexCount returns the number of vertices in the mesh
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / VertexSize
}

// Part places a shared mesh in the model
type Part struct {
	GeometryID     uint32
	Transformation mgl64.Mat4
	Color          Color
}

// FlatMesh holds every part of one element
type FlatMesh struct {
	ExpressID uint32
	Parts     []Part
}

// Element is one element selected for export, resolved and ready to be serialized
type Element struct {
	ExpressID        uint32
	ParentID         int64
	GUID             string
	Name             string
	TypeName         string
	RepresentationID uint32
	FlatMesh         *FlatMesh
}

// Model is a loaded model file, indexed by express id
type Model interface {

	// ExpressIDs returns the ids of all records, in file order
	ExpressIDs() []uint32

	// LineType returns the type code of a record
	LineType(expressID uint32) (uint32, error)

	// ArgumentKind returns the token kind of a record argument
	ArgumentKind(expressID uint32, offset int) (TokenKind, error)

	// StringArgument returns a string argument as written in the file
	StringArgument(expressID uint32, offset int) (string, error)

	// DecodedStringArgument returns a string argument with its escape sequences decoded
	DecodedStringArgument(expressID uint32, offset int) (string, error)

	// RefArgument returns the express id a reference argument points to
	RefArgument(expressID uint32, offset int) (uint32, error)

	// Placement resolves a placement record to its global transformation
	Placement(expressID uint32) (mgl64.Mat4, error)

	// Parent returns the express id of the spatial structure or aggregate containing a record
	Parent(expressID uint32) (uint32, bool)
}

// Catalog knows the schema's type codes
type Catalog interface {
	IsElement(typeCode uint32) bool
	TypeName(typeCode uint32) string
}

// Kernel turns elements into meshes
type Kernel interface {

	// FlatMesh returns every part of an element. Parts reference meshes cached by the kernel
	FlatMesh(expressID uint32) (*FlatMesh, error)

	// Geometry returns a cached mesh
	Geometry(geometryID uint32) (*Mesh, error)

	// Clear drops cached meshes
	Clear()
}

// ModelOptions holds what the client set before uploading a model
type ModelOptions struct {
	Deflection float64
	Settings   []Setting
}

// Setting is a key value pair sent by the client
type Setting struct {
	Key   uint32
	Value uint32
}

// ModelFactory creates a model and a kernel over it. supplier is called with
// successive offsets until it returns 0
type ModelFactory interface {
	Create(supplier ByteSupplier, options *ModelOptions) (Model, Kernel, error)
}

// ByteSupplier copies source bytes starting at sourceOffset into destination and returns how
// many were copied
type ByteSupplier func(destination []byte, sourceOffset int) int

// BufferSupplier returns a ByteSupplier over an in-memory buffer
func BufferSupplier(buffer []byte) ByteSupplier {
	return func(destination []byte, sourceOffset int) int {
		if sourceOffset >= len(buffer) {
			return 0
		}

		return copy(destination, buffer[sourceOffset:])
	}
}
