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

package message

import (
	"fmt"
)

// Type identifies a message on the wire
type Type int32

// Message types
const (
	TypeHello Type = iota + 0xff00
	TypeIfcModel
	TypeGet
	TypeEntity
	TypeMore
	TypeNext
	TypeBye
	TypeGetLog
	TypeLog
	TypeDeflection
	TypeSetting
)

// HelloVersion is the version string the server greets with
const HelloVersion = "IFCJS-0.0.54-0"

// Types holds every known type, in identifier order
var Types = []Type{
	TypeHello,
	TypeIfcModel,
	TypeGet,
	TypeEntity,
	TypeMore,
	TypeNext,
	TypeBye,
	TypeGetLog,
	TypeLog,
	TypeDeflection,
	TypeSetting,
}

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "hello"
	case TypeIfcModel:
		return "ifcModel"
	case TypeGet:
		return "get"
	case TypeEntity:
		return "entity"
	case TypeMore:
		return "more"
	case TypeNext:
		return "next"
	case TypeBye:
		return "bye"
	case TypeGetLog:
		return "getLog"
	case TypeLog:
		return "log"
	case TypeDeflection:
		return "deflection"
	case TypeSetting:
		return "setting"
	}

	return fmt.Sprintf("unknown(0x%x)", int32(t))
}

// Known returns whether t is one of the defined message types
func (t Type) Known() bool {
	return t >= TypeHello && t <= TypeSetting
}

// Message is one of the message variants declared in this package
type Message interface {
	Type() Type

	// unexported so that the set of variants is closed
	sealed()
}

// Hello is sent once by the server, before anything else
type Hello struct {
	Version string
}

// IfcModel carries the whole model file
type IfcModel struct {
	Content []byte
}

// Get asks for the current element
type Get struct{}

// Entity carries one element's header, flattened geometry and optional metadata
type Entity struct {
	ExpressID   int32
	GUID        string
	Name        string
	ElementType string
	ParentID    int32

	// element placement, row by row
	Transformation   [16]float64
	RepresentationID int32
	Vertices         []float64
	Normals          []float64
	Indices          []int32
	Colors           []float64
	ColorIndices     []int32

	// compact object text, written after the arrays when not empty
	Metadata string
}

// More reports whether another element is available
type More struct {
	More bool
}

// Next asks the server to advance to the next element
type Next struct{}

// Bye ends the session, in both directions
type Bye struct{}

// GetLog asks for the server's log
type GetLog struct{}

// Log carries log text
type Log struct {
	Text string
}

// Deflection sets the tessellation tolerance for the next model
type Deflection struct {
	Deflection float64
}

// Setting sets an iterator setting for the next model
type Setting struct {
	Key   uint32
	Value uint32
}

func (*Hello) Type() Type      { return TypeHello }
func (*IfcModel) Type() Type   { return TypeIfcModel }
func (*Get) Type() Type        { return TypeGet }
func (*Entity) Type() Type     { return TypeEntity }
func (*More) Type() Type       { return TypeMore }
func (*Next) Type() Type       { return TypeNext }
func (*Bye) Type() Type        { return TypeBye }
func (*GetLog) Type() Type     { return TypeGetLog }
func (*Log) Type() Type        { return TypeLog }
func (*Deflection) Type() Type { return TypeDeflection }
func (*Setting) Type() Type    { return TypeSetting }

func (*Hello) sealed()      {}
func (*IfcModel) sealed()   {}
func (*Get) sealed()        {}
func (*Entity) sealed()     {}
func (*More) sealed()       {}
func (*Next) sealed()       {}
func (*Bye) sealed()        {}
func (*GetLog) sealed()     {}
func (*Log) sealed()        {}
func (*Deflection) sealed() {}
func (*Setting) sealed()    {}

// TriangleCount returns the number of triangles the entity's indices describe
func (e *Entity) TriangleCount() int {
	return len(e.Indices) / 3
}
