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

// Package geomservertest holds in-memory models and kernels for tests
package geomservertest

import (
	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/ifc/step"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
)

type Argument struct {
	Kind geomserver.TokenKind
	Text string
	Ref  uint32
}

func String(text string) Argument {
	return Argument{Kind: geomserver.TokenString, Text: text}
}

func Ref(expressID uint32) Argument {
	return Argument{Kind: geomserver.TokenRef, Ref: expressID}
}

func Null() Argument {
	return Argument{Kind: geomserver.TokenNull}
}

type Record struct {
	TypeName  string
	Arguments []Argument
}

// Model is a geomserver.Model over records added by the test
type Model struct {
	Records    map[uint32]*Record
	Placements map[uint32]mgl64.Mat4
	Parents    map[uint32]uint32
	order      []uint32
}

func NewModel() *Model {
	return &Model{
		Records:    map[uint32]*Record{},
		Placements: map[uint32]mgl64.Mat4{},
		Parents:    map[uint32]uint32{},
	}
}

// AddRecord adds a record, ids are returned in the order they were added
func (m *Model) AddRecord(expressID uint32, typeName string, arguments ...Argument) {
	if _, found := m.Records[expressID]; !found {
		m.order = append(m.order, expressID)
	}

	m.Records[expressID] = &Record{
		TypeName:  typeName,
		Arguments: arguments,
	}
}

// AddElement adds a product record. A zero placement or representation id is written as null
func (m *Model) AddElement(expressID uint32,
	typeName string,
	guid string,
	name string,
	placementID uint32,
	representationID uint32) {
	nameArgument := Null()
	if name != "" {
		nameArgument = String(name)
	}

	m.AddRecord(expressID, typeName,
		String(guid),
		Null(),
		nameArgument,
		Null(),
		Null(),
		optionalRef(placementID),
		optionalRef(representationID))
}

func (m *Model) ExpressIDs() []uint32 {
	return m.order
}

func (m *Model) LineType(expressID uint32) (uint32, error) {
	record, err := m.record(expressID)
	if err != nil {
		return 0, err
	}

	return step.TypeCode(record.TypeName), nil
}

func (m *Model) ArgumentKind(expressID uint32, offset int) (geomserver.TokenKind, error) {
	argument, err := m.argument(expressID, offset)
	if err != nil {
		return geomserver.TokenUnknown, err
	}

	return argument.Kind, nil
}

func (m *Model) StringArgument(expressID uint32, offset int) (string, error) {
	argument, err := m.argument(expressID, offset)
	if err != nil {
		return "", err
	}

	if argument.Kind != geomserver.TokenString {
		return "", errors.Errorf("Argument %d of #%d is a %s", offset, expressID, argument.Kind)
	}

	return argument.Text, nil
}

func (m *Model) DecodedStringArgument(expressID uint32, offset int) (string, error) {
	raw, err := m.StringArgument(expressID, offset)
	if err != nil {
		return "", err
	}

	return step.DecodeString(raw)
}

func (m *Model) RefArgument(expressID uint32, offset int) (uint32, error) {
	argument, err := m.argument(expressID, offset)
	if err != nil {
		return 0, err
	}

	if argument.Kind != geomserver.TokenRef {
		return 0, errors.Errorf("Argument %d of #%d is a %s", offset, expressID, argument.Kind)
	}

	return argument.Ref, nil
}

func (m *Model) Placement(expressID uint32) (mgl64.Mat4, error) {
	placement, found := m.Placements[expressID]
	if !found {
		return mgl64.Ident4(), errors.Errorf("Placement #%d not found", expressID)
	}

	return placement, nil
}

func (m *Model) Parent(expressID uint32) (uint32, bool) {
	parentID, found := m.Parents[expressID]

	return parentID, found
}

func (m *Model) record(expressID uint32) (*Record, error) {
	record, found := m.Records[expressID]
	if !found {
		return nil, errors.Errorf("Record #%d not found", expressID)
	}

	return record, nil
}

func (m *Model) argument(expressID uint32, offset int) (*Argument, error) {
	record, err := m.record(expressID)
	if err != nil {
		return nil, err
	}

	if offset < 0 || offset >= len(record.Arguments) {
		return nil, errors.Errorf("Record #%d has no argument %d", expressID, offset)
	}

	return &record.Arguments[offset], nil
}

func optionalRef(expressID uint32) Argument {
	if expressID == 0 {
		return Null()
	}

	return Ref(expressID)
}
