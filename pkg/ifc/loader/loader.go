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

package loader

import (
	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/ifc/geometry"
	"github.com/nuclio/geomserver/pkg/ifc/step"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// relationship attributes that link elements to their container
const (
	containedRelatedElements   = 4
	containedRelatingStructure = 5
	aggregatesRelatingObject   = 4
	aggregatesRelatedObjects   = 5
)

// Model exposes a parsed STEP file to the protocol engine
type Model struct {
	logger     logger.Logger
	file       *step.File
	placements *geometry.Placements
	parents    map[uint32]uint32
}

// Load reads a whole file through the supplier and indexes it
func Load(parentLogger logger.Logger, supplier geomserver.ByteSupplier) (*Model, error) {
	file, err := step.Load(supplier)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load model")
	}

	return NewModel(parentLogger, file), nil
}

func NewModel(parentLogger logger.Logger, file *step.File) *Model {
	newModel := &Model{
		logger:     parentLogger.GetChild("loader"),
		file:       file,
		placements: geometry.NewPlacements(file),
	}

	newModel.parents = newModel.indexParents()

	newModel.logger.DebugWith("Model loaded",
		"schemas", file.Schemas,
		"lines", len(file.ExpressIDs()),
		"containedElements", len(newModel.parents))

	return newModel
}

// File returns the underlying STEP file
func (m *Model) File() *step.File {
	return m.file
}

// Placements returns the placement resolver shared with the kernel
func (m *Model) Placements() *geometry.Placements {
	return m.placements
}

func (m *Model) ExpressIDs() []uint32 {
	return m.file.ExpressIDs()
}

func (m *Model) LineType(expressID uint32) (uint32, error) {
	line, err := m.file.Line(expressID)
	if err != nil {
		return 0, err
	}

	return line.TypeCode, nil
}

func (m *Model) ArgumentKind(expressID uint32, offset int) (geomserver.TokenKind, error) {
	argument, err := m.file.Argument(expressID, offset)
	if err != nil {
		return geomserver.TokenUnknown, err
	}

	return tokenKind(argument.Kind), nil
}

func (m *Model) StringArgument(expressID uint32, offset int) (string, error) {
	argument, err := m.file.Argument(expressID, offset)
	if err != nil {
		return "", err
	}

	return argument.AsString()
}

func (m *Model) DecodedStringArgument(expressID uint32, offset int) (string, error) {
	argument, err := m.file.Argument(expressID, offset)
	if err != nil {
		return "", err
	}

	return argument.AsDecodedString()
}

func (m *Model) RefArgument(expressID uint32, offset int) (uint32, error) {
	argument, err := m.file.Argument(expressID, offset)
	if err != nil {
		return 0, err
	}

	return argument.AsRef()
}

func (m *Model) Placement(expressID uint32) (mgl64.Mat4, error) {
	return m.placements.Resolve(expressID)
}

func (m *Model) Parent(expressID uint32) (uint32, bool) {
	parentID, found := m.parents[expressID]

	return parentID, found
}

// indexParents maps elements to the spatial structure containing them, or to the object
// they are a part of
func (m *Model) indexParents() map[uint32]uint32 {
	parents := map[uint32]uint32{}

	m.indexRelationships(parents, "IfcRelContainedInSpatialStructure", containedRelatedElements, containedRelatingStructure)

	// aggregation is more specific than containment
	m.indexRelationships(parents, "IfcRelAggregates", aggregatesRelatedObjects, aggregatesRelatingObject)

	return parents
}

func (m *Model) indexRelationships(parents map[uint32]uint32, typeName string, childrenOffset int, parentOffset int) {
	for _, relationshipID := range m.file.LinesOfType(typeName) {
		parentArgument, err := m.file.Argument(relationshipID, parentOffset)
		if err != nil {
			continue
		}

		parentID, err := parentArgument.AsRef()
		if err != nil {
			continue
		}

		childrenArgument, err := m.file.Argument(relationshipID, childrenOffset)
		if err != nil {
			continue
		}

		childIDs, err := childrenArgument.AsRefs()
		if err != nil {
			m.logger.DebugWith("Ignoring malformed relationship", "id", relationshipID, "err", err.Error())
			continue
		}

		for _, childID := range childIDs {
			parents[childID] = parentID
		}
	}
}

func tokenKind(kind step.Kind) geomserver.TokenKind {
	switch kind {
	case step.KindString:
		return geomserver.TokenString
	case step.KindEnum:
		return geomserver.TokenEnum
	case step.KindRef:
		return geomserver.TokenRef
	case step.KindInteger:
		return geomserver.TokenInteger
	case step.KindReal:
		return geomserver.TokenReal
	case step.KindList:
		return geomserver.TokenList
	case step.KindTyped:
		return geomserver.TokenTyped
	case step.KindNull:
		return geomserver.TokenNull
	case step.KindDerived:
		return geomserver.TokenDerived
	}

	return geomserver.TokenUnknown
}
