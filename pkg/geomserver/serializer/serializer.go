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

package serializer

import (
	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/geomserver/message"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// Serializer turns elements into entity messages, expressing their geometry in the element's
// own placement frame
type Serializer struct {
	logger    logger.Logger
	model     geomserver.Model
	kernel    geomserver.Kernel
	extension Extension
}

// NewSerializer creates a serializer. extension may be nil, in which case entities carry no
// metadata
func NewSerializer(parentLogger logger.Logger,
	model geomserver.Model,
	kernel geomserver.Kernel,
	extension Extension) *Serializer {
	return &Serializer{
		logger:    parentLogger.GetChild("serializer"),
		model:     model,
		kernel:    kernel,
		extension: extension,
	}
}

// Serialize builds the entity of an element. The kernel's caches are cleared when done
func (s *Serializer) Serialize(element *geomserver.Element) (*message.Entity, error) {
	defer s.kernel.Clear()

	placement, err := s.placement(element.ExpressID)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to resolve placement of #%d", element.ExpressID)
	}

	inversePlacement := placement.Inv()

	entity := message.Entity{
		ExpressID:        int32(element.ExpressID),
		GUID:             element.GUID,
		Name:             element.Name,
		ElementType:      element.TypeName,
		ParentID:         int32(element.ParentID),
		Transformation:   rowMajor(placement),
		RepresentationID: int32(element.RepresentationID),
	}

	if element.FlatMesh != nil {
		for partIndex := range element.FlatMesh.Parts {
			if err := s.appendPart(&entity, &element.FlatMesh.Parts[partIndex], inversePlacement); err != nil {
				return nil, errors.Wrapf(err, "Failed to append part %d of #%d", partIndex, element.ExpressID)
			}
		}
	}

	if s.extension != nil {
		metadataWriter := MetadataWriter{}

		if err := s.extension.Write(&metadataWriter, element, &entity); err != nil {
			return nil, errors.Wrapf(err, "Failed to write %s metadata", s.extension.Kind())
		}

		entity.Metadata = metadataWriter.String()
	}

	s.logger.DebugWith("Serialized element",
		"id", element.ExpressID,
		"vertices", len(entity.Vertices)/3,
		"triangles", entity.TriangleCount(),
		"colors", len(entity.Colors)/4)

	return &entity, nil
}

func (s *Serializer) placement(expressID uint32) (mgl64.Mat4, error) {
	kind, err := s.model.ArgumentKind(expressID, geomserver.ArgumentPlacement)
	if err != nil {
		return mgl64.Ident4(), err
	}

	if kind != geomserver.TokenRef {
		return mgl64.Ident4(), nil
	}

	placementID, err := s.model.RefArgument(expressID, geomserver.ArgumentPlacement)
	if err != nil {
		return mgl64.Ident4(), err
	}

	return s.model.Placement(placementID)
}

func (s *Serializer) appendPart(entity *message.Entity, part *geomserver.Part, inversePlacement mgl64.Mat4) error {
	mesh, err := s.kernel.Geometry(part.GeometryID)
	if err != nil {
		return errors.Wrapf(err, "Failed to get geometry #%d", part.GeometryID)
	}

	combined := inversePlacement.Mul4(part.Transformation)
	normalTransformation := combined.Inv().Transpose()

	vertexOffset := int32(len(entity.Vertices) / 3)

	for offset := 0; offset+geomserver.VertexSize <= len(mesh.Vertices); offset += geomserver.VertexSize {
		vertex := mesh.Vertices[offset : offset+geomserver.VertexSize]

		position := combined.Mul4x1(mgl64.Vec4{float64(vertex[0]), float64(vertex[1]), float64(vertex[2]), 1})
		normal := normalTransformation.Mul4x1(mgl64.Vec4{float64(vertex[3]), float64(vertex[4]), float64(vertex[5]), 0})

		entity.Vertices = append(entity.Vertices, position.X(), position.Y(), position.Z())
		entity.Normals = append(entity.Normals, normal.X(), normal.Y(), normal.Z())
	}

	for _, index := range mesh.Indices {
		entity.Indices = append(entity.Indices, vertexOffset+int32(index))
	}

	colorIndex := int32(-1)
	if part.Color.IsSet() {
		colorIndex = int32(len(entity.Colors) / 4)
		entity.Colors = append(entity.Colors, part.Color[:]...)
	}

	for triangle := 0; triangle < len(mesh.Indices)/3; triangle++ {
		entity.ColorIndices = append(entity.ColorIndices, colorIndex)
	}

	return nil
}

// rowMajor lists the matrix row by row
func rowMajor(matrix mgl64.Mat4) [16]float64 {
	var values [16]float64

	for row := 0; row < 4; row++ {
		for column := 0; column < 4; column++ {
			values[row*4+column] = matrix.At(row, column)
		}
	}

	return values
}
