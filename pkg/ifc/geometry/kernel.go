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

package geometry

import (
	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/ifc/step"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

const maxMappingDepth = 16

// representations that describe something other than the element's body
var ignoredRepresentationIdentifiers = map[string]bool{
	"Axis":       true,
	"FootPrint":  true,
	"Box":        true,
	"Annotation": true,
	"Profile":    true,
	"Clearance":  true,
}

type KernelOptions struct {
	Deflection        float64
	MinCircleSegments int
	MaxCircleSegments int
	DefaultColor      geomserver.Color

	// applied to every part, after the placement
	Transformation mgl64.Mat4
}

// Kernel triangulates the representation items of elements. Meshes are cached by the id of
// the item they were created from until Clear is called
type Kernel struct {
	logger     logger.Logger
	file       *step.File
	placements *Placements
	options    KernelOptions
	styles     map[uint32]geomserver.Color
	meshes     map[uint32]*geomserver.Mesh
}

func NewKernel(parentLogger logger.Logger,
	file *step.File,
	placements *Placements,
	options *KernelOptions) *Kernel {
	return &Kernel{
		logger:     parentLogger.GetChild("kernel"),
		file:       file,
		placements: placements,
		options:    *options,
		meshes:     map[uint32]*geomserver.Mesh{},
	}
}

// FlatMesh returns a part for every supported body item of an element
func (k *Kernel) FlatMesh(expressID uint32) (*geomserver.FlatMesh, error) {
	if k.styles == nil {
		k.styles = indexStyles(k.file)
	}

	element, err := k.file.Line(expressID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get element")
	}

	placement := mgl64.Ident4()

	placementArgument, err := element.Argument(geomserver.ArgumentPlacement)
	if err != nil {
		return nil, err
	}

	if placementArgument.Kind == step.KindRef {
		if placement, err = k.placements.Resolve(placementArgument.Ref); err != nil {
			return nil, errors.Wrapf(err, "Failed to resolve placement of #%d", expressID)
		}
	}

	productShapeID, err := refArgument(element, geomserver.ArgumentRepresentation)
	if err != nil {
		return nil, errors.Wrapf(err, "Element #%d has no representation", expressID)
	}

	productShape, err := k.file.Line(productShapeID)
	if err != nil {
		return nil, err
	}

	representationsArgument, err := productShape.Argument(2)
	if err != nil {
		return nil, err
	}

	representationIDs, err := representationsArgument.AsRefs()
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read representations of #%d", productShapeID)
	}

	flatMesh := geomserver.FlatMesh{
		ExpressID: expressID,
	}

	transformation := k.options.Transformation.Mul4(placement)

	for _, representationID := range representationIDs {
		itemIDs, err := k.representationItems(representationID, true)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read representation #%d", representationID)
		}

		for _, itemID := range itemIDs {
			if err := k.addItem(&flatMesh, itemID, transformation, k.options.DefaultColor, 0); err != nil {
				return nil, errors.Wrapf(err, "Failed to process item #%d", itemID)
			}
		}
	}

	return &flatMesh, nil
}

// Geometry returns the mesh of a representation item, creating it if it is not cached
func (k *Kernel) Geometry(geometryID uint32) (*geomserver.Mesh, error) {
	if mesh, cached := k.meshes[geometryID]; cached {
		return mesh, nil
	}

	line, err := k.file.Line(geometryID)
	if err != nil {
		return nil, err
	}

	mesh, err := k.createMesh(line)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create mesh for #%d", geometryID)
	}

	if mesh == nil {
		return nil, errors.Errorf("Item #%d of type %s has no supported geometry", geometryID, line.TypeName)
	}

	k.meshes[geometryID] = mesh

	return mesh, nil
}

// Clear drops all cached meshes
func (k *Kernel) Clear() {
	k.meshes = map[uint32]*geomserver.Mesh{}
}

func (k *Kernel) representationItems(representationID uint32, bodyOnly bool) ([]uint32, error) {
	representation, err := k.file.Line(representationID)
	if err != nil {
		return nil, err
	}

	if bodyOnly {
		if identifier, err := representation.Argument(1); err == nil {
			if name, err := identifier.AsString(); err == nil && ignoredRepresentationIdentifiers[name] {
				return nil, nil
			}
		}
	}

	itemsArgument, err := representation.Argument(3)
	if err != nil {
		return nil, err
	}

	return itemsArgument.AsRefs()
}

func (k *Kernel) addItem(flatMesh *geomserver.FlatMesh,
	itemID uint32,
	transformation mgl64.Mat4,
	color geomserver.Color,
	depth int) error {
	if depth > maxMappingDepth {
		return errors.Errorf("Mapped items are nested too deeply at #%d", itemID)
	}

	if styledColor, styled := k.styles[itemID]; styled {
		color = styledColor
	}

	item, err := k.file.Line(itemID)
	if err != nil {
		return err
	}

	switch item.TypeName {
	case "IFCMAPPEDITEM":
		return k.addMappedItem(flatMesh, item, transformation, color, depth)

	case "IFCBOOLEANRESULT", "IFCBOOLEANCLIPPINGRESULT":

		// only the first operand is meshed, the second is not subtracted
		firstOperandID, err := refArgument(item, 1)
		if err != nil {
			return err
		}

		return k.addItem(flatMesh, firstOperandID, transformation, color, depth+1)
	}

	mesh, err := k.createMesh(item)
	if err != nil {
		return err
	}

	// not a supported body item
	if mesh == nil {
		k.logger.DebugWith("Skipping unsupported item", "id", itemID, "type", item.TypeName)
		return nil
	}

	if len(mesh.Indices) == 0 {
		return nil
	}

	k.meshes[itemID] = mesh

	flatMesh.Parts = append(flatMesh.Parts, geomserver.Part{
		GeometryID:     itemID,
		Transformation: transformation,
		Color:          color,
	})

	return nil
}

func (k *Kernel) addMappedItem(flatMesh *geomserver.FlatMesh,
	item *step.Line,
	transformation mgl64.Mat4,
	color geomserver.Color,
	depth int) error {
	sourceID, err := refArgument(item, 0)
	if err != nil {
		return err
	}

	targetID, err := refArgument(item, 1)
	if err != nil {
		return err
	}

	target, err := k.placements.CartesianTransformation(targetID)
	if err != nil {
		return errors.Wrap(err, "Failed to read mapping target")
	}

	source, err := k.file.Line(sourceID)
	if err != nil {
		return err
	}

	originID, err := refArgument(source, 0)
	if err != nil {
		return err
	}

	origin, err := k.placements.Axis2Placement(originID)
	if err != nil {
		return errors.Wrap(err, "Failed to read mapping origin")
	}

	representationID, err := refArgument(source, 1)
	if err != nil {
		return err
	}

	itemIDs, err := k.representationItems(representationID, false)
	if err != nil {
		return err
	}

	mappedTransformation := transformation.Mul4(target).Mul4(origin)

	for _, mappedItemID := range itemIDs {
		if err := k.addItem(flatMesh, mappedItemID, mappedTransformation, color, depth+1); err != nil {
			return errors.Wrapf(err, "Failed to process mapped item #%d", mappedItemID)
		}
	}

	return nil
}

// createMesh triangulates a geometric item. Items of unsupported types yield a nil mesh
func (k *Kernel) createMesh(item *step.Line) (*geomserver.Mesh, error) {
	builder := meshBuilder{}

	switch item.TypeName {
	case "IFCTRIANGULATEDFACESET", "IFCTRIANGULATEDIRREGULARNETWORK":
		if err := k.addTriangulatedFaceSet(&builder, item); err != nil {
			return nil, err
		}

	case "IFCPOLYGONALFACESET":
		if err := k.addPolygonalFaceSet(&builder, item); err != nil {
			return nil, err
		}

	case "IFCFACETEDBREP", "IFCFACETEDBREPWITHVOIDS":
		shellID, err := refArgument(item, 0)
		if err != nil {
			return nil, err
		}

		if err := k.addShell(&builder, shellID); err != nil {
			return nil, err
		}

	case "IFCSHELLBASEDSURFACEMODEL", "IFCFACEBASEDSURFACEMODEL":
		shellsArgument, err := item.Argument(0)
		if err != nil {
			return nil, err
		}

		shellIDs, err := shellsArgument.AsRefs()
		if err != nil {
			return nil, err
		}

		for _, shellID := range shellIDs {
			if err := k.addShell(&builder, shellID); err != nil {
				return nil, err
			}
		}

	case "IFCEXTRUDEDAREASOLID":
		if err := k.addExtrusion(&builder, item); err != nil {
			return nil, err
		}

	default:
		return nil, nil
	}

	return builder.mesh(), nil
}

func (k *Kernel) addTriangulatedFaceSet(builder *meshBuilder, item *step.Line) error {
	pointListID, err := refArgument(item, 0)
	if err != nil {
		return err
	}

	coordinates, err := k.pointList(pointListID)
	if err != nil {
		return err
	}

	faces, err := item.Argument(3)
	if err != nil {
		return err
	}

	triangles, err := faces.AsList()
	if err != nil {
		return err
	}

	pointIndex, err := optionalIndexList(item, 4)
	if err != nil {
		return err
	}

	for triangleIndex := range triangles {
		indices, err := triangles[triangleIndex].AsFloats()
		if err != nil || len(indices) != 3 {
			return errors.Errorf("Triangle %d of #%d is invalid", triangleIndex, item.ExpressID)
		}

		points, err := indexedPoints(coordinates, pointIndex, indices)
		if err != nil {
			return errors.Wrapf(err, "Triangle %d of #%d", triangleIndex, item.ExpressID)
		}

		builder.addTriangle(points[0], points[1], points[2])
	}

	return nil
}

func (k *Kernel) addPolygonalFaceSet(builder *meshBuilder, item *step.Line) error {
	pointListID, err := refArgument(item, 0)
	if err != nil {
		return err
	}

	coordinates, err := k.pointList(pointListID)
	if err != nil {
		return err
	}

	facesArgument, err := item.Argument(2)
	if err != nil {
		return err
	}

	faceIDs, err := facesArgument.AsRefs()
	if err != nil {
		return err
	}

	pointIndex, err := optionalIndexList(item, 3)
	if err != nil {
		return err
	}

	for _, faceID := range faceIDs {
		face, err := k.file.Line(faceID)
		if err != nil {
			return err
		}

		// inner loops of faces with voids are not cut out
		indicesArgument, err := face.Argument(0)
		if err != nil {
			return err
		}

		indices, err := indicesArgument.AsFloats()
		if err != nil {
			return err
		}

		points, err := indexedPoints(coordinates, pointIndex, indices)
		if err != nil {
			return errors.Wrapf(err, "Face #%d", faceID)
		}

		if err := builder.addPolygon(points); err != nil {
			k.logger.DebugWith("Skipping face", "id", faceID, "err", err.Error())
		}
	}

	return nil
}

func (k *Kernel) addShell(builder *meshBuilder, shellID uint32) error {
	shell, err := k.file.Line(shellID)
	if err != nil {
		return err
	}

	facesArgument, err := shell.Argument(0)
	if err != nil {
		return err
	}

	faceIDs, err := facesArgument.AsRefs()
	if err != nil {
		return errors.Wrapf(err, "Failed to read faces of shell #%d", shellID)
	}

	for _, faceID := range faceIDs {
		points, err := k.faceBoundary(faceID)
		if err != nil {
			return errors.Wrapf(err, "Failed to read face #%d", faceID)
		}

		if err := builder.addPolygon(points); err != nil {
			k.logger.DebugWith("Skipping face", "id", faceID, "err", err.Error())
		}
	}

	return nil
}

// faceBoundary returns the outer loop of a face, oriented as the face
func (k *Kernel) faceBoundary(faceID uint32) ([]mgl64.Vec3, error) {
	face, err := k.file.Line(faceID)
	if err != nil {
		return nil, err
	}

	boundsArgument, err := face.Argument(0)
	if err != nil {
		return nil, err
	}

	boundIDs, err := boundsArgument.AsRefs()
	if err != nil {
		return nil, err
	}

	if len(boundIDs) == 0 {
		return nil, errors.New("Face has no bounds")
	}

	// the outer bound, or the first one when none is marked outer
	bound, err := k.file.Line(boundIDs[0])
	if err != nil {
		return nil, err
	}

	for _, boundID := range boundIDs {
		candidate, err := k.file.Line(boundID)
		if err == nil && candidate.TypeName == "IFCFACEOUTERBOUND" {
			bound = candidate
			break
		}
	}

	loopID, err := refArgument(bound, 0)
	if err != nil {
		return nil, err
	}

	loop, err := k.file.Line(loopID)
	if err != nil {
		return nil, err
	}

	if loop.TypeName != "IFCPOLYLOOP" {
		return nil, errors.Errorf("Unsupported loop #%d of type %s", loopID, loop.TypeName)
	}

	polygonArgument, err := loop.Argument(0)
	if err != nil {
		return nil, err
	}

	pointIDs, err := polygonArgument.AsRefs()
	if err != nil {
		return nil, err
	}

	points := make([]mgl64.Vec3, 0, len(pointIDs))
	for _, pointID := range pointIDs {
		point, err := k.placements.Point(pointID)
		if err != nil {
			return nil, err
		}

		points = append(points, point)
	}

	if orientation, err := bound.Argument(1); err == nil {
		if value, err := orientation.AsEnum(); err == nil && value == "F" {
			for left, right := 0, len(points)-1; left < right; left, right = left+1, right-1 {
				points[left], points[right] = points[right], points[left]
			}
		}
	}

	return points, nil
}

func (k *Kernel) addExtrusion(builder *meshBuilder, item *step.Line) error {
	profileID, err := refArgument(item, 0)
	if err != nil {
		return err
	}

	profile, err := k.profile(profileID)
	if err != nil {
		return err
	}

	directionID, err := refArgument(item, 2)
	if err != nil {
		return err
	}

	direction, err := k.placements.Direction(directionID)
	if err != nil {
		return err
	}

	depth, err := floatArgument(item, 3)
	if err != nil {
		return err
	}

	extrusion := direction.Mul(depth)

	// the profile must wind counter clockwise around the extrusion for faces to point outwards
	if extrusion.Z() < 0 {
		for left, right := 0, len(profile)-1; left < right; left, right = left+1, right-1 {
			profile[left], profile[right] = profile[right], profile[left]
		}
	}

	bottom := make([]mgl64.Vec3, len(profile))
	top := make([]mgl64.Vec3, len(profile))
	reversedBottom := make([]mgl64.Vec3, len(profile))
	for index, point := range profile {
		bottom[index] = point.Vec3(0)
		top[index] = bottom[index].Add(extrusion)
		reversedBottom[len(profile)-1-index] = bottom[index]
	}

	if err := builder.addPolygon(reversedBottom); err != nil {
		return errors.Wrap(err, "Failed to triangulate profile")
	}

	if err := builder.addPolygon(top); err != nil {
		return errors.Wrap(err, "Failed to triangulate profile")
	}

	for index := range bottom {
		next := (index + 1) % len(bottom)
		builder.addTriangle(bottom[index], bottom[next], bottom[next].Add(extrusion))
		builder.addTriangle(bottom[index], bottom[next].Add(extrusion), bottom[index].Add(extrusion))
	}

	// the position places the extrusion inside the representation's coordinate system
	if positionArgument, err := item.Argument(1); err == nil && positionArgument.Kind == step.KindRef {
		position, err := k.placements.Axis2Placement(positionArgument.Ref)
		if err != nil {
			return errors.Wrap(err, "Failed to read extrusion position")
		}

		builder.transform(position)
	}

	return nil
}

// pointList returns the coordinates of an IfcCartesianPointList2D or 3D
func (k *Kernel) pointList(expressID uint32) ([]mgl64.Vec3, error) {
	pointList, err := k.file.Line(expressID)
	if err != nil {
		return nil, err
	}

	coordinatesArgument, err := pointList.Argument(0)
	if err != nil {
		return nil, err
	}

	coordinateList, err := coordinatesArgument.AsList()
	if err != nil {
		return nil, err
	}

	coordinates := make([]mgl64.Vec3, 0, len(coordinateList))
	for coordinateIndex := range coordinateList {
		values, err := coordinateList[coordinateIndex].AsFloats()
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read point %d of #%d", coordinateIndex, expressID)
		}

		point, err := toVec3(values)
		if err != nil {
			return nil, err
		}

		coordinates = append(coordinates, point)
	}

	return coordinates, nil
}

func indexedPoints(coordinates []mgl64.Vec3, pointIndex []int, indices []float64) ([]mgl64.Vec3, error) {
	points := make([]mgl64.Vec3, 0, len(indices))

	for _, oneBased := range indices {
		index := int(oneBased) - 1

		if pointIndex != nil {
			if index < 0 || index >= len(pointIndex) {
				return nil, errors.Errorf("Point index %d out of range", int(oneBased))
			}

			index = pointIndex[index] - 1
		}

		if index < 0 || index >= len(coordinates) {
			return nil, errors.Errorf("Coordinate index %d out of range", index+1)
		}

		points = append(points, coordinates[index])
	}

	return points, nil
}

func optionalIndexList(line *step.Line, offset int) ([]int, error) {
	if offset >= len(line.Arguments) || line.Arguments[offset].IsNull() {
		return nil, nil
	}

	values, err := line.Arguments[offset].AsFloats()
	if err != nil {
		return nil, err
	}

	indices := make([]int, len(values))
	for valueIndex, value := range values {
		indices[valueIndex] = int(value)
	}

	return indices, nil
}

func refArgument(line *step.Line, offset int) (uint32, error) {
	argument, err := line.Argument(offset)
	if err != nil {
		return 0, err
	}

	return argument.AsRef()
}

func floatArgument(line *step.Line, offset int) (float64, error) {
	argument, err := line.Argument(offset)
	if err != nil {
		return 0, err
	}

	return argument.AsFloat()
}
