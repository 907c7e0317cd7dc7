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
	"github.com/nuclio/geomserver/pkg/ifc/step"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
)

const maxPlacementDepth = 64

// AxisCorrection is applied to every exported part. It maps y onto z and z onto -y
var AxisCorrection = mgl64.Mat4{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, -1, 0, 0,
	0, 0, 0, 1,
}

// Placements resolves placement records into transformations
type Placements struct {
	file  *step.File
	cache map[uint32]mgl64.Mat4
}

func NewPlacements(file *step.File) *Placements {
	return &Placements{
		file:  file,
		cache: map[uint32]mgl64.Mat4{},
	}
}

// Resolve returns the global transformation of an object placement, following relative
// placements up to the root
func (p *Placements) Resolve(expressID uint32) (mgl64.Mat4, error) {
	return p.resolve(expressID, 0)
}

func (p *Placements) resolve(expressID uint32, depth int) (mgl64.Mat4, error) {
	if depth > maxPlacementDepth {
		return mgl64.Ident4(), errors.Errorf("Placement #%d is nested too deeply", expressID)
	}

	if transformation, cached := p.cache[expressID]; cached {
		return transformation, nil
	}

	line, err := p.file.Line(expressID)
	if err != nil {
		return mgl64.Ident4(), errors.Wrap(err, "Failed to get placement")
	}

	var transformation mgl64.Mat4

	switch line.TypeName {
	case "IFCLOCALPLACEMENT":
		parentTransformation := mgl64.Ident4()

		relativeTo, err := line.Argument(0)
		if err != nil {
			return mgl64.Ident4(), err
		}

		if relativeTo.Kind == step.KindRef {
			if parentTransformation, err = p.resolve(relativeTo.Ref, depth+1); err != nil {
				return mgl64.Ident4(), errors.Wrapf(err, "Failed to resolve parent of placement #%d", expressID)
			}
		}

		relativePlacement, err := p.refArgument(line, 1)
		if err != nil {
			return mgl64.Ident4(), err
		}

		localTransformation, err := p.Axis2Placement(relativePlacement)
		if err != nil {
			return mgl64.Ident4(), errors.Wrapf(err, "Failed to resolve relative placement of #%d", expressID)
		}

		transformation = parentTransformation.Mul4(localTransformation)

	case "IFCAXIS2PLACEMENT3D", "IFCAXIS2PLACEMENT2D":
		if transformation, err = p.Axis2Placement(expressID); err != nil {
			return mgl64.Ident4(), err
		}

	default:
		return mgl64.Ident4(), errors.Errorf("Unsupported placement #%d of type %s", expressID, line.TypeName)
	}

	p.cache[expressID] = transformation

	return transformation, nil
}

// Axis2Placement returns the transformation of an IfcAxis2Placement2D or 3D
func (p *Placements) Axis2Placement(expressID uint32) (mgl64.Mat4, error) {
	line, err := p.file.Line(expressID)
	if err != nil {
		return mgl64.Ident4(), err
	}

	locationRef, err := p.refArgument(line, 0)
	if err != nil {
		return mgl64.Ident4(), err
	}

	location, err := p.Point(locationRef)
	if err != nil {
		return mgl64.Ident4(), err
	}

	zAxis := mgl64.Vec3{0, 0, 1}
	refDirection := mgl64.Vec3{1, 0, 0}

	switch line.TypeName {
	case "IFCAXIS2PLACEMENT3D":
		if zAxis, err = p.optionalDirection(line, 1, zAxis); err != nil {
			return mgl64.Ident4(), err
		}

		if refDirection, err = p.optionalDirection(line, 2, refDirection); err != nil {
			return mgl64.Ident4(), err
		}

	case "IFCAXIS2PLACEMENT2D":
		if refDirection, err = p.optionalDirection(line, 1, refDirection); err != nil {
			return mgl64.Ident4(), err
		}

	default:
		return mgl64.Ident4(), errors.Errorf("#%d is a %s, not an axis placement", expressID, line.TypeName)
	}

	return axesTransformation(location, refDirection, zAxis, 1, 1, 1), nil
}

// CartesianTransformation returns the transformation of an IfcCartesianTransformationOperator
func (p *Placements) CartesianTransformation(expressID uint32) (mgl64.Mat4, error) {
	line, err := p.file.Line(expressID)
	if err != nil {
		return mgl64.Ident4(), err
	}

	xAxis, err := p.optionalDirection(line, 0, mgl64.Vec3{1, 0, 0})
	if err != nil {
		return mgl64.Ident4(), err
	}

	originRef, err := p.refArgument(line, 2)
	if err != nil {
		return mgl64.Ident4(), err
	}

	origin, err := p.Point(originRef)
	if err != nil {
		return mgl64.Ident4(), err
	}

	scale, err := p.optionalFloat(line, 3, 1)
	if err != nil {
		return mgl64.Ident4(), err
	}

	zAxis := mgl64.Vec3{0, 0, 1}
	scaleY, scaleZ := scale, scale

	switch line.TypeName {
	case "IFCCARTESIANTRANSFORMATIONOPERATOR3D":
		if zAxis, err = p.optionalDirection(line, 4, zAxis); err != nil {
			return mgl64.Ident4(), err
		}

	case "IFCCARTESIANTRANSFORMATIONOPERATOR3DNONUNIFORM":
		if zAxis, err = p.optionalDirection(line, 4, zAxis); err != nil {
			return mgl64.Ident4(), err
		}

		if scaleY, err = p.optionalFloat(line, 5, scale); err != nil {
			return mgl64.Ident4(), err
		}

		if scaleZ, err = p.optionalFloat(line, 6, scale); err != nil {
			return mgl64.Ident4(), err
		}

	case "IFCCARTESIANTRANSFORMATIONOPERATOR2D":

	case "IFCCARTESIANTRANSFORMATIONOPERATOR2DNONUNIFORM":
		if scaleY, err = p.optionalFloat(line, 4, scale); err != nil {
			return mgl64.Ident4(), err
		}

	default:
		return mgl64.Ident4(), errors.Errorf("#%d is a %s, not a transformation operator", expressID, line.TypeName)
	}

	return axesTransformation(origin, xAxis, zAxis, scale, scaleY, scaleZ), nil
}

// Point returns the coordinates of an IfcCartesianPoint, 2D points get z = 0
func (p *Placements) Point(expressID uint32) (mgl64.Vec3, error) {
	return p.vector(expressID, "IFCCARTESIANPOINT")
}

// Direction returns the normalized ratios of an IfcDirection
func (p *Placements) Direction(expressID uint32) (mgl64.Vec3, error) {
	direction, err := p.vector(expressID, "IFCDIRECTION")
	if err != nil {
		return direction, err
	}

	if direction.Len() < epsilon {
		return direction, errors.Errorf("Direction #%d has zero length", expressID)
	}

	return direction.Normalize(), nil
}

func (p *Placements) vector(expressID uint32, typeName string) (mgl64.Vec3, error) {
	line, err := p.file.Line(expressID)
	if err != nil {
		return mgl64.Vec3{}, err
	}

	if line.TypeName != typeName {
		return mgl64.Vec3{}, errors.Errorf("#%d is a %s, not a %s", expressID, line.TypeName, typeName)
	}

	coordinates, err := line.Argument(0)
	if err != nil {
		return mgl64.Vec3{}, err
	}

	values, err := coordinates.AsFloats()
	if err != nil {
		return mgl64.Vec3{}, errors.Wrapf(err, "Failed to read coordinates of #%d", expressID)
	}

	return toVec3(values)
}

func (p *Placements) refArgument(line *step.Line, offset int) (uint32, error) {
	argument, err := line.Argument(offset)
	if err != nil {
		return 0, err
	}

	return argument.AsRef()
}

func (p *Placements) optionalDirection(line *step.Line, offset int, defaultDirection mgl64.Vec3) (mgl64.Vec3, error) {
	if offset >= len(line.Arguments) || line.Arguments[offset].IsNull() {
		return defaultDirection, nil
	}

	ref, err := line.Arguments[offset].AsRef()
	if err != nil {
		return defaultDirection, err
	}

	return p.Direction(ref)
}

func (p *Placements) optionalFloat(line *step.Line, offset int, defaultValue float64) (float64, error) {
	if offset >= len(line.Arguments) || line.Arguments[offset].IsNull() {
		return defaultValue, nil
	}

	return line.Arguments[offset].AsFloat()
}

// axesTransformation builds a transformation whose z axis is zAxis and whose x axis is
// xDirection projected onto the plane normal to it
func axesTransformation(origin, xDirection, zAxis mgl64.Vec3, scaleX, scaleY, scaleZ float64) mgl64.Mat4 {
	zAxis = zAxis.Normalize()

	xAxis := xDirection.Sub(zAxis.Mul(xDirection.Dot(zAxis)))
	if xAxis.Len() < epsilon {

		// x direction is parallel to z, pick any perpendicular
		xAxis = mgl64.Vec3{1, 0, 0}
		if zAxis.X() > 0.9 || zAxis.X() < -0.9 {
			xAxis = mgl64.Vec3{0, 1, 0}
		}

		xAxis = xAxis.Sub(zAxis.Mul(xAxis.Dot(zAxis)))
	}

	xAxis = xAxis.Normalize()
	yAxis := zAxis.Cross(xAxis)

	return mgl64.Mat4FromCols(
		xAxis.Mul(scaleX).Vec4(0),
		yAxis.Mul(scaleY).Vec4(0),
		zAxis.Mul(scaleZ).Vec4(0),
		origin.Vec4(1))
}

func toVec3(values []float64) (mgl64.Vec3, error) {
	var vector mgl64.Vec3

	if len(values) < 2 || len(values) > 3 {
		return vector, errors.Errorf("Expected 2 or 3 coordinates, got %d", len(values))
	}

	copy(vector[:], values)

	return vector, nil
}
