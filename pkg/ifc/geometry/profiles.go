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
	"math"

	"github.com/nuclio/geomserver/pkg/ifc/step"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
)

// profile returns the outer boundary of a profile definition as a counter clockwise polygon
func (k *Kernel) profile(expressID uint32) ([]mgl64.Vec2, error) {
	line, err := k.file.Line(expressID)
	if err != nil {
		return nil, err
	}

	var points []mgl64.Vec2

	switch line.TypeName {
	case "IFCRECTANGLEPROFILEDEF":
		xDim, err := floatArgument(line, 3)
		if err != nil {
			return nil, err
		}

		yDim, err := floatArgument(line, 4)
		if err != nil {
			return nil, err
		}

		points = []mgl64.Vec2{
			{-xDim / 2, -yDim / 2},
			{xDim / 2, -yDim / 2},
			{xDim / 2, yDim / 2},
			{-xDim / 2, yDim / 2},
		}

	case "IFCCIRCLEPROFILEDEF":
		radius, err := floatArgument(line, 3)
		if err != nil {
			return nil, err
		}

		segments := k.circleSegments(radius)
		for segment := 0; segment < segments; segment++ {
			angle := 2 * math.Pi * float64(segment) / float64(segments)
			points = append(points, mgl64.Vec2{radius * math.Cos(angle), radius * math.Sin(angle)})
		}

	case "IFCARBITRARYCLOSEDPROFILEDEF", "IFCARBITRARYPROFILEDEFWITHVOIDS":
		curveID, err := refArgument(line, 2)
		if err != nil {
			return nil, err
		}

		if points, err = k.curve(curveID); err != nil {
			return nil, errors.Wrapf(err, "Failed to read outer curve of profile #%d", expressID)
		}

	default:
		return nil, errors.Errorf("Unsupported profile #%d of type %s", expressID, line.TypeName)
	}

	// rectangle and circle profiles may carry a position
	if line.TypeName == "IFCRECTANGLEPROFILEDEF" || line.TypeName == "IFCCIRCLEPROFILEDEF" {
		if positionArgument, err := line.Argument(2); err == nil && positionArgument.Kind == step.KindRef {
			position, err := k.placements.Axis2Placement(positionArgument.Ref)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read position of profile #%d", expressID)
			}

			for index, point := range points {
				points[index] = position.Mul4x1(mgl64.Vec4{point.X(), point.Y(), 0, 1}).Vec3().Vec2()
			}
		}
	}

	if len(points) < 3 {
		return nil, errors.Errorf("Profile #%d has %d points", expressID, len(points))
	}

	if signedArea(points) < 0 {
		for left, right := 0, len(points)-1; left < right; left, right = left+1, right-1 {
			points[left], points[right] = points[right], points[left]
		}
	}

	return points, nil
}

// curve returns the points of a bounded 2D curve without the closing duplicate
func (k *Kernel) curve(expressID uint32) ([]mgl64.Vec2, error) {
	line, err := k.file.Line(expressID)
	if err != nil {
		return nil, err
	}

	var points []mgl64.Vec2

	switch line.TypeName {
	case "IFCPOLYLINE":
		pointsArgument, err := line.Argument(0)
		if err != nil {
			return nil, err
		}

		pointIDs, err := pointsArgument.AsRefs()
		if err != nil {
			return nil, err
		}

		for _, pointID := range pointIDs {
			point, err := k.placements.Point(pointID)
			if err != nil {
				return nil, err
			}

			points = append(points, point.Vec2())
		}

	case "IFCINDEXEDPOLYCURVE":
		pointListID, err := refArgument(line, 0)
		if err != nil {
			return nil, err
		}

		coordinates, err := k.pointList(pointListID)
		if err != nil {
			return nil, err
		}

		order, err := segmentOrder(line, len(coordinates))
		if err != nil {
			return nil, err
		}

		for _, index := range order {
			points = append(points, coordinates[index].Vec2())
		}

	default:
		return nil, errors.Errorf("Unsupported curve #%d of type %s", expressID, line.TypeName)
	}

	if len(points) > 1 && points[0].ApproxEqual(points[len(points)-1]) {
		points = points[:len(points)-1]
	}

	return points, nil
}

// segmentOrder returns the zero based point order of an indexed poly curve. Arc segments
// contribute their three points
func segmentOrder(line *step.Line, pointCount int) ([]int, error) {
	var order []int

	if len(line.Arguments) < 2 || line.Arguments[1].IsNull() {
		for index := 0; index < pointCount; index++ {
			order = append(order, index)
		}

		return order, nil
	}

	segments, err := line.Arguments[1].AsList()
	if err != nil {
		return nil, err
	}

	for segmentIndex := range segments {
		indices, err := segments[segmentIndex].Unwrap().AsFloats()
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read segment %d", segmentIndex)
		}

		for _, index := range indices {
			zeroBased := int(index) - 1
			if zeroBased < 0 || zeroBased >= pointCount {
				return nil, errors.Errorf("Segment index %d out of range", int(index))
			}

			// consecutive segments share their end points
			if len(order) > 0 && order[len(order)-1] == zeroBased {
				continue
			}

			order = append(order, zeroBased)
		}
	}

	return order, nil
}

// circleSegments returns how many segments approximate a circle within the deflection
func (k *Kernel) circleSegments(radius float64) int {
	segments := k.options.MinCircleSegments

	if k.options.Deflection > 0 && k.options.Deflection < radius {
		halfAngle := math.Acos(1 - k.options.Deflection/radius)
		segments = int(math.Ceil(math.Pi / halfAngle))
	}

	if segments < k.options.MinCircleSegments {
		segments = k.options.MinCircleSegments
	}

	if segments > k.options.MaxCircleSegments {
		segments = k.options.MaxCircleSegments
	}

	return segments
}
