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

	"github.com/nuclio/geomserver/pkg/geomserver"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
)

const epsilon = 1e-12

// meshBuilder accumulates flat shaded triangles, three vertices each
type meshBuilder struct {
	vertices []float32
	indices  []uint32
}

func (mb *meshBuilder) addTriangle(a, b, c mgl64.Vec3) {
	normal := b.Sub(a).Cross(c.Sub(a))
	if normal.Len() < epsilon {
		return
	}

	normal = normal.Normalize()
	base := uint32(len(mb.vertices) / geomserver.VertexSize)

	for _, position := range []mgl64.Vec3{a, b, c} {
		mb.vertices = append(mb.vertices,
			float32(position.X()), float32(position.Y()), float32(position.Z()),
			float32(normal.X()), float32(normal.Y()), float32(normal.Z()))
	}

	mb.indices = append(mb.indices, base, base+1, base+2)
}

// addPolygon triangulates a simple planar polygon, keeping its winding
func (mb *meshBuilder) addPolygon(points []mgl64.Vec3) error {
	triangles, err := triangulate(points)
	if err != nil {
		return err
	}

	for _, triangle := range triangles {
		mb.addTriangle(points[triangle[0]], points[triangle[1]], points[triangle[2]])
	}

	return nil
}

func (mb *meshBuilder) transform(transformation mgl64.Mat4) {
	normalTransformation := transformation.Inv().Transpose()

	for offset := 0; offset < len(mb.vertices); offset += geomserver.VertexSize {
		vertex := mb.vertices[offset : offset+geomserver.VertexSize]

		position := transformation.Mul4x1(mgl64.Vec4{float64(vertex[0]), float64(vertex[1]), float64(vertex[2]), 1})
		normal := normalTransformation.Mul4x1(mgl64.Vec4{float64(vertex[3]), float64(vertex[4]), float64(vertex[5]), 0}).Vec3()
		if normal.Len() > epsilon {
			normal = normal.Normalize()
		}

		vertex[0], vertex[1], vertex[2] = float32(position.X()), float32(position.Y()), float32(position.Z())
		vertex[3], vertex[4], vertex[5] = float32(normal.X()), float32(normal.Y()), float32(normal.Z())
	}
}

func (mb *meshBuilder) mesh() *geomserver.Mesh {
	return &geomserver.Mesh{
		Vertices: mb.vertices,
		Indices:  mb.indices,
	}
}

// triangulate ear clips a polygon and returns triangles as indices into points
func triangulate(points []mgl64.Vec3) ([][3]int, error) {
	if len(points) < 3 {
		return nil, errors.Errorf("Polygon has %d points", len(points))
	}

	if len(points) == 3 {
		return [][3]int{{0, 1, 2}}, nil
	}

	normal := newellNormal(points)
	if normal.Len() < epsilon {
		return nil, errors.New("Polygon is degenerate")
	}

	projected := project(points, normal)

	remaining := make([]int, len(points))
	for index := range remaining {
		remaining[index] = index
	}

	var triangles [][3]int

	for len(remaining) > 3 {
		clipped := false

		for position := range remaining {
			previous := remaining[(position+len(remaining)-1)%len(remaining)]
			current := remaining[position]
			next := remaining[(position+1)%len(remaining)]

			turn := cross2(projected[previous], projected[current], projected[next])

			// collinear, drop the vertex without emitting anything
			if math.Abs(turn) < epsilon {
				remaining = append(remaining[:position], remaining[position+1:]...)
				clipped = true
				break
			}

			// reflex
			if turn < 0 {
				continue
			}

			if containsAny(projected, remaining, previous, current, next) {
				continue
			}

			triangles = append(triangles, [3]int{previous, current, next})
			remaining = append(remaining[:position], remaining[position+1:]...)
			clipped = true
			break
		}

		// self intersecting input, fan whatever is left
		if !clipped {
			for position := 1; position+1 < len(remaining); position++ {
				triangles = append(triangles, [3]int{remaining[0], remaining[position], remaining[position+1]})
			}

			return triangles, nil
		}
	}

	if len(remaining) == 3 {
		triangles = append(triangles, [3]int{remaining[0], remaining[1], remaining[2]})
	}

	return triangles, nil
}

// newellNormal returns the polygon normal, whose length is twice the polygon's area
func newellNormal(points []mgl64.Vec3) mgl64.Vec3 {
	var normal mgl64.Vec3

	for index, current := range points {
		next := points[(index+1)%len(points)]

		normal[0] += (current.Y() - next.Y()) * (current.Z() + next.Z())
		normal[1] += (current.Z() - next.Z()) * (current.X() + next.X())
		normal[2] += (current.X() - next.X()) * (current.Y() + next.Y())
	}

	return normal
}

// project drops the dominant axis of normal so that the polygon is counter clockwise in 2D
func project(points []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec2 {
	axis := 2
	if math.Abs(normal.X()) > math.Abs(normal[axis]) {
		axis = 0
	}
	if math.Abs(normal.Y()) > math.Abs(normal[axis]) {
		axis = 1
	}

	// cyclic order keeps the orientation of the dropped axis
	uAxis, vAxis := (axis+1)%3, (axis+2)%3
	sign := 1.0
	if normal[axis] < 0 {
		sign = -1
	}

	projected := make([]mgl64.Vec2, len(points))
	for index, point := range points {
		projected[index] = mgl64.Vec2{point[uAxis], sign * point[vAxis]}
	}

	return projected
}

func cross2(a, b, c mgl64.Vec2) float64 {
	return (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
}

func containsAny(points []mgl64.Vec2, candidates []int, a, b, c int) bool {
	for _, candidate := range candidates {
		if candidate == a || candidate == b || candidate == c {
			continue
		}

		point := points[candidate]
		if point == points[a] || point == points[b] || point == points[c] {
			continue
		}

		if cross2(points[a], points[b], point) >= 0 &&
			cross2(points[b], points[c], point) >= 0 &&
			cross2(points[c], points[a], point) >= 0 {
			return true
		}
	}

	return false
}

// signedArea returns the signed area of a 2D polygon, positive when counter clockwise
func signedArea(points []mgl64.Vec2) float64 {
	area := 0.0
	for index, current := range points {
		next := points[(index+1)%len(points)]
		area += current.X()*next.Y() - next.X()*current.Y()
	}

	return area / 2
}
