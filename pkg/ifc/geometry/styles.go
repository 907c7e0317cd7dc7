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
)

const maxStyleDepth = 8

// indexStyles maps representation items to the surface color of their styled item
func indexStyles(file *step.File) map[uint32]geomserver.Color {
	colors := map[uint32]geomserver.Color{}

	for _, styledItemID := range file.LinesOfType("IfcStyledItem") {
		styledItem, err := file.Line(styledItemID)
		if err != nil || len(styledItem.Arguments) < 2 {
			continue
		}

		itemID, err := styledItem.Arguments[0].AsRef()
		if err != nil {
			continue
		}

		if _, found := colors[itemID]; found {
			continue
		}

		if color, found := styleColor(file, &styledItem.Arguments[1], 0); found {
			colors[itemID] = color
		}
	}

	return colors
}

// styleColor walks style assignments and surface styles down to the first colour
func styleColor(file *step.File, styles *step.Argument, depth int) (geomserver.Color, bool) {
	if depth > maxStyleDepth {
		return geomserver.NoColor, false
	}

	if styles.Kind == step.KindList {
		for itemIndex := range styles.List {
			if color, found := styleColor(file, &styles.List[itemIndex], depth+1); found {
				return color, true
			}
		}

		return geomserver.NoColor, false
	}

	styleID, err := styles.AsRef()
	if err != nil {
		return geomserver.NoColor, false
	}

	style, err := file.Line(styleID)
	if err != nil {
		return geomserver.NoColor, false
	}

	switch style.TypeName {
	case "IFCPRESENTATIONSTYLEASSIGNMENT":
		if len(style.Arguments) > 0 {
			return styleColor(file, &style.Arguments[0], depth+1)
		}

	case "IFCSURFACESTYLE":
		if len(style.Arguments) > 2 {
			return styleColor(file, &style.Arguments[2], depth+1)
		}

	case "IFCSURFACESTYLERENDERING", "IFCSURFACESTYLESHADING":
		return shadingColor(file, style)
	}

	return geomserver.NoColor, false
}

func shadingColor(file *step.File, shading *step.Line) (geomserver.Color, bool) {
	if len(shading.Arguments) == 0 {
		return geomserver.NoColor, false
	}

	colourID, err := shading.Arguments[0].AsRef()
	if err != nil {
		return geomserver.NoColor, false
	}

	colour, err := file.Line(colourID)
	if err != nil || colour.TypeName != "IFCCOLOURRGB" || len(colour.Arguments) < 4 {
		return geomserver.NoColor, false
	}

	color := geomserver.Color{0, 0, 0, 1}
	for component := 0; component < 3; component++ {
		if color[component], err = colour.Arguments[component+1].AsFloat(); err != nil {
			return geomserver.NoColor, false
		}
	}

	// transparency is only present from IFC4 on
	if len(shading.Arguments) > 1 && !shading.Arguments[1].IsNull() {
		if transparency, err := shading.Arguments[1].AsFloat(); err == nil {
			color[3] = 1 - transparency
		}
	}

	return color, true
}
