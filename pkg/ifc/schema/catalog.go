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

// Package schema maps IFC type codes to their names and categories
package schema

import (
	"fmt"
	"sort"

	"github.com/nuclio/geomserver/pkg/ifc/step"
)

// IfcElement and its subtypes, across IFC2X3 and IFC4
var elementTypeNames = []string{
	"IfcElement",
	"IfcBuildingElement",
	"IfcBuiltElement",
	"IfcBeam",
	"IfcBeamStandardCase",
	"IfcBearing",
	"IfcBuildingElementPart",
	"IfcBuildingElementProxy",
	"IfcChimney",
	"IfcColumn",
	"IfcColumnStandardCase",
	"IfcCovering",
	"IfcCurtainWall",
	"IfcDeepFoundation",
	"IfcDoor",
	"IfcDoorStandardCase",
	"IfcFooting",
	"IfcMember",
	"IfcMemberStandardCase",
	"IfcPile",
	"IfcPlate",
	"IfcPlateStandardCase",
	"IfcRailing",
	"IfcRamp",
	"IfcRampFlight",
	"IfcRoof",
	"IfcShadingDevice",
	"IfcSlab",
	"IfcSlabElementedCase",
	"IfcSlabStandardCase",
	"IfcStair",
	"IfcStairFlight",
	"IfcWall",
	"IfcWallElementedCase",
	"IfcWallStandardCase",
	"IfcWindow",
	"IfcWindowStandardCase",
	"IfcCivilElement",
	"IfcDistributionElement",
	"IfcDistributionControlElement",
	"IfcDistributionFlowElement",
	"IfcDistributionChamberElement",
	"IfcEnergyConversionDevice",
	"IfcFlowController",
	"IfcFlowFitting",
	"IfcFlowMovingDevice",
	"IfcFlowSegment",
	"IfcFlowStorageDevice",
	"IfcFlowTerminal",
	"IfcFlowTreatmentDevice",
	"IfcAirTerminal",
	"IfcDuctSegment",
	"IfcDuctFitting",
	"IfcPipeSegment",
	"IfcPipeFitting",
	"IfcCableSegment",
	"IfcCableCarrierSegment",
	"IfcLightFixture",
	"IfcSanitaryTerminal",
	"IfcElectricAppliance",
	"IfcOutlet",
	"IfcSwitchingDevice",
	"IfcValve",
	"IfcPump",
	"IfcFan",
	"IfcTank",
	"IfcBoiler",
	"IfcChiller",
	"IfcSensor",
	"IfcActuator",
	"IfcAlarm",
	"IfcController",
	"IfcElementAssembly",
	"IfcElementComponent",
	"IfcBuildingElementComponent",
	"IfcDiscreteAccessory",
	"IfcFastener",
	"IfcMechanicalFastener",
	"IfcReinforcingBar",
	"IfcReinforcingMesh",
	"IfcTendon",
	"IfcTendonAnchor",
	"IfcVibrationIsolator",
	"IfcEquipmentElement",
	"IfcFeatureElement",
	"IfcFeatureElementAddition",
	"IfcFeatureElementSubtraction",
	"IfcOpeningElement",
	"IfcOpeningStandardCase",
	"IfcVoidingFeature",
	"IfcProjectionElement",
	"IfcSurfaceFeature",
	"IfcFurnishingElement",
	"IfcFurniture",
	"IfcSystemFurnitureElement",
	"IfcGeographicElement",
	"IfcTransportElement",
	"IfcVirtualElement",
}

// Catalog holds the known type names, indexed by type code
type Catalog struct {
	names    map[uint32]string
	elements map[uint32]bool
}

// NewCatalog creates a catalog of the element types. additionalTypeNames are known by name
// but are not elements
func NewCatalog(additionalTypeNames ...string) *Catalog {
	catalog := Catalog{
		names:    map[uint32]string{},
		elements: map[uint32]bool{},
	}

	for _, typeName := range elementTypeNames {
		typeCode := step.TypeCode(typeName)

		catalog.names[typeCode] = typeName
		catalog.elements[typeCode] = true
	}

	for _, typeName := range additionalTypeNames {
		catalog.names[step.TypeCode(typeName)] = typeName
	}

	return &catalog
}

// IsElement returns whether a type is IfcElement or one of its subtypes
func (c *Catalog) IsElement(typeCode uint32) bool {
	return c.elements[typeCode]
}

// TypeName returns the mixed case name of a type
func (c *Catalog) TypeName(typeCode uint32) string {
	if typeName, found := c.names[typeCode]; found {
		return typeName
	}

	return fmt.Sprintf("Unknown(%d)", typeCode)
}

// ElementTypeNames returns the names of all element types, sorted
func (c *Catalog) ElementTypeNames() []string {
	typeNames := make([]string, 0, len(c.elements))
	for typeCode := range c.elements {
		typeNames = append(typeNames, c.names[typeCode])
	}

	sort.Strings(typeNames)
	return typeNames
}
