//go:build test_unit

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

package ifc

import (
	"testing"

	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/ifc/geometry"
	"github.com/nuclio/geomserver/pkg/ifc/step"

	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

const singleWall = `ISO-10303-21;
HEADER;
FILE_SCHEMA(('IFC2X3'));
ENDSEC;
DATA;
#1=IFCCARTESIANPOINT((0.,0.,0.));
#2=IFCAXIS2PLACEMENT3D(#1,$,$);
#3=IFCLOCALPLACEMENT($,#2);
#4=IFCAXIS2PLACEMENT2D(#1,$);
#5=IFCRECTANGLEPROFILEDEF(.AREA.,$,#4,1.,1.);
#6=IFCDIRECTION((0.,0.,1.));
#7=IFCEXTRUDEDAREASOLID(#5,#2,#6,1.);
#8=IFCSHAPEREPRESENTATION($,'Body','SweptSolid',(#7));
#9=IFCPRODUCTDEFINITIONSHAPE($,$,(#8));
#10=IFCWALL('guid',$,$,$,$,#3,#9,$);
ENDSEC;
END-ISO-10303-21;
`

type FactoryTestSuite struct {
	suite.Suite
	logger  logger.Logger
	factory *ModelFactory
}

func (suite *FactoryTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.factory = NewModelFactory(suite.logger, nil)
}

func (suite *FactoryTestSuite) TestDefaults() {
	kernelOptions, err := suite.factory.resolveKernelOptions(&geomserver.ModelOptions{})
	suite.Require().NoError(err)
	suite.Require().Equal(DefaultDeflection, kernelOptions.Deflection)
	suite.Require().Equal(DefaultMinCircleSegments, kernelOptions.MinCircleSegments)
	suite.Require().Equal(DefaultMaxCircleSegments, kernelOptions.MaxCircleSegments)
	suite.Require().Equal(geomserver.NoColor, kernelOptions.DefaultColor)
	suite.Require().Equal(geometry.AxisCorrection, kernelOptions.Transformation)
}

func (suite *FactoryTestSuite) TestFactoryOptions() {
	factory := NewModelFactory(suite.logger, &FactoryOptions{Deflection: 0.1, MinCircleSegments: 6})

	kernelOptions, err := factory.resolveKernelOptions(nil)
	suite.Require().NoError(err)
	suite.Require().Equal(0.1, kernelOptions.Deflection)
	suite.Require().Equal(6, kernelOptions.MinCircleSegments)
	suite.Require().Equal(DefaultMaxCircleSegments, kernelOptions.MaxCircleSegments)
}

func (suite *FactoryTestSuite) TestSettings() {
	kernelOptions, err := suite.factory.resolveKernelOptions(&geomserver.ModelOptions{
		Deflection: 0.25,
		Settings: []geomserver.Setting{
			{Key: SettingMinCircleSegments, Value: 8},
			{Key: SettingMaxCircleSegments, Value: 16},
			{Key: SettingMaxCircleSegments, Value: 24},
			{Key: 99, Value: 1},
		},
	})
	suite.Require().NoError(err)
	suite.Require().Equal(0.25, kernelOptions.Deflection)
	suite.Require().Equal(8, kernelOptions.MinCircleSegments)
	suite.Require().Equal(24, kernelOptions.MaxCircleSegments)
}

func (suite *FactoryTestSuite) TestInvalidSettings() {
	for _, settings := range [][]geomserver.Setting{
		{{Key: SettingMinCircleSegments, Value: 2}},
		{{Key: SettingMinCircleSegments, Value: 32}, {Key: SettingMaxCircleSegments, Value: 16}},
	} {
		_, err := suite.factory.resolveKernelOptions(&geomserver.ModelOptions{Settings: settings})
		suite.Require().Error(err)

		_, _, err = suite.factory.Create(geomserver.BufferSupplier([]byte(singleWall)),
			&geomserver.ModelOptions{Settings: settings})
		suite.Require().Error(err)
	}
}

func (suite *FactoryTestSuite) TestCreate() {
	model, kernel, err := suite.factory.Create(geomserver.BufferSupplier([]byte(singleWall)), nil)
	suite.Require().NoError(err)

	lineType, err := model.LineType(10)
	suite.Require().NoError(err)
	suite.Require().Equal(step.TypeCode("IfcWall"), lineType)

	flatMesh, err := kernel.FlatMesh(10)
	suite.Require().NoError(err)
	suite.Require().Len(flatMesh.Parts, 1)
	suite.Require().Equal(uint32(7), flatMesh.Parts[0].GeometryID)
}

func (suite *FactoryTestSuite) TestCreateUnparsable() {
	_, _, err := suite.factory.Create(geomserver.BufferSupplier([]byte("not a step file")), nil)
	suite.Require().Error(err)
}

func TestFactoryTestSuite(t *testing.T) {
	suite.Run(t, new(FactoryTestSuite))
}
