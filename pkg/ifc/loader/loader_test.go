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

package loader

import (
	"testing"

	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/ifc/step"

	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

const testModel = `ISO-10303-21;
HEADER;
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCCARTESIANPOINT((1.,2.,3.));
#2=IFCAXIS2PLACEMENT3D(#1,$,$);
#3=IFCLOCALPLACEMENT($,#2);
#4=IFCBUILDINGSTOREY('storey',$,'Level \X2\00DC\X0\',$,$,#3,$,$,.ELEMENT.,0.);
#11=IFCWALL('wall',$,$,$,$,#3,$,$,$);
#12=IFCBUILDINGELEMENTPART('part',$,$,$,$,#3,$,$,$);
#13=IFCSLAB('slab',$,$,$,$,#3,$,$,$);
#20=IFCRELCONTAINEDINSPATIALSTRUCTURE('contained',$,$,$,(#11,#12),#4);
#21=IFCRELAGGREGATES('aggregates',$,$,$,#11,(#12));
ENDSEC;
END-ISO-10303-21;
`

type LoaderTestSuite struct {
	suite.Suite
	logger logger.Logger
	model  *Model
}

func (suite *LoaderTestSuite) SetupTest() {
	var err error

	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.model, err = Load(suite.logger, geomserver.BufferSupplier([]byte(testModel)))
	suite.Require().NoError(err)
}

func (suite *LoaderTestSuite) TestParents() {
	parentID, found := suite.model.Parent(11)
	suite.Require().True(found)
	suite.Require().Equal(uint32(4), parentID)

	// aggregation wins over containment
	parentID, found = suite.model.Parent(12)
	suite.Require().True(found)
	suite.Require().Equal(uint32(11), parentID)

	_, found = suite.model.Parent(13)
	suite.Require().False(found)
}

func (suite *LoaderTestSuite) TestArguments() {
	lineType, err := suite.model.LineType(4)
	suite.Require().NoError(err)
	suite.Require().Equal(step.TypeCode("IfcBuildingStorey"), lineType)

	for _, testCase := range []struct {
		offset       int
		expectedKind geomserver.TokenKind
	}{
		{offset: 0, expectedKind: geomserver.TokenString},
		{offset: 1, expectedKind: geomserver.TokenNull},
		{offset: 5, expectedKind: geomserver.TokenRef},
		{offset: 8, expectedKind: geomserver.TokenEnum},
		{offset: 9, expectedKind: geomserver.TokenReal},
	} {
		kind, err := suite.model.ArgumentKind(4, testCase.offset)
		suite.Require().NoError(err)
		suite.Require().Equal(testCase.expectedKind, kind, "offset %d", testCase.offset)
	}

	rawName, err := suite.model.StringArgument(4, 2)
	suite.Require().NoError(err)
	suite.Require().Equal(`Level \X2\00DC\X0\`, rawName)

	name, err := suite.model.DecodedStringArgument(4, 2)
	suite.Require().NoError(err)
	suite.Require().Equal("Level Ü", name)

	placementID, err := suite.model.RefArgument(4, 5)
	suite.Require().NoError(err)
	suite.Require().Equal(uint32(3), placementID)

	_, err = suite.model.RefArgument(4, 0)
	suite.Require().Error(err)

	_, err = suite.model.LineType(999)
	suite.Require().Error(err)
}

func (suite *LoaderTestSuite) TestPlacement() {
	placement, err := suite.model.Placement(3)
	suite.Require().NoError(err)
	suite.Require().Equal(1.0, placement.At(0, 3))
	suite.Require().Equal(2.0, placement.At(1, 3))
	suite.Require().Equal(3.0, placement.At(2, 3))
}

func (suite *LoaderTestSuite) TestExpressIDs() {
	suite.Require().Equal([]uint32{1, 2, 3, 4, 11, 12, 13, 20, 21}, suite.model.ExpressIDs())
	suite.Require().NotNil(suite.model.File())
	suite.Require().NotNil(suite.model.Placements())
}

func TestLoaderTestSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}
