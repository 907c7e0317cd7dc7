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

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/nuclio/geomserver/pkg/geomserver/message"
	"github.com/nuclio/geomserver/pkg/geomserverconfig"

	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

const twoWalls = `ISO-10303-21;
HEADER;
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCCARTESIANPOINT((0.,0.,0.));
#2=IFCAXIS2PLACEMENT3D(#1,$,$);
#3=IFCLOCALPLACEMENT($,#2);
#4=IFCAXIS2PLACEMENT2D(#1,$);
#5=IFCRECTANGLEPROFILEDEF(.AREA.,$,#4,4.,0.2);
#6=IFCDIRECTION((0.,0.,1.));
#7=IFCEXTRUDEDAREASOLID(#5,#2,#6,3.);
#8=IFCSHAPEREPRESENTATION($,'Body','SweptSolid',(#7));
#9=IFCPRODUCTDEFINITIONSHAPE($,$,(#8));
#10=IFCWALL('first',$,'First',$,$,#3,#9,$,$);
#11=IFCWALL('second',$,'Second',$,$,#3,#9,$,$);
ENDSEC;
END-ISO-10303-21;
`

type CommandTestSuite struct {
	suite.Suite
	rootCommandeer    *RootCommandeer
	inspectCommandeer *inspectCommandeer
}

func (suite *CommandTestSuite) SetupTest() {
	var err error

	suite.rootCommandeer = NewRootCommandeer()
	suite.rootCommandeer.loggerInstance, err = nucliozap.NewNuclioZapTest("test")
	suite.Require().NoError(err)

	configReader, err := geomserverconfig.NewReader()
	suite.Require().NoError(err)
	suite.rootCommandeer.configuration = configReader.GetDefaultConfiguration()

	suite.inspectCommandeer = newInspectCommandeer(suite.rootCommandeer)
}

func (suite *CommandTestSuite) TestInspect() {
	elements, err := suite.inspectCommandeer.inspect(context.Background(), []byte(twoWalls))
	suite.Require().NoError(err)
	suite.Require().Len(elements, 2)

	suite.Require().Equal(int32(10), elements[0].ExpressID)
	suite.Require().Equal("IfcWall", elements[0].Type)
	suite.Require().Equal("First", elements[0].Name)
	suite.Require().Equal(int32(-1), elements[0].ParentID)
	suite.Require().Equal(12, elements[0].Triangles)

	// unstyled parts carry no color
	suite.Require().Equal(0, elements[0].Colors)
	suite.Require().Contains(elements[0].Metadata, "TOTAL_SHAPE_VOLUME")
	suite.Require().Equal(int32(11), elements[1].ExpressID)
}

func (suite *CommandTestSuite) TestInspectLimit() {
	suite.inspectCommandeer.limit = 1

	elements, err := suite.inspectCommandeer.inspect(context.Background(), []byte(twoWalls))
	suite.Require().NoError(err)
	suite.Require().Len(elements, 1)
}

func (suite *CommandTestSuite) TestInspectUnparsableModel() {
	_, err := suite.inspectCommandeer.inspect(context.Background(), []byte("DATA;\n#1=IFCWALL(@);\nENDSEC;"))
	suite.Require().Error(err)
}

func (suite *CommandTestSuite) TestRenderJSON() {
	suite.inspectCommandeer.output = "json"

	output := bytes.Buffer{}
	err := suite.inspectCommandeer.render(&output, []inspectedElement{{ExpressID: 10, Type: "IfcWall", GUID: "first"}})
	suite.Require().NoError(err)

	var rendered []map[string]interface{}
	suite.Require().NoError(json.Unmarshal(output.Bytes(), &rendered))
	suite.Require().Equal("IfcWall", rendered[0]["type"])
	suite.Require().Equal(10.0, rendered[0]["expressId"])
}

func (suite *CommandTestSuite) TestVersion() {
	output := bytes.Buffer{}

	versionCommand := newVersionCommandeer(suite.rootCommandeer).cmd
	versionCommand.SetOut(&output)
	versionCommand.SetArgs([]string{"-o", "json"})
	suite.Require().NoError(versionCommand.Execute())

	var rendered map[string]interface{}
	suite.Require().NoError(json.Unmarshal(output.Bytes(), &rendered))
	suite.Require().Equal(message.HelloVersion, rendered["protocol"])
	suite.Require().NotNil(rendered["build"])
}

func (suite *CommandTestSuite) TestCommandTree() {
	for _, name := range []string{"serve", "inspect", "version"} {
		command, _, err := suite.rootCommandeer.GetCmd().Find([]string{name})
		suite.Require().NoError(err)
		suite.Require().Equal(name, command.Name())
	}

	suite.Require().NotNil(suite.rootCommandeer.GetCmd().RunE)
}

func TestCommandTestSuite(t *testing.T) {
	suite.Run(t, new(CommandTestSuite))
}
