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

package session

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/geomserver/client"
	"github.com/nuclio/geomserver/pkg/geomserver/geomservertest"
	"github.com/nuclio/geomserver/pkg/geomserver/message"
	"github.com/nuclio/geomserver/pkg/geomserver/outputguard"
	"github.com/nuclio/geomserver/pkg/geomserver/serializer"
	"github.com/nuclio/geomserver/pkg/geomserver/wire"
	"github.com/nuclio/geomserver/pkg/ifc"
	"github.com/nuclio/geomserver/pkg/ifc/schema"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

const coloredWall = `ISO-10303-21;
HEADER;
FILE_SCHEMA(('IFC4'));
ENDSEC;
DATA;
#1=IFCCARTESIANPOINT((0.,0.,0.));
#2=IFCAXIS2PLACEMENT3D(#1,$,$);
#3=IFCLOCALPLACEMENT($,#2);
#4=IFCBUILDINGSTOREY('storey-guid',$,'Level 1',$,$,#3,$,$,.ELEMENT.,0.);
#5=IFCAXIS2PLACEMENT2D(#1,$);
#6=IFCRECTANGLEPROFILEDEF(.AREA.,$,#5,4.,0.2);
#7=IFCDIRECTION((0.,0.,1.));
#8=IFCEXTRUDEDAREASOLID(#6,#2,#7,3.);
#9=IFCSHAPEREPRESENTATION($,'Body','SweptSolid',(#8));
#10=IFCPRODUCTDEFINITIONSHAPE($,$,(#9));
#11=IFCWALL('wall-guid',$,'Wall \X2\00C4\X0\',$,$,#3,#10,$,$);
#12=IFCCOLOURRGB($,1.,0.,0.);
#13=IFCSURFACESTYLERENDERING(#12,$,$,$,$,$,$,$,.FLAT.);
#14=IFCSURFACESTYLE($,.BOTH.,(#13));
#15=IFCSTYLEDITEM(#8,(#14),$);
#16=IFCRELCONTAINEDINSPATIALSTRUCTURE('rel-guid',$,$,$,(#11),#4);
#17=IFCDOOR('door-guid',$,'Door',$,$,#3,$,$,$);
ENDSEC;
END-ISO-10303-21;
`

type SessionTestSuite struct {
	suite.Suite
	logger  logger.Logger
	model   *geomservertest.Model
	kernel  *geomservertest.Kernel
	factory *geomservertest.ModelFactory
	catalog *schema.Catalog
}

func (suite *SessionTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.model = geomservertest.NewModel()
	suite.kernel = geomservertest.NewKernel()
	suite.factory = geomservertest.NewModelFactory(suite.model, suite.kernel)
	suite.catalog = schema.NewCatalog()
}

func (suite *SessionTestSuite) TestHelloAndBye() {
	replies, session, err := suite.run(&message.Bye{})
	suite.Require().NoError(err)
	suite.Require().Equal(0, ExitCode(err))
	suite.Require().Equal(Terminated, session.GetStatus())

	suite.Require().Equal([]message.Message{
		&message.Hello{Version: message.HelloVersion},
		&message.Bye{},
	}, replies)
}

func (suite *SessionTestSuite) TestIteration() {
	suite.addElement(1, true)
	suite.addElement(2, false)
	suite.addElement(3, true)

	replies, session, err := suite.run(
		&message.IfcModel{Content: []byte("model")},
		&message.Get{},
		&message.Next{},
		&message.Get{},
		&message.Next{},
		&message.Next{},
		&message.Bye{})
	suite.Require().NoError(err)

	suite.Require().Len(replies, 8)
	suite.Require().Equal(&message.More{More: true}, replies[1])
	suite.Require().Equal(int32(1), replies[2].(*message.Entity).ExpressID)
	suite.Require().Equal(&message.More{More: true}, replies[3])
	suite.Require().Equal(int32(3), replies[4].(*message.Entity).ExpressID)
	suite.Require().Equal(&message.More{More: false}, replies[5])

	// the iterator is gone, asking again keeps answering false
	suite.Require().Equal(&message.More{More: false}, replies[6])
	suite.Require().Equal(&message.Bye{}, replies[7])

	statistics := session.GetStatistics().Snapshot()
	suite.Require().Equal(uint64(7), statistics.MessagesReceivedTotal)
	suite.Require().Equal(uint64(1), statistics.ModelsLoadedTotal)
	suite.Require().Equal(uint64(2), statistics.EntitiesSentTotal)
	suite.Require().Equal(uint64(1), statistics.ElementsSkippedTotal)
	suite.Require().Equal(uint64(0), statistics.FaultsTotal)

	// the kernel is cleared after every entity
	suite.Require().Equal(2, suite.kernel.ClearCount)
	suite.Require().Equal([][]byte{[]byte("model")}, suite.factory.Contents)
}

func (suite *SessionTestSuite) TestEmptyModel() {
	replies, _, err := suite.run(
		&message.IfcModel{Content: []byte("empty")},
		&message.Get{})
	suite.Require().Equal(ErrProtocolFault, errors.RootCause(err))
	suite.Require().Equal(1, ExitCode(err))
	suite.Require().Equal(&message.More{More: false}, replies[1])
}

func (suite *SessionTestSuite) TestSettingsAreForwarded() {
	suite.addElement(1, true)

	_, _, err := suite.run(
		&message.Deflection{Deflection: 0.5},
		&message.Setting{Key: 1, Value: 16},
		&message.Setting{Key: 2, Value: 32},
		&message.IfcModel{Content: []byte("model")},
		&message.Bye{})
	suite.Require().NoError(err)

	suite.Require().Equal([]geomserver.ModelOptions{
		{
			Deflection: 0.5,
			Settings:   []geomserver.Setting{{Key: 1, Value: 16}, {Key: 2, Value: 32}},
		},
	}, suite.factory.Options)
}

func (suite *SessionTestSuite) TestGetLog() {
	replies, _, err := suite.run(&message.GetLog{}, &message.Bye{})
	suite.Require().NoError(err)
	suite.Require().Equal(&message.Log{Text: ""}, replies[1])
}

func (suite *SessionTestSuite) TestFaults() {
	for _, testCase := range []struct {
		name          string
		messages      []message.Message
		factoryErr    error
		expectedCause error
	}{
		{
			name:          "getWithoutModel",
			messages:      []message.Message{&message.Get{}},
			expectedCause: ErrProtocolFault,
		},
		{
			name:          "nextWithoutModel",
			messages:      []message.Message{&message.Next{}},
			expectedCause: ErrProtocolFault,
		},
		{
			name: "settingAfterModel",
			messages: []message.Message{
				&message.IfcModel{Content: []byte("model")},
				&message.Setting{Key: 1, Value: 1},
			},
			expectedCause: ErrProtocolFault,
		},
		{
			name: "deflectionAfterModel",
			messages: []message.Message{
				&message.IfcModel{Content: []byte("model")},
				&message.Deflection{Deflection: 0.1},
			},
			expectedCause: ErrProtocolFault,
		},
		{
			name:          "serverMessageFromClient",
			messages:      []message.Message{&message.More{More: true}},
			expectedCause: ErrProtocolFault,
		},
		{
			name:          "unparsableModel",
			messages:      []message.Message{&message.IfcModel{Content: []byte("garbage")}},
			factoryErr:    errors.New("Failed to parse"),
			expectedCause: ErrProtocolFault,
		},
		{
			name:          "inputClosed",
			messages:      []message.Message{&message.GetLog{}},
			expectedCause: ErrFraming,
		},
	} {
		suite.SetupTest()
		suite.factory.Err = testCase.factoryErr

		_, session, err := suite.run(testCase.messages...)
		suite.Require().Equal(testCase.expectedCause, errors.RootCause(err), testCase.name)
		suite.Require().Equal(1, ExitCode(err), testCase.name)
		suite.Require().Equal(Terminated, session.GetStatus(), testCase.name)
		suite.Require().Equal(uint64(1), session.GetStatistics().Snapshot().FaultsTotal, testCase.name)
	}
}

func (suite *SessionTestSuite) TestUnknownMessage() {
	input := bytes.Buffer{}
	encoder := wire.NewEncoder()
	encoder.PutInt32(0x1234)
	encoder.PutBytes(nil)
	input.Write(encoder.Bytes())

	_, _, err := suite.runInput(&input)
	suite.Require().Equal(message.ErrUnknownType, errors.RootCause(err))
	suite.Require().Equal(1, ExitCode(err))
}

func (suite *SessionTestSuite) TestTruncatedMessage() {
	frame := message.Encode(&message.IfcModel{Content: []byte("model")})

	_, _, err := suite.runInput(bytes.NewBuffer(frame[:len(frame)-2]))
	suite.Require().Equal(wire.ErrTruncated, errors.RootCause(err))
}

func (suite *SessionTestSuite) TestEndToEnd() {
	requestReader, requestWriter := io.Pipe()
	replyReader, replyWriter := io.Pipe()

	guard := outputguard.NewGuard(suite.logger, replyWriter, 0)
	session, err := NewSession(suite.logger,
		requestReader,
		guard,
		ifc.NewModelFactory(suite.logger, nil),
		suite.catalog,
		&Configuration{Extension: serializer.ExtensionKindQuantities})
	suite.Require().NoError(err)

	sessionErr := make(chan error, 1)
	go func() {
		sessionErr <- session.Run(context.Background())
		replyWriter.Close() // nolint: errcheck
	}()

	geomClient := client.NewClient(suite.logger, replyReader, requestWriter)

	version, err := geomClient.Handshake()
	suite.Require().NoError(err)
	suite.Require().Equal(int64(54), version.Patch)

	more, err := geomClient.LoadModel([]byte(coloredWall))
	suite.Require().NoError(err)
	suite.Require().True(more)

	entity, err := geomClient.Get()
	suite.Require().NoError(err)
	suite.Require().Equal(int32(11), entity.ExpressID)
	suite.Require().Equal("wall-guid", entity.GUID)
	suite.Require().Equal("Wall Ä", entity.Name)
	suite.Require().Equal("IfcWall", entity.ElementType)
	suite.Require().Equal(int32(4), entity.ParentID)
	suite.Require().Equal(int32(10), entity.RepresentationID)
	suite.Require().Equal([]float64{1, 0, 0, 1}, entity.Colors)
	suite.Require().Len(entity.ColorIndices, entity.TriangleCount())
	suite.Require().Len(entity.Indices, 12*3)
	suite.Require().Len(entity.Vertices, len(entity.Normals))

	for _, colorIndex := range entity.ColorIndices {
		suite.Require().Equal(int32(0), colorIndex)
	}

	suite.Require().Contains(entity.Metadata, `"TOTAL_SURFACE_AREA":0`)

	// geometry is expressed in the wall's frame, with the axis correction applied
	for vertex := 0; vertex < len(entity.Vertices); vertex += 3 {
		position := mgl64.Vec3{entity.Vertices[vertex], entity.Vertices[vertex+1], entity.Vertices[vertex+2]}
		suite.Require().InDelta(2, abs(position.X()), 1e-6)
		suite.Require().InDelta(0.1, abs(position.Z()), 1e-6)
		suite.Require().True(position.Y() < 1e-6 && position.Y() > -3-1e-6)
	}

	more, err = geomClient.Next()
	suite.Require().NoError(err)
	suite.Require().False(more)

	log, err := geomClient.GetLog()
	suite.Require().NoError(err)
	suite.Require().Empty(log)

	suite.Require().NoError(geomClient.Bye())
	suite.Require().NoError(<-sessionErr)

	statistics := session.GetStatistics().Snapshot()
	suite.Require().Equal(uint64(1), statistics.EntitiesSentTotal)
	suite.Require().Equal(uint64(0), statistics.ElementsSkippedTotal)
}

func (suite *SessionTestSuite) addElement(expressID uint32, withGeometry bool) {
	suite.model.AddElement(expressID, "IfcWall", "guid", "", 0, 100+expressID)

	if withGeometry {
		suite.kernel.AddPart(expressID, expressID, mgl64.Ident4(), geomserver.NoColor, geomservertest.Triangle())
	}
}

func (suite *SessionTestSuite) run(messages ...message.Message) ([]message.Message, *Session, error) {
	input := bytes.Buffer{}
	for _, requestMessage := range messages {
		input.Write(message.Encode(requestMessage))
	}

	return suite.runInput(&input)
}

func (suite *SessionTestSuite) runInput(input io.Reader) ([]message.Message, *Session, error) {
	output := bytes.Buffer{}

	session, err := NewSession(suite.logger,
		input,
		outputguard.NewGuard(suite.logger, &output, 0),
		suite.factory,
		suite.catalog,
		&Configuration{ID: "test", Extension: serializer.ExtensionKindNone})
	suite.Require().NoError(err)

	runErr := session.Run(context.Background())

	var replies []message.Message
	for {
		reply, err := message.Read(&output)
		if err == io.EOF {
			break
		}

		suite.Require().NoError(err)
		replies = append(replies, reply)
	}

	suite.Require().Equal(&message.Hello{Version: message.HelloVersion}, replies[0])

	return replies, session, runErr
}

func abs(value float64) float64 {
	if value < 0 {
		return -value
	}

	return value
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
