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

package message

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/nuclio/geomserver/pkg/geomserver/wire"

	"github.com/google/go-cmp/cmp"
	"github.com/nuclio/errors"
	"github.com/stretchr/testify/suite"
)

type MessageTestSuite struct {
	suite.Suite
}

func (suite *MessageTestSuite) TestRoundTrip() {
	for _, testCase := range []struct {
		name    string
		message Message
	}{
		{name: "hello", message: &Hello{Version: HelloVersion}},
		{name: "emptyHello", message: &Hello{}},
		{name: "ifcModel", message: &IfcModel{Content: []byte("ISO-10303-21;\nDATA;\n#1=IFCWALL('ü');\nENDSEC;")}},
		{name: "emptyIfcModel", message: &IfcModel{Content: []byte{}}},
		{name: "get", message: &Get{}},
		{name: "entity", message: suite.createEntity("")},
		{name: "entityWithMetadata", message: suite.createEntity(`{"TOTAL_SURFACE_AREA":0}`)},
		{name: "emptyEntity", message: &Entity{
			ParentID:     -1,
			Vertices:     []float64{},
			Normals:      []float64{},
			Indices:      []int32{},
			Colors:       []float64{},
			ColorIndices: []int32{},
		}},
		{name: "moreTrue", message: &More{More: true}},
		{name: "moreFalse", message: &More{More: false}},
		{name: "next", message: &Next{}},
		{name: "bye", message: &Bye{}},
		{name: "getLog", message: &GetLog{}},
		{name: "log", message: &Log{Text: "multi\nline ✓ log"}},
		{name: "emptyLog", message: &Log{}},
		{name: "deflection", message: &Deflection{Deflection: 1e-3}},
		{name: "negativeDeflection", message: &Deflection{Deflection: -math.MaxFloat64}},
		{name: "setting", message: &Setting{Key: math.MaxUint32, Value: 0}},
	} {
		suite.Run(testCase.name, func() {
			encoded := Encode(testCase.message)

			// content after the type and length is aligned
			suite.Require().Zero(len(encoded) % wire.Alignment)

			decoded, err := Read(bytes.NewReader(encoded))
			suite.Require().NoError(err)
			suite.Require().Empty(cmp.Diff(testCase.message, decoded))
		})
	}
}

func (suite *MessageTestSuite) TestHelloLayout() {
	encoded := Encode(&Hello{Version: HelloVersion})

	decoder := wire.NewDecoder(bytes.NewReader(encoded))

	messageType, err := decoder.ReadInt32()
	suite.Require().NoError(err)
	suite.Require().Equal(int32(0xff00), messageType)

	contentLength, err := decoder.ReadInt32()
	suite.Require().NoError(err)
	suite.Require().Equal(int32(4+len(HelloVersion)+wire.Padding(len(HelloVersion))), contentLength)

	version, err := decoder.ReadString()
	suite.Require().NoError(err)
	suite.Require().Equal(HelloVersion, version)
}

func (suite *MessageTestSuite) TestMoreLayout() {
	encoded := Encode(&More{More: true})

	// type, content length, int32 flag
	suite.Require().Len(encoded, 12)
	suite.Require().Equal(uint32(TypeMore), wire.ByteOrder.Uint32(encoded[0:4]))
	suite.Require().Equal(uint32(4), wire.ByteOrder.Uint32(encoded[4:8]))
	suite.Require().Equal(uint32(1), wire.ByteOrder.Uint32(encoded[8:12]))
}

func (suite *MessageTestSuite) TestEntityMetadataPadding() {
	entity := suite.createEntity(`{"a":1}`)

	content := EncodeContent(entity)
	suite.Require().Zero(len(content) % wire.Alignment)
	suite.Require().True(bytes.HasSuffix(content, []byte(`{"a":1} `)))
}

func (suite *MessageTestSuite) TestEntityNarrowsNormals() {
	entity := suite.createEntity("")
	entity.Normals = []float64{0.1, 0.2, 0.3}

	decoded, err := DecodeContent(TypeEntity, EncodeContent(entity))
	suite.Require().NoError(err)

	decodedEntity := decoded.(*Entity)
	for index, normal := range entity.Normals {
		suite.Require().Equal(float64(float32(normal)), decodedEntity.Normals[index])
	}
}

func (suite *MessageTestSuite) TestUnknownType() {
	encoder := wire.NewEncoder()
	encoder.PutInt32(0x1234)
	encoder.PutString("ignored")

	reader := bytes.NewReader(encoder.Bytes())
	_, err := Read(reader)
	suite.Require().Error(err)
	suite.Require().Equal(ErrUnknownType, errors.RootCause(err))

	// nothing beyond the type was consumed
	suite.Require().Equal(int64(4), reader.Size()-int64(reader.Len()))
}

func (suite *MessageTestSuite) TestTruncatedFrame() {
	encoded := Encode(&IfcModel{Content: []byte("#1=IFCWALL();")})

	for _, length := range []int{2, 6, 10, len(encoded) - 1} {
		_, err := Read(bytes.NewReader(encoded[:length]))
		suite.Require().Error(err)
		suite.Require().Equal(wire.ErrTruncated, errors.RootCause(err), "length %d", length)
	}
}

func (suite *MessageTestSuite) TestContentShorterThanDeclared() {
	encoder := wire.NewEncoder()
	encoder.PutInt32(int32(TypeSetting))
	encoder.PutBytes([]byte{1, 0, 0, 0})

	_, err := Read(bytes.NewReader(encoder.Bytes()))
	suite.Require().Equal(wire.ErrTruncated, errors.RootCause(err))
}

func (suite *MessageTestSuite) TestModelLengthBeyondContent() {
	content := wire.NewEncoder()
	content.PutInt32(0x7ffffff0)
	content.PutInt32(0)

	encoder := wire.NewEncoder()
	encoder.PutInt32(int32(TypeIfcModel))
	encoder.PutBytes(content.Bytes())

	_, err := Read(bytes.NewReader(encoder.Bytes()))
	suite.Require().Equal(wire.ErrTruncated, errors.RootCause(err))
}

func (suite *MessageTestSuite) TestEndOfStream() {
	_, err := Read(bytes.NewReader(nil))
	suite.Require().Equal(io.EOF, err)
}

func (suite *MessageTestSuite) TestConsecutiveFrames() {
	var stream bytes.Buffer
	writer := bufio.NewWriter(&stream)

	suite.Require().NoError(Write(writer, &Hello{Version: HelloVersion}))
	suite.Require().NoError(Write(writer, &More{More: true}))
	suite.Require().NoError(Write(writer, &Bye{}))

	reader := bufio.NewReader(&stream)
	for _, expectedType := range []Type{TypeHello, TypeMore, TypeBye} {
		decoded, err := Read(reader)
		suite.Require().NoError(err)
		suite.Require().Equal(expectedType, decoded.Type())
	}
}

func (suite *MessageTestSuite) TestTypeNames() {
	for _, messageType := range Types {
		suite.Require().True(messageType.Known())
		suite.Require().NotContains(messageType.String(), "unknown")
	}

	suite.Require().False(Type(0xff0b).Known())
	suite.Require().Equal("unknown(0xff0b)", Type(0xff0b).String())
}

func (suite *MessageTestSuite) createEntity(metadata string) *Entity {
	return &Entity{
		ExpressID:   math.MaxInt32,
		GUID:        "2O2Fr$t4X7Zf8NOew3FLOH",
		Name:        "Wand-Ext-ERDG-1 ✓",
		ElementType: "IfcWallStandardCase",
		ParentID:    -1,
		Transformation: [16]float64{
			1, 0, 0, 5,
			0, 1, 0, -2.5,
			0, 0, 1, 0,
			0, 0, 0, 1,
		},
		RepresentationID: 42,
		Vertices:         []float64{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:          []float64{0, 0, 1, 0, 0, 1, 0, 0, -1},
		Indices:          []int32{0, 1, 2},
		Colors:           []float64{1, 0, 0, 0.5},
		ColorIndices:     []int32{0},
		Metadata:         metadata,
	}
}

func TestMessageTestSuite(t *testing.T) {
	suite.Run(t, new(MessageTestSuite))
}
