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

package client

import (
	"bytes"
	"testing"

	"github.com/nuclio/geomserver/pkg/geomserver/message"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	logger logger.Logger
}

func (suite *ClientTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
}

func (suite *ClientTestSuite) TestParseVersion() {
	version, err := ParseVersion(message.HelloVersion)
	suite.Require().NoError(err)
	suite.Require().Equal("0.0.54-0", version.String())

	_, err = ParseVersion("0.0.54-0")
	suite.Require().Error(err)

	_, err = ParseVersion("IFCJS-latest")
	suite.Require().Error(err)
}

func (suite *ClientTestSuite) TestHandshake() {
	geomClient := suite.newClient(&message.Hello{Version: message.HelloVersion})

	version, err := geomClient.Handshake()
	suite.Require().NoError(err)
	suite.Require().Equal(version, geomClient.ServerVersion())
}

func (suite *ClientTestSuite) TestHandshakeOldServer() {
	geomClient := suite.newClient(&message.Hello{Version: "IFCJS-0.0.53-0"})

	_, err := geomClient.Handshake()
	suite.Require().Error(err)
	suite.Require().Nil(geomClient.ServerVersion())
}

func (suite *ClientTestSuite) TestUnexpectedReply() {
	geomClient := suite.newClient(&message.Log{Text: "oops"})

	_, err := geomClient.Next()
	suite.Require().Equal(ErrUnexpectedMessage, errors.RootCause(err))
}

func (suite *ClientTestSuite) TestEntities() {
	requests := bytes.Buffer{}
	replies := bytes.Buffer{}

	for _, reply := range []message.Message{
		&message.More{More: true},
		&message.Entity{ExpressID: 1},
		&message.More{More: true},
		&message.Entity{ExpressID: 2},
		&message.More{More: false},
	} {
		replies.Write(message.Encode(reply))
	}

	geomClient := NewClient(suite.logger, &replies, &requests)

	var expressIDs []int32
	err := geomClient.Entities([]byte("model"), func(entity *message.Entity) error {
		expressIDs = append(expressIDs, entity.ExpressID)
		return nil
	})
	suite.Require().NoError(err)
	suite.Require().Equal([]int32{1, 2}, expressIDs)

	var sent []message.Message
	for requests.Len() > 0 {
		request, err := message.Read(&requests)
		suite.Require().NoError(err)
		sent = append(sent, request)
	}

	suite.Require().Equal([]message.Message{
		&message.IfcModel{Content: []byte("model")},
		&message.Get{},
		&message.Next{},
		&message.Get{},
		&message.Next{},
	}, sent)
}

func (suite *ClientTestSuite) newClient(replies ...message.Message) *Client {
	replyBuffer := bytes.Buffer{}
	for _, reply := range replies {
		replyBuffer.Write(message.Encode(reply))
	}

	return NewClient(suite.logger, &replyBuffer, &bytes.Buffer{})
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
