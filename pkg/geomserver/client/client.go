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

// Package client drives a geometry server from the parent's side
package client

import (
	"bufio"
	"io"
	"strings"

	"github.com/nuclio/geomserver/pkg/geomserver/message"

	"github.com/coreos/go-semver/semver"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

const versionPrefix = "IFCJS-"

// ErrUnexpectedMessage is returned when the server answers with the wrong message
var ErrUnexpectedMessage = errors.New("Unexpected message")

// minimumServerVersion is the oldest protocol the client speaks
var minimumServerVersion = semver.New("0.0.54-0")

type Client struct {
	logger        logger.Logger
	reader        *bufio.Reader
	writer        io.Writer
	serverVersion *semver.Version
}

// NewClient creates a client reading the server's output from reader and writing requests
// to writer
func NewClient(parentLogger logger.Logger, reader io.Reader, writer io.Writer) *Client {
	return &Client{
		logger: parentLogger.GetChild("client"),
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Handshake reads the server's greeting and validates its version
func (c *Client) Handshake() (*semver.Version, error) {
	hello, err := expect[*message.Hello](c)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read greeting")
	}

	version, err := ParseVersion(hello.Version)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse server version")
	}

	if version.LessThan(*minimumServerVersion) {
		return nil, errors.Errorf("Server version %s is older than %s", version, minimumServerVersion)
	}

	c.serverVersion = version

	c.logger.DebugWith("Connected to server", "version", version.String())

	return version, nil
}

// SetDeflection sets the tessellation tolerance of the next model. The server does not reply
func (c *Client) SetDeflection(deflection float64) error {
	return message.Write(c.writer, &message.Deflection{Deflection: deflection})
}

// SetSetting sets a setting of the next model. The server does not reply
func (c *Client) SetSetting(key uint32, value uint32) error {
	return message.Write(c.writer, &message.Setting{Key: key, Value: value})
}

// LoadModel uploads a model and returns whether it has an element with geometry
func (c *Client) LoadModel(content []byte) (bool, error) {
	if err := message.Write(c.writer, &message.IfcModel{Content: content}); err != nil {
		return false, err
	}

	more, err := expect[*message.More](c)
	if err != nil {
		return false, errors.Wrap(err, "Failed to load model")
	}

	return more.More, nil
}

// Get returns the current element
func (c *Client) Get() (*message.Entity, error) {
	if err := message.Write(c.writer, &message.Get{}); err != nil {
		return nil, err
	}

	return expect[*message.Entity](c)
}

// Next advances to the next element and returns whether there is one
func (c *Client) Next() (bool, error) {
	if err := message.Write(c.writer, &message.Next{}); err != nil {
		return false, err
	}

	more, err := expect[*message.More](c)
	if err != nil {
		return false, err
	}

	return more.More, nil
}

// GetLog returns the server's log text
func (c *Client) GetLog() (string, error) {
	if err := message.Write(c.writer, &message.GetLog{}); err != nil {
		return "", err
	}

	log, err := expect[*message.Log](c)
	if err != nil {
		return "", err
	}

	return log.Text, nil
}

// Bye ends the session
func (c *Client) Bye() error {
	if err := message.Write(c.writer, &message.Bye{}); err != nil {
		return err
	}

	_, err := expect[*message.Bye](c)

	return err
}

// Entities uploads a model and calls handler for every element, in order
func (c *Client) Entities(content []byte, handler func(*message.Entity) error) error {
	more, err := c.LoadModel(content)
	if err != nil {
		return err
	}

	for more {
		entity, err := c.Get()
		if err != nil {
			return errors.Wrap(err, "Failed to get entity")
		}

		if err := handler(entity); err != nil {
			return err
		}

		if more, err = c.Next(); err != nil {
			return errors.Wrap(err, "Failed to advance")
		}
	}

	return nil
}

// ServerVersion returns the version read during the handshake
func (c *Client) ServerVersion() *semver.Version {
	return c.serverVersion
}

// ParseVersion parses a greeting such as IFCJS-0.0.54-0
func ParseVersion(greeting string) (*semver.Version, error) {
	if !strings.HasPrefix(greeting, versionPrefix) {
		return nil, errors.Errorf("Unexpected greeting: %s", greeting)
	}

	return semver.NewVersion(strings.TrimPrefix(greeting, versionPrefix))
}

func expect[T message.Message](c *Client) (T, error) {
	var empty T

	incomingMessage, err := message.Read(c.reader)
	if err != nil {
		return empty, errors.Wrap(err, "Failed to read reply")
	}

	typedMessage, ok := incomingMessage.(T)
	if !ok {
		return empty, errors.Wrapf(ErrUnexpectedMessage, "Got %s", incomingMessage.Type())
	}

	return typedMessage, nil
}
