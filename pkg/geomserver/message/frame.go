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
	"io"

	"github.com/nuclio/geomserver/pkg/geomserver/wire"

	"github.com/nuclio/errors"
)

// flusher is implemented by buffered writers such as bufio.Writer
type flusher interface {
	Flush() error
}

// Encode returns a complete frame: the type, then the content as a padded string
func Encode(message Message) []byte {
	encoder := wire.NewEncoder()
	encoder.PutInt32(int32(message.Type()))
	encoder.PutBytes(EncodeContent(message))

	return encoder.Bytes()
}

// Write writes a complete frame with a single write and flushes the writer if it is buffered
func Write(writer io.Writer, message Message) error {
	if _, err := writer.Write(Encode(message)); err != nil {
		return errors.Wrapf(err, "Failed to write %s message", message.Type())
	}

	if flushingWriter, isFlusher := writer.(flusher); isFlusher {
		if err := flushingWriter.Flush(); err != nil {
			return errors.Wrapf(err, "Failed to flush %s message", message.Type())
		}
	}

	return nil
}

// Read reads one frame and decodes it. A stream that ends between frames yields io.EOF,
// one that ends inside a frame yields wire.ErrTruncated. Unknown types are rejected
// before their content is consumed
func Read(reader io.Reader) (Message, error) {
	decoder := wire.NewDecoder(reader)

	rawType, err := decoder.ReadInt32()
	if err != nil {
		return nil, err
	}

	messageType := Type(rawType)
	if !messageType.Known() {
		return nil, errors.Wrapf(ErrUnknownType, "Got type 0x%x", rawType)
	}

	content, err := decoder.ReadBytes()
	if err != nil {
		return nil, errors.Wrapf(wire.Truncated(err), "Failed to read %s content", messageType)
	}

	return DecodeContent(messageType, content)
}
