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

package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/nuclio/errors"
)

// Decoder reads values from a stream. A stream that ends before the first byte of a
// value yields io.EOF, one that ends inside a value yields ErrTruncated
type Decoder struct {
	reader  io.Reader
	scratch [8]byte
}

// implemented by bytes.Reader and bytes.Buffer
type bufferedReader interface {
	Len() int
}

func NewDecoder(reader io.Reader) *Decoder {
	return &Decoder{
		reader: reader,
	}
}

func (d *Decoder) ReadInt32() (int32, error) {
	value, err := d.ReadUint32()
	return int32(value), err
}

func (d *Decoder) ReadUint32() (uint32, error) {
	if err := d.readFull(d.scratch[:4]); err != nil {
		return 0, err
	}

	return ByteOrder.Uint32(d.scratch[:4]), nil
}

func (d *Decoder) ReadFloat64() (float64, error) {
	if err := d.readFull(d.scratch[:8]); err != nil {
		return 0, err
	}

	return math.Float64frombits(ByteOrder.Uint64(d.scratch[:8])), nil
}

// ReadBool reads an int32, any non zero value is true
func (d *Decoder) ReadBool() (bool, error) {
	value, err := d.ReadInt32()
	return value != 0, err
}

func (d *Decoder) ReadString() (string, error) {
	value, err := d.ReadBytes()
	if err != nil {
		return "", err
	}

	return string(value), nil
}

// ReadBytes reads a length prefixed byte string and consumes its padding
func (d *Decoder) ReadBytes() ([]byte, error) {
	length, err := d.ReadInt32()
	if err != nil {
		return nil, err
	}

	if length < 0 {
		return nil, errors.Wrapf(ErrInvalidLength, "Got length %d", length)
	}

	paddedLength := int(length) + Padding(int(length))

	// in-memory content can be checked before allocating
	if buffered, isBuffered := d.reader.(bufferedReader); isBuffered && paddedLength > buffered.Len() {
		return nil, errors.Wrapf(ErrTruncated, "Got length %d with %d bytes left", length, buffered.Len())
	}

	value := make([]byte, paddedLength)
	if err := d.readFull(value); err != nil {
		return nil, Truncated(err)
	}

	return value[:length], nil
}

// ReadRemaining reads until the end of the stream
func (d *Decoder) ReadRemaining() ([]byte, error) {
	remaining, err := io.ReadAll(d.reader)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read remaining bytes")
	}

	return remaining, nil
}

func (d *Decoder) readFull(destination []byte) error {
	_, err := io.ReadFull(d.reader, destination)
	switch err {
	case nil, io.EOF:
		return err
	case io.ErrUnexpectedEOF:
		return ErrTruncated
	default:
		return errors.Wrap(err, "Failed to read from stream")
	}
}

// ReadArray reads a string holding T elements
func ReadArray[T Number](d *Decoder) ([]T, error) {
	encoded, err := d.ReadBytes()
	if err != nil {
		return nil, err
	}

	elementSize := sizeOf[T]()
	if len(encoded)%elementSize != 0 {
		return nil, errors.Wrapf(ErrInvalidLength,
			"Array of %d bytes is not a multiple of element size %d",
			len(encoded),
			elementSize)
	}

	values := make([]T, len(encoded)/elementSize)
	if err := binary.Read(bytes.NewReader(encoded), ByteOrder, values); err != nil {
		return nil, errors.Wrap(err, "Failed to decode array")
	}

	return values, nil
}

// Truncated converts a clean end of stream into ErrTruncated, for reads that have
// already consumed part of a value
func Truncated(err error) error {
	if err == io.EOF {
		return ErrTruncated
	}

	return err
}
