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
	"math"
)

// Encoder accumulates encoded values in memory. Writing to memory cannot fail, so
// none of the Put functions return an error
type Encoder struct {
	buffer  bytes.Buffer
	scratch [8]byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) PutInt32(value int32) {
	e.PutUint32(uint32(value))
}

func (e *Encoder) PutUint32(value uint32) {
	ByteOrder.PutUint32(e.scratch[:4], value)
	e.buffer.Write(e.scratch[:4]) // nolint: errcheck
}

func (e *Encoder) PutFloat64(value float64) {
	ByteOrder.PutUint64(e.scratch[:8], math.Float64bits(value))
	e.buffer.Write(e.scratch[:8]) // nolint: errcheck
}

// PutBool encodes a boolean as an int32 holding 1 or 0
func (e *Encoder) PutBool(value bool) {
	if value {
		e.PutInt32(1)
	} else {
		e.PutInt32(0)
	}
}

func (e *Encoder) PutString(value string) {
	e.PutBytes([]byte(value))
}

// PutBytes writes the length prefix, the bytes and the NUL padding
func (e *Encoder) PutBytes(value []byte) {
	e.PutInt32(int32(len(value)))
	e.buffer.Write(value) // nolint: errcheck
	e.pad(len(value), 0)
}

// PutRaw writes value as is, without a length prefix or padding
func (e *Encoder) PutRaw(value []byte) {
	e.buffer.Write(value) // nolint: errcheck
}

// Align pads everything written so far to the alignment boundary using filler
func (e *Encoder) Align(filler byte) {
	e.pad(e.buffer.Len(), filler)
}

func (e *Encoder) Bytes() []byte {
	return e.buffer.Bytes()
}

func (e *Encoder) Len() int {
	return e.buffer.Len()
}

func (e *Encoder) Reset() {
	e.buffer.Reset()
}

func (e *Encoder) pad(length int, filler byte) {
	for remaining := Padding(length); remaining > 0; remaining-- {
		e.buffer.WriteByte(filler) // nolint: errcheck
	}
}

// PutArray writes values as one padded string of T elements. Values whose type already
// is T are written as is, anything else is converted element by element
func PutArray[T Number, S Number](e *Encoder, values []S) {
	e.PutBytes(ArrayBytes[T](values))
}

// ArrayBytes returns the raw (unprefixed, unpadded) encoding of values as T elements
func ArrayBytes[T Number, S Number](values []S) []byte {
	target, sameType := any(values).([]T)
	if !sameType {
		target = Convert[T](values)
	}

	var encoded bytes.Buffer
	encoded.Grow(len(target) * sizeOf[T]())

	// writing fixed size values into memory does not fail
	binary.Write(&encoded, ByteOrder, target) // nolint: errcheck

	return encoded.Bytes()
}
