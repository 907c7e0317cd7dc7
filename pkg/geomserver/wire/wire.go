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

// Package wire holds the fixed binary primitives the geometry server protocol is built on.
// Numbers travel in the host's byte order, strings carry an int32 length prefix and are
// padded with NUL bytes to a 4 byte boundary, and numeric arrays travel as strings
package wire

import (
	"encoding/binary"

	"github.com/nuclio/errors"
)

// Alignment is the boundary every string and array is padded to
const Alignment = 4

// ByteOrder is the order of every multi-byte number on the wire. Both ends run on the same host
var ByteOrder = binary.NativeEndian

var (
	ErrTruncated     = errors.New("Stream ended in the middle of a value")
	ErrInvalidLength = errors.New("Invalid length prefix")
)

// Number is any fixed width numeric type that can be carried in an array
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Padding returns how many bytes must follow length bytes to reach the alignment boundary
func Padding(length int) int {
	return (Alignment - length%Alignment) % Alignment
}

// Convert converts every element of values to T
func Convert[T Number, S Number](values []S) []T {
	converted := make([]T, len(values))
	for index, value := range values {
		converted[index] = T(value)
	}

	return converted
}

func sizeOf[T Number]() int {
	var zero T
	return binary.Size(zero)
}
