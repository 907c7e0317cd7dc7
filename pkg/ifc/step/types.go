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

package step

import (
	"hash/crc32"
	"strings"

	"github.com/nuclio/errors"
)

var ErrWrongKind = errors.New("Argument is of a different kind")

// Kind is the kind of an argument
type Kind int

const (
	KindNull Kind = iota
	KindDerived
	KindString
	KindEnum
	KindRef
	KindInteger
	KindReal
	KindList
	KindTyped
)

func (k Kind) String() string {
	return [...]string{"null", "derived", "string", "enum", "ref", "integer", "real", "list", "typed"}[k]
}

// Argument is one parameter of an entity instance
type Argument struct {
	Kind Kind

	// string contents with quotes unescaped, enum value, or the type name of a typed value
	Text    string
	Ref     uint32
	Integer int64
	Real    float64

	// list items, or the single wrapped value of a typed value
	List []Argument
}

// Line is one entity instance of the DATA section
type Line struct {
	ExpressID uint32
	TypeName  string
	TypeCode  uint32
	Arguments []Argument
}

// TypeCode returns the code of a type name, which is the checksum of its upper case form
func TypeCode(typeName string) uint32 {
	return crc32.ChecksumIEEE([]byte(strings.ToUpper(typeName)))
}

// Argument returns the argument at offset
func (l *Line) Argument(offset int) (*Argument, error) {
	if offset < 0 || offset >= len(l.Arguments) {
		return nil, errors.Errorf("Line #%d (%s) has no argument %d", l.ExpressID, l.TypeName, offset)
	}

	return &l.Arguments[offset], nil
}

// IsNull returns whether the argument was omitted
func (a *Argument) IsNull() bool {
	return a.Kind == KindNull || a.Kind == KindDerived
}

// Unwrap returns the value inside a typed value, or the argument itself
func (a *Argument) Unwrap() *Argument {
	if a.Kind == KindTyped && len(a.List) == 1 {
		return a.List[0].Unwrap()
	}

	return a
}

// AsRef returns the referenced express id
func (a *Argument) AsRef() (uint32, error) {
	if a.Kind != KindRef {
		return 0, errors.Wrapf(ErrWrongKind, "Expected ref, got %s", a.Kind)
	}

	return a.Ref, nil
}

// AsString returns string contents as written in the file
func (a *Argument) AsString() (string, error) {
	unwrapped := a.Unwrap()
	if unwrapped.Kind != KindString {
		return "", errors.Wrapf(ErrWrongKind, "Expected string, got %s", unwrapped.Kind)
	}

	return unwrapped.Text, nil
}

// AsDecodedString returns string contents with their control directives decoded
func (a *Argument) AsDecodedString() (string, error) {
	raw, err := a.AsString()
	if err != nil {
		return "", err
	}

	return DecodeString(raw)
}

// AsFloat returns a real or integer argument as a float
func (a *Argument) AsFloat() (float64, error) {
	unwrapped := a.Unwrap()

	switch unwrapped.Kind {
	case KindReal:
		return unwrapped.Real, nil
	case KindInteger:
		return float64(unwrapped.Integer), nil
	}

	return 0, errors.Wrapf(ErrWrongKind, "Expected number, got %s", unwrapped.Kind)
}

// AsEnum returns an enumeration value without its dots
func (a *Argument) AsEnum() (string, error) {
	if a.Kind != KindEnum {
		return "", errors.Wrapf(ErrWrongKind, "Expected enum, got %s", a.Kind)
	}

	return a.Text, nil
}

// AsList returns list items
func (a *Argument) AsList() ([]Argument, error) {
	if a.Kind != KindList {
		return nil, errors.Wrapf(ErrWrongKind, "Expected list, got %s", a.Kind)
	}

	return a.List, nil
}

// AsRefs returns the express ids of a list of references
func (a *Argument) AsRefs() ([]uint32, error) {
	items, err := a.AsList()
	if err != nil {
		return nil, err
	}

	refs := make([]uint32, 0, len(items))
	for itemIndex := range items {
		ref, err := items[itemIndex].AsRef()
		if err != nil {
			return nil, errors.Wrapf(err, "Item %d", itemIndex)
		}

		refs = append(refs, ref)
	}

	return refs, nil
}

// AsFloats returns the values of a list of numbers
func (a *Argument) AsFloats() ([]float64, error) {
	items, err := a.AsList()
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(items))
	for itemIndex := range items {
		value, err := items[itemIndex].AsFloat()
		if err != nil {
			return nil, errors.Wrapf(err, "Item %d", itemIndex)
		}

		values = append(values, value)
	}

	return values, nil
}
