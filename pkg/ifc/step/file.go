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

// Package step parses the DATA section of ISO-10303-21 (STEP physical) files
package step

import (
	"bytes"

	"github.com/nuclio/errors"
)

var ErrLineNotFound = errors.New("Line not found")

const loadChunkSize = 64 * 1024

// File holds the entity instances of a STEP file, indexed by express id and by type
type File struct {
	Schemas    []string
	lines      map[uint32]*Line
	expressIDs []uint32
	byType     map[uint32][]uint32
}

// Load reads a file through supplier, which copies source bytes starting at an offset into a
// buffer and returns how many it copied, 0 at the end
func Load(supplier func(destination []byte, sourceOffset int) int) (*File, error) {
	var content bytes.Buffer
	chunk := make([]byte, loadChunkSize)

	for {
		copied := supplier(chunk, content.Len())
		if copied <= 0 {
			break
		}

		content.Write(chunk[:copied]) // nolint: errcheck
	}

	return Parse(content.Bytes())
}

// Parse parses the header schema list and every instance of the DATA section
func Parse(content []byte) (*File, error) {
	file := File{
		lines:  map[uint32]*Line{},
		byType: map[uint32][]uint32{},
	}

	headerParser := parser{content: content}
	file.Schemas = headerParser.schemas()

	dataParser := parser{content: content}
	if !dataParser.seek("DATA") {
		return nil, errors.New("File has no DATA section")
	}

	for {
		dataParser.skip()

		if dataParser.done() {
			return nil, errors.New("DATA section is not terminated")
		}

		if dataParser.peek() != '#' {
			if keyword := dataParser.keyword(); keyword != "ENDSEC" {
				return nil, dataParser.errorf("Expected instance or ENDSEC, got %q", keyword)
			}

			break
		}

		parsedLine, err := dataParser.line()
		if err != nil {
			return nil, errors.Wrap(err, "Failed to parse instance")
		}

		if _, exists := file.lines[parsedLine.ExpressID]; exists {
			return nil, errors.Errorf("Instance #%d is defined twice", parsedLine.ExpressID)
		}

		file.lines[parsedLine.ExpressID] = parsedLine
		file.expressIDs = append(file.expressIDs, parsedLine.ExpressID)

		if parsedLine.TypeName != "" {
			file.byType[parsedLine.TypeCode] = append(file.byType[parsedLine.TypeCode], parsedLine.ExpressID)
		}
	}

	return &file, nil
}

// ExpressIDs returns the ids of every instance, in file order
func (f *File) ExpressIDs() []uint32 {
	return f.expressIDs
}

// Line returns an instance
func (f *File) Line(expressID uint32) (*Line, error) {
	line, found := f.lines[expressID]
	if !found {
		return nil, errors.Wrapf(ErrLineNotFound, "#%d", expressID)
	}

	return line, nil
}

// LinesOfType returns the ids of the instances of a type, in file order
func (f *File) LinesOfType(typeName string) []uint32 {
	return f.byType[TypeCode(typeName)]
}

// Argument returns an argument of an instance
func (f *File) Argument(expressID uint32, offset int) (*Argument, error) {
	line, err := f.Line(expressID)
	if err != nil {
		return nil, err
	}

	return line.Argument(offset)
}

// schemas returns the names in FILE_SCHEMA, if the header has one
func (p *parser) schemas() []string {
	index := bytes.Index(p.content, []byte("FILE_SCHEMA"))
	if index == -1 {
		return nil
	}

	p.position = index + len("FILE_SCHEMA")

	arguments, err := p.list()
	if err != nil || len(arguments.List) == 0 {
		return nil
	}

	var schemas []string
	for _, item := range arguments.List[0].List {
		if item.Kind == KindString {
			schemas = append(schemas, item.Text)
		}
	}

	return schemas
}
