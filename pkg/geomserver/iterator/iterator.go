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

package iterator

import (
	"github.com/nuclio/geomserver/pkg/geomserver"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// ErrExhausted is returned by Next when no element remains
var ErrExhausted = errors.New("No more elements")

// Iterator walks the elements of a model that have geometry, in file order. Elements whose
// extraction fails or yields no parts are skipped
type Iterator struct {
	logger     logger.Logger
	model      geomserver.Model
	catalog    geomserver.Catalog
	kernel     geomserver.Kernel
	candidates []uint32
	position   int
	pending    *geomserver.Element
	skipped    int
}

func NewIterator(parentLogger logger.Logger,
	model geomserver.Model,
	catalog geomserver.Catalog,
	kernel geomserver.Kernel) *Iterator {
	newIterator := &Iterator{
		logger:  parentLogger.GetChild("iterator"),
		model:   model,
		catalog: catalog,
		kernel:  kernel,
	}

	newIterator.candidates = newIterator.findCandidates()

	newIterator.logger.DebugWith("Created iterator", "candidates", len(newIterator.candidates))

	return newIterator
}

// HasMore returns whether Next will return an element. It resolves candidates until one has
// geometry, so it may do real work
func (i *Iterator) HasMore() bool {
	if i.pending != nil {
		return true
	}

	// bounded by the candidate count, every iteration consumes one
	for i.position < len(i.candidates) {
		expressID := i.candidates[i.position]
		i.position++

		element, err := i.resolve(expressID)
		if err != nil {
			i.skipped++
			i.logger.DebugWith("Skipping element",
				"id", expressID,
				"err", errors.GetErrorStackString(err, 10))
			continue
		}

		if element.FlatMesh == nil || len(element.FlatMesh.Parts) == 0 {
			i.skipped++
			i.logger.DebugWith("Skipping element without geometry", "id", expressID)
			continue
		}

		i.pending = element

		return true
	}

	return false
}

// Next returns the next element with geometry
func (i *Iterator) Next() (*geomserver.Element, error) {
	if !i.HasMore() {
		return nil, ErrExhausted
	}

	element := i.pending
	i.pending = nil

	return element, nil
}

// Remaining returns how many candidates were not resolved yet
func (i *Iterator) Remaining() int {
	remaining := len(i.candidates) - i.position
	if i.pending != nil {
		remaining++
	}

	return remaining
}

// Skipped returns how many candidates were skipped so far
func (i *Iterator) Skipped() int {
	return i.skipped
}

// Candidates returns how many elements were selected for iteration
func (i *Iterator) Candidates() int {
	return len(i.candidates)
}

func (i *Iterator) findCandidates() []uint32 {
	var candidates []uint32

	for _, expressID := range i.model.ExpressIDs() {
		typeCode, err := i.model.LineType(expressID)
		if err != nil || !i.catalog.IsElement(typeCode) {
			continue
		}

		kind, err := i.model.ArgumentKind(expressID, geomserver.ArgumentRepresentation)
		if err != nil || kind != geomserver.TokenRef {
			continue
		}

		candidates = append(candidates, expressID)
	}

	return candidates
}

func (i *Iterator) resolve(expressID uint32) (*geomserver.Element, error) {
	typeCode, err := i.model.LineType(expressID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get element type")
	}

	guid, err := i.model.DecodedStringArgument(expressID, geomserver.ArgumentGlobalID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get global id")
	}

	name, err := i.optionalString(expressID, geomserver.ArgumentName)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get name")
	}

	representationID, err := i.model.RefArgument(expressID, geomserver.ArgumentRepresentation)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get representation")
	}

	flatMesh, err := i.kernel.FlatMesh(expressID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get flat mesh")
	}

	parentID := int64(geomserver.NoParent)
	if parent, found := i.model.Parent(expressID); found {
		parentID = int64(parent)
	}

	return &geomserver.Element{
		ExpressID:        expressID,
		ParentID:         parentID,
		GUID:             guid,
		Name:             name,
		TypeName:         i.catalog.TypeName(typeCode),
		RepresentationID: representationID,
		FlatMesh:         flatMesh,
	}, nil
}

// optionalString returns an empty string for omitted arguments
func (i *Iterator) optionalString(expressID uint32, offset int) (string, error) {
	kind, err := i.model.ArgumentKind(expressID, offset)
	if err != nil {
		return "", err
	}

	if kind == geomserver.TokenNull || kind == geomserver.TokenDerived {
		return "", nil
	}

	return i.model.DecodedStringArgument(expressID, offset)
}
