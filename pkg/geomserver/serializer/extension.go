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

package serializer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/geomserver/message"

	"github.com/nuclio/errors"
)

type ExtensionKind string

const (
	ExtensionKindNone       ExtensionKind = "none"
	ExtensionKindStub       ExtensionKind = "stub"
	ExtensionKindQuantities ExtensionKind = "quantities"
)

// quantity keys
const (
	TotalSurfaceArea    = "TOTAL_SURFACE_AREA"
	TotalShapeVolume    = "TOTAL_SHAPE_VOLUME"
	SurfaceAreaAlongX   = "SURFACE_AREA_ALONG_X"
	SurfaceAreaAlongY   = "SURFACE_AREA_ALONG_Y"
	SurfaceAreaAlongZ   = "SURFACE_AREA_ALONG_Z"
	WalkableSurfaceArea = "WALKABLE_SURFACE_AREA"
)

// Extension appends metadata to an entity, after its geometry was flattened
type Extension interface {
	Kind() ExtensionKind
	Write(writer *MetadataWriter, element *geomserver.Element, entity *message.Entity) error
}

// NewExtension creates an extension by kind. The none kind has no extension
func NewExtension(kind ExtensionKind) (Extension, error) {
	switch kind {
	case ExtensionKindNone, "":
		return nil, nil
	case ExtensionKindStub:
		return &stubExtension{}, nil
	case ExtensionKindQuantities:
		return &quantitiesExtension{}, nil
	}

	return nil, errors.Errorf("Unknown metadata extension: %s", kind)
}

// MetadataWriter builds a flat object of scalar values, keeping insertion order
type MetadataWriter struct {
	builder strings.Builder
	opened  bool
}

func (mw *MetadataWriter) PutFloat(key string, value float64) {
	mw.putKey(key)
	mw.builder.WriteString(strconv.FormatFloat(value, 'g', 15, 64))
}

func (mw *MetadataWriter) PutInt(key string, value int64) {
	mw.putKey(key)
	mw.builder.WriteString(strconv.FormatInt(value, 10))
}

func (mw *MetadataWriter) PutString(key string, value string) {
	mw.putKey(key)
	mw.builder.WriteString(quote(value))
}

// String returns the object text, or an empty string if nothing was put
func (mw *MetadataWriter) String() string {
	if !mw.opened {
		return ""
	}

	return mw.builder.String() + "}"
}

func (mw *MetadataWriter) putKey(key string) {
	if mw.opened {
		mw.builder.WriteByte(',')
	} else {
		mw.builder.WriteByte('{')
		mw.opened = true
	}

	mw.builder.WriteString(quote(key))
	mw.builder.WriteByte(':')
}

func quote(value string) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return `""`
	}

	return string(encoded)
}

type stubExtension struct{}

func (se *stubExtension) Kind() ExtensionKind {
	return ExtensionKindStub
}

func (se *stubExtension) Write(writer *MetadataWriter, element *geomserver.Element, entity *message.Entity) error {
	writer.PutFloat(TotalSurfaceArea, 0)
	writer.PutFloat(TotalShapeVolume, 0)
	writer.PutFloat(WalkableSurfaceArea, 0)

	return nil
}

// quantitiesExtension reserves the quantity keys. No formula is defined for them yet, so they
// are all zero
type quantitiesExtension struct{}

func (qe *quantitiesExtension) Kind() ExtensionKind {
	return ExtensionKindQuantities
}

func (qe *quantitiesExtension) Write(writer *MetadataWriter, element *geomserver.Element, entity *message.Entity) error {
	for _, key := range []string{
		TotalSurfaceArea,
		TotalShapeVolume,
		SurfaceAreaAlongX,
		SurfaceAreaAlongY,
		SurfaceAreaAlongZ,
	} {
		writer.PutInt(key, 0)
	}

	return nil
}
