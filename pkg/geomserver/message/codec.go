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
	"bytes"
	"strings"

	"github.com/nuclio/geomserver/pkg/geomserver/wire"

	"github.com/nuclio/errors"
)

var ErrUnknownType = errors.New("Unknown message type")

// EncodeContent returns the content of a message, without the type and length prefix
func EncodeContent(message Message) []byte {
	encoder := wire.NewEncoder()

	switch typedMessage := message.(type) {
	case *Hello:
		encoder.PutString(typedMessage.Version)
	case *IfcModel:
		encoder.PutBytes(typedMessage.Content)
	case *Entity:
		encodeEntity(encoder, typedMessage)
	case *More:
		encoder.PutBool(typedMessage.More)
	case *Log:
		encoder.PutString(typedMessage.Text)
	case *Deflection:
		encoder.PutFloat64(typedMessage.Deflection)
	case *Setting:
		encoder.PutUint32(typedMessage.Key)
		encoder.PutUint32(typedMessage.Value)
	case *Get, *Next, *Bye, *GetLog:
	}

	return encoder.Bytes()
}

// DecodeContent decodes the content of a message of the given type
func DecodeContent(messageType Type, content []byte) (Message, error) {
	decoder := wire.NewDecoder(bytes.NewReader(content))

	message, err := decodeContent(messageType, decoder)
	if err != nil {
		return nil, errors.Wrapf(wire.Truncated(err), "Failed to decode %s content", messageType)
	}

	return message, nil
}

func decodeContent(messageType Type, decoder *wire.Decoder) (Message, error) {
	var err error

	switch messageType {
	case TypeHello:
		hello := Hello{}
		hello.Version, err = decoder.ReadString()
		return &hello, err
	case TypeIfcModel:
		ifcModel := IfcModel{}
		ifcModel.Content, err = decoder.ReadBytes()
		return &ifcModel, err
	case TypeGet:
		return &Get{}, nil
	case TypeEntity:
		return decodeEntity(decoder)
	case TypeMore:
		more := More{}
		more.More, err = decoder.ReadBool()
		return &more, err
	case TypeNext:
		return &Next{}, nil
	case TypeBye:
		return &Bye{}, nil
	case TypeGetLog:
		return &GetLog{}, nil
	case TypeLog:
		log := Log{}
		log.Text, err = decoder.ReadString()
		return &log, err
	case TypeDeflection:
		deflection := Deflection{}
		deflection.Deflection, err = decoder.ReadFloat64()
		return &deflection, err
	case TypeSetting:
		setting := Setting{}
		if setting.Key, err = decoder.ReadUint32(); err != nil {
			return nil, err
		}
		setting.Value, err = decoder.ReadUint32()
		return &setting, err
	}

	return nil, errors.Wrapf(ErrUnknownType, "Got type %s", messageType)
}

func encodeEntity(encoder *wire.Encoder, entity *Entity) {
	encoder.PutInt32(entity.ExpressID)
	encoder.PutString(entity.GUID)
	encoder.PutString(entity.Name)
	encoder.PutString(entity.ElementType)
	encoder.PutInt32(entity.ParentID)
	wire.PutArray[float64](encoder, entity.Transformation[:])
	encoder.PutInt32(entity.RepresentationID)
	wire.PutArray[float64](encoder, entity.Vertices)
	wire.PutArray[float32](encoder, entity.Normals)
	wire.PutArray[int32](encoder, entity.Indices)
	wire.PutArray[float32](encoder, entity.Colors)
	wire.PutArray[int32](encoder, entity.ColorIndices)

	if entity.Metadata != "" {
		encoder.PutRaw([]byte(entity.Metadata))
		encoder.Align(' ')
	}
}

func decodeEntity(decoder *wire.Decoder) (*Entity, error) {
	var err error
	entity := Entity{}

	if entity.ExpressID, err = decoder.ReadInt32(); err != nil {
		return nil, err
	}

	for _, field := range []*string{&entity.GUID, &entity.Name, &entity.ElementType} {
		if *field, err = decoder.ReadString(); err != nil {
			return nil, err
		}
	}

	if entity.ParentID, err = decoder.ReadInt32(); err != nil {
		return nil, err
	}

	transformation, err := wire.ReadArray[float64](decoder)
	if err != nil {
		return nil, err
	}

	if len(transformation) != len(entity.Transformation) {
		return nil, errors.Wrapf(wire.ErrInvalidLength, "Expected 16 transformation values, got %d", len(transformation))
	}

	copy(entity.Transformation[:], transformation)

	if entity.RepresentationID, err = decoder.ReadInt32(); err != nil {
		return nil, err
	}

	if entity.Vertices, err = wire.ReadArray[float64](decoder); err != nil {
		return nil, err
	}

	normals, err := wire.ReadArray[float32](decoder)
	if err != nil {
		return nil, err
	}

	if entity.Indices, err = wire.ReadArray[int32](decoder); err != nil {
		return nil, err
	}

	colors, err := wire.ReadArray[float32](decoder)
	if err != nil {
		return nil, err
	}

	if entity.ColorIndices, err = wire.ReadArray[int32](decoder); err != nil {
		return nil, err
	}

	metadata, err := decoder.ReadRemaining()
	if err != nil {
		return nil, err
	}

	entity.Normals = wire.Convert[float64](normals)
	entity.Colors = wire.Convert[float64](colors)
	entity.Metadata = strings.TrimRight(string(metadata), " ")

	return &entity, nil
}
