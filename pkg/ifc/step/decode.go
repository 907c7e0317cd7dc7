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
	"encoding/hex"
	"strings"

	"github.com/nuclio/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// code pages selectable with \P?\, A through I
var codePages = []*charmap.Charmap{
	charmap.ISO8859_1,
	charmap.ISO8859_2,
	charmap.ISO8859_3,
	charmap.ISO8859_4,
	charmap.ISO8859_5,
	charmap.ISO8859_6,
	charmap.ISO8859_7,
	charmap.ISO8859_8,
	charmap.ISO8859_9,
}

// DecodeString decodes the control directives of a string (\\, \S\, \P?\, \X\, \X2\ and \X4\)
// into UTF-8
func DecodeString(raw string) (string, error) {
	if !strings.Contains(raw, `\`) {
		return raw, nil
	}

	var decoded strings.Builder
	codePage := codePages[0]

	for position := 0; position < len(raw); {
		if raw[position] != '\\' {
			decoded.WriteByte(raw[position])
			position++
			continue
		}

		rest := raw[position:]

		switch {
		case strings.HasPrefix(rest, `\\`):
			decoded.WriteByte('\\')
			position += 2

		case strings.HasPrefix(rest, `\S\`) && len(rest) >= 4:
			decoded.WriteRune(codePage.DecodeByte(rest[3] | 0x80))
			position += 4

		case strings.HasPrefix(rest, `\P`) && len(rest) >= 4 && rest[3] == '\\':
			pageIndex := int(rest[2] - 'A')
			if pageIndex < 0 || pageIndex >= len(codePages) {
				return "", errors.Errorf("Unknown code page %q", rest[2])
			}

			codePage = codePages[pageIndex]
			position += 4

		case strings.HasPrefix(rest, `\X2\`), strings.HasPrefix(rest, `\X4\`):
			end := strings.Index(rest, `\X0\`)
			if end == -1 {
				return "", errors.New("Unterminated extended character sequence")
			}

			var decoder *encoding.Decoder
			if rest[2] == '2' {
				decoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
			} else {
				decoder = utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewDecoder()
			}

			text, err := decodeHex(rest[4:end], decoder)
			if err != nil {
				return "", errors.Wrap(err, "Failed to decode extended characters")
			}

			decoded.WriteString(text)
			position += end + 4

		case strings.HasPrefix(rest, `\X\`) && len(rest) >= 5:
			value, err := hex.DecodeString(rest[3:5])
			if err != nil {
				return "", errors.Wrap(err, "Failed to decode 8 bit character")
			}

			decoded.WriteRune(charmap.ISO8859_1.DecodeByte(value[0]))
			position += 5

		default:
			decoded.WriteByte('\\')
			position++
		}
	}

	return decoded.String(), nil
}

func decodeHex(hexText string, decoder *encoding.Decoder) (string, error) {
	encoded, err := hex.DecodeString(hexText)
	if err != nil {
		return "", err
	}

	decoded, err := decoder.Bytes(encoded)
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}
