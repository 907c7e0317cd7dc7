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
	"bytes"
	"strconv"
	"strings"

	"github.com/nuclio/errors"
)

type parser struct {
	content  []byte
	position int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Errorf(format, args...), "At offset %d", p.position)
}

func (p *parser) done() bool {
	return p.position >= len(p.content)
}

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}

	return p.content[p.position]
}

// skip skips whitespace and comments
func (p *parser) skip() {
	for !p.done() {
		switch current := p.content[p.position]; {
		case current == ' ', current == '\t', current == '\r', current == '\n':
			p.position++
		case current == '/' && p.position+1 < len(p.content) && p.content[p.position+1] == '*':
			end := bytes.Index(p.content[p.position+2:], []byte("*/"))
			if end == -1 {
				p.position = len(p.content)
				return
			}

			p.position += end + 4
		default:
			return
		}
	}
}

func (p *parser) expect(expected byte) error {
	p.skip()

	if p.peek() != expected {
		return p.errorf("Expected %q, got %q", expected, p.peek())
	}

	p.position++
	return nil
}

func (p *parser) keyword() string {
	start := p.position
	for !p.done() {
		current := p.content[p.position]
		if !isLetter(current) && !isDigit(current) && current != '_' {
			break
		}
		p.position++
	}

	return string(p.content[start:p.position])
}

// seek positions the parser after the next occurrence of keyword followed by a semicolon
func (p *parser) seek(keyword string) bool {
	for {
		index := bytes.Index(p.content[p.position:], []byte(keyword))
		if index == -1 {
			return false
		}

		p.position += index + len(keyword)
		p.skip()

		if p.peek() == ';' {
			p.position++
			return true
		}
	}
}

// line parses "#id = TYPE(arguments);". Complex instances, written as "#id = (A(...) B(...));",
// are kept with an empty type name
func (p *parser) line() (*Line, error) {
	if err := p.expect('#'); err != nil {
		return nil, err
	}

	expressID, err := p.unsigned()
	if err != nil {
		return nil, err
	}

	if err := p.expect('='); err != nil {
		return nil, err
	}

	p.skip()

	parsedLine := Line{
		ExpressID: expressID,
	}

	if p.peek() == '(' {
		if err := p.complex(); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse complex instance #%d", expressID)
		}
	} else {
		parsedLine.TypeName = strings.ToUpper(p.keyword())
		if parsedLine.TypeName == "" {
			return nil, p.errorf("Missing type name for #%d", expressID)
		}

		parsedLine.TypeCode = TypeCode(parsedLine.TypeName)

		arguments, err := p.argument()
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse #%d", expressID)
		}

		if arguments.Kind != KindList {
			return nil, p.errorf("Expected argument list for #%d", expressID)
		}

		parsedLine.Arguments = arguments.List
	}

	if err := p.expect(';'); err != nil {
		return nil, err
	}

	return &parsedLine, nil
}

// complex skips the partial instances of a complex instance
func (p *parser) complex() error {
	if err := p.expect('('); err != nil {
		return err
	}

	for {
		p.skip()
		if p.peek() == ')' {
			p.position++
			return nil
		}

		if p.keyword() == "" {
			return p.errorf("Expected partial instance, got %q", p.peek())
		}

		if _, err := p.list(); err != nil {
			return err
		}
	}
}

func (p *parser) argument() (Argument, error) {
	p.skip()

	switch current := p.peek(); {
	case current == '$':
		p.position++
		return Argument{Kind: KindNull}, nil

	case current == '*':
		p.position++
		return Argument{Kind: KindDerived}, nil

	case current == '#':
		p.position++
		ref, err := p.unsigned()
		return Argument{Kind: KindRef, Ref: ref}, err

	case current == '\'':
		text, err := p.quoted()
		return Argument{Kind: KindString, Text: text}, err

	case current == '"':
		p.position++
		end := bytes.IndexByte(p.content[p.position:], '"')
		if end == -1 {
			return Argument{}, p.errorf("Unterminated binary value")
		}

		text := string(p.content[p.position : p.position+end])
		p.position += end + 1
		return Argument{Kind: KindString, Text: text}, nil

	case current == '.':
		p.position++
		end := bytes.IndexByte(p.content[p.position:], '.')
		if end == -1 {
			return Argument{}, p.errorf("Unterminated enumeration")
		}

		text := string(p.content[p.position : p.position+end])
		p.position += end + 1
		return Argument{Kind: KindEnum, Text: text}, nil

	case current == '(':
		return p.list()

	case isDigit(current), current == '-', current == '+':
		return p.number()

	case isLetter(current):
		typeName := strings.ToUpper(p.keyword())

		p.skip()
		if p.peek() != '(' {
			return Argument{}, p.errorf("Expected value for typed parameter %s", typeName)
		}

		wrapped, err := p.list()
		if err != nil {
			return Argument{}, err
		}

		return Argument{Kind: KindTyped, Text: typeName, List: wrapped.List}, nil
	}

	return Argument{}, p.errorf("Unexpected %q", p.peek())
}

func (p *parser) list() (Argument, error) {
	if err := p.expect('('); err != nil {
		return Argument{}, err
	}

	items := []Argument{}

	p.skip()
	if p.peek() == ')' {
		p.position++
		return Argument{Kind: KindList, List: items}, nil
	}

	for {
		item, err := p.argument()
		if err != nil {
			return Argument{}, err
		}

		items = append(items, item)

		p.skip()
		switch p.peek() {
		case ',':
			p.position++
		case ')':
			p.position++
			return Argument{Kind: KindList, List: items}, nil
		default:
			return Argument{}, p.errorf("Expected ',' or ')' in list, got %q", p.peek())
		}
	}
}

// quoted parses a string literal, where two consecutive quotes stand for one
func (p *parser) quoted() (string, error) {
	p.position++

	var text strings.Builder
	for !p.done() {
		current := p.content[p.position]
		p.position++

		if current != '\'' {
			text.WriteByte(current)
			continue
		}

		if p.peek() == '\'' {
			text.WriteByte('\'')
			p.position++
			continue
		}

		return text.String(), nil
	}

	return "", p.errorf("Unterminated string")
}

func (p *parser) number() (Argument, error) {
	start := p.position
	isReal := false

	if current := p.peek(); current == '-' || current == '+' {
		p.position++
	}

	for !p.done() {
		current := p.content[p.position]
		if isDigit(current) {
			p.position++
			continue
		}

		if current == '.' || current == 'E' || current == 'e' {
			isReal = true
			p.position++

			// exponent sign
			if (current == 'E' || current == 'e') && (p.peek() == '-' || p.peek() == '+') {
				p.position++
			}

			continue
		}

		break
	}

	text := string(p.content[start:p.position])

	if !isReal {
		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Argument{}, p.errorf("Invalid integer %q", text)
		}

		return Argument{Kind: KindInteger, Integer: value}, nil
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Argument{}, p.errorf("Invalid real %q", text)
	}

	return Argument{Kind: KindReal, Real: value}, nil
}

func (p *parser) unsigned() (uint32, error) {
	start := p.position
	for !p.done() && isDigit(p.content[p.position]) {
		p.position++
	}

	value, err := strconv.ParseUint(string(p.content[start:p.position]), 10, 32)
	if err != nil {
		return 0, p.errorf("Invalid instance number %q", p.content[start:p.position])
	}

	return uint32(value), nil
}

func isDigit(value byte) bool {
	return value >= '0' && value <= '9'
}

func isLetter(value byte) bool {
	return (value >= 'a' && value <= 'z') || (value >= 'A' && value <= 'Z')
}
