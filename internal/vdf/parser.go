package vdf

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (err *SyntaxError) Error() string {
	return fmt.Sprintf("vdf: line %d, column %d: %s", err.Line, err.Column, err.Msg)
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenString
	tokenOpen
	tokenClose
	tokenCondition
)

type token struct {
	kind   tokenKind
	text   string
	line   int
	column int
}

type parser struct {
	input  []byte
	offset int
	line   int
	column int

	peeked *token
}

// Parse decodes a whole document. The root is an implicit object holding the top-level keys.
func Parse(data []byte) (*Object, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "input is not valid UTF-8"}
	}

	p := &parser{input: data, line: 1, column: 1}
	return p.parseObject(false)
}

func (ps *parser) parseObject(nested bool) (*Object, error) {
	object := NewObject()

	for {
		keyToken, err := ps.next()
		if err != nil {
			return nil, err
		}

		switch keyToken.kind {
		case tokenEOF:
			if nested {
				return nil, ps.errorAt(keyToken, "unexpected end of input, missing '}'")
			}
			return object, nil
		case tokenClose:
			if !nested {
				return nil, ps.errorAt(keyToken, "unexpected '}'")
			}
			return object, nil
		case tokenOpen:
			return nil, ps.errorAt(keyToken, "unexpected '{', expected a key")
		case tokenCondition:
			return nil, ps.errorAt(keyToken, "unexpected conditional, expected a key")
		}

		valueToken, err := ps.next()
		if err != nil {
			return nil, err
		}

		switch valueToken.kind {
		case tokenString:
			object.AddString(keyToken.text, valueToken.text)
			if err := ps.skipCondition(); err != nil {
				return nil, err
			}
		case tokenOpen:
			child, err := ps.parseObject(true)
			if err != nil {
				return nil, err
			}
			object.AddObject(keyToken.text, child)
		case tokenCondition:
			// "key" [$COND] { ... }
			opening, err := ps.next()
			if err != nil {
				return nil, err
			}
			if opening.kind != tokenOpen {
				return nil, ps.errorAt(opening, "expected '{' after conditional")
			}
			child, err := ps.parseObject(true)
			if err != nil {
				return nil, err
			}
			object.AddObject(keyToken.text, child)
		default:
			return nil, ps.errorAt(valueToken, fmt.Sprintf("missing value for key %q", keyToken.text))
		}
	}
}

func (ps *parser) skipCondition() error {
	peek, err := ps.peek()
	if err != nil {
		return err
	}
	if peek.kind == tokenCondition {
		ps.peeked = nil
	}
	return nil
}

func (ps *parser) peek() (token, error) {
	if ps.peeked != nil {
		return *ps.peeked, nil
	}
	tok, err := ps.scan()
	if err != nil {
		return token{}, err
	}
	ps.peeked = &tok
	return tok, nil
}

func (ps *parser) next() (token, error) {
	if ps.peeked != nil {
		tok := *ps.peeked
		ps.peeked = nil
		return tok, nil
	}
	return ps.scan()
}

func (ps *parser) errorAt(tok token, msg string) error {
	return &SyntaxError{Line: tok.line, Column: tok.column, Msg: msg}
}

func (ps *parser) scan() (token, error) {
	if err := ps.skipSpaceAndComments(); err != nil {
		return token{}, err
	}

	start := token{line: ps.line, column: ps.column}
	if ps.offset >= len(ps.input) {
		start.kind = tokenEOF
		return start, nil
	}

	switch current := ps.input[ps.offset]; current {
	case '{':
		ps.advance()
		start.kind = tokenOpen
		return start, nil
	case '}':
		ps.advance()
		start.kind = tokenClose
		return start, nil
	case '"':
		text, err := ps.scanQuoted()
		if err != nil {
			return token{}, err
		}
		start.kind = tokenString
		start.text = text
		return start, nil
	case '[':
		text, err := ps.scanCondition()
		if err != nil {
			return token{}, err
		}
		start.kind = tokenCondition
		start.text = text
		return start, nil
	default:
		start.kind = tokenString
		start.text = ps.scanBare()
		return start, nil
	}
}

func (ps *parser) advance() byte {
	current := ps.input[ps.offset]
	ps.offset++
	if current == '\n' {
		ps.line++
		ps.column = 1
	} else {
		ps.column++
	}
	return current
}

func (ps *parser) skipSpaceAndComments() error {
	for ps.offset < len(ps.input) {
		current := ps.input[ps.offset]
		switch {
		case current == ' ' || current == '\t' || current == '\r' || current == '\n':
			ps.advance()
		case current == '/' && ps.offset+1 < len(ps.input) && ps.input[ps.offset+1] == '/':
			for ps.offset < len(ps.input) && ps.input[ps.offset] != '\n' {
				ps.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func (ps *parser) scanQuoted() (string, error) {
	openLine, openColumn := ps.line, ps.column
	ps.advance()

	var sb strings.Builder
	for ps.offset < len(ps.input) {
		current := ps.advance()
		switch current {
		case '"':
			return sb.String(), nil
		case '\\':
			if ps.offset >= len(ps.input) {
				sb.WriteByte('\\')
				continue
			}
			escaped := ps.input[ps.offset]
			switch escaped {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				// Unknown escapes are literal; Windows paths in the wild depend on it.
				sb.WriteByte('\\')
				continue
			}
			ps.advance()
		default:
			sb.WriteByte(current)
		}
	}

	return "", &SyntaxError{Line: openLine, Column: openColumn, Msg: "unterminated quoted string"}
}

func (ps *parser) scanCondition() (string, error) {
	openLine, openColumn := ps.line, ps.column
	ps.advance()

	start := ps.offset
	for ps.offset < len(ps.input) {
		if ps.input[ps.offset] == ']' {
			text := string(ps.input[start:ps.offset])
			ps.advance()
			return text, nil
		}
		if ps.input[ps.offset] == '\n' {
			break
		}
		ps.advance()
	}

	return "", &SyntaxError{Line: openLine, Column: openColumn, Msg: "unterminated conditional"}
}

func (ps *parser) scanBare() string {
	start := ps.offset
	for ps.offset < len(ps.input) {
		current := ps.input[ps.offset]
		if current == ' ' || current == '\t' || current == '\r' || current == '\n' ||
			current == '{' || current == '}' || current == '"' {
			break
		}
		ps.advance()
	}
	return string(ps.input[start:ps.offset])
}
