// Package wkt reads OGC 1.0 Well-Known Text coordinate system definitions.
package wkt

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jobrunner/meridian/internal/domain"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokString
	tokNumber
	tokOpen
	tokClose
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokWord:
		return "keyword"
	case tokString:
		return "quoted string"
	case tokNumber:
		return "number"
	case tokOpen:
		return "'['"
	case tokClose:
		return "']'"
	case tokComma:
		return "','"
	default:
		return "end of text"
	}
}

type token struct {
	kind   tokenKind
	text   string
	number float64
	offset int
}

// SyntaxError reports malformed text at a byte offset.
type SyntaxError struct {
	Offset  int
	Token   string
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("wkt: %s at offset %d", e.Message, e.Offset)
	}
	return fmt.Sprintf("wkt: %s at offset %d near %q", e.Message, e.Offset, e.Token)
}

// Unwrap returns the underlying error type.
func (e *SyntaxError) Unwrap() error {
	return domain.ErrConfiguration
}

// lexer splits WKT into tokens. Both square brackets and parentheses delimit
// argument lists; quotes inside strings are escaped by doubling them.
type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, offset: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '[' || c == '(':
		l.pos++
		return token{kind: tokOpen, text: string(c), offset: start}, nil
	case c == ']' || c == ')':
		l.pos++
		return token{kind: tokClose, text: string(c), offset: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", offset: start}, nil
	case c == '"':
		return l.quoted()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return l.numeric()
	case c == '_' || unicode.IsLetter(rune(c)):
		for l.pos < len(l.src) && isWordByte(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokWord, text: l.src[start:l.pos], offset: start}, nil
	}
	return token{}, &SyntaxError{Offset: start, Token: string(c), Message: "unexpected character"}
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || unicode.IsLetter(rune(c))
}

func (l *lexer) quoted() (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		if c != '"' {
			sb.WriteByte(c)
			continue
		}
		if l.pos < len(l.src) && l.src[l.pos] == '"' {
			sb.WriteByte('"')
			l.pos++
			continue
		}
		return token{kind: tokString, text: sb.String(), offset: start}, nil
	}
	return token{}, &SyntaxError{Offset: start, Message: "unterminated string"}
}

func (l *lexer) numeric() (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			l.pos++
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, &SyntaxError{Offset: start, Token: text, Message: "invalid number"}
	}
	return token{kind: tokNumber, text: text, number: v, offset: start}, nil
}
