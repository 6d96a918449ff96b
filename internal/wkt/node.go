package wkt

import (
	"fmt"
	"strconv"
	"strings"
)

// node is one KEYWORD[arg, arg, ...] element.
type node struct {
	keyword string
	offset  int
	args    []value
}

// value is a node argument: a quoted string, a number, a bare word or a nested node.
type value struct {
	kind   tokenKind
	text   string
	number float64
	child  *node
	offset int
}

// parseTree reads a single element and requires the text to end after it.
func parseTree(text string) (*node, error) {
	p := &treeParser{lex: lexer{src: text}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokWord {
		return nil, p.unexpected("expected a keyword")
	}
	keyword := p.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.element(keyword)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.unexpected("trailing text")
	}
	return n, nil
}

type treeParser struct {
	lex lexer
	tok token
}

func (p *treeParser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *treeParser) unexpected(msg string) error {
	return &SyntaxError{Offset: p.tok.offset, Token: p.tok.text, Message: fmt.Sprintf("%s, got %s", msg, p.tok.kind)}
}

// element parses the argument list of keyword, which has already been consumed.
func (p *treeParser) element(keyword token) (*node, error) {
	n := &node{keyword: strings.ToUpper(keyword.text), offset: keyword.offset}
	if p.tok.kind != tokOpen {
		return nil, p.unexpected("expected '[' after " + n.keyword)
	}
	open := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		n.args = append(n.args, v)

		switch p.tok.kind {
		case tokComma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tokClose:
			if (open == "[") != (p.tok.text == "]") {
				return nil, p.unexpected("mismatched bracket in " + n.keyword)
			}
			return n, p.advance()
		default:
			return nil, p.unexpected("expected ',' or ']' in " + n.keyword)
		}
	}
}

func (p *treeParser) value() (value, error) {
	t := p.tok
	switch t.kind {
	case tokString, tokNumber:
		return value{kind: t.kind, text: t.text, number: t.number, offset: t.offset}, p.advance()
	case tokWord:
		if err := p.advance(); err != nil {
			return value{}, err
		}
		if p.tok.kind != tokOpen {
			return value{kind: tokWord, text: t.text, offset: t.offset}, nil
		}
		child, err := p.element(t)
		if err != nil {
			return value{}, err
		}
		return value{kind: tokOpen, child: child, offset: t.offset}, nil
	}
	return value{}, p.unexpected("expected a value")
}

// Argument accessors. Each reports the element and position on failure.

func (n *node) argError(i int, want string) error {
	offset := n.offset
	if i < len(n.args) {
		offset = n.args[i].offset
	}
	return &SyntaxError{Offset: offset, Token: n.keyword, Message: fmt.Sprintf("argument %d of %s must be %s", i+1, n.keyword, want)}
}

func (n *node) str(i int) (string, error) {
	if i >= len(n.args) || n.args[i].kind != tokString {
		return "", n.argError(i, "a quoted string")
	}
	return n.args[i].text, nil
}

func (n *node) num(i int) (float64, error) {
	if i >= len(n.args) || n.args[i].kind != tokNumber {
		return 0, n.argError(i, "a number")
	}
	return n.args[i].number, nil
}

func (n *node) word(i int) (string, error) {
	if i >= len(n.args) || n.args[i].kind != tokWord {
		return "", n.argError(i, "a keyword")
	}
	return n.args[i].text, nil
}

// children returns the nested elements from position start on.
func (n *node) children(start int) []*node {
	var out []*node
	for i := start; i < len(n.args); i++ {
		if n.args[i].child != nil {
			out = append(out, n.args[i].child)
		}
	}
	return out
}

// child returns the first nested element with the given keyword.
func (n *node) child(keyword string) *node {
	for _, c := range n.children(0) {
		if c.keyword == keyword {
			return c
		}
	}
	return nil
}

// childAt returns the nested element at position i, which must carry one of the keywords.
func (n *node) childAt(i int, keywords ...string) (*node, error) {
	if i < len(n.args) && n.args[i].child != nil {
		for _, k := range keywords {
			if n.args[i].child.keyword == k {
				return n.args[i].child, nil
			}
		}
	}
	return nil, n.argError(i, strings.Join(keywords, " or "))
}

// authority reads an optional AUTHORITY["name", "code"] child. The code may
// be quoted or bare.
func (n *node) authority() (string, int64, error) {
	a := n.child("AUTHORITY")
	if a == nil {
		return "", 0, nil
	}
	name, err := a.str(0)
	if err != nil {
		return "", 0, err
	}
	if len(a.args) < 2 {
		return "", 0, a.argError(1, "an authority code")
	}
	code, err := strconv.ParseInt(strings.TrimSpace(a.args[1].text), 10, 64)
	if err != nil {
		return "", 0, a.argError(1, "an integer authority code")
	}
	return name, code, nil
}
