// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/calltree/ctc/bt/lookup3"
	"github.com/pkg/errors"
)

// ParseError is a source diagnostic, formatted the way compilers are
// expected to: file(line): error: message.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s(%d): error: %s", e.File, e.Line, e.Msg)
}

// token kinds of the s-expression scanner
const (
	tokEOF = iota
	tokLParen
	tokRParen
	tokAtom
	tokString
)

type token struct {
	kind int
	text string
	line int
}

type scanner struct {
	r    *bufio.Reader
	file string
	line int
}

func newScanner(r io.Reader, file string) *scanner {
	return &scanner{r: bufio.NewReader(r), file: file, line: 1}
}

func (s *scanner) errorf(line int, format string, args ...interface{}) error {
	return ParseError{File: s.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) next() (token, error) {
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			return token{kind: tokEOF, line: s.line}, nil
		} else if err != nil {
			return token{}, err
		}

		switch {
		case c == '\n':
			s.line++
		case c == ' ' || c == '\t' || c == '\r':
			// skip
		case c == ';':
			for {
				c, err = s.r.ReadByte()
				if err == io.EOF {
					return token{kind: tokEOF, line: s.line}, nil
				} else if err != nil {
					return token{}, err
				}
				if c == '\n' {
					s.line++
					break
				}
			}
		case c == '(':
			return token{kind: tokLParen, line: s.line}, nil
		case c == ')':
			return token{kind: tokRParen, line: s.line}, nil
		case c == '"':
			return s.scanString()
		default:
			return s.scanAtom(c)
		}
	}
}

func (s *scanner) scanString() (token, error) {
	start := s.line
	var sb strings.Builder
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			return token{}, s.errorf(start, "unterminated string")
		} else if err != nil {
			return token{}, err
		}
		switch c {
		case '"':
			return token{kind: tokString, text: sb.String(), line: start}, nil
		case '\\':
			e, err := s.r.ReadByte()
			if err != nil {
				return token{}, s.errorf(start, "unterminated string")
			}
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(e)
			}
		case '\n':
			s.line++
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
}

func (s *scanner) scanAtom(first byte) (token, error) {
	start := s.line
	var sb strings.Builder
	sb.WriteByte(first)
	for {
		c, err := s.r.ReadByte()
		if err == io.EOF {
			break
		} else if err != nil {
			return token{}, err
		}
		if c == '(' || c == ')' || c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ';' {
			s.r.UnreadByte()
			break
		}
		sb.WriteByte(c)
	}
	return token{kind: tokAtom, text: sb.String(), line: start}, nil
}

// parser holds the per-file parse state.
type parser struct {
	s   *scanner
	ctx *Context
}

// Parse reads one source file from r into ctx. Includes are recorded on the
// context but not opened; callers drive the include loop (see ParseFile).
func Parse(ctx *Context, r io.Reader, file string) error {
	p := &parser{s: newScanner(r, file), ctx: ctx}
	for {
		tok, err := p.s.next()
		if err != nil {
			return err
		}
		switch tok.kind {
		case tokEOF:
			return nil
		case tokLParen:
			if err := p.parseTopLevel(); err != nil {
				return err
			}
		default:
			return p.s.errorf(tok.line, "expected '(', got %q", tok.text)
		}
	}
}

// ParseFile parses the file at the given path, then every file it includes,
// transitively. Include paths resolve relative to the including file.
func ParseFile(ctx *Context, name string) error {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if ctx.parsedFiles[name] {
		return nil
	}
	ctx.parsedFiles[name] = true

	f, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "bt: unable to open %q for reading", name)
	}
	err = Parse(ctx, f, name)
	f.Close()
	if err != nil {
		return err
	}

	// ctx.Includes grows while we iterate; new entries are picked up.
	for i := 0; i < len(ctx.Includes); i++ {
		if err := ParseFile(ctx, ctx.Includes[i].Name); err != nil {
			return err
		}
	}
	return nil
}

// TranslateInclude resolves an include path relative to the file the
// directive appeared in.
func TranslateInclude(parent, include string) string {
	include = strings.ReplaceAll(include, "\\", "/")
	dir := path.Dir(strings.ReplaceAll(parent, "\\", "/"))
	if dir == "." {
		return path.Clean(include)
	}
	return path.Join(dir, include)
}

func (p *parser) parseTopLevel() error {
	tok, err := p.s.next()
	if err != nil {
		return err
	}
	if tok.kind != tokAtom {
		return p.s.errorf(tok.line, "expected a form name")
	}

	switch tok.text {
	case "options":
		opts, err := p.parseParams()
		if err != nil {
			return err
		}
		p.ctx.Options = append(p.ctx.Options, opts...)
		return nil
	case "include":
		return p.parseInclude(tok.line)
	case "defact":
		return p.parseSymbolDecl(SymbolAction)
	case "defdec":
		return p.parseSymbolDecl(SymbolDecorator)
	case "deftree":
		return p.parseTree(tok.line)
	}
	return p.s.errorf(tok.line, "unknown form %q", tok.text)
}

func (p *parser) parseInclude(line int) error {
	tok, err := p.s.next()
	if err != nil {
		return err
	}
	if tok.kind != tokString {
		return p.s.errorf(tok.line, "include expects a string path")
	}
	if err := p.expectRParen(); err != nil {
		return err
	}
	p.ctx.Includes = append(p.ctx.Includes, Include{
		Name:   TranslateInclude(p.s.file, tok.text),
		Parent: p.s.file,
		Line:   line,
	})
	return nil
}

func (p *parser) parseSymbolDecl(kind SymbolKind) error {
	tok, err := p.s.next()
	if err != nil {
		return err
	}
	if tok.kind != tokAtom {
		return p.s.errorf(tok.line, "%s declaration expects a name", kind)
	}
	opts, err := p.parseParams()
	if err != nil {
		return err
	}
	sym := &Symbol{
		Kind:     kind,
		Name:     tok.text,
		Hash:     lookup3.HashLittle(tok.text),
		Declared: true,
		Options:  opts,
	}
	p.ctx.RegisterSymbol(sym)
	logger.Printf("declared %s %q (%#08x)", kind, sym.Name, sym.Hash)
	return nil
}

func (p *parser) parseTree(line int) error {
	tok, err := p.s.next()
	if err != nil {
		return err
	}
	if tok.kind != tokAtom {
		return p.s.errorf(tok.line, "deftree expects a name")
	}
	name := tok.text

	open, err := p.s.next()
	if err != nil {
		return err
	}
	if open.kind != tokLParen {
		return p.s.errorf(open.line, "deftree %q expects a root node", name)
	}
	root, err := p.parseNode()
	if err != nil {
		return err
	}
	if err := p.expectRParen(); err != nil {
		return err
	}

	h := lookup3.HashLittle(name)
	for _, t := range p.ctx.Trees {
		if t.Hash == h {
			return p.s.errorf(line, "tree %q is defined twice", name)
		}
	}
	p.ctx.Trees = append(p.ctx.Trees, &NamedTree{Name: name, Hash: h, Root: root})
	return nil
}

var nodeKinds = map[string]NodeKind{
	"sequence":     KindSequence,
	"selector":     KindSelector,
	"parallel":     KindParallel,
	"dyn_selector": KindDynSelector,
	"decorator":    KindDecorator,
	"action":       KindAction,
	"succeed":      KindSucceed,
	"fail":         KindFail,
	"work":         KindWork,
}

// parseNode parses a node form after its opening '(' has been consumed.
func (p *parser) parseNode() (*Node, error) {
	tok, err := p.s.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokAtom {
		return nil, p.s.errorf(tok.line, "expected a node kind")
	}
	kind, ok := nodeKinds[tok.text]
	if !ok {
		return nil, p.s.errorf(tok.line, "unknown node kind %q", tok.text)
	}

	name, err := p.s.next()
	if err != nil {
		return nil, err
	}
	if name.kind != tokAtom {
		return nil, p.s.errorf(name.line, "%s node expects a name", tok.text)
	}
	n := NewNode(kind, name.text)
	n.Line = name.line

	// action and decorator nodes reference a declared symbol by name
	if kind == KindAction || kind == KindDecorator {
		symTok, err := p.s.next()
		if err != nil {
			return nil, err
		}
		if symTok.kind != tokAtom {
			return nil, p.s.errorf(symTok.line, "%s node expects a symbol name", tok.text)
		}
		symKind := SymbolAction
		if kind == KindDecorator {
			symKind = SymbolDecorator
		}
		sym := p.ctx.RegisterSymbol(&Symbol{
			Kind: symKind,
			Name: symTok.text,
			Hash: lookup3.HashLittle(symTok.text),
		})
		n.Symbol = sym
		n.Declared = sym.Declared
	}

	for {
		tok, err := p.s.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokRParen:
			if n.Kind == KindAction && !n.Declared {
				logger.Printf("action node %q references undeclared symbol %q", n.Name, n.Symbol.Name)
			}
			return n, nil
		case tokLParen:
			c, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			n.AddChild(c)
		default:
			return nil, p.s.errorf(tok.line, "unexpected %q in node body", tok.text)
		}
	}
}

// parseParams parses zero or more (key value) pairs followed by the closing
// ')' of the surrounding form.
func (p *parser) parseParams() (ParameterList, error) {
	var list ParameterList
	for {
		tok, err := p.s.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokRParen:
			return list, nil
		case tokLParen:
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			list = append(list, param)
		default:
			return nil, p.s.errorf(tok.line, "expected a (key value) pair")
		}
	}
}

func (p *parser) parseParam() (Parameter, error) {
	key, err := p.s.next()
	if err != nil {
		return Parameter{}, err
	}
	if key.kind != tokAtom {
		return Parameter{}, p.s.errorf(key.line, "expected a parameter key")
	}

	val, err := p.s.next()
	if err != nil {
		return Parameter{}, err
	}
	param := Parameter{Key: key.text, Hash: lookup3.HashLittle(key.text)}
	switch val.kind {
	case tokString:
		param.Value = val.text
	case tokAtom:
		switch val.text {
		case "true":
			param.Value = true
		case "false":
			param.Value = false
		default:
			i, err := strconv.ParseInt(val.text, 0, 64)
			if err != nil {
				return Parameter{}, p.s.errorf(val.line, "invalid parameter value %q", val.text)
			}
			param.Value = i
		}
	default:
		return Parameter{}, p.s.errorf(val.line, "missing value for parameter %q", key.text)
	}

	if err := p.expectRParen(); err != nil {
		return Parameter{}, err
	}
	return param, nil
}

func (p *parser) expectRParen() error {
	tok, err := p.s.next()
	if err != nil {
		return err
	}
	if tok.kind != tokRParen {
		return p.s.errorf(tok.line, "expected ')'")
	}
	return nil
}
