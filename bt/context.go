// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bt

import "github.com/calltree/ctc/bt/lookup3"

// Parameter is one key/value option pair from the source. Keys are looked up
// by hash, matching the compiled format's convention.
type Parameter struct {
	Key   string
	Hash  uint32
	Value interface{} // string, int64 or bool
}

// AsInt returns the parameter value as an integer. Booleans convert to 0/1.
func (p *Parameter) AsInt() (int64, bool) {
	switch v := p.Value.(type) {
	case int64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsBool returns the parameter value as a boolean. Integers convert with the
// usual non-zero rule.
func (p *Parameter) AsBool() (bool, bool) {
	switch v := p.Value.(type) {
	case bool:
		return v, true
	case int64:
		return v != 0, true
	}
	return false, false
}

// AsString returns the parameter value as a string.
func (p *Parameter) AsString() (string, bool) {
	v, ok := p.Value.(string)
	return v, ok
}

// ParameterList is an ordered set of parameters.
type ParameterList []Parameter

// FindByHash returns the first parameter whose key hashes to h, or nil.
func (l ParameterList) FindByHash(h uint32) *Parameter {
	for i := range l {
		if l[i].Hash == h {
			return &l[i]
		}
	}
	return nil
}

// Find returns the first parameter with the given key, or nil.
func (l ParameterList) Find(key string) *Parameter {
	return l.FindByHash(lookup3.HashLittle(key))
}

// SymbolKind discriminates declared symbols.
type SymbolKind int

const (
	SymbolAction SymbolKind = iota
	SymbolDecorator
)

func (k SymbolKind) String() string {
	if k == SymbolDecorator {
		return "decorator"
	}
	return "action"
}

// Symbol is a declared action or decorator, referenced by name from nodes.
type Symbol struct {
	Kind     SymbolKind
	Name     string
	Hash     uint32
	Declared bool
	Options  ParameterList
}

// Include records one (include "...") directive.
type Include struct {
	Name   string // resolved path
	Parent string // file the directive appeared in
	Line   int
}

// NamedTree is one (deftree ...) definition.
type NamedTree struct {
	Name string
	Hash uint32
	Root *Node
}

// Context is a parsed translation unit: tree-level options, the include
// list, the symbol table and the named trees, in declaration order.
type Context struct {
	Options  ParameterList
	Includes []Include
	Symbols  []*Symbol
	Trees    []*NamedTree

	symbolIndex map[uint32]*Symbol
	parsedFiles map[string]bool
}

// NewContext returns an empty translation unit.
func NewContext() *Context {
	return &Context{
		symbolIndex: make(map[uint32]*Symbol),
		parsedFiles: make(map[string]bool),
	}
}

// LookupSymbol returns the symbol with the given name hash, or nil.
func (c *Context) LookupSymbol(hash uint32) *Symbol {
	return c.symbolIndex[hash]
}

// RegisterSymbol adds sym to the symbol table. A previously referenced,
// undeclared symbol of the same hash is upgraded in place so earlier
// references become declared.
func (c *Context) RegisterSymbol(sym *Symbol) *Symbol {
	if prev, ok := c.symbolIndex[sym.Hash]; ok {
		if sym.Declared && !prev.Declared {
			prev.Declared = true
			prev.Kind = sym.Kind
			prev.Options = sym.Options
			for _, t := range c.Trees {
				t.Root.Visit(func(n *Node) error {
					if n.Symbol == prev {
						n.Declared = true
					}
					return nil
				})
			}
		}
		return prev
	}
	c.symbolIndex[sym.Hash] = sym
	c.Symbols = append(c.Symbols, sym)
	return sym
}

// Tree returns the named tree, or nil. An empty name returns the first
// definition.
func (c *Context) Tree(name string) *NamedTree {
	if len(c.Trees) == 0 {
		return nil
	}
	if name == "" {
		return c.Trees[0]
	}
	h := lookup3.HashLittle(name)
	for _, t := range c.Trees {
		if t.Hash == h {
			return t
		}
	}
	return nil
}
