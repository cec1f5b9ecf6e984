// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bt holds the behavior-tree intermediate representation produced by
// the parser and consumed by the code generator.
package bt

import "github.com/calltree/ctc/bt/lookup3"

// NodeKind discriminates the variants of a behavior-tree node.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindSequence
	KindSelector
	KindParallel
	KindDynSelector
	KindDecorator
	KindAction
	KindSucceed
	KindFail
	KindWork
)

var kindNames = map[NodeKind]string{
	KindUnknown:     "unknown",
	KindSequence:    "sequence",
	KindSelector:    "selector",
	KindParallel:    "parallel",
	KindDynSelector: "dyn_selector",
	KindDecorator:   "decorator",
	KindAction:      "action",
	KindSucceed:     "succeed",
	KindFail:        "fail",
	KindWork:        "work",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "nodekind(?)"
}

// Node is one node of a behavior tree. Children are ordered and owned by
// their parent; Parent is a back-reference for diagnostics.
type Node struct {
	ID       uint32 // hash of Name
	Name     string
	Kind     NodeKind
	Declared bool

	Parent   *Node
	Children []*Node

	// Symbol is the referenced action or decorator symbol, set only for
	// KindAction and KindDecorator nodes.
	Symbol *Symbol

	// Params are kind-specific parameters from the source.
	Params ParameterList

	// Line is the source line the node was parsed from.
	Line int
}

// NewNode creates a declared node with the given kind and name. The node id
// is the lookup3 hash of the name.
func NewNode(kind NodeKind, name string) *Node {
	return &Node{
		ID:       lookup3.HashLittle(name),
		Name:     name,
		Kind:     kind,
		Declared: true,
	}
}

// AddChild appends c to n's children and sets the parent back-reference.
func (n *Node) AddChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// FirstChild returns the first child, or nil for a leaf.
func (n *Node) FirstChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Visit calls fn for n and every node below it, depth first, stopping at the
// first error.
func (n *Node) Visit(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Visit(fn); err != nil {
			return err
		}
	}
	return nil
}
