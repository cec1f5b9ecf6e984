// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate checks a parsed behavior tree for problems the code
// generator would otherwise trip over mid-emission.
package validate

import (
	"errors"
	"fmt"

	"github.com/calltree/ctc/bt"
)

// Error wraps a validation failure with the node it was found on.
type Error struct {
	Node *bt.Node
	Err  error
}

func (e Error) Error() string {
	return fmt.Sprintf("validate: node %q (line %d): %v", e.Node.Name, e.Node.Line, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// ErrUndeclaredSymbol is reported for action or decorator nodes whose
// symbol was referenced but never declared.
var ErrUndeclaredSymbol = errors.New("reference to undeclared symbol")

// ChildCountError is reported when a node has the wrong number of children
// for its kind.
type ChildCountError struct {
	Kind   bt.NodeKind
	Wanted int
	Got    int
}

func (e ChildCountError) Error() string {
	return fmt.Sprintf("%s node wants %d child node(s), has %d", e.Kind, e.Wanted, e.Got)
}

// DuplicateTreeError is reported when two trees share a name hash.
type DuplicateTreeError string

func (e DuplicateTreeError) Error() string {
	return fmt.Sprintf("validate: tree %q is defined more than once", string(e))
}

// Context checks every tree of a translation unit.
func Context(ctx *bt.Context) error {
	seen := make(map[uint32]string, len(ctx.Trees))
	for _, t := range ctx.Trees {
		if _, dup := seen[t.Hash]; dup {
			return DuplicateTreeError(t.Name)
		}
		seen[t.Hash] = t.Name
		if err := Root(t.Root); err != nil {
			return err
		}
	}
	return nil
}

// Root checks one tree, depth first, reporting the first problem found.
func Root(root *bt.Node) error {
	return root.Visit(func(n *bt.Node) error {
		if !n.Declared {
			return Error{Node: n, Err: ErrUndeclaredSymbol}
		}
		switch n.Kind {
		case bt.KindDecorator:
			if len(n.Children) != 1 {
				return Error{Node: n, Err: ChildCountError{Kind: n.Kind, Wanted: 1, Got: len(n.Children)}}
			}
		case bt.KindAction, bt.KindSucceed, bt.KindFail, bt.KindWork:
			if len(n.Children) != 0 {
				return Error{Node: n, Err: ChildCountError{Kind: n.Kind, Wanted: 0, Got: len(n.Children)}}
			}
		}
		return nil
	})
}
