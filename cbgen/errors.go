// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbgen

import (
	"fmt"

	"github.com/calltree/ctc/bt"
)

// UndeclaredNodeError is returned when generation reaches a node whose
// referenced symbol was never declared. The tree is not lowerable; there is
// no recovery.
type UndeclaredNodeError struct {
	Node *bt.Node
}

func (e UndeclaredNodeError) Error() string {
	return fmt.Sprintf("cbgen: node %q references an undeclared symbol", e.Node.Name)
}

// UnsupportedKindError is returned when no emitter exists for a node kind.
type UnsupportedKindError struct {
	Node *bt.Node
}

func (e UnsupportedKindError) Error() string {
	return fmt.Sprintf("cbgen: no code generator for %s node %q", e.Node.Kind, e.Node.Name)
}
