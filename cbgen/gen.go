// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbgen

import (
	"github.com/calltree/ctc/bt"
	"github.com/calltree/ctc/callback"
)

// Generator drives lowering of one tree into one program. The flow is a
// strict three-pass pipeline: Setup allocates BSS slots and scratchpads,
// Generate emits the root's construct, execute and destruct blocks, and
// Teardown releases the scratchpads. Scratchpads only exist between Setup
// and Teardown.
type Generator struct {
	p       *Program
	scratch map[*bt.Node]interface{}
}

// NewGenerator returns a generator emitting into p.
func NewGenerator(p *Program) *Generator {
	return &Generator{p: p}
}

// Setup walks the tree and reserves each node's persistent BSS slots. It
// must run before Generate; the BSS segment does not grow afterwards.
func (g *Generator) Setup(root *bt.Node) error {
	g.scratch = make(map[*bt.Node]interface{})
	return g.genSetup(root)
}

// Generate emits the program: the root's construct, execute and destruct
// blocks, each terminated by a halt so the host can locate them, the last
// halt ending the program. The first error from any emitter aborts
// generation; the program contents are then unusable.
func (g *Generator) Generate(root *bt.Node) error {
	if g.scratch == nil {
		panic("cbgen: Generate called before Setup")
	}
	p := g.p

	if err := g.genCon(root); err != nil {
		return err
	}
	p.Inst.Push(callback.OpHalt, 0, 0, 0)

	if err := g.genExe(root); err != nil {
		return err
	}
	p.Inst.Push(callback.OpHalt, 0, 0, 0)

	if err := g.genDes(root); err != nil {
		return err
	}
	p.Inst.Push(callback.OpHalt, 0, 0, 0)

	logger.Printf("generated %d instructions, %d bytes of bss", p.Inst.Count(), p.Bss.Size())
	return nil
}

// Teardown releases every scratchpad. It runs on success and failure paths
// alike.
func (g *Generator) Teardown(root *bt.Node) {
	g.scratch = nil
}

// GenerateTree runs the full setup/generate/teardown pipeline for root,
// emitting into p.
func GenerateTree(p *Program, root *bt.Node) error {
	g := NewGenerator(p)
	if err := g.Setup(root); err != nil {
		g.Teardown(root)
		return err
	}
	err := g.Generate(root)
	g.Teardown(root)
	return err
}
