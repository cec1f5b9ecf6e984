// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbgen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calltree/ctc/bt"
	"github.com/calltree/ctc/bt/lookup3"
	"github.com/calltree/ctc/callback"
)

func actionNode(name, symbol string) *bt.Node {
	n := bt.NewNode(bt.KindAction, name)
	n.Symbol = &bt.Symbol{
		Kind:     bt.SymbolAction,
		Name:     symbol,
		Hash:     lookup3.HashLittle(symbol),
		Declared: true,
	}
	return n
}

func composite(kind bt.NodeKind, name string, children ...*bt.Node) *bt.Node {
	n := bt.NewNode(kind, name)
	for _, c := range children {
		n.AddChild(c)
	}
	return n
}

func generate(t *testing.T, root *bt.Node) *Program {
	t.Helper()
	p := NewProgram()
	require.NoError(t, GenerateTree(p, root))
	return p
}

func TestEmptySequence(t *testing.T) {
	p := generate(t, composite(bt.KindSequence, "empty"))

	const uninit = callback.UninitializedAddr
	want := []callback.Instruction{
		// construct: both scratch slots start uninitialized
		{Op: callback.OpStoreCInB, A1: 0, A2: uninit},
		{Op: callback.OpStoreCInB, A1: 4, A2: uninit},
		{Op: callback.OpHalt},
		// execute: re-entry test, success skip, fail tail, re-entry clear
		{Op: callback.OpJabbCDiffB, A1: 4, A2: uninit, A3: 4},
		{Op: callback.OpJabcConstant, A1: 6},
		{Op: callback.OpStoreCInR, A1: uint32(callback.NodeFail)},
		{Op: callback.OpStoreCInB, A1: 4, A2: uninit},
		{Op: callback.OpHalt},
		// destruct: guarded jump-back
		{Op: callback.OpJabcCEquaB, A1: 10, A2: uninit, A3: 0},
		{Op: callback.OpJabbSCInB, A1: 0, A2: 0, A3: 10},
		{Op: callback.OpHalt},
	}
	require.Equal(t, want, p.Inst.Instructions())
	require.Equal(t, uint32(8), p.Bss.Size())
}

func TestSequenceTwoChildren(t *testing.T) {
	p := generate(t, composite(bt.KindSequence, "top",
		actionNode("a", "first"),
		actionNode("b", "second")))

	insts := p.Inst.Instructions()
	require.Len(t, insts, 29)

	// re-entry always points at the instruction after the child's construct
	require.Equal(t, callback.Instruction{Op: callback.OpStoreCInB, A1: 4, A2: 6}, insts[5])
	require.Equal(t, callback.Instruction{Op: callback.OpStoreCInB, A1: 4, A2: 13}, insts[12])

	// each child's destruct-entry store and destruct jump were patched to
	// the child's destruct block
	require.Equal(t, uint32(19), insts[7].A2)
	require.Equal(t, uint32(19), insts[9].A1)
	require.Equal(t, callback.Instruction{Op: callback.OpCallDestFun, A1: lookup3.HashLittle("first")}, insts[19])
	require.Equal(t, uint32(21), insts[14].A2)
	require.Equal(t, uint32(21), insts[16].A1)

	// exit-fail jumps land on the fail tail, the success skip lands past it
	require.Equal(t, callback.Instruction{Op: callback.OpStoreCInR, A1: uint32(callback.NodeFail)}, insts[23])
	require.Equal(t, uint32(23), insts[10].A1)
	require.Equal(t, uint32(23), insts[17].A1)
	require.Equal(t, callback.Instruction{Op: callback.OpJabcConstant, A1: 24}, insts[18])

	// exit-running jumps land after the re-entry clear, keeping it set
	require.Equal(t, uint32(25), insts[8].A1)
	require.Equal(t, uint32(25), insts[15].A1)
	require.Equal(t, callback.Opcode(callback.OpHalt), insts[25].Op)
}

func TestSelectorInvertsPolicy(t *testing.T) {
	p := generate(t, composite(bt.KindSelector, "pick",
		actionNode("a", "first"),
		actionNode("b", "second")))

	insts := p.Inst.Instructions()

	// the early-exit jump tests for SUCCESS instead of not-SUCCESS
	require.Equal(t, callback.Opcode(callback.OpJabcREquaC), insts[10].Op)
	require.Equal(t, uint32(callback.NodeSuccess), insts[10].A2)

	// the tail result is SUCCESS
	require.Equal(t, callback.Instruction{Op: callback.OpStoreCInR, A1: uint32(callback.NodeSuccess)}, insts[23])
}

func TestParallel(t *testing.T) {
	p := generate(t, composite(bt.KindParallel, "both",
		actionNode("a", "first"),
		actionNode("b", "second"),
		actionNode("c", "third")))

	insts := p.Inst.Instructions()

	// construct and destruct are plain child concatenations
	require.Equal(t, callback.Opcode(callback.OpCallConsFun), insts[0].Op)
	require.Equal(t, callback.Opcode(callback.OpCallConsFun), insts[1].Op)
	require.Equal(t, callback.Opcode(callback.OpCallConsFun), insts[2].Op)
	require.Equal(t, callback.Opcode(callback.OpHalt), insts[3].Op)

	// execute zeroes the counter first
	require.Equal(t, callback.Instruction{Op: callback.OpStoreCInB, A1: 0, A2: 0}, insts[4])

	// per child: execute, fail short-circuit, skip-if-not-success, increment
	require.Equal(t, callback.Opcode(callback.OpCallExecFun), insts[5].Op)
	require.Equal(t, uint32(callback.NodeFail), insts[6].A2)
	require.Equal(t, callback.Instruction{Op: callback.OpJabcRDiffC, A1: 9, A2: uint32(callback.NodeSuccess)}, insts[7])
	require.Equal(t, callback.Instruction{Op: callback.OpIncBss, A1: 0, A2: 1}, insts[8])

	// tail: RUNNING unless the counter reached the child count
	require.Equal(t, callback.Instruction{Op: callback.OpStoreCInR, A1: uint32(callback.NodeRunning)}, insts[17])
	require.Equal(t, callback.Instruction{Op: callback.OpJabcCDiffB, A1: 20, A2: 3, A3: 0}, insts[18])
	require.Equal(t, callback.Instruction{Op: callback.OpStoreCInR, A1: uint32(callback.NodeSuccess)}, insts[19])

	// fail short-circuits land past the success store
	require.Equal(t, uint32(20), insts[6].A1)
	require.Equal(t, uint32(20), insts[10].A1)
	require.Equal(t, uint32(20), insts[14].A1)

	// one counter slot
	require.Equal(t, uint32(4), p.Bss.Size())
}

// assertNoDanglingPatches walks every instruction and requires that no
// address-kind field still holds the uninitialized sentinel.
func assertNoDanglingPatches(t *testing.T, p *Program) {
	t.Helper()
	for i, inst := range p.Inst.Instructions() {
		op, err := callback.New(inst.Op)
		require.NoError(t, err)
		args := [3]uint32{inst.A1, inst.A2, inst.A3}
		for j, kind := range op.Args {
			if kind == callback.ArgAddr {
				require.NotEqual(t, callback.UninitializedAddr, args[j],
					"instruction %d (%s) has a dangling address in a%d", i, op.Name, j+1)
			}
		}
	}
}

func TestNoDanglingPatches(t *testing.T) {
	root := composite(bt.KindSelector, "root",
		composite(bt.KindSequence, "walk_then_shoot",
			actionNode("w", "walk"),
			actionNode("s", "shoot")),
		composite(bt.KindParallel, "idle",
			actionNode("l", "look"),
			bt.NewNode(bt.KindSucceed, "ok")),
		bt.NewNode(bt.KindFail, "give_up"))

	p := generate(t, root)
	assertNoDanglingPatches(t, p)
}

func TestBssGrowsOnlyInSetup(t *testing.T) {
	root := composite(bt.KindSequence, "top",
		composite(bt.KindSelector, "inner", actionNode("a", "walk")),
		actionNode("b", "shoot"))

	p := NewProgram()
	g := NewGenerator(p)
	require.NoError(t, g.Setup(root))
	afterSetup := p.Bss.Size()
	require.Equal(t, uint32(16), afterSetup) // two composites, two slots each

	require.NoError(t, g.Generate(root))
	g.Teardown(root)
	require.Equal(t, afterSetup, p.Bss.Size())
}

func TestGenerateDeterministic(t *testing.T) {
	build := func() *bt.Node {
		return composite(bt.KindSequence, "top",
			actionNode("a", "walk"),
			composite(bt.KindParallel, "par",
				actionNode("b", "shoot"),
				actionNode("c", "look")))
	}

	var bufs [2]bytes.Buffer
	for i := range bufs {
		p := NewProgram()
		p.SetGenerateDebugInfo(true)
		require.NoError(t, GenerateTree(p, build()))
		require.NoError(t, p.Save(&bufs[i], false))
	}
	require.Equal(t, bufs[0].Bytes(), bufs[1].Bytes())
}

func TestUnsupportedKinds(t *testing.T) {
	for _, kind := range []bt.NodeKind{bt.KindDecorator, bt.KindDynSelector, bt.KindWork} {
		t.Run(kind.String(), func(t *testing.T) {
			p := NewProgram()
			err := GenerateTree(p, bt.NewNode(kind, "node"))
			require.Error(t, err)
			var uk UnsupportedKindError
			require.ErrorAs(t, err, &uk)

			// nothing was emitted or allocated
			require.Equal(t, 0, p.Inst.Count())
			require.Equal(t, uint32(0), p.Bss.Size())
			require.Empty(t, p.Debug)
		})
	}
}

func TestUndeclaredNode(t *testing.T) {
	n := actionNode("a", "ghost")
	n.Declared = false

	p := NewProgram()
	err := GenerateTree(p, composite(bt.KindSequence, "top", n))
	var un UndeclaredNodeError
	require.ErrorAs(t, err, &un)
	require.Same(t, n, un.Node)
}

func TestActionIDOption(t *testing.T) {
	sym := &bt.Symbol{
		Kind:     bt.SymbolAction,
		Name:     "walk",
		Hash:     lookup3.HashLittle("walk"),
		Declared: true,
		Options: bt.ParameterList{
			{Key: "id", Hash: lookup3.HashLittle("id"), Value: int64(7)},
		},
	}
	require.Equal(t, uint32(7), ActionID(sym))

	sym.Options = nil
	require.Equal(t, lookup3.HashLittle("walk"), ActionID(sym))
}
