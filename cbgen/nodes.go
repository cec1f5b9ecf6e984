// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbgen

import (
	"github.com/calltree/ctc/bt"
	"github.com/calltree/ctc/callback"
)

const uninit = callback.UninitializedAddr

// patchList collects indices of jump instructions whose target field is
// filled in once the destination address is known.
type patchList []int

// compositeScratch is the per-node state of a sequence or selector: two
// 4-byte BSS slots allocated during setup.
type compositeScratch struct {
	jumpBack uint32 // destruct entry of the last reached child, or uninit
	reEntry  uint32 // resume address after a RUNNING tick, or uninit
}

// parallelScratch is the per-node state of a parallel composite.
type parallelScratch struct {
	successCounter uint32
}

// compositePolicy is what distinguishes a sequence from a selector: the
// child result that ends the walk early, and the result stored at the
// early-exit tail. A sequence walks on while children succeed and fails on
// the first non-success; a selector walks on while children fail and
// succeeds on the first success.
type compositePolicy struct {
	exitOp     callback.Opcode     // jump op comparing the return register to SUCCESS
	tailResult callback.NodeReturn // stored when that jump is taken
}

var (
	sequencePolicy = compositePolicy{exitOp: callback.OpJabcRDiffC, tailResult: callback.NodeFail}
	selectorPolicy = compositePolicy{exitOp: callback.OpJabcREquaC, tailResult: callback.NodeSuccess}
)

// genSetup allocates BSS slots and scratchpads for n's subtree. It is the
// only place the BSS segment grows.
func (g *Generator) genSetup(n *bt.Node) error {
	switch n.Kind {
	case bt.KindSequence, bt.KindSelector:
		jumpBack, err := g.p.Bss.Push(4, 4)
		if err != nil {
			return err
		}
		reEntry, err := g.p.Bss.Push(4, 4)
		if err != nil {
			return err
		}
		g.scratch[n] = &compositeScratch{jumpBack: jumpBack, reEntry: reEntry}
	case bt.KindParallel:
		counter, err := g.p.Bss.Push(4, 4)
		if err != nil {
			return err
		}
		g.scratch[n] = &parallelScratch{successCounter: counter}
	}
	for _, c := range n.Children {
		if err := g.genSetup(c); err != nil {
			return err
		}
	}
	return nil
}

// genCon dispatches construction-code emission by node kind.
func (g *Generator) genCon(n *bt.Node) error {
	if !n.Declared {
		return UndeclaredNodeError{Node: n}
	}
	switch n.Kind {
	case bt.KindSequence, bt.KindSelector:
		return g.genConComposite(n)
	case bt.KindParallel:
		return g.genConParallel(n)
	case bt.KindAction:
		return g.genConAction(n)
	case bt.KindSucceed, bt.KindFail:
		return nil
	}
	return UnsupportedKindError{Node: n}
}

// genExe dispatches execution-code emission by node kind.
func (g *Generator) genExe(n *bt.Node) error {
	if !n.Declared {
		return UndeclaredNodeError{Node: n}
	}
	switch n.Kind {
	case bt.KindSequence:
		return g.genExeComposite(n, sequencePolicy)
	case bt.KindSelector:
		return g.genExeComposite(n, selectorPolicy)
	case bt.KindParallel:
		return g.genExeParallel(n)
	case bt.KindAction:
		return g.genExeAction(n)
	case bt.KindSucceed:
		return g.genExeConst(n, callback.NodeSuccess)
	case bt.KindFail:
		return g.genExeConst(n, callback.NodeFail)
	}
	return UnsupportedKindError{Node: n}
}

// genDes dispatches destruction-code emission by node kind.
func (g *Generator) genDes(n *bt.Node) error {
	if !n.Declared {
		return UndeclaredNodeError{Node: n}
	}
	switch n.Kind {
	case bt.KindSequence, bt.KindSelector:
		return g.genDesComposite(n)
	case bt.KindParallel:
		return g.genDesParallel(n)
	case bt.KindAction:
		return g.genDesAction(n)
	case bt.KindSucceed, bt.KindFail:
		return nil
	}
	return UnsupportedKindError{Node: n}
}

/*
 * Sequence / Selector
 */

func (g *Generator) genConComposite(n *bt.Node) error {
	sc := g.scratch[n].(*compositeScratch)
	p := g.p
	p.PushDebugScope(n, callback.PhaseConstruct)

	// both slots start uninitialized
	p.Inst.Push(callback.OpStoreCInB, sc.jumpBack, uninit, 0)
	p.Inst.Push(callback.OpStoreCInB, sc.reEntry, uninit, 0)

	p.PopDebugScope(n, callback.PhaseConstruct)
	return nil
}

func (g *Generator) genExeComposite(n *bt.Node, policy compositePolicy) error {
	sc := g.scratch[n].(*compositeScratch)
	p := g.p
	p.PushDebugScope(n, callback.PhaseExecute)

	var exitRunning, exitEnd, destJumps patchList

	// resume directly at the stored re-entry point if the previous tick
	// left a child RUNNING
	p.Inst.Push(callback.OpJabbCDiffB, sc.reEntry, uninit, sc.reEntry)

	for _, c := range n.Children {
		if err := g.genCon(c); err != nil {
			return err
		}

		// re-entry resumes after this child's construction
		p.Inst.Push(callback.OpStoreCInB, sc.reEntry, uint32(p.Inst.Count()+1), 0)

		if err := g.genExe(c); err != nil {
			return err
		}

		// destruct entry of this child; the target constant is patched when
		// the destruct block is emitted below
		destJumps = append(destJumps, p.Inst.Push(callback.OpStoreCInB, sc.jumpBack, uninit, 0))

		// suspend: jumpBack stays set so a later destruct pass unwinds this
		// child
		exitRunning = append(exitRunning, p.Inst.Push(callback.OpJabcREquaC, uninit, uint32(callback.NodeRunning), 0))

		// run this child's destruct inline, linking back to the next
		// instruction
		idx := p.Inst.Count()
		destJumps = append(destJumps, p.Inst.Push(callback.OpJabcSCInB, uninit, sc.jumpBack, uint32(idx+1)))

		// end the walk early depending on the child's result
		exitEnd = append(exitEnd, p.Inst.Push(policy.exitOp, uninit, uint32(callback.NodeSuccess), 0))
	}

	// fell through every child: skip the destruct blocks, the register
	// already holds the overall result
	skip := p.Inst.Push(callback.OpJabcConstant, uninit, 0, 0)

	// destruct blocks, one per child, each returning through jumpBack and
	// resetting it
	for i, c := range n.Children {
		p.Inst.SetA2(destJumps[i*2], uint32(p.Inst.Count()))
		p.Inst.SetA1(destJumps[i*2+1], uint32(p.Inst.Count()))
		if err := g.genDes(c); err != nil {
			return err
		}
		p.Inst.Push(callback.OpJabbSCInB, sc.jumpBack, sc.jumpBack, uninit)
	}

	// early-exit tail
	tail := p.Inst.Push(callback.OpStoreCInR, uint32(policy.tailResult), 0, 0)
	p.Inst.SetA1(skip, uint32(p.Inst.Count()))

	// the node is done, clear re-entry; RUNNING exits keep it set by
	// jumping past this store
	p.Inst.Push(callback.OpStoreCInB, sc.reEntry, uninit, 0)

	for _, idx := range exitEnd {
		p.Inst.SetA1(idx, uint32(tail))
	}
	runningPoint := uint32(p.Inst.Count())
	for _, idx := range exitRunning {
		p.Inst.SetA1(idx, runningPoint)
	}

	p.PopDebugScope(n, callback.PhaseExecute)
	return nil
}

func (g *Generator) genDesComposite(n *bt.Node) error {
	sc := g.scratch[n].(*compositeScratch)
	p := g.p
	p.PushDebugScope(n, callback.PhaseDestruct)

	// nothing to unwind if jumpBack was never set
	p.Inst.Push(callback.OpJabcCEquaB, uint32(p.Inst.Count()+2), uninit, sc.jumpBack)
	// run the reached child's destruct, linking back to the instruction
	// after this block
	p.Inst.Push(callback.OpJabbSCInB, sc.jumpBack, sc.jumpBack, uint32(p.Inst.Count()+1))

	p.PopDebugScope(n, callback.PhaseDestruct)
	return nil
}

/*
 * Parallel
 */

func (g *Generator) genConParallel(n *bt.Node) error {
	p := g.p
	p.PushDebugScope(n, callback.PhaseConstruct)
	for _, c := range n.Children {
		if err := g.genCon(c); err != nil {
			return err
		}
	}
	p.PopDebugScope(n, callback.PhaseConstruct)
	return nil
}

func (g *Generator) genExeParallel(n *bt.Node) error {
	sc := g.scratch[n].(*parallelScratch)
	p := g.p
	p.PushDebugScope(n, callback.PhaseExecute)

	p.Inst.Push(callback.OpStoreCInB, sc.successCounter, 0, 0)

	var exitFail patchList
	for _, c := range n.Children {
		if err := g.genExe(c); err != nil {
			return err
		}

		// one failing child fails the whole parallel
		exitFail = append(exitFail, p.Inst.Push(callback.OpJabcREquaC, uninit, uint32(callback.NodeFail), 0))

		// count successful children, skipping the increment when RUNNING
		p.Inst.Push(callback.OpJabcRDiffC, uint32(p.Inst.Count()+2), uint32(callback.NodeSuccess), 0)
		p.Inst.Push(callback.OpIncBss, sc.successCounter, 1, 0)
	}

	// RUNNING until every child succeeded in the same tick
	p.Inst.Push(callback.OpStoreCInR, uint32(callback.NodeRunning), 0, 0)
	p.Inst.Push(callback.OpJabcCDiffB, uint32(p.Inst.Count()+2), uint32(len(n.Children)), sc.successCounter)
	p.Inst.Push(callback.OpStoreCInR, uint32(callback.NodeSuccess), 0, 0)

	exitPoint := uint32(p.Inst.Count())
	for _, idx := range exitFail {
		p.Inst.SetA1(idx, exitPoint)
	}

	p.PopDebugScope(n, callback.PhaseExecute)
	return nil
}

func (g *Generator) genDesParallel(n *bt.Node) error {
	p := g.p
	p.PushDebugScope(n, callback.PhaseDestruct)
	for _, c := range n.Children {
		if err := g.genDes(c); err != nil {
			return err
		}
	}
	p.PopDebugScope(n, callback.PhaseDestruct)
	return nil
}

/*
 * Action
 */

// ActionID returns the callback dispatch id of an action or decorator
// symbol: the integer "id" option when present, the name hash otherwise.
// Generated headers expose the same value.
func ActionID(sym *bt.Symbol) uint32 {
	if param := sym.Options.Find("id"); param != nil {
		if v, ok := param.AsInt(); ok {
			return uint32(v)
		}
	}
	return sym.Hash
}

func (g *Generator) genConAction(n *bt.Node) error {
	p := g.p
	p.PushDebugScope(n, callback.PhaseConstruct)
	p.Inst.Push(callback.OpCallConsFun, ActionID(n.Symbol), 0, 0)
	p.PopDebugScope(n, callback.PhaseConstruct)
	return nil
}

func (g *Generator) genExeAction(n *bt.Node) error {
	p := g.p
	p.PushDebugScope(n, callback.PhaseExecute)
	p.Inst.Push(callback.OpCallExecFun, ActionID(n.Symbol), 0, 0)
	p.PopDebugScope(n, callback.PhaseExecute)
	return nil
}

func (g *Generator) genDesAction(n *bt.Node) error {
	p := g.p
	p.PushDebugScope(n, callback.PhaseDestruct)
	p.Inst.Push(callback.OpCallDestFun, ActionID(n.Symbol), 0, 0)
	p.PopDebugScope(n, callback.PhaseDestruct)
	return nil
}

/*
 * Succeed / Fail
 */

func (g *Generator) genExeConst(n *bt.Node, result callback.NodeReturn) error {
	p := g.p
	p.PushDebugScope(n, callback.PhaseExecute)
	p.Inst.Push(callback.OpStoreCInR, uint32(result), 0, 0)
	p.PopDebugScope(n, callback.PhaseExecute)
	return nil
}
