// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cbgen lowers a behavior tree into a callback VM program: a flat
// instruction stream with absolute, patched jumps, plus a zero-initialized
// data segment holding each composite's persistent state (re-entry pointers,
// jump-back targets, counters).
package cbgen

import (
	"github.com/calltree/ctc/bt"
	"github.com/calltree/ctc/callback"
)

// Program owns everything emitted during generation: the instruction list,
// the BSS segment cursor and the debug scope stream.
type Program struct {
	Inst InstList
	Bss  BssSection

	Debug []callback.DebugScope

	genDebug   bool
	openScopes []int // indices into Debug of the not yet closed scopes
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// SetGenerateDebugInfo switches emission of the debug scope table. Flip it
// before generation starts; the stream is suppressed entirely when off.
func (p *Program) SetGenerateDebugInfo(enable bool) {
	p.genDebug = enable
}

// GenerateDebugInfo reports whether debug scopes are being recorded.
func (p *Program) GenerateDebugInfo() bool {
	return p.genDebug
}

// PushDebugScope opens a debug scope for n's given phase at the current
// instruction count.
func (p *Program) PushDebugScope(n *bt.Node, phase callback.Phase) {
	if !p.genDebug {
		return
	}
	p.openScopes = append(p.openScopes, len(p.Debug))
	p.Debug = append(p.Debug, callback.DebugScope{
		Open:   uint32(p.Inst.Count()),
		Close:  callback.UninitializedAddr,
		NodeID: n.ID,
		Phase:  phase,
	})
}

// PopDebugScope closes the innermost open scope, which must belong to n and
// phase; pushes and pops follow stack discipline.
func (p *Program) PopDebugScope(n *bt.Node, phase callback.Phase) {
	if !p.genDebug {
		return
	}
	if len(p.openScopes) == 0 {
		logger.Printf("unbalanced debug scope pop for node %#08x (%s)", n.ID, phase)
		return
	}
	idx := p.openScopes[len(p.openScopes)-1]
	p.openScopes = p.openScopes[:len(p.openScopes)-1]
	scope := &p.Debug[idx]
	if scope.NodeID != n.ID || scope.Phase != phase {
		logger.Printf("debug scope mismatch: closing %#08x/%s over %#08x/%s",
			n.ID, phase, scope.NodeID, scope.Phase)
	}
	scope.Close = uint32(p.Inst.Count())
}
