// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbgen

import "github.com/calltree/ctc/callback"

// InstList is the instruction section of a program under construction: an
// append-log of instruction words with random write access to the three
// address fields, so jumps can be patched once their target is known.
// Indices returned by Push are stable for the life of the program.
type InstList struct {
	insts []callback.Instruction
}

// Push appends an instruction and returns its index.
func (l *InstList) Push(op callback.Opcode, a1, a2, a3 uint32) int {
	l.insts = append(l.insts, callback.Instruction{Op: op, A1: a1, A2: a2, A3: a3})
	return len(l.insts) - 1
}

// Count returns the number of instructions pushed so far, which is also the
// index the next Push will return.
func (l *InstList) Count() int {
	return len(l.insts)
}

// SetA1 overwrites the first argument of the instruction at idx.
func (l *InstList) SetA1(idx int, v uint32) {
	l.insts[idx].A1 = v
}

// SetA2 overwrites the second argument of the instruction at idx.
func (l *InstList) SetA2(idx int, v uint32) {
	l.insts[idx].A2 = v
}

// SetA3 overwrites the third argument of the instruction at idx.
func (l *InstList) SetA3(idx int, v uint32) {
	l.insts[idx].A3 = v
}

// Instructions returns the instruction stream. The returned slice is the
// list's backing store; callers must not grow it.
func (l *InstList) Instructions() []callback.Instruction {
	return l.insts
}
