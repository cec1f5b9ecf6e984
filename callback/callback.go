// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package callback defines the instruction set of the callback virtual
// machine that compiled behavior trees run on.
//
// An instruction is a fixed four-field word: a 16-bit opcode and three
// 32-bit arguments whose meaning depends on the opcode. Jump targets are
// absolute instruction indices; "BSS" arguments are byte offsets into the
// program's zero-initialized data segment; "R" is the virtual machine's
// single return register.
package callback

import "fmt"

// Opcode identifies a callback VM instruction.
type Opcode uint16

const (
	// OpCallConsFun invokes the construction callback of the action id in a1.
	OpCallConsFun Opcode = iota
	// OpCallExecFun invokes the execution callback of the action id in a1 and
	// stores its result in the return register.
	OpCallExecFun
	// OpCallDestFun invokes the destruction callback of the action id in a1.
	OpCallDestFun
	// OpJabcConstant jumps to the absolute address a1.
	OpJabcConstant
	// OpJabbConstant jumps to the absolute address stored in BSS[a1].
	OpJabbConstant
	// OpJabcREquaC jumps to a1 if the return register equals a2.
	OpJabcREquaC
	// OpJabcRDiffC jumps to a1 if the return register differs from a2.
	OpJabcRDiffC
	// OpJabcCEquaB jumps to a1 if the constant a2 equals BSS[a3].
	OpJabcCEquaB
	// OpJabcCDiffB jumps to a1 if the constant a2 differs from BSS[a3].
	OpJabcCDiffB
	// OpJabbCEquaB jumps to the address in BSS[a1] if a2 equals BSS[a3].
	OpJabbCEquaB
	// OpJabbCDiffB jumps to the address in BSS[a1] if a2 differs from BSS[a3].
	OpJabbCDiffB
	// OpJabcSCInB jumps to a1, storing the constant a3 into BSS[a2] whether
	// or not the jump is taken.
	OpJabcSCInB
	// OpJabbSCInB jumps to the address in BSS[a1], storing the constant a3
	// into BSS[a2].
	OpJabbSCInB
	// OpStoreRInB stores the return register into BSS[a1].
	OpStoreRInB
	// OpStoreBInR loads BSS[a1] into the return register.
	OpStoreBInR
	// OpStoreCInB stores the constant a2 into BSS[a1].
	OpStoreCInB
	// OpStoreCInR stores the constant a1 into the return register.
	OpStoreCInR
	// OpStoreBInB copies BSS[a2] into BSS[a1].
	OpStoreBInB
	// OpIncBss adds the constant a2 to BSS[a1].
	OpIncBss
	// OpDecBss subtracts the constant a2 from BSS[a1].
	OpDecBss
	// OpHalt stops the virtual machine.
	OpHalt

	opCount
)

// UninitializedAddr marks a jump target or stored address that has not been
// assigned yet. Jump-back and re-entry slots in BSS hold this value while
// they are unset; at the end of generation no jump-target field may still
// carry it.
const UninitializedAddr uint32 = 0xffffffff

// ArgKind describes how an instruction argument should be interpreted,
// primarily for disassembly.
type ArgKind byte

const (
	ArgNone  ArgKind = iota
	ArgAddr          // absolute instruction index
	ArgBss           // offset into the BSS segment
	ArgConst         // immediate constant
	ArgID            // node/action identifier hash
)

// Op describes an opcode, with the interpretation of its three arguments.
type Op struct {
	Code Opcode
	Name string
	Args [3]ArgKind
}

var ops = [opCount]Op{
	OpCallConsFun:  {OpCallConsFun, "call_cons_fun", [3]ArgKind{ArgID, ArgNone, ArgNone}},
	OpCallExecFun:  {OpCallExecFun, "call_exec_fun", [3]ArgKind{ArgID, ArgNone, ArgNone}},
	OpCallDestFun:  {OpCallDestFun, "call_dest_fun", [3]ArgKind{ArgID, ArgNone, ArgNone}},
	OpJabcConstant: {OpJabcConstant, "jabc_constant", [3]ArgKind{ArgAddr, ArgNone, ArgNone}},
	OpJabbConstant: {OpJabbConstant, "jabb_constant", [3]ArgKind{ArgBss, ArgNone, ArgNone}},
	OpJabcREquaC:   {OpJabcREquaC, "jabc_r_equa_c", [3]ArgKind{ArgAddr, ArgConst, ArgNone}},
	OpJabcRDiffC:   {OpJabcRDiffC, "jabc_r_diff_c", [3]ArgKind{ArgAddr, ArgConst, ArgNone}},
	OpJabcCEquaB:   {OpJabcCEquaB, "jabc_c_equa_b", [3]ArgKind{ArgAddr, ArgConst, ArgBss}},
	OpJabcCDiffB:   {OpJabcCDiffB, "jabc_c_diff_b", [3]ArgKind{ArgAddr, ArgConst, ArgBss}},
	OpJabbCEquaB:   {OpJabbCEquaB, "jabb_c_equa_b", [3]ArgKind{ArgBss, ArgConst, ArgBss}},
	OpJabbCDiffB:   {OpJabbCDiffB, "jabb_c_diff_b", [3]ArgKind{ArgBss, ArgConst, ArgBss}},
	OpJabcSCInB:    {OpJabcSCInB, "jabc_s_c_in_b", [3]ArgKind{ArgAddr, ArgBss, ArgConst}},
	OpJabbSCInB:    {OpJabbSCInB, "jabb_s_c_in_b", [3]ArgKind{ArgBss, ArgBss, ArgConst}},
	OpStoreRInB:    {OpStoreRInB, "store_r_in_b", [3]ArgKind{ArgBss, ArgNone, ArgNone}},
	OpStoreBInR:    {OpStoreBInR, "store_b_in_r", [3]ArgKind{ArgBss, ArgNone, ArgNone}},
	OpStoreCInB:    {OpStoreCInB, "store_c_in_b", [3]ArgKind{ArgBss, ArgConst, ArgNone}},
	OpStoreCInR:    {OpStoreCInR, "store_c_in_r", [3]ArgKind{ArgConst, ArgNone, ArgNone}},
	OpStoreBInB:    {OpStoreBInB, "store_b_in_b", [3]ArgKind{ArgBss, ArgBss, ArgNone}},
	OpIncBss:       {OpIncBss, "inc_bss", [3]ArgKind{ArgBss, ArgConst, ArgNone}},
	OpDecBss:       {OpDecBss, "dec_bss", [3]ArgKind{ArgBss, ArgConst, ArgNone}},
	OpHalt:         {OpHalt, "halt", [3]ArgKind{ArgNone, ArgNone, ArgNone}},
}

// InvalidOpcodeError is returned when an opcode outside the instruction set
// is looked up or executed.
type InvalidOpcodeError Opcode

func (e InvalidOpcodeError) Error() string {
	return fmt.Sprintf("callback: invalid opcode %#04x", uint16(e))
}

// New returns the Op describing the given opcode.
func New(code Opcode) (Op, error) {
	if code >= opCount {
		return Op{}, InvalidOpcodeError(code)
	}
	return ops[code], nil
}

func (c Opcode) String() string {
	if c >= opCount {
		return fmt.Sprintf("opcode(%d)", uint16(c))
	}
	return ops[c].Name
}

// Instruction is one callback VM instruction word.
type Instruction struct {
	Op Opcode
	A1 uint32
	A2 uint32
	A3 uint32
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s %#08x %#08x %#08x", i.Op, i.A1, i.A2, i.A3)
}
