// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/calltree/ctc/callback"
)

var (
	// ErrMalformedProgram is returned by NewVM when the instruction stream
	// does not contain the three halt-terminated blocks a compiled tree has.
	ErrMalformedProgram = errors.New("exec: program lacks construct/execute/destruct blocks")
	// ErrStepBudgetExceeded is returned when a single block runs more
	// instructions than the safety budget, which means a corrupt jump.
	ErrStepBudgetExceeded = errors.New("exec: instruction budget exceeded")
	// ErrOutOfBoundsBssAccess is returned while trapping the VM on an
	// access past the end of the BSS segment.
	ErrOutOfBoundsBssAccess = errors.New("exec: out of bounds bss access")
)

// InvalidJumpError is returned when a jump leaves the instruction stream.
type InvalidJumpError uint32

func (e InvalidJumpError) Error() string {
	return fmt.Sprintf("exec: jump to invalid address %#08x", uint32(e))
}

// UnknownActionError is returned when the program invokes an action id with
// no registered callback.
type UnknownActionError uint32

func (e UnknownActionError) Error() string {
	return fmt.Sprintf("exec: no callback registered for action %#08x", uint32(e))
}

// ActionFunc is a host callback for one action. It is invoked for the
// construct, execute and destruct phases; the value returned for the
// execute phase lands in the VM's return register.
type ActionFunc func(phase callback.Phase) callback.NodeReturn

// stepBudget bounds one block run; generated programs are loop-free within
// a tick, so any longer run is a corrupt jump chain.
const stepBudget = 1 << 20

var endianess = binary.LittleEndian

// VM executes a loaded program. The host drives it tick by tick: Construct
// once, Tick every frame until the result is not RUNNING, then Destruct.
type VM struct {
	prog     *Program
	bss      []byte
	register uint32
	actions  map[uint32]ActionFunc

	conEntry int
	exeEntry int
	desEntry int

	constructed bool
}

// NewVM creates a VM for the program, with a freshly zeroed BSS segment.
func NewVM(p *Program) (*VM, error) {
	vm := &VM{
		prog:     p,
		bss:      make([]byte, p.BssSize),
		register: uint32(callback.NodeSuccess),
		actions:  make(map[uint32]ActionFunc),
	}

	// the three blocks are halt-terminated, in construct/execute/destruct
	// order
	var halts []int
	for i, inst := range p.Insts {
		if inst.Op == callback.OpHalt {
			halts = append(halts, i)
		}
	}
	if len(halts) < 3 {
		return nil, ErrMalformedProgram
	}
	vm.conEntry = 0
	vm.exeEntry = halts[0] + 1
	vm.desEntry = halts[1] + 1

	return vm, nil
}

// RegisterAction binds fn to the given action id.
func (vm *VM) RegisterAction(id uint32, fn ActionFunc) {
	vm.actions[id] = fn
}

// Register returns the current value of the return register.
func (vm *VM) Register() callback.NodeReturn {
	return callback.NodeReturn(vm.register)
}

// Construct runs the tree's construction block. Tick calls it implicitly on
// the first tick after creation or destruction.
func (vm *VM) Construct() error {
	if err := vm.run(vm.conEntry); err != nil {
		return err
	}
	vm.constructed = true
	return nil
}

// Tick runs one execution pass and reports the tree's result. A RUNNING
// result suspends the tree; the next Tick resumes it through the stored
// re-entry points.
func (vm *VM) Tick() (callback.NodeReturn, error) {
	if !vm.constructed {
		if err := vm.Construct(); err != nil {
			return callback.NodeUndefined, err
		}
	}
	if err := vm.run(vm.exeEntry); err != nil {
		return callback.NodeUndefined, err
	}
	return vm.Register(), nil
}

// Destruct unwinds whatever the previous ticks constructed and leaves the
// tree ready for a fresh Construct.
func (vm *VM) Destruct() error {
	if err := vm.run(vm.desEntry); err != nil {
		return err
	}
	vm.constructed = false
	return nil
}

func (vm *VM) bssLoad(offset uint32) (uint32, error) {
	if int64(offset)+4 > int64(len(vm.bss)) {
		return 0, ErrOutOfBoundsBssAccess
	}
	return endianess.Uint32(vm.bss[offset:]), nil
}

func (vm *VM) bssStore(offset, v uint32) error {
	if int64(offset)+4 > int64(len(vm.bss)) {
		return ErrOutOfBoundsBssAccess
	}
	endianess.PutUint32(vm.bss[offset:], v)
	return nil
}

func (vm *VM) callAction(id uint32, phase callback.Phase) error {
	fn, ok := vm.actions[id]
	if !ok {
		return UnknownActionError(id)
	}
	r := fn(phase)
	if phase == callback.PhaseExecute {
		vm.register = uint32(r)
	}
	return nil
}

func (vm *VM) run(pc int) error {
	code := vm.prog.Insts
	for steps := 0; ; steps++ {
		if steps > stepBudget {
			return ErrStepBudgetExceeded
		}
		if pc < 0 || pc >= len(code) {
			return InvalidJumpError(uint32(pc))
		}

		inst := code[pc]
		pc++
		switch inst.Op {
		case callback.OpHalt:
			return nil

		case callback.OpCallConsFun:
			if err := vm.callAction(inst.A1, callback.PhaseConstruct); err != nil {
				return err
			}
		case callback.OpCallExecFun:
			if err := vm.callAction(inst.A1, callback.PhaseExecute); err != nil {
				return err
			}
		case callback.OpCallDestFun:
			if err := vm.callAction(inst.A1, callback.PhaseDestruct); err != nil {
				return err
			}

		case callback.OpJabcConstant:
			pc = int(inst.A1)
		case callback.OpJabbConstant:
			target, err := vm.bssLoad(inst.A1)
			if err != nil {
				return err
			}
			pc = int(target)

		case callback.OpJabcREquaC:
			if vm.register == inst.A2 {
				pc = int(inst.A1)
			}
		case callback.OpJabcRDiffC:
			if vm.register != inst.A2 {
				pc = int(inst.A1)
			}

		case callback.OpJabcCEquaB, callback.OpJabcCDiffB:
			v, err := vm.bssLoad(inst.A3)
			if err != nil {
				return err
			}
			if (inst.Op == callback.OpJabcCEquaB) == (inst.A2 == v) {
				pc = int(inst.A1)
			}
		case callback.OpJabbCEquaB, callback.OpJabbCDiffB:
			v, err := vm.bssLoad(inst.A3)
			if err != nil {
				return err
			}
			if (inst.Op == callback.OpJabbCEquaB) == (inst.A2 == v) {
				target, err := vm.bssLoad(inst.A1)
				if err != nil {
					return err
				}
				pc = int(target)
			}

		case callback.OpJabcSCInB:
			if err := vm.bssStore(inst.A2, inst.A3); err != nil {
				return err
			}
			pc = int(inst.A1)
		case callback.OpJabbSCInB:
			target, err := vm.bssLoad(inst.A1)
			if err != nil {
				return err
			}
			if err := vm.bssStore(inst.A2, inst.A3); err != nil {
				return err
			}
			pc = int(target)

		case callback.OpStoreRInB:
			if err := vm.bssStore(inst.A1, vm.register); err != nil {
				return err
			}
		case callback.OpStoreBInR:
			v, err := vm.bssLoad(inst.A1)
			if err != nil {
				return err
			}
			vm.register = v
		case callback.OpStoreCInB:
			if err := vm.bssStore(inst.A1, inst.A2); err != nil {
				return err
			}
		case callback.OpStoreCInR:
			vm.register = inst.A1
		case callback.OpStoreBInB:
			v, err := vm.bssLoad(inst.A2)
			if err != nil {
				return err
			}
			if err := vm.bssStore(inst.A1, v); err != nil {
				return err
			}

		case callback.OpIncBss:
			v, err := vm.bssLoad(inst.A1)
			if err != nil {
				return err
			}
			if err := vm.bssStore(inst.A1, v+inst.A2); err != nil {
				return err
			}
		case callback.OpDecBss:
			v, err := vm.bssLoad(inst.A1)
			if err != nil {
				return err
			}
			if err := vm.bssStore(inst.A1, v-inst.A2); err != nil {
				return err
			}

		default:
			return callback.InvalidOpcodeError(inst.Op)
		}
	}
}
