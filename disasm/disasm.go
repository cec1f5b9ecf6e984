// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm renders compiled behavior-tree programs as text.
package disasm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/calltree/ctc/callback"
)

// Fprint writes a human-readable listing of a program: the BSS size, one
// line per instruction, and the debug scope table when present.
func Fprint(w io.Writer, insts []callback.Instruction, bssSize uint32, debug []callback.DebugScope) error {
	if _, err := fmt.Fprintf(w, "bss: %d bytes\ncode:\n", bssSize); err != nil {
		return err
	}

	for i, inst := range insts {
		raw := fmt.Sprintf("%04x %08x %08x %08x", uint16(inst.Op), inst.A1, inst.A2, inst.A3)
		if _, err := fmt.Fprintf(w, " %06x: %-31s | %s\n", i, raw, mnemonic(inst)); err != nil {
			return err
		}
	}

	if len(debug) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "debug scopes:\n"); err != nil {
		return err
	}
	for _, scope := range debug {
		_, err := fmt.Fprintf(w, " [%06x,%06x) node=0x%08x %s\n",
			scope.Open, scope.Close, scope.NodeID, scope.Phase)
		if err != nil {
			return err
		}
	}
	return nil
}

func mnemonic(inst callback.Instruction) string {
	op, err := callback.New(inst.Op)
	if err != nil {
		return fmt.Sprintf("<bad opcode %#04x>", uint16(inst.Op))
	}

	buf := new(bytes.Buffer)
	buf.WriteString(op.Name)
	args := [3]uint32{inst.A1, inst.A2, inst.A3}
	for i, kind := range op.Args {
		switch kind {
		case callback.ArgNone:
			// skip
		case callback.ArgAddr:
			if args[i] == callback.UninitializedAddr {
				fmt.Fprintf(buf, " ->????")
			} else {
				fmt.Fprintf(buf, " ->%06x", args[i])
			}
		case callback.ArgBss:
			fmt.Fprintf(buf, " @%d", args[i])
		case callback.ArgConst:
			if args[i] > 0xffff {
				fmt.Fprintf(buf, " #0x%08x", args[i])
			} else {
				fmt.Fprintf(buf, " #%d", args[i])
			}
		case callback.ArgID:
			fmt.Fprintf(buf, " $%08x", args[i])
		}
	}
	return buf.String()
}
