// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpTableComplete(t *testing.T) {
	for code := Opcode(0); code < opCount; code++ {
		op, err := New(code)
		require.NoError(t, err)
		require.Equal(t, code, op.Code)
		require.NotEmpty(t, op.Name, "opcode %d has no name", code)
	}
}

func TestOpNamesDistinct(t *testing.T) {
	seen := make(map[string]Opcode)
	for code := Opcode(0); code < opCount; code++ {
		op, _ := New(code)
		if prev, dup := seen[op.Name]; dup {
			t.Fatalf("opcodes %d and %d share the name %q", prev, code, op.Name)
		}
		seen[op.Name] = code
	}
}

func TestInvalidOpcode(t *testing.T) {
	_, err := New(opCount)
	require.IsType(t, InvalidOpcodeError(0), err)
	require.Contains(t, err.Error(), "invalid opcode")
}

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "store_c_in_b", OpStoreCInB.String())
	require.Equal(t, "halt", OpHalt.String())
	require.Contains(t, Opcode(999).String(), "opcode(999)")
}

func TestNodeReturnString(t *testing.T) {
	require.Equal(t, "SUCCESS", NodeSuccess.String())
	require.Equal(t, "FAIL", NodeFail.String())
	require.Equal(t, "RUNNING", NodeRunning.String())
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "construct", PhaseConstruct.String())
	require.Equal(t, "execute", PhaseExecute.String())
	require.Equal(t, "destruct", PhaseDestruct.String())
}
