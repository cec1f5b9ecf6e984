// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exec

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calltree/ctc/bt"
	"github.com/calltree/ctc/cbgen"
)

func compileEmptySequence(t *testing.T, debug bool) *cbgen.Program {
	t.Helper()
	p := cbgen.NewProgram()
	p.SetGenerateDebugInfo(debug)
	require.NoError(t, cbgen.GenerateTree(p, bt.NewNode(bt.KindSequence, "empty")))
	return p
}

func TestLoadInvalidMagic(t *testing.T) {
	_, err := LoadProgram(bytes.NewReader([]byte("BLOB\x01\x00\x00\x00")))
	require.Equal(t, ErrInvalidMagic, err)
}

func TestLoadInvalidVersion(t *testing.T) {
	p := compileEmptySequence(t, false)
	var buf bytes.Buffer
	require.NoError(t, p.Save(&buf, false))

	raw := buf.Bytes()
	raw[4] = 0x7f // version field
	_, err := LoadProgram(bytes.NewReader(raw))
	require.IsType(t, InvalidVersionError(0), err)
}

func TestLoadTruncated(t *testing.T) {
	p := compileEmptySequence(t, false)
	var buf bytes.Buffer
	require.NoError(t, p.Save(&buf, false))

	for _, n := range []int{0, 3, 8, 17, buf.Len() - 1} {
		_, err := LoadProgram(bytes.NewReader(buf.Bytes()[:n]))
		require.Error(t, err, "truncation at %d bytes", n)
	}
}

func TestRoundTripLittleEndian(t *testing.T) {
	testRoundTrip(t, false)
}

func TestRoundTripBigEndian(t *testing.T) {
	testRoundTrip(t, true)
}

func testRoundTrip(t *testing.T, swap bool) {
	p := compileEmptySequence(t, true)
	var buf bytes.Buffer
	require.NoError(t, p.Save(&buf, swap))

	loaded, err := LoadProgram(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, swap, loaded.BigEndian)
	require.Equal(t, p.Bss.Size(), loaded.BssSize)

	if diff := cmp.Diff(p.Inst.Instructions(), loaded.Insts); diff != "" {
		t.Fatalf("instructions differ after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(p.Debug, loaded.Debug); diff != "" {
		t.Fatalf("debug table differs after round trip (-want +got):\n%s", diff)
	}
}

func TestLoadBothEndiansAgree(t *testing.T) {
	p := compileEmptySequence(t, true)

	var le, be bytes.Buffer
	require.NoError(t, p.Save(&le, false))
	require.NoError(t, p.Save(&be, true))

	fromLE, err := LoadProgram(bytes.NewReader(le.Bytes()))
	require.NoError(t, err)
	fromBE, err := LoadProgram(bytes.NewReader(be.Bytes()))
	require.NoError(t, err)

	require.Equal(t, fromLE.Insts, fromBE.Insts)
	require.Equal(t, fromLE.Debug, fromBE.Debug)
	require.Equal(t, fromLE.BssSize, fromBE.BssSize)
}

func TestMapProgramFile(t *testing.T) {
	p := compileEmptySequence(t, false)
	var buf bytes.Buffer
	require.NoError(t, p.Save(&buf, false))

	dir, err := ioutil.TempDir("", "ctc-exec-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "empty.cbtp")
	require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))

	loaded, err := MapProgramFile(path)
	require.NoError(t, err)
	require.Equal(t, p.Bss.Size(), loaded.BssSize)
	require.Equal(t, p.Inst.Instructions(), loaded.Insts)

	_, err = MapProgramFile(filepath.Join(dir, "missing.cbtp"))
	require.Error(t, err)
}
