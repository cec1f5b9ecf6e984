// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lookup3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// reference values from Bob Jenkins' lookup3.c self test
func TestHashLittleReference(t *testing.T) {
	require.Equal(t, uint32(0xdeadbeef), HashLittle(""))
	require.Equal(t, uint32(0x17770551), HashLittleSeed("Four score and seven years ago", 0))
	require.Equal(t, uint32(0xcd628161), HashLittleSeed("Four score and seven years ago", 1))
}

func TestHashLittleDistinct(t *testing.T) {
	names := []string{
		"a", "b", "ab", "ba", "sequence", "selector", "parallel",
		"debug_info", "force_asm", "ctc_h_header", "ctc_h_footer",
		"ctc_h_symbol_prefix", "id",
	}
	seen := make(map[uint32]string, len(names))
	for _, name := range names {
		h := HashLittle(name)
		if prev, ok := seen[h]; ok {
			t.Fatalf("hash collision between %q and %q", prev, name)
		}
		seen[h] = name
	}
}

func TestHashLittleTailLengths(t *testing.T) {
	// lengths 0 to 12 each take a different tail case; 13 runs one mixing
	// round before its 1-byte tail
	base := "abcdefghijklm"
	seen := make(map[uint32]bool)
	for i := 0; i <= len(base); i++ {
		h := HashLittle(base[:i])
		require.False(t, seen[h], "collision at length %d", i)
		seen[h] = true
	}
}

func TestHashLittleSeedChangesResult(t *testing.T) {
	require.NotEqual(t, HashLittleSeed("walk", 0), HashLittleSeed("walk", 1))
}
