// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callback

// DebugScope maps a half-open range of instructions back to the node and
// phase that emitted them. Programs compiled with debug info carry a table
// of these after the instruction stream.
type DebugScope struct {
	Open   uint32 // index of the first instruction of the range
	Close  uint32 // index one past the last instruction
	NodeID uint32
	Phase  Phase
}
