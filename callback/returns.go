// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callback

import "fmt"

// NodeReturn is the value a node leaves in the VM's return register after
// its execution code ran.
type NodeReturn uint32

const (
	NodeSuccess NodeReturn = iota
	NodeFail
	NodeRunning
	NodeUndefined
)

func (r NodeReturn) String() string {
	switch r {
	case NodeSuccess:
		return "SUCCESS"
	case NodeFail:
		return "FAIL"
	case NodeRunning:
		return "RUNNING"
	case NodeUndefined:
		return "UNDEFINED"
	}
	return fmt.Sprintf("noderet(%d)", uint32(r))
}

// Phase tags which of a node's three code blocks an instruction range or a
// host callback invocation belongs to.
type Phase byte

const (
	PhaseConstruct Phase = iota
	PhaseExecute
	PhaseDestruct
)

func (p Phase) String() string {
	switch p {
	case PhaseConstruct:
		return "construct"
	case PhaseExecute:
		return "execute"
	case PhaseDestruct:
		return "destruct"
	}
	return fmt.Sprintf("phase(%d)", byte(p))
}

// Program file format constants. A compiled program starts with the magic
// "CBTP" followed by the format version, both in the file's byte order.
const (
	Magic   uint32 = 0x50544243 // "CBTP"
	Version uint32 = 0x1
)
