// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cbgen

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/calltree/ctc/callback"
)

// Save writes the compiled program:
//
//	magic:       u32 "CBTP"
//	version:     u32
//	bss_size:    u32
//	inst_count:  u32
//	instructions: inst_count x { op u16, pad u16, a1 u32, a2 u32, a3 u32 }
//	debug_count: u32
//	debug:       debug_count x { open u32, close u32, node_id u32, phase u8, pad u8 x3 }
//
// Fields are little-endian unless swapEndian selects big-endian.
func (p *Program) Save(w io.Writer, swapEndian bool) error {
	var order binary.ByteOrder = binary.LittleEndian
	if swapEndian {
		order = binary.BigEndian
	}

	bw := bufio.NewWriter(w)
	writeU32 := func(v uint32) error {
		var buf [4]byte
		order.PutUint32(buf[:], v)
		_, err := bw.Write(buf[:])
		return err
	}

	for _, v := range []uint32{callback.Magic, callback.Version, p.Bss.Size(), uint32(p.Inst.Count())} {
		if err := writeU32(v); err != nil {
			return errors.Wrap(err, "cbgen: writing program header")
		}
	}

	var ibuf [16]byte
	for _, inst := range p.Inst.Instructions() {
		order.PutUint16(ibuf[0:], uint16(inst.Op))
		ibuf[2], ibuf[3] = 0, 0
		order.PutUint32(ibuf[4:], inst.A1)
		order.PutUint32(ibuf[8:], inst.A2)
		order.PutUint32(ibuf[12:], inst.A3)
		if _, err := bw.Write(ibuf[:]); err != nil {
			return errors.Wrap(err, "cbgen: writing instructions")
		}
	}

	debug := p.Debug
	if !p.genDebug {
		debug = nil
	}
	if err := writeU32(uint32(len(debug))); err != nil {
		return errors.Wrap(err, "cbgen: writing debug table size")
	}
	var dbuf [16]byte
	for _, scope := range debug {
		order.PutUint32(dbuf[0:], scope.Open)
		order.PutUint32(dbuf[4:], scope.Close)
		order.PutUint32(dbuf[8:], scope.NodeID)
		dbuf[12] = byte(scope.Phase)
		dbuf[13], dbuf[14], dbuf[15] = 0, 0, 0
		if _, err := bw.Write(dbuf[:]); err != nil {
			return errors.Wrap(err, "cbgen: writing debug table")
		}
	}

	return errors.Wrap(bw.Flush(), "cbgen: flushing program")
}
