// Copyright 2019 The calltree Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exec provides functions for loading and executing compiled
// behavior-tree programs on the callback virtual machine.
package exec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	pkgerrors "github.com/pkg/errors"

	"github.com/calltree/ctc/callback"
)

// ErrInvalidMagic is returned when the input does not start with the CBTP
// magic in either byte order.
var ErrInvalidMagic = errors.New("exec: invalid magic number")

// InvalidVersionError is returned when the program's format version is not
// understood.
type InvalidVersionError uint32

func (e InvalidVersionError) Error() string {
	return fmt.Sprintf("exec: unsupported program version %d", uint32(e))
}

// Program is a loaded compiled behavior tree.
type Program struct {
	BssSize uint32
	Insts   []callback.Instruction
	Debug   []callback.DebugScope

	// BigEndian records which byte order the file was written in.
	BigEndian bool
}

// to avoid memory attack
const maxInitialCap = 10 * 1024

func getInitialCap(count uint32) uint32 {
	if count > maxInitialCap {
		return maxInitialCap
	}
	return count
}

// LoadProgram reads a compiled program from r, accepting either byte order;
// the order is detected from the magic.
func LoadProgram(r io.Reader) (*Program, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, pkgerrors.Wrap(err, "exec: reading program magic")
	}

	var order binary.ByteOrder
	p := &Program{}
	switch {
	case binary.LittleEndian.Uint32(head[:]) == callback.Magic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(head[:]) == callback.Magic:
		order = binary.BigEndian
		p.BigEndian = true
	default:
		return nil, ErrInvalidMagic
	}

	readU32 := func() (uint32, error) {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return order.Uint32(buf[:]), nil
	}

	version, err := readU32()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "exec: reading program version")
	}
	if version != callback.Version {
		return nil, InvalidVersionError(version)
	}

	if p.BssSize, err = readU32(); err != nil {
		return nil, pkgerrors.Wrap(err, "exec: reading bss size")
	}

	instCount, err := readU32()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "exec: reading instruction count")
	}
	p.Insts = make([]callback.Instruction, 0, getInitialCap(instCount))
	var ibuf [16]byte
	for i := uint32(0); i < instCount; i++ {
		if _, err := io.ReadFull(r, ibuf[:]); err != nil {
			return nil, pkgerrors.Wrap(err, "exec: reading instructions")
		}
		p.Insts = append(p.Insts, callback.Instruction{
			Op: callback.Opcode(order.Uint16(ibuf[0:])),
			A1: order.Uint32(ibuf[4:]),
			A2: order.Uint32(ibuf[8:]),
			A3: order.Uint32(ibuf[12:]),
		})
	}

	debugCount, err := readU32()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "exec: reading debug table size")
	}
	if debugCount > 0 {
		p.Debug = make([]callback.DebugScope, 0, getInitialCap(debugCount))
	}
	var dbuf [16]byte
	for i := uint32(0); i < debugCount; i++ {
		if _, err := io.ReadFull(r, dbuf[:]); err != nil {
			return nil, pkgerrors.Wrap(err, "exec: reading debug table")
		}
		p.Debug = append(p.Debug, callback.DebugScope{
			Open:   order.Uint32(dbuf[0:]),
			Close:  order.Uint32(dbuf[4:]),
			NodeID: order.Uint32(dbuf[8:]),
			Phase:  callback.Phase(dbuf[12]),
		})
	}

	return p, nil
}

// MapProgramFile memory-maps the compiled program at path and loads it. The
// mapping is released before returning; the loaded program owns its memory.
func MapProgramFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "exec: unable to open program %q", path)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "exec: unable to map program %q", path)
	}
	defer m.Unmap()

	return LoadProgram(bytes.NewReader(m))
}
