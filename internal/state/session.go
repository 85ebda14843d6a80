// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package state implements the per-instruction decode session: byte cursor,
// size context, prefix flags and temporary register allocation.
package state

import (
	"io"

	"github.com/xorpse/bincat/internal/decerr"
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// ImportResolver recognizes call targets which refer to modeled library
// functions.
type ImportResolver interface {
	ResolveCall(addr uint32) (symbol string, ok bool)
}

// Prefix flags seen before the opcode byte.
type Prefix struct {
	OpSize   bool
	AddrSize bool
	Seg      *seg.Reg
	Rep      bool
	RepNE    bool
}

// Session is the mutable state of decoding a single instruction.  It is
// created fresh per instruction and owned exclusively by that decode call.
type Session struct {
	buf   []byte
	off   int
	bytes []byte

	Addr     uint32
	OpSize   ir.Size
	AddrSize ir.Size
	Seg      *seg.State
	Imports  ImportResolver
	Prefix   Prefix

	tmps uint32
}

func New(code []byte, addr uint32, st *seg.State, imports ImportResolver) *Session {
	return &Session{
		buf:      code,
		Addr:     addr,
		OpSize:   ir.Size32,
		AddrSize: ir.Size32,
		Seg:      st,
		Imports:  imports,
	}
}

// NextByte consumes one byte and appends it to the instruction's byte
// record.  Running out of bytes means the caller sized the buffer wrong;
// the raw end-of-data panic gets its public error shape on recovery.
func (s *Session) NextByte() byte {
	if s.off >= len(s.buf) {
		panic(io.ErrUnexpectedEOF)
	}
	b := s.buf[s.off]
	s.off++
	s.bytes = append(s.bytes, b)
	return b
}

// ReadInt reads a little-endian unsigned integer of the given byte width.
func (s *Session) ReadInt(width int) uint64 {
	var x uint64
	for i := 0; i < width; i++ {
		x |= uint64(s.NextByte()) << (8 * i)
	}
	return x
}

// ReadImm reads an encBits-wide immediate and widens it to tgtBits, by sign
// or zero extension.  An immediate wider than its target is an encoding
// error.
func (s *Session) ReadImm(encBits, tgtBits uint8, signExtend bool) uint64 {
	if encBits > tgtBits {
		panic(decerr.New(decerr.Encoding, s.Addr, "%d-bit immediate wider than %d-bit target", encBits, tgtBits))
	}

	x := s.ReadInt(int(encBits) / 8)
	if signExtend && x&(1<<(encBits-1)) != 0 {
		x |= ^uint64(0) << encBits
	}
	if tgtBits < 64 {
		x &= 1<<tgtBits - 1
	}
	return x
}

// Temp allocates a decode-scoped temporary register.  The caller emits a
// matching remove directive on every control path that does not fail.
func (s *Session) Temp(width uint8) ir.Reg {
	r := ir.Reg{ID: ir.TempBase + ir.RegID(s.tmps), Width: width}
	s.tmps++
	return r
}

// NextAddr is the address immediately after the bytes consumed so far.
// Meaningful once the whole instruction has been read.
func (s *Session) NextAddr() uint32 {
	return s.Addr + uint32(len(s.bytes))
}

// Result of decoding one instruction.
type Result struct {
	Stmts    []ir.Stmt
	Bytes    []byte
	NextAddr uint32
}

// Finalize packages the statement list with the consumed bytes and the
// next-instruction address.
func (s *Session) Finalize(stmts []ir.Stmt) *Result {
	return &Result{
		Stmts:    stmts,
		Bytes:    s.bytes,
		NextAddr: s.NextAddr(),
	}
}
