// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seg models x86 segmentation: descriptor tables, segment register
// values, and linear address computation.
package seg

import (
	"github.com/xorpse/bincat/internal/decerr"
	"github.com/xorpse/bincat/ir"
)

type Mode uint8

const (
	Protected = Mode(iota)
	Real
	VM8086
)

func (m Mode) String() string {
	switch m {
	case Protected:
		return "protected"

	case Real:
		return "real"

	case VM8086:
		return "vm8086"

	default:
		return "<invalid mode>"
	}
}

// Reg names a segment register, in ModRM reg field encoding order.
type Reg uint8

const (
	ES = Reg(iota)
	CS
	SS
	DS
	FS
	GS

	NumRegs = 6
)

var regStrings = [NumRegs]string{"es", "cs", "ss", "ds", "fs", "gs"}

func (r Reg) String() string {
	if r < NumRegs {
		return regStrings[r]
	}
	return "<invalid segment register>"
}

// Selector is the decomposed value of a segment register: requested
// privilege level, table indicator, and descriptor table index.
type Selector struct {
	RPL   uint8
	Local bool
	Index uint16
}

// SelectorFromWord decomposes a raw 16-bit segment register value.
func SelectorFromWord(v uint16) Selector {
	return Selector{
		RPL:   uint8(v & 3),
		Local: v&4 != 0,
		Index: v >> 3,
	}
}

// Word reassembles the raw 16-bit value.
func (sel Selector) Word() uint16 {
	v := sel.Index<<3 | uint16(sel.RPL)
	if sel.Local {
		v |= 4
	}
	return v
}

type DescKind uint8

const (
	Data = DescKind(iota)
	DataExpandDown
	Code
	System
)

// Descriptor is one segment descriptor table entry.
type Descriptor struct {
	Base  uint32
	Limit uint32
	Gran  bool
	DPL   uint8
	Kind  DescKind
}

// ParseDescriptor unpacks a raw 8-byte descriptor.  Reports false when the
// present bit is clear.
func ParseDescriptor(raw uint64) (d Descriptor, present bool) {
	d.Limit = uint32(raw&0xffff) | uint32(raw>>32&0xf0000)
	d.Base = uint32(raw>>16&0xffffff) | uint32(raw>>56&0xff)<<24
	d.DPL = uint8(raw >> 45 & 3)
	d.Gran = raw&(1<<55) != 0

	switch {
	case raw&(1<<44) == 0:
		d.Kind = System
	case raw&(1<<43) != 0:
		d.Kind = Code
	case raw&(1<<42) != 0:
		d.Kind = DataExpandDown
	default:
		d.Kind = Data
	}

	present = raw&(1<<47) != 0
	return
}

// ScaledLimit applies the 4096-byte granularity scaling.
func (d Descriptor) ScaledLimit() uint32 {
	if d.Gran {
		return d.Limit<<12 | 0xfff
	}
	return d.Limit
}

// Table maps 13-bit descriptor indexes to entries.
type Table map[uint16]Descriptor

// State carries the segmentation context of one decode session.  It is
// read-only during decoding except for far control transfers, which install
// a new code segment value; callers sharing a State across goroutines must
// serialize decode calls or clone it.
type State struct {
	GDT Table
	LDT Table
	IDT Table

	Mode       Mode
	StackWidth ir.Size

	regs [NumRegs]Selector
}

// Selector of the named segment register.
func (st *State) Selector(r Reg) Selector {
	return st.regs[r]
}

// SetSelector installs a new segment register value.
func (st *State) SetSelector(r Reg, sel Selector) {
	st.regs[r] = sel
}

// CPL is the current privilege level, taken from the code segment selector.
func (st *State) CPL() uint8 {
	return st.regs[CS].RPL
}

// Descriptor resolves sel against the applicable table.  Panics with a
// segmentation error when the entry is absent or sel's privilege is
// insufficient (numerically greater than the descriptor's).
func (st *State) Descriptor(sel Selector, addr uint32) Descriptor {
	table := st.GDT
	name := "GDT"
	if sel.Local {
		table = st.LDT
		name = "LDT"
	}

	d, found := table[sel.Index]
	if !found {
		panic(decerr.New(decerr.Segmentation, addr, "no %s descriptor at index %d", name, sel.Index))
	}
	if sel.RPL > d.DPL {
		panic(decerr.New(decerr.Segmentation, addr, "privilege level %d exceeds descriptor level %d", sel.RPL, d.DPL))
	}
	return d
}

// Base is the linear base address of the named segment register.
func (st *State) Base(r Reg, addr uint32) uint32 {
	return st.Descriptor(st.regs[r], addr).Base
}

// CheckCode validates that a branch target's linear address lies within the
// code segment.  Out-of-segment targets mimic a general protection fault:
// the panic carries a protection error.
func (st *State) CheckCode(target, addr uint32) {
	d := st.Descriptor(st.regs[CS], addr)
	if target < d.Base || target-d.Base > d.ScaledLimit() {
		panic(decerr.New(decerr.Protection, addr, "branch target %#x outside code segment", target))
	}
}

// CodeTarget validates a far transfer: sel must name a code descriptor at
// exactly the current privilege level.  Returns the target's linear address.
func (st *State) CodeTarget(sel Selector, off, addr uint32) uint32 {
	d := st.Descriptor(sel, addr)
	if d.Kind != Code {
		panic(decerr.New(decerr.Segmentation, addr, "far transfer to non-code descriptor"))
	}
	if sel.RPL != st.CPL() {
		panic(decerr.New(decerr.Segmentation, addr, "far transfer changes privilege level %d to %d", st.CPL(), sel.RPL))
	}
	if off > d.ScaledLimit() {
		panic(decerr.New(decerr.Protection, addr, "far target %#x outside code segment", off))
	}
	return d.Base + off
}
