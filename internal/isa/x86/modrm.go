// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// modRM splits the ModRM byte into mode, register field and rm field.
func (in *insn) modRM() (mod, reg, rm byte) {
	b := in.s.NextByte()
	return b >> 6, b >> 3 & 7, b & 7
}

// regOp resolves a register field at the given operand size.
func (in *insn) regOp(n byte, size ir.Size) ir.Reg {
	if size == ir.Size8 {
		return gpr8(n)
	}
	return gpr(n, size)
}

// rmOp resolves the rm field: a register for mode 3, a memory operand
// otherwise.
func (in *insn) rmOp(mod, rm byte, size ir.Size) ir.Lval {
	if mod == 3 {
		return in.regOp(rm, size)
	}
	return in.memOp(mod, rm, size)
}

func (in *insn) memOp(mod, rm byte, size ir.Size) ir.Mem {
	ea, def := in.effAddr(mod, rm)
	return in.memAt(ea, def, true, size)
}

// effAddr decodes a memory-mode ModRM into a raw effective address at the
// current address size, plus the default segment register of the form.
func (in *insn) effAddr(mod, rm byte) (ir.Expr, seg.Reg) {
	if in.s.AddrSize == ir.Size16 {
		return in.effAddr16(mod, rm)
	}
	return in.effAddr32(mod, rm)
}

func (in *insn) effAddr32(mod, rm byte) (ir.Expr, seg.Reg) {
	if rm == 4 {
		return in.sib(mod)
	}

	// rm 5 with mode 0: 32-bit displacement, no base register.
	if rm == 5 && mod == 0 {
		return ir.C(in.s.ReadInt(4), 32), seg.DS
	}

	def := seg.DS
	if rm == 5 {
		def = seg.SS
	}
	return in.disp32(gpr(rm, ir.Size32), mod), def
}

// sib decodes the scale/index/base byte of 32-bit addressing.
func (in *insn) sib(mod byte) (ir.Expr, seg.Reg) {
	b := in.s.NextByte()
	scale, index, base := b>>6, b>>3&7, b&7

	var ea ir.Expr
	if index != 4 {
		ea = gpr(index, ir.Size32)
		if scale != 0 {
			ea = shl(ea, ir.C(uint64(scale), 8))
		}
	}

	// Base field 5 with mode 0: no base register, 32-bit displacement.
	if base == 5 && mod == 0 {
		disp := ir.C(in.s.ReadInt(4), 32)
		if ea == nil {
			return disp, seg.DS
		}
		return add(ea, disp), seg.DS
	}

	def := seg.DS
	if base == 4 || base == 5 {
		def = seg.SS
	}

	x := ir.Expr(gpr(base, ir.Size32))
	if ea != nil {
		x = add(x, ea)
	}
	return in.disp32(x, mod), def
}

func (in *insn) disp32(ea ir.Expr, mod byte) ir.Expr {
	switch mod {
	case 1:
		return add(ea, ir.C(in.s.ReadImm(8, 32, true), 32))
	case 2:
		return add(ea, ir.C(in.s.ReadInt(4), 32))
	}
	return ea
}

// Legacy 16-bit base/index pairings.  The nil rows mark the rm 6 slot,
// which is BP-plus-displacement except in mode 0.
var ea16 = [8]struct {
	base, index ir.RegID
	pair        bool
	stack       bool
}{
	{base: regEBX, index: regESI, pair: true},
	{base: regEBX, index: regEDI, pair: true},
	{base: regEBP, index: regESI, pair: true, stack: true},
	{base: regEBP, index: regEDI, pair: true, stack: true},
	{base: regESI},
	{base: regEDI},
	{base: regEBP, stack: true},
	{base: regEBX},
}

func (in *insn) effAddr16(mod, rm byte) (ir.Expr, seg.Reg) {
	// rm 6 with mode 0: 16-bit displacement, no BP.
	if rm == 6 && mod == 0 {
		return ir.C(in.s.ReadInt(2), 16), seg.DS
	}

	row := ea16[rm]
	ea := ir.Expr(ir.Reg{ID: row.base, Width: 16})
	if row.pair {
		ea = add(ea, ir.Reg{ID: row.index, Width: 16})
	}

	switch mod {
	case 1:
		ea = add(ea, ir.C(in.s.ReadImm(8, 16, true), 16))
	case 2:
		ea = add(ea, ir.C(in.s.ReadInt(2), 16))
	}

	def := seg.DS
	if row.stack {
		def = seg.SS
	}
	return ea, def
}

// lea implements the load-effective-address instruction: the raw effective
// address, without segment addition and without a memory access.  The
// register-direct form has no effective address and is rejected.
func (in *insn) lea() {
	mod, reg, rm := in.modRM()
	if mod == 3 {
		in.encodingError("register-direct operand of lea")
	}

	ea, _ := in.effAddr(mod, rm)
	dst := in.regOp(reg, in.opSize())

	ab, ob := in.addrBits(), in.opBits()
	switch {
	case ab == ob:
		in.emit(set(dst, ea))

	case ob < ab:
		t := in.temp(ab)
		in.emit(
			set(t, ea),
			set(dst, ir.Reg{ID: t.ID, Width: ob}),
		)
		in.release(t)

	default:
		t := in.temp(ab)
		in.emit(
			set(t, ea),
			set(dst, ir.ZeroExt(t, ob)),
		)
		in.release(t)
	}
}
