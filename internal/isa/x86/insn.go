// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/internal/decerr"
	"github.com/xorpse/bincat/internal/state"
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// insn accumulates the statement sequence of one instruction.  Statement
// order is semantically significant: later statements observe the effects of
// earlier ones.
type insn struct {
	s     *state.Session
	stmts []ir.Stmt
}

func (in *insn) emit(stmts ...ir.Stmt) {
	in.stmts = append(in.stmts, stmts...)
}

// nested collects the statements produced by f into a branch body instead of
// the top-level sequence.  Temporaries remain session-scoped.
func (in *insn) nested(f func(b *insn)) []ir.Stmt {
	b := insn{s: in.s}
	f(&b)
	return b.stmts
}

func (in *insn) temp(width uint8) ir.Reg {
	return in.s.Temp(width)
}

func (in *insn) release(regs ...ir.Reg) {
	for _, r := range regs {
		in.emit(ir.Remove(r))
	}
}

func (in *insn) forget(l ir.Lval) {
	in.emit(ir.Forget(l))
}

func (in *insn) encodingError(format string, args ...interface{}) {
	panic(decerr.New(decerr.Encoding, in.s.Addr, format, args...))
}

func (in *insn) unsupported(format string, args ...interface{}) {
	panic(decerr.New(decerr.Unsupported, in.s.Addr, format, args...))
}

func (in *insn) opSize() ir.Size  { return in.s.OpSize }
func (in *insn) opBits() uint8    { return uint8(in.s.OpSize) }
func (in *insn) addrBits() uint8  { return uint8(in.s.AddrSize) }
func (in *insn) stackBits() uint8 { return uint8(in.s.Seg.StackWidth) }

// wrap adds the segment base to an effective address, yielding a 32-bit
// linear address expression.  The addition is elided when the base is zero.
// def is the architectural default segment; an override prefix replaces it
// unless the access is not overridable (stack, string destination).
func (in *insn) wrap(addr ir.Expr, def seg.Reg, overridable bool) ir.Expr {
	r := def
	if overridable && in.s.Prefix.Seg != nil {
		r = *in.s.Prefix.Seg
	}

	if in.s.AddrSize != ir.Size32 {
		addr = ir.ZeroExt(addr, 32)
	}

	base := in.s.Seg.Base(r, in.s.Addr)
	if base != 0 {
		addr = ir.B(ir.Add, addr, ir.C(uint64(base), 32))
	}
	return addr
}

func (in *insn) memAt(addr ir.Expr, def seg.Reg, overridable bool, size ir.Size) ir.Mem {
	return ir.Mem{Addr: in.wrap(addr, def, overridable), Size: size}
}

// stackMem is the memory slot at the top of the stack.  Stack accesses are
// always SS-relative and ignore override prefixes.
func (in *insn) stackMem(size ir.Size) ir.Mem {
	return in.memAt(in.stackPtr(), seg.SS, false, size)
}

func (in *insn) stackPtr() ir.Reg {
	return ir.Reg{ID: regESP, Width: in.stackBits()}
}

// Expression shorthands.

func add(x, y ir.Expr) ir.Expr { return ir.B(ir.Add, x, y) }
func sub(x, y ir.Expr) ir.Expr { return ir.B(ir.Sub, x, y) }
func band(x, y ir.Expr) ir.Expr { return ir.B(ir.And, x, y) }
func bor(x, y ir.Expr) ir.Expr  { return ir.B(ir.Or, x, y) }
func bxor(x, y ir.Expr) ir.Expr { return ir.B(ir.Xor, x, y) }
func shl(x, y ir.Expr) ir.Expr  { return ir.B(ir.Shl, x, y) }
func shr(x, y ir.Expr) ir.Expr  { return ir.B(ir.Shr, x, y) }
func eq(x, y ir.Expr) ir.Expr   { return ir.B(ir.Eq, x, y) }
func ne(x, y ir.Expr) ir.Expr   { return ir.B(ir.Ne, x, y) }
func ult(x, y ir.Expr) ir.Expr  { return ir.B(ir.Ult, x, y) }
func ugt(x, y ir.Expr) ir.Expr  { return ir.B(ir.Ugt, x, y) }
func slt(x, y ir.Expr) ir.Expr  { return ir.B(ir.Slt, x, y) }
func sge(x, y ir.Expr) ir.Expr  { return ir.B(ir.Sge, x, y) }
func not(x ir.Expr) ir.Expr     { return ir.U(ir.Not, x) }

func set(dst ir.Lval, src ir.Expr) ir.Stmt {
	return ir.Set{Dst: dst, Src: src}
}

// isNegative tests the sign bit of a w-bit value.
func isNegative(x ir.Expr, w uint8) ir.Expr {
	return slt(x, ir.C(0, w))
}

// bit extracts bit n of a w-bit value as a 1-bit condition.
func bit(x ir.Expr, n ir.Expr, w uint8) ir.Expr {
	return ne(band(shr(x, n), ir.C(1, w)), ir.C(0, w))
}

// flagsSZP writes the sign, zero and parity flags of a w-bit result.
func (in *insn) flagsSZP(res ir.Expr, w uint8) {
	in.emit(
		set(fSF, isNegative(res, w)),
		set(fZF, eq(res, ir.C(0, w))),
		set(fPF, ir.U(ir.Parity, band(res, ir.C(0xff, w)))),
	)
}
