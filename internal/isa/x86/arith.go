// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
)

// ALU operations in the encoding order of opcodes 0x00..0x3f and of the
// 0x80..0x83 group's register field.
type aluOp byte

const (
	aluAdd = aluOp(iota)
	aluOr
	aluAdc
	aluSbb
	aluAnd
	aluSub
	aluXor
	aluCmp
)

func (in *insn) alu(op aluOp, dst ir.Lval, src ir.Expr, w uint8) {
	switch op {
	case aluAdd:
		in.addSub(dst, src, w, false, false, true)
	case aluAdc:
		in.addSub(dst, src, w, false, true, true)
	case aluSub:
		in.addSub(dst, src, w, true, false, true)
	case aluSbb:
		in.addSub(dst, src, w, true, true, true)
	case aluCmp:
		in.addSub(dst, src, w, true, false, false)
	case aluAnd:
		in.logic(ir.And, dst, src, w, true)
	case aluOr:
		in.logic(ir.Or, dst, src, w, true)
	case aluXor:
		in.logic(ir.Xor, dst, src, w, true)
	}
}

// addSub synthesizes the add/sub family.  The result is staged in a
// temporary of the destination width; flags are written carry first, then
// overflow, then sign/zero/parity and adjust; the result is committed last.
// Carry-using variants read the incoming carry through a staged 1-bit
// temporary and use the three-operand carry formula.
func (in *insn) addSub(dst ir.Lval, src ir.Expr, w uint8, subtract, withCarry, commit bool) {
	res := in.temp(w)

	op := ir.Add
	if subtract {
		op = ir.Sub
	}

	var carry ir.Reg
	expr := ir.B(op, dst, src)
	if withCarry {
		carry = in.temp(1)
		in.emit(set(carry, fCF))
		expr = ir.B(op, expr, ir.ZeroExt(carry, w))
	}
	in.emit(set(res, expr))

	// Carry / borrow.
	var cf ir.Expr
	if subtract {
		cf = ult(dst, src)
		if withCarry {
			cf = bor(cf, band(eq(dst, src), carry))
		}
	} else {
		cf = ult(res, dst)
		if withCarry {
			cf = bor(cf, band(eq(res, dst), carry))
		}
	}
	in.emit(set(fCF, cf))

	// Overflow from the operand signs and the result sign.
	in.emit(set(fOF, overflow(dst, src, res, w, subtract)))

	in.flagsSZP(res, w)

	// Adjust: carry or borrow out of the low nibble.
	nib := ir.C(0xf, w)
	var af ir.Expr
	if subtract {
		af = ult(band(dst, nib), band(src, nib))
		if withCarry {
			af = bor(af, band(eq(band(dst, nib), band(src, nib)), carry))
		}
	} else {
		af = ult(band(res, nib), band(dst, nib))
		if withCarry {
			af = bor(af, band(eq(band(res, nib), band(dst, nib)), carry))
		}
	}
	in.emit(set(fAF, af))

	if commit {
		in.emit(set(dst, res))
	}

	if withCarry {
		in.release(carry)
	}
	in.release(res)
}

func overflow(x, y, res ir.Expr, w uint8, subtract bool) ir.Expr {
	zero := ir.C(0, w)
	xNeg, resNeg := slt(x, zero), slt(res, zero)
	xPos, resPos := sge(x, zero), sge(res, zero)
	yNeg, yPos := slt(y, zero), sge(y, zero)
	if subtract {
		yNeg, yPos = yPos, yNeg
	}
	return bor(
		band(band(xNeg, yNeg), resPos),
		band(band(xPos, yPos), resNeg),
	)
}

// logic synthesizes OR/AND/XOR/TEST: carry and overflow cleared,
// sign/zero/parity from the result, adjust architecturally undefined.
func (in *insn) logic(op ir.BinOp, dst ir.Lval, src ir.Expr, w uint8, commit bool) {
	res := in.temp(w)
	in.emit(
		set(res, ir.B(op, dst, src)),
		set(fCF, ir.C(0, 1)),
		set(fOF, ir.C(0, 1)),
	)
	in.flagsSZP(res, w)
	in.forget(fAF)

	if commit {
		in.emit(set(dst, res))
	}
	in.release(res)
}

// incDec stages the pre-increment value so that the overflow and adjust
// computations do not observe the mutated destination.  Carry is untouched.
func (in *insn) incDec(dst ir.Lval, w uint8, decrement bool) {
	one := ir.C(1, w)
	pre := in.temp(w)
	in.emit(set(pre, dst))

	op := ir.Add
	if decrement {
		op = ir.Sub
	}
	in.emit(
		set(dst, ir.B(op, dst, one)),
		set(fOF, overflow(pre, one, dst, w, decrement)),
	)
	in.flagsSZP(dst, w)

	nib := ir.C(0xf, w)
	if decrement {
		in.emit(set(fAF, ult(band(pre, nib), band(one, nib))))
	} else {
		in.emit(set(fAF, ult(band(dst, nib), band(pre, nib))))
	}
	in.release(pre)
}

func (in *insn) neg(dst ir.Lval, w uint8) {
	zero := ir.C(0, w)
	res := in.temp(w)
	in.emit(
		set(res, sub(zero, dst)),
		set(fCF, ne(dst, zero)),
		set(fOF, overflow(zero, dst, res, w, true)),
	)
	in.flagsSZP(res, w)
	in.emit(
		set(fAF, ne(band(dst, ir.C(0xf, w)), zero)),
		set(dst, res),
	)
	in.release(res)
}

// xchg swaps through a staged temporary.
func (in *insn) xchg(a, b ir.Lval, w uint8) {
	t := in.temp(w)
	in.emit(
		set(t, a),
		set(a, b),
		set(b, t),
	)
	in.release(t)
}

// xadd: exchange and add.  Flags are those of the addition.
func (in *insn) xadd(dst ir.Lval, src ir.Reg, w uint8) {
	res := in.temp(w)
	in.emit(
		set(res, add(dst, src)),
		set(fCF, ult(res, dst)),
		set(fOF, overflow(dst, src, res, w, false)),
	)
	in.flagsSZP(res, w)
	in.emit(
		set(fAF, ult(band(res, ir.C(0xf, w)), band(dst, ir.C(0xf, w)))),
		set(src, dst),
		set(dst, res),
	)
	in.release(res)
}

// cmpxchg compares the accumulator with dst, then either stores src or
// loads dst into the accumulator, per the zero flag just computed.
func (in *insn) cmpxchg(dst ir.Lval, src ir.Expr, w uint8) {
	acc := in.regOp(0, ir.Size(w))
	in.addSub(acc, dst, w, true, false, false)
	in.emit(ir.If{
		Cond: fZF,
		Then: []ir.Stmt{set(dst, src)},
		Else: []ir.Stmt{set(acc, dst)},
	})
}
