// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
)

// accLow and accHigh are the implicit destination register pair of the
// widening multiply and divide forms.
func accLow(w uint8) ir.Reg  { return ir.Reg{ID: regEAX, Width: w} }
func accHigh(w uint8) ir.Reg { return ir.Reg{ID: regEDX, Width: w} }

// mul synthesizes the one-operand widening multiply.  The double-width
// product is staged in a temporary and split across the implicit
// destination pair (AX alone in the 8-bit case).  Carry and overflow are
// cleared exactly when the upper half is redundant; the other four flags
// are architecturally undefined.
func (in *insn) mul(src ir.Expr, w uint8, signed bool) {
	dw := 2 * w
	a := accLow(w)

	res := in.temp(dw)
	in.emit(set(res, ir.B(ir.Mul, extend(a, dw, signed), extend(src, dw, signed))))

	lo := ir.Reg{ID: res.ID, Width: w}
	hi := ir.Reg{ID: res.ID, Off: w, Width: w}

	var redundant ir.Expr
	if signed {
		redundant = eq(res, ir.SignExt(lo, dw))
	} else {
		redundant = eq(hi, ir.C(0, w))
	}
	in.emit(
		set(fCF, not(redundant)),
		set(fOF, fCF),
	)
	for _, f := range []ir.Reg{fSF, fZF, fPF, fAF} {
		in.forget(f)
	}

	if w == 8 {
		in.emit(set(ir.Reg{ID: regEAX, Width: 16}, res))
	} else {
		in.emit(
			set(accLow(w), lo),
			set(accHigh(w), hi),
		)
	}
	in.release(res)
}

// imul2 synthesizes the two- and three-operand truncating signed multiply.
func (in *insn) imul2(dst ir.Reg, x, y ir.Expr, w uint8) {
	dw := 2 * w
	res := in.temp(dw)
	lo := ir.Reg{ID: res.ID, Width: w}

	in.emit(
		set(res, ir.B(ir.Mul, ir.SignExt(x, dw), ir.SignExt(y, dw))),
		set(fCF, ne(res, ir.SignExt(lo, dw))),
		set(fOF, fCF),
	)
	for _, f := range []ir.Reg{fSF, fZF, fPF, fAF} {
		in.forget(f)
	}
	in.emit(set(dst, lo))
	in.release(res)
}

// div synthesizes the one-operand divide.  The quotient-range assertion is
// the divide-error condition: it fires before any destination register is
// written.  All six status flags are architecturally undefined afterwards.
func (in *insn) div(src ir.Expr, w uint8, signed bool) {
	dw := 2 * w

	num := in.temp(dw)
	if w == 8 {
		in.emit(set(num, ir.Reg{ID: regEAX, Width: 16}))
	} else {
		in.emit(set(num, bor(
			shl(ir.ZeroExt(accHigh(w), dw), ir.C(uint64(w), dw)),
			ir.ZeroExt(accLow(w), dw),
		)))
	}

	in.emit(ir.Assert{Cond: ne(src, ir.C(0, w)), Msg: "divide by zero"})

	divOp, modOp := ir.Div, ir.Mod
	if signed {
		divOp, modOp = ir.IDiv, ir.IMod
	}

	den := extend(src, dw, signed)
	quo := in.temp(dw)
	rem := in.temp(dw)
	in.emit(
		set(quo, ir.B(divOp, num, den)),
		set(rem, ir.B(modOp, num, den)),
	)

	if signed {
		max := uint64(1)<<(w-1) - 1
		min := (uint64(1)<<dw - uint64(1)<<(w-1)) & (1<<dw - 1)
		in.emit(ir.Assert{
			Cond: band(
				ir.B(ir.Sle, quo, ir.C(max, dw)),
				ir.B(ir.Sge, quo, ir.C(min, dw)),
			),
			Msg: "divide overflow",
		})
	} else {
		in.emit(ir.Assert{
			Cond: ir.B(ir.Ule, quo, ir.C(uint64(1)<<w-1, dw)),
			Msg:  "divide overflow",
		})
	}

	qlo := ir.Reg{ID: quo.ID, Width: w}
	rlo := ir.Reg{ID: rem.ID, Width: w}
	if w == 8 {
		in.emit(
			set(ir.Reg{ID: regEAX, Width: 8}, qlo),
			set(ir.Reg{ID: regEAX, Off: 8, Width: 8}, rlo),
		)
	} else {
		in.emit(
			set(accLow(w), qlo),
			set(accHigh(w), rlo),
		)
	}

	for _, f := range []ir.Reg{fCF, fOF, fSF, fZF, fPF, fAF} {
		in.forget(f)
	}
	in.release(num, quo, rem)
}

func extend(x ir.Expr, width uint8, signed bool) ir.Expr {
	return ir.Ext{X: x, Width: width, Signed: signed}
}
