// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
)

// The BCD adjustments are literal transcriptions of the documented
// threshold cascades: test the low nibble against 9 (or the adjust flag),
// then act on the fixed AL/AH pair and the carry flag.

var (
	regAL = ir.Reg{ID: regEAX, Width: 8}
	regAH = ir.Reg{ID: regEAX, Off: 8, Width: 8}
)

func (in *insn) asciiAdjust(subtract bool) {
	op := ir.Add
	if subtract {
		op = ir.Sub
	}

	in.emit(ir.If{
		Cond: bor(ugt(band(regAL, ir.C(0xf, 8)), ir.C(9, 8)), fAF),
		Then: []ir.Stmt{
			set(regAL, ir.B(op, regAL, ir.C(6, 8))),
			set(regAH, ir.B(op, regAH, ir.C(1, 8))),
			set(fAF, ir.C(1, 1)),
			set(fCF, ir.C(1, 1)),
		},
		Else: []ir.Stmt{
			set(fAF, ir.C(0, 1)),
			set(fCF, ir.C(0, 1)),
		},
	})
	in.emit(set(regAL, band(regAL, ir.C(0xf, 8))))

	for _, f := range []ir.Reg{fOF, fSF, fZF, fPF} {
		in.forget(f)
	}
}

func (in *insn) decimalAdjust(subtract bool) {
	old := in.temp(8)
	oc := in.temp(1)
	in.emit(
		set(old, regAL),
		set(oc, fCF),
	)

	op := ir.Add
	// Carry out of the nibble fixup, computed against the pre-fixup AL.
	edge := ugt(regAL, ir.C(0xf9, 8))
	if subtract {
		op = ir.Sub
		edge = ult(regAL, ir.C(6, 8))
	}

	in.emit(ir.If{
		Cond: bor(ugt(band(regAL, ir.C(0xf, 8)), ir.C(9, 8)), fAF),
		Then: []ir.Stmt{
			set(fCF, bor(oc, edge)),
			set(regAL, ir.B(op, regAL, ir.C(6, 8))),
			set(fAF, ir.C(1, 1)),
		},
		Else: []ir.Stmt{
			set(fAF, ir.C(0, 1)),
		},
	})

	in.emit(ir.If{
		Cond: bor(ugt(old, ir.C(0x99, 8)), oc),
		Then: []ir.Stmt{
			set(regAL, ir.B(op, regAL, ir.C(0x60, 8))),
			set(fCF, ir.C(1, 1)),
		},
		Else: []ir.Stmt{
			set(fCF, ir.C(0, 1)),
		},
	})

	in.flagsSZP(regAL, 8)
	in.forget(fOF)
	in.release(old, oc)
}

// adjustAfterMultiply: AAM, with its generalized divide-by-imm form.
func (in *insn) adjustAfterMultiply(base uint64) {
	if base == 0 {
		in.encodingError("aam with zero base")
	}

	t := in.temp(8)
	in.emit(
		set(t, ir.B(ir.Mod, regAL, ir.C(base, 8))),
		set(regAH, ir.B(ir.Div, regAL, ir.C(base, 8))),
		set(regAL, t),
	)
	in.flagsSZP(regAL, 8)
	for _, f := range []ir.Reg{fCF, fOF, fAF} {
		in.forget(f)
	}
	in.release(t)
}

// adjustBeforeDivide: AAD, with its generalized multiply-by-imm form.
func (in *insn) adjustBeforeDivide(base uint64) {
	in.emit(
		set(regAL, add(regAL, ir.B(ir.Mul, regAH, ir.C(base, 8)))),
		set(regAH, ir.C(0, 8)),
	)
	in.flagsSZP(regAL, 8)
	for _, f := range []ir.Reg{fCF, fOF, fAF} {
		in.forget(f)
	}
}
