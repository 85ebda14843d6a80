// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
)

// shiftRotate dispatches the 0xc0/0xc1/0xd0-0xd3 group by its register
// field.  cnt is an 8-bit count expression (immediate, 1, or CL).
//
// The count is masked to 5 bits before use.  A masked count of zero leaves
// every flag untouched: the whole effect is guarded by a runtime test, so no
// flag write happens at all.  The overflow flag is defined only for a masked
// count of exactly 1, and is marked undefined otherwise.
func (in *insn) shiftRotate(sub byte, dst ir.Lval, cnt ir.Expr, w uint8) {
	tc := in.temp(8)
	in.emit(set(tc, band(cnt, ir.C(0x1f, 8))))

	var body []ir.Stmt
	switch sub {
	case 0:
		body = in.nested(func(b *insn) { b.rotate(dst, tc, w, false) })
	case 1:
		body = in.nested(func(b *insn) { b.rotate(dst, tc, w, true) })
	case 2:
		body = in.nested(func(b *insn) { b.rotateCarry(dst, tc, w, false) })
	case 3:
		body = in.nested(func(b *insn) { b.rotateCarry(dst, tc, w, true) })
	case 4, 6: // 6 is the undocumented SAL alias
		body = in.nested(func(b *insn) { b.shiftLeft(dst, tc, w) })
	case 5:
		body = in.nested(func(b *insn) { b.shiftRight(dst, tc, w, false) })
	case 7:
		body = in.nested(func(b *insn) { b.shiftRight(dst, tc, w, true) })
	}

	in.emit(ir.If{Cond: ne(tc, ir.C(0, 8)), Then: body})
	in.release(tc)
}

// defineOverflowAt1 writes the overflow flag for a masked count of exactly
// 1, and marks it undefined for any other count.
func (in *insn) defineOverflowAt1(tc ir.Reg, of ir.Expr) {
	in.emit(ir.If{
		Cond: eq(tc, ir.C(1, 8)),
		Then: []ir.Stmt{set(fOF, of)},
		Else: []ir.Stmt{ir.Forget(fOF)},
	})
}

func (in *insn) shiftLeft(dst ir.Lval, tc ir.Reg, w uint8) {
	res := in.temp(w)
	in.emit(
		set(res, shl(dst, ir.ZeroExt(tc, w))),
		// Carry is the last bit shifted out: bit w-count of the original.
		set(fCF, bit(dst, ir.ZeroExt(sub(ir.C(uint64(w), 8), tc), w), w)),
	)
	in.defineOverflowAt1(tc, bxor(fCF, isNegative(res, w)))
	in.flagsSZP(res, w)
	in.forget(fAF)
	in.emit(set(dst, res))
	in.release(res)
}

func (in *insn) shiftRight(dst ir.Lval, tc ir.Reg, w uint8, arithmetic bool) {
	res := in.temp(w)
	base := shr(dst, ir.ZeroExt(tc, w))

	if arithmetic {
		// Sign extension through a full-width mask derived from the
		// original sign bit.
		mask := shl(ir.C(1<<uint(w)-1, w), ir.ZeroExt(sub(ir.C(uint64(w), 8), tc), w))
		in.emit(ir.If{
			Cond: isNegative(dst, w),
			Then: []ir.Stmt{set(res, bor(base, mask))},
			Else: []ir.Stmt{set(res, base)},
		})
	} else {
		in.emit(set(res, base))
	}

	// Carry is the last bit shifted out: bit count-1 of the original.
	in.emit(set(fCF, bit(dst, ir.ZeroExt(sub(tc, ir.C(1, 8)), w), w)))

	if arithmetic {
		in.defineOverflowAt1(tc, ir.C(0, 1))
	} else {
		in.defineOverflowAt1(tc, isNegative(dst, w))
	}

	in.flagsSZP(res, w)
	in.forget(fAF)
	in.emit(set(dst, res))
	in.release(res)
}

// rotate: only carry and overflow are affected.  The effective rotation
// count is the masked count modulo the operand width.
func (in *insn) rotate(dst ir.Lval, tc ir.Reg, w uint8, right bool) {
	tr := in.temp(8)
	in.emit(set(tr, ir.B(ir.Mod, tc, ir.C(uint64(w), 8))))

	res := in.temp(w)
	lo, hi := ir.ZeroExt(tr, w), ir.ZeroExt(sub(ir.C(uint64(w), 8), tr), w)
	if right {
		in.emit(set(res, bor(shr(dst, lo), shl(dst, hi))))
	} else {
		in.emit(set(res, bor(shl(dst, lo), shr(dst, hi))))
	}

	if right {
		// Carry is the bit rotated into the sign position.
		in.emit(set(fCF, isNegative(res, w)))
		in.defineOverflowAt1(tc, ne(
			bit(res, ir.C(uint64(w-1), w), w),
			bit(res, ir.C(uint64(w-2), w), w),
		))
	} else {
		// Carry is the bit rotated into the low position.
		in.emit(set(fCF, bit(res, ir.C(0, w), w)))
		in.defineOverflowAt1(tc, bxor(fCF, isNegative(res, w)))
	}

	in.emit(set(dst, res))
	in.release(res, tr)
}

// rotateCarry models RCL/RCR: the carry flag participates as an extra bit,
// so the rotation works on width+1 bits and the count is taken modulo
// width+1.
func (in *insn) rotateCarry(dst ir.Lval, tc ir.Reg, w uint8, right bool) {
	ww := w + 1
	tr := in.temp(8)
	in.emit(set(tr, ir.B(ir.Mod, tc, ir.C(uint64(ww), 8))))

	ext := in.temp(ww)
	in.emit(set(ext, bor(
		ir.ZeroExt(dst, ww),
		shl(ir.ZeroExt(fCF, ww), ir.C(uint64(w), 8)),
	)))

	lo, hi := ir.ZeroExt(tr, ww), ir.ZeroExt(sub(ir.C(uint64(ww), 8), tr), ww)
	if right {
		in.emit(set(ext, bor(shr(ext, lo), shl(ext, hi))))
	} else {
		in.emit(set(ext, bor(shl(ext, lo), shr(ext, hi))))
	}

	in.emit(set(fCF, bit(ext, ir.C(uint64(w), ww), ww)))
	if right {
		in.defineOverflowAt1(tc, ne(
			bit(ext, ir.C(uint64(w-1), ww), ww),
			bit(ext, ir.C(uint64(w-2), ww), ww),
		))
	} else {
		in.defineOverflowAt1(tc, bxor(fCF, bit(ext, ir.C(uint64(w-1), ww), ww)))
	}

	in.emit(set(dst, ir.Reg{ID: ext.ID, Width: w}))
	in.release(ext, tr)
}

// shiftDouble implements SHLD/SHRD, shifting bits in from a second
// register.  A masked count greater than the operand width leaves the
// destination and every flag undefined.
func (in *insn) shiftDouble(dst ir.Lval, src ir.Expr, cnt ir.Expr, w uint8, right bool) {
	tc := in.temp(8)
	in.emit(set(tc, band(cnt, ir.C(0x1f, 8))))

	overwide := in.nested(func(b *insn) {
		for _, f := range []ir.Reg{fCF, fOF, fSF, fZF, fPF, fAF} {
			b.forget(f)
		}
		b.forget(dst)
	})

	normal := in.nested(func(b *insn) {
		res := b.temp(w)
		lo, hi := ir.ZeroExt(tc, w), ir.ZeroExt(sub(ir.C(uint64(w), 8), tc), w)
		if right {
			b.emit(
				set(res, bor(shr(dst, lo), shl(src, hi))),
				set(fCF, bit(dst, ir.ZeroExt(sub(tc, ir.C(1, 8)), w), w)),
			)
		} else {
			b.emit(
				set(res, bor(shl(dst, lo), shr(src, hi))),
				set(fCF, bit(dst, ir.ZeroExt(sub(ir.C(uint64(w), 8), tc), w), w)),
			)
		}
		b.defineOverflowAt1(tc, bxor(isNegative(res, w), isNegative(dst, w)))
		b.flagsSZP(res, w)
		b.forget(fAF)
		b.emit(set(dst, res))
		b.release(res)
	})

	in.emit(ir.If{
		Cond: ne(tc, ir.C(0, 8)),
		Then: []ir.Stmt{
			ir.If{Cond: ugt(tc, ir.C(uint64(w), 8)), Then: overwide, Else: normal},
		},
	})
	in.release(tc)
}
