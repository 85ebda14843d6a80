// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// repUnrollBound limits fixpoint iteration of the REP-prefixed forms.
const repUnrollBound = 256

type strOp byte

const (
	strMovs = strOp(iota)
	strCmps
	strStos
	strLods
	strScas
	strIns
	strOuts
)

// stringOp synthesizes one element step of a block string operation, plus
// the index register stepping and the optional REP loop around it.
func (in *insn) stringOp(op strOp, w uint8) {
	switch {
	case in.s.Prefix.RepNE:
		if op != strCmps && op != strScas {
			// Dispatch validates this; kept as a backstop.
			in.encodingError("repne prefix on non-comparison string operation")
		}
		in.repeat(op, w, not(fZF))

	case in.s.Prefix.Rep:
		if op == strCmps || op == strScas {
			in.repeat(op, w, fZF)
		} else {
			in.repeat(op, w, nil)
		}

	default:
		in.stringStep(op, w)
	}
}

func (in *insn) stringStep(op strOp, w uint8) {
	si := gpr(6, in.s.AddrSize)
	di := gpr(7, in.s.AddrSize)
	cx := gpr(1, in.s.AddrSize)

	// The source side honors segment overrides; the destination side is
	// architecturally fixed to ES.
	src := in.memAt(si, seg.DS, true, ir.Size(w))
	dst := in.memAt(di, seg.ES, false, ir.Size(w))
	acc := in.regOp(0, ir.Size(w))

	taint := func(m ir.Mem) {
		in.emit(ir.Directive{Kind: ir.DirTaint, Loc: cx, Src: m})
	}

	switch op {
	case strMovs:
		taint(src)
		in.emit(set(dst, src))
		in.step(w, si, di)

	case strCmps:
		taint(src)
		taint(dst)
		in.addSub(src, dst, w, true, false, false)
		in.step(w, si, di)

	case strStos:
		taint(dst)
		in.emit(set(dst, acc))
		in.step(w, di)

	case strLods:
		taint(src)
		in.emit(set(acc, src))
		in.step(w, si)

	case strScas:
		taint(dst)
		in.addSub(acc, dst, w, true, false, false)
		in.step(w, di)

	case strIns:
		// Port contents are unknowable statically.
		taint(dst)
		in.forget(dst)
		in.step(w, di)

	case strOuts:
		taint(src)
		in.step(w, si)
	}
}

// step advances or retreats the index registers by the element width.  The
// choice is a single runtime test of the direction flag, shared by every
// string operation so that all index registers move together.
func (in *insn) step(w uint8, regs ...ir.Reg) {
	n := ir.C(uint64(w/8), in.addrBits())

	var fwd, back []ir.Stmt
	for _, r := range regs {
		fwd = append(fwd, set(r, add(r, n)))
		back = append(back, set(r, sub(r, n)))
	}

	in.emit(ir.If{
		Cond: eq(fDF, ir.C(0, 1)),
		Then: fwd,
		Else: back,
	})
}

// repeat wraps one element step in a counter-guarded self-loop: execute the
// step, decrement the counter, and re-enter the instruction while the
// continuation condition holds.
func (in *insn) repeat(op strOp, w uint8, while ir.Expr) {
	cx := gpr(1, in.s.AddrSize)
	aw := in.addrBits()
	self := ir.Jmp{Target: ir.C(uint64(in.s.Addr), 32)}

	// A single directive bounds the iteration; the loop is never unrolled
	// into per-element statement blocks.
	pred := ir.Expr(ne(cx, ir.C(0, aw)))
	if while != nil {
		pred = band(pred, while)
	}
	in.emit(ir.Directive{
		Kind:  ir.DirUnroll,
		Pred:  pred,
		Bound: repUnrollBound,
	})

	body := in.nested(func(b *insn) {
		b.stringStep(op, w)
		b.emit(set(cx, sub(cx, ir.C(1, aw))))
		if while != nil {
			b.emit(ir.If{Cond: while, Then: []ir.Stmt{self}})
		} else {
			b.emit(self)
		}
	})

	in.emit(ir.If{
		Cond: ne(cx, ir.C(0, aw)),
		Then: body,
	})
}
