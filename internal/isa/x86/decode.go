// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package x86 decodes IA-32 instructions into IR statement sequences.
package x86

import (
	"github.com/xorpse/bincat/internal/decerr"
	"github.com/xorpse/bincat/internal/state"
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// Decode consumes one instruction from the session and produces its
// semantic statement sequence.  Only protected mode is supported.
func Decode(s *state.Session) *state.Result {
	if s.Seg.Mode != seg.Protected {
		panic(decerr.New(decerr.Unsupported, s.Addr, "%s mode is not supported", s.Seg.Mode))
	}

	in := insn{s: s}
	op := in.prefixes()
	in.checkRep(op)
	in.dispatch(op)
	return s.Finalize(in.stmts)
}

// prefixes consumes prefix bytes up to the opcode.  The operand and address
// sizes toggle between 16 and 32 bits on their override prefixes.
func (in *insn) prefixes() byte {
	s := in.s
	for {
		b := s.NextByte()
		switch b {
		case 0x26:
			in.override(seg.ES)
		case 0x2e:
			in.override(seg.CS)
		case 0x36:
			in.override(seg.SS)
		case 0x3e:
			in.override(seg.DS)
		case 0x64:
			in.override(seg.FS)
		case 0x65:
			in.override(seg.GS)

		case 0x66:
			s.Prefix.OpSize = true
			s.OpSize = toggleSize(s.OpSize)
		case 0x67:
			s.Prefix.AddrSize = true
			s.AddrSize = toggleSize(s.AddrSize)

		case 0xf0:
			// LOCK has no statement-level effect.
		case 0xf2:
			s.Prefix.RepNE = true
		case 0xf3:
			s.Prefix.Rep = true

		default:
			return b
		}
	}
}

func (in *insn) override(r seg.Reg) {
	in.s.Prefix.Seg = &r
}

func toggleSize(s ir.Size) ir.Size {
	if s == ir.Size32 {
		return ir.Size16
	}
	return ir.Size32
}

// checkRep validates REP/REPNE legality: REP is defined only for the string
// opcodes, REPNE only for the comparison forms.
func (in *insn) checkRep(op byte) {
	repOK := func(op byte) bool {
		return op >= 0xa4 && op <= 0xa7 || op >= 0xaa && op <= 0xaf || op >= 0x6c && op <= 0x6f
	}
	repneOK := func(op byte) bool {
		return op == 0xa6 || op == 0xa7 || op == 0xae || op == 0xaf
	}

	if in.s.Prefix.Rep && !repOK(op) {
		panic(decerr.New(decerr.Prefix, in.s.Addr, "rep prefix on opcode %#02x", op))
	}
	if in.s.Prefix.RepNE && !repneOK(op) {
		panic(decerr.New(decerr.Prefix, in.s.Addr, "repne prefix on opcode %#02x", op))
	}
}

// aluWidth resolves the operand size of the two-width opcode forms: even
// opcodes are byte-sized, odd ones use the operand size.
func (in *insn) aluWidth(op byte) uint8 {
	if op&1 == 0 {
		return 8
	}
	return in.opBits()
}

// aluVariant decodes the six encoding forms shared by the eight classic ALU
// operations (low three opcode bits).
func (in *insn) aluVariant(op aluOp, variant byte) {
	switch variant {
	case 0, 1: // rm, reg
		w := in.aluWidth(variant)
		mod, reg, rm := in.modRM()
		in.alu(op, in.rmOp(mod, rm, ir.Size(w)), in.regOp(reg, ir.Size(w)), w)

	case 2, 3: // reg, rm
		w := in.aluWidth(variant)
		mod, reg, rm := in.modRM()
		in.alu(op, in.regOp(reg, ir.Size(w)), in.rmOp(mod, rm, ir.Size(w)), w)

	case 4: // al, imm8
		in.alu(op, regAL, ir.C(in.s.ReadInt(1), 8), 8)

	case 5: // eAX, imm
		w := in.opBits()
		in.alu(op, gpr(0, in.opSize()), ir.C(in.s.ReadInt(int(w)/8), w), w)
	}
}

func (in *insn) dispatch(op byte) {
	// The eight classic ALU operations occupy opcodes 0x00..0x3d in a
	// regular grid; the leftover slots hold segment stack operations and
	// the BCD adjustments.
	if op < 0x40 && op&7 < 6 {
		in.aluVariant(aluOp(op>>3), op&7)
		return
	}

	switch op {
	case 0x06:
		in.pushSeg(seg.ES)
	case 0x07:
		in.popSeg(seg.ES)
	case 0x0e:
		in.pushSeg(seg.CS)
	case 0x0f:
		in.twoByte()
	case 0x16:
		in.pushSeg(seg.SS)
	case 0x17:
		in.popSeg(seg.SS)
	case 0x1e:
		in.pushSeg(seg.DS)
	case 0x1f:
		in.popSeg(seg.DS)
	case 0x27:
		in.decimalAdjust(false)
	case 0x2f:
		in.decimalAdjust(true)
	case 0x37:
		in.asciiAdjust(false)
	case 0x3f:
		in.asciiAdjust(true)

	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47:
		in.incDec(gpr(op&7, in.opSize()), in.opBits(), false)
	case 0x48, 0x49, 0x4a, 0x4b, 0x4c, 0x4d, 0x4e, 0x4f:
		in.incDec(gpr(op&7, in.opSize()), in.opBits(), true)

	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57:
		in.push(in.opBits(), gpr(op&7, in.opSize()))
	case 0x58, 0x59, 0x5a, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f:
		in.pop(gpr(op&7, in.opSize()), in.opBits())

	case 0x60:
		in.pushAll()
	case 0x61:
		in.popAll()
	case 0x62:
		in.unsupported("bound")
	case 0x63:
		in.unsupported("arpl")

	case 0x68:
		w := in.opBits()
		in.push(w, ir.C(in.s.ReadInt(int(w)/8), w))
	case 0x6a:
		w := in.opBits()
		in.push(w, ir.C(in.s.ReadImm(8, w, true), w))

	case 0x69, 0x6b:
		w := in.opBits()
		mod, reg, rm := in.modRM()
		src := in.rmOp(mod, rm, in.opSize())
		immBits := w
		if op == 0x6b {
			immBits = 8
		}
		imm := ir.C(in.s.ReadImm(immBits, w, true), w)
		in.imul2(in.regOp(reg, in.opSize()), src, imm, w)

	case 0x6c, 0x6d:
		in.stringOp(strIns, in.aluWidth(op))
	case 0x6e, 0x6f:
		in.stringOp(strOuts, in.aluWidth(op))

	case 0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77,
		0x78, 0x79, 0x7a, 0x7b, 0x7c, 0x7d, 0x7e, 0x7f:
		in.jcc(op, 8)

	case 0x80, 0x81, 0x82, 0x83:
		in.aluGroup(op)

	case 0x84, 0x85:
		w := in.aluWidth(op)
		mod, reg, rm := in.modRM()
		in.logic(ir.And, in.rmOp(mod, rm, ir.Size(w)), in.regOp(reg, ir.Size(w)), w, false)

	case 0x86, 0x87:
		w := in.aluWidth(op)
		mod, reg, rm := in.modRM()
		in.xchg(in.rmOp(mod, rm, ir.Size(w)), in.regOp(reg, ir.Size(w)), w)

	case 0x88, 0x89:
		w := in.aluWidth(op)
		mod, reg, rm := in.modRM()
		in.emit(set(in.rmOp(mod, rm, ir.Size(w)), in.regOp(reg, ir.Size(w))))
	case 0x8a, 0x8b:
		w := in.aluWidth(op)
		mod, reg, rm := in.modRM()
		in.emit(set(in.regOp(reg, ir.Size(w)), in.rmOp(mod, rm, ir.Size(w))))

	case 0x8c:
		mod, reg, rm := in.modRM()
		if reg >= seg.NumRegs {
			in.encodingError("mov from segment register %d", reg)
		}
		in.emit(set(in.rmOp(mod, rm, ir.Size16), segReg(seg.Reg(reg))))
	case 0x8e:
		mod, reg, rm := in.modRM()
		if reg >= seg.NumRegs {
			in.encodingError("mov to segment register %d", reg)
		}
		if seg.Reg(reg) == seg.CS {
			in.encodingError("mov to cs")
		}
		in.emit(set(segReg(seg.Reg(reg)), in.rmOp(mod, rm, ir.Size16)))

	case 0x8d:
		in.lea()

	case 0x8f:
		mod, reg, rm := in.modRM()
		if reg != 0 {
			in.encodingError("pop group sub-opcode %d", reg)
		}
		in.pop(in.rmOp(mod, rm, in.opSize()), in.opBits())

	case 0x90:
		// NOP
	case 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97:
		in.xchg(gpr(0, in.opSize()), gpr(op&7, in.opSize()), in.opBits())

	case 0x98:
		if in.opSize() == ir.Size16 {
			in.emit(set(gpr(0, ir.Size16), ir.SignExt(regAL, 16)))
		} else {
			in.emit(set(gpr(0, ir.Size32), ir.SignExt(gpr(0, ir.Size16), 32)))
		}
	case 0x99:
		w := in.opBits()
		acc, d := gpr(0, in.opSize()), gpr(2, in.opSize())
		in.emit(ir.If{
			Cond: isNegative(acc, w),
			Then: []ir.Stmt{set(d, ir.C(1<<uint(w)-1, w))},
			Else: []ir.Stmt{set(d, ir.C(0, w))},
		})

	case 0x9a:
		in.callFar()
	case 0x9b:
		// FWAIT
	case 0x9c:
		in.pushFlags()
	case 0x9d:
		in.popFlags()
	case 0x9e:
		in.loadFlagsAH()
	case 0x9f:
		in.storeFlagsAH()

	case 0xa0, 0xa1, 0xa2, 0xa3:
		in.movOffset(op)

	case 0xa4, 0xa5:
		in.stringOp(strMovs, in.aluWidth(op))
	case 0xa6, 0xa7:
		in.stringOp(strCmps, in.aluWidth(op))
	case 0xa8:
		in.logic(ir.And, regAL, ir.C(in.s.ReadInt(1), 8), 8, false)
	case 0xa9:
		w := in.opBits()
		in.logic(ir.And, gpr(0, in.opSize()), ir.C(in.s.ReadInt(int(w)/8), w), w, false)
	case 0xaa, 0xab:
		in.stringOp(strStos, in.aluWidth(op))
	case 0xac, 0xad:
		in.stringOp(strLods, in.aluWidth(op))
	case 0xae, 0xaf:
		in.stringOp(strScas, in.aluWidth(op))

	case 0xb0, 0xb1, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7:
		in.emit(set(gpr8(op&7), ir.C(in.s.ReadInt(1), 8)))
	case 0xb8, 0xb9, 0xba, 0xbb, 0xbc, 0xbd, 0xbe, 0xbf:
		w := in.opBits()
		in.emit(set(gpr(op&7, in.opSize()), ir.C(in.s.ReadInt(int(w)/8), w)))

	case 0xc0, 0xc1:
		w := in.aluWidth(op)
		mod, sub, rm := in.modRM()
		dst := in.rmOp(mod, rm, ir.Size(w))
		in.shiftRotate(sub, dst, ir.C(in.s.ReadInt(1), 8), w)

	case 0xc2:
		in.ret(in.s.ReadInt(2))
	case 0xc3:
		in.ret(0)

	case 0xc4, 0xc5:
		in.unsupported("load far pointer")

	case 0xc6, 0xc7:
		w := in.aluWidth(op)
		mod, sub, rm := in.modRM()
		if sub != 0 {
			in.encodingError("mov group sub-opcode %d", sub)
		}
		dst := in.rmOp(mod, rm, ir.Size(w))
		in.emit(set(dst, ir.C(in.s.ReadInt(int(w)/8), w)))

	case 0xc8:
		alloc := in.s.ReadInt(2)
		level := in.s.NextByte()
		in.enter(alloc, level&0x1f)
	case 0xc9:
		in.leave()

	case 0xca, 0xcb:
		in.unsupported("far return")

	case 0xcc:
		in.emit(ir.Assert{Cond: ir.C(0, 1), Msg: "int3"})
	case 0xcd:
		in.emit(ir.Assert{Cond: ir.C(0, 1), Msg: "software interrupt"})
		in.s.NextByte()
	case 0xce:
		in.emit(ir.Assert{Cond: not(fOF), Msg: "into"})
	case 0xcf:
		in.unsupported("iret")

	case 0xd0, 0xd1:
		w := in.aluWidth(op)
		mod, sub, rm := in.modRM()
		in.shiftRotate(sub, in.rmOp(mod, rm, ir.Size(w)), ir.C(1, 8), w)
	case 0xd2, 0xd3:
		w := in.aluWidth(op)
		mod, sub, rm := in.modRM()
		in.shiftRotate(sub, in.rmOp(mod, rm, ir.Size(w)), ir.Reg{ID: regECX, Width: 8}, w)

	case 0xd4:
		in.adjustAfterMultiply(in.s.ReadInt(1))
	case 0xd5:
		in.adjustBeforeDivide(in.s.ReadInt(1))

	case 0xd6:
		// Undocumented SALC.
		in.emit(ir.If{
			Cond: fCF,
			Then: []ir.Stmt{set(regAL, ir.C(0xff, 8))},
			Else: []ir.Stmt{set(regAL, ir.C(0, 8))},
		})

	case 0xd7:
		base := gpr(3, in.s.AddrSize)
		ea := add(base, ir.ZeroExt(regAL, in.addrBits()))
		in.emit(set(regAL, in.memAt(ea, seg.DS, true, ir.Size8)))

	case 0xd8, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde, 0xdf:
		in.fpu(op)

	case 0xe0, 0xe1, 0xe2:
		in.loop(op)
	case 0xe3:
		in.jcxz()

	case 0xe4, 0xe5:
		in.s.NextByte()
		in.forget(in.regOp(0, ir.Size(in.aluWidth(op))))
	case 0xec, 0xed:
		in.forget(in.regOp(0, ir.Size(in.aluWidth(op))))
	case 0xe6, 0xe7:
		in.s.NextByte()
	case 0xee, 0xef:
		// OUT has no register effect.

	case 0xe8:
		in.call(nil, in.opBits(), true)
	case 0xe9:
		in.jmpRel(in.opBits())
	case 0xea:
		in.jmpFar()
	case 0xeb:
		in.jmpRel(8)

	case 0xf1:
		in.unsupported("icebp")
	case 0xf4:
		in.emit(ir.Assert{Cond: ir.C(0, 1), Msg: "hlt"})

	case 0xf5:
		in.emit(set(fCF, not(fCF)))

	case 0xf6, 0xf7:
		in.group3(op)

	case 0xf8:
		in.emit(set(fCF, ir.C(0, 1)))
	case 0xf9:
		in.emit(set(fCF, ir.C(1, 1)))
	case 0xfa:
		in.emit(set(fIF, ir.C(0, 1)))
	case 0xfb:
		in.emit(set(fIF, ir.C(1, 1)))
	case 0xfc:
		in.emit(set(fDF, ir.C(0, 1)))
	case 0xfd:
		in.emit(set(fDF, ir.C(1, 1)))

	case 0xfe:
		mod, sub, rm := in.modRM()
		switch sub {
		case 0:
			in.incDec(in.rmOp(mod, rm, ir.Size8), 8, false)
		case 1:
			in.incDec(in.rmOp(mod, rm, ir.Size8), 8, true)
		default:
			in.encodingError("inc/dec group sub-opcode %d", sub)
		}

	case 0xff:
		in.group5()

	default:
		in.encodingError("unrecognized opcode %#02x", op)
	}
}

// aluGroup decodes the immediate-operand ALU group 0x80..0x83; the
// register field selects the operation.  0x83 sign-extends a byte
// immediate to the operand size.
func (in *insn) aluGroup(op byte) {
	mod, sub, rm := in.modRM()

	var w, immBits uint8
	switch op {
	case 0x80, 0x82:
		w, immBits = 8, 8
	case 0x81:
		w, immBits = in.opBits(), in.opBits()
	case 0x83:
		w, immBits = in.opBits(), 8
	}

	dst := in.rmOp(mod, rm, ir.Size(w))
	imm := ir.C(in.s.ReadImm(immBits, w, true), w)
	in.alu(aluOp(sub), dst, imm, w)
}

// movOffset decodes the direct-offset accumulator moves 0xa0..0xa3.
func (in *insn) movOffset(op byte) {
	w := in.aluWidth(op)
	addr := ir.C(in.s.ReadInt(in.s.AddrSize.Bytes()), in.addrBits())
	m := in.memAt(addr, seg.DS, true, ir.Size(w))
	acc := in.regOp(0, ir.Size(w))

	if op < 0xa2 {
		in.emit(set(acc, m))
	} else {
		in.emit(set(m, acc))
	}
}

func (in *insn) group3(op byte) {
	w := in.aluWidth(op)
	mod, sub, rm := in.modRM()
	dst := in.rmOp(mod, rm, ir.Size(w))

	switch sub {
	case 0, 1:
		in.logic(ir.And, dst, ir.C(in.s.ReadInt(int(w)/8), w), w, false)
	case 2:
		in.emit(set(dst, not(dst)))
	case 3:
		in.neg(dst, w)
	case 4:
		in.mul(dst, w, false)
	case 5:
		in.mul(dst, w, true)
	case 6:
		in.div(dst, w, false)
	case 7:
		in.div(dst, w, true)
	}
}

func (in *insn) group5() {
	mod, sub, rm := in.modRM()

	switch sub {
	case 0:
		in.incDec(in.rmOp(mod, rm, in.opSize()), in.opBits(), false)
	case 1:
		in.incDec(in.rmOp(mod, rm, in.opSize()), in.opBits(), true)

	case 2:
		// The target is captured before the return address push can
		// clobber a stack-relative operand.
		t := in.temp(in.opBits())
		in.emit(set(t, in.rmOp(mod, rm, in.opSize())))
		in.release(t)
		in.call(ir.ZeroExt(t, 32), 0, false)

	case 4:
		in.emit(ir.Jmp{Target: ir.ZeroExt(in.rmOp(mod, rm, in.opSize()), 32)})

	case 3, 5:
		in.unsupported("far indirect transfer")

	case 6:
		in.push(in.opBits(), in.rmOp(mod, rm, in.opSize()))

	default:
		in.encodingError("group 5 sub-opcode %d", sub)
	}
}
