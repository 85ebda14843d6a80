// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// twoByte dispatches the 0x0f escape map.
func (in *insn) twoByte() {
	op := in.s.NextByte()

	switch op {
	case 0x20, 0x21, 0x22, 0x23:
		// MOV with control and debug registers: privileged system state
		// outside the modeled subset.
		in.unsupported("mov with control or debug register")

	case 0x31:
		// RDTSC: the counter value is unknowable statically.
		in.forget(gpr(0, ir.Size32))
		in.forget(gpr(2, ir.Size32))

	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47,
		0x48, 0x49, 0x4a, 0x4b, 0x4c, 0x4d, 0x4e, 0x4f:
		in.cmovcc(op)

	case 0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x89, 0x8a, 0x8b, 0x8c, 0x8d, 0x8e, 0x8f:
		in.jcc(op, in.opBits())

	case 0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97,
		0x98, 0x99, 0x9a, 0x9b, 0x9c, 0x9d, 0x9e, 0x9f:
		in.setcc(op)

	case 0xa0:
		in.pushSeg(seg.FS)
	case 0xa1:
		in.popSeg(seg.FS)
	case 0xa8:
		in.pushSeg(seg.GS)
	case 0xa9:
		in.popSeg(seg.GS)

	case 0xa2:
		// CPUID clobbers the four registers with model-specific values.
		for _, n := range []byte{0, 3, 1, 2} {
			in.forget(gpr(n, ir.Size32))
		}

	case 0xa3, 0xab, 0xb3, 0xbb:
		in.bitOp(op)

	case 0xa4, 0xac:
		w := in.opBits()
		mod, reg, rm := in.modRM()
		dst := in.rmOp(mod, rm, in.opSize())
		src := in.regOp(reg, in.opSize())
		cnt := ir.C(in.s.ReadInt(1), 8)
		in.shiftDouble(dst, src, cnt, w, op == 0xac)
	case 0xa5, 0xad:
		w := in.opBits()
		mod, reg, rm := in.modRM()
		dst := in.rmOp(mod, rm, in.opSize())
		src := in.regOp(reg, in.opSize())
		cnt := ir.Reg{ID: regECX, Width: 8}
		in.shiftDouble(dst, src, cnt, w, op == 0xad)

	case 0xaf:
		w := in.opBits()
		mod, reg, rm := in.modRM()
		dst := in.regOp(reg, in.opSize())
		in.imul2(dst, dst, in.rmOp(mod, rm, in.opSize()), w)

	case 0xb0, 0xb1:
		w := in.aluWidth(op)
		mod, reg, rm := in.modRM()
		in.cmpxchg(in.rmOp(mod, rm, ir.Size(w)), in.regOp(reg, ir.Size(w)), w)

	case 0xb6, 0xbe:
		mod, reg, rm := in.modRM()
		src := in.rmOp(mod, rm, ir.Size8)
		dst := in.regOp(reg, in.opSize())
		in.emit(set(dst, ir.Ext{X: src, Width: in.opBits(), Signed: op == 0xbe}))
	case 0xb7, 0xbf:
		mod, reg, rm := in.modRM()
		src := in.rmOp(mod, rm, ir.Size16)
		dst := in.regOp(reg, in.opSize())
		in.emit(set(dst, ir.Ext{X: src, Width: in.opBits(), Signed: op == 0xbf}))

	case 0xba:
		in.bitGroup()

	case 0xc0, 0xc1:
		w := in.aluWidth(op)
		mod, reg, rm := in.modRM()
		in.xadd(in.rmOp(mod, rm, ir.Size(w)), in.regOp(reg, ir.Size(w)), w)

	case 0xc8, 0xc9, 0xca, 0xcb, 0xcc, 0xcd, 0xce, 0xcf:
		in.bswap(op & 7)

	default:
		in.encodingError("unrecognized two-byte opcode 0f %#02x", op)
	}
}

// bitOp decodes BT/BTS/BTR/BTC with a register bit offset.  The offset is
// taken modulo the operand width.
func (in *insn) bitOp(op byte) {
	w := in.opBits()
	mod, reg, rm := in.modRM()
	dst := in.rmOp(mod, rm, in.opSize())
	idx := band(ir.ZeroExt(in.regOp(reg, in.opSize()), w), ir.C(uint64(w-1), w))
	in.bitTest(op>>3&3, dst, idx, w)
}

// bitGroup decodes the immediate-offset group 0f ba; sub-opcodes 4..7 are
// BT/BTS/BTR/BTC.
func (in *insn) bitGroup() {
	w := in.opBits()
	mod, sub, rm := in.modRM()
	if sub < 4 {
		in.encodingError("bit-test group sub-opcode %d", sub)
	}
	dst := in.rmOp(mod, rm, in.opSize())
	idx := ir.C(in.s.ReadInt(1)&uint64(w-1), w)
	in.bitTest(sub&3, dst, idx, w)
}

func (in *insn) bitTest(kind byte, dst ir.Lval, idx ir.Expr, w uint8) {
	in.emit(set(fCF, bit(dst, idx, w)))

	mask := shl(ir.C(1, w), idx)
	switch kind {
	case 1: // BTS
		in.emit(set(dst, bor(dst, mask)))
	case 2: // BTR
		in.emit(set(dst, band(dst, not(mask))))
	case 3: // BTC
		in.emit(set(dst, bxor(dst, mask)))
	}
	in.forget(fOF)
	in.forget(fAF)
}

func (in *insn) bswap(n byte) {
	r := gpr(n, ir.Size32)
	t := in.temp(32)
	in.emit(set(t, r))
	for i := uint8(0); i < 4; i++ {
		in.emit(set(
			ir.Reg{ID: r.ID, Off: 8 * i, Width: 8},
			ir.Reg{ID: t.ID, Off: 8 * (3 - i), Width: 8},
		))
	}
	in.release(t)
}
