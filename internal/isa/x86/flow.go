// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// cond resolves the low nibble of a condition opcode into a 1-bit
// expression over the flag registers.
func cond(n byte) ir.Expr {
	switch n & 0xf {
	case 0x0:
		return fOF
	case 0x1:
		return not(fOF)
	case 0x2:
		return fCF
	case 0x3:
		return not(fCF)
	case 0x4:
		return fZF
	case 0x5:
		return not(fZF)
	case 0x6:
		return bor(fCF, fZF)
	case 0x7:
		return not(bor(fCF, fZF))
	case 0x8:
		return fSF
	case 0x9:
		return not(fSF)
	case 0xa:
		return fPF
	case 0xb:
		return not(fPF)
	case 0xc:
		return ne(fSF, fOF)
	case 0xd:
		return eq(fSF, fOF)
	case 0xe:
		return bor(fZF, ne(fSF, fOF))
	default:
		return band(not(fZF), eq(fSF, fOF))
	}
}

// relTarget reads a relative displacement of dispBits and computes the
// branch target, validated against the code segment limit.
func (in *insn) relTarget(dispBits uint8) uint32 {
	disp := uint32(in.s.ReadImm(dispBits, 32, true))
	target := in.s.NextAddr() + disp
	in.s.Seg.CheckCode(target, in.s.Addr)
	return target
}

func (in *insn) jcc(n byte, dispBits uint8) {
	target := in.relTarget(dispBits)
	in.emit(ir.If{
		Cond: cond(n),
		Then: []ir.Stmt{ir.Jmp{Target: ir.C(uint64(target), 32)}},
	})
}

func (in *insn) setcc(n byte) {
	mod, _, rm := in.modRM()
	in.emit(set(in.rmOp(mod, rm, ir.Size8), ir.ZeroExt(cond(n), 8)))
}

func (in *insn) cmovcc(n byte) {
	mod, reg, rm := in.modRM()
	src := in.rmOp(mod, rm, in.opSize())
	in.emit(ir.If{
		Cond: cond(n),
		Then: []ir.Stmt{set(in.regOp(reg, in.opSize()), src)},
	})
}

func (in *insn) jmpRel(dispBits uint8) {
	target := in.relTarget(dispBits)
	in.emit(ir.Jmp{Target: ir.C(uint64(target), 32)})
}

// jmpFar revalidates the target descriptor (code type, exact privilege
// match), installs the new code segment value, and jumps.
func (in *insn) jmpFar() {
	off := uint32(in.s.ReadInt(in.opSize().Bytes()))
	sel := seg.SelectorFromWord(uint16(in.s.ReadInt(2)))

	target := in.s.Seg.CodeTarget(sel, off, in.s.Addr)
	in.s.Seg.SetSelector(seg.CS, sel)
	in.emit(
		set(segReg(seg.CS), ir.C(uint64(sel.Word()), 16)),
		ir.Jmp{Target: ir.C(uint64(target), 32)},
	)
}

// loop decrements a counter sized to the address width and branches on the
// counter, combined with a zero-flag condition per variant (0xe0 LOOPNE,
// 0xe1 LOOPE, 0xe2 LOOP).
func (in *insn) loop(op byte) {
	target := in.relTarget(8)
	cx := gpr(1, in.s.AddrSize)
	w := in.addrBits()

	in.emit(set(cx, sub(cx, ir.C(1, w))))

	c := ne(cx, ir.C(0, w))
	switch op {
	case 0xe0:
		c = band(c, not(fZF))
	case 0xe1:
		c = band(c, fZF)
	}
	in.emit(ir.If{
		Cond: c,
		Then: []ir.Stmt{ir.Jmp{Target: ir.C(uint64(target), 32)}},
	})
}

func (in *insn) jcxz() {
	target := in.relTarget(8)
	cx := gpr(1, in.s.AddrSize)
	in.emit(ir.If{
		Cond: eq(cx, ir.C(0, in.addrBits())),
		Then: []ir.Stmt{ir.Jmp{Target: ir.C(uint64(target), 32)}},
	})
}

// push stores values of w bits, adjusting the stack pointer before each
// store.  When the stack pointer itself appears among the values, its
// pre-push value is captured first, matching the multi-register push
// behavior.
func (in *insn) push(w uint8, vals ...ir.Expr) {
	sp := in.stackPtr()

	var pre ir.Reg
	captured := false
	for i, v := range vals {
		if r, ok := v.(ir.Reg); ok && r.ID == regESP {
			if !captured {
				pre = in.temp(r.Width)
				in.emit(set(pre, r))
				captured = true
			}
			vals[i] = pre
		}
	}

	for _, v := range vals {
		in.emit(
			set(sp, sub(sp, ir.C(uint64(w/8), in.stackBits()))),
			set(in.stackMem(ir.Size(w)), v),
		)
	}

	if captured {
		in.release(pre)
	}
}

// pop stages the stack slot in a temporary and adjusts the stack pointer
// before committing, so that a destination aliasing the stack pointer
// receives the popped value.
func (in *insn) pop(dst ir.Lval, w uint8) {
	sp := in.stackPtr()
	t := in.temp(w)
	in.emit(
		set(t, in.stackMem(ir.Size(w))),
		set(sp, add(sp, ir.C(uint64(w/8), in.stackBits()))),
		set(dst, t),
	)
	in.release(t)
}

// pushSeg zero-extends the 16-bit segment register value to the full
// operand width; the stack pointer moves by the configured stack width.
func (in *insn) pushSeg(r seg.Reg) {
	sp := in.stackPtr()
	in.emit(
		set(sp, sub(sp, ir.C(uint64(in.stackBits()/8), in.stackBits()))),
		set(in.stackMem(in.opSize()), ir.ZeroExt(segReg(r), in.opBits())),
	)
}

// popSeg rejects the code segment register: a popped CS is illegal.
func (in *insn) popSeg(r seg.Reg) {
	if r == seg.CS {
		in.encodingError("pop cs")
	}
	sp := in.stackPtr()
	in.emit(
		set(segReg(r), in.stackMem(ir.Size16)),
		set(sp, add(sp, ir.C(uint64(in.stackBits()/8), in.stackBits()))),
	)
}

// pushAll pushes the eight general registers; the stack pointer value
// pushed is the pre-push one, via the capture in push.
func (in *insn) pushAll() {
	w := in.opBits()
	in.push(w,
		gpr(0, in.opSize()), gpr(1, in.opSize()), gpr(2, in.opSize()), gpr(3, in.opSize()),
		gpr(4, in.opSize()), gpr(5, in.opSize()), gpr(6, in.opSize()), gpr(7, in.opSize()),
	)
}

// popAll pops in reverse order, discarding the stored stack pointer.
func (in *insn) popAll() {
	w := in.opBits()
	sp := in.stackPtr()
	for _, n := range []byte{7, 6, 5} {
		in.pop(gpr(n, in.opSize()), w)
	}
	in.emit(set(sp, add(sp, ir.C(uint64(w/8), in.stackBits()))))
	for _, n := range []byte{3, 2, 1, 0} {
		in.pop(gpr(n, in.opSize()), w)
	}
}

// EFLAGS bit positions of the modeled flags.
var flagBits = []struct {
	f   ir.Reg
	pos uint8
}{
	{fCF, 0},
	{fPF, 2},
	{fAF, 4},
	{fZF, 6},
	{fSF, 7},
	{fTF, 8},
	{fIF, 9},
	{fDF, 10},
	{fOF, 11},
}

func (in *insn) pushFlags() {
	w := in.opBits()
	val := ir.Expr(ir.C(2, w)) // reserved bit 1 reads as set
	for _, fb := range flagBits {
		val = bor(val, shl(ir.ZeroExt(fb.f, w), ir.C(uint64(fb.pos), w)))
	}
	in.push(w, val)
}

func (in *insn) popFlags() {
	w := in.opBits()
	t := in.temp(w)
	in.pop(t, w)
	for _, fb := range flagBits {
		in.emit(set(fb.f, bit(t, ir.C(uint64(fb.pos), w), w)))
	}
	in.release(t)
}

// storeFlagsAH / loadFlagsAH implement LAHF and SAHF on the low byte of
// the flag image.
func (in *insn) storeFlagsAH() {
	val := ir.Expr(ir.C(2, 8))
	for _, fb := range flagBits {
		if fb.pos < 8 {
			val = bor(val, shl(ir.ZeroExt(fb.f, 8), ir.C(uint64(fb.pos), 8)))
		}
	}
	in.emit(set(regAH, val))
}

func (in *insn) loadFlagsAH() {
	for _, fb := range flagBits {
		if fb.pos < 8 {
			in.emit(set(fb.f, bit(regAH, ir.C(uint64(fb.pos), 8), 8)))
		}
	}
}

// call pushes the return address sized to the operand width, then
// transfers.  Constant targets are resolved against the import table so
// modeled library calls carry their symbol.
func (in *insn) call(target ir.Expr, dispBits uint8, relative bool) {
	var stmt ir.Call
	if relative {
		addr := in.relTarget(dispBits)
		stmt = ir.Call{Target: ir.C(uint64(addr), 32)}
		if in.s.Imports != nil {
			if sym, ok := in.s.Imports.ResolveCall(addr); ok {
				stmt.Symbol = sym
			}
		}
	} else {
		stmt = ir.Call{Target: target}
	}

	in.push(in.opBits(), ir.C(uint64(in.s.NextAddr()), in.opBits()))
	in.emit(stmt)
}

func (in *insn) callFar() {
	off := uint32(in.s.ReadInt(in.opSize().Bytes()))
	sel := seg.SelectorFromWord(uint16(in.s.ReadInt(2)))
	target := in.s.Seg.CodeTarget(sel, off, in.s.Addr)

	in.pushSeg(seg.CS)
	in.push(in.opBits(), ir.C(uint64(in.s.NextAddr()), in.opBits()))

	in.s.Seg.SetSelector(seg.CS, sel)
	in.emit(
		set(segReg(seg.CS), ir.C(uint64(sel.Word()), 16)),
		ir.Call{Target: ir.C(uint64(target), 32)},
	)
}

// ret pops the return address and releases imm extra bytes of stack.  The
// return slot is addressed relative to the adjusted stack pointer, so no
// temporary is live at the transfer.
func (in *insn) ret(imm uint64) {
	w := in.opBits()
	sp := in.stackPtr()
	n := ir.C(uint64(w/8)+imm, in.stackBits())
	in.emit(
		set(sp, add(sp, n)),
		ir.Ret{Target: in.memAt(sub(sp, n), seg.SS, false, in.opSize())},
	)
}

func (in *insn) enter(alloc uint64, level byte) {
	if level != 0 {
		in.unsupported("enter with nesting level %d", level)
	}
	w := in.opBits()
	bp := gpr(5, in.opSize())
	sp := in.stackPtr()
	in.push(w, bp)
	in.emit(
		set(bp, sp),
		set(sp, sub(sp, ir.C(alloc, in.stackBits()))),
	)
}

func (in *insn) leave() {
	bp := gpr(5, in.opSize())
	in.emit(set(in.stackPtr(), bp))
	in.pop(bp, in.opBits())
}
