// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"io"
	"testing"

	"golang.org/x/xerrors"

	"github.com/xorpse/bincat/internal/decerr"
	"github.com/xorpse/bincat/internal/state"
	"github.com/xorpse/bincat/internal/test/dump"
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

func (m *machine) reg32(id ir.RegID) uint32 {
	return uint32(m.regs[id])
}

func (m *machine) flag(id ir.RegID) uint64 {
	return m.regs[id] & 1
}

func TestAddCarryZero(t *testing.T) {
	res := decode(t, 0x83, 0xc0, 0x01) // add eax, 1

	if len(res.Bytes) != 3 {
		t.Errorf("consumed %d bytes", len(res.Bytes))
	}
	if res.NextAddr != testAddr+3 {
		t.Errorf("next address %#x", res.NextAddr)
	}

	m := newMachine()
	m.regs[regEAX] = 0xffffffff
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}

	if m.reg32(regEAX) != 0 {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}
	if m.flag(regCF) != 1 {
		t.Error("carry flag not set on unsigned wraparound")
	}
	if m.flag(regZF) != 1 {
		t.Error("zero flag not set")
	}
	if m.flag(regOF) != 0 {
		t.Error("overflow flag set: -1 + 1 does not overflow")
	}
	if m.flag(regSF) != 0 {
		t.Error("sign flag set")
	}
	if m.flag(regPF) != 1 {
		t.Error("parity flag not set for zero result")
	}
}

func TestAdcCarryIn(t *testing.T) {
	res := decode(t, 0x14, 0x00) // adc al, 0

	for _, carry := range []uint64{0, 1} {
		m := newMachine()
		m.regs[regEAX] = 0xff
		m.regs[regCF] = carry
		if !m.run(res.Stmts) {
			t.Fatal(m.failed)
		}

		al := m.regs[regEAX] & 0xff
		if carry == 0 {
			if al != 0xff || m.flag(regCF) != 0 {
				t.Errorf("carry in 0: al=%#x cf=%d", al, m.flag(regCF))
			}
		} else {
			if al != 0 || m.flag(regCF) != 1 {
				t.Errorf("carry in 1: al=%#x cf=%d", al, m.flag(regCF))
			}
		}
	}
}

func TestSbbBorrowChain(t *testing.T) {
	res := decode(t, 0x1c, 0x00) // sbb al, 0

	m := newMachine()
	m.regs[regEAX] = 0
	m.regs[regCF] = 1
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}

	if al := m.regs[regEAX] & 0xff; al != 0xff {
		t.Errorf("al = %#x", al)
	}
	if m.flag(regCF) != 1 {
		t.Error("borrow not propagated")
	}
}

// A shift count which masks to zero must leave the operand and every status
// flag untouched.
func TestShiftCountMaskedToZero(t *testing.T) {
	for _, sub := range []byte{4, 5, 7} { // shl, shr, sar
		res := decode(t, 0xc1, 0xc0|sub<<3, 0x20)

		m := newMachine()
		m.regs[regEAX] = 0x80000001
		m.regs[regCF] = 1
		m.regs[regOF] = 1
		m.regs[regZF] = 1
		m.regs[regSF] = 1
		m.regs[regPF] = 1
		m.regs[regAF] = 1
		if !m.run(res.Stmts) {
			t.Fatal(m.failed)
		}

		if m.reg32(regEAX) != 0x80000001 {
			t.Errorf("sub %d: eax = %#x\n%s", sub, m.reg32(regEAX), dump.Stmts(res.Stmts))
		}
		for _, f := range []ir.RegID{regCF, regOF, regZF, regSF, regPF, regAF} {
			if m.flag(f) != 1 {
				t.Errorf("sub %d: %s modified by zero-count shift", sub, RegName(f))
			}
			if m.undef[f] {
				t.Errorf("sub %d: %s forgotten by zero-count shift", sub, RegName(f))
			}
		}
	}
}

func TestShiftLeftCarry(t *testing.T) {
	res := decode(t, 0xd1, 0xe0) // shl eax, 1

	m := newMachine()
	m.regs[regEAX] = 0x80000001
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}

	if m.reg32(regEAX) != 2 {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}
	if m.flag(regCF) != 1 {
		t.Error("carry flag did not receive the evicted bit")
	}
	if m.flag(regOF) != 1 {
		t.Error("overflow flag not set: sign changed at count 1")
	}
}

func TestRotateThroughCarry(t *testing.T) {
	res := decode(t, 0xd0, 0xd0) // rcl al, 1

	m := newMachine()
	m.regs[regEAX] = 0x80
	m.regs[regCF] = 0
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}

	if al := m.regs[regEAX] & 0xff; al != 0 {
		t.Errorf("al = %#x", al)
	}
	if m.flag(regCF) != 1 {
		t.Error("msb did not rotate into carry")
	}
}

func TestDivideOverflowTrap(t *testing.T) {
	res := decode(t, 0xf7, 0xf1) // div ecx

	m := newMachine()
	m.regs[regEDX] = 1
	m.regs[regEAX] = 0
	m.regs[regECX] = 1
	if m.run(res.Stmts) {
		t.Fatal("quotient exceeding the destination width must fail the precondition")
	}
	if m.failed != "divide overflow" {
		t.Errorf("assertion message %q", m.failed)
	}

	// Architectural state is untouched when the precondition fails.
	if m.reg32(regEAX) != 0 || m.reg32(regEDX) != 1 {
		t.Errorf("registers modified: eax=%#x edx=%#x", m.reg32(regEAX), m.reg32(regEDX))
	}
}

func TestDivideByZeroTrap(t *testing.T) {
	res := decode(t, 0xf6, 0xf3) // div bl

	m := newMachine()
	m.regs[regEAX] = 0x1234
	if m.run(res.Stmts) {
		t.Fatal("zero divisor must fail the precondition")
	}
	if m.reg32(regEAX) != 0x1234 {
		t.Errorf("eax modified: %#x", m.reg32(regEAX))
	}
}

func TestDivideQuotientRemainder(t *testing.T) {
	res := decode(t, 0xf7, 0xf1) // div ecx

	m := newMachine()
	m.regs[regEDX] = 0
	m.regs[regEAX] = 17
	m.regs[regECX] = 5
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}

	if m.reg32(regEAX) != 3 || m.reg32(regEDX) != 2 {
		t.Errorf("quotient %d remainder %d", m.reg32(regEAX), m.reg32(regEDX))
	}
}

func TestMulWideResult(t *testing.T) {
	res := decode(t, 0xf7, 0xe1) // mul ecx

	m := newMachine()
	m.regs[regEAX] = 0x10000
	m.regs[regECX] = 0x10000
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}

	if m.reg32(regEAX) != 0 || m.reg32(regEDX) != 1 {
		t.Errorf("product %#x:%#x", m.reg32(regEDX), m.reg32(regEAX))
	}
	if m.flag(regCF) != 1 || m.flag(regOF) != 1 {
		t.Error("carry/overflow not set for significant upper half")
	}
}

// 8-bit register fields 4..7 are the high-byte slices AH CH DH BH.
func TestHighByteRegisters(t *testing.T) {
	res := decode(t, 0xb4, 0x55) // mov ah, 0x55

	m := newMachine()
	m.regs[regEAX] = 0x11223344
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0x11225544 {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}

	res = decode(t, 0x88, 0xe1) // mov cl, ah
	m.regs[regECX] = 0xaabbccdd
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regECX) != 0xaabbcc55 {
		t.Errorf("ecx = %#x", m.reg32(regECX))
	}
}

func TestSixteenBitAddressing(t *testing.T) {
	// mov eax, [0x1234] with 16-bit addressing: mod=0 rm=6 is a plain
	// 16-bit displacement, not BP-relative.
	res := decode(t, 0x67, 0x8b, 0x06, 0x34, 0x12)

	if len(res.Bytes) != 5 {
		t.Fatalf("consumed %d bytes", len(res.Bytes))
	}

	m := newMachine()
	m.regs[regEBP] = 0xbad0 // must not participate
	for i, b := range []byte{0x78, 0x56, 0x34, 0x12} {
		m.mem[0x1234+uint32(i)] = b
	}
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0x12345678 {
		t.Errorf("eax = %#x\n%s", m.reg32(regEAX), dump.Stmts(res.Stmts))
	}
}

func TestSixteenBitBaseIndex(t *testing.T) {
	// mov ax, [bx+si+2]
	res := decode(t, 0x67, 0x66, 0x8b, 0x40, 0x02)

	m := newMachine()
	m.regs[regEBX] = 0x1000
	m.regs[regESI] = 0x0200
	m.mem[0x1202] = 0xcd
	m.mem[0x1203] = 0xab
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if ax := m.regs[regEAX] & 0xffff; ax != 0xabcd {
		t.Errorf("ax = %#x", ax)
	}
}

// mov eax, [bp+8]: mod=1 rm=6 is BP plus displacement, stack segment by
// default.
func TestSixteenBitBasePointer(t *testing.T) {
	stack, ok := seg.ParseDescriptor(0x00cf93010000ffff) // data based at 0x10000
	if !ok {
		t.Fatal("stack descriptor not present")
	}
	st := testSegments()
	st.GDT[4] = stack
	st.SetSelector(seg.SS, seg.SelectorFromWord(4<<3))

	res := Decode(state.New([]byte{0x67, 0x8b, 0x46, 0x08}, testAddr, st, nil))

	m := newMachine()
	m.regs[regEBP] = 0x1200
	for i, b := range []byte{0x78, 0x56, 0x34, 0x12} {
		m.mem[0x11208+uint32(i)] = b
	}
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0x12345678 {
		t.Errorf("eax = %#x\n%s", m.reg32(regEAX), dump.Stmts(res.Stmts))
	}
}

func TestSibScaledIndex(t *testing.T) {
	// mov eax, [ebx+ecx*4]
	res := decode(t, 0x8b, 0x04, 0x8b)

	m := newMachine()
	m.regs[regEBX] = 0x1000
	m.regs[regECX] = 3
	for i, b := range []byte{0xef, 0xbe, 0xad, 0xde} {
		m.mem[0x100c+uint32(i)] = b
	}
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0xdeadbeef {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}
}

func TestLeaDoesNotAccessMemory(t *testing.T) {
	// lea eax, [ebx+8]
	res := decode(t, 0x8d, 0x43, 0x08)

	m := newMachine()
	m.regs[regEBX] = 0x2000
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0x2008 {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}
}

func TestLeaRegisterOperand(t *testing.T) {
	_, err := tryDecode(0x8d, 0xc0) // lea eax, eax
	e, ok := err.(*decerr.Error)
	if !ok {
		t.Fatalf("error %v", err)
	}
	if e.Kind != decerr.Encoding {
		t.Errorf("error kind %v", e.Kind)
	}
}

func TestConditionalJump(t *testing.T) {
	res := decode(t, 0x74, 0x05) // jz +5

	m := newMachine()
	m.regs[regZF] = 1
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if len(m.jumps) != 1 || m.jumps[0] != testAddr+2+5 {
		t.Errorf("jumps %#x", m.jumps)
	}

	m = newMachine()
	m.regs[regZF] = 0
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if len(m.jumps) != 0 {
		t.Errorf("jump taken with condition false")
	}
}

func TestPushPop(t *testing.T) {
	res := decode(t, 0x50) // push eax

	m := newMachine()
	m.regs[regEAX] = 0x12345678
	m.regs[regESP] = 0x1000
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regESP) != 0xffc {
		t.Errorf("esp = %#x", m.reg32(regESP))
	}

	res = decode(t, 0x5b) // pop ebx
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEBX) != 0x12345678 {
		t.Errorf("ebx = %#x", m.reg32(regEBX))
	}
	if m.reg32(regESP) != 0x1000 {
		t.Errorf("esp = %#x", m.reg32(regESP))
	}
}

// pop esp loads the stack slot into the stack pointer itself: the popped
// value wins over the increment.
func TestPopStackPointer(t *testing.T) {
	res := decode(t, 0x5c) // pop esp

	m := newMachine()
	m.regs[regESP] = 0x1000
	for i, b := range []byte{0xdd, 0xcc, 0xbb, 0xaa} {
		m.mem[0x1000+uint32(i)] = b
	}
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regESP) != 0xaabbccdd {
		t.Errorf("esp = %#x\n%s", m.reg32(regESP), dump.Stmts(res.Stmts))
	}
}

func TestCallReturn(t *testing.T) {
	res := decode(t, 0xe8, 0x0b, 0x00, 0x00, 0x00) // call +11

	m := newMachine()
	m.regs[regESP] = 0x1000
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if len(m.calls) != 1 {
		t.Fatalf("calls %v", m.calls)
	}
	if target := m.eval(m.calls[0].Target); target != testAddr+5+11 {
		t.Errorf("call target %#x", target)
	}

	res = decode(t, 0xc3) // ret
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.rets != 1 || m.jumps[len(m.jumps)-1] != testAddr+5 {
		t.Errorf("return to %#x", m.jumps)
	}
	if m.reg32(regESP) != 0x1000 {
		t.Errorf("esp = %#x", m.reg32(regESP))
	}
}

// Nothing follows a control transfer: the transfer must be the last
// statement of its instruction.
func TestTransferEndsStatements(t *testing.T) {
	for _, code := range [][]byte{
		{0xc3},                         // ret
		{0xc2, 0x08, 0x00},             // ret 8
		{0xff, 0xd0},                   // call eax
		{0xff, 0xe0},                   // jmp eax
		{0xe9, 0x00, 0x00, 0x00, 0x00}, // jmp +0
	} {
		res := decode(t, code...)

		switch res.Stmts[len(res.Stmts)-1].(type) {
		case ir.Jmp, ir.Call, ir.Ret:
		default:
			t.Errorf("%x: statements continue past the control transfer\n%s", code, dump.Stmts(res.Stmts))
		}
	}
}

// REP STOS produces a single bounding directive, never per-element blocks.
func TestRepStosSingleDirective(t *testing.T) {
	res := decode(t, 0xf3, 0xab) // rep stosd

	var unrolls int
	for _, stmt := range res.Stmts {
		if d, ok := stmt.(ir.Directive); ok && d.Kind == ir.DirUnroll {
			unrolls++
			if d.Bound != repUnrollBound {
				t.Errorf("bound %d", d.Bound)
			}
		}
	}
	if unrolls != 1 {
		t.Errorf("%d unroll directives\n%s", unrolls, dump.Stmts(res.Stmts))
	}

	// One trip round the loop stores an element, steps EDI and decrements
	// ECX before re-entering the instruction.
	m := newMachine()
	m.regs[regEAX] = 0xaabbccdd
	m.regs[regECX] = 3
	m.regs[regEDI] = 0x100
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regECX) != 2 || m.reg32(regEDI) != 0x104 {
		t.Errorf("ecx=%d edi=%#x", m.reg32(regECX), m.reg32(regEDI))
	}
	if m.mem[0x100] != 0xdd || m.mem[0x103] != 0xaa {
		t.Error("element not stored")
	}
	if len(m.jumps) != 1 || m.jumps[0] != testAddr {
		t.Errorf("loop jump %#x", m.jumps)
	}
}

func TestRepMovsTerminates(t *testing.T) {
	res := decode(t, 0xf3, 0xa4) // rep movsb

	m := newMachine()
	m.regs[regECX] = 0
	m.regs[regESI] = 0x100
	m.regs[regEDI] = 0x200
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if len(m.jumps) != 0 {
		t.Error("looped with zero count")
	}
}

func TestRepOnNonStringOpcode(t *testing.T) {
	_, err := tryDecode(0xf3, 0x01, 0xc0) // rep add eax, eax
	e, ok := err.(*decerr.Error)
	if !ok {
		t.Fatalf("error %v", err)
	}
	if e.Kind != decerr.Prefix {
		t.Errorf("error kind %v", e.Kind)
	}
}

func TestRepneOnNonComparison(t *testing.T) {
	_, err := tryDecode(0xf2, 0xa5) // repne movsd
	e, ok := err.(*decerr.Error)
	if !ok {
		t.Fatalf("error %v", err)
	}
	if e.Kind != decerr.Prefix {
		t.Errorf("error kind %v", e.Kind)
	}
}

func TestTruncatedInstruction(t *testing.T) {
	_, err := tryDecode(0x81, 0xc0, 0x01) // add eax, imm32 cut short
	if !xerrors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error %v", err)
	}
}

func TestOperandSizePrefix(t *testing.T) {
	res := decode(t, 0x66, 0x05, 0x01, 0x00) // add ax, 1

	if len(res.Bytes) != 4 {
		t.Fatalf("consumed %d bytes", len(res.Bytes))
	}

	m := newMachine()
	m.regs[regEAX] = 0xdead_ffff
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0xdead0000 {
		t.Errorf("eax = %#x: upper half must survive a 16-bit add", m.reg32(regEAX))
	}
	if m.flag(regCF) != 1 {
		t.Error("carry not set at 16-bit width")
	}
}

func TestIncPreservesCarry(t *testing.T) {
	res := decode(t, 0x40) // inc eax

	m := newMachine()
	m.regs[regEAX] = 0xffffffff
	m.regs[regCF] = 0
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0 {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}
	if m.flag(regCF) != 0 {
		t.Error("inc modified the carry flag")
	}
	if m.flag(regZF) != 1 {
		t.Error("zero flag not set")
	}
}

func TestXchgMemRegister(t *testing.T) {
	res := decode(t, 0x87, 0x03) // xchg [ebx], eax

	m := newMachine()
	m.regs[regEAX] = 0x11111111
	m.regs[regEBX] = 0x300
	for i, b := range []byte{0x44, 0x33, 0x22, 0x11} {
		m.mem[0x300+uint32(i)] = b
	}
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0x11223344 {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}
	if m.mem[0x300] != 0x11 {
		t.Error("memory operand not written")
	}
}

func TestCmpxchg(t *testing.T) {
	res := decode(t, 0x0f, 0xb1, 0x0b) // cmpxchg [ebx], ecx

	m := newMachine()
	m.regs[regEAX] = 0x5
	m.regs[regECX] = 0x9
	m.regs[regEBX] = 0x400
	m.mem[0x400] = 0x5
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.flag(regZF) != 1 {
		t.Error("zero flag not set on equal compare")
	}
	if m.mem[0x400] != 0x9 {
		t.Error("exchange not performed")
	}
}

func TestSetccMovzx(t *testing.T) {
	res := decode(t, 0x0f, 0x94, 0xc0) // sete al

	m := newMachine()
	m.regs[regEAX] = 0xffffff00
	m.regs[regZF] = 1
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if al := m.regs[regEAX] & 0xff; al != 1 {
		t.Errorf("al = %#x", al)
	}

	res = decode(t, 0x0f, 0xb6, 0xc8) // movzx ecx, al
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regECX) != 1 {
		t.Errorf("ecx = %#x", m.reg32(regECX))
	}
}

func TestMovsxNegative(t *testing.T) {
	res := decode(t, 0x0f, 0xbe, 0xc8) // movsx ecx, al

	m := newMachine()
	m.regs[regEAX] = 0x80
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regECX) != 0xffffff80 {
		t.Errorf("ecx = %#x", m.reg32(regECX))
	}
}

func TestBswap(t *testing.T) {
	res := decode(t, 0x0f, 0xc8) // bswap eax

	m := newMachine()
	m.regs[regEAX] = 0x12345678
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.reg32(regEAX) != 0x78563412 {
		t.Errorf("eax = %#x", m.reg32(regEAX))
	}
}

func TestBitTest(t *testing.T) {
	res := decode(t, 0x0f, 0xba, 0xe0, 0x07) // bt eax, 7

	m := newMachine()
	m.regs[regEAX] = 0x80
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if m.flag(regCF) != 1 {
		t.Error("carry did not receive the tested bit")
	}
}

func TestControlRegisterMove(t *testing.T) {
	for _, code := range [][]byte{
		{0x0f, 0x20, 0xc0}, // mov eax, cr0
		{0x0f, 0x21, 0xc0}, // mov eax, dr0
		{0x0f, 0x22, 0xc0}, // mov cr0, eax
	} {
		_, err := tryDecode(code...)
		e, ok := err.(*decerr.Error)
		if !ok {
			t.Fatalf("%x: error %v", code, err)
		}
		if e.Kind != decerr.Unsupported {
			t.Errorf("%x: error kind %v", code, e.Kind)
		}
	}
}

func TestUndefinedFlagsForgotten(t *testing.T) {
	res := decode(t, 0x09, 0xc0) // or eax, eax

	m := newMachine()
	if !m.run(res.Stmts) {
		t.Fatal(m.failed)
	}
	if !m.undef[regAF] {
		t.Error("adjust flag not marked undefined after a logical operation")
	}
	if m.flag(regCF) != 0 || m.flag(regOF) != 0 {
		t.Error("carry/overflow not cleared")
	}
}

func TestTempsRemoved(t *testing.T) {
	// Every decode-scoped temporary must be released on the fallthrough
	// path so downstream state does not accumulate dead bindings.
	for _, code := range [][]byte{
		{0x83, 0xc0, 0x01},       // add eax, 1
		{0xc1, 0xe0, 0x04},       // shl eax, 4
		{0xf7, 0xe1},             // mul ecx
		{0x0f, 0xa4, 0xd8, 0x04}, // shld eax, ebx, 4
		{0x27},                   // daa
		{0x5c},                   // pop esp
		{0xff, 0xd0},             // call eax
	} {
		res := decode(t, code...)

		created := make(map[ir.RegID]bool)
		var walk func(stmts []ir.Stmt)
		walk = func(stmts []ir.Stmt) {
			for _, stmt := range stmts {
				switch stmt := stmt.(type) {
				case ir.Set:
					if r, ok := stmt.Dst.(ir.Reg); ok && r.ID >= ir.TempBase {
						created[r.ID] = true
					}
				case ir.If:
					walk(stmt.Then)
					walk(stmt.Else)
				case ir.Directive:
					if stmt.Kind == ir.DirRemove {
						if r, ok := stmt.Loc.(ir.Reg); ok {
							delete(created, r.ID)
						}
					}
				}
			}
		}
		walk(res.Stmts)

		if len(created) != 0 {
			t.Errorf("%x: %d temporaries leaked\n%s", code, len(created), dump.Stmts(res.Stmts))
		}
	}
}
