// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"math/bits"
	"testing"

	"github.com/xorpse/bincat/internal/state"
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// machine executes statement sequences concretely so that tests can observe
// instruction semantics instead of matching statement trees.
type machine struct {
	regs   map[ir.RegID]uint64
	undef  map[ir.RegID]bool
	mem    map[uint32]byte
	jumps  []uint64
	calls  []ir.Call
	rets   int
	failed string
	halted bool
}

func newMachine() *machine {
	return &machine{
		regs:  make(map[ir.RegID]uint64),
		undef: make(map[ir.RegID]bool),
		mem:   make(map[uint32]byte),
	}
}

func maskBits(w uint8) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<w - 1
}

func signExtend(x uint64, w uint8) int64 {
	if w >= 64 {
		return int64(x)
	}
	if x&(1<<(w-1)) != 0 {
		x |= ^uint64(0) << w
	}
	return int64(x)
}

func exprWidth(x ir.Expr) uint8 {
	switch x := x.(type) {
	case ir.Reg:
		return x.Width
	case ir.Mem:
		return uint8(x.Size)
	case ir.Const:
		return x.Width
	case ir.Ext:
		return x.Width
	case ir.Un:
		return exprWidth(x.X)
	case ir.Bin:
		if x.Op.Comparison() {
			return 1
		}
		return exprWidth(x.X)
	}
	return 0
}

func (m *machine) eval(x ir.Expr) uint64 {
	switch x := x.(type) {
	case ir.Reg:
		return m.regs[x.ID] >> x.Off & maskBits(x.Width)

	case ir.Const:
		return x.Val & maskBits(x.Width)

	case ir.Mem:
		addr := uint32(m.eval(x.Addr))
		var v uint64
		for i := 0; i < x.Size.Bytes(); i++ {
			v |= uint64(m.mem[addr+uint32(i)]) << (8 * i)
		}
		return v

	case ir.Ext:
		v := m.eval(x.X)
		if x.Signed {
			return uint64(signExtend(v, exprWidth(x.X))) & maskBits(x.Width)
		}
		return v

	case ir.Un:
		v := m.eval(x.X)
		w := exprWidth(x.X)
		switch x.Op {
		case ir.Not:
			return ^v & maskBits(w)
		case ir.Neg:
			return -v & maskBits(w)
		case ir.Parity:
			if bits.OnesCount8(uint8(v))%2 == 0 {
				return 1
			}
			return 0
		}

	case ir.Bin:
		a, b := m.eval(x.X), m.eval(x.Y)
		w := exprWidth(x.X)
		mask := maskBits(w)
		boolVal := func(ok bool) uint64 {
			if ok {
				return 1
			}
			return 0
		}
		switch x.Op {
		case ir.Add:
			return (a + b) & mask
		case ir.Sub:
			return (a - b) & mask
		case ir.Mul:
			return (a * b) & mask
		case ir.Div:
			return (a / b) & mask
		case ir.IDiv:
			return uint64(signExtend(a, w)/signExtend(b, w)) & mask
		case ir.Mod:
			return (a % b) & mask
		case ir.IMod:
			return uint64(signExtend(a, w)%signExtend(b, w)) & mask
		case ir.And:
			return a & b
		case ir.Or:
			return a | b
		case ir.Xor:
			return a ^ b
		case ir.Shl:
			if b >= uint64(w) {
				return 0
			}
			return (a << b) & mask
		case ir.Shr:
			if b >= uint64(w) {
				return 0
			}
			return a >> b
		case ir.Sar:
			if b >= uint64(w) {
				return 0
			}
			return uint64(signExtend(a, w)>>b) & mask
		case ir.Eq:
			return boolVal(a == b)
		case ir.Ne:
			return boolVal(a != b)
		case ir.Ult:
			return boolVal(a < b)
		case ir.Ule:
			return boolVal(a <= b)
		case ir.Ugt:
			return boolVal(a > b)
		case ir.Uge:
			return boolVal(a >= b)
		case ir.Slt:
			return boolVal(signExtend(a, w) < signExtend(b, w))
		case ir.Sle:
			return boolVal(signExtend(a, w) <= signExtend(b, w))
		case ir.Sgt:
			return boolVal(signExtend(a, w) > signExtend(b, w))
		case ir.Sge:
			return boolVal(signExtend(a, w) >= signExtend(b, w))
		}
	}
	return 0
}

func (m *machine) assign(dst ir.Lval, v uint64) {
	switch dst := dst.(type) {
	case ir.Reg:
		mask := maskBits(dst.Width) << dst.Off
		m.regs[dst.ID] = m.regs[dst.ID]&^mask | v<<dst.Off&mask
		delete(m.undef, dst.ID)

	case ir.Mem:
		addr := uint32(m.eval(dst.Addr))
		for i := 0; i < dst.Size.Bytes(); i++ {
			m.mem[addr+uint32(i)] = byte(v >> (8 * i))
		}
	}
}

// run executes one instruction's statements.  False means an assertion
// failed; control transfers are recorded and halt execution.
func (m *machine) run(stmts []ir.Stmt) bool {
	m.halted = false
	return m.exec(stmts)
}

func (m *machine) exec(stmts []ir.Stmt) bool {
	for _, stmt := range stmts {
		switch stmt := stmt.(type) {
		case ir.Set:
			m.assign(stmt.Dst, m.eval(stmt.Src))

		case ir.If:
			branch := stmt.Else
			if m.eval(stmt.Cond) != 0 {
				branch = stmt.Then
			}
			if !m.exec(branch) {
				return false
			}
			if m.halted {
				return true
			}

		case ir.Jmp:
			m.jumps = append(m.jumps, m.eval(stmt.Target))
			m.halted = true
			return true

		case ir.Call:
			m.calls = append(m.calls, stmt)
			m.halted = true
			return true

		case ir.Ret:
			m.rets++
			m.jumps = append(m.jumps, m.eval(stmt.Target))
			m.halted = true
			return true

		case ir.Assert:
			if m.eval(stmt.Cond) == 0 {
				m.failed = stmt.Msg
				return false
			}

		case ir.Directive:
			if stmt.Kind == ir.DirForget {
				if r, ok := stmt.Loc.(ir.Reg); ok {
					m.undef[r.ID] = true
				}
			}
		}
	}
	return true
}

// Flat 4 GiB code and data segments at privilege level 0.
func testSegments() *seg.State {
	code, ok := seg.ParseDescriptor(0x00cf9b000000ffff)
	if !ok {
		panic("code descriptor not present")
	}
	data, ok := seg.ParseDescriptor(0x00cf93000000ffff)
	if !ok {
		panic("data descriptor not present")
	}

	st := &seg.State{
		GDT:        seg.Table{1: code, 2: data},
		StackWidth: ir.Size32,
	}
	st.SetSelector(seg.CS, seg.SelectorFromWord(1<<3))
	for _, r := range []seg.Reg{seg.SS, seg.DS, seg.ES, seg.FS, seg.GS} {
		st.SetSelector(r, seg.SelectorFromWord(2<<3))
	}
	return st
}

const testAddr = 0x8048000

func decode(t *testing.T, code ...byte) *state.Result {
	t.Helper()

	res, err := tryDecode(code...)
	if err != nil {
		t.Fatalf("decode %x: %v", code, err)
	}
	return res
}

func tryDecode(code ...byte) (res *state.Result, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = x.(error)
		}
	}()

	res = Decode(state.New(code, testAddr, testSegments(), nil))
	return
}
