// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// General registers in ModRM encoding order.
const (
	regEAX = ir.RegID(0)
	regECX = ir.RegID(1)
	regEDX = ir.RegID(2)
	regEBX = ir.RegID(3)
	regESP = ir.RegID(4)
	regEBP = ir.RegID(5)
	regESI = ir.RegID(6)
	regEDI = ir.RegID(7)
)

// Segment registers occupy IDs 8..13, in ModRM reg field order (ES CS SS DS
// FS GS).
const regSegBase = ir.RegID(8)

// Status and control flags, as 1-bit registers.
const (
	regCF = ir.RegID(16)
	regPF = ir.RegID(17)
	regAF = ir.RegID(18)
	regZF = ir.RegID(19)
	regSF = ir.RegID(20)
	regTF = ir.RegID(21)
	regIF = ir.RegID(22)
	regDF = ir.RegID(23)
	regOF = ir.RegID(24)
)

var (
	fCF = ir.Reg{ID: regCF, Width: 1}
	fPF = ir.Reg{ID: regPF, Width: 1}
	fAF = ir.Reg{ID: regAF, Width: 1}
	fZF = ir.Reg{ID: regZF, Width: 1}
	fSF = ir.Reg{ID: regSF, Width: 1}
	fTF = ir.Reg{ID: regTF, Width: 1}
	fIF = ir.Reg{ID: regIF, Width: 1}
	fDF = ir.Reg{ID: regDF, Width: 1}
	fOF = ir.Reg{ID: regOF, Width: 1}
)

var regNames = map[ir.RegID]string{
	regEAX: "eax",
	regECX: "ecx",
	regEDX: "edx",
	regEBX: "ebx",
	regESP: "esp",
	regEBP: "ebp",
	regESI: "esi",
	regEDI: "edi",
	regCF:  "cf",
	regPF:  "pf",
	regAF:  "af",
	regZF:  "zf",
	regSF:  "sf",
	regTF:  "tf",
	regIF:  "if",
	regDF:  "df",
	regOF:  "of",
}

// RegName is the conventional name of an architectural register ID.
func RegName(id ir.RegID) string {
	if name, found := regNames[id]; found {
		return name
	}
	if id >= regSegBase && id < regSegBase+seg.NumRegs {
		return seg.Reg(id - regSegBase).String()
	}
	return "<unknown register>"
}

// gpr accesses a whole general register at the given operand size.
func gpr(n byte, size ir.Size) ir.Reg {
	return ir.Reg{ID: ir.RegID(n), Width: uint8(size)}
}

// gpr8 resolves an 8-bit register field.  Fields 4..7 are the high-byte
// slices of registers 0..3 (AH CH DH BH), not registers 4..7.
func gpr8(n byte) ir.Reg {
	if n < 4 {
		return ir.Reg{ID: ir.RegID(n), Width: 8}
	}
	return ir.Reg{ID: ir.RegID(n - 4), Off: 8, Width: 8}
}

// segReg is the IR register holding a segment register value.
func segReg(r seg.Reg) ir.Reg {
	return ir.Reg{ID: regSegBase + ir.RegID(r), Width: 16}
}
