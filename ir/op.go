// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// BinOp is a binary operator.  The shift operators yield zero for amounts
// at or beyond the operand width.
type BinOp uint8

const (
	Add = BinOp(iota)
	Sub
	Mul
	Div
	IDiv
	Mod
	IMod
	And
	Or
	Xor
	Shl
	Shr
	Sar
	Eq
	Ne
	Ult
	Ule
	Ugt
	Uge
	Slt
	Sle
	Sgt
	Sge
)

var binOpStrings = [...]string{
	Add:  "+",
	Sub:  "-",
	Mul:  "*",
	Div:  "/u",
	IDiv: "/s",
	Mod:  "%u",
	IMod: "%s",
	And:  "&",
	Or:   "|",
	Xor:  "^",
	Shl:  "<<",
	Shr:  ">>u",
	Sar:  ">>s",
	Eq:   "==",
	Ne:   "!=",
	Ult:  "<u",
	Ule:  "<=u",
	Ugt:  ">u",
	Uge:  ">=u",
	Slt:  "<s",
	Sle:  "<=s",
	Sgt:  ">s",
	Sge:  ">=s",
}

func (op BinOp) String() string {
	if int(op) < len(binOpStrings) {
		return binOpStrings[op]
	}
	return "<invalid binary op>"
}

// Comparison is true for the operators which yield a 1-bit result.
func (op BinOp) Comparison() bool {
	return op >= Eq
}

type UnOp uint8

const (
	Not = UnOp(iota)
	Neg
	Parity
)

func (op UnOp) String() string {
	switch op {
	case Not:
		return "!"

	case Neg:
		return "-"

	case Parity:
		return "parity"

	default:
		return "<invalid unary op>"
	}
}
