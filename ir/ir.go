// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir defines the statement and expression forms produced by the
// decoders.  Statements are consumed by an abstract interpretation engine;
// this package only defines their shape, not their evaluation.
package ir

// Size of a data operand or address computation, in bits.
type Size uint8

const (
	Size8  = Size(8)
	Size16 = Size(16)
	Size32 = Size(32)
	Size64 = Size(64)
)

// Bytes occupied by a value of this size.
func (s Size) Bytes() int {
	return int(s) / 8
}

func (s Size) String() string {
	switch s {
	case Size8:
		return "byte"

	case Size16:
		return "word"

	case Size32:
		return "dword"

	case Size64:
		return "qword"

	default:
		return "<invalid size>"
	}
}

// RegID names a storage location.  The architectural registers of a decoder
// occupy a small fixed range; temporaries are allocated above TempBase.
type RegID uint32

const TempBase = RegID(0x100)

// Expr is a side-effect-free computation over registers, memory and
// constants.
type Expr interface {
	exprNode()
}

// Lval is an expression which also denotes an assignable location.
type Lval interface {
	Expr
	lvalNode()
}

// Reg reads or writes a sub-range of a register.  Off and Width are in bits;
// a full-register access has Off 0 and the register's native width.  Writing
// a proper sub-range leaves the remaining bits of the register untouched.
type Reg struct {
	ID    RegID
	Off   uint8
	Width uint8
}

// Mem reads or writes Size bits of memory at Addr.
type Mem struct {
	Addr Expr
	Size Size
}

// Const is an unsigned constant of the given bit width.
type Const struct {
	Val   uint64
	Width uint8
}

// Bin applies a binary operator.  Comparison operators yield a 1-bit value;
// the arithmetic and logic operators preserve the width of their operands.
type Bin struct {
	Op   BinOp
	X, Y Expr
}

// Un applies a unary operator.
type Un struct {
	Op UnOp
	X  Expr
}

// Ext widens X to Width bits, by zero or sign extension.
type Ext struct {
	X      Expr
	Width  uint8
	Signed bool
}

func (Reg) exprNode()   {}
func (Mem) exprNode()   {}
func (Const) exprNode() {}
func (Bin) exprNode()   {}
func (Un) exprNode()    {}
func (Ext) exprNode()   {}

func (Reg) lvalNode() {}
func (Mem) lvalNode() {}

// C constructs a constant.
func C(v uint64, width uint8) Const {
	return Const{Val: v, Width: width}
}

// B constructs a binary expression.
func B(op BinOp, x, y Expr) Bin {
	return Bin{Op: op, X: x, Y: y}
}

// U constructs a unary expression.
func U(op UnOp, x Expr) Un {
	return Un{Op: op, X: x}
}

// ZeroExt widens x to width bits with zero extension.
func ZeroExt(x Expr, width uint8) Ext {
	return Ext{X: x, Width: width}
}

// SignExt widens x to width bits with sign extension.
func SignExt(x Expr, width uint8) Ext {
	return Ext{X: x, Width: width, Signed: true}
}
