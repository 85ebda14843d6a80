// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Stmt is a single effect of an instruction.  The statements of one
// instruction form an ordered sequence: a later statement observes the
// assignments of earlier ones.
type Stmt interface {
	stmtNode()
}

// Set assigns the value of Src to Dst.  When Dst is a register sub-range,
// only the named bits change.
type Set struct {
	Dst Lval
	Src Expr
}

// If evaluates the 1-bit Cond and executes one of the branches.  An empty
// Else branch falls through.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Jmp transfers control to Target.  Without a preceding Jmp, control falls
// through to the next instruction address.
type Jmp struct {
	Target Expr
}

// Call transfers control to Target with call semantics.  Symbol is non-empty
// when the target was recognized as a modeled library function.
type Call struct {
	Target Expr
	Symbol string
}

// Ret transfers control to Target with return semantics, so that the
// consumer can unwind its call context.
type Ret struct {
	Target Expr
}

// Assert aborts the program when the 1-bit Cond is false.
type Assert struct {
	Cond Expr
	Msg  string
}

func (Set) stmtNode()       {}
func (If) stmtNode()        {}
func (Jmp) stmtNode()       {}
func (Call) stmtNode()      {}
func (Ret) stmtNode()       {}
func (Assert) stmtNode()    {}
func (Directive) stmtNode() {}

type DirKind uint8

const (
	// DirRemove releases a temporary register.  The directive precedes any
	// control transfer naming the temporary as its target; the transfer
	// ends the instruction, so the temporary does not outlive it.
	DirRemove = DirKind(iota)

	// DirForget discards any knowledge of the value at Loc.  Also used to
	// mark a flag as architecturally undefined, which is distinct from
	// leaving it unchanged.
	DirForget

	// DirTaint propagates the taint of Src to Loc.
	DirTaint

	// DirUnroll bounds fixpoint iteration over a self-loop: iterate while
	// Pred holds, at most Bound times.
	DirUnroll
)

func (k DirKind) String() string {
	switch k {
	case DirRemove:
		return "remove"

	case DirForget:
		return "forget"

	case DirTaint:
		return "taint"

	case DirUnroll:
		return "unroll"

	default:
		return "<invalid directive>"
	}
}

// Directive is an analysis hint without machine-visible effect.
type Directive struct {
	Kind  DirKind
	Loc   Lval
	Src   Expr   // DirTaint source
	Pred  Expr   // DirUnroll predicate
	Bound uint32 // DirUnroll iteration bound
}

// Remove constructs a temporary-release directive.
func Remove(r Reg) Directive {
	return Directive{Kind: DirRemove, Loc: r}
}

// Forget constructs a forget directive.
func Forget(l Lval) Directive {
	return Directive{Kind: DirForget, Loc: l}
}
