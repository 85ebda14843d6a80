// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"github.com/xorpse/bincat/ir"
)

// The coprocessor instructions are decoded only approximately: the ModRM
// byte is consumed so that instruction lengths stay exact, and memory
// destinations are marked unknown with forget directives.  Coprocessor
// register state is not modeled at all.

// fpuStoreSub marks the group sub-opcodes which write their memory operand,
// per escape byte 0xd8..0xdf.
var fpuStoreSub = [8]uint8{
	0xd8 & 7: 0,
	0xd9 & 7: 1<<2 | 1<<3 | 1<<6 | 1<<7, // fst/fstp/fnstenv/fnstcw
	0xda & 7: 0,
	0xdb & 7: 1<<2 | 1<<3 | 1<<7, // fist/fistp/fstp80
	0xdc & 7: 0,
	0xdd & 7: 1<<2 | 1<<3 | 1<<6 | 1<<7, // fst/fstp/fnsave/fnstsw
	0xde & 7: 0,
	0xdf & 7: 1<<1 | 1<<2 | 1<<3 | 1<<6 | 1<<7, // fisttp/fist/fistp/fbstp/fistp64
}

// fpuOperandSize of a memory access per escape byte; only the length
// matters for the forget directive.
var fpuOperandSize = [8]ir.Size{
	0xd8 & 7: ir.Size32,
	0xd9 & 7: ir.Size32,
	0xda & 7: ir.Size32,
	0xdb & 7: ir.Size32,
	0xdc & 7: ir.Size64,
	0xdd & 7: ir.Size64,
	0xde & 7: ir.Size16,
	0xdf & 7: ir.Size16,
}

func (in *insn) fpu(op byte) {
	mod, sub, rm := in.modRM()

	if mod == 3 {
		// Register-register coprocessor forms touch no modeled state.
		// The 0xdb e5..e7 slots have never been assigned.
		if op == 0xdb && sub == 4 && rm > 4 {
			in.encodingError("unrecognized coprocessor opcode %#02x /%d r%d", op, sub, rm)
		}
		return
	}

	m := in.memOp(mod, rm, fpuOperandSize[op&7])
	if fpuStoreSub[op&7]&(1<<sub) != 0 {
		in.forget(m)
	}
}
