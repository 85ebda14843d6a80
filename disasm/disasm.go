// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm renders raw instruction bytes for debug output.  It is a
// development aid, not part of the decoding core.
package disasm

import (
	"fmt"
	"io"

	"github.com/bnagy/gapstone"
)

// Fprint disassembles code at addr and writes one line per instruction.
func Fprint(w io.Writer, code []byte, addr uint32) (err error) {
	engine, err := gapstone.New(gapstone.CS_ARCH_X86, gapstone.CS_MODE_32)
	if err != nil {
		return
	}
	defer engine.Close()

	insns, err := engine.Disasm(code, uint64(addr), 0)
	if err != nil {
		return
	}

	for _, insn := range insns {
		_, err = fmt.Fprintf(w, "%8x: %-24x %s %s\n", insn.Address, insn.Bytes, insn.Mnemonic, insn.OpStr)
		if err != nil {
			return
		}
	}
	return
}
