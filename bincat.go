// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package bincat decodes x86 machine instructions into architecture-neutral
statement sequences for abstract interpretation.

The decoder does not execute instructions or hold concrete machine state: it
produces the semantic description of what each instruction does, as ir
package statements, together with the raw bytes consumed and the next
instruction address.

# Errors

Failures during decoding are fatal to the instruction.  They are returned as
errors.Error values carrying an error kind and the failing address; no
partial statement list accompanies a failure.  Other error types indicate
internal decoder defects.
*/
package bincat

import (
	"github.com/xorpse/bincat/internal/decerr"
	"github.com/xorpse/bincat/internal/errorpanic"
	"github.com/xorpse/bincat/internal/isa/x86"
	"github.com/xorpse/bincat/internal/state"
	"github.com/xorpse/bincat/ir"
	"github.com/xorpse/bincat/seg"
)

// ImportResolver recognizes call targets which refer to modeled library
// functions, so that calls to them are emitted with their symbol.
type ImportResolver = state.ImportResolver

// Config for decoder initialization.  Zero values are replaced with
// effective defaults.
type Config struct {
	Mode       seg.Mode // Only protected mode is supported.
	StackWidth ir.Size  // Defaults to 32 bits.

	// Descriptor tables as raw 8-byte entries keyed by table index.
	GDT map[uint16]uint64
	LDT map[uint16]uint64
	IDT map[uint16]uint64

	// Initial segment register values as raw selector words.
	SegRegs map[seg.Reg]uint16

	ImportResolver ImportResolver // No import recognition by default.
}

// Result of decoding one instruction.
type Result struct {
	Stmts    []ir.Stmt // Ordered statement sequence.
	Bytes    []byte    // Raw instruction bytes consumed.
	NextAddr uint32    // Address of the following instruction.
}

// Decoder decodes instructions against a segmentation state.  Decoding
// mutates the state only on far control transfers; concurrent use requires
// external serialization or a Decoder per goroutine.
type Decoder struct {
	seg     *seg.State
	imports ImportResolver
}

// New builds the descriptor tables and seeds the segment registers from the
// configuration.
func New(config *Config) (*Decoder, error) {
	if config == nil {
		config = new(Config)
	}
	if config.Mode != seg.Protected {
		return nil, decerr.New(decerr.Unsupported, 0, "%s mode is not supported", config.Mode)
	}

	st := &seg.State{
		GDT:        parseTable(config.GDT),
		LDT:        parseTable(config.LDT),
		IDT:        parseTable(config.IDT),
		Mode:       config.Mode,
		StackWidth: config.StackWidth,
	}
	if st.StackWidth == 0 {
		st.StackWidth = ir.Size32
	}

	for r, word := range config.SegRegs {
		st.SetSelector(r, seg.SelectorFromWord(word))
	}

	return &Decoder{seg: st, imports: config.ImportResolver}, nil
}

func parseTable(raw map[uint16]uint64) seg.Table {
	table := make(seg.Table, len(raw))
	for index, entry := range raw {
		if d, present := seg.ParseDescriptor(entry); present {
			table[index] = d
		}
	}
	return table
}

// Segments exposes the mutable segmentation state shared across Decode
// calls.
func (d *Decoder) Segments() *seg.State {
	return d.seg
}

// Decode consumes one instruction from the start of code, located at addr.
// code must contain the complete instruction.
func (d *Decoder) Decode(code []byte, addr uint32) (result *Result, err error) {
	defer func() {
		err = errorpanic.Handle(recover(), addr)
	}()

	res := x86.Decode(state.New(code, addr, d.seg, d.imports))
	result = &Result{
		Stmts:    res.Stmts,
		Bytes:    res.Bytes,
		NextAddr: res.NextAddr,
	}
	return
}
