// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decerr constructs the fatal decode errors.  Decoder internals
// panic with *Error values; the public entry points recover them.
package decerr

import (
	"fmt"
)

type Kind uint8

const (
	// Encoding: malformed or unrecognized instruction encoding.
	Encoding = Kind(iota)

	// Segmentation: missing descriptor, insufficient privilege, or wrong
	// descriptor type.
	Segmentation

	// Protection: branch target outside the code segment limit.
	Protection

	// Arithmetic: divide overflow detected during decode.
	Arithmetic

	// Prefix: REP/REPNE applied to an opcode without REP semantics.
	Prefix

	// Unsupported: processor mode or instruction subset which this
	// decoder does not model.
	Unsupported
)

var kindStrings = [...]string{
	Encoding:     "encoding",
	Segmentation: "segmentation",
	Protection:   "protection",
	Arithmetic:   "arithmetic",
	Prefix:       "prefix",
	Unsupported:  "unsupported",
}

func (k Kind) String() string {
	if int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return "<invalid error kind>"
}

// Error is fatal to the decoding of one instruction.  No partial statement
// list accompanies it.
type Error struct {
	Kind Kind
	Addr uint32
	Text string

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error at %#x: %s", e.Kind, e.Addr, e.Text)
}

// Unwrap exposes the underlying cause to xerrors.Is tests.
func (e *Error) Unwrap() error {
	return e.cause
}

// DecodeError marks e as undecodable-instruction condition, as opposed to an
// internal decoder defect.
func (e *Error) DecodeError() string {
	return e.Text
}

func New(kind Kind, addr uint32, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Addr: addr, Text: fmt.Sprintf(format, args...)}
}

// Wrap is New with an underlying cause attached.
func Wrap(kind Kind, addr uint32, cause error, format string, args ...interface{}) *Error {
	e := New(kind, addr, format, args...)
	e.cause = cause
	return e
}
