// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors exports the decode error surface without unnecessary
// dependencies.
package errors

import (
	internal "github.com/xorpse/bincat/internal/decerr"
)

// Error is returned when an instruction cannot be decoded.  The caller is
// expected to mark the address undecodable rather than attempt recovery:
// every Kind is fatal to the instruction.  Other error types returned by
// decoding functions indicate internal decoder defects.
type Error = internal.Error

// Kind classifies a decode failure.
type Kind = internal.Kind

const (
	Encoding     = internal.Encoding
	Segmentation = internal.Segmentation
	Protection   = internal.Protection
	Arithmetic   = internal.Arithmetic
	Prefix       = internal.Prefix
	Unsupported  = internal.Unsupported
)
