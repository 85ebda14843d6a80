// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errorpanic

import (
	"io"
	"runtime"

	"golang.org/x/xerrors"

	"github.com/xorpse/bincat/internal/decerr"
)

// Handle converts a recovered panic value back into an error.  Runtime
// errors and non-error values resume panicking: they indicate decoder
// defects, not undecodable input.  Raw end-of-data panics from the byte
// cursor are wrapped into the truncation error at addr.
func Handle(x interface{}, addr uint32) (err error) {
	if x != nil {
		err, _ = x.(error)
		if err == nil {
			panic(x)
		}

		if _, ok := err.(runtime.Error); ok {
			panic(x)
		}

		switch {
		case xerrors.Is(err, io.EOF), xerrors.Is(err, io.ErrUnexpectedEOF):
			err = decerr.Wrap(decerr.Encoding, addr, io.ErrUnexpectedEOF, "truncated instruction")
		}
	}

	return
}
