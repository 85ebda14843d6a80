// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errorpanic

import (
	"io"
	"testing"

	"golang.org/x/xerrors"

	"github.com/xorpse/bincat/internal/decerr"
)

func TestHandleNil(t *testing.T) {
	if err := Handle(nil, 0); err != nil {
		t.Error(err)
	}
}

func TestHandlePassThrough(t *testing.T) {
	in := decerr.New(decerr.Prefix, 0x1000, "rep prefix on add")
	if err := Handle(in, 0x1000); err != in {
		t.Errorf("error %v", err)
	}
}

func TestHandleEndOfData(t *testing.T) {
	err := Handle(io.ErrUnexpectedEOF, 0x1234)
	e, ok := err.(*decerr.Error)
	if !ok {
		t.Fatalf("error %v", err)
	}
	if e.Kind != decerr.Encoding {
		t.Errorf("error kind %v", e.Kind)
	}
	if e.Addr != 0x1234 {
		t.Errorf("error address %#x", e.Addr)
	}
	if !xerrors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("truncation cause not exposed")
	}
}
