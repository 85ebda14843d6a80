// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"bytes"
	"io"
	"testing"

	"github.com/xorpse/bincat/internal/decerr"
	"github.com/xorpse/bincat/ir"
)

func TestReadIntLittleEndian(t *testing.T) {
	s := New([]byte{0x78, 0x56, 0x34, 0x12}, 0x1000, nil, nil)
	if x := s.ReadInt(4); x != 0x12345678 {
		t.Errorf("read %#x", x)
	}
}

func TestReadImmSignExtend(t *testing.T) {
	s := New([]byte{0xff, 0x7f}, 0x1000, nil, nil)

	if x := s.ReadImm(8, 32, true); x != 0xffffffff {
		t.Errorf("sign-extended %#x", x)
	}
	if x := s.ReadImm(8, 32, false); x != 0x7f {
		t.Errorf("zero-extended %#x", x)
	}
}

func TestReadImmTooWide(t *testing.T) {
	defer func() {
		e, ok := recover().(*decerr.Error)
		if !ok {
			t.Fatal("no error")
		}
		if e.Kind != decerr.Encoding {
			t.Errorf("error kind %v", e.Kind)
		}
	}()

	s := New([]byte{0, 0, 0, 0}, 0x1000, nil, nil)
	s.ReadImm(32, 16, false)
	t.Fatal("overwide immediate accepted")
}

func TestNextBytePastEnd(t *testing.T) {
	defer func() {
		if x := recover(); x != io.ErrUnexpectedEOF {
			t.Errorf("panic value %v", x)
		}
	}()

	s := New([]byte{0x90}, 0x1000, nil, nil)
	s.NextByte()
	s.NextByte()
	t.Fatal("read past end of buffer")
}

func TestTempUniqueness(t *testing.T) {
	s := New(nil, 0x1000, nil, nil)

	seen := make(map[ir.RegID]bool)
	for i := 0; i < 10; i++ {
		r := s.Temp(32)
		if r.ID < ir.TempBase {
			t.Fatalf("temporary ID %d below the temporary range", r.ID)
		}
		if seen[r.ID] {
			t.Fatalf("temporary ID %d reused", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestByteRecord(t *testing.T) {
	code := []byte{0x66, 0x05, 0x01, 0x00, 0xcc}
	s := New(code, 0x1000, nil, nil)

	s.NextByte()
	s.NextByte()
	s.ReadInt(2)

	res := s.Finalize(nil)
	if !bytes.Equal(res.Bytes, code[:4]) {
		t.Errorf("byte record %x", res.Bytes)
	}
	if res.NextAddr != 0x1004 {
		t.Errorf("next address %#x", res.NextAddr)
	}
}
