// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build gofuzz
// +build gofuzz

package bincat

import (
	"github.com/xorpse/bincat/errors"
	"github.com/xorpse/bincat/seg"
)

var fuzzDecoder = func() *Decoder {
	d, err := New(&Config{
		GDT: map[uint16]uint64{
			1: 0x00cf9b000000ffff, // flat code
			2: 0x00cf93000000ffff, // flat data
		},
		SegRegs: map[seg.Reg]uint16{
			seg.CS: 1 << 3,
			seg.SS: 2 << 3,
			seg.DS: 2 << 3,
			seg.ES: 2 << 3,
			seg.FS: 2 << 3,
			seg.GS: 2 << 3,
		},
	})
	if err != nil {
		panic(err)
	}
	return d
}()

func Fuzz(data []byte) int {
	_, err := fuzzDecoder.Decode(data, 0x1000)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return 0
		}
		panic(err)
	}
	return 1
}
