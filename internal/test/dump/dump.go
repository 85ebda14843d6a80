// Copyright (c) 2025 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dump renders statement trees in test failure output.
package dump

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/xorpse/bincat/ir"
)

var config = spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// Stmts formats a statement sequence for a t.Errorf argument.
func Stmts(stmts []ir.Stmt) string {
	return config.Sdump(stmts)
}
