// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"io"
	"strings"
	"testing"

	"github.com/parisoft/asm8/asm"
)

func TestDisassemble(t *testing.T) {
	src := `ORG $8000
start: LDA #$42
	STA $0200
	STA $12
	LDA ($10),Y
	BNE start
	RTS`
	a, err := asm.Assemble(strings.NewReader(src), "t.asm",
		asm.Options{Quiet: true, Out: io.Discard})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"LDA #$42",
		"STA $0200",
		"STA $12",
		"LDA ($10),Y",
		"BNE $8000",
		"RTS",
	}
	addr := 0x8000
	for i, exp := range want {
		line, next := Disassemble(a.Code, 0x8000, addr)
		if line != exp {
			t.Errorf("line %d: got %q, want %q", i, line, exp)
		}
		addr = next
	}
	if addr != 0x8000+len(a.Code) {
		t.Errorf("end address $%04X, want $%04X", addr, 0x8000+len(a.Code))
	}
}

func TestDisassembleUnknown(t *testing.T) {
	line, next := Disassemble([]byte{0x02}, 0, 0)
	if line != ".DB $02" {
		t.Errorf("got %q, want .DB $02", line)
	}
	if next != 1 {
		t.Errorf("next = %d, want 1", next)
	}
}
