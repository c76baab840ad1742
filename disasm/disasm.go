// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm formats 6502 machine code back into instruction text.
// It is the inverse of the assembler's opcode emitter and shares its
// encoding tables.
package disasm

import (
	"fmt"

	"github.com/parisoft/asm8/asm"
)

var ops = asm.Ops()

var hex = "0123456789ABCDEF"

// hexString returns the operand bytes as one big-endian hex number.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

// Disassemble formats the instruction at address addr within a code
// image that loads at origin. It returns the instruction text and the
// address of the following instruction. Bytes that do not decode to a
// documented instruction come back as raw data.
func Disassemble(code []byte, origin, addr int) (line string, next int) {
	i := addr - origin
	if i < 0 || i >= len(code) {
		return "", addr
	}

	op := ops[code[i]]
	if op.Name == "" || i+op.Length > len(code) {
		return fmt.Sprintf(".DB $%02X", code[i]), addr + 1
	}

	operand := code[i+1 : i+op.Length]
	if op.Rel {
		// convert the relative offset to an absolute target
		target := addr + op.Length + int(operand[0])
		if operand[0] > 0x7f {
			target -= 256
		}
		operand = []byte{byte(target), byte(target >> 8)}
	}

	if op.Length == 1 {
		line = op.Name
		if op.Format == "A" {
			line += " A"
		}
	} else {
		line = op.Name + " " + fmt.Sprintf(op.Format, hexString(operand))
	}
	return line, addr + op.Length
}
