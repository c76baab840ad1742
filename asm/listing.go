// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"fmt"
	"io"
)

const hexDigits = "0123456789ABCDEF"

// byteString returns a hexadecimal representation of a byte slice,
// space-separated.
func byteString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := make([]byte, len(b)*3-1)
	for i, j := 0, 0; i < len(b); i, j = i+1, j+3 {
		s[j] = hexDigits[b[i]>>4]
		s[j+1] = hexDigits[b[i]&0x0f]
		if i < len(b)-1 {
			s[j+2] = ' '
		}
	}
	return string(s)
}

// A Listing formats assembly listing records into a writer. Its Line
// method satisfies the engine's listing callback contract.
type Listing struct {
	w *bufio.Writer
}

func NewListing(w io.Writer) *Listing {
	return &Listing{w: bufio.NewWriter(w)}
}

// Line writes one listing record: address, emitted bytes (chunked so
// long data lines stay readable), source text and comment.
func (l *Listing) Line(text, comment string, pc int, code []byte) {
	addr := "      "
	if pc >= 0 {
		addr = fmt.Sprintf("$%04X:", pc)
	}

	first := code
	if len(first) > 8 {
		first = first[:8]
	}
	src := text
	if comment != "" {
		src += comment
	}
	fmt.Fprintf(l.w, "%s %-23s %s\n", addr, byteString(first), src)

	for i := 8; i < len(code); i += 8 {
		j := i + 8
		if j > len(code) {
			j = len(code)
		}
		fmt.Fprintf(l.w, "       %s\n", byteString(code[i:j]))
	}
}

// Flush writes any buffered listing output.
func (l *Listing) Flush() error {
	return l.w.Flush()
}
