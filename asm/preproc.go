// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// expandLine performs equate substitution on one source line and splits
// off the trailing comment. Numeric literals and quoted strings are
// copied verbatim. Identifiers bound to an equate defined in the current
// pass are replaced by their text, recursively; a label's recursion
// guard detects cycles. After IFDEF/IFNDEF appears on a line, further
// lookup is suppressed so the tested name is not itself expanded.
func (a *Assembler) expandLine(src string) (expanded, comment string, err error) {
	var dst strings.Builder
	comment, err = a.expandInto(src, &dst)
	return dst.String(), comment, err
}

func (a *Assembler) expandInto(src string, dst *strings.Builder) (comment string, err error) {
	skipDef := false

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '$' || decimal(c):
			// numeric literal, preserving any hex tail
			dst.WriteByte(c)
			i++
			for i < len(src) {
				n := src[i]
				if !(decimal(n) || (n >= 'A' && n <= 'H') || (n >= 'a' && n <= 'h')) {
					break
				}
				dst.WriteByte(n)
				i++
			}

		case c == '"' || c == '\'':
			quote := c
			dst.WriteByte(c)
			i++
			for i < len(src) {
				c2 := src[i]
				dst.WriteByte(c2)
				i++
				if c2 == '\\' && i < len(src) {
					dst.WriteByte(src[i])
					i++
					continue
				}
				if c2 == quote {
					break
				}
			}

		case identStartChar(c):
			i0 := i
			if c == '.' {
				i0 = i + 1
			}
			i++
			for i < len(src) && identChar(src[i]) {
				i++
			}
			word := src[i0:i]

			var lb *label
			if !skipDef {
				if strings.EqualFold(word, "IFDEF") || strings.EqualFold(word, "IFNDEF") {
					skipDef = true
				} else {
					lb = a.findLabel(word)
				}
			}
			if lb != nil && (lb.kind != kindEquate || lb.pass != a.pass) {
				lb = nil
			}
			if lb != nil {
				if lb.used {
					return "", errRecurseEqu
				}
				lb.used = true
				_, err = a.expandInto(lb.text, dst)
				lb.used = false
				if err != nil {
					return "", err
				}
			} else {
				dst.WriteString(word)
			}

		case c == ';':
			return src[i:], nil

		default:
			dst.WriteByte(c)
			i++
		}
	}
	return "", nil
}
