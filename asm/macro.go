// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"
	"strings"
)

// A macroLine is one captured body line together with its definition
// site, which errors raised during replay are attributed to.
type macroLine struct {
	text string
	file string
	row  int
}

// A macroDef is the captured body of a MACRO.
type macroDef struct {
	params []string
	lines  []macroLine
}

// A capture buffers lines between MACRO/ENDM or REPT/ENDR. Nested
// MACRO/REPT openers inside the body bump nest so only the matching
// terminator ends the capture.
type capture struct {
	endWord string // "ENDM" or "ENDR"
	store   bool   // false when skipping an already-captured macro body
	nest    int
	lines   []macroLine
	count   int    // REPT replay count
	target  *label // MACRO label receiving the body
}

// captureLine handles one raw source line while a capture is active.
func (a *Assembler) captureLine(src, filename string, lineNo int) error {
	word := firstReservedWord(src)
	switch word {
	case "MACRO", "REPT":
		a.capture.nest++
	case "ENDM", "ENDR":
		if a.capture.nest > 0 {
			a.capture.nest--
			break
		}
		if word != a.capture.endWord {
			if word == "ENDM" {
				return errExtraEndM
			}
			return errExtraEndR
		}
		return a.endCapture()
	}
	if a.capture.store {
		a.capture.lines = append(a.capture.lines, macroLine{src, filename, lineNo})
	}
	return nil
}

// firstReservedWord extracts the first word of a raw line (skipping an
// optional leading label) and uppercases it, just enough to recognize
// capture delimiters without running the full pipeline.
func firstReservedWord(src string) string {
	l := newFstring(0, src).consumeWhitespace()
	if l.startsWithChar('.') {
		l = l.consume(1)
	}
	word, rest := l.consumeWord(true)
	up := strings.ToUpper(word.str)
	switch up {
	case "MACRO", "REPT", "ENDM", "ENDR":
		return up
	}
	// the first word may have been a label; look at the next one
	rest = rest.consumeWhitespace()
	if rest.startsWithChar('.') {
		rest = rest.consume(1)
	}
	word, _ = rest.consumeWord(true)
	return strings.ToUpper(word.str)
}

func (a *Assembler) endCapture() error {
	c := a.capture
	a.capture = nil
	switch c.endWord {
	case "ENDM":
		if c.store {
			c.target.macro.lines = c.lines
		}
		return nil
	default: // ENDR
		return a.replayRept(c)
	}
}

// doMacro begins capturing a macro body. A macro already captured in an
// earlier pass keeps its body; the lines are consumed without storing.
func (a *Assembler) doMacro(s *fstring) error {
	name, rest := s.consumeWord(true)
	if name.isEmpty() {
		return errNeedName
	}
	*s = rest

	// parameter names, separated by commas or whitespace
	def := &macroDef{}
	for {
		*s = s.consumeWhitespace()
		if s.startsWithChar(',') {
			*s = s.consume(1)
			*s = s.consumeWhitespace()
		}
		if s.isEmpty() {
			break
		}
		p, r := s.consumeWord(true)
		if p.isEmpty() {
			return errNeedName
		}
		def.params = append(def.params, p.str)
		*s = r
	}

	if lb := a.findLabel(name.str); lb != nil {
		if lb.pass == a.pass {
			return errLabelDefined
		}
		if lb.kind == kindMacro {
			// captured on an earlier pass; consume the body unstored
			lb.pass = a.pass
			a.capture = &capture{endWord: "ENDM", store: false}
			return nil
		}
	}

	lb := &label{
		name:   name.str,
		kind:   kindMacro,
		macro:  def,
		pass:   a.pass,
		pinned: true,
	}
	a.labels.push(lb)
	a.capture = &capture{endWord: "ENDM", store: true, target: lb}
	return nil
}

// doRept evaluates the repeat count and begins capturing the body; the
// matching ENDR replays it.
func (a *Assembler) doRept(s *fstring) error {
	a.dependant = false
	n, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	if a.dependant {
		n = 0
	}
	a.capture = &capture{endWord: "ENDR", store: true, count: n}
	return nil
}

func (a *Assembler) replayRept(c *capture) error {
	a.insideMacro++
	defer func() { a.insideMacro-- }()
	for i := 0; i < c.count; i++ {
		for _, ml := range c.lines {
			if err := a.processLine(ml.text, ml.file, ml.row); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandMacro replays a macro body with the invocation's comma-separated
// arguments substituted for the \1..\9 sites.
func (a *Assembler) expandMacro(id *label, s *fstring) error {
	if id.used {
		return errRecurseMacro
	}

	var args []string
	rest := s.consumeWhitespace()
	for !rest.isEmpty() {
		var arg fstring
		arg, rest = rest.consumeArg()
		args = append(args, strings.TrimSpace(arg.str))
		if rest.startsWithChar(',') {
			rest = rest.consume(1)
		}
	}
	*s = rest

	id.used = true
	a.insideMacro++
	defer func() {
		id.used = false
		a.insideMacro--
	}()

	for _, ml := range id.macro.lines {
		line := substituteArgs(ml.text, args)
		if err := a.processLine(line, ml.file, ml.row); err != nil {
			return err
		}
	}
	return nil
}

// substituteArgs rewrites \1..\9 in a body line. A site with no
// corresponding argument substitutes to nothing.
func substituteArgs(text string, args []string) string {
	if !strings.ContainsRune(text, '\\') {
		return text
	}
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\\' && i+1 < len(text) && text[i+1] >= '1' && text[i+1] <= '9' {
			n, _ := strconv.Atoi(string(text[i+1]))
			if n <= len(args) {
				b.WriteString(args[n-1])
			}
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
