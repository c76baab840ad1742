// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"strings"
)

// Directive handler tags. A reserved label carries one of these; the
// dispatcher switches on the tag.
type dirTag byte

const (
	dirNothing dirTag = iota
	dirIf
	dirElseIf
	dirElse
	dirEndIf
	dirIfDef
	dirIfNDef
	dirEqual
	dirEqu
	dirOrg
	dirBase
	dirPad
	dirInclude
	dirIncBin
	dirHex
	dirDw
	dirDb
	dirDsw
	dirDsb
	dirAlign
	dirMacro
	dirRept
	dirEndM
	dirEndR
	dirEnum
	dirEndE
	dirFillValue
	dirDl
	dirDh
	dirError
)

// Reserved directive names, including the traditional aliases. The
// leading-dot forms are covered by the dispatcher stripping one '.'.
var directiveTable = map[string]dirTag{
	"":          dirNothing,
	"IF":        dirIf,
	"ELSEIF":    dirElseIf,
	"ELSE":      dirElse,
	"ENDIF":     dirEndIf,
	"IFDEF":     dirIfDef,
	"IFNDEF":    dirIfNDef,
	"=":         dirEqual,
	"EQU":       dirEqu,
	"ORG":       dirOrg,
	"BASE":      dirBase,
	"PAD":       dirPad,
	"INCLUDE":   dirInclude,
	"INCSRC":    dirInclude,
	"INCBIN":    dirIncBin,
	"BIN":       dirIncBin,
	"HEX":       dirHex,
	"WORD":      dirDw,
	"DW":        dirDw,
	"DCW":       dirDw,
	"DC.W":      dirDw,
	"BYTE":      dirDb,
	"DB":        dirDb,
	"DCB":       dirDb,
	"DC.B":      dirDb,
	"DSW":       dirDsw,
	"DS.W":      dirDsw,
	"DSB":       dirDsb,
	"DS.B":      dirDsb,
	"ALIGN":     dirAlign,
	"MACRO":     dirMacro,
	"REPT":      dirRept,
	"ENDM":      dirEndM,
	"ENDR":      dirEndR,
	"ENUM":      dirEnum,
	"ENDE":      dirEndE,
	"FILLVALUE": dirFillValue,
	"DL":        dirDl,
	"DH":        dirDh,
	"ERROR":     dirError,
}

func isIfFamily(tag dirTag) bool {
	switch tag {
	case dirIf, dirIfDef, dirIfNDef, dirElseIf, dirElse, dirEndIf:
		return true
	}
	return false
}

// getReserved reads the next word and resolves it to a reserved word or
// macro: '=' directly, otherwise the word after an optional leading '.',
// looked up uppercase first and then verbatim.
func (a *Assembler) getReserved(s *fstring) (*label, error) {
	*s = s.consumeWhitespace()

	var word, upp string
	switch {
	case s.startsWithChar('='):
		upp = "="
		*s = s.consume(1)
	case s.startsWithChar('+') || s.startsWithChar('-'):
		// anonymous-label lines; never reserved, but the word must be
		// read so the caller can fall back to the label path
		w, rest := s.consumeWhile(func(c byte) bool { return c == '+' || c == '-' })
		*s = rest
		word, upp = w.str, w.str
	default:
		if s.startsWithChar('.') {
			*s = s.consume(1)
		}
		w, rest := s.consumeWord(true)
		*s = rest
		word = w.str
		upp = strings.ToUpper(word)
	}

	lb := a.findLabel(upp)
	if lb == nil {
		lb = a.findLabel(word)
	}
	if lb != nil && lb.kind != kindReserved && lb.kind != kindMacro {
		lb = nil
	}
	if lb == nil {
		return nil, errIllegal
	}
	return lb, nil
}

func (a *Assembler) runDirective(tag dirTag, s *fstring) error {
	switch tag {
	case dirNothing:
		return nil
	case dirIf:
		return a.doIf(s)
	case dirElseIf:
		return a.doElseIf(s)
	case dirElse:
		return a.doElse()
	case dirEndIf:
		return a.doEndIf()
	case dirIfDef:
		return a.doIfDef(s, false)
	case dirIfNDef:
		return a.doIfDef(s, true)
	case dirEqual:
		return a.doEqual(s)
	case dirEqu:
		return a.doEqu(s)
	case dirOrg:
		return a.doOrg(s)
	case dirBase:
		return a.doBase(s)
	case dirPad:
		return a.doPad(s)
	case dirInclude:
		return a.doInclude(s)
	case dirIncBin:
		return a.doIncBin(s)
	case dirHex:
		return a.doHex(s)
	case dirDb:
		return a.doData(s, dataByte)
	case dirDw:
		return a.doData(s, dataWord)
	case dirDl:
		return a.doData(s, dataLow)
	case dirDh:
		return a.doData(s, dataHigh)
	case dirDsb:
		return a.doFillData(s, 1)
	case dirDsw:
		return a.doFillData(s, 2)
	case dirAlign:
		return a.doAlign(s)
	case dirMacro:
		return a.doMacro(s)
	case dirRept:
		return a.doRept(s)
	case dirEndM:
		return errExtraEndM
	case dirEndR:
		return errExtraEndR
	case dirEnum:
		return a.doEnum(s)
	case dirEndE:
		return a.doEndE()
	case dirFillValue:
		return a.doFillValue(s)
	case dirError:
		return a.doError(s)
	default:
		return errIllegal
	}
}

//
// conditional assembly
//

func (a *Assembler) doIf(s *fstring) error {
	if a.ifLevel+1 >= ifNestLimit {
		return errIfNestLimit
	}
	a.ifLevel++
	if a.skipLine[a.ifLevel-1] {
		a.skipLine[a.ifLevel] = true
		a.ifDone[a.ifLevel] = true
		*s = s.consume(len(s.str))
		return nil
	}
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	a.skipLine[a.ifLevel] = v == 0
	a.ifDone[a.ifLevel] = v != 0
	return nil
}

func (a *Assembler) doIfDef(s *fstring, negate bool) error {
	if a.ifLevel+1 >= ifNestLimit {
		return errIfNestLimit
	}
	a.ifLevel++
	if a.skipLine[a.ifLevel-1] {
		a.skipLine[a.ifLevel] = true
		a.ifDone[a.ifLevel] = true
		*s = s.consume(len(s.str))
		return nil
	}
	word, rest := s.consumeWord(true)
	if word.isEmpty() {
		return errNeedName
	}
	*s = rest
	defined := a.findLabel(word.str) != nil
	if negate {
		defined = !defined
	}
	a.skipLine[a.ifLevel] = !defined
	a.ifDone[a.ifLevel] = defined
	return nil
}

func (a *Assembler) doElseIf(s *fstring) error {
	if a.ifLevel == 0 {
		return errExtraElseIf
	}
	if a.skipLine[a.ifLevel-1] || a.ifDone[a.ifLevel] {
		a.skipLine[a.ifLevel] = true
		*s = s.consume(len(s.str))
		return nil
	}
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	a.skipLine[a.ifLevel] = v == 0
	if v != 0 {
		a.ifDone[a.ifLevel] = true
	}
	return nil
}

func (a *Assembler) doElse() error {
	if a.ifLevel == 0 {
		return errExtraElse
	}
	a.skipLine[a.ifLevel] = a.ifDone[a.ifLevel] || a.skipLine[a.ifLevel-1]
	a.ifDone[a.ifLevel] = true
	return nil
}

func (a *Assembler) doEndIf() error {
	if a.ifLevel == 0 {
		return errExtraEndIf
	}
	a.skipLine[a.ifLevel] = false
	a.ifDone[a.ifLevel] = false
	a.ifLevel--
	return nil
}

//
// label binding
//

func (a *Assembler) doEqual(s *fstring) error {
	lb := a.labelHere
	if lb == nil {
		return errNeedName
	}
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	lb.kind = kindValue
	lb.value = v
	lb.pinned = true
	lb.posdef = false
	return nil
}

func (a *Assembler) doEqu(s *fstring) error {
	lb := a.labelHere
	if lb == nil {
		return errNeedName
	}
	text := strings.TrimSpace(s.str)
	if text == "" {
		return errMissingOperand
	}
	*s = s.consume(len(s.str))
	lb.kind = kindEquate
	lb.text = text
	lb.posdef = false
	return nil
}

//
// location control
//

func (a *Assembler) doOrg(s *fstring) error {
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	if a.pc() == noOrigin || a.dependant {
		a.setPC(v)
		return nil
	}
	n := v - a.pc()
	if n < 0 {
		return errOutOfRange
	}
	return a.emitFill(n, a.filler)
}

// doBase moves the physical output position, leaving the logical PC
// (and so every label value) where the code is addressed. Gaps opened
// by seeking forward take the fill byte in force when the next write
// lands.
func (a *Assembler) doBase(s *fstring) error {
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	if a.dependant {
		return nil // resolved on a later pass
	}
	if v < 0 {
		return errSeekOutOfRange
	}
	a.pos = v
	return nil
}

func (a *Assembler) doPad(s *fstring) error {
	if a.pc() < 0 {
		return errUndefinedPC
	}
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	fill, err := a.optionalFill(s)
	if err != nil {
		return err
	}
	if a.dependant {
		return nil // resolved on a later pass
	}
	n := v - a.pc()
	if n < 0 {
		return errOutOfRange
	}
	return a.emitFill(n, fill)
}

func (a *Assembler) doAlign(s *fstring) error {
	a.dependant = false
	n, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	if !a.dependant && n < 1 {
		return errOutOfRange
	}
	fill, err := a.optionalFill(s)
	if err != nil {
		return err
	}
	if a.dependant || n < 1 {
		return nil
	}
	k := ((a.pc() % n) + n) % n
	if k == 0 {
		return nil
	}
	return a.emitFill(n-k, fill)
}

func (a *Assembler) doFillValue(s *fstring) error {
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	if v < 0 || v > 255 {
		return errOutOfRange
	}
	a.filler = byte(v)
	return nil
}

// optionalFill parses an optional ",fill" tail, defaulting to the
// current fill byte.
func (a *Assembler) optionalFill(s *fstring) (byte, error) {
	if !eatChar(s, ',') {
		return a.filler, nil
	}
	v, err := a.eval(s, precWhole)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 255 {
		return 0, errOutOfRange
	}
	return byte(v), nil
}

func eatChar(s *fstring, c byte) bool {
	t := s.consumeWhitespace()
	if t.peek() == c {
		*s = t.consume(1)
		return true
	}
	return false
}

//
// data emission
//

type dataKind byte

const (
	dataByte dataKind = iota
	dataWord
	dataLow
	dataHigh
)

func (a *Assembler) doData(s *fstring, kind dataKind) error {
	*s = s.consumeWhitespace()
	if s.isEmpty() {
		return errMissingOperand
	}
	for {
		*s = s.consumeWhitespace()
		var err error
		if (s.peek() == '"' || s.peek() == '\'') && (kind == dataByte || kind == dataWord) {
			err = a.dataString(s, kind)
		} else {
			err = a.dataExpr(s, kind)
		}
		if err != nil {
			return err
		}
		if !eatChar(s, ',') {
			return nil
		}
	}
}

func (a *Assembler) dataExpr(s *fstring, kind dataKind) error {
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	return a.dataEmit(v, kind)
}

func (a *Assembler) dataEmit(v int, kind dataKind) error {
	switch kind {
	case dataByte:
		if !a.dependant && (v < -128 || v > 255) {
			return errOutOfRange
		}
		return a.emit(byte(v))
	case dataWord:
		if !a.dependant && (v < -32768 || v > 65535) {
			return errOutOfRange
		}
		return a.emit(byte(v), byte(v>>8))
	case dataLow:
		return a.emit(byte(v))
	default: // dataHigh
		return a.emit(byte(v >> 8))
	}
}

// dataString emits a quoted string, applying any trailing arithmetic to
// every character: DB "ABC"+1 emits $42 $43 $44.
func (a *Assembler) dataString(s *fstring, kind dataKind) error {
	quote := s.peek()
	t := s.consume(1)
	var chars []byte
	for {
		if t.isEmpty() {
			return errIncomplete
		}
		c := t.peek()
		t = t.consume(1)
		if c == quote {
			break
		}
		if c == '\\' {
			if t.isEmpty() {
				return errIncomplete
			}
			c = t.peek()
			t = t.consume(1)
		}
		chars = append(chars, c)
	}

	a.dependant = false
	if len(chars) == 0 {
		// consume a continuation, if any, and emit nothing
		_, err := a.evalContinue(0, &t, precWhole)
		*s = t
		return err
	}

	end := t
	for _, c := range chars {
		cont := t
		v, err := a.evalContinue(int(c), &cont, precWhole)
		if err != nil {
			return err
		}
		if err := a.dataEmit(v, kind); err != nil {
			return err
		}
		end = cont
	}
	*s = end
	return nil
}

func (a *Assembler) doFillData(s *fstring, unit int) error {
	a.dependant = false
	n, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	if !a.dependant && n < 0 {
		return errOutOfRange
	}
	fill, err := a.optionalFill(s)
	if err != nil {
		return err
	}
	if a.dependant {
		return nil
	}
	return a.emitFill(n*unit, fill)
}

func (a *Assembler) doHex(s *fstring) error {
	*s = s.consumeWhitespace()
	if s.isEmpty() {
		return errMissingOperand
	}
	for !s.isEmpty() {
		tok, rest := s.consumeWhile(hexadecimal)
		if tok.isEmpty() || len(tok.str)%2 != 0 {
			return errNotANumber
		}
		for i := 0; i+1 < len(tok.str); i += 2 {
			if err := a.emit(hexToByte(tok.str[i:])); err != nil {
				return err
			}
		}
		*s = rest.consumeWhitespace()
	}
	return nil
}

func hexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func hexToByte(s string) byte {
	return hexDigit(s[0])<<4 | hexDigit(s[1])
}

//
// file inclusion
//

func (a *Assembler) doInclude(s *fstring) error {
	name := unquote(strings.TrimSpace(s.str))
	*s = s.consume(len(s.str))
	if name == "" {
		return errCantOpen
	}
	return a.processFile(a.resolvePath(name))
}

func (a *Assembler) doIncBin(s *fstring) error {
	arg, rest := s.consumeArg()
	*s = rest
	name := unquote(strings.TrimSpace(arg.str))
	if name == "" {
		return errCantOpen
	}
	data, err := a.fs.ReadFile(a.resolvePath(name))
	if err != nil {
		return errCantOpen
	}

	offset, size := 0, len(data)
	if eatChar(s, ',') {
		a.dependant = false
		offset, err = a.eval(s, precWhole)
		if err != nil {
			return err
		}
		if offset < 0 || offset > len(data) {
			return errSeekOutOfRange
		}
		size = len(data) - offset
		if eatChar(s, ',') {
			size, err = a.eval(s, precWhole)
			if err != nil {
				return err
			}
			if size < 0 || offset+size > len(data) {
				return errBadIncbinSize
			}
		}
	}
	return a.emit(data[offset : offset+size]...)
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

//
// enum
//

func (a *Assembler) doEnum(s *fstring) error {
	if a.noOutput {
		return errMissingEndE
	}
	a.dependant = false
	v, err := a.eval(s, precWhole)
	if err != nil {
		return err
	}
	a.enumSavedPC = a.pc()
	a.noOutput = true
	a.setPC(v)
	return nil
}

func (a *Assembler) doEndE() error {
	if !a.noOutput {
		return errExtraEndE
	}
	a.setPC(a.enumSavedPC)
	a.noOutput = false
	return nil
}

//
// diagnostics
//

func (a *Assembler) doError(s *fstring) error {
	msg := unquote(strings.TrimSpace(s.str))
	*s = s.consume(len(s.str))
	if msg == "" {
		msg = "error"
	}
	return errors.New(msg)
}
