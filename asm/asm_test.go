// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

type mapFS map[string][]byte

func (m mapFS) ReadFile(path string) ([]byte, error) {
	if b, ok := m[path]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no such file: %s", path)
}

func assembleOpts(src string, opts Options) (*Assembly, error) {
	opts.Quiet = true
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return Assemble(strings.NewReader(src), "test.asm", opts)
}

func assemble(src string) (*Assembly, error) {
	return assembleOpts(src, Options{})
}

func checkASM(t *testing.T, src, want string) {
	t.Helper()
	a, err := assemble(src)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	got := fmt.Sprintf("%X", a.Code)
	if got != want {
		t.Errorf("code doesn't match expected\ngot: %s\nexp: %s", got, want)
	}
}

func checkASMError(t *testing.T, src string, want error) {
	t.Helper()
	_, err := assemble(src)
	if err == nil {
		t.Fatalf("expected error %v, got none", want)
	}
	if !errors.Is(err, want) {
		t.Errorf("expected error %v, got %v", want, err)
	}
}

func TestImmediate(t *testing.T) {
	checkASM(t, "ORG $8000\nLDA #$42\nRTS", "A94260")
}

func TestZeroPageSelection(t *testing.T) {
	checkASM(t, "ORG $0000\nfoo: LDA foo\nLDA $1234", "A500AD3412")
}

func TestBranchToSelf(t *testing.T) {
	checkASM(t, "ORG $8000\nstart: BNE start", "D0FE")
}

func TestConditional(t *testing.T) {
	checkASM(t, "ORG $8000\nIF 1\n DB $AA\nELSE\n DB $BB\nENDIF\n DB $CC", "AACC")
}

func TestMacroExpansion(t *testing.T) {
	checkASM(t, "ORG $0000\nMACRO two x\n DB \\1\n DB \\1\nENDM\n two $77", "7777")
}

func TestRept(t *testing.T) {
	checkASM(t, "ORG $1000\nREPT 3\n DB $90\nENDR", "909090")
}

func TestDeterminism(t *testing.T) {
	src := "ORG $8000\nloop: LDA data\n BNE loop\ndata: DB 1,2,3\n DW data"
	a1, err := assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a1.Code, a2.Code) {
		t.Errorf("re-assembly differs: %X vs %X", a1.Code, a2.Code)
	}
}

// A forward reference that does not shift any address must converge
// after exactly one additional pass.
func TestForwardRefOnePass(t *testing.T) {
	src := "ORG $8000\nDW foo\nfoo: RTS"
	a := New("test.asm", splitLines(src), Options{Quiet: true, Out: io.Discard})
	res, err := a.Run()
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%X", res.Code); got != "028060" {
		t.Errorf("got %s, exp 028060", got)
	}
	if a.pass != 2 {
		t.Errorf("expected 2 passes, ran %d", a.pass)
	}
}

// A forward zero-page reference is assembled pessimistically as
// absolute on the first pass and shrinks once resolved.
func TestForwardValueShrinksToZeroPage(t *testing.T) {
	checkASM(t, "ORG $0000\nLDA V\nV = $10", "A510")
}

func TestRecursiveEquate(t *testing.T) {
	checkASMError(t, "A EQU B\nB EQU A\nORG $0\nDB A", errRecurseEqu)
}

func TestBranchRange(t *testing.T) {
	checkASM(t, "ORG $8000\nBNE $8081", "D07F")
	checkASM(t, "ORG $8000\nBNE $7F82", "D080")
	checkASMError(t, "ORG $8000\nBNE $8083", errOutOfRange)
	checkASMError(t, "ORG $8000\nBNE $7F81", errOutOfRange)
}

func TestStringData(t *testing.T) {
	checkASM(t, "ORG $0\nDB \"ABC\"+1", "424344")
	checkASM(t, "ORG $0\nDB \"AB\", $00", "414200")
	checkASM(t, "ORG $0\nDW \"AB\"", "41004200")
}

func TestHexDirective(t *testing.T) {
	checkASM(t, "ORG $0\nHEX 01 02 0A", "01020A")
	checkASM(t, "ORG $0\nHEX deadBEEF", "DEADBEEF")
	checkASMError(t, "ORG $0\nHEX 123", errNotANumber)
}

// Expanding an equate that resolves to a literal yields the same bytes
// as inlining the literal.
func TestEquateIdempotence(t *testing.T) {
	a1, err := assemble("V EQU $42\nORG $0\nDB V")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := assemble("ORG $0\nDB $42")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a1.Code, a2.Code) {
		t.Errorf("equate differs from literal: %X vs %X", a1.Code, a2.Code)
	}
}

func TestOrgPadding(t *testing.T) {
	checkASM(t, "ORG $8000\nDB 1\nORG $8004\nDB 2", "0100000002")
	checkASM(t, "ORG $8000\nDB 1\nFILLVALUE $FF\nORG $8003\nDB 2", "01FFFF02")
}

// BASE moves only the physical output position; the logical PC, and so
// every label value, keeps following ORG.
func TestBaseDecouplesOutput(t *testing.T) {
	a, err := assemble("ORG $C000\nDB 1\nBASE $0004\nlab: DB 2")
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%X", a.Code); got != "0100000002" {
		t.Errorf("got %s, exp 0100000002", got)
	}
	found := false
	for _, sym := range a.Symbols {
		if sym.Name == "lab" {
			found = true
			if sym.Value != 0xC001 {
				t.Errorf("lab = $%04X, exp $C001", sym.Value)
			}
		}
	}
	if !found {
		t.Error("symbol lab not reported")
	}
}

// Seeking backward with BASE overwrites previously written bytes
// without disturbing logical addresses.
func TestBaseOverwrite(t *testing.T) {
	a, err := assemble("ORG $C000\nDB 1,2,3\nBASE $0001\npatch: DB $FF")
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%X", a.Code); got != "01FF03" {
		t.Errorf("got %s, exp 01FF03", got)
	}
	for _, sym := range a.Symbols {
		if sym.Name == "patch" && sym.Value != 0xC003 {
			t.Errorf("patch = $%04X, exp $C003", sym.Value)
		}
	}
}

func TestBaseNegative(t *testing.T) {
	checkASMError(t, "ORG $C000\nBASE -1", errSeekOutOfRange)
}

func TestEnum(t *testing.T) {
	src := `ENUM $200
v1: DSB 1
v2: DSB 2
ENDE
ORG $8000
LDA v1
LDA v2`
	checkASM(t, src, "AD0002AD0102")
}

func TestEnumErrors(t *testing.T) {
	checkASMError(t, "ENDE", errExtraEndE)
	checkASMError(t, "ENUM 0\nDB 1", errMissingEndE)
}

func TestInclude(t *testing.T) {
	fs := mapFS{"inc.asm": []byte(" DB $AA\n")}
	a, err := assembleOpts("ORG $0\nINCLUDE inc.asm\nDB $BB", Options{FS: fs})
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%X", a.Code); got != "AABB" {
		t.Errorf("got %s, exp AABB", got)
	}
}

func TestIncludeMissing(t *testing.T) {
	_, err := assembleOpts("INCLUDE nope.asm", Options{FS: mapFS{}})
	if !errors.Is(err, errCantOpen) {
		t.Errorf("expected %v, got %v", errCantOpen, err)
	}
}

func TestIncbin(t *testing.T) {
	fs := mapFS{"data.bin": {1, 2, 3, 4}}
	a, err := assembleOpts("ORG $0\nINCBIN data.bin,1,2", Options{FS: fs})
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%X", a.Code); got != "0203" {
		t.Errorf("got %s, exp 0203", got)
	}

	_, err = assembleOpts("ORG $0\nINCBIN data.bin,5", Options{FS: fs})
	if !errors.Is(err, errSeekOutOfRange) {
		t.Errorf("expected %v, got %v", errSeekOutOfRange, err)
	}
	_, err = assembleOpts("ORG $0\nINCBIN data.bin,1,4", Options{FS: fs})
	if !errors.Is(err, errBadIncbinSize) {
		t.Errorf("expected %v, got %v", errBadIncbinSize, err)
	}
}

func TestAnonymousLabels(t *testing.T) {
	src := "ORG $8000\n- LDA #1\nBNE -\nBNE +\n+ RTS"
	checkASM(t, src, "A901D0FCD00060")
}

func TestLocalLabels(t *testing.T) {
	src := "ORG $8000\nfirst:\n@l: DB 1\nsecond:\n@l: DB 2\n JMP @l"
	checkASM(t, src, "01024C0180")
}

func TestMultiStatementLine(t *testing.T) {
	checkASM(t, "ORG $8000 : LDA #1 : RTS", "A90160")
}

func TestErrorDirective(t *testing.T) {
	_, err := assemble("ERROR \"boom\"")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected boom error, got %v", err)
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := assemble("ORG $0\nDB 1\nDB 1/0")
	if err == nil || !strings.HasPrefix(err.Error(), "test.asm(3): ") {
		t.Errorf("expected test.asm(3) prefix, got %v", err)
	}
}

func TestBasicErrors(t *testing.T) {
	checkASMError(t, "ORG $0\nfoo:\nfoo:", errLabelDefined)
	checkASMError(t, "ORG $0\nDB nosuch", errUnknownLabel)
	checkASMError(t, "ORG $0\nDB 1/0", errDivZero)
	checkASMError(t, "DB 1", errUndefinedPC)
	checkASMError(t, "ORG $0\nDB 1 garbage", errExtraChars)
	checkASMError(t, "ORG $0\nDB", errMissingOperand)
	checkASMError(t, "IF 1", errMissingEndIf)
	checkASMError(t, "ELSE", errExtraElse)
	checkASMError(t, "ENDIF", errExtraEndIf)
}

func TestDefines(t *testing.T) {
	src := "ORG $0\nIFDEF X\nDB 1\nENDIF\nIFNDEF X\nDB 2\nENDIF"
	a, err := assembleOpts(src, Options{Defines: []string{"X"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%X", a.Code); got != "01" {
		t.Errorf("got %s, exp 01", got)
	}

	a, err = assembleOpts(src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%X", a.Code); got != "02" {
		t.Errorf("got %s, exp 02", got)
	}
}

func TestElseIfChain(t *testing.T) {
	src := "ORG $0\nIF 0\nDB 1\nELSEIF 1\nDB 2\nELSEIF 1\nDB 3\nELSE\nDB 4\nENDIF"
	checkASM(t, src, "02")
}

func TestListing(t *testing.T) {
	type record struct {
		text string
		pc   int
		code string
	}
	var records []record
	opts := Options{
		ListFunc: func(text, comment string, pc int, code []byte) {
			records = append(records, record{text, pc, fmt.Sprintf("%X", code)})
		},
	}
	_, err := assembleOpts("ORG $8000\nLDA #$42 ; load\nRTS", opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 listing records, got %d", len(records))
	}
	if records[1].pc != 0x8000 || records[1].code != "A942" {
		t.Errorf("bad listing record: %+v", records[1])
	}
}

func TestSymbols(t *testing.T) {
	a, err := assemble("ORG $8000\nzeta: RTS\nalpha: RTS\nv = 7")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, sym := range a.Symbols {
		names = append(names, sym.Name)
	}
	if got := strings.Join(names, ","); got != "alpha,v,zeta" {
		t.Errorf("symbols = %s, exp alpha,v,zeta", got)
	}
}

func TestOrigin(t *testing.T) {
	a, err := assemble("ORG $C000\nRTS")
	if err != nil {
		t.Fatal(err)
	}
	if a.Origin != 0xC000 {
		t.Errorf("origin = $%04X, exp $C000", a.Origin)
	}
}
