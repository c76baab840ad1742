// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a 6502 macro assembler.
//
// Assembly is iterative: the driver walks the source once per pass,
// re-resolving forward references until the symbol table reaches a
// fixpoint. Instruction sizes depend on operand values (zero page vs
// absolute), so addresses can shift between passes. When a pass defines
// no new labels and still has unresolved references, the pass after it
// is the "last chance" pass, in which anything unresolved is a hard
// error; the seventh pass is always a last chance.
package asm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	maxPasses     = 7
	ifNestLimit   = 32
	defaultFiller = 0
)

// A FileSystem supplies the bytes of included files. The default reads
// from the operating system; tests substitute an in-memory map.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// A ListFunc receives one listing record per processed source line:
// the equate-expanded text, the trailing comment (if any), the program
// counter at the start of the line, and the bytes the line emitted.
type ListFunc func(text, comment string, pc int, code []byte)

// Options configure an assembly.
type Options struct {
	Defines        []string   // names predefined as VALUE labels with value 1
	Quiet          bool       // suppress per-pass progress messages
	VerboseListing bool       // list REPT/MACRO expansions too
	ListFunc       ListFunc   // listing callback, run after convergence
	Out            io.Writer  // progress stream; defaults to os.Stdout
	FS             FileSystem // include/incbin source; defaults to the OS
}

// An Assembly is the result of a successful assembly.
type Assembly struct {
	Code    []byte   // assembled machine code, from the first origin
	Origin  int      // address of the first emitted byte
	Symbols []Symbol // user-defined labels, sorted by name
}

// WriteTo writes the machine code to an output stream byte-exact.
func (a *Assembly) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Code)
	return int64(n), err
}

// The Assembler holds all state for one assembly session. It is the
// sole owner of the symbol table, output buffer, conditional stack and
// program counter; handlers mutate them single-threaded.
type Assembler struct {
	pass            int
	scope           int
	nextScope       int
	lastChance      bool
	needAnotherPass bool
	dependant       bool

	labels    *symtab
	pcLabel   *label // the '$' singleton
	lastLabel *label // newest label created (the definition frontier)
	labelHere *label // label bound on the current line

	skipLine [ifNestLimit]bool
	ifDone   [ifNestLimit]bool
	ifLevel  int

	filler      byte
	noOutput    bool
	enumSavedPC int

	capture        *capture
	insideMacro    int
	nestedIncludes int

	code   []byte
	pos    int // physical write position within code (moved by BASE)
	origin int // PC at the first emitted byte

	rootName  string
	rootDir   string
	rootLines []string
	curDir    string

	fs             FileSystem
	out            io.Writer
	quiet          bool
	verboseListing bool
	list           ListFunc // active during the listing pass only
	optList        ListFunc // requested listing callback
	defines        []string
}

// New creates an assembler for the given root source lines.
func New(filename string, lines []string, opts Options) *Assembler {
	a := &Assembler{
		labels:         newSymtab(),
		rootName:       filepath.Base(filename),
		rootDir:        filepath.Dir(filename),
		rootLines:      lines,
		fs:             opts.FS,
		out:            opts.Out,
		quiet:          opts.Quiet,
		verboseListing: opts.VerboseListing,
		optList:        opts.ListFunc,
		defines:        opts.Defines,
	}
	if a.fs == nil {
		a.fs = osFS{}
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	a.initReserved()
	return a
}

// initReserved seeds the symbol table with the 56 mnemonics, the
// directive set, the '$' program counter label and any predefines.
func (a *Assembler) initReserved() {
	for name, ops := range opcodeTable {
		a.labels.push(&label{name: name, kind: kindReserved, ops: ops})
	}
	for name, tag := range directiveTable {
		a.labels.push(&label{name: name, kind: kindReserved, dir: tag})
	}

	a.pcLabel = &label{name: "$", kind: kindValue, value: noOrigin, pinned: true}
	a.labels.push(a.pcLabel)

	for _, name := range a.defines {
		a.labels.push(&label{name: name, kind: kindValue, value: 1, pinned: true})
	}
}

// Assemble reads 6502 assembly source from r and assembles it. The
// filename is used for diagnostics and include resolution.
func Assemble(r io.Reader, filename string, opts Options) (*Assembly, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapPos(errCantOpen, filename, 0)
	}
	return New(filename, splitLines(string(src)), opts).Run()
}

// AssembleFile assembles the source file at path.
func AssembleFile(path string, opts Options) (*Assembly, error) {
	fs := opts.FS
	if fs == nil {
		fs = osFS{}
	}
	src, err := fs.ReadFile(path)
	if err != nil {
		return nil, wrapPos(errCantOpen, path, 0)
	}
	return New(path, splitLines(string(src)), opts).Run()
}

// Run drives passes to a fixpoint and returns the finished assembly.
func (a *Assembler) Run() (*Assembly, error) {
	if err := a.compile(); err != nil {
		return nil, err
	}
	if a.optList != nil {
		// one more pass with the listing callback attached, so the
		// listing shows converged addresses
		a.list = a.optList
		a.pass++
		a.lastChance = true
		if err := a.runPass(); err != nil {
			return nil, err
		}
	}
	return &Assembly{Code: a.code, Origin: a.origin, Symbols: a.symbols()}, nil
}

// compile iterates passes until the label table stops changing or the
// pass limit forces a last chance.
func (a *Assembler) compile() error {
	var prevLast *label
	for {
		a.pass++
		if a.pass == maxPasses || (prevLast != nil && prevLast == a.lastLabel) {
			a.lastChance = true
			a.progress("last try..")
		} else {
			a.progress(fmt.Sprintf("pass %d..", a.pass))
		}
		prevLast = a.lastLabel

		if err := a.runPass(); err != nil {
			return err
		}
		if a.lastChance || !a.needAnotherPass {
			return nil
		}
	}
}

// runPass resets per-pass state and walks the root source.
func (a *Assembler) runPass() error {
	a.needAnotherPass = false
	a.dependant = false
	a.skipLine[0] = false
	a.ifLevel = 0
	a.scope = 1
	a.nextScope = 2
	a.filler = defaultFiller
	a.noOutput = false
	a.insideMacro = 0
	a.capture = nil
	a.nestedIncludes = 0
	a.setPC(noOrigin)
	a.code = a.code[:0]
	a.pos = 0
	a.origin = 0

	return a.processLines(a.rootName, a.rootDir, a.rootLines)
}

func (a *Assembler) progress(msg string) {
	if !a.quiet {
		fmt.Fprintln(a.out, msg)
	}
}

// processFile walks an included source file.
func (a *Assembler) processFile(path string) error {
	src, err := a.fs.ReadFile(path)
	if err != nil {
		return errCantOpen
	}
	return a.processLines(filepath.Base(path), filepath.Dir(path), splitLines(string(src)))
}

// processLines walks one file's lines. At the end of the root file the
// conditional stack, any open capture and any open enum must be closed.
func (a *Assembler) processLines(name, dir string, lines []string) error {
	a.nestedIncludes++
	savedDir := a.curDir
	a.curDir = dir

	for i, text := range lines {
		if err := a.processLine(text, name, i+1); err != nil {
			return err
		}
	}

	a.curDir = savedDir
	a.nestedIncludes--

	if a.nestedIncludes == 0 {
		n := len(lines)
		switch {
		case a.ifLevel != 0:
			return wrapPos(errMissingEndIf, name, n)
		case a.capture != nil && a.capture.endWord == "ENDM":
			return wrapPos(errMissingEndM, name, n)
		case a.capture != nil:
			return wrapPos(errMissingEndR, name, n)
		case a.noOutput:
			return wrapPos(errMissingEndE, name, n)
		}
	}
	return nil
}

// processLine runs one source line through the pipeline: capture check,
// equate expansion, optional label binding, dispatch, leftover check.
func (a *Assembler) processLine(src, filename string, lineNo int) error {
	return wrapPos(a.statement(src, filename, lineNo), filename, lineNo)
}

func (a *Assembler) statement(src, filename string, lineNo int) error {
	if a.capture != nil {
		return a.captureLine(src, filename, lineNo)
	}

	expanded, comment, err := a.expandLine(src)
	if err != nil {
		return err
	}

	pcBefore := a.pc()
	posBefore := a.pos

	// ':' separates statements; a trailing label colon is just a
	// statement whose body is empty. The bound label carries across
	// pieces so "name: EQU ..." still sees its name.
	a.labelHere = nil
	for _, stmt := range splitStatements(expanded) {
		line := newFstring(lineNo, stmt)
		if err = a.dispatch(&line); err != nil {
			break
		}
	}

	if a.list != nil && (a.insideMacro == 0 || a.verboseListing) {
		// the bytes this line wrote; empty if the line only moved the
		// physical position (BASE)
		var emitted []byte
		if a.pos >= posBefore && a.pos <= len(a.code) {
			emitted = a.code[posBefore:a.pos]
		}
		a.list(expanded, comment, pcBefore, emitted)
	}
	return err
}

// splitStatements splits a line at colons outside quoted text.
func splitStatements(line string) []string {
	var quote byte
	start := 0
	var parts []string
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(line) {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ':':
			parts = append(parts, line[start:i])
			start = i + 1
		}
	}
	return append(parts, line[start:])
}

func (a *Assembler) dispatch(s *fstring) error {
	start := *s

	lb, resErr := a.getReserved(s)

	if a.skipLine[a.ifLevel] {
		// While skipping, only the IF family is honored; everything
		// else is lexed enough to skip safely and produces nothing.
		if resErr != nil || lb.kind != kindReserved || !isIfFamily(lb.dir) {
			return nil
		}
		return a.runDirective(lb.dir, s)
	}

	if resErr != nil {
		word, rest, err := consumeLabelWord(start)
		if err != nil {
			return err
		}
		if word == "" {
			return errIllegal
		}
		if err := a.addLabel(word, a.insideMacro != 0); err != nil {
			return err
		}
		*s = rest
		if lb, resErr = a.getReserved(s); resErr != nil {
			return resErr
		}
	}

	var err error
	switch {
	case lb.kind == kindMacro:
		err = a.expandMacro(lb, s)
	case lb.ops != nil:
		err = a.emitOpcode(lb, s)
	default:
		err = a.runDirective(lb.dir, s)
	}
	if err != nil {
		return err
	}

	*s = s.consumeWhitespace()
	if !s.isEmpty() {
		return errExtraChars
	}
	return nil
}

func (a *Assembler) resolvePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.curDir, name)
}

// symbols collects the final user-defined labels, sorted by name.
func (a *Assembler) symbols() []Symbol {
	var syms []Symbol
	for name, list := range a.labels.m {
		if name == "" || name == "$" {
			continue
		}
		for _, lb := range list {
			if lb.kind != kindLabel && lb.kind != kindValue {
				continue
			}
			syms = append(syms, Symbol{Name: name, Value: lb.value, Kind: lb.kind.String()})
		}
	}
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Name != syms[j].Name {
			return syms[i].Name < syms[j].Name
		}
		return syms[i].Value < syms[j].Value
	})
	return syms
}

// EvalExpression evaluates a standalone expression, with the given
// symbols visible as VALUE labels. Used by the interactive monitor.
func EvalExpression(expr string, syms []Symbol) (int, error) {
	a := New("eval", nil, Options{Quiet: true})
	a.pass = 1
	a.lastChance = true
	for _, sym := range syms {
		a.labels.push(&label{name: sym.Name, kind: kindValue, value: sym.Value, pinned: true})
	}
	s := newFstring(1, expr)
	v, err := a.eval(&s, precWhole)
	if err != nil {
		return 0, err
	}
	s = s.consumeWhitespace()
	if !s.isEmpty() {
		return 0, errExtraChars
	}
	return v, nil
}

func splitLines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
