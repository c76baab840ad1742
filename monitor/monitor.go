// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor implements an interactive monitor for the assembler:
// assemble files, inspect the resulting image and symbol table, evaluate
// expressions and disassemble the output.
package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/cmd"

	"github.com/parisoft/asm8/asm"
	"github.com/parisoft/asm8/disasm"
)

// A Monitor holds the state of one interactive session.
type Monitor struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	settings    *settings
	assembly    *asm.Assembly
	lastCmd     *cmd.Selection
}

// New creates a monitor session.
func New() *Monitor {
	return &Monitor{
		settings: newSettings(),
	}
}

// RunCommands accepts monitor commands from a reader and writes results
// to a writer. When interactive, a prompt is displayed while waiting
// for the next command.
func (m *Monitor) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	m.input = bufio.NewScanner(r)
	m.output = bufio.NewWriter(w)
	m.interactive = interactive

	if interactive {
		m.println("asm8 monitor. Type 'help' for a list of commands.")
	}

	for {
		m.prompt()

		line, err := m.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				m.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				m.println("Command is ambiguous.")
				continue
			case err != nil:
				m.printf("ERROR: %v.\n", err)
				continue
			}
		} else if m.lastCmd != nil {
			c = *m.lastCmd
		}

		if c.Command == nil {
			continue
		}
		m.lastCmd = &c

		handler := c.Command.Data.(func(*Monitor, cmd.Selection) error)
		if err := handler(m, c); err != nil {
			break
		}
	}
	m.flush()
}

func (m *Monitor) printf(format string, args ...any) {
	fmt.Fprintf(m.output, format, args...)
	m.flush()
}

func (m *Monitor) println(args ...any) {
	fmt.Fprintln(m.output, args...)
	m.flush()
}

func (m *Monitor) flush() {
	m.output.Flush()
}

func (m *Monitor) getLine() (string, error) {
	if m.input.Scan() {
		return m.input.Text(), nil
	}
	if m.input.Err() != nil {
		return "", m.input.Err()
	}
	return "", io.EOF
}

func (m *Monitor) prompt() {
	if m.interactive {
		m.printf("* ")
	}
}

// parseExpr evaluates a monitor argument with the assembler's
// evaluator, so $hex forms and symbols of the last assembly work.
func (m *Monitor) parseExpr(expr string) (int, error) {
	var syms []asm.Symbol
	if m.assembly != nil {
		syms = m.assembly.Symbols
	}
	return asm.EvalExpression(expr, syms)
}

func (m *Monitor) cmdHelp(c cmd.Selection) error {
	m.println("Monitor commands:")
	m.println("    assemble <file>              assemble a source file (a)")
	m.println("    symbols [<prefix>]           list the symbol table")
	m.println("    eval <expression>            evaluate an expression (e)")
	m.println("    memory dump [<addr>] [<n>]   hex dump the output image (m)")
	m.println("    disassemble [<addr>] [<n>]   disassemble the output (d)")
	m.println("    set [<var> <value>]          display or change settings")
	m.println("    quit                         leave the monitor")
	return nil
}

func (m *Monitor) cmdQuit(c cmd.Selection) error {
	return errors.New("exiting monitor")
}

func (m *Monitor) cmdAssemble(c cmd.Selection) error {
	if len(c.Args) < 1 {
		m.println("Usage: assemble <filename>")
		return nil
	}
	path := c.Args[0]

	opts := asm.Options{
		Quiet:          m.settings.Quiet,
		VerboseListing: m.settings.VerboseListing,
		Out:            m.output,
	}

	var listing *asm.Listing
	var listFile *os.File
	if m.settings.MakeListing {
		f, err := os.Create(replaceExt(path, ".lst"))
		if err != nil {
			m.printf("%v\n", err)
			return nil
		}
		listFile = f
		listing = asm.NewListing(f)
		opts.ListFunc = listing.Line
	}

	assembly, err := asm.AssembleFile(path, opts)
	if listing != nil {
		listing.Flush()
		listFile.Close()
	}
	if err != nil {
		m.printf("%v\n", err)
		return nil
	}
	m.assembly = assembly
	m.settings.NextDisasmAddr = assembly.Origin
	m.settings.NextMemDumpAddr = assembly.Origin

	binPath := replaceExt(path, ".bin")
	out, err := os.Create(binPath)
	if err == nil {
		_, err = assembly.WriteTo(out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		m.printf("%v\n", err)
		return nil
	}

	m.printf("Assembled %d bytes at $%04X to '%s' (%d symbols).\n",
		len(assembly.Code), assembly.Origin, binPath, len(assembly.Symbols))
	return nil
}

func (m *Monitor) cmdSymbols(c cmd.Selection) error {
	if m.assembly == nil {
		m.println("Nothing assembled yet.")
		return nil
	}
	prefix := ""
	if len(c.Args) > 0 {
		prefix = c.Args[0]
	}
	n := 0
	for _, sym := range m.assembly.Symbols {
		if !strings.HasPrefix(sym.Name, prefix) {
			continue
		}
		m.printf("    %-20s $%04X  %s\n", sym.Name, uint16(sym.Value), sym.Kind)
		n++
	}
	if n == 0 {
		m.println("No matching symbols.")
	}
	return nil
}

func (m *Monitor) cmdEval(c cmd.Selection) error {
	if len(c.Args) < 1 {
		m.println("Usage: eval <expression>")
		return nil
	}
	v, err := m.parseExpr(strings.Join(c.Args, " "))
	if err != nil {
		m.printf("%v\n", err)
		return nil
	}
	m.printf("$%04X (%d)\n", uint16(v), v)
	return nil
}

func (m *Monitor) cmdMemoryDump(c cmd.Selection) error {
	if m.assembly == nil {
		m.println("Nothing assembled yet.")
		return nil
	}

	addr := m.settings.NextMemDumpAddr
	if len(c.Args) > 0 {
		a, err := m.parseExpr(c.Args[0])
		if err != nil {
			m.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	count := m.settings.MemDumpBytes
	if len(c.Args) > 1 {
		n, err := m.parseExpr(c.Args[1])
		if err != nil {
			m.printf("%v\n", err)
			return nil
		}
		count = n
	}

	m.dumpMemory(addr, count)
	m.settings.NextMemDumpAddr = addr + count
	m.lastCmd.Args = []string{strconv.Itoa(addr + count), strconv.Itoa(count)}
	return nil
}

func (m *Monitor) dumpMemory(addr, count int) {
	code, origin := m.assembly.Code, m.assembly.Origin
	for line := addr &^ 7; line < addr+count; line += 8 {
		var hexb [8]string
		var chars [8]byte
		any := false
		for i := 0; i < 8; i++ {
			j := line + i - origin
			if j < 0 || j >= len(code) || line+i < addr || line+i >= addr+count {
				hexb[i], chars[i] = "  ", ' '
				continue
			}
			b := code[j]
			hexb[i] = fmt.Sprintf("%02X", b)
			if b >= 32 && b < 127 {
				chars[i] = b
			} else {
				chars[i] = '.'
			}
			any = true
		}
		if !any {
			continue
		}
		m.printf("$%04X: %s %s %s %s %s %s %s %s  %s\n", uint16(line),
			hexb[0], hexb[1], hexb[2], hexb[3], hexb[4], hexb[5], hexb[6], hexb[7],
			string(chars[:]))
	}
}

func (m *Monitor) cmdDisassemble(c cmd.Selection) error {
	if m.assembly == nil {
		m.println("Nothing assembled yet.")
		return nil
	}

	addr := m.settings.NextDisasmAddr
	if len(c.Args) > 0 {
		a, err := m.parseExpr(c.Args[0])
		if err != nil {
			m.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := m.settings.DisasmLines
	if len(c.Args) > 1 {
		n, err := m.parseExpr(c.Args[1])
		if err != nil {
			m.printf("%v\n", err)
			return nil
		}
		lines = n
	}

	code, origin := m.assembly.Code, m.assembly.Origin
	for i := 0; i < lines; i++ {
		if addr-origin < 0 || addr-origin >= len(code) {
			break
		}
		text, next := disasm.Disassemble(code, origin, addr)
		m.printf("$%04X:  %s\n", uint16(addr), text)
		addr = next
	}
	m.settings.NextDisasmAddr = addr
	m.lastCmd.Args = []string{strconv.Itoa(addr), strconv.Itoa(lines)}
	return nil
}

func (m *Monitor) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		m.println("Variables:")
		m.settings.Display(m.output)
		m.flush()

	case 1:
		m.println("Usage: set <var> <value>")

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch m.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var v bool
			v, err = strconv.ParseBool(value)
			if err == nil {
				err = m.settings.Set(key, v)
			}
		default:
			var v int
			v, err = m.parseExpr(value)
			if err == nil {
				err = m.settings.Set(key, v)
			}
		}

		if err == nil {
			m.println("Setting updated.")
		} else {
			m.printf("%v\n", err)
		}
	}
	return nil
}

func replaceExt(path, ext string) string {
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		return path[:i] + ext
	}
	return path + ext
}
