// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package monitor

import "github.com/beevik/cmd"

var cmds *cmd.Tree

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "asm8"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for the monitor commands.",
		Usage:       "help",
		Data:        (*Monitor).cmdHelp,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "assemble",
		Brief: "Assemble a source file",
		Description: "Run the assembler on the specified source file and" +
			" keep the output image and symbol table for inspection." +
			" The binary is also saved next to the source file.",
		Usage: "assemble <filename>",
		Data:  (*Monitor).cmdAssemble,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "symbols",
		Brief: "List the symbol table",
		Description: "List the labels of the last assembly, optionally" +
			" restricted to names starting with a prefix.",
		Usage: "symbols [<prefix>]",
		Data:  (*Monitor).cmdSymbols,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "eval",
		Brief: "Evaluate an expression",
		Description: "Evaluate an expression with the assembler's" +
			" expression evaluator. Labels of the last assembly are" +
			" visible.",
		Usage: "eval <expression>",
		Data:  (*Monitor).cmdEval,
	})

	// Memory commands
	mem := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	mem.AddCommand(cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory of the last assembly",
		Description: "Hex dump the output image of the last assembly," +
			" starting at the given address. The number of bytes to dump" +
			" may be specified as an option.",
		Usage: "memory dump [<address>] [<bytes>]",
		Data:  (*Monitor).cmdMemoryDump,
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble the last assembly",
		Description: "Disassemble machine code of the last assembly" +
			" starting at the requested address. The number of" +
			" instruction lines may be specified as an option.",
		Usage: "disassemble [<address>] [<lines>]",
		Data:  (*Monitor).cmdDisassemble,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. Type the" +
			" set command without arguments to display the current" +
			" values.",
		Usage: "set [<var> <value>]",
		Data:  (*Monitor).cmdSet,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the monitor",
		Description: "Quit the monitor.",
		Usage:       "quit",
		Data:        (*Monitor).cmdQuit,
	})

	root.AddShortcut("a", "assemble")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("e", "eval")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("s", "symbols")
	root.AddShortcut("?", "help")

	cmds = root
}
