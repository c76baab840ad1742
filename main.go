// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/parisoft/asm8/asm"
	"github.com/parisoft/asm8/monitor"
)

const version = "1.0"

func main() {
	var (
		opts        asm.Options
		makeListing bool
		interactive bool
		files       []string
	)

	for _, arg := range os.Args[1:] {
		if len(arg) > 1 && arg[0] == '-' {
			switch arg[1] {
			case 'h', '?':
				showHelp()
				os.Exit(0)
			case 'L':
				opts.VerboseListing = true
				makeListing = true
			case 'l':
				makeListing = true
			case 'd':
				if len(arg) < 3 {
					exitUsage("option -d requires a name")
				}
				opts.Defines = append(opts.Defines, arg[2:])
			case 'q':
				opts.Quiet = true
			case 'i':
				interactive = true
			default:
				exitUsage("unknown option: " + arg)
			}
		} else {
			files = append(files, arg)
		}
	}

	if interactive {
		m := monitor.New()
		m.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
		return
	}

	if len(files) < 1 {
		fmt.Fprintln(os.Stderr, "Error: No source file specified.")
		showHelp()
		os.Exit(1)
	}
	if len(files) > 3 {
		exitUsage("unused argument: " + files[3])
	}

	source := files[0]
	output := replaceExt(source, ".bin")
	if len(files) > 1 {
		output = files[1]
	}
	listPath := replaceExt(source, ".lst")
	if len(files) > 2 {
		listPath = files[2]
		makeListing = true
	}

	var listing *asm.Listing
	var listFile *os.File
	if makeListing {
		f, err := os.Create(listPath)
		if err != nil {
			exitOnError(err)
		}
		listFile = f
		listing = asm.NewListing(f)
		opts.ListFunc = listing.Line
	}

	assembly, err := asm.AssembleFile(source, opts)
	if err != nil {
		exitOnError(err)
	}

	out, err := os.Create(output)
	if err != nil {
		exitOnError(err)
	}
	if _, err = assembly.WriteTo(out); err == nil {
		err = out.Close()
	}
	if err != nil {
		exitOnError(err)
	}

	if listing != nil {
		if err = listing.Flush(); err == nil {
			err = listFile.Close()
		}
		if err != nil {
			exitOnError(err)
		}
	}
}

func showHelp() {
	fmt.Println()
	fmt.Println("asm8 " + version)
	fmt.Println("Usage:  asm8 [-options] sourcefile [outputfile] [listfile]")
	fmt.Println("    -?          show this help")
	fmt.Println("    -l          create listing")
	fmt.Println("    -L          create verbose listing (expand REPT, MACRO)")
	fmt.Println("    -d<name>    define symbol")
	fmt.Println("    -q          quiet mode (no output unless error)")
	fmt.Println("    -i          start the interactive monitor")
}

func replaceExt(path, ext string) string {
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		return path[:i] + ext
	}
	return path + ext
}

func exitUsage(msg string) {
	fmt.Fprintln(os.Stderr, "Error: "+msg)
	os.Exit(1)
}

func exitOnError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
