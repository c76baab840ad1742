// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
)

// Assembly errors. Messages match the traditional assembler's wording so
// existing build scripts that grep diagnostics keep working.
var (
	errOutOfRange     = errors.New("Value out of range.")
	errNotANumber     = errors.New("Not a number.")
	errUnknownLabel   = errors.New("Unknown label.")
	errIllegal        = errors.New("Illegal instruction.")
	errIncomplete     = errors.New("Incomplete expression.")
	errLabelDefined   = errors.New("Label already defined.")
	errMissingOperand = errors.New("Missing operand.")
	errDivZero        = errors.New("Divide by zero.")
	errBadAddr        = errors.New("Can't determine address.")
	errNeedName       = errors.New("Need a name.")
	errCantOpen       = errors.New("Can't open file.")
	errExtraEndM      = errors.New("ENDM without MACRO.")
	errExtraEndR      = errors.New("ENDR without REPT.")
	errExtraEndE      = errors.New("ENDE without ENUM.")
	errExtraElse      = errors.New("ELSE without IF.")
	errExtraElseIf    = errors.New("ELSEIF without IF.")
	errExtraEndIf     = errors.New("ENDIF without IF.")
	errRecurseMacro   = errors.New("Recursive MACRO not allowed.")
	errRecurseEqu     = errors.New("Recursive EQU not allowed.")
	errMissingEndIf   = errors.New("Missing ENDIF.")
	errMissingEndM    = errors.New("Missing ENDM.")
	errMissingEndR    = errors.New("Missing ENDR.")
	errMissingEndE    = errors.New("Missing ENDE.")
	errIfNestLimit    = errors.New("Too many nested IFs.")
	errUndefinedPC    = errors.New("PC is undefined (use ORG first)")
	errBadIncbinSize  = errors.New("INCBIN size is out of range.")
	errSeekOutOfRange = errors.New("Seek position out of range.")
	errExtraChars     = errors.New("Extra characters on line.")
)

// A posError decorates an assembly error with the source position that
// raised it, rendered as "<filename>(<lineno>): <message>".
type posError struct {
	file string
	line int
	err  error
}

func (e *posError) Error() string {
	return fmt.Sprintf("%s(%d): %s", e.file, e.line, e.err.Error())
}

func (e *posError) Unwrap() error {
	return e.err
}

// wrapPos attaches a source position to err unless it already has one.
func wrapPos(err error, file string, line int) error {
	if err == nil {
		return nil
	}
	var pe *posError
	if errors.As(err, &pe) {
		return err
	}
	return &posError{file: file, line: line, err: err}
}
