// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// The 6502 addressing modes.
type addrMode byte

const (
	modACC addrMode = iota // A
	modIMM                 // #v
	modIND                 // (a)
	modINDX                // (zp,X)
	modINDY                // (zp),Y
	modZPX                 // zp,X
	modZPY                 // zp,Y
	modABSX                // a,X
	modABSY                // a,Y
	modZP                  // zp
	modABS                 // a
	modREL                 // branch target
	modIMP                 //
)

// Operand byte count per mode.
var modeSize = [...]int{
	modACC:  0,
	modIMM:  1,
	modIND:  2,
	modINDX: 1,
	modINDY: 1,
	modZPX:  1,
	modZPY:  1,
	modABSX: 2,
	modABSY: 2,
	modZP:   1,
	modABS:  2,
	modREL:  1,
	modIMP:  0,
}

// An opVariant is one encodable form of a mnemonic.
type opVariant struct {
	code byte
	mode addrMode
}

// Encodings for the 56 documented mnemonics. Table order is the
// selection order: short forms come before long ones so a resolvable
// small operand picks the short encoding, while an unresolved forward
// reference falls through to the pessimistic long form.
var opcodeTable = map[string][]opVariant{
	"BRK": {{0x00, modIMM}, {0x00, modZP}, {0x00, modIMP}},
	"PHP": {{0x08, modIMP}},
	"BPL": {{0x10, modREL}},
	"CLC": {{0x18, modIMP}},
	"JSR": {{0x20, modABS}},
	"BIT": {{0x24, modZP}, {0x2c, modABS}},
	"PLP": {{0x28, modIMP}},
	"BMI": {{0x30, modREL}},
	"SEC": {{0x38, modIMP}},
	"RTI": {{0x40, modIMP}},
	"PHA": {{0x48, modIMP}},
	"JMP": {{0x6c, modIND}, {0x4c, modABS}},
	"BVC": {{0x50, modREL}},
	"CLI": {{0x58, modIMP}},
	"RTS": {{0x60, modIMP}},
	"PLA": {{0x68, modIMP}},
	"BVS": {{0x70, modREL}},
	"SEI": {{0x78, modIMP}},
	"STY": {{0x94, modZPX}, {0x84, modZP}, {0x8c, modABS}},
	"STX": {{0x96, modZPY}, {0x86, modZP}, {0x8e, modABS}},
	"DEY": {{0x88, modIMP}},
	"TXA": {{0x8a, modIMP}},
	"BCC": {{0x90, modREL}},
	"TYA": {{0x98, modIMP}},
	"TXS": {{0x9a, modIMP}},
	"TAY": {{0xa8, modIMP}},
	"TAX": {{0xaa, modIMP}},
	"BCS": {{0xb0, modREL}},
	"CLV": {{0xb8, modIMP}},
	"TSX": {{0xba, modIMP}},
	"CPY": {{0xc0, modIMM}, {0xc4, modZP}, {0xcc, modABS}},
	"DEC": {{0xd6, modZPX}, {0xde, modABSX}, {0xc6, modZP}, {0xce, modABS}},
	"INY": {{0xc8, modIMP}},
	"DEX": {{0xca, modIMP}},
	"BNE": {{0xd0, modREL}},
	"CLD": {{0xd8, modIMP}},
	"SED": {{0xf8, modIMP}},
	"CPX": {{0xe0, modIMM}, {0xe4, modZP}, {0xec, modABS}},
	"INC": {{0xf6, modZPX}, {0xfe, modABSX}, {0xe6, modZP}, {0xee, modABS}},
	"INX": {{0xe8, modIMP}},
	"NOP": {{0xea, modIMP}},
	"BEQ": {{0xf0, modREL}},
	"LDY": {{0xa0, modIMM}, {0xb4, modZPX}, {0xbc, modABSX}, {0xa4, modZP}, {0xac, modABS}},
	"LDX": {{0xa2, modIMM}, {0xb6, modZPY}, {0xbe, modABSY}, {0xa6, modZP}, {0xae, modABS}},
	"ORA": {{0x09, modIMM}, {0x01, modINDX}, {0x11, modINDY}, {0x15, modZPX}, {0x1d, modABSX}, {0x19, modABSY}, {0x05, modZP}, {0x0d, modABS}},
	"ASL": {{0x0a, modACC}, {0x16, modZPX}, {0x1e, modABSX}, {0x06, modZP}, {0x0e, modABS}, {0x0a, modIMP}},
	"AND": {{0x29, modIMM}, {0x21, modINDX}, {0x31, modINDY}, {0x35, modZPX}, {0x3d, modABSX}, {0x39, modABSY}, {0x25, modZP}, {0x2d, modABS}},
	"ROL": {{0x2a, modACC}, {0x36, modZPX}, {0x3e, modABSX}, {0x26, modZP}, {0x2e, modABS}, {0x2a, modIMP}},
	"EOR": {{0x49, modIMM}, {0x41, modINDX}, {0x51, modINDY}, {0x55, modZPX}, {0x5d, modABSX}, {0x59, modABSY}, {0x45, modZP}, {0x4d, modABS}},
	"LSR": {{0x4a, modACC}, {0x56, modZPX}, {0x5e, modABSX}, {0x46, modZP}, {0x4e, modABS}, {0x4a, modIMP}},
	"ADC": {{0x69, modIMM}, {0x61, modINDX}, {0x71, modINDY}, {0x75, modZPX}, {0x7d, modABSX}, {0x79, modABSY}, {0x65, modZP}, {0x6d, modABS}},
	"ROR": {{0x6a, modACC}, {0x76, modZPX}, {0x7e, modABSX}, {0x66, modZP}, {0x6e, modABS}, {0x6a, modIMP}},
	"STA": {{0x81, modINDX}, {0x91, modINDY}, {0x95, modZPX}, {0x9d, modABSX}, {0x99, modABSY}, {0x85, modZP}, {0x8d, modABS}},
	"LDA": {{0xa9, modIMM}, {0xa1, modINDX}, {0xb1, modINDY}, {0xb5, modZPX}, {0xbd, modABSX}, {0xb9, modABSY}, {0xa5, modZP}, {0xad, modABS}},
	"CMP": {{0xc9, modIMM}, {0xc1, modINDX}, {0xd1, modINDY}, {0xd5, modZPX}, {0xdd, modABSX}, {0xd9, modABSY}, {0xc5, modZP}, {0xcd, modABS}},
	"SBC": {{0xe9, modIMM}, {0xe1, modINDX}, {0xf1, modINDY}, {0xf5, modZPX}, {0xfd, modABSX}, {0xf9, modABSY}, {0xe5, modZP}, {0xed, modABS}},
}

// Syntactic operand shapes, determined before mode selection.
type operandShape byte

const (
	shapeImplied operandShape = iota
	shapeAcc
	shapeImm
	shapeInd
	shapeIndX
	shapeIndY
	shapeAbs
	shapeAbsX
	shapeAbsY
)

// shapeMatches reports whether a table entry's mode can encode an
// operand of the given shape.
func shapeMatches(shape operandShape, mode addrMode) bool {
	switch shape {
	case shapeImplied:
		return mode == modIMP
	case shapeAcc:
		return mode == modACC
	case shapeImm:
		return mode == modIMM
	case shapeInd:
		return mode == modIND
	case shapeIndX:
		return mode == modINDX
	case shapeIndY:
		return mode == modINDY
	case shapeAbs:
		return mode == modZP || mode == modABS || mode == modREL
	case shapeAbsX:
		return mode == modZPX || mode == modABSX
	case shapeAbsY:
		return mode == modZPY || mode == modABSY
	}
	return false
}

func hasMode(ops []opVariant, mode addrMode) bool {
	for _, v := range ops {
		if v.mode == mode {
			return true
		}
	}
	return false
}

// parseOperand determines the operand's syntactic shape and value,
// advancing the cursor past everything it consumes.
func (a *Assembler) parseOperand(ops []opVariant, s *fstring) (operandShape, int, error) {
	*s = s.consumeWhitespace()
	a.dependant = false

	switch {
	case s.isEmpty():
		return shapeImplied, 0, nil

	case (s.peek() == 'A' || s.peek() == 'a') && (len(s.str) == 1 || whitespace(s.str[1])) && hasMode(ops, modACC):
		*s = s.consume(1)
		return shapeAcc, 0, nil

	case s.peek() == '#':
		*s = s.consume(1)
		v, err := a.eval(s, precWhole)
		return shapeImm, v, err

	case s.peek() == '(':
		// Try the indirect reading first; if the text after the closing
		// parenthesis rules it out (or the mnemonic has no such form),
		// the parentheses were grouping and the operand is absolute.
		t := s.consume(1)
		v, err := a.eval(&t, precWhole)
		if err == nil {
			t = t.consumeWhitespace()
			switch {
			case (t.startsWithString(",X)") || t.startsWithString(",x)")) && hasMode(ops, modINDX):
				*s = t.consume(3)
				return shapeIndX, v, nil
			case (t.startsWithString("),Y") || t.startsWithString("),y")) && hasMode(ops, modINDY):
				*s = t.consume(3)
				return shapeIndY, v, nil
			case t.startsWithChar(')') && t.consume(1).consumeWhitespace().isEmpty() && hasMode(ops, modIND):
				*s = t.consume(1)
				return shapeInd, v, nil
			}
		}
		// grouping parentheses; reparse as an absolute operand
		a.dependant = false
		fallthrough

	default:
		v, err := a.eval(s, precWhole)
		if err != nil {
			return shapeAbs, 0, err
		}
		t := s.consumeWhitespace()
		switch {
		case t.startsWithString(",X") || t.startsWithString(",x"):
			*s = t.consume(2)
			return shapeAbsX, v, nil
		case t.startsWithString(",Y") || t.startsWithString(",y"):
			*s = t.consume(2)
			return shapeAbsY, v, nil
		default:
			return shapeAbs, v, nil
		}
	}
}

// emitOpcode selects an encoding for the mnemonic held by id and emits
// the opcode byte plus its little-endian operand. The first table entry
// that matches the operand's shape and fits its size wins; zero-page
// forms are skipped while the operand depends on an unresolved symbol.
func (a *Assembler) emitOpcode(id *label, s *fstring) error {
	shape, val, err := a.parseOperand(id.ops, s)
	if err != nil {
		return err
	}

	matched := false
	for _, v := range id.ops {
		if !shapeMatches(shape, v.mode) {
			continue
		}
		matched = true

		switch v.mode {
		case modIMP, modACC:
			return a.emit(v.code)

		case modIMM, modINDX, modINDY:
			if !a.dependant && (val < -128 || val > 255) {
				return errOutOfRange
			}
			return a.emit(v.code, byte(val))

		case modZP, modZPX, modZPY:
			if a.dependant || val < 0 || val > 255 {
				continue
			}
			return a.emit(v.code, byte(val))

		case modABS, modABSX, modABSY, modIND:
			if !a.dependant && (val < -32768 || val > 65535) {
				return errOutOfRange
			}
			return a.emit(v.code, byte(val), byte(val>>8))

		case modREL:
			offset := val - (a.pc() + 2)
			if !a.dependant && (offset < -128 || offset > 127) {
				if a.lastChance {
					return errOutOfRange
				}
				a.needAnotherPass = true
				offset = 0
			}
			if a.dependant {
				offset = 0
			}
			return a.emit(v.code, byte(offset))
		}
	}

	if matched {
		return errOutOfRange
	}
	if shape == shapeImplied {
		return errMissingOperand
	}
	return errIllegal
}

// Operand format per addressing mode, for tools that print instructions.
var modeFormat = [...]string{
	modACC:  "A",
	modIMM:  "#$%s",
	modIND:  "($%s)",
	modINDX: "($%s,X)",
	modINDY: "($%s),Y",
	modZPX:  "$%s,X",
	modZPY:  "$%s,Y",
	modABSX: "$%s,X",
	modABSY: "$%s,Y",
	modZP:   "$%s",
	modABS:  "$%s",
	modREL:  "$%s",
	modIMP:  "",
}

// An Op maps an opcode byte back to its mnemonic, for disassembly. An
// unused opcode has an empty Name.
type Op struct {
	Name   string
	Code   byte
	Format string // operand format, e.g. "#$%s"
	Length int    // total instruction length in bytes
	Rel    bool   // operand is a relative branch offset
}

// Ops returns the opcode-to-instruction table. Where one opcode byte
// appears under several syntactic forms (accumulator shifts, BRK), the
// canonical form is the one listed last in the encoding table.
func Ops() [256]Op {
	var ops [256]Op
	for name, variants := range opcodeTable {
		for _, v := range variants {
			ops[v.code] = Op{
				Name:   name,
				Code:   v.code,
				Format: modeFormat[v.mode],
				Length: 1 + modeSize[v.mode],
				Rel:    v.mode == modREL,
			}
		}
	}
	return ops
}
