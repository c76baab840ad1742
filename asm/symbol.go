// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// localChar introduces a label that belongs to the current scope.
const localChar = '@'

type labelKind byte

const (
	kindLabel    labelKind = iota // address computed by position
	kindValue                     // free integer ('=', ENUM, -d defines)
	kindEquate                    // textual substitution
	kindMacro                     // captured body with parameters
	kindReserved                  // opcode or directive
)

func (k labelKind) String() string {
	switch k {
	case kindLabel:
		return "LABEL"
	case kindValue:
		return "VALUE"
	case kindEquate:
		return "EQUATE"
	case kindMacro:
		return "MACRO"
	default:
		return "RESERVED"
	}
}

// A label is one binding of a name. The value is a tagged variant: which
// of the payload fields is meaningful depends on kind (and, for reserved
// words, on whether ops or dir is set).
type label struct {
	name  string
	kind  labelKind
	value int          // kindLabel, kindValue
	text  string       // kindEquate: substitution text
	macro *macroDef    // kindMacro: captured body
	ops   []opVariant  // kindReserved: opcode variants
	dir   dirTag       // kindReserved: directive handler tag

	pass   int  // pass in which this label last received a definition
	scope  int  // 0 = global, otherwise the local scope it belongs to
	pinned bool // address pinned this definition
	posdef bool // defined by position (participates in fixpoint checks)
	used   bool // recursion guard during equate/macro expansion
}

// A symtab maps each name to a stack of labels, most recent first.
type symtab struct {
	m map[string][]*label
}

func newSymtab() *symtab {
	return &symtab{m: make(map[string][]*label)}
}

func (t *symtab) push(lb *label) {
	t.m[lb.name] = append([]*label{lb}, t.m[lb.name]...)
}

// find returns the binding of name visible from the given scope: the
// newest local match if one exists, otherwise the oldest global one.
// Names starting with '+' are forward references, for which bindings already
// defined in the current pass are skipped; that way each reference and
// each definition claims the pass's '+' labels in source order.
func (t *symtab) find(name string, scope, pass int) *label {
	list := t.m[name]
	if len(list) == 0 {
		return nil
	}
	fwd := name != "" && name[0] == '+'
	for _, lb := range list {
		if fwd && lb.pass == pass {
			continue
		}
		if lb.scope == scope {
			return lb
		}
	}
	for i := len(list) - 1; i >= 0; i-- {
		lb := list[i]
		if fwd && lb.pass == pass {
			continue
		}
		if lb.scope == 0 {
			return lb
		}
	}
	return nil
}

func (a *Assembler) findLabel(name string) *label {
	return a.labels.find(name, a.scope, a.pass)
}

// consumeLabelWord reads a label name from the start of a line: an
// identifier, a bare '$', or an anonymous/relative name made of '+' or
// '-' characters with an optional identifier tail.
func consumeLabelWord(l fstring) (word string, remain fstring, err error) {
	l = l.consumeWhitespace()
	c := l.peek()
	switch {
	case c == '+' || c == '-':
		i := 0
		for i < len(l.str) && l.str[i] == c {
			i++
		}
		if i < len(l.str) && identStartChar(l.str[i]) {
			for i < len(l.str) && identChar(l.str[i]) {
				i++
			}
		} else if i < len(l.str) && decimal(l.str[i]) {
			return "", l, errIllegal
		}
		return l.str[:i], l.consume(i), nil

	case c == '$':
		if len(l.str) > 1 && identChar(l.str[1]) {
			return "", l, errIllegal
		}
		return "$", l.consume(1), nil

	case identStartChar(c):
		w, rest := l.consumeWhile(identChar)
		return w.str, rest, nil

	default:
		return "", l, errIllegal
	}
}

// addLabel binds word at the current position. Global names open a new
// local scope; names starting with '@' (or bound while expanding a macro
// body) attach to the current scope. Redefinition in the same pass is an
// error except for VALUE labels and '-' relative labels; redefinition
// across passes with a different address schedules another pass, which
// lastChance turns into a hard error.
func (a *Assembler) addLabel(word string, local bool) error {
	lb := a.findLabel(word)
	if lb != nil && local && lb.scope == 0 && lb.kind != kindValue {
		lb = nil // macro-local definition shadows the global
	}

	c := word[0]
	if c != localChar && !local {
		a.scope = a.nextScope
		a.nextScope++
	}

	if lb == nil {
		pcv := a.pc()
		lb = &label{
			name:   word,
			kind:   kindLabel,
			value:  pcv,
			pass:   a.pass,
			pinned: pcv >= 0,
			posdef: true,
		}
		if a.noOutput {
			lb.kind = kindValue
		}
		if c == localChar || local {
			lb.scope = a.scope
		}
		a.labels.push(lb)
		a.lastLabel = lb
		a.labelHere = lb
		return nil
	}

	a.labelHere = lb

	if lb.pass == a.pass && c != '-' {
		if lb.kind != kindValue {
			return errLabelDefined
		}
		return nil // reassigned below by '='
	}

	lb.pass = a.pass
	if lb.posdef {
		pcv := a.pc()
		if lb.value != pcv && c != '-' {
			a.needAnotherPass = true
			if a.lastChance {
				return errBadAddr
			}
		}
		lb.value = pcv
		lb.pinned = pcv >= 0
		if a.lastChance && pcv < 0 {
			return errBadAddr
		}
	}
	return nil
}

// A Symbol is one user-defined label in the final symbol table.
type Symbol struct {
	Name  string
	Value int
	Kind  string
}
