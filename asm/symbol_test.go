// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"testing"
)

func TestConsumeLabelWord(t *testing.T) {
	tests := []struct {
		line string
		word string
		rest string
		err  error
	}{
		{"foo: DB 1", "foo", ": DB 1", nil},
		{"  foo", "foo", "", nil},
		{"@loop", "@loop", "", nil},
		{"+", "+", "", nil},
		{"--", "--", "", nil},
		{"+foo", "+foo", "", nil},
		{"-loop RTS", "-loop", " RTS", nil},
		{"$", "$", "", nil},
		{"$ = 5", "$", " = 5", nil},
		{"-5", "", "", errIllegal},
		{"123", "", "", errIllegal},
	}
	for _, tc := range tests {
		word, rest, err := consumeLabelWord(newFstring(1, tc.line))
		if !errors.Is(err, tc.err) {
			t.Errorf("consumeLabelWord(%q): err %v, want %v", tc.line, err, tc.err)
			continue
		}
		if err != nil {
			continue
		}
		if word != tc.word {
			t.Errorf("consumeLabelWord(%q) = %q, want %q", tc.line, word, tc.word)
		}
		if rest.str != tc.rest {
			t.Errorf("consumeLabelWord(%q) rest = %q, want %q", tc.line, rest.str, tc.rest)
		}
	}
}

func TestSymtabScopes(t *testing.T) {
	tab := newSymtab()
	global := &label{name: "x", kind: kindLabel, value: 1}
	local := &label{name: "x", kind: kindLabel, value: 2, scope: 3}
	tab.push(global)
	tab.push(local)

	if lb := tab.find("x", 3, 1); lb != local {
		t.Error("local scope should shadow the global")
	}
	if lb := tab.find("x", 4, 1); lb != global {
		t.Error("other scopes should see the global")
	}
}

// Forward '+' lookups skip labels already defined in the current pass
// and claim the remaining entries oldest-first, which is source order.
func TestSymtabForward(t *testing.T) {
	tab := newSymtab()
	first := &label{name: "+", kind: kindLabel, value: 0x10, pass: 1}
	second := &label{name: "+", kind: kindLabel, value: 0x20, pass: 1}
	tab.push(first)
	tab.push(second) // newest first: [second, first]

	if lb := tab.find("+", 5, 2); lb != first {
		t.Error("forward lookup should return the oldest unclaimed entry")
	}
	first.pass = 2 // claim it
	if lb := tab.find("+", 5, 2); lb != second {
		t.Error("forward lookup should skip entries claimed this pass")
	}
	second.pass = 2
	if lb := tab.find("+", 5, 2); lb != nil {
		t.Error("all entries claimed; lookup should fail")
	}
}

// A new global label opens a fresh scope; '@' labels join the current
// one; relative '-' labels are redefined in place.
func TestAddLabelScoping(t *testing.T) {
	a := New("t", nil, Options{Quiet: true})
	a.pass = 1
	a.scope = 1
	a.nextScope = 2
	a.setPC(0x100)

	if err := a.addLabel("glob", false); err != nil {
		t.Fatal(err)
	}
	if a.scope != 2 {
		t.Errorf("scope = %d, want 2", a.scope)
	}
	if a.labelHere.scope != 0 {
		t.Error("global label should live in scope 0")
	}

	if err := a.addLabel("@loc", false); err != nil {
		t.Fatal(err)
	}
	if a.labelHere.scope != 2 {
		t.Errorf("local label scope = %d, want 2", a.labelHere.scope)
	}
	if a.scope != 2 {
		t.Error("'@' label must not open a new scope")
	}

	a.setPC(0x110)
	if err := a.addLabel("-", false); err != nil {
		t.Fatal(err)
	}
	minus := a.labelHere
	a.setPC(0x120)
	if err := a.addLabel("-", false); err != nil {
		t.Fatal(err)
	}
	if a.labelHere != minus {
		t.Error("'-' must be redefined in place")
	}
	if minus.value != 0x120 {
		t.Errorf("'-' value = $%X, want $120", minus.value)
	}
	if a.needAnotherPass {
		t.Error("'-' redefinition must not schedule another pass")
	}
}

func TestAddLabelRedefinition(t *testing.T) {
	a := New("t", nil, Options{Quiet: true})
	a.pass = 1
	a.scope, a.nextScope = 1, 2
	a.setPC(0x100)

	if err := a.addLabel("dup", false); err != nil {
		t.Fatal(err)
	}
	if err := a.addLabel("dup", false); !errors.Is(err, errLabelDefined) {
		t.Errorf("expected %v, got %v", errLabelDefined, err)
	}

	// across passes, a moved address schedules another pass
	a.pass = 2
	a.setPC(0x105)
	if err := a.addLabel("dup", false); err != nil {
		t.Fatal(err)
	}
	if !a.needAnotherPass {
		t.Error("moved label should schedule another pass")
	}

	// and under lastChance it is fatal
	a.pass = 3
	a.lastChance = true
	a.setPC(0x10A)
	if err := a.addLabel("dup", false); !errors.Is(err, errBadAddr) {
		t.Errorf("expected %v, got %v", errBadAddr, err)
	}
}
