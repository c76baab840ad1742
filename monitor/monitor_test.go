// Copyright 2026 The asm8 authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package monitor

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func runScript(t *testing.T, script string) string {
	t.Helper()
	m := New()
	var out bytes.Buffer
	m.RunCommands(strings.NewReader(script), &out, false)
	return out.String()
}

func TestHelpAndQuit(t *testing.T) {
	out := runScript(t, "help\nquit\n")
	if !strings.Contains(out, "Monitor commands:") {
		t.Errorf("help output missing, got %q", out)
	}
}

func TestEvalCommand(t *testing.T) {
	out := runScript(t, "eval 2+2*10\nquit\n")
	if !strings.Contains(out, "$0016 (22)") {
		t.Errorf("eval output wrong, got %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	out := runScript(t, "frobnicate\nquit\n")
	if !strings.Contains(out, "Command not found.") {
		t.Errorf("expected not-found message, got %q", out)
	}
}

func TestSettingsPrefixLookup(t *testing.T) {
	s := newSettings()

	if k := s.Kind("memdumpbytes"); k != reflect.Int {
		t.Errorf("Kind(memdumpbytes) = %v, want int", k)
	}
	if k := s.Kind("mem"); k != reflect.Int {
		t.Errorf("Kind(mem) = %v, want int (unique prefix)", k)
	}
	if k := s.Kind("m"); k != reflect.Invalid {
		t.Errorf("Kind(m) = %v, want invalid (ambiguous)", k)
	}
	if k := s.Kind("quiet"); k != reflect.Bool {
		t.Errorf("Kind(quiet) = %v, want bool", k)
	}

	if err := s.Set("quiet", true); err != nil {
		t.Fatal(err)
	}
	if !s.Quiet {
		t.Error("Set(quiet) did not update the field")
	}
	if err := s.Set("memd", 128); err != nil {
		t.Fatal(err)
	}
	if s.MemDumpBytes != 128 {
		t.Error("Set(memd) did not update MemDumpBytes")
	}
	if err := s.Set("nope", 1); err == nil {
		t.Error("Set(nope) should fail")
	}
}

func TestSetCommand(t *testing.T) {
	out := runScript(t, "set quiet true\nquit\n")
	if !strings.Contains(out, "Setting updated.") {
		t.Errorf("expected update confirmation, got %q", out)
	}
}
