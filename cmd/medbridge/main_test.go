package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunConfirmedWithoutFlagOnlyArms(t *testing.T) {
	var out bytes.Buffer
	calls := 0

	runConfirmed(&out, false, "revoke access for provider 3", func() { calls++ })

	if calls != 1 {
		t.Fatalf("steps = %d, want 1 (arm only)", calls)
	}
	if !strings.Contains(out.String(), "--confirm") {
		t.Errorf("output %q does not tell the user how to confirm", out.String())
	}
	if !strings.Contains(out.String(), "revoke access for provider 3") {
		t.Errorf("output %q does not name the action", out.String())
	}
}

func TestRunConfirmedWithFlagExecutes(t *testing.T) {
	var out bytes.Buffer
	calls := 0

	runConfirmed(&out, true, "disconnect portal 2", func() { calls++ })

	if calls != 2 {
		t.Fatalf("steps = %d, want 2 (arm then execute)", calls)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q on confirmed run", out.String())
	}
}
