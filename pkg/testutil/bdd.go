package testutil

import "testing"

// Scenario steps for HTTP walkthroughs. Each step is a named subtest, so a
// failing step shows up as "Given alice is registered/When ..." in go test output.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

// And continues the previous step kind.
func And(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "And", desc, fn)
}

// step stops the scenario at the first failed step; later steps depend on
// state the failed one was meant to create.
func step(t *testing.T, kind, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(kind+" "+desc, fn) {
		t.FailNow()
	}
}
