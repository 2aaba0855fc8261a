package testutil

import (
	"os"
	"testing"
)

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "fixture.txt", "hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("contents = %q, want %q", data, "hello")
	}
}

func TestRamp(t *testing.T) {
	got := Ramp(1.0, 0.5, 4)
	want := []float64{1.0, 1.5, 2.0, 2.5}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ramp[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}
