package game

import (
	"fmt"
	"slices"
	"testing"
)

func TestKernelLogBeforeWrap(t *testing.T) {
	k := newKernelLog(3)
	if got := k.snapshot(); len(got) != 0 {
		t.Fatalf("expected empty log, got %v", got)
	}
	k.add("a")
	k.add("b")
	if got := k.snapshot(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("unexpected lines: %v", got)
	}
	if k.len() != 2 {
		t.Errorf("expected len 2, got %d", k.len())
	}
}

func TestKernelLogOverwritesOldest(t *testing.T) {
	k := newKernelLog(3)
	for i := 1; i <= 7; i++ {
		k.add(fmt.Sprintf("line%d", i))
	}
	want := []string{"line5", "line6", "line7"}
	if got := k.snapshot(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if k.len() != 3 {
		t.Errorf("expected len 3, got %d", k.len())
	}
}

func TestKernelLogSnapshotIsCopy(t *testing.T) {
	k := newKernelLog(2)
	k.add("x")
	snap := k.snapshot()
	snap[0] = "mutated"
	if k.snapshot()[0] != "x" {
		t.Error("snapshot must not alias the ring")
	}
}
