package logging

import (
	"fmt"
	"testing"
)

func TestRingKeepsNewestLines(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(r, "line %d\n", i)
	}

	tail := r.Tail(0)
	if len(tail) != 3 {
		t.Fatalf("tail length = %d, want 3", len(tail))
	}
	if tail[0] != "line 3" || tail[2] != "line 5" {
		t.Errorf("tail = %v", tail)
	}
}

func TestRingTailBounds(t *testing.T) {
	r := NewRing(10)
	r.Write([]byte("only line\n"))

	if got := r.Tail(5); len(got) != 1 || got[0] != "only line" {
		t.Errorf("tail = %v", got)
	}
	if got := r.Tail(1); len(got) != 1 {
		t.Errorf("tail(1) = %v", got)
	}
}

func TestRingIgnoresEmptyWrites(t *testing.T) {
	r := NewRing(10)
	r.Write([]byte("\n"))
	if got := r.Tail(0); len(got) != 0 {
		t.Errorf("tail = %v, want empty", got)
	}
}
