package relay

import (
	"fmt"
	"testing"
)

func TestDedupeObserve(t *testing.T) {
	w := newDedupeWindow(4)

	if !w.Observe("ev-1") {
		t.Error("first observation should be new")
	}
	if w.Observe("ev-1") {
		t.Error("second observation should be a duplicate")
	}
	if !w.Observe("ev-2") {
		t.Error("different id should be new")
	}
}

func TestDedupeWindowEviction(t *testing.T) {
	w := newDedupeWindow(3)

	w.Observe("ev-1")
	w.Observe("ev-2")
	w.Observe("ev-3")
	w.Observe("ev-4") // evicts ev-1

	if !w.Observe("ev-1") {
		t.Error("evicted id should read as new again")
	}
	if w.Observe("ev-4") {
		t.Error("recent id should still be a duplicate")
	}
}

func TestDedupeManyIDs(t *testing.T) {
	w := newDedupeWindow(64)

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("ev-%d", i)
		if !w.Observe(id) {
			t.Fatalf("id %s reported duplicate on first sight", id)
		}
	}
	// Only the newest 64 are remembered.
	if w.Observe("ev-999") {
		t.Error("newest id should be remembered")
	}
	if !w.Observe("ev-0") {
		t.Error("oldest id should have been forgotten")
	}
}
