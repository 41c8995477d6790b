package gp

import (
	"testing"
)

func TestSequenceSetAdd(t *testing.T) {
	s := NewSequenceSet()
	if err := s.Add("A", []float64{1}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := s.Add("A", []float64{2}); err == nil {
		t.Error("Add of a duplicate identifier expected error, got nil")
	}
	if err := s.Add("", []float64{1}); err == nil {
		t.Error("Add of an empty identifier expected error, got nil")
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestSequenceSetOrderAndLookup(t *testing.T) {
	s := NewSequenceSet()
	ids := []string{"C", "A", "B"}
	for i, id := range ids {
		if err := s.Add(id, i); err != nil {
			t.Fatalf("Add(%q) error: %v", id, err)
		}
	}
	got := s.IDs()
	for i, id := range ids {
		if got[i] != id {
			t.Errorf("IDs()[%d] = %q, want %q (insertion order)", i, got[i], id)
		}
	}
	if !s.Has("B") || s.Has("Z") {
		t.Error("Has() lookup mismatch")
	}
	if v, ok := s.Get("A"); !ok || v.(int) != 1 {
		t.Errorf("Get(A) = %v, %v", v, ok)
	}
	if id, v := s.At(0); id != "C" || v.(int) != 0 {
		t.Errorf("At(0) = %q, %v", id, v)
	}
}

func TestSequenceSetSubset(t *testing.T) {
	s := NewSequenceSet()
	for _, id := range []string{"A", "B", "C"} {
		if err := s.Add(id, id); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
	}
	sub, err := s.Subset([]string{"C", "A"})
	if err != nil {
		t.Fatalf("Subset() error: %v", err)
	}
	want := []string{"C", "A"}
	got := sub.IDs()
	if len(got) != len(want) {
		t.Fatalf("Subset() size = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Subset IDs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if _, err := s.Subset([]string{"Z"}); err == nil {
		t.Error("Subset with unknown identifier expected error, got nil")
	}
}

func TestSequenceSetClone(t *testing.T) {
	s := NewSequenceSet()
	if err := s.Add("A", 1); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	c := s.Clone()
	if err := c.Add("B", 2); err != nil {
		t.Fatalf("Add() on clone error: %v", err)
	}
	if s.Has("B") {
		t.Error("mutating a clone leaked into the original")
	}
	if !c.Has("A") {
		t.Error("clone missing original entries")
	}
}
