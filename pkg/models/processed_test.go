package models

import "testing"

func TestProcessedSetMark(t *testing.T) {
	set := NewProcessedSet()
	if !set.Mark(42) {
		t.Error("first mark should report new")
	}
	if set.Mark(42) {
		t.Error("second mark should report already present")
	}
	if !set.Contains(42) || set.Contains(43) {
		t.Error("membership wrong")
	}
	if set.Count() != 1 {
		t.Errorf("count = %d, want 1", set.Count())
	}
}

func TestProcessedSetSerializeRoundTrip(t *testing.T) {
	set := NewProcessedSet()
	for _, id := range []int64{1, 5, 999} {
		set.Mark(id)
	}

	data, err := set.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	restored, err := DeserializeProcessedSet(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	for _, id := range []int64{1, 5, 999} {
		if !restored.Contains(id) {
			t.Errorf("id %d lost in round trip", id)
		}
	}
	if restored.Count() != 3 {
		t.Errorf("count = %d, want 3", restored.Count())
	}
}

func TestDeserializeEmpty(t *testing.T) {
	set, err := DeserializeProcessedSet(nil)
	if err != nil {
		t.Fatalf("deserialize nil: %v", err)
	}
	if set.Count() != 0 {
		t.Errorf("count = %d, want 0", set.Count())
	}
}
