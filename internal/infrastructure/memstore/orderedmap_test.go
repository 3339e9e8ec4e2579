package memstore

import "testing"

func TestInsertReturnsPrevious(t *testing.T) {
	m := NewOrderedMap[string, int]()
	prev, had := m.Insert("a", 1)
	if had || prev != 0 {
		t.Fatalf("fresh insert should report no previous value")
	}
	prev, had = m.Insert("a", 2)
	if !had || prev != 1 {
		t.Fatalf("expected previous value 1, got %d (had=%v)", prev, had)
	}
	if v, _ := m.Get("a"); v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestRangeAscending(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Insert("c", 3)
	m.Insert("a", 1)
	m.Insert("b", 2)

	var keys []string
	m.Range(func(k string, _ int) bool {
		keys = append(keys, k)
		return true
	})
	want := []string{"a", "b", "c"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestRemove(t *testing.T) {
	m := NewOrderedMap[uint64, string]()
	m.Insert(7, "x")
	if v, ok := m.Remove(7); !ok || v != "x" {
		t.Fatalf("expected remove to return the value, got %q (ok=%v)", v, ok)
	}
	if _, ok := m.Remove(7); ok {
		t.Fatalf("expected second remove to miss")
	}
	if m.Len() != 0 || m.Contains(7) {
		t.Fatalf("expected empty map")
	}
}

func TestGetMissing(t *testing.T) {
	m := NewOrderedMap[string, *int]()
	if v, ok := m.Get("missing"); ok || v != nil {
		t.Fatalf("expected zero value for missing key")
	}
}
