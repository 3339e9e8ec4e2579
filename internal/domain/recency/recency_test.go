package recency

import "testing"

func TestInsertKeepsOrder(t *testing.T) {
	var ix Index
	ix.Insert(Key{LastActivity: 30, TargetID: "c"})
	ix.Insert(Key{LastActivity: 10, TargetID: "a"})
	ix.Insert(Key{LastActivity: 20, TargetID: "b"})

	got := ix.NewestFirst(0)
	want := []string{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInsertDuplicateIgnored(t *testing.T) {
	var ix Index
	k := Key{LastActivity: 10, TargetID: "a"}
	ix.Insert(k)
	ix.Insert(k)
	if ix.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", ix.Len())
	}
}

func TestEqualActivityOrdersByTarget(t *testing.T) {
	var ix Index
	ix.Insert(Key{LastActivity: 10, TargetID: "b"})
	ix.Insert(Key{LastActivity: 10, TargetID: "a"})

	got := ix.NewestFirst(0)
	if got[0] != "b" || got[1] != "a" {
		t.Fatalf("expected [b a], got %v", got)
	}
}

func TestRemove(t *testing.T) {
	var ix Index
	ix.Insert(Key{LastActivity: 10, TargetID: "a"})
	if !ix.Remove(Key{LastActivity: 10, TargetID: "a"}) {
		t.Fatalf("expected remove to find the key")
	}
	if ix.Remove(Key{LastActivity: 10, TargetID: "a"}) {
		t.Fatalf("expected second remove to miss")
	}
	if ix.Len() != 0 {
		t.Fatalf("expected empty index, got %d keys", ix.Len())
	}
}

func TestRepositionMovesKey(t *testing.T) {
	var ix Index
	ix.Insert(Key{LastActivity: 10, TargetID: "a"})
	ix.Insert(Key{LastActivity: 20, TargetID: "b"})

	ix.Reposition("a", 10, 30)

	got := ix.NewestFirst(0)
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
	if ix.Contains(Key{LastActivity: 10, TargetID: "a"}) {
		t.Fatalf("old key should be gone")
	}
}

func TestRepositionWithoutOldKeyInserts(t *testing.T) {
	var ix Index
	ix.Reposition("a", 5, 10)
	if !ix.Contains(Key{LastActivity: 10, TargetID: "a"}) {
		t.Fatalf("expected key to be inserted")
	}
}

func TestNewestFirstLimit(t *testing.T) {
	var ix Index
	for i := uint64(1); i <= 5; i++ {
		ix.Insert(Key{LastActivity: i * 10, TargetID: string(rune('a' + i - 1))})
	}
	got := ix.NewestFirst(2)
	if len(got) != 2 || got[0] != "e" || got[1] != "d" {
		t.Fatalf("expected [e d], got %v", got)
	}
	if n := len(ix.NewestFirst(100)); n != 5 {
		t.Fatalf("expected limit clamp to 5, got %d", n)
	}
}
