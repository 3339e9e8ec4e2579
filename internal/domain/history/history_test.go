package history

import "testing"

func logOf(n int) *Log {
	l := &Log{}
	for i := 0; i < n; i++ {
		l.Append(Entry{TxID: uint64(i), Amount: uint64(i) * 10})
	}
	return l
}

func TestReadInitialWindowsNewestFirst(t *testing.T) {
	l := logOf(120)
	got := l.ReadInitial()
	if len(got) != InitialWindow {
		t.Fatalf("expected %d entries, got %d", InitialWindow, len(got))
	}
	if got[0].TxID != 119 {
		t.Fatalf("expected newest entry first, got tx %d", got[0].TxID)
	}
	if got[len(got)-1].TxID != 70 {
		t.Fatalf("expected window to end at tx 70, got %d", got[len(got)-1].TxID)
	}
}

func TestReadInitialShortLog(t *testing.T) {
	l := logOf(3)
	got := l.ReadInitial()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].TxID != 2 || got[2].TxID != 0 {
		t.Fatalf("expected newest-first order, got %v", got)
	}
}

func TestReadAll(t *testing.T) {
	l := logOf(120)
	got := l.ReadAll()
	if len(got) != 120 {
		t.Fatalf("expected 120 entries, got %d", len(got))
	}
	if got[0].TxID != 119 || got[119].TxID != 0 {
		t.Fatalf("expected newest-first order")
	}
}

func TestReadNew(t *testing.T) {
	l := logOf(10)
	got := l.ReadNew(7)
	if len(got) != 3 {
		t.Fatalf("expected 3 new entries, got %d", len(got))
	}
	if got[0].TxID != 9 || got[2].TxID != 7 {
		t.Fatalf("expected entries 9..7, got %v", got)
	}
}

func TestReadNewClamped(t *testing.T) {
	l := logOf(10)
	if got := l.ReadNew(10); len(got) != 0 {
		t.Fatalf("known length at end should yield nothing, got %d", len(got))
	}
	if got := l.ReadNew(50); len(got) != 0 {
		t.Fatalf("known length past end should yield nothing, got %d", len(got))
	}
	if got := l.ReadNew(-1); len(got) != 0 {
		t.Fatalf("negative known length should yield nothing, got %d", len(got))
	}
}

func TestNilLogReads(t *testing.T) {
	var l *Log
	if l.Len() != 0 {
		t.Fatalf("nil log should have length 0")
	}
	if got := l.ReadInitial(); got != nil {
		t.Fatalf("nil log should read empty")
	}
	if got := l.ReadNew(0); got != nil {
		t.Fatalf("nil log should have nothing new")
	}
}

func TestWindowNewestFirst(t *testing.T) {
	entries := logOf(6).Entries
	got := WindowNewestFirst(entries, 4)
	if len(got) != 4 || got[0].TxID != 5 || got[3].TxID != 2 {
		t.Fatalf("expected entries 5..2, got %v", got)
	}
	all := WindowNewestFirst(entries, 0)
	if len(all) != 6 || all[0].TxID != 5 {
		t.Fatalf("zero limit should return everything newest first")
	}
}

func TestNewSince(t *testing.T) {
	entries := logOf(5).Entries
	got := NewSince(entries, 3)
	if len(got) != 2 || got[0].TxID != 4 || got[1].TxID != 3 {
		t.Fatalf("expected entries 4..3, got %v", got)
	}
	if got := NewSince(entries, 5); len(got) != 0 {
		t.Fatalf("known length at end should yield nothing")
	}
}
