package history

// Direction marks which side of a transfer an entry records.
type Direction string

const (
	DirectionSend    Direction = "SEND"
	DirectionReceive Direction = "RECEIVE"
)

// Entry is one mirrored transfer in an identity's history. Entries are
// immutable once appended.
type Entry struct {
	Direction         Direction `json:"direction"`
	CounterpartyName  string    `json:"counterpartyName"`
	CounterpartyAlias string    `json:"counterpartyAlias"`
	TxID              uint64    `json:"txId"`
	Timestamp         uint64    `json:"timestamp"`
	Amount            uint64    `json:"amount"`
	Note              *string   `json:"note,omitempty"`
}

// InitialWindow is the maximum number of entries returned by ReadInitial.
const InitialWindow = 50

// Log is an append-only transaction history, chronological by append order.
type Log struct {
	Entries []Entry `json:"entries"`
}

// Append adds an entry to the log.
func (l *Log) Append(e Entry) {
	l.Entries = append(l.Entries, e)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// ReadInitial returns at most the newest InitialWindow entries, newest first.
func (l *Log) ReadInitial() []Entry {
	if l == nil {
		return nil
	}
	start := 0
	if len(l.Entries) > InitialWindow {
		start = len(l.Entries) - InitialWindow
	}
	return reversed(l.Entries[start:])
}

// ReadAll returns the whole log, newest first.
func (l *Log) ReadAll() []Entry {
	if l == nil {
		return nil
	}
	return reversed(l.Entries)
}

// ReadNew returns the entries appended after index knownLen, newest first.
// A knownLen at or past the end yields an empty result.
func (l *Log) ReadNew(knownLen int) []Entry {
	if l == nil || knownLen < 0 || knownLen >= len(l.Entries) {
		return nil
	}
	return reversed(l.Entries[knownLen:])
}

func reversed(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

// WindowNewestFirst applies the ReadInitial windowing to a standalone
// entry slice, for transaction lists not kept in a Log.
func WindowNewestFirst(entries []Entry, limit int) []Entry {
	start := 0
	if limit > 0 && len(entries) > limit {
		start = len(entries) - limit
	}
	return reversed(entries[start:])
}

// NewSince applies the ReadNew semantics to a standalone entry slice.
func NewSince(entries []Entry, knownLen int) []Entry {
	if knownLen < 0 || knownLen >= len(entries) {
		return nil
	}
	return reversed(entries[knownLen:])
}
