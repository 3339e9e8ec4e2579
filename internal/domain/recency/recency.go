package recency

import "sort"

// Key orders an owned record by the time of its latest activity. Keys with
// equal activity fall back to the target id so the ordering is total.
type Key struct {
	LastActivity uint64 `json:"lastActivity"`
	TargetID     string `json:"targetId"`
}

func (k Key) less(other Key) bool {
	if k.LastActivity != other.LastActivity {
		return k.LastActivity < other.LastActivity
	}
	return k.TargetID < other.TargetID
}

// Index is an ordered set of (last_activity, target_id) pairs, ascending.
// The pair held for a target must always match the target's current
// last_activity; moving a target to a new activity time goes through
// Reposition so the remove and insert happen as one step.
type Index []Key

// Insert adds a key, keeping the index sorted. Duplicate keys are ignored.
func (ix *Index) Insert(k Key) {
	s := *ix
	i := sort.Search(len(s), func(i int) bool { return !s[i].less(k) })
	if i < len(s) && s[i] == k {
		return
	}
	s = append(s, Key{})
	copy(s[i+1:], s[i:])
	s[i] = k
	*ix = s
}

// Remove deletes a key if present and reports whether it was found.
func (ix *Index) Remove(k Key) bool {
	s := *ix
	i := sort.Search(len(s), func(i int) bool { return !s[i].less(k) })
	if i >= len(s) || s[i] != k {
		return false
	}
	copy(s[i:], s[i+1:])
	*ix = s[:len(s)-1]
	return true
}

// Reposition moves targetID from its old activity key to a new one.
func (ix *Index) Reposition(targetID string, oldActivity, newActivity uint64) {
	ix.Remove(Key{LastActivity: oldActivity, TargetID: targetID})
	ix.Insert(Key{LastActivity: newActivity, TargetID: targetID})
}

// Contains reports whether the exact key is present.
func (ix Index) Contains(k Key) bool {
	i := sort.Search(len(ix), func(i int) bool { return !ix[i].less(k) })
	return i < len(ix) && ix[i] == k
}

// Len returns the number of keys.
func (ix Index) Len() int { return len(ix) }

// NewestFirst returns up to limit target ids, most recent activity first.
// A limit <= 0 returns everything.
func (ix Index) NewestFirst(limit int) []string {
	n := len(ix)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]string, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, ix[i].TargetID)
	}
	return out
}
