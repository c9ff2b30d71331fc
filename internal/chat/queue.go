package chat

import "time"

// WaitingEntry is one connection seeking a partner.
type WaitingEntry struct {
	Profile    *Profile
	EnqueuedAt time.Time
}

// WaitingQueue is the ordered set of connections seeking a partner. Entries
// keep insertion order (oldest first) and a connection id never appears more
// than once. The queue is not synchronized; the Hub serializes access.
type WaitingQueue struct {
	entries []*WaitingEntry
	ids     map[string]struct{}
}

// NewWaitingQueue creates an empty queue.
func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{ids: make(map[string]struct{})}
}

// Enqueue appends a waiting entry for the given profile. A duplicate id is a
// no-op so the single-entry-per-connection invariant holds; it reports
// whether the entry was added.
func (q *WaitingQueue) Enqueue(p *Profile) bool {
	if _, ok := q.ids[p.ID]; ok {
		return false
	}

	q.entries = append(q.entries, &WaitingEntry{
		Profile:    p,
		EnqueuedAt: time.Now(),
	})
	q.ids[p.ID] = struct{}{}
	return true
}

// DequeueMatchExcluding removes and returns the earliest entry whose id is
// not the given one, or nil if no such entry exists. Skipping the requester's
// own id means a self-match is impossible even if it were somehow enqueued.
func (q *WaitingQueue) DequeueMatchExcluding(id string) *WaitingEntry {
	for i, e := range q.entries {
		if e.Profile.ID == id {
			continue
		}

		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		delete(q.ids, e.Profile.ID)
		return e
	}
	return nil
}

// Remove deletes the entry for a connection id, reporting whether one was
// present. Idempotent.
func (q *WaitingQueue) Remove(id string) bool {
	if _, ok := q.ids[id]; !ok {
		return false
	}

	for i, e := range q.entries {
		if e.Profile.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	delete(q.ids, id)
	return true
}

// Contains reports whether a connection id is waiting.
func (q *WaitingQueue) Contains(id string) bool {
	_, ok := q.ids[id]
	return ok
}

// Len returns the number of waiting entries.
func (q *WaitingQueue) Len() int {
	return len(q.entries)
}
