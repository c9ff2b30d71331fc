package chat

import "testing"

func profile(id string) *Profile {
	return &Profile{ID: id, Nickname: id}
}

func TestQueueEnqueueDeduplicates(t *testing.T) {
	q := NewWaitingQueue()

	if !q.Enqueue(profile("a")) {
		t.Error("first Enqueue(a) = false, want true")
	}
	if q.Enqueue(profile("a")) {
		t.Error("second Enqueue(a) = true, want false")
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestQueueDequeueMatchExcluding(t *testing.T) {
	q := NewWaitingQueue()
	q.Enqueue(profile("a"))
	q.Enqueue(profile("b"))
	q.Enqueue(profile("c"))

	// The earliest entry that isn't the requester wins.
	e := q.DequeueMatchExcluding("a")
	if e == nil || e.Profile.ID != "b" {
		t.Fatalf("DequeueMatchExcluding(a) = %v, want b", e)
	}
	if q.Contains("b") {
		t.Error("b still in queue after dequeue")
	}

	e = q.DequeueMatchExcluding("x")
	if e == nil || e.Profile.ID != "a" {
		t.Fatalf("DequeueMatchExcluding(x) = %v, want a (oldest)", e)
	}

	// Only c left; c cannot match itself.
	if e := q.DequeueMatchExcluding("c"); e != nil {
		t.Errorf("DequeueMatchExcluding(c) = %v, want nil", e)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestQueueDequeueEmpty(t *testing.T) {
	q := NewWaitingQueue()
	if e := q.DequeueMatchExcluding("a"); e != nil {
		t.Errorf("DequeueMatchExcluding on empty queue = %v, want nil", e)
	}
}

func TestQueueRemoveIdempotent(t *testing.T) {
	q := NewWaitingQueue()
	q.Enqueue(profile("a"))

	if !q.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if q.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	if q.Remove("never-enqueued") {
		t.Error("Remove(never-enqueued) = true, want false")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueuePreservesOrder(t *testing.T) {
	q := NewWaitingQueue()
	q.Enqueue(profile("a"))
	q.Enqueue(profile("b"))
	q.Enqueue(profile("c"))
	q.Remove("b")

	if e := q.DequeueMatchExcluding(""); e.Profile.ID != "a" {
		t.Errorf("first = %q, want a", e.Profile.ID)
	}
	if e := q.DequeueMatchExcluding(""); e.Profile.ID != "c" {
		t.Errorf("second = %q, want c", e.Profile.ID)
	}
}
