package msgqueue

import "testing"

func TestFlushOnEmptyQueueRemovesNothing(t *testing.T) {
	q := New()
	if got := q.Flush(0); got != 0 {
		t.Fatalf("Flush on empty queue = %d, want 0", got)
	}
	if got := q.Flush(10); got != 0 {
		t.Fatalf("Flush on empty queue = %d, want 0", got)
	}
}

func TestFlushRemovesUpToAndIncludingOffset(t *testing.T) {
	q := New()
	q.Send([]byte("a"))

	if got := q.Flush(0); got != 1 {
		t.Fatalf("Flush(0) after sending one message = %d, want 1", got)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue to be empty after flush, got len %d", q.Len())
	}

	q.Send([]byte("b"))
	if got := q.Flush(0); got != 0 {
		t.Fatalf("Flush(0) should not remove message with ID 1, got %d", got)
	}
	if got := q.Flush(1); got != 1 {
		t.Fatalf("Flush(1) should remove message with ID 1, got %d", got)
	}
}

func TestEntriesReportLogicalIDsAcrossFlushes(t *testing.T) {
	q := New()
	q.Send([]byte("a"))
	q.Send([]byte("b"))
	q.Flush(0)
	q.Send([]byte("c"))

	entries := q.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries remaining, got %d", len(entries))
	}
	if entries[0].ID != 1 || string(entries[0].Msg) != "b" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].ID != 2 || string(entries[1].Msg) != "c" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}
