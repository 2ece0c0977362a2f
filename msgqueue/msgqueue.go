// Package msgqueue implements the outbound message buffer each protocol role
// keeps between rounds: messages are appended with a monotonically
// increasing logical offset and held until the peer has durably
// acknowledged receiving them, so a dropped connection can resume by
// replaying only what was never confirmed.
package msgqueue

// ID is the logical offset of a queued message: the first message ever sent
// has ID 0, the second ID 1, and so on, regardless of how many earlier
// messages have since been flushed.
type ID = uint32

// Queue is an append-only, offset-addressed buffer of outbound messages.
type Queue struct {
	messages [][]byte
	counter  int
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{messages: make([][]byte, 0, 100)}
}

// Send appends msg to the queue, assigning it the next logical ID.
func (q *Queue) Send(msg []byte) {
	q.counter++
	q.messages = append(q.messages, msg)
}

// firstOffset is the logical ID of the oldest message still queued.
func (q *Queue) firstOffset() int {
	return q.counter - len(q.messages)
}

// Flush drops every queued message with an ID at or before
// lastDurablyReceived, returning how many messages were removed.
//
// After Flush returns, every remaining queued message has an ID strictly
// greater than lastDurablyReceived.
func (q *Queue) Flush(lastDurablyReceived ID) int {
	offset := q.firstOffset()
	removed := 0
	for offset <= int(lastDurablyReceived) && len(q.messages) > 0 {
		q.messages = q.messages[1:]
		offset++
		removed++
	}
	return removed
}

// Entry pairs a still-queued message with its logical ID.
type Entry struct {
	Msg []byte
	ID  ID
}

// Entries returns every currently queued message together with its logical
// ID, oldest first.
func (q *Queue) Entries() []Entry {
	first := q.firstOffset()
	out := make([]Entry, len(q.messages))
	for i, m := range q.messages {
		out[i] = Entry{Msg: m, ID: ID(first + i)}
	}
	return out
}

// Len reports how many messages are currently queued.
func (q *Queue) Len() int {
	return len(q.messages)
}
