package queue

import (
	"math/rand"

	"groovebox/internal/music/sources"
)

// HistoryLimit caps how many finished songs are remembered.
const HistoryLimit = 10

// Queue holds the pending songs for one playback session, the song that is
// currently being played, and a bounded history of what came before it.
// A Queue is not safe for concurrent use; the owning session serializes
// access to it.
type Queue struct {
	pending []sources.Song
	current *sources.Song
	history []sources.Song // most recently replaced first
}

func New() *Queue {
	return &Queue{}
}

// Enqueue appends songs to the tail of the pending list.
func (q *Queue) Enqueue(songs ...sources.Song) {
	q.pending = append(q.pending, songs...)
}

// DequeueNext promotes the head of the pending list to current and returns
// it. The previous current song, if any, moves to the front of the history;
// the oldest history entry is evicted past HistoryLimit. With an empty
// pending list it returns false and leaves current untouched.
func (q *Queue) DequeueNext() (sources.Song, bool) {
	if len(q.pending) == 0 {
		return sources.Song{}, false
	}
	if q.current != nil {
		q.history = append([]sources.Song{*q.current}, q.history...)
		if len(q.history) > HistoryLimit {
			q.history = q.history[:HistoryLimit]
		}
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	q.current = &next
	return next, true
}

// FinishCurrent retires the current song into the history. Called when its
// stream ends, so the last track of a queue is remembered even though no
// DequeueNext follows it.
func (q *Queue) FinishCurrent() {
	if q.current == nil {
		return
	}
	q.history = append([]sources.Song{*q.current}, q.history...)
	if len(q.history) > HistoryLimit {
		q.history = q.history[:HistoryLimit]
	}
	q.current = nil
}

// Current returns the song promoted by the last DequeueNext, if any.
func (q *Queue) Current() (sources.Song, bool) {
	if q.current == nil {
		return sources.Song{}, false
	}
	return *q.current, true
}

// PeekUpcoming returns up to n pending songs without mutating the queue.
func (q *Queue) PeekUpcoming(n int) []sources.Song {
	if n > len(q.pending) {
		n = len(q.pending)
	}
	out := make([]sources.Song, n)
	copy(out, q.pending[:n])
	return out
}

// Clear empties the pending list and unsets current. History is kept.
// The removed pending songs are returned so the caller can release any
// temporary resources they own.
func (q *Queue) Clear() []sources.Song {
	removed := q.pending
	q.pending = nil
	q.current = nil
	return removed
}

// Remove deletes the pending song at index. Out-of-range indices are a
// no-op reported through the second return value.
func (q *Queue) Remove(index int) (sources.Song, bool) {
	if index < 0 || index >= len(q.pending) {
		return sources.Song{}, false
	}
	removed := q.pending[index]
	q.pending = append(q.pending[:index], q.pending[index+1:]...)
	return removed, true
}

// Move relocates the pending song at from to position to. Both indices must
// be in range; otherwise nothing changes and false is returned.
func (q *Queue) Move(from, to int) bool {
	if from < 0 || from >= len(q.pending) || to < 0 || to >= len(q.pending) {
		return false
	}
	song := q.pending[from]
	rest := append(q.pending[:from], q.pending[from+1:]...)
	q.pending = append(rest[:to], append([]sources.Song{song}, rest[to:]...)...)
	return true
}

// Shuffle randomizes the pending order. Current and history are untouched.
func (q *Queue) Shuffle() {
	rand.Shuffle(len(q.pending), func(i, j int) {
		q.pending[i], q.pending[j] = q.pending[j], q.pending[i]
	})
}

// Len reports the number of pending songs.
func (q *Queue) Len() int {
	return len(q.pending)
}

// List returns a copy of the pending songs in order.
func (q *Queue) List() []sources.Song {
	out := make([]sources.Song, len(q.pending))
	copy(out, q.pending)
	return out
}

// History returns a copy of the finished songs, most recent first.
func (q *Queue) History() []sources.Song {
	out := make([]sources.Song, len(q.history))
	copy(out, q.history)
	return out
}
