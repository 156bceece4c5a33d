// Package study holds the in-memory study session: a randomized working
// set of words with a cursor, fed by the store's queue sampling.
package study

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/store"
)

// State describes the queue lifecycle.
type State int

const (
	// Idle means no queue has been loaded yet.
	Idle State = iota
	// Loaded means the queue holds at least one item.
	Loaded
	// Exhausted means the last item was mastered; a new Load is needed.
	Exhausted
)

// Queue is a randomized subset of words with a cursor. Mastering removes
// the current item from the queue only; the underlying word row stays.
type Queue struct {
	store *store.Store
	now   func() time.Time

	items  []store.QueueItem
	cursor int
	state  State
}

// New creates an idle queue over the given store.
func New(st *store.Store) *Queue {
	return &Queue{store: st, now: time.Now}
}

// Load draws a fresh random sample for the filter and resets the cursor.
func (q *Queue) Load(ctx context.Context, f store.Filter) error {
	items, err := q.store.SampleQueue(ctx, f)
	if err != nil {
		return err
	}
	q.items = items
	q.cursor = 0
	if len(items) == 0 {
		q.state = Exhausted
	} else {
		q.state = Loaded
	}
	return nil
}

// Current returns the item under the cursor.
func (q *Queue) Current() (store.QueueItem, bool) {
	if q.cursor >= len(q.items) {
		return store.QueueItem{}, false
	}
	return q.items[q.cursor], true
}

// Advance moves the cursor forward. At the last item it is a no-op; there
// is no wraparound.
func (q *Queue) Advance() {
	if q.cursor < len(q.items)-1 {
		q.cursor++
	}
}

// MasterCurrent records a mastery for today and removes the current item
// from the queue. When only the write-through failed the session still
// advances: the mastery is applied in memory and the error reports the
// durability gap.
func (q *Queue) MasterCurrent(ctx context.Context) error {
	if _, ok := q.Current(); !ok {
		return nil
	}
	err := q.store.RecordMastery(ctx, q.now().Format("2006-01-02"))
	if err != nil && !errors.Is(err, apperr.ErrPersist) {
		return err
	}

	q.items = append(q.items[:q.cursor], q.items[q.cursor+1:]...)
	if q.cursor > len(q.items)-1 {
		q.cursor = len(q.items) - 1
	}
	if q.cursor < 0 {
		q.cursor = 0
	}
	if len(q.items) == 0 {
		q.state = Exhausted
	}
	return err
}

// ProgressPercent reports cursor position as a percentage, clamped to
// [0,100] and defined as 0 for an empty queue.
func (q *Queue) ProgressPercent() int {
	if len(q.items) == 0 {
		return 0
	}
	p := int(math.Round(float64(q.cursor) / float64(len(q.items)) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Len returns the number of items remaining in the queue.
func (q *Queue) Len() int { return len(q.items) }

// State returns the queue lifecycle state.
func (q *Queue) State() State { return q.state }
