package seed

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoSnapshot is returned when replay is requested for an iteration
// that never had its state captured.
var ErrNoSnapshot = errors.New("seed: no snapshot captured for iteration")

// Book is an indexed collection of seed snapshots, one slot per iteration.
//
// Capture must be called at a stable, reproducible point: after any draws
// in the iteration that are not meant to be replayed, and immediately
// before the draw whose failure is of interest. Snapshots are kept until
// the book is discarded.
type Book struct {
	stream *Stream
	slots  map[int]Snapshot
}

// NewBook creates an empty snapshot book bound to a stream.
func NewBook(stream *Stream) *Book {
	return &Book{
		stream: stream,
		slots:  make(map[int]Snapshot),
	}
}

// Capture reads the bound stream's current state and stores an opaque
// copy at slot index. A later Capture for the same index overwrites the
// earlier snapshot.
func (b *Book) Capture(index int) error {
	snap, err := b.stream.Snapshot()
	if err != nil {
		return fmt.Errorf("capture slot %d: %w", index, err)
	}
	b.slots[index] = snap
	return nil
}

// Replay restores the bound stream's state from slot index, as a pure
// side effect. The caller must then reissue the same sequence of draws to
// reproduce the values originally produced at that iteration.
func (b *Book) Replay(index int) error {
	snap, ok := b.slots[index]
	if !ok {
		return fmt.Errorf("replay slot %d: %w", index, ErrNoSnapshot)
	}
	if err := b.stream.Restore(snap); err != nil {
		return fmt.Errorf("replay slot %d: %w", index, err)
	}
	return nil
}

// Snapshot returns the raw snapshot stored at slot index, if any.
func (b *Book) Snapshot(index int) (Snapshot, bool) {
	snap, ok := b.slots[index]
	return snap, ok
}

// Load stores an externally obtained snapshot (e.g. read back from a
// journal) at slot index.
func (b *Book) Load(index int, snap Snapshot) {
	stored := make(Snapshot, len(snap))
	copy(stored, snap)
	b.slots[index] = stored
}

// Indexes returns the captured slot indexes in ascending order.
func (b *Book) Indexes() []int {
	out := make([]int, 0, len(b.slots))
	for i := range b.slots {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of captured snapshots.
func (b *Book) Len() int {
	return len(b.slots)
}
