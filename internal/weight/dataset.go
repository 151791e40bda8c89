package weight

import (
	"fmt"
	"slices"
	"time"
)

// Dataset holds entries ordered ascending by date, at most one entry per date.
// It is not safe for concurrent use; Analysis guards it.
type Dataset struct {
	entries []Entry
}

func NewDataset(entries []Entry) (*Dataset, error) {
	sorted := make([]Entry, len(entries))
	for i, e := range entries {
		e.Date = Day(e.Date)
		sorted[i] = e
	}
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return a.Date.Compare(b.Date)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, sorted[i].Date.Format(DateLayout))
		}
	}

	return &Dataset{entries: sorted}, nil
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of all entries, oldest first.
func (d *Dataset) Entries() []Entry {
	if d == nil {
		return nil
	}
	return slices.Clone(d.entries)
}

func (d *Dataset) Contains(date time.Time) bool {
	_, found := d.search(Day(date))
	return found
}

// LastN returns the most recent n entries, newest last.
func (d *Dataset) LastN(n int) []Entry {
	if d == nil || n <= 0 {
		return nil
	}
	if n > len(d.entries) {
		n = len(d.entries)
	}
	return slices.Clone(d.entries[len(d.entries)-n:])
}

func (d *Dataset) First() (Entry, bool) {
	if d.Len() == 0 {
		return Entry{}, false
	}
	return d.entries[0], true
}

func (d *Dataset) Last() (Entry, bool) {
	if d.Len() == 0 {
		return Entry{}, false
	}
	return d.entries[len(d.entries)-1], true
}

func (d *Dataset) search(date time.Time) (int, bool) {
	if d == nil {
		return 0, false
	}
	return slices.BinarySearchFunc(d.entries, date, func(e Entry, t time.Time) int {
		return e.Date.Compare(t)
	})
}

// insert places e in sorted position and returns a func restoring the previous state.
func (d *Dataset) insert(e Entry) (undo func(), err error) {
	e.Date = Day(e.Date)
	idx, found := d.search(e.Date)
	if found {
		return nil, ErrConflict
	}

	prev := d.entries
	next := make([]Entry, 0, len(prev)+1)
	next = append(next, prev[:idx]...)
	next = append(next, e)
	next = append(next, prev[idx:]...)
	d.entries = next

	return func() { d.entries = prev }, nil
}
