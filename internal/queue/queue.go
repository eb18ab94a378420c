// Package queue holds the ordered list of files waiting to be sent to the device.
package queue

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
)

// Entry is a file selected for upload. Entries have no identity beyond their
// position in the queue.
type Entry struct {
	Path        string
	DisplayName string
	SizeBytes   int64
}

// EntryFromPath stats path and builds an Entry named after its base name.
func EntryFromPath(path string) (Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, fmt.Errorf("resolve %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Entry{}, fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("%q is a directory", path)
	}
	return Entry{
		Path:        abs,
		DisplayName: filepath.Base(abs),
		SizeBytes:   info.Size(),
	}, nil
}

// Queue is an insertion-ordered list of entries. Insertion order is upload
// order. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
}

// Add appends entries in the order given. Duplicates are kept.
func (q *Queue) Add(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entries...)
}

// RemoveAt drops the entry at index. Out-of-range indexes (stale UI rows) are
// ignored and reported as false.
func (q *Queue) RemoveAt(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.entries) {
		return false
	}
	q.entries = append(q.entries[:index], q.entries[index+1:]...)
	return true
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}

// Take removes and returns every queued entry in one step. Entries added
// afterwards start a fresh queue.
func (q *Queue) Take() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	taken := q.entries
	q.entries = nil
	return taken
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// At returns the entry at index.
func (q *Queue) At(index int) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.entries) {
		return Entry{}, false
	}
	return q.entries[index], true
}

// All yields the entries in order. The sequence is lazy: each step reads the
// live queue, so it can be ranged over again at any time and always reflects
// the current contents. A running sync pass has already taken its entries,
// so they are not yielded while it uploads them.
func (q *Queue) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i := 0; ; i++ {
			entry, ok := q.At(i)
			if !ok {
				return
			}
			if !yield(i, entry) {
				return
			}
		}
	}
}

// Entries returns a copy of the current entries.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	dup := make([]Entry, len(q.entries))
	copy(dup, q.entries)
	return dup
}
