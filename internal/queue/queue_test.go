package queue

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestQueue_AddPreservesOrderAndDuplicates(t *testing.T) {
	var q Queue
	a := Entry{DisplayName: "a.epub", SizeBytes: 1}
	b := Entry{DisplayName: "b.pdf", SizeBytes: 2}

	q.Add(a, b, a)
	got := q.Entries()
	want := []Entry{a, b, a}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Entries = %#v, want %#v", got, want)
	}
}

func TestQueue_AddEmptyIsNoop(t *testing.T) {
	var q Queue
	q.Add()
	if q.Len() != 0 {
		t.Fatalf("Len = %d, want 0", q.Len())
	}
}

func TestQueue_RemoveAtKeepsRemainingAttributes(t *testing.T) {
	var q Queue
	a := Entry{Path: "/books/a.epub", DisplayName: "a.epub", SizeBytes: 100}
	b := Entry{Path: "/books/b.epub", DisplayName: "b.epub", SizeBytes: 200}
	q.Add(a, b)

	if !q.RemoveAt(0) {
		t.Fatalf("RemoveAt(0) = false, want true")
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
	got, _ := q.At(0)
	if got != b {
		t.Fatalf("remaining entry = %#v, want %#v", got, b)
	}
}

func TestQueue_RemoveAtOutOfRangeIsNoop(t *testing.T) {
	var q Queue
	q.Add(Entry{DisplayName: "a"}, Entry{DisplayName: "b"})
	before := q.Entries()

	for _, idx := range []int{-1, 2, 99} {
		if q.RemoveAt(idx) {
			t.Fatalf("RemoveAt(%d) = true, want false", idx)
		}
	}
	if !reflect.DeepEqual(q.Entries(), before) {
		t.Fatalf("Entries changed after out-of-range removals: %#v", q.Entries())
	}
}

func TestQueue_Clear(t *testing.T) {
	var q Queue
	q.Add(Entry{DisplayName: "a"})
	q.Clear()
	if q.Len() != 0 || q.Entries() != nil {
		t.Fatalf("queue not empty after Clear: %#v", q.Entries())
	}
}

func TestQueue_TakeEmptiesQueue(t *testing.T) {
	var q Queue
	q.Add(Entry{DisplayName: "a"}, Entry{DisplayName: "b"})

	taken := q.Take()
	if len(taken) != 2 || taken[0].DisplayName != "a" || taken[1].DisplayName != "b" {
		t.Fatalf("Take = %#v, want [a b]", taken)
	}
	if q.Len() != 0 {
		t.Fatalf("Len after Take = %d, want 0", q.Len())
	}

	q.Add(Entry{DisplayName: "c"})
	if len(taken) != 2 || q.Len() != 1 {
		t.Fatalf("Add after Take changed taken slice or queue: %#v / %d", taken, q.Len())
	}
}

func TestQueue_AllIsLiveAndRestartable(t *testing.T) {
	var q Queue
	q.Add(Entry{DisplayName: "a"}, Entry{DisplayName: "b"})

	names := func() []string {
		var out []string
		for _, e := range q.All() {
			out = append(out, e.DisplayName)
		}
		return out
	}

	seq := q.All()
	if got := names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("first pass = %v, want [a b]", got)
	}

	q.Add(Entry{DisplayName: "c"})
	var second []string
	for _, e := range seq {
		second = append(second, e.DisplayName)
	}
	if !reflect.DeepEqual(second, []string{"a", "b", "c"}) {
		t.Fatalf("re-ranged sequence = %v, want [a b c]", second)
	}
}

func TestQueue_AllStopsEarly(t *testing.T) {
	var q Queue
	q.Add(Entry{DisplayName: "a"}, Entry{DisplayName: "b"}, Entry{DisplayName: "c"})
	count := 0
	for i := range q.All() {
		count++
		if i == 1 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("iterations = %d, want 2", count)
	}
}

func TestEntryFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	e, err := EntryFromPath(path)
	if err != nil {
		t.Fatalf("EntryFromPath returned error: %v", err)
	}
	if e.DisplayName != "notes.txt" || e.SizeBytes != 5 || e.Path != path {
		t.Fatalf("EntryFromPath = %#v", e)
	}

	if _, err := EntryFromPath(dir); err == nil {
		t.Fatalf("EntryFromPath(dir) returned nil error, want directory error")
	}
	if _, err := EntryFromPath(filepath.Join(dir, "missing.epub")); err == nil {
		t.Fatalf("EntryFromPath(missing) returned nil error")
	}
}
