// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package history

import (
	"strings"
	"testing"
	"time"
)

func TestAddAndGet(t *testing.T) {
	var h History
	id1 := h.Add(NewItem("echo one"))
	id2 := h.Add(NewItem("echo two"))
	if id1 >= id2 {
		t.Fatalf("ids not monotonic: %d >= %d", id1, id2)
	}
	if h.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", h.Count())
	}
	it, ok := h.Get(0)
	if !ok || it.CommandLine != "echo one" {
		t.Fatalf("Get(0) = %+v, %v", it, ok)
	}
	it, ok = h.GetByID(id2)
	if !ok || it.CommandLine != "echo two" {
		t.Fatalf("GetByID(%d) = %+v, %v", id2, it, ok)
	}
}

func TestUpdateByIDMissing(t *testing.T) {
	var h History
	if err := h.UpdateByID(42, NewItem("nope")); err != ErrItemNotFound {
		t.Fatalf("UpdateByID on missing id = %v, want ErrItemNotFound", err)
	}
}

func TestDeleteAndRemoveNth(t *testing.T) {
	var h History
	ids := []ItemID{
		h.Add(NewItem("a")),
		h.Add(NewItem("b")),
		h.Add(NewItem("c")),
	}
	h.DeleteItemByID(ids[1])
	if h.Count() != 2 {
		t.Fatalf("Count() after delete = %d, want 2", h.Count())
	}
	if _, ok := h.GetByID(ids[1]); ok {
		t.Fatalf("item %d still present after delete", ids[1])
	}

	ok := h.RemoveNthItem(0)
	if !ok || h.Count() != 1 {
		t.Fatalf("RemoveNthItem(0) = %v, count=%d", ok, h.Count())
	}
	it, _ := h.Get(0)
	if it.CommandLine != "c" {
		t.Fatalf("remaining item = %q, want %q", it.CommandLine, "c")
	}

	if h.RemoveNthItem(5) {
		t.Fatalf("RemoveNthItem(5) should report false on an out-of-range index")
	}
}

func TestClear(t *testing.T) {
	var h History
	h.Add(NewItem("a"))
	h.Add(NewItem("b"))
	h.Clear()
	if h.Count() != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", h.Count())
	}
}

func TestIterOrder(t *testing.T) {
	var h History
	lines := []string{"a", "b", "c"}
	for _, l := range lines {
		h.Add(NewItem(l))
	}
	items := h.Iter()
	if len(items) != len(lines) {
		t.Fatalf("Iter() returned %d items, want %d", len(items), len(lines))
	}
	for i, it := range items {
		if it.CommandLine != lines[i] {
			t.Errorf("Iter()[%d].CommandLine = %q, want %q", i, it.CommandLine, lines[i])
		}
		if i > 0 && items[i-1].ID >= it.ID {
			t.Errorf("ids not increasing at index %d", i)
		}
	}
}

func TestSearchDirectionAndFilter(t *testing.T) {
	var h History
	h.Add(NewItem("git status"))
	h.Add(NewItem("git commit"))
	h.Add(NewItem("ls -la"))
	h.Add(NewItem("git push"))

	got := h.Search(Query{
		Direction:         Backward,
		CommandLineFilter: &CommandLineFilter{Kind: Prefix, Text: "git"},
	})
	want := []string{"git push", "git commit", "git status"}
	if len(got) != len(want) {
		t.Fatalf("Search returned %d items, want %d", len(got), len(want))
	}
	for i, it := range got {
		if it.CommandLine != want[i] {
			t.Errorf("Search()[%d] = %q, want %q", i, it.CommandLine, want[i])
		}
	}
}

func TestSearchMaxItems(t *testing.T) {
	var h History
	for i := 0; i < 10; i++ {
		h.Add(NewItem("cmd"))
	}
	got := h.Search(Query{MaxItems: 3})
	if len(got) != 3 {
		t.Fatalf("Search with MaxItems=3 returned %d items", len(got))
	}
}

func TestQueryIncludesMatchesSearch(t *testing.T) {
	var h History
	h.Add(NewItem("a"))
	h.Add(NewItem("b"))
	h.Add(NewItem("c"))

	q := Query{CommandLineFilter: &CommandLineFilter{Kind: Exact, Text: "b"}}
	got := h.Search(q)
	for _, it := range h.Iter() {
		inSearch := false
		for _, g := range got {
			if g.ID == it.ID {
				inSearch = true
			}
		}
		if q.Includes(it) != inSearch {
			t.Errorf("Includes(%+v) = %v, but presence in Search() = %v", it, q.Includes(it), inSearch)
		}
	}
}

func TestImportWithTimestamps(t *testing.T) {
	in := "#100\necho hi\nnot a timestamp comment is ignored? no, this line becomes a command\n#not-a-number\necho bye\n"
	h, err := Import(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if h.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", h.Count())
	}
	first, _ := h.Get(0)
	if first.CommandLine != "echo hi" {
		t.Fatalf("first command = %q", first.CommandLine)
	}
	if first.Timestamp.Unix() != 100 {
		t.Fatalf("first timestamp = %v, want unix 100", first.Timestamp)
	}
	last, _ := h.Get(2)
	if last.CommandLine != "echo bye" || !last.Timestamp.IsZero() {
		t.Fatalf("last item = %+v, want command with zero timestamp", last)
	}
}

func TestFlushUnsavedOnly(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/hist"

	var h History
	id1 := h.Add(Item{CommandLine: "echo one", Timestamp: time.Unix(5, 0), Dirty: true})
	h.Add(Item{CommandLine: "echo two", Timestamp: time.Unix(10, 0), Dirty: true})

	if err := h.Flush(path, false, true, true); err != nil {
		t.Fatal(err)
	}
	it, _ := h.GetByID(id1)
	if it.Dirty {
		t.Fatalf("item should be clean after Flush with unsavedOnly")
	}

	// A second flush with unsavedOnly should write nothing new: mark one
	// item dirty again and confirm only that one gets appended.
	h.UpdateByID(id1, Item{CommandLine: "echo one", Timestamp: time.Unix(5, 0), Dirty: true})
	if err := h.Flush(path, true, true, true); err != nil {
		t.Fatal(err)
	}

	h2, err := ImportFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if h2.Count() != 3 {
		t.Fatalf("Count() after reimport = %d, want 3 (2 + 1 reappended)", h2.Count())
	}
}

func TestImportFileMissing(t *testing.T) {
	h, err := ImportFile("/nonexistent/path/to/history/file")
	if err != nil {
		t.Fatal(err)
	}
	if h.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 for a missing file", h.Count())
	}
}
