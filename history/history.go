// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package history implements a queryable, persistable record of the
// command lines a shell has executed, alongside optional timestamp
// metadata. It is kept deliberately separate from [interp.Runner]; a
// Runner holds a *History for its "history" and "fc" builtins, while the
// caller driving the shell adds each command line to it, and the type
// itself has no notion of shells, jobs, or variables.
package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2/maybe"
)

// ErrItemNotFound is returned by UpdateByID when no item with the given
// ID exists.
var ErrItemNotFound = errors.New("history: item not found")

// ItemID uniquely identifies an [Item] within a single process lifetime.
// IDs are assigned in strictly increasing order and never repeat.
type ItemID int64

// Item is a single recorded command line.
type Item struct {
	ID          ItemID
	CommandLine string

	// Timestamp is the time the command line was recorded, if known.
	// The zero value means no timestamp is associated with the item.
	Timestamp time.Time

	// Dirty reports whether the item has not yet been written to
	// backing storage by a call to Flush with unsavedOnly set.
	Dirty bool
}

// NewItem builds an Item ready to be passed to History.Add: it carries
// the current time and starts out dirty.
func NewItem(commandLine string) Item {
	return Item{
		CommandLine: commandLine,
		Timestamp:   time.Now(),
		Dirty:       true,
	}
}

// History is an ordered, append-only log of executed command lines.
// The zero value is an empty History ready to use.
//
// A History is not safe for concurrent use without external
// synchronization; [interp.Runner] serializes access to it the same
// way it serializes every other piece of shell state.
type History struct {
	ids    []ItemID
	byID   map[ItemID]Item
	nextID ItemID
}

// Import builds a History by reading command lines from r. Lines of the
// form "#<digits>" are interpreted as a Unix timestamp that applies to
// the next command line; any other line beginning with "#" is treated
// as an ordinary comment, and unparsable timestamp comments simply lose
// their timestamp rather than aborting the import. Every other line is
// imported verbatim, whatever its encoding; no line is skipped. Import
// stops with an error if the reader fails or a line is longer than
// 1 MiB, and then returns the items read up to that point alongside it.
func Import(r io.Reader) (*History, error) {
	h := &History{}
	sc := bufio.NewScanner(r)
	// Allow for unusually long single history lines without truncating them.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pendingTime time.Time
	for sc.Scan() {
		line := sc.Text()
		if rest, ok := strings.CutPrefix(line, "#"); ok {
			if secs, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64); err == nil {
				pendingTime = time.Unix(secs, 0)
			} else {
				pendingTime = time.Time{}
			}
			continue
		}
		item := Item{CommandLine: line, Timestamp: pendingTime}
		pendingTime = time.Time{}
		h.Add(item)
	}
	if err := sc.Err(); err != nil {
		return h, fmt.Errorf("history: reading import stream: %w", err)
	}
	return h, nil
}

// ImportFile is a convenience wrapper around Import that reads from the
// file at path. A missing file is treated as an empty history.
func ImportFile(path string) (*History, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &History{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f)
}

// Add appends item to the history, assigning it the next monotonic ID,
// and returns that ID. Add never fails.
func (h *History) Add(item Item) ItemID {
	id := h.nextID
	h.nextID++
	item.ID = id
	if h.byID == nil {
		h.byID = make(map[ItemID]Item)
	}
	h.ids = append(h.ids, id)
	h.byID[id] = item
	return id
}

// Count returns the number of items currently in the history.
func (h *History) Count() int { return len(h.ids) }

// Get returns the index-th item, zero-based from the oldest entry, and
// reports whether that index exists.
func (h *History) Get(index int) (Item, bool) {
	if index < 0 || index >= len(h.ids) {
		return Item{}, false
	}
	return h.byID[h.ids[index]], true
}

// GetByID returns the item with the given ID in constant time.
func (h *History) GetByID(id ItemID) (Item, bool) {
	it, ok := h.byID[id]
	return it, ok
}

// UpdateByID replaces the item stored under id. It returns
// ErrItemNotFound if no such item exists.
func (h *History) UpdateByID(id ItemID, item Item) error {
	if _, ok := h.byID[id]; !ok {
		return ErrItemNotFound
	}
	item.ID = id
	h.byID[id] = item
	return nil
}

// DeleteItemByID removes the item with the given ID. It is a no-op,
// not an error, if no such item exists.
func (h *History) DeleteItemByID(id ItemID) {
	if _, ok := h.byID[id]; !ok {
		return
	}
	delete(h.byID, id)
	for i, existing := range h.ids {
		if existing == id {
			h.ids = append(h.ids[:i], h.ids[i+1:]...)
			break
		}
	}
}

// RemoveNthItem removes the index-th item (zero-based, oldest first)
// and reports whether a removal happened.
func (h *History) RemoveNthItem(index int) bool {
	if index < 0 || index >= len(h.ids) {
		return false
	}
	id := h.ids[index]
	delete(h.byID, id)
	h.ids = append(h.ids[:index:index], h.ids[index+1:]...)
	return true
}

// Clear empties the history.
func (h *History) Clear() {
	h.ids = nil
	h.byID = nil
}

// Direction controls the order in which Search walks the history.
type Direction int

const (
	// Forward walks from the oldest entry to the newest.
	Forward Direction = iota
	// Backward walks from the newest entry to the oldest.
	Backward
)

// FilterKind selects how Query.CommandLineFilter matches a command line.
type FilterKind int

const (
	Prefix FilterKind = iota
	Suffix
	Contains
	Exact
)

// CommandLineFilter restricts a Query to items whose command line
// matches Text according to Kind.
type CommandLineFilter struct {
	Kind FilterKind
	Text string
}

func (f CommandLineFilter) matches(line string) bool {
	switch f.Kind {
	case Prefix:
		return strings.HasPrefix(line, f.Text)
	case Suffix:
		return strings.HasSuffix(line, f.Text)
	case Contains:
		return strings.Contains(line, f.Text)
	case Exact:
		return line == f.Text
	default:
		return false
	}
}

// Query describes a search over the history. The zero Query matches
// every item, walked forward.
type Query struct {
	Direction Direction

	// AfterTime and BeforeTime, when non-zero, clamp results to items
	// with a timestamp strictly after / before the given time. Items
	// without a timestamp are not filtered out by them.
	AfterTime  time.Time
	BeforeTime time.Time

	// AfterID and BeforeID, when non-nil, clamp results to items with
	// an ID strictly greater / less than the given ID.
	AfterID  *ItemID
	BeforeID *ItemID

	// MaxItems caps the number of items returned; zero means no cap.
	MaxItems int

	// CommandLineFilter optionally restricts matches by command line.
	CommandLineFilter *CommandLineFilter
}

// Includes reports whether item satisfies every constraint in q.
func (q Query) Includes(item Item) bool {
	if !q.AfterTime.IsZero() && !item.Timestamp.IsZero() && !item.Timestamp.After(q.AfterTime) {
		return false
	}
	if !q.BeforeTime.IsZero() && !item.Timestamp.IsZero() && !item.Timestamp.Before(q.BeforeTime) {
		return false
	}
	if q.AfterID != nil && item.ID <= *q.AfterID {
		return false
	}
	if q.BeforeID != nil && item.ID >= *q.BeforeID {
		return false
	}
	if q.CommandLineFilter != nil && !q.CommandLineFilter.matches(item.CommandLine) {
		return false
	}
	return true
}

// Search returns the items matching q, in the direction q requests,
// stopping once q.MaxItems have been produced (if set).
func (h *History) Search(q Query) []Item {
	var out []Item
	emit := func(it Item) bool {
		if !q.Includes(it) {
			return true
		}
		out = append(out, it)
		return q.MaxItems == 0 || len(out) < q.MaxItems
	}
	if q.Direction == Backward {
		for i := len(h.ids) - 1; i >= 0; i-- {
			if !emit(h.byID[h.ids[i]]) {
				break
			}
		}
	} else {
		for _, id := range h.ids {
			if !emit(h.byID[id]) {
				break
			}
		}
	}
	return out
}

// Iter returns every item in insertion (oldest-first) order.
func (h *History) Iter() []Item {
	return h.Search(Query{})
}

// Flush writes the history to path. If appendMode is true, the new
// lines are appended to whatever is already on disk; otherwise the
// whole file is atomically replaced with the current history, so a
// crash or concurrent reader never observes a half-written file. If
// unsavedOnly is true, only items with Dirty set are written, and they
// are marked clean afterward. If withTimestamps is true, a "#<unix
// seconds>" comment line precedes each command line that has a
// timestamp.
func (h *History) Flush(path string, appendMode, unsavedOnly, withTimestamps bool) error {
	var buf bytes.Buffer
	for _, id := range h.ids {
		item := h.byID[id]
		if unsavedOnly && !item.Dirty {
			continue
		}
		if withTimestamps && !item.Timestamp.IsZero() {
			fmt.Fprintf(&buf, "#%d\n", item.Timestamp.Unix())
		}
		fmt.Fprintln(&buf, item.CommandLine)
		if unsavedOnly {
			item.Dirty = false
			h.byID[id] = item
		}
	}

	if !appendMode {
		return maybe.WriteFile(path, buf.Bytes(), 0o600)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
