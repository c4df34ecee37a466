package senderlist

import (
	"testing"

	"github.com/asavschaeffer/email-assassin/internal/aggregate"
	"github.com/asavschaeffer/email-assassin/internal/keys"
)

func newModel() Model {
	return New(keys.DefaultKeyMap(), 80, 24)
}

func table(rows ...aggregate.SenderCount) []aggregate.SenderCount {
	return rows
}

func TestSelected(t *testing.T) {
	m := newModel()
	m.SetTable(table(
		aggregate.SenderCount{Sender: "a@x.com", Count: 5},
		aggregate.SenderCount{Sender: "b@x.com", Count: 3},
		aggregate.SenderCount{Sender: "c@x.com", Count: 1},
	), 9, "")

	m.selected["a@x.com"] = true
	m.selected["c@x.com"] = true

	senders, estimated := m.Selected()
	if len(senders) != 2 || senders[0] != "a@x.com" || senders[1] != "c@x.com" {
		t.Fatalf("selection got %v", senders)
	}
	if estimated != 6 {
		t.Fatalf("estimate want 6 got %d", estimated)
	}
}

func TestSetTable_PrunesSelection(t *testing.T) {
	m := newModel()
	m.SetTable(table(
		aggregate.SenderCount{Sender: "a@x.com", Count: 5},
		aggregate.SenderCount{Sender: "b@x.com", Count: 3},
	), 8, "")
	m.selected["a@x.com"] = true
	m.selected["b@x.com"] = true
	m.cursor = 1

	// A reconcile after a purge drops a@x.com entirely.
	m.SetTable(table(
		aggregate.SenderCount{Sender: "b@x.com", Count: 3},
	), 3, "")

	senders, _ := m.Selected()
	if len(senders) != 1 || senders[0] != "b@x.com" {
		t.Fatalf("pruned selection got %v", senders)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor must clamp to the shrunken table, got %d", m.cursor)
	}
}

func TestSetTable_EmptyClampsCursor(t *testing.T) {
	m := newModel()
	m.SetTable(table(aggregate.SenderCount{Sender: "a@x.com", Count: 1}), 1, "")
	m.cursor = 0

	m.SetTable(nil, 0, "")
	if m.cursor != 0 {
		t.Fatalf("cursor got %d", m.cursor)
	}
	if senders, _ := m.Selected(); len(senders) != 0 {
		t.Fatalf("selection must be empty, got %v", senders)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	got := truncate("a-very-long-sender-address@example.com", 10)
	if len(got) > 12 {
		t.Fatalf("truncated too long: %q", got)
	}
}
