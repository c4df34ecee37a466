package aggregate

import (
	"testing"

	"github.com/asavschaeffer/email-assassin/internal/model"
)

func records(senders ...string) []model.HeaderRecord {
	recs := make([]model.HeaderRecord, 0, len(senders))
	for i, s := range senders {
		recs = append(recs, model.HeaderRecord{UID: uint32(i + 1), Sender: s})
	}
	return recs
}

func TestAggregate_CountsAndOrder(t *testing.T) {
	table := Aggregate(records(
		"a@x.com", "b@x.com", "a@x.com", "c@x.com", "a@x.com", "b@x.com",
	))

	if len(table) != 3 {
		t.Fatalf("want 3 senders got %d", len(table))
	}
	if table[0].Sender != "a@x.com" || table[0].Count != 3 {
		t.Fatalf("top row got %s/%d", table[0].Sender, table[0].Count)
	}
	if table[1].Sender != "b@x.com" || table[2].Sender != "c@x.com" {
		t.Fatalf("order got %s, %s", table[1].Sender, table[2].Sender)
	}

	total := 0
	for _, row := range table {
		total += row.Count
	}
	if total != 6 {
		t.Fatalf("counts must sum to record count, got %d", total)
	}
}

func TestAggregate_TiesKeepFirstObservedOrder(t *testing.T) {
	table := Aggregate(records("b@x.com", "a@x.com", "b@x.com", "a@x.com"))

	if table[0].Sender != "b@x.com" || table[1].Sender != "a@x.com" {
		t.Fatalf("tie order got %s, %s", table[0].Sender, table[1].Sender)
	}
}

func TestAggregate_SkipsSentinels(t *testing.T) {
	table := Aggregate(records("a@x.com", model.SenderUnknown, model.SenderError, ""))

	if len(table) != 1 || table[0].Sender != "a@x.com" {
		t.Fatalf("sentinels must be excluded, got %v", table)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if table := Aggregate(nil); len(table) != 0 {
		t.Fatalf("empty input must yield empty table, got %v", table)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	recs := records("a@x.com", "b@x.com", "a@x.com")

	first := Aggregate(recs)
	second := Aggregate(recs)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Sender != second[i].Sender || first[i].Count != second[i].Count {
			t.Fatalf("row %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestAggregate_CarriesUnsubscribeLinks(t *testing.T) {
	recs := []model.HeaderRecord{
		{UID: 1, Sender: "n@x.com"},
		{UID: 2, Sender: "n@x.com", UnsubscribeHTTP: "https://x.com/u", UnsubscribeMailto: "mailto:u@x.com"},
	}

	table := Aggregate(recs)
	if table[0].UnsubscribeHTTP != "https://x.com/u" {
		t.Fatalf("http link got %q", table[0].UnsubscribeHTTP)
	}
	if table[0].UnsubscribeMailto != "mailto:u@x.com" {
		t.Fatalf("mailto link got %q", table[0].UnsubscribeMailto)
	}
}

func TestTopN(t *testing.T) {
	table := Aggregate(records("a@x.com", "a@x.com", "b@x.com", "c@x.com"))

	if got := TopN(table, 2); len(got) != 2 || got[0].Sender != "a@x.com" {
		t.Fatalf("top 2 got %v", got)
	}
	if got := TopN(table, 0); len(got) != 3 {
		t.Fatalf("n=0 must keep everything, got %d", len(got))
	}
	if got := TopN(table, 10); len(got) != 3 {
		t.Fatalf("n beyond length must keep everything, got %d", len(got))
	}
}

func TestSnapshot_RemoveSenders(t *testing.T) {
	snap := NewSnapshot(records(
		"a@x.com", "b@x.com", "a@x.com", "c@x.com", "b@x.com",
	))

	if snap.TotalRecords() != 5 || snap.UniqueSenders() != 3 {
		t.Fatalf("initial snapshot got %d records %d senders",
			snap.TotalRecords(), snap.UniqueSenders())
	}

	removed := snap.RemoveSenders([]string{"a@x.com", "c@x.com"})
	if removed != 3 {
		t.Fatalf("removed want 3 got %d", removed)
	}
	if snap.TotalRecords() != 2 || snap.UniqueSenders() != 1 {
		t.Fatalf("after removal got %d records %d senders",
			snap.TotalRecords(), snap.UniqueSenders())
	}
	if snap.Senders()[0].Sender != "b@x.com" {
		t.Fatalf("survivor got %s", snap.Senders()[0].Sender)
	}

	if removed := snap.RemoveSenders([]string{"a@x.com"}); removed != 0 {
		t.Fatalf("removing an absent sender must be a no-op, got %d", removed)
	}
	if removed := snap.RemoveSenders(nil); removed != 0 {
		t.Fatalf("nil removal must be a no-op, got %d", removed)
	}
}
