// Package aggregate derives sender frequency tables from scan records.
// The tables are always rebuilt in full from the underlying records;
// nothing is patched incrementally, so the table can never drift from the
// records it summarizes.
package aggregate

import (
	"sort"

	"github.com/asavschaeffer/email-assassin/internal/model"
)

// SenderCount is one row of the sender table: a normalized sender address,
// how many scanned messages it contributed, and which UIDs.
type SenderCount struct {
	Sender string
	Count  int
	UIDs   []uint32

	// Unsubscribe links carried over from the sender's records, when the
	// scan mode fetched them.
	UnsubscribeHTTP   string
	UnsubscribeMailto string
}

// Aggregate builds the sender table from records: descending by count,
// ties broken by the order senders were first observed. Records with a
// sentinel sender are excluded. Empty input yields an empty table.
func Aggregate(records []model.HeaderRecord) []SenderCount {
	index := make(map[string]int)
	var table []SenderCount

	for _, rec := range records {
		if !rec.HasSender() {
			continue
		}

		i, ok := index[rec.Sender]
		if !ok {
			i = len(table)
			index[rec.Sender] = i
			table = append(table, SenderCount{Sender: rec.Sender})
		}

		table[i].Count++
		table[i].UIDs = append(table[i].UIDs, rec.UID)
		if table[i].UnsubscribeHTTP == "" {
			table[i].UnsubscribeHTTP = rec.UnsubscribeHTTP
		}
		if table[i].UnsubscribeMailto == "" {
			table[i].UnsubscribeMailto = rec.UnsubscribeMailto
		}
	}

	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Count > table[j].Count
	})

	return table
}

// TopN returns the first n rows of the table, or the whole table when
// n <= 0 or n exceeds its length.
func TopN(table []SenderCount, n int) []SenderCount {
	if n <= 0 || n >= len(table) {
		return table
	}
	return table[:n]
}

// Snapshot holds the scanned records and their derived sender table for
// one session. It reflects the remote folder only as of the last scan,
// adjusted by confirmed deletions; a concurrent client can make it stale.
type Snapshot struct {
	records []model.HeaderRecord
	table   []SenderCount
}

// NewSnapshot builds a snapshot from scan records.
func NewSnapshot(records []model.HeaderRecord) *Snapshot {
	return &Snapshot{
		records: records,
		table:   Aggregate(records),
	}
}

// Senders returns the current sender table.
func (s *Snapshot) Senders() []SenderCount { return s.table }

// TotalRecords returns the number of scanned records in the snapshot.
func (s *Snapshot) TotalRecords() int { return len(s.records) }

// UniqueSenders returns the number of distinct non-sentinel senders.
func (s *Snapshot) UniqueSenders() int { return len(s.table) }

// RemoveSenders applies a confirmed deletion optimistically: records from
// the given senders are dropped and the table rebuilt from what remains.
// It returns the number of records removed.
func (s *Snapshot) RemoveSenders(senders []string) int {
	if len(senders) == 0 {
		return 0
	}

	drop := make(map[string]bool, len(senders))
	for _, sender := range senders {
		drop[sender] = true
	}

	kept := s.records[:0]
	removed := 0
	for _, rec := range s.records {
		if drop[rec.Sender] {
			removed++
			continue
		}
		kept = append(kept, rec)
	}

	s.records = kept
	s.table = Aggregate(s.records)
	return removed
}
