package scan

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/asavschaeffer/email-assassin/internal/model"
)

// fakeFetcher serves synthetic headers. failFirstUID marks the chunk
// starting at that UID as broken.
type fakeFetcher struct {
	failFirstUID uint32
	closed       *atomic.Int32
}

func (f *fakeFetcher) FetchHeaders(ctx context.Context, uids []uint32, mode model.FetchMode) ([]RawHeader, error) {
	if len(uids) > 0 && uids[0] == f.failFirstUID {
		return nil, errors.New("connection reset")
	}

	raws := make([]RawHeader, 0, len(uids))
	for _, uid := range uids {
		raws = append(raws, RawHeader{
			UID: uid,
			Raw: []byte(fmt.Sprintf("From: <sender%d@example.com>\r\n\r\n", uid%5)),
		})
	}
	return raws, nil
}

func (f *fakeFetcher) Close() error {
	if f.closed != nil {
		f.closed.Add(1)
	}
	return nil
}

func fakeOpen(failFirstUID uint32, closed *atomic.Int32) OpenSession {
	return func(ctx context.Context) (HeaderFetcher, error) {
		return &fakeFetcher{failFirstUID: failFirstUID, closed: closed}, nil
	}
}

func TestSchedulerRun_Concurrent(t *testing.T) {
	var closed atomic.Int32
	s := &Scheduler{Open: fakeOpen(0, &closed), Workers: 10, Mode: model.FetchFast}

	var fractions []float64
	result, err := s.Run(context.Background(), seqUIDs(10000), func(p Progress) {
		fractions = append(fractions, p.Fraction)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Records) != 10000 {
		t.Fatalf("records want 10000 got %d", len(result.Records))
	}
	if result.TotalChunks != 10 || result.FailedChunks != 0 {
		t.Fatalf("chunks got total=%d failed=%d", result.TotalChunks, result.FailedChunks)
	}
	if result.Partial() {
		t.Fatalf("clean run must not be partial")
	}
	if got := closed.Load(); got != 10 {
		t.Fatalf("every worker session must close, got %d", got)
	}

	// Records come back in UID order regardless of worker completion order.
	for i, rec := range result.Records {
		if rec.UID != uint32(i+1) {
			t.Fatalf("record %d has uid %d", i, rec.UID)
		}
	}

	assertProgress(t, fractions)
}

func TestSchedulerRun_WorkerFailureIsIsolated(t *testing.T) {
	// The chunk starting at UID 1 fails; the other nine survive.
	s := &Scheduler{Open: fakeOpen(1, nil), Workers: 10, Mode: model.FetchFast}

	var fractions []float64
	result, err := s.Run(context.Background(), seqUIDs(10000), func(p Progress) {
		fractions = append(fractions, p.Fraction)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Records) != 9000 {
		t.Fatalf("records want 9000 got %d", len(result.Records))
	}
	if result.FailedChunks != 1 || result.TotalChunks != 10 {
		t.Fatalf("chunks got total=%d failed=%d", result.TotalChunks, result.FailedChunks)
	}
	if !result.Partial() {
		t.Fatalf("failed chunk must mark the result partial")
	}

	// A failed chunk still counts toward completion.
	assertProgress(t, fractions)
}

func TestSchedulerRun_Sequential(t *testing.T) {
	s := &Scheduler{Open: fakeOpen(0, nil), Workers: 1, Mode: model.FetchFast}

	var fractions []float64
	result, err := s.Run(context.Background(), seqUIDs(20), func(p Progress) {
		fractions = append(fractions, p.Fraction)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Records) != 20 {
		t.Fatalf("records want 20 got %d", len(result.Records))
	}
	if result.TotalChunks != 1 || result.FailedChunks != 0 {
		t.Fatalf("chunks got total=%d failed=%d", result.TotalChunks, result.FailedChunks)
	}
	assertProgress(t, fractions)
}

func TestSchedulerRun_SequentialStopsOnError(t *testing.T) {
	// Per-message fetches: the one for UID 11 fails.
	s := &Scheduler{Open: fakeOpen(11, nil), Workers: 1, Mode: model.FetchFast}

	var fractions []float64
	result, err := s.Run(context.Background(), seqUIDs(20), func(p Progress) {
		fractions = append(fractions, p.Fraction)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Records) != 10 {
		t.Fatalf("records want 10 got %d", len(result.Records))
	}
	if result.FailedChunks != 1 {
		t.Fatalf("aborted run must report a failed chunk")
	}
	assertProgress(t, fractions)
}

func TestSchedulerRun_Empty(t *testing.T) {
	s := &Scheduler{Open: fakeOpen(0, nil), Workers: 4, Mode: model.FetchFast}

	var fractions []float64
	result, err := s.Run(context.Background(), nil, func(p Progress) {
		fractions = append(fractions, p.Fraction)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Records) != 0 {
		t.Fatalf("empty folder must yield no records")
	}
	assertProgress(t, fractions)
}

func TestSchedulerRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scheduler{Open: fakeOpen(0, nil), Workers: 4, Mode: model.FetchFast}
	if _, err := s.Run(ctx, seqUIDs(100), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}
}

// assertProgress checks the ordering contract: fractions never decrease
// and 1.0 is reported exactly once, at the end.
func assertProgress(t *testing.T, fractions []float64) {
	t.Helper()

	if len(fractions) == 0 {
		t.Fatalf("no progress reported")
	}

	ones := 0
	prev := -1.0
	for i, f := range fractions {
		if f < prev {
			t.Fatalf("fraction decreased at %d: %v", i, fractions)
		}
		prev = f
		if f == 1.0 {
			ones++
		}
	}
	if ones != 1 {
		t.Fatalf("fraction 1.0 reported %d times: %v", ones, fractions)
	}
	if fractions[len(fractions)-1] != 1.0 {
		t.Fatalf("final fraction %v, want 1.0", fractions[len(fractions)-1])
	}
}
