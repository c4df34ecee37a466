package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/asavschaeffer/email-assassin/internal/model"
)

// RawHeader is one fetched header blob plus its fetch metadata.
type RawHeader struct {
	UID  uint32
	Size int64
	Raw  []byte
}

// HeaderFetcher is one authenticated session capable of field-restricted
// header fetches. Sessions are owned exclusively by a single worker.
type HeaderFetcher interface {
	FetchHeaders(ctx context.Context, uids []uint32, mode model.FetchMode) ([]RawHeader, error)
	Close() error
}

// OpenSession opens a fresh, independently-authenticated session.
type OpenSession func(ctx context.Context) (HeaderFetcher, error)

// Progress reports scan completion. Completed increases monotonically and
// Fraction reaches 1.0 exactly once per run, failed chunks included.
type Progress struct {
	// RunID ties the event to one scan run so consumers can discard
	// stragglers from an abandoned run.
	RunID     string
	Completed int
	Total     int
	Fraction  float64
	Status    string
}

// Result is the merged outcome of one scan run. FailedChunks > 0 means the
// records are a usable but incomplete snapshot.
type Result struct {
	RunID        string
	Records      []model.HeaderRecord
	TotalChunks  int
	FailedChunks int
}

// Partial reports whether one or more workers failed mid-scan.
func (r *Result) Partial() bool { return r.FailedChunks > 0 }

// Scheduler fans a UID set out across bounded concurrent worker sessions
// and merges their results. Workers never touch shared state; the
// coordinator alone assembles the result after each worker reports back.
type Scheduler struct {
	Open    OpenSession
	Workers int
	Mode    model.FetchMode

	// Timeout bounds each worker's connect-and-fetch; a timed-out
	// worker counts as a failed chunk.
	Timeout time.Duration
}

type chunkResult struct {
	index   int
	records []model.HeaderRecord
	err     error
}

// Run scans the given UIDs and returns the merged records. Per-worker
// failures are isolated: the run keeps whatever the worker fetched and
// counts the chunk as failed. Run returns an error only for top-level
// cancellation; workers still holding sessions close them on their own
// exit paths.
func (s *Scheduler) Run(ctx context.Context, uids []uint32, onProgress func(Progress)) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()

	emit := func(p Progress) {
		if onProgress != nil {
			p.RunID = runID
			onProgress(p)
		}
	}

	if len(uids) == 0 {
		emit(Progress{Fraction: 1, Status: "Nothing to scan"})
		return &Result{RunID: runID}, nil
	}

	if s.Workers <= 1 {
		return s.runSequential(ctx, runID, uids, emit)
	}
	return s.runConcurrent(ctx, runID, uids, emit)
}

// runConcurrent is the multi-session mode: one contiguous chunk per
// worker, each on its own connection.
func (s *Scheduler) runConcurrent(ctx context.Context, runID string, uids []uint32, emit func(Progress)) (*Result, error) {
	chunks := ChunkUIDs(uids, s.Workers)

	// Buffered so workers outliving a cancelled run never block.
	results := make(chan chunkResult, len(chunks))
	for i, chunk := range chunks {
		go func(index int, chunk []uint32) {
			records, err := s.scanChunk(ctx, chunk)
			results <- chunkResult{index: index, records: records, err: err}
		}(i, chunk)
	}

	byIndex := make([][]model.HeaderRecord, len(chunks))
	failed := 0
	for completed := 0; completed < len(chunks); {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-results:
			completed++
			if res.err != nil {
				failed++
			}
			byIndex[res.index] = res.records
			emit(Progress{
				Completed: completed,
				Total:     len(chunks),
				Fraction:  float64(completed) / float64(len(chunks)),
				Status:    fmt.Sprintf("Scanned chunk %d/%d", completed, len(chunks)),
			})
		}
	}

	var records []model.HeaderRecord
	for _, chunkRecords := range byIndex {
		records = append(records, chunkRecords...)
	}

	return &Result{
		RunID:        runID,
		Records:      records,
		TotalChunks:  len(chunks),
		FailedChunks: failed,
	}, nil
}

// runSequential is the single-session mode: one connection, one message
// per fetch, per-message progress. Much slower on large folders.
func (s *Scheduler) runSequential(ctx context.Context, runID string, uids []uint32, emit func(Progress)) (*Result, error) {
	session, err := s.Open(ctx)
	if err != nil {
		emit(Progress{Total: len(uids), Fraction: 1, Status: "Scan failed to start"})
		return &Result{RunID: runID, TotalChunks: 1, FailedChunks: 1}, nil
	}
	defer session.Close()

	var records []model.HeaderRecord
	for i, uid := range uids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raws, fetchErr := session.FetchHeaders(ctx, []uint32{uid}, s.Mode)
		records = append(records, parseRaw(raws)...)
		if fetchErr != nil {
			// The rest of the run would reuse a broken session; stop
			// and report the remainder as one failed chunk.
			emit(Progress{
				Completed: len(uids),
				Total:     len(uids),
				Fraction:  1,
				Status:    fmt.Sprintf("Scan stopped after %d/%d messages", i, len(uids)),
			})
			return &Result{
				RunID:        runID,
				Records:      records,
				TotalChunks:  1,
				FailedChunks: 1,
			}, nil
		}

		emit(Progress{
			Completed: i + 1,
			Total:     len(uids),
			Fraction:  float64(i+1) / float64(len(uids)),
			Status:    fmt.Sprintf("Scanned message %d/%d", i+1, len(uids)),
		})
	}

	return &Result{
		RunID:       runID,
		Records:     records,
		TotalChunks: 1,
	}, nil
}

// scanChunk opens a dedicated session, fetches the chunk's headers, and
// parses them. Partial results are returned alongside the error so one
// failing worker still contributes what it managed to fetch.
func (s *Scheduler) scanChunk(ctx context.Context, chunk []uint32) ([]model.HeaderRecord, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	session, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	raws, err := session.FetchHeaders(ctx, chunk, s.Mode)
	return parseRaw(raws), err
}

// parseRaw converts fetched header blobs into records, preserving order.
func parseRaw(raws []RawHeader) []model.HeaderRecord {
	records := make([]model.HeaderRecord, 0, len(raws))
	for _, raw := range raws {
		rec := ParseHeader(raw.Raw)
		rec.UID = raw.UID
		rec.SizeBytes = raw.Size
		records = append(records, rec)
	}
	return records
}
