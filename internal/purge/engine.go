// Package purge performs chunked bulk removal of messages by sender or by
// explicit UID set. Chunks are not transactional: a mid-sequence failure
// leaves earlier chunks applied, and the result reports exactly how far
// the operation got.
package purge

import (
	"context"
	"fmt"

	"github.com/asavschaeffer/email-assassin/internal/model"
)

// Mailbox is the server surface the engine mutates. Implemented by
// mailbox.Session.
type Mailbox interface {
	SearchFrom(ctx context.Context, sender string) ([]uint32, error)
	MoveToTrash(ctx context.Context, uids []uint32) error
	DeletePermanently(ctx context.Context, uids []uint32) error
}

// Filter selects the messages to remove: a sender address (resolved by a
// fresh server-side search, never the local snapshot) or an explicit UID
// set. Sender takes precedence when both are set.
type Filter struct {
	Sender string
	UIDs   []uint32
}

func (f Filter) String() string {
	if f.Sender != "" {
		return f.Sender
	}
	return fmt.Sprintf("%d selected messages", len(f.UIDs))
}

// Result reports how much of a purge was applied. Affected < Requested
// with a non-nil error means the operation stopped partway; completed
// chunks are not rolled back.
type Result struct {
	Filter    string
	Requested int
	Affected  int

	// FallbackApplied is set when a trash move failed and the engine
	// degraded to permanent deletion. The caller must surface this:
	// it silently changes "recoverable" into "gone".
	FallbackApplied bool
}

// Engine executes chunked move/delete operations against a Mailbox.
type Engine struct {
	// ChunkSize is the number of UIDs per server command. Zero selects
	// the 1000 default tolerated by the major providers.
	ChunkSize int

	// AllowTrashFallback permits degrading a failed trash move to a
	// permanent delete instead of aborting.
	AllowTrashFallback bool
}

func (e *Engine) chunkSize() int {
	if e.ChunkSize < 1 {
		return 1000
	}
	return e.ChunkSize
}

// Purge removes every message matched by filter, in chunks. For a sender
// filter it re-queries the server first, so messages outside the local
// scan snapshot are included. The returned Result is valid even when err
// is non-nil and reflects the chunks actually applied.
func (e *Engine) Purge(ctx context.Context, mb Mailbox, filter Filter, mode model.DeleteMode) (Result, error) {
	result := Result{Filter: filter.String()}

	uids := filter.UIDs
	if filter.Sender != "" {
		found, err := mb.SearchFrom(ctx, filter.Sender)
		if err != nil {
			return result, fmt.Errorf("resolving messages from %q: %w", filter.Sender, err)
		}
		uids = found
	}

	result.Requested = len(uids)
	if len(uids) == 0 {
		return result, nil
	}

	size := e.chunkSize()
	for start := 0; start < len(uids); start += size {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + size
		if end > len(uids) {
			end = len(uids)
		}
		chunk := uids[start:end]

		if err := e.removeChunk(ctx, mb, chunk, mode, &result); err != nil {
			return result, fmt.Errorf("purge stopped after %d of %d messages: %w",
				result.Affected, result.Requested, err)
		}
		result.Affected += len(chunk)
	}

	return result, nil
}

// removeChunk applies mode to one chunk. Once a trash fallback has been
// applied, subsequent chunks delete permanently as well rather than
// alternating semantics within one purge.
func (e *Engine) removeChunk(ctx context.Context, mb Mailbox, chunk []uint32, mode model.DeleteMode, result *Result) error {
	if mode == model.DeleteTrash && !result.FallbackApplied {
		err := mb.MoveToTrash(ctx, chunk)
		if err == nil {
			return nil
		}
		if !e.AllowTrashFallback {
			return err
		}
		result.FallbackApplied = true
	}

	return mb.DeletePermanently(ctx, chunk)
}
