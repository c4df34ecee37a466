package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/asavschaeffer/email-assassin/internal/aggregate"
	"github.com/asavschaeffer/email-assassin/internal/mailbox"
	"github.com/asavschaeffer/email-assassin/internal/model"
	"github.com/asavschaeffer/email-assassin/internal/purge"
	"github.com/asavschaeffer/email-assassin/internal/scan"
)

// scanProgressMsg carries scan progress from a background run.
type scanProgressMsg struct {
	token    string
	progress scan.Progress
}

// scanFailedMsg reports a scan that could not start or was cancelled.
type scanFailedMsg struct {
	token string
	err   error
}

// scanDoneMsg carries the merged scan outcome.
type scanDoneMsg struct {
	token         string
	totalInFolder int
	scanned       int
	result        *scan.Result
	snapshot      *aggregate.Snapshot
}

// purgeProgressMsg reports per-sender purge progress.
type purgeProgressMsg struct {
	token    string
	index    int
	total    int
	sender   string
	fraction float64
}

// purgeDoneMsg carries the combined outcome of a multi-sender purge.
type purgeDoneMsg struct {
	token           string
	results         []purge.Result
	removedSenders  []string
	totalRemoved    int
	fallbackApplied bool
	failures        []string
}

// unsubscribeOpenedMsg reports the outcome of opening an unsubscribe link.
type unsubscribeOpenedMsg struct {
	url string
	err error
}

// engine runs scans and purges on background goroutines and forwards
// their events to the Bubble Tea runtime over a single channel. Workers
// never touch UI state; the app model merges events on its own goroutine.
type engine struct {
	cfg    *model.AppConfig
	events chan tea.Msg
}

func newEngine(cfg *model.AppConfig) *engine {
	return &engine{
		cfg:    cfg,
		events: make(chan tea.Msg, 32),
	}
}

// waitForEvent returns a command that delivers the next background event.
// The app re-issues it after every event, keeping the subscription alive.
func (e *engine) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-e.events
	}
}

// sendProgress forwards a progress event, dropping it if the UI is
// behind. Terminal events always use the blocking send instead.
func (e *engine) sendProgress(msg tea.Msg) {
	select {
	case e.events <- msg:
	default:
	}
}

func (e *engine) timeout() time.Duration {
	if e.cfg.Scan.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(e.cfg.Scan.TimeoutSec) * time.Second
}

// connector builds a connector for the account, applying any configured
// host override on top of the derived provider.
func (e *engine) connector(address string) *mailbox.Connector {
	provider := mailbox.ProviderFor(address).
		WithOverride(e.cfg.IMAP.Host, e.cfg.IMAP.Port)
	return mailbox.NewConnector(provider, e.timeout())
}

// runScan verifies credentials, enumerates the folder, and runs the
// scheduler. It runs on its own goroutine and reports only through the
// event channel. token ties every event to the run that produced it so
// the UI can discard stragglers from an abandoned run.
func (e *engine) runScan(ctx context.Context, token string, creds model.Credentials, depth int, fetchMode model.FetchMode) {
	conn := e.connector(creds.Address)

	e.sendProgress(scanProgressMsg{token: token, progress: scan.Progress{
		Status: "Verifying credentials...",
	}})

	if _, err := conn.Verify(ctx, creds); err != nil {
		e.events <- scanFailedMsg{token: token, err: err}
		return
	}

	e.sendProgress(scanProgressMsg{token: token, progress: scan.Progress{
		Status: "Fetching message IDs...",
	}})

	session, err := conn.Open(ctx, creds)
	if err != nil {
		e.events <- scanFailedMsg{token: token, err: err}
		return
	}
	uids, err := session.ListUIDs(ctx)
	_ = session.Close()
	if err != nil {
		e.events <- scanFailedMsg{token: token, err: err}
		return
	}

	totalInFolder := len(uids)
	uids = scan.SliceLast(uids, depth)

	scheduler := &scan.Scheduler{
		Open: func(ctx context.Context) (scan.HeaderFetcher, error) {
			return conn.Open(ctx, creds)
		},
		Workers: e.cfg.Scan.Workers,
		Mode:    fetchMode,
		Timeout: e.timeout(),
	}

	result, err := scheduler.Run(ctx, uids, func(p scan.Progress) {
		e.sendProgress(scanProgressMsg{token: token, progress: p})
	})
	if err != nil {
		e.events <- scanFailedMsg{token: token, err: err}
		return
	}

	e.events <- scanDoneMsg{
		token:         token,
		totalInFolder: totalInFolder,
		scanned:       len(uids),
		result:        result,
		snapshot:      aggregate.NewSnapshot(result.Records),
	}
}

// runPurge removes the selected senders one at a time, each with a fresh
// session and a fresh server-side search. A failing sender does not stop
// the rest; its partial result is reported in the summary.
func (e *engine) runPurge(ctx context.Context, token string, creds model.Credentials, senders []string, mode model.DeleteMode) {
	conn := e.connector(creds.Address)
	eng := &purge.Engine{
		ChunkSize:          e.cfg.Purge.ChunkSize,
		AllowTrashFallback: e.cfg.Purge.AllowTrashFallback,
	}

	done := purgeDoneMsg{token: token}

	for i, sender := range senders {
		if ctx.Err() != nil {
			break
		}

		e.sendProgress(purgeProgressMsg{
			token:    token,
			index:    i,
			total:    len(senders),
			sender:   sender,
			fraction: float64(i) / float64(len(senders)),
		})

		session, err := conn.Open(ctx, creds)
		if err != nil {
			done.failures = append(done.failures,
				fmt.Sprintf("%s: %s", sender, mailbox.Guidance(err)))
			continue
		}

		result, err := eng.Purge(ctx, session, purge.Filter{Sender: sender}, mode)
		_ = session.Close()

		done.results = append(done.results, result)
		done.totalRemoved += result.Affected
		if result.FallbackApplied {
			done.fallbackApplied = true
		}

		if err != nil {
			done.failures = append(done.failures, fmt.Sprintf(
				"%s: removed %d of %d before a server error", sender,
				result.Affected, result.Requested))
		} else {
			done.removedSenders = append(done.removedSenders, sender)
		}

		e.sendProgress(purgeProgressMsg{
			token:    token,
			index:    i + 1,
			total:    len(senders),
			sender:   sender,
			fraction: float64(i+1) / float64(len(senders)),
		})
	}

	e.events <- done
}
