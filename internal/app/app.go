// Package app is the root Bubble Tea model for the dashboard: phase
// routing between the scan form, progress views, and the sender kill
// list, with all mailbox work delegated to background engine goroutines.
package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/asavschaeffer/email-assassin/internal/aggregate"
	"github.com/asavschaeffer/email-assassin/internal/credential"
	"github.com/asavschaeffer/email-assassin/internal/keys"
	"github.com/asavschaeffer/email-assassin/internal/mailbox"
	"github.com/asavschaeffer/email-assassin/internal/model"
	"github.com/asavschaeffer/email-assassin/internal/theme"
	"github.com/asavschaeffer/email-assassin/internal/ui"
	"github.com/asavschaeffer/email-assassin/internal/ui/help"
	"github.com/asavschaeffer/email-assassin/internal/ui/progressview"
	"github.com/asavschaeffer/email-assassin/internal/ui/scanform"
	"github.com/asavschaeffer/email-assassin/internal/ui/senderlist"
)

// Phase is the dashboard's current mode.
type Phase int

const (
	PhaseForm Phase = iota
	PhaseScanning
	PhaseResults
	PhaseConfirm
	PhasePurging
)

func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseResults:
		return "results"
	case PhaseConfirm:
		return "confirm"
	case PhasePurging:
		return "purging"
	default:
		return "setup"
	}
}

// Model is the root application model.
type Model struct {
	cfg     *model.AppConfig
	cfgPath string
	layout  ui.Layout
	engine  *engine

	phase    Phase
	keymap   *keys.KeyMap
	form     scanform.Model
	progress progressview.Model
	senders  senderlist.Model
	helpView help.Model
	showHelp bool
	initCmd  tea.Cmd

	creds      model.Credentials
	deleteMode model.DeleteMode

	snapshot      *aggregate.Snapshot
	partialNote   string
	totalInFolder int

	// token identifies the active background run; events carrying a
	// different token belong to an abandoned run and are dropped.
	token  string
	cancel context.CancelFunc

	confirmSenders   []string
	confirmEstimated int

	status string
	ready  bool
}

// New creates the root model. Stored credentials are prefilled when the
// user opted in previously.
func New(cfg *model.AppConfig, cfgPath string) Model {
	form := scanform.New(cfg, 80, 24)
	if cfg.RememberCredentials && cfg.LastAddress != "" {
		if secret, err := credential.Get(cfg.LastAddress); err == nil {
			form.Prefill(cfg.LastAddress, secret)
		}
	}
	initCmd := form.Start()
	keymap := keys.DefaultKeyMap()

	return Model{
		cfg:      cfg,
		cfgPath:  cfgPath,
		engine:   newEngine(cfg),
		phase:    PhaseForm,
		keymap:   keymap,
		form:     form,
		progress: progressview.New("Scanning mailbox", 80, 24),
		senders:  senderlist.New(keymap, 80, 24),
		helpView: help.New(keymap, 80, 24),
		initCmd:  initCmd,
	}
}

// Init starts the scan form.
func (m Model) Init() tea.Cmd {
	return m.initCmd
}

// Update handles messages and dispatches to the active phase.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.form.SetSize(w, h)
		m.progress.SetSize(w, h)
		m.senders.SetSize(w, h)
		m.helpView.SetSize(w, h)
		// Forward so the huh form can recalculate its layout.
		return m.updateActiveView(msg)

	case scanform.SubmittedMsg:
		return m.startScan(msg)

	case scanform.CancelMsg:
		m.cancelActive()
		return m, tea.Quit

	case scanProgressMsg:
		if msg.token == m.token && m.phase == PhaseScanning {
			m.progress.SetProgress(msg.progress.Fraction, msg.progress.Status)
		}
		return m, m.resubscribe()

	case scanFailedMsg:
		if msg.token != m.token {
			return m, m.resubscribe()
		}
		m.phase = PhaseForm
		m.status = mailbox.Guidance(msg.err)
		return m, m.resetForm()

	case scanDoneMsg:
		if msg.token != m.token {
			return m, m.resubscribe()
		}
		return m.finishScan(msg)

	case senderlist.PurgeRequestMsg:
		m.phase = PhaseConfirm
		m.confirmSenders = msg.Senders
		m.confirmEstimated = msg.Estimated
		return m, nil

	case senderlist.OpenUnsubscribeMsg:
		url := msg.URL
		return m, func() tea.Msg {
			return unsubscribeOpenedMsg{url: url, err: openBrowser(url)}
		}

	case unsubscribeOpenedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Could not open %s: %v", msg.url, msg.err)
		} else {
			m.status = "Unsubscribe page opened in browser."
		}
		return m, nil

	case senderlist.CloseMsg:
		m.phase = PhaseForm
		m.status = ""
		return m, m.resetForm()

	case purgeProgressMsg:
		if msg.token == m.token && m.phase == PhasePurging {
			m.progress.SetProgress(msg.fraction,
				fmt.Sprintf("Removing messages from %s (%d of %d senders)",
					msg.sender, msg.index+1, msg.total))
		}
		return m, m.resubscribe()

	case purgeDoneMsg:
		if msg.token != m.token {
			return m, m.resubscribe()
		}
		return m.finishPurge(msg)

	case tea.KeyMsg:
		if handled, mdl, cmd := m.handleKey(msg); handled {
			return mdl, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleKey processes phase-global keys. handled=false lets the active
// view consume the key instead.
func (m Model) handleKey(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		if msg.String() == "ctrl+c" {
			m.cancelActive()
			return true, m, tea.Quit
		}
		return true, m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		m.cancelActive()
		return true, m, tea.Quit

	case "?":
		// The form needs literal "?" input; everywhere else it opens help.
		if m.phase != PhaseForm {
			m.showHelp = true
			return true, m, nil
		}

	case "q":
		if m.phase == PhaseResults {
			return true, m, tea.Quit
		}

	case "esc":
		switch m.phase {
		case PhaseScanning:
			m.cancelActive()
			m.phase = PhaseForm
			m.status = "Scan cancelled."
			return true, m, m.resetForm()
		case PhasePurging:
			m.cancelActive()
			m.phase = PhaseResults
			m.status = "Purge cancelled; some messages may already be removed."
			return true, m, nil
		case PhaseConfirm:
			m.phase = PhaseResults
			return true, m, nil
		}

	case "y", "enter":
		if m.phase == PhaseConfirm {
			mdl, cmd := m.startPurge()
			return true, mdl, cmd
		}
	}

	return false, m, nil
}

// startScan records the submitted settings, persists the credential
// choice, and launches the background scan.
func (m Model) startScan(msg scanform.SubmittedMsg) (tea.Model, tea.Cmd) {
	m.creds = msg.Credentials
	m.deleteMode = msg.DeleteMode
	m.status = ""

	m.persistCredentialChoice(msg.Remember)

	m.token = uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go m.engine.runScan(ctx, m.token, msg.Credentials, msg.Depth, msg.FetchMode)

	m.phase = PhaseScanning
	m.progress.SetTitle("Scanning " + m.creds.Folder)
	m.progress.SetProgress(0, "Connecting...")
	return m, tea.Batch(m.progress.Init(), m.engine.waitForEvent())
}

// finishScan installs the snapshot and switches to the results panel.
func (m Model) finishScan(msg scanDoneMsg) (tea.Model, tea.Cmd) {
	m.snapshot = msg.snapshot
	m.totalInFolder = msg.totalInFolder
	m.partialNote = ""
	if msg.result.Partial() {
		m.partialNote = fmt.Sprintf(
			"Partial scan: %d of %d chunks failed; results are usable but incomplete.",
			msg.result.FailedChunks, msg.result.TotalChunks)
	}

	m.senders.SetTable(m.snapshot.Senders(), m.snapshot.TotalRecords(), m.partialNote)
	m.status = fmt.Sprintf("Scanned %d of %d messages in %s.",
		msg.scanned, m.totalInFolder, m.creds.Folder)
	m.phase = PhaseResults
	return m, nil
}

// startPurge launches the background purge for the confirmed senders.
func (m Model) startPurge() (tea.Model, tea.Cmd) {
	m.token = uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go m.engine.runPurge(ctx, m.token, m.creds, m.confirmSenders, m.deleteMode)

	m.phase = PhasePurging
	m.progress.SetTitle("Removing messages")
	m.progress.SetProgress(0, "Starting...")
	return m, tea.Batch(m.progress.Init(), m.engine.waitForEvent())
}

// finishPurge reconciles the local snapshot with the confirmed removals
// and reports the outcome, including any trash fallback.
func (m Model) finishPurge(msg purgeDoneMsg) (tea.Model, tea.Cmd) {
	if m.snapshot != nil {
		m.snapshot.RemoveSenders(msg.removedSenders)
		m.senders.SetTable(m.snapshot.Senders(), m.snapshot.TotalRecords(), m.partialNote)
	}

	parts := []string{fmt.Sprintf("Removed %d messages from %d senders.",
		msg.totalRemoved, len(msg.removedSenders))}
	if msg.fallbackApplied {
		parts = append(parts,
			"Trash was unavailable; some messages were permanently deleted instead.")
	}
	parts = append(parts, msg.failures...)
	m.status = strings.Join(parts, " ")

	m.phase = PhaseResults
	return m, nil
}

// persistCredentialChoice stores or clears the keyring entry and records
// the choice in the config file. The secret itself never touches the
// config file.
func (m *Model) persistCredentialChoice(remember bool) {
	if remember {
		if err := credential.Set(m.creds.Address, m.creds.Secret); err == nil {
			m.cfg.RememberCredentials = true
			m.cfg.LastAddress = m.creds.Address
			_ = model.SaveConfig(m.cfgPath, m.cfg)
		}
		return
	}

	if m.cfg.LastAddress == m.creds.Address {
		_ = credential.Delete(m.creds.Address)
		m.cfg.RememberCredentials = false
		m.cfg.LastAddress = ""
		_ = model.SaveConfig(m.cfgPath, m.cfg)
	}
}

// resetForm rebuilds the scan form, keeping the current credentials.
func (m *Model) resetForm() tea.Cmd {
	m.form = scanform.New(m.cfg, m.layout.ContentWidth(), m.layout.ContentHeight())
	if m.creds.Address != "" {
		m.form.Prefill(m.creds.Address, m.creds.Secret)
	}
	return m.form.Start()
}

// resubscribe keeps the engine event subscription alive while a
// background run is active.
func (m Model) resubscribe() tea.Cmd {
	if m.phase == PhaseScanning || m.phase == PhasePurging {
		return m.engine.waitForEvent()
	}
	return nil
}

// cancelActive cancels the in-flight background run, if any.
func (m *Model) cancelActive() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// updateActiveView dispatches the message to the active phase's view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.phase {
	case PhaseForm:
		m.form, cmd = m.form.Update(msg)
	case PhaseScanning, PhasePurging:
		m.progress, cmd = m.progress.Update(msg)
	case PhaseResults:
		m.senders, cmd = m.senders.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Inbox Assassin", m.phase.String())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) renderContent() string {
	if m.showHelp {
		return m.helpView.View()
	}

	switch m.phase {
	case PhaseForm:
		return m.form.View()
	case PhaseScanning, PhasePurging:
		return m.progress.View()
	case PhaseResults:
		return m.senders.View()
	case PhaseConfirm:
		return m.renderConfirm()
	default:
		return ""
	}
}

// renderConfirm shows the destructive-action confirmation panel.
func (m Model) renderConfirm() string {
	modeLabel := "moved to Trash"
	if m.deleteMode == model.DeletePermanent {
		modeLabel = "PERMANENTLY deleted"
	}

	lines := []string{
		theme.WarnStyle.Render(fmt.Sprintf(
			"About to remove ~%d messages from %d senders.",
			m.confirmEstimated, len(m.confirmSenders))),
		fmt.Sprintf("Matching messages will be %s.", modeLabel),
		"The server is searched again per sender, so messages outside the scan window are included.",
		"",
		theme.HelpStyle.Render("y confirm | esc cancel"),
	}

	return theme.PanelStyle.Render(strings.Join(lines, "\n"))
}

// statusHints returns the status bar content: the pending status message
// when present, otherwise the phase's keyboard hints.
func (m Model) statusHints() string {
	if m.showHelp {
		return "any key to close help"
	}
	if m.status != "" {
		return m.status
	}

	switch m.phase {
	case PhaseForm:
		return "enter next field | esc quit"
	case PhaseScanning:
		return "esc cancel scan"
	case PhaseResults:
		return "space select | enter purge | u unsubscribe | esc new scan | ? help | q quit"
	case PhaseConfirm:
		return "y confirm | esc cancel"
	case PhasePurging:
		return "esc cancel purge"
	default:
		return ""
	}
}
