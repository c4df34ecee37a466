// Package scanform is the credential and scan-settings form shown before
// a scan starts.
package scanform

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/asavschaeffer/email-assassin/internal/model"
	"github.com/asavschaeffer/email-assassin/internal/theme"
)

// SubmittedMsg is dispatched when the user submits the form.
type SubmittedMsg struct {
	Credentials model.Credentials
	Depth       int
	DeleteMode  model.DeleteMode
	FetchMode   model.FetchMode
	Remember    bool
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so huh's Value() pointers
// remain valid across Bubble Tea model copies.
type formBindings struct {
	address    string
	secret     string
	folder     string
	depth      string
	deleteMode string
	fetchMode  string
	remember   bool
}

// Model is the Bubble Tea model for the scan form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a scan form preloaded with config defaults.
func New(cfg *model.AppConfig, width, height int) Model {
	return Model{
		fb: &formBindings{
			folder:     cfg.Scan.DefaultFolder,
			depth:      "0",
			deleteMode: string(model.DeleteTrash),
			fetchMode:  cfg.Scan.Mode,
			remember:   cfg.RememberCredentials,
		},
		width:  width,
		height: height,
	}
}

// Prefill sets the address and secret fields, used when a stored
// credential was found in the keyring.
func (m *Model) Prefill(address, secret string) {
	m.fb.address = address
	m.fb.secret = secret
}

// Start (re)initializes the form.
func (m *Model) Start() tea.Cmd {
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Scan a mailbox") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email address").
				Placeholder("you@gmail.com").
				Value(&m.fb.address).
				Validate(validateAddress),
			huh.NewInput().
				Title("App password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.secret).
				Validate(validateRequired("App password")),
			huh.NewInput().
				Title("Folder").
				Placeholder("INBOX").
				Value(&m.fb.folder),
			huh.NewInput().
				Title("Scan depth").
				Description("Newest N messages; 0 scans everything").
				Value(&m.fb.depth).
				Validate(validateDepth),
			huh.NewSelect[string]().
				Title("Removal mode").
				Options(
					huh.NewOption("Move to Trash", string(model.DeleteTrash)),
					huh.NewOption("Permanently delete", string(model.DeletePermanent)),
				).
				Value(&m.fb.deleteMode),
			huh.NewSelect[string]().
				Title("Scan detail").
				Options(
					huh.NewOption("Fast (sender only)", string(model.FetchFast)),
					huh.NewOption("Full (subject, date, unsubscribe links)", string(model.FetchFull)),
				).
				Value(&m.fb.fetchMode),
			huh.NewConfirm().
				Title("Remember password in system keyring?").
				Value(&m.fb.remember),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	folder := strings.TrimSpace(m.fb.folder)
	if folder == "" {
		folder = "INBOX"
	}

	depth, _ := strconv.Atoi(strings.TrimSpace(m.fb.depth))

	msg := SubmittedMsg{
		Credentials: model.Credentials{
			Address: strings.TrimSpace(m.fb.address),
			Secret:  m.fb.secret,
			Folder:  folder,
		},
		Depth:      depth,
		DeleteMode: model.DeleteMode(m.fb.deleteMode),
		FetchMode:  model.FetchMode(m.fb.fetchMode),
		Remember:   m.fb.remember,
	}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateAddress(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("Email address is required")
	}
	if !strings.Contains(s, "@") {
		return fmt.Errorf("not a valid email address")
	}
	return nil
}

func validateDepth(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative number")
	}
	return nil
}
