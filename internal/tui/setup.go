// ABOUTME: Interactive TUI wizard for configuring feedsync storage and refresh.
// ABOUTME: 3-step bubbletea model collecting backend, data directory, and retry attempts.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/harper/feedsync/internal/config"
	"github.com/harper/feedsync/internal/storage"
)

// Step represents the current wizard step.
type Step int

const (
	StepBackend Step = iota
	StepDataDir
	StepAttempts
	StepDone
)

const stepCount = 3

var backends = []string{storage.BackendFile, storage.BackendSQLite, storage.BackendCharm}

// SetupResult holds the values collected by the wizard.
type SetupResult struct {
	Backend         string
	DataDir         string
	RefreshAttempts int
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step     Step
	inputs   [stepCount]textinput.Model
	errMsg   string
	quitting bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewSetupModel creates a new setup wizard model, pre-filling with existing config values.
func NewSetupModel(current SetupResult) SetupModel {
	backendInput := textinput.New()
	backendInput.Placeholder = config.DefaultBackend
	backendInput.Focus()
	backendInput.Width = 50
	if current.Backend != "" {
		backendInput.SetValue(current.Backend)
	}

	dataDirInput := textinput.New()
	dataDirInput.Placeholder = storage.GetDefaultDataDir()
	dataDirInput.Width = 50
	if current.DataDir != "" {
		dataDirInput.SetValue(current.DataDir)
	}

	attemptsInput := textinput.New()
	attemptsInput.Placeholder = strconv.Itoa(config.DefaultRefreshAttempts)
	attemptsInput.Width = 10
	attemptsInput.CharLimit = 3
	if current.RefreshAttempts > 0 {
		attemptsInput.SetValue(strconv.Itoa(current.RefreshAttempts))
	}

	return SetupModel{
		step:   StepBackend,
		inputs: [stepCount]textinput.Model{backendInput, dataDirInput, attemptsInput},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SetupModel) editing() bool {
	return m.step < StepDone
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			return m, tea.Quit
		}

		if m.editing() {
			return m.updateInput(msg)
		}
	default:
		// Forward other messages (e.g. cursor blink) to the active input
		if m.editing() {
			idx := int(m.step)
			var cmd tea.Cmd
			m.inputs[idx], cmd = m.inputs[idx].Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		return m.handleEnter()
	}

	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) handleEnter() (tea.Model, tea.Cmd) {
	idx := int(m.step)
	val := strings.TrimSpace(m.inputs[idx].Value())
	m.errMsg = ""

	switch m.step {
	case StepBackend:
		if val == "" {
			val = config.DefaultBackend
		}
		val = strings.ToLower(val)
		if !lo.Contains(backends, val) {
			m.errMsg = fmt.Sprintf("unknown backend %q", val)
			return m, nil
		}
	case StepDataDir:
		if val == "" {
			val = storage.GetDefaultDataDir()
		}
	case StepAttempts:
		if val == "" {
			val = strconv.Itoa(config.DefaultRefreshAttempts)
		}
		if n, err := strconv.Atoi(val); err != nil || n < 1 {
			m.errMsg = "attempts must be a positive number"
			return m, nil
		}
	}
	m.inputs[idx].SetValue(val)
	m.inputs[idx].Blur()

	switch m.step {
	case StepBackend:
		// Charm keeps its data in the charm cloud store.
		if val == storage.BackendCharm {
			m.step = StepAttempts
		} else {
			m.step = StepDataDir
		}
	case StepDataDir:
		m.step = StepAttempts
	case StepAttempts:
		m.step = StepDone
		return m, tea.Quit
	}
	m.inputs[m.step].Focus()
	return m, textinput.Blink
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   FEEDSYNC"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Configure where subscriptions and favorites are stored.\n\n")

	switch m.step {
	case StepBackend:
		b.WriteString(stepStyle.Render("Step 1 of 3: Storage Backend"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(fmt.Sprintf("(%s, press Enter for default)", strings.Join(backends, ", "))))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepBackend].View())
		b.WriteString("\n")

	case StepDataDir:
		b.WriteString(fmt.Sprintf("  Backend: %s\n\n", m.inputs[StepBackend].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 3: Data Directory"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(fmt.Sprintf("(press Enter for default: %s)", storage.GetDefaultDataDir())))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepDataDir].View())
		b.WriteString("\n")

	case StepAttempts:
		b.WriteString(fmt.Sprintf("  Backend: %s\n\n", m.inputs[StepBackend].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: Refresh Attempts"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("(fetch tries per refresh before a feed is marked in error)"))
		b.WriteString("\n")
		b.WriteString(m.inputs[StepAttempts].View())
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("Configuration saved!"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  Backend:          %s\n", m.inputs[StepBackend].Value()))
		if m.inputs[StepBackend].Value() != storage.BackendCharm {
			b.WriteString(fmt.Sprintf("  Data directory:   %s\n", m.inputs[StepDataDir].Value()))
		}
		b.WriteString(fmt.Sprintf("  Refresh attempts: %s\n", m.inputs[StepAttempts].Value()))
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered values.
func (m SetupModel) Result() SetupResult {
	attempts, _ := strconv.Atoi(m.inputs[StepAttempts].Value())
	r := SetupResult{
		Backend:         m.inputs[StepBackend].Value(),
		RefreshAttempts: attempts,
	}
	if r.Backend != storage.BackendCharm {
		r.DataDir = m.inputs[StepDataDir].Value()
	}
	return r
}

// ShouldSave returns true if the wizard completed and the user did not cancel.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}

// Apply copies the wizard's values into cfg.
func (r SetupResult) Apply(cfg *config.Config) {
	cfg.Backend = r.Backend
	cfg.DataDir = r.DataDir
	if r.RefreshAttempts > 0 {
		cfg.RefreshAttempts = r.RefreshAttempts
	}
}
