// Package wizard implements the interactive first-run setup flow for
// skrills: picking which clients to configure, where to install the
// binary, and whether to mirror skills into the universal
// ~/.agent/skills directory. It writes the resulting choices into a
// config.Config, which the setup command saves as config.toml.
package wizard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clawinfra/skrills/internal/config"
)

// Step identifies a screen in the wizard flow.
type Step int

const (
	StepClients Step = iota
	StepBinDir
	StepUniversal
	StepConfirm
	StepDone
)

// Model holds the wizard's live state while bubbletea drives it.
type Model struct {
	step     Step
	cfg      *config.Config
	err      error
	quitting bool

	clientFocus    int
	includeClaude  bool
	includeCodex   bool

	binDir textinput.Model

	universal bool

	width, height int
}

// New builds the initial wizard model, seeded from config.DefaultConfig.
func New() Model {
	home, _ := os.UserHomeDir()

	binDir := textinput.New()
	binDir.Placeholder = filepath.Join(home, ".claude", "bin")
	binDir.CharLimit = 512

	return Model{
		step:          StepClients,
		cfg:           config.DefaultConfig(),
		includeClaude: true,
		includeCodex:  false,
		binDir:        binDir,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.step != StepDone {
				m.quitting = true
				return m, tea.Quit
			}
		case "esc":
			if m.step > StepClients && m.step < StepDone {
				m.step--
				return m, nil
			}
		}
	}

	switch m.step {
	case StepClients:
		return m.updateClients(msg)
	case StepBinDir:
		return m.updateBinDir(msg)
	case StepUniversal:
		return m.updateUniversal(msg)
	case StepConfirm:
		return m.updateConfirm(msg)
	case StepDone:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return quitStyle.Render("Setup cancelled.\n")
	}

	var content string
	switch m.step {
	case StepClients:
		content = m.viewClients()
	case StepBinDir:
		content = m.viewBinDir()
	case StepUniversal:
		content = m.viewUniversal()
	case StepConfirm:
		content = m.viewConfirm()
	case StepDone:
		content = m.viewDone()
	}
	return content
}

// Config returns the config.Config produced from wizard choices,
// populating Sources.IncludeClaude/IncludeMarketplace per selections.
func (m Model) Config() *config.Config {
	cfg := m.cfg
	cfg.Sources.IncludeClaude = m.includeClaude
	cfg.Sources.IncludeMarketplace = m.includeCodex
	return cfg
}

// BinDir returns the resolved binary installation directory.
func (m Model) BinDir() string {
	if v := m.binDir.Value(); v != "" {
		return v
	}
	return m.binDir.Placeholder
}

// Universal reports whether the universal ~/.agent/skills mirror was
// requested.
func (m Model) Universal() bool { return m.universal }

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	quitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) renderProgress() string {
	names := []string{"Clients", "Bin Dir", "Universal", "Confirm"}
	steps := []Step{StepClients, StepBinDir, StepUniversal, StepConfirm}
	var out string
	for i, name := range names {
		switch {
		case steps[i] < m.step:
			out += successStyle.Render("✓ " + name)
		case steps[i] == m.step:
			out += selectedStyle.Render("● " + name)
		default:
			out += dimStyle.Render("○ " + name)
		}
		if i < len(names)-1 {
			out += dimStyle.Render(" → ")
		}
	}
	return out + "\n\n"
}

// Run starts the interactive wizard and returns the resulting config
// along with the chosen bin dir and universal-sync flag.
func Run() (*config.Config, string, bool, error) {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, "", false, fmt.Errorf("wizard error: %w", err)
	}

	m := final.(Model)
	if m.quitting {
		return nil, "", false, fmt.Errorf("wizard cancelled")
	}

	return m.Config(), m.BinDir(), m.Universal(), nil
}
