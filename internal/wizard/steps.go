package wizard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Clients ---

func (m Model) updateClients(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "up", "k":
		if m.clientFocus > 0 {
			m.clientFocus--
		}
	case "down", "j":
		if m.clientFocus < 1 {
			m.clientFocus++
		}
	case " ":
		if m.clientFocus == 0 {
			m.includeClaude = !m.includeClaude
		} else {
			m.includeCodex = !m.includeCodex
		}
	case "enter":
		if m.includeClaude || m.includeCodex {
			m.step = StepBinDir
			m.binDir.Focus()
		}
	}
	return m, nil
}

func (m Model) viewClients() string {
	claude := "[ ]"
	if m.includeClaude {
		claude = "[x]"
	}
	codex := "[ ]"
	if m.includeCodex {
		codex = "[x]"
	}

	claudeLine := normalStyle.Render(fmt.Sprintf("%s Claude Code", claude))
	codexLine := normalStyle.Render(fmt.Sprintf("%s Codex", codex))
	if m.clientFocus == 0 {
		claudeLine = selectedStyle.Render(fmt.Sprintf("> %s Claude Code", claude))
	} else {
		codexLine = selectedStyle.Render(fmt.Sprintf("> %s Codex", codex))
	}

	return m.renderProgress() +
		titleStyle.Render("Which clients should skrills manage skills for?") + "\n\n" +
		claudeLine + "\n" + codexLine + "\n" +
		helpStyle.Render("space: toggle · enter: continue · q: quit")
}

// --- Bin dir ---

func (m Model) updateBinDir(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok && keyMsg.String() == "enter" {
		m.step = StepUniversal
		return m, nil
	}
	var cmd tea.Cmd
	m.binDir, cmd = m.binDir.Update(msg)
	return m, cmd
}

func (m Model) viewBinDir() string {
	return m.renderProgress() +
		titleStyle.Render("Where should the skrills binary be installed?") + "\n\n" +
		m.binDir.View() + "\n\n" +
		helpStyle.Render("enter: continue · esc: back · q: quit")
}

// --- Universal sync ---

func (m Model) updateUniversal(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case " ":
		m.universal = !m.universal
	case "enter":
		m.step = StepConfirm
	}
	return m, nil
}

func (m Model) viewUniversal() string {
	box := "[ ]"
	if m.universal {
		box = "[x]"
	}
	return m.renderProgress() +
		titleStyle.Render("Mirror skills into ~/.agent/skills?") + "\n\n" +
		normalStyle.Render(fmt.Sprintf("%s sync to universal directory", box)) + "\n\n" +
		helpStyle.Render("space: toggle · enter: continue · esc: back · q: quit")
}

// --- Confirm ---

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok && keyMsg.String() == "enter" {
		m.step = StepDone
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) viewConfirm() string {
	lines := []string{
		titleStyle.Render("Review"),
		"",
	}
	if m.includeClaude {
		lines = append(lines, normalStyle.Render("  Claude Code: enabled"))
	}
	if m.includeCodex {
		lines = append(lines, normalStyle.Render("  Codex: enabled"))
	}
	lines = append(lines, normalStyle.Render("  Bin dir: "+m.BinDir()))
	if m.universal {
		lines = append(lines, normalStyle.Render("  Universal sync: enabled"))
	}
	lines = append(lines, "", helpStyle.Render("enter: write config.toml and finish · esc: back · q: quit"))

	out := m.renderProgress()
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

func (m Model) viewDone() string {
	return successStyle.Render("Setup complete. config.toml written.\n")
}
