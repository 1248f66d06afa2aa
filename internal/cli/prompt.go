package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// isInteractive reports whether stdin is a terminal a prompt can read from.
func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// confirmModel is a single yes/no question. Anything but "y" declines.
type confirmModel struct {
	question  string
	answered  bool
	confirmed bool
}

func newConfirmModel(question string) confirmModel {
	return confirmModel{question: question}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "y":
		m.answered, m.confirmed = true, true
		return m, tea.Quit
	case "n", "q", "esc", "enter", "ctrl+c":
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		answer := "no"
		if m.confirmed {
			answer = "yes"
		}
		return fmt.Sprintf("%s %s %s\n", styleIconInfo.Render(iconInfo), m.question, StyleDim.Render(answer))
	}
	return fmt.Sprintf("%s %s %s ", styleIconInfo.Render(iconInfo), m.question, StyleDim.Render("[y/N]"))
}

// promptConfirm runs the confirm model on the terminal.
func promptConfirm(ctx context.Context, question string) (bool, error) {
	p := tea.NewProgram(newConfirmModel(question), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("prompt: %w", err)
	}
	m, ok := final.(confirmModel)
	return ok && m.confirmed, nil
}
