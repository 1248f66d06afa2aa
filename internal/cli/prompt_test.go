package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmModel(t *testing.T) {
	tests := []struct {
		name      string
		msg       tea.Msg
		answered  bool
		confirmed bool
	}{
		{"yes", runes("y"), true, true},
		{"upper yes", runes("Y"), true, true},
		{"no", runes("n"), true, false},
		{"enter declines", tea.KeyMsg{Type: tea.KeyEnter}, true, false},
		{"ctrl+c declines", tea.KeyMsg{Type: tea.KeyCtrlC}, true, false},
		{"other key ignored", runes("x"), false, false},
		{"non-key ignored", tea.WindowSizeMsg{Width: 80}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, cmd := newConfirmModel("Update it?").Update(tt.msg)
			m := next.(confirmModel)
			if m.answered != tt.answered || m.confirmed != tt.confirmed {
				t.Errorf("answered=%v confirmed=%v, want %v %v", m.answered, m.confirmed, tt.answered, tt.confirmed)
			}
			if tt.answered {
				if cmd == nil {
					t.Fatal("answer should quit the program")
				}
				if _, ok := cmd().(tea.QuitMsg); !ok {
					t.Error("answer should return tea.Quit")
				}
			} else if cmd != nil {
				t.Error("unanswered model should not quit")
			}
		})
	}
}

func TestConfirmModelView(t *testing.T) {
	m := newConfirmModel("Update it?")
	if v := m.View(); v == "" {
		t.Error("View() should show the question")
	}
	next, _ := m.Update(runes("y"))
	if v := next.View(); v == "" {
		t.Error("View() should show the answer")
	}
}
