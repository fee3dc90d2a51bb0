package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"patentrag/internal/agent"
)

type recordingAsker struct {
	histories [][]agent.Exchange
	err       error
}

func (r *recordingAsker) Run(_ context.Context, query string, history []agent.Exchange) (*agent.Result, error) {
	r.histories = append(r.histories, history)
	if r.err != nil {
		return nil, r.err
	}
	return &agent.Result{Answer: "# Summary\nAnswer to " + query}, nil
}

func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected an ask command")
	}
	next, _ = next.(Model).Update(cmd())
	return next.(Model)
}

func TestChatCarriesHistory(t *testing.T) {
	asker := &recordingAsker{}
	m := New(context.Background(), asker, "2 documents indexed")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)

	m = submit(t, m, "gear patents")
	m = submit(t, m, "which one is newest")

	if len(asker.histories) != 2 || len(asker.histories[0]) != 0 || len(asker.histories[1]) != 1 {
		t.Fatalf("histories = %+v", asker.histories)
	}
	if asker.histories[1][0].Query != "gear patents" {
		t.Fatalf("history = %+v", asker.histories[1])
	}
	if len(m.History()) != 2 {
		t.Fatalf("model history = %+v", m.History())
	}
	if !strings.Contains(m.View(), "Patent Research") {
		t.Fatalf("view = %q", m.View())
	}
}

func TestChatErrorKeepsHistory(t *testing.T) {
	m := New(context.Background(), &recordingAsker{err: errors.New("service down")}, "")
	m = submit(t, m, "gear patents")
	if len(m.History()) != 0 {
		t.Fatalf("failed exchange recorded: %+v", m.History())
	}
	if !strings.Contains(m.status, "service down") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestHighlightBestSentenceSkipsHeadings(t *testing.T) {
	out := highlightBestSentence("# Gear patents\nUS1000001 covers helical gear teeth.\nOther text.", "helical gear")
	if !strings.HasPrefix(out, "# Gear patents\n") {
		t.Fatalf("heading changed: %q", out)
	}
	if !strings.Contains(out, "US1000001 covers helical gear teeth.") {
		t.Fatalf("best line lost: %q", out)
	}
}
