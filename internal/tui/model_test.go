package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"druglookup/internal/resolver"
)

type fakeResolver struct {
	queries []string
	outcome resolver.Outcome
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, q string) (resolver.Outcome, error) {
	f.queries = append(f.queries, q)
	return f.outcome, f.err
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	require.True(t, ok)
	return got, cmd
}

func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestUpdate_ResolvesInBackground(t *testing.T) {
	svc := &fakeResolver{outcome: resolver.Outcome{
		Kind:  resolver.FoundRemote,
		Route: resolver.RouteRemote,
		Text:  "Active Ingredients: Ibuprofen\nInactive Ingredients: N/A",
	}}
	m := New(context.Background(), svc, "")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, cmd := submit(t, m, "  ibuprofen ")
	require.NotNil(t, cmd)
	// the lookup runs in the command, not in Update
	assert.Empty(t, svc.queries)
	assert.True(t, m.pending)
	assert.Contains(t, m.status, "Looking up")
	assert.Empty(t, m.input.Value())

	msg := cmd()
	assert.Equal(t, []string{"ibuprofen"}, svc.queries)

	m, cmd = update(t, m, msg)
	assert.Nil(t, cmd)
	assert.False(t, m.pending)
	assert.Contains(t, m.status, "remote lookup")
	assert.Contains(t, m.View(), "Ibuprofen")
}

func TestUpdate_IgnoresEnterWhilePending(t *testing.T) {
	svc := &fakeResolver{}
	m, cmd := submit(t, New(context.Background(), svc, ""), "aspirin")
	require.NotNil(t, cmd)

	_, cmd = submit(t, m, "tylenol")
	assert.Nil(t, cmd)
}

func TestUpdate_ExitQuits(t *testing.T) {
	svc := &fakeResolver{}
	m := New(context.Background(), svc, "")

	_, cmd := submit(t, m, "Exit")
	assert.True(t, isQuit(cmd))
	assert.Empty(t, svc.queries)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.True(t, isQuit(cmd))
}

func TestUpdate_BlankIgnored(t *testing.T) {
	svc := &fakeResolver{}
	_, cmd := submit(t, New(context.Background(), svc, ""), "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, svc.queries)
}

func TestUpdate_ErrorQuits(t *testing.T) {
	boom := errors.New("chat failed")
	m, cmd := submit(t, New(context.Background(), &fakeResolver{err: boom}, ""), "aspirin")
	require.NotNil(t, cmd)

	m, cmd = update(t, m, cmd())
	assert.True(t, isQuit(cmd))
	assert.ErrorIs(t, m.Err(), boom)
}

func TestHighlightIngredients(t *testing.T) {
	text := "Active Ingredients: Aspirin 81 mg, Caffeine\nInactive Ingredients: starch"
	got := highlightIngredients(text, "aspirin")
	assert.Contains(t, got, "Aspirin 81 mg")
	assert.Contains(t, got, "Caffeine")
	assert.Equal(t, 2, strings.Count(got, "\n")+1)
	assert.Equal(t, "No results yet.", New(context.Background(), &fakeResolver{}, "").renderOutcome())
}
