package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"druglookup/internal/resolver"
)

// ResolverPort is the TUI-facing subset of the resolver.
type ResolverPort interface {
	Resolve(ctx context.Context, query string) (resolver.Outcome, error)
}

// Model is the Bubble Tea model for the lookup screen.
type Model struct {
	ctx       context.Context
	service   ResolverPort
	input     textinput.Model
	viewport  viewport.Model
	outcome   *resolver.Outcome
	header    string
	status    string
	ready     bool
	lastQuery string
	pending   bool
	err       error
}

// resolvedMsg carries the result of a lookup started by resolveCmd.
type resolvedMsg struct {
	query   string
	outcome resolver.Outcome
	err     error
}

func resolveCmd(ctx context.Context, service ResolverPort, query string) tea.Cmd {
	return func() tea.Msg {
		out, err := service.Resolve(ctx, query)
		return resolvedMsg{query: query, outcome: out, err: err}
	}
}

// New creates a new TUI model instance. header is shown under the title.
func New(ctx context.Context, service ResolverPort, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter drug name (or 'exit' to quit)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, service: service, input: ti, viewport: vp, header: header, status: "Ready. Type a drug name."}
}

// Err returns the error that stopped the program, if any.
func (m Model) Err() error { return m.err }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header lines, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderOutcome())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if strings.EqualFold(q, resolver.ExitCommand) {
				return m, tea.Quit
			}
			if q == "" {
				return m, nil
			}
			if m.pending {
				return m, nil
			}
			m.pending = true
			m.input.SetValue("")
			m.status = fmt.Sprintf("Looking up %q...", q)
			return m, resolveCmd(m.ctx, m.service, q)
		}
	case resolvedMsg:
		m.pending = false
		if msg.err != nil {
			m.err = msg.err
			m.status = "Error: " + msg.err.Error()
			return m, tea.Quit
		}
		m.outcome = &msg.outcome
		m.lastQuery = msg.query
		m.status = fmt.Sprintf("%q: %s lookup, %s", msg.query, msg.outcome.Route, msg.outcome.Kind)
		m.viewport.SetContent(m.renderOutcome())
		m.viewport.GotoTop()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout and current outcome.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("Drug Ingredient Lookup")
	header := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return title + "\n" + header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderOutcome() string {
	if m.outcome == nil {
		return "No results yet."
	}
	return highlightIngredients(m.outcome.Message(), m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	labelStyle     = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	fieldRe        = regexp.MustCompile(`^((?:In)?[Aa]ctive Ingredients:)(.*)$`)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// highlightIngredients bolds the field labels and highlights ingredients
// sharing a word with the query.
func highlightIngredients(text, query string) string {
	qTokens := toTokenSet(query)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		mm := fieldRe.FindStringSubmatch(line)
		if mm == nil {
			continue
		}
		items := strings.Split(mm[2], ",")
		for j, item := range items {
			if overlaps(qTokens, item) {
				lead := item[:len(item)-len(strings.TrimLeft(item, " "))]
				items[j] = lead + highlightStyle.Render(strings.TrimSpace(item))
			}
		}
		lines[i] = labelStyle.Render(mm[1]) + strings.Join(items, ",")
	}
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlaps(queryTokens map[string]struct{}, s string) bool {
	if len(queryTokens) == 0 {
		return false
	}
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(s), -1) {
		if _, ok := queryTokens[t]; ok {
			return true
		}
	}
	return false
}
