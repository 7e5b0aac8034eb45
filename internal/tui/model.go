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

	"pqrs/internal/domain"
	"pqrs/internal/params"
)

// ResolverPort is the TUI-facing subset of the retrieval service.
type ResolverPort interface {
	ResolveRanked(ctx context.Context, problemText string) (*domain.Resolution, []domain.RankedMatch, error)
	Warm(ctx context.Context) error
}

// warmedMsg reports the end of the background warm-up.
type warmedMsg struct{ err error }

// maxAlternatives caps how many ranked cases can be browsed with up/down.
const maxAlternatives = 10

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service    ResolverPort
	input      textinput.Model
	viewport   viewport.Model
	resolution *domain.Resolution
	results    []domain.RankedMatch
	summary    string
	status     string
	cursor     int
	ready      bool
	loading    bool
	lastQuery  string
}

// New creates a new TUI model instance.
func New(service ResolverPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the ticket and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, summary: summary, status: "Loading model...", loading: true}
}

// Init starts the cursor blink and loads the model in the background.
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.warm) }

func (m Model) warm() tea.Msg {
	return warmedMsg{err: m.service.Warm(context.Background())}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case warmedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Ready. Describe a problem."
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if m.loading {
				m.status = "Still loading model..."
				return m, nil
			}
			if q != "" {
				m = m.search(q)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) search(q string) Model {
	res, ranked, err := m.service.ResolveRanked(context.Background(), q)
	if err != nil {
		m.status = "Error: " + err.Error()
		m.resolution, m.results = nil, nil
		return m
	}
	if len(ranked) > maxAlternatives {
		ranked = ranked[:maxAlternatives]
	}
	m.resolution, m.results, m.cursor, m.lastQuery = res, ranked, 0, q
	switch {
	case len(ranked) == 0:
		m.status = "No cases in the store."
	case res == nil:
		m.status = fmt.Sprintf("No case above threshold for %q (best %.3f)", q, ranked[0].Score)
	default:
		m.status = fmt.Sprintf("Matched case #%d %s", res.Case.ID, res.Case.Category)
	}
	return m
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("PQRS Case Resolver")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Case %d/%d  #%d %s  score=%.3f", m.cursor+1, len(m.results), r.Case.ID, r.Case.Category, r.Score)
	if m.cursor == 0 && m.resolution != nil {
		title += "  " + matchStyle.Render("MATCH")
	}
	query := params.UnsafeFill(r.Case.QueryTemplate, params.Extract(m.lastQuery))
	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString(r.Case.ProblemText + "\n\n")
	b.WriteString(highlightPlaceholders(query) + "\n\n")
	b.WriteString(r.Case.ResponseTemplate)
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	matchStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	placeholderRe  = regexp.MustCompile(`\[[A-Z][A-Z0-9_]*\]`)
)

// highlightPlaceholders marks the values an operator still has to fill in.
func highlightPlaceholders(text string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(p string) string {
		return highlightStyle.Render(p)
	})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
