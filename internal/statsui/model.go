// Package statsui provides the Bubble Tea contribution panel.
package statsui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/ghstreak/internal/panel"
	"github.com/verte-zerg/ghstreak/internal/refresh"
	"github.com/verte-zerg/ghstreak/internal/stats"
)

const (
	headerHeight  = 2
	footerHeight  = 2
	minSparkDays  = 7
	maxSparkDays  = 365
	sparkPadding  = 4
	errorIndent   = 32
	timeLayout    = "Jan 2 15:04"
	waitingNotice = "Waiting for the first refresh..."
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	sparkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAF5F"))
)

// Refresher performs an on-demand refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context) refresh.Update
}

type updateMsg struct {
	update    refresh.Update
	scheduled bool
}

type updatesClosedMsg struct{}

// Model implements the Bubble Tea contribution panel.
type Model struct {
	ctx       context.Context
	refresher Refresher
	updates   <-chan refresh.Update

	current    refresh.Update
	hasUpdate  bool
	refreshing bool

	spinner  spinner.Model
	viewport viewport.Model

	width  int
	height int
}

// NewModel constructs the panel. Scheduled updates arrive on updates; the
// refresher serves manual refreshes and may be nil.
func NewModel(ctx context.Context, refresher Refresher, updates <-chan refresh.Update) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = labelStyle
	return &Model{
		ctx:        ctx,
		refresher:  refresher,
		updates:    updates,
		refreshing: updates != nil,
		spinner:    sp,
		viewport:   viewport.New(0, 0),
	}
}

// Current returns the update on display and whether one has arrived.
func (m *Model) Current() (refresh.Update, bool) {
	return m.current, m.hasUpdate
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "r":
			return m.startRefresh()
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	case updateMsg:
		m.apply(msg.update)
		if msg.scheduled {
			return m, waitForUpdate(m.updates)
		}
		return m, nil
	case updatesClosedMsg:
		m.updates = nil
		m.refreshing = false
		return m, nil
	case spinner.TickMsg:
		if !m.refreshing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	if m.width > 0 && m.height > 0 {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderBody())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) startRefresh() (tea.Model, tea.Cmd) {
	if m.refreshing || m.refresher == nil {
		return m, nil
	}
	m.refreshing = true
	ctx := m.ctx
	refresher := m.refresher
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return updateMsg{update: refresher.Refresh(ctx)}
	})
}

func (m *Model) apply(upd refresh.Update) {
	m.current = upd
	m.hasUpdate = true
	m.refreshing = false
	m.updateLayout()
}

func (m *Model) updateLayout() {
	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = bodyHeight
	m.viewport.SetContent(m.renderBody())
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("ghstreak")
	if m.current.Login != "" {
		title += headerStyle.Render(" · " + m.current.Login)
	}
	status := ""
	switch {
	case m.refreshing:
		status = m.spinner.View() + headerStyle.Render(" refreshing")
	case m.current.HasRecord():
		status = labelStyle.Render(panel.Label(m.current.Record))
	}
	if status == "" {
		return title
	}
	return title + "  " + status
}

func (m *Model) renderBody() string {
	if !m.current.HasRecord() {
		if m.current.Err != nil {
			return errorStyle.Render(fmt.Sprintf("No statistics available: %v", m.current.Err))
		}
		return headerStyle.Render(waitingNotice)
	}

	rec := m.current.Record
	sections := panel.Menu(rec)
	cards := make([]string, 0, len(sections)+1)
	for _, section := range sections {
		cards = append(cards, renderSectionCard(section))
	}
	cards = append(cards, renderCard("Calendar", []string{
		fmt.Sprintf("Total: %s", cardValueStyle.Render(fmt.Sprintf("%d", m.current.TotalContributions))),
	}))

	days := sparkDays(m.width, rec.WindowDays())
	counts := stats.DailyCounts(m.current.Series, m.current.ComputedAt, days)
	spark := renderCard(fmt.Sprintf("Daily activity (last %d days)", days), []string{
		sparkStyle.Render(stats.Sparkline(counts)),
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(cards)...),
		spark,
	)
}

func (m *Model) renderFooter() string {
	var parts []string
	if m.current.HasRecord() {
		parts = append(parts, headerStyle.Render("fetched "+m.current.FetchedAt.Format(timeLayout)))
	}
	if m.current.Stale {
		parts = append(parts, staleStyle.Render("stale"))
	}
	if m.current.Err != nil {
		parts = append(parts, errorStyle.Render(truncateLine(m.current.Err.Error(), m.width-errorIndent)))
	}
	status := strings.Join(parts, "  ")
	help := headerStyle.Render("r refresh  ↑/↓ scroll  q quit")
	if status == "" {
		return help
	}
	return status + "\n" + help
}

func renderSectionCard(section panel.Section) string {
	lines := make([]string, 0, len(section.Items))
	for _, item := range section.Items {
		lines = append(lines, fmt.Sprintf("%s %s: %s", item.Icon, item.Label, cardValueStyle.Render(fmt.Sprintf("%d", item.Value))))
	}
	return renderCard(section.Title, lines)
}

func renderCard(title string, lines []string) string {
	body := append([]string{cardTitleStyle.Render(title)}, lines...)
	return cardStyle.Render(strings.Join(body, "\n"))
}

func joinWithGap(blocks []string) []string {
	out := make([]string, 0, len(blocks)*2)
	for i, block := range blocks {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, block)
	}
	return out
}

func sparkDays(width, windowDays int) int {
	days := maxSparkDays
	if windowDays < days {
		days = windowDays
	}
	if width > 0 && width-sparkPadding < days {
		days = width - sparkPadding
	}
	if days < minSparkDays {
		days = minSparkDays
	}
	return days
}

func waitForUpdate(updates <-chan refresh.Update) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		upd, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg{update: upd, scheduled: true}
	}
}

func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
