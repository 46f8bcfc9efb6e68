package listview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/meetai/meetai/internal/domain"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle = cellStyle.Reverse(true)
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Column renders one field of a row.
type Column[T any] struct {
	Title string
	// Width caps the rendered cell, in terminal cells. Zero means no cap.
	Width int
	Value func(T) string
}

// EmptyState is shown instead of a table with no rows.
type EmptyState struct {
	Title       string
	Description string
}

// MeetingCanceled is shown in place of a meeting's session once it has
// been cancelled.
var MeetingCanceled = EmptyState{
	Title:       "Meeting canceled",
	Description: "This meeting has been cancelled.",
}

// Render draws the empty state.
func (e EmptyState) Render() string {
	return titleStyle.Render(e.Title) + "\n" + mutedStyle.Render(e.Description)
}

// Table renders items with a fixed column set.
type Table[T any] struct {
	Columns []Column[T]
	Empty   EmptyState
	// Selected is the highlighted row, or -1 for none.
	Selected int
	// OnActivate, if set, is called with the activated row.
	OnActivate func(T)
}

// Render draws items, or the empty state when there are none.
func (t Table[T]) Render(items []T) string {
	if len(items) == 0 {
		return t.Empty.Render()
	}
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Title
	}
	rows := make([][]string, len(items))
	for i, it := range items {
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = truncate(c.Value(it), c.Width)
		}
		rows[i] = row
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == t.Selected:
				return selectedStyle
			default:
				return cellStyle
			}
		}).
		Render()
}

// Activate calls OnActivate with items[i]. It reports false when rows are
// not activatable or i is out of range.
func (t Table[T]) Activate(items []T, i int) bool {
	if t.OnActivate == nil || i < 0 || i >= len(items) {
		return false
	}
	t.OnActivate(items[i])
	return true
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// AgentTable is the agents list table. now anchors relative times.
func AgentTable(now func() time.Time) Table[domain.AgentListItem] {
	return Table[domain.AgentListItem]{
		Selected: -1,
		Columns: []Column[domain.AgentListItem]{
			{Title: "Name", Width: 28, Value: func(a domain.AgentListItem) string { return a.Name }},
			{Title: "Instructions", Width: 40, Value: func(a domain.AgentListItem) string { return a.Instructions }},
			{Title: "Meetings", Value: func(a domain.AgentListItem) string { return countLabel(a.MeetingCount, "meeting") }},
			{Title: "Updated", Value: func(a domain.AgentListItem) string { return relTime(a.UpdatedAt, now()) }},
			{Title: "ID", Value: func(a domain.AgentListItem) string { return a.ID }},
		},
		Empty: EmptyState{
			Title:       "Create your first agent",
			Description: "Create an agent to join your meetings. Each agent will follow your instructions and can interact with participants during the call.",
		},
	}
}

// MeetingTable is the meetings list table. now anchors relative times.
func MeetingTable(now func() time.Time) Table[domain.MeetingListItem] {
	return Table[domain.MeetingListItem]{
		Selected: -1,
		Columns: []Column[domain.MeetingListItem]{
			{Title: "Name", Width: 28, Value: func(m domain.MeetingListItem) string { return m.Name }},
			{Title: "Agent", Width: 20, Value: func(m domain.MeetingListItem) string { return m.AgentName }},
			{Title: "Status", Value: func(m domain.MeetingListItem) string { return m.Status.Label() }},
			{Title: "Duration", Value: func(m domain.MeetingListItem) string { return FormatDuration(m.DurationSeconds) }},
			{Title: "Created", Value: func(m domain.MeetingListItem) string { return relTime(m.CreatedAt, now()) }},
			{Title: "ID", Value: func(m domain.MeetingListItem) string { return m.ID }},
		},
		Empty: EmptyState{
			Title:       "Create your first meeting",
			Description: "Schedule a meeting to connect with others. Each meeting can have multiple AI agents to assist you.",
		},
	}
}

// FormatDuration renders seconds as e.g. "1h 2m 5s", or "No duration".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "No duration"
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

func countLabel(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
