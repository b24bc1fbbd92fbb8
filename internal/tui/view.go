package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tally/internal/store"
)

const barWidth = 20

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	matchStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Underline(true)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	claimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	gestureStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tally"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  sort:%s  finished:%s", m.sortMode, m.finished)))
	if m.claimMode {
		b.WriteString(claimStyle.Render(fmt.Sprintf("  claim as %s", m.claimer)))
	}
	b.WriteString("\n")

	gathered, target := totalCompletion(m.master)
	percent := 0
	if target > 0 {
		percent = (gathered*100 + target/2) / target
	}
	b.WriteString(fmt.Sprintf("%s %d/%d (%d%%)\n", progressBar(gathered, target), gathered, target, percent))

	if m.focus == FocusFilter || m.query != "" {
		b.WriteString(fmt.Sprintf("/%s\n", m.query))
	}
	b.WriteString("\n")

	rows := m.visible()
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("no items"))
		b.WriteString("\n")
	}
	for i, r := range rows {
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("j/k move  h/l adjust  enter commit  esc cancel  / filter  s sort  f finished  c claim  x release  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderRow(r row, selected bool) string {
	item := r.item
	gathered := item.Gathered
	gesture := selected && m.dragging()

	var value string
	if gesture {
		if m.claimMode {
			value = gestureStyle.Render(fmt.Sprintf("claim +%d", m.gestureValue))
		} else {
			gathered = m.gestureValue
			value = gestureStyle.Render(fmt.Sprintf("%d/%d", gathered, item.Target))
		}
	} else {
		value = fmt.Sprintf("%d/%d", gathered, item.Target)
	}

	cursor := "  "
	if selected {
		cursor = "> "
	}

	name := highlightName(item.Name, r.positions)
	if selected {
		name = selectedStyle.Render(item.Name)
		if len(r.positions) > 0 {
			name = highlightName(item.Name, r.positions)
		}
	}
	if item.Completed() && !gesture {
		name = doneStyle.Render(item.Name)
	}

	line := fmt.Sprintf("%s%-30s %s %s", cursor, name, progressBar(gathered, item.Target), value)
	if claims := renderClaims(item); claims != "" {
		line += "  " + claimStyle.Render(claims)
	}
	return line
}

// highlightName underlines the matched rune positions.
func highlightName(name string, positions []int) string {
	if len(positions) == 0 {
		return name
	}
	matched := make(map[int]bool, len(positions))
	for _, p := range positions {
		matched[p] = true
	}
	var b strings.Builder
	for i, r := range []rune(name) {
		if matched[i] {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func progressBar(gathered, target int) string {
	filled := 0
	if target > 0 {
		filled = gathered * barWidth / target
	}
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// totalCompletion sums progress across the whole board.
func totalCompletion(items store.Snapshot) (gathered, target int) {
	for _, item := range items {
		gathered += item.Gathered
		target += item.Target
	}
	return gathered, target
}

func renderClaims(item store.Item) string {
	if len(item.Claims) == 0 {
		return ""
	}
	parts := make([]string, len(item.Claims))
	for i, c := range item.Claims {
		parts[i] = fmt.Sprintf("%s:%d", c.Claimer, c.ClaimEnd-c.ClaimStart)
	}
	return strings.Join(parts, " ")
}
