// Package render draws a progress view for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"jardin/internal/level"
	"jardin/internal/model"
)

var (
	colorLeaf   = lipgloss.Color("#5FAF5F")
	colorSoil   = lipgloss.Color("#3A3A3A")
	colorMuted  = lipgloss.Color("#8A8A8A")
	colorQueued = lipgloss.Color("#D7AF5F")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLeaf)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSoil).
			Padding(0, 1)
)

// Bar is a horizontal progress bar with an optional label.
type Bar struct {
	Label   string
	Percent float64
	Width   int
}

func (b Bar) View() string {
	var result string
	if b.Label != "" {
		result = b.Label + "  "
	}
	barWidth := b.Width - lipgloss.Width(result) - 6
	if barWidth < 4 {
		barWidth = 4
	}
	percent := b.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	filled := int(float64(barWidth) * percent)
	empty := barWidth - filled

	result += lipgloss.NewStyle().Foreground(colorLeaf).Render(strings.Repeat("█", filled))
	result += lipgloss.NewStyle().Foreground(colorSoil).Render(strings.Repeat("░", empty))
	result += mutedStyle.Render(fmt.Sprintf(" %3d%%", int(percent*100+0.5)))
	return result
}

// Progress renders the header, both bars and the plant cards of view.
func Progress(view model.ProgressView, width int) string {
	if width < 30 {
		width = 30
	}
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Nivel %d · %s", view.Level, view.Title)))
	b.WriteString("\n")
	b.WriteString(Bar{Label: "Visibles ", Percent: ratio(view.Confirmed, view.Visible), Width: width}.View())
	b.WriteString("\n")
	b.WriteString(levelBar(view, width))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d/%d plantas vistas · %d en total · %d pendientes", view.Confirmed, view.Visible, view.TotalSeen, view.PendingCount)))
	if !view.Online {
		b.WriteString(mutedStyle.Render(" · sin conexión"))
	}

	if len(view.Cards) > 0 {
		lines := make([]string, 0, len(view.Cards))
		for _, card := range view.Cards {
			lines = append(lines, cardLine(card))
		}
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	}
	return b.String()
}

func levelBar(view model.ProgressView, width int) string {
	if view.NextLevelAt == 0 {
		return Bar{Label: "Nivel max", Percent: 1, Width: width}.View()
	}
	from := level.Threshold(level.For(view.TotalSeen))
	return Bar{
		Label:   fmt.Sprintf("Nivel %d  ", level.For(view.TotalSeen)+1),
		Percent: ratio(view.TotalSeen-from, view.NextLevelAt-from),
		Width:   width,
	}.View()
}

func cardLine(card model.PlantCard) string {
	switch card.Status {
	case model.StatusConfirmed:
		return lipgloss.NewStyle().Foreground(colorLeaf).Render("✔ " + card.ID)
	case "queued":
		return lipgloss.NewStyle().Foreground(colorQueued).Render("… " + card.ID)
	default:
		return mutedStyle.Render("· " + card.ID)
	}
}

func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}
