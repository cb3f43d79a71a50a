package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/nowledge/nm/internal"
)

var (
	styleBold  = lipgloss.NewStyle().Bold(true)
	styleDim   = lipgloss.NewStyle().Faint(true)
	styleLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	stylePass  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFail  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func formatScore(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

func formatImportance(importance float64) string {
	switch {
	case importance >= 0.8:
		return styleFail.Render("critical")
	case importance >= 0.6:
		return styleWarn.Render("high")
	case importance >= 0.4:
		return styleInfo.Render("medium")
	default:
		return styleDim.Render("low")
	}
}

// renderPreview appends the ellipsis marker to clipped previews.
func renderPreview(preview string, clipped bool) string {
	if clipped {
		return preview + "..."
	}
	return preview
}

func statusMark(status internal.CheckStatus) string {
	switch status {
	case internal.CheckPass:
		return stylePass.Render("✓")
	case internal.CheckFail:
		return styleFail.Render("✗")
	default:
		return styleDim.Render("-")
	}
}
