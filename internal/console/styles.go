package console

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for console output
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - prompt, banner border
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, X marks
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

const (
	minBannerWidth = 40
	maxBannerWidth = 72
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	keyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "⚠"
)

func renderSuccess(msg string) string {
	return successStyle.Render(SuccessMarker + " " + msg)
}

func renderFailure(msg string) string {
	return errorStyle.Render(FailureMarker + " " + msg)
}

func renderWarning(msg string) string {
	return warningStyle.Render(WarningMarker + " " + msg)
}

func renderField(key, value string) string {
	return keyStyle.Render(key+":") + " " + valueStyle.Render(value)
}

// terminalWidth returns the banner width for stdout, with fallback.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minBannerWidth {
		return minBannerWidth
	}
	if width > maxBannerWidth {
		return maxBannerWidth
	}
	return width
}

// Banner renders the boot banner shown before the first prompt.
func Banner(title, subtitle string) string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(title),
		mutedStyle.Render(subtitle),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1).
		Width(terminalWidth() - 2).
		Render(content)
}
