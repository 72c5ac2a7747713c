// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#4ECDC4")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#7BD389") // Green
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D") // Yellow
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B") // Red
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(PrimaryColor).
				Padding(0, 1)

	// TableCellStyle formats table cells with appropriate padding.
	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	// PromptStyle is used for user prompts.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	BalanceIcon = "💰"
	FolderIcon  = "🗄️"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the balance icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(BalanceIcon + " " + title)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, boxTitle, content))
}

// RenderTable renders rows under headers. Columns listed in rightAligned
// are right aligned, which suits amounts.
func RenderTable(headers []string, rows [][]string, rightAligned ...int) string {
	right := make(map[int]bool, len(rightAligned))
	for _, col := range rightAligned {
		right[col] = true
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := TableCellStyle
			if row == table.HeaderRow {
				style = TableHeaderStyle
			}
			if right[col] {
				return style.Align(lipgloss.Right)
			}
			return style
		})

	return t.String()
}
