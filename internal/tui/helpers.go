package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/andy/kaitenbill/internal/domain"
)

// formatMoney formats an amount with the configured currency, e.g. "12 750 ₽"
func formatMoney(amount decimal.Decimal, currency string) string {
	return domain.FormatCurrency(amount, currency)
}

// truncateStr truncates a string to the specified length with ellipsis.
// Card titles are often Cyrillic, so it counts runes.
func truncateStr(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// padRight pads to width runes so Cyrillic titles keep the columns aligned
func padRight(s string, width int) string {
	n := len([]rune(s))
	for ; n < width; n++ {
		s += " "
	}
	return s
}

func statusBadge(status domain.InvoiceStatus) string {
	switch status {
	case domain.InvoiceStatusDraft:
		return lipgloss.NewStyle().Foreground(mutedColor).Render("DRAFT")
	case domain.InvoiceStatusSent:
		return lipgloss.NewStyle().Foreground(warningColor).Render("SENT")
	case domain.InvoiceStatusPaid:
		return lipgloss.NewStyle().Foreground(successColor).Render("PAID")
	default:
		return string(status)
	}
}

// clampCursor keeps a list cursor inside [0, n)
func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
