package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultHourlyRate is the fixed rate invoices are displayed with
const DefaultHourlyRate = 850

// EmptyTimeSpent is shown instead of a duration when nothing was logged
const EmptyTimeSpent = "—"

// SplitMinutes splits a minute count into whole hours and remaining minutes
func SplitMinutes(total int) (hours, minutes int) {
	if total < 0 {
		total = 0
	}
	return total / 60, total % 60
}

// FormatHM renders an hours/minutes pair as "2h 5m", "2h", "5m" or "0m"
func FormatHM(hours, minutes int) string {
	switch {
	case hours == 0 && minutes == 0:
		return "0m"
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

// FormatTimeSpent renders a minute total for tables; zero renders as a dash
func FormatTimeSpent(total int) string {
	if total <= 0 {
		return EmptyTimeSpent
	}
	return FormatHM(SplitMinutes(total))
}

// ParseTimeSpent parses "1h 30m", "2h", "45m", "1:30" or a bare minute count
func ParseTimeSpent(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if s == EmptyTimeSpent {
		return 0, nil
	}

	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err := strconv.Atoi(h)
		if err != nil {
			return 0, fmt.Errorf("invalid hours in %q", s)
		}
		minutes, err := strconv.Atoi(m)
		if err != nil || minutes > 59 {
			return 0, fmt.Errorf("invalid minutes in %q", s)
		}
		return hours*60 + minutes, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return n, nil
	}

	total := 0
	for _, part := range strings.Fields(s) {
		var unit int
		switch {
		case strings.HasSuffix(part, "h"):
			unit = 60
		case strings.HasSuffix(part, "m"):
			unit = 1
		default:
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		n, err := strconv.Atoi(part[:len(part)-1])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		total += n * unit
	}
	return total, nil
}

// CalculateCost returns (minutes / 60) * hourlyRate. It is only ever shown,
// never stored, so a rate change moves every historical invoice total.
func CalculateCost(minutes int, hourlyRate decimal.Decimal) decimal.Decimal {
	if minutes <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(minutes)).Mul(hourlyRate).Div(decimal.NewFromInt(60))
}

// InvoiceAmount sums the display cost of every line item
func InvoiceAmount(cards []*InvoiceCard, hourlyRate decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cards {
		total = total.Add(CalculateCost(c.TimeSpent, hourlyRate))
	}
	return total
}

// FormatCurrency renders a whole-unit amount with thousands grouping,
// e.g. "12 750 ₽"
func FormatCurrency(amount decimal.Decimal, currency string) string {
	s := amount.Round(0).StringFixed(0)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	grouped := make([]byte, 0, len(s)+len(s)/3)
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			grouped = append(grouped, ' ')
		}
		grouped = append(grouped, s[i])
	}

	out := string(grouped)
	if negative {
		out = "-" + out
	}
	return out + " " + currencySymbol(currency)
}

func currencySymbol(code string) string {
	switch strings.ToUpper(code) {
	case "RUB", "":
		return "₽"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	default:
		return strings.ToUpper(code)
	}
}
