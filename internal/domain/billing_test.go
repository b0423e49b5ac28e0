package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatTimeSpent(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "—"},
		{-5, "—"},
		{45, "45m"},
		{60, "1h"},
		{90, "1h 30m"},
		{600, "10h"},
		{1501, "25h 1m"},
	}

	for _, tc := range cases {
		if got := FormatTimeSpent(tc.minutes); got != tc.want {
			t.Errorf("FormatTimeSpent(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestFormatHM_Zero(t *testing.T) {
	if got := FormatHM(0, 0); got != "0m" {
		t.Fatalf("expected 0m, got %q", got)
	}
}

func TestFormatHM_RoundTrip(t *testing.T) {
	for m := 0; m <= 3*24*60; m += 7 {
		h, mm := SplitMinutes(m)
		parsed, err := ParseTimeSpent(FormatHM(h, mm))
		if err != nil {
			t.Fatalf("ParseTimeSpent(FormatHM(%d, %d)): %v", h, mm, err)
		}
		ph, pm := SplitMinutes(parsed)
		if ph != h || pm != mm {
			t.Fatalf("round trip for %d minutes gave (%d, %d), want (%d, %d)", m, ph, pm, h, mm)
		}
	}
}

func TestParseTimeSpent(t *testing.T) {
	cases := map[string]int{
		"90":     90,
		"1:30":   90,
		"2h":     120,
		"45m":    45,
		"1h 5m":  65,
		" 3H  ":  180,
		"—":      0,
		"0m":     0,
		"10h 0m": 600,
	}
	for in, want := range cases {
		got, err := ParseTimeSpent(in)
		if err != nil {
			t.Errorf("ParseTimeSpent(%q) unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseTimeSpent(%q) = %d, want %d", in, got, want)
		}
	}

	for _, bad := range []string{"", "abc", "1x", "1:75", "-4", "h"} {
		if _, err := ParseTimeSpent(bad); err == nil {
			t.Errorf("ParseTimeSpent(%q) expected error", bad)
		}
	}
}

func TestCalculateCost(t *testing.T) {
	rate := decimal.NewFromInt(DefaultHourlyRate)
	cases := []struct {
		minutes int
		want    int64
	}{
		{0, 0},
		{60, 850},
		{90, 1275},
		{120, 1700},
	}
	for _, tc := range cases {
		got := CalculateCost(tc.minutes, rate)
		if !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Errorf("CalculateCost(%d) = %s, want %d", tc.minutes, got, tc.want)
		}
	}
}

func TestInvoiceAmount(t *testing.T) {
	rate := decimal.NewFromInt(DefaultHourlyRate)
	cards := []*InvoiceCard{{TimeSpent: 60}, {TimeSpent: 30}, {TimeSpent: 0}}

	got := InvoiceAmount(cards, rate)
	if !got.Equal(decimal.NewFromInt(1275)) {
		t.Fatalf("expected 1275, got %s", got)
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		amount   decimal.Decimal
		currency string
		want     string
	}{
		{decimal.NewFromInt(0), "RUB", "0 ₽"},
		{decimal.NewFromInt(850), "RUB", "850 ₽"},
		{decimal.NewFromInt(12750), "RUB", "12 750 ₽"},
		{decimal.NewFromFloat(1234567.6), "USD", "1 234 568 $"},
		{decimal.NewFromInt(-1500), "EUR", "-1 500 €"},
	}
	for _, tc := range cases {
		if got := FormatCurrency(tc.amount, tc.currency); got != tc.want {
			t.Errorf("FormatCurrency(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}
