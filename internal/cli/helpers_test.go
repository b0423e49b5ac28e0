package cli

import (
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a longer card title", 10, "a longe..."},
		{"Доработка формы", 8, "Дораб..."},
		{"abcdef", 3, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Fatalf("unexpected date %v", got)
	}

	today, _ := parseDate("today")
	yesterday, _ := parseDate("yesterday")
	if !yesterday.AddDate(0, 0, 1).Equal(today) {
		t.Fatalf("yesterday %v is not the day before %v", yesterday, today)
	}
	if today.Hour() != 0 || today.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", today)
	}

	if _, err := parseDate("15/03/2024"); err == nil {
		t.Fatal("expected error for bad format")
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("card", "42"); err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, err := parseID("card", bad); err == nil {
			t.Errorf("parseID(%q) expected error", bad)
		}
	}
}
