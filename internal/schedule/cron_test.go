package schedule

import (
	"testing"
	"time"
)

func TestParseAcceptsCommonForms(t *testing.T) {
	cases := []string{
		"* * * * *",
		"*/5 * * * *",
		"0 2 * * *",
		"0,15,30,45 9-17 * * 1-5",
		"0-30/10 * * * *",
		"5/15 * * * *",
		"@hourly",
		"@Daily",
	}

	for _, expr := range cases {
		if _, err := Parse(expr); err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", expr, err)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []string{
		"61 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * * 13 *",
		"* * * * 7",
		"* * * *",
		"bad * * * *",
		"*/0 * * * *",
		"10-5 * * * *",
		"@sometimes",
	}

	for _, expr := range cases {
		if _, err := Parse(expr); err == nil {
			t.Fatalf("Parse(%q) expected error, got nil", expr)
		}
	}
}

func TestSpecMatches(t *testing.T) {
	spec, err := Parse("15 2 * * 1-5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	match := time.Date(2026, 2, 20, 2, 15, 0, 0, time.UTC) // Friday
	noMatchMinute := time.Date(2026, 2, 20, 2, 16, 0, 0, time.UTC)
	noMatchDow := time.Date(2026, 2, 21, 2, 15, 0, 0, time.UTC) // Saturday

	if !spec.Matches(match) {
		t.Fatalf("expected match at %s", match)
	}
	if spec.Matches(noMatchMinute) {
		t.Fatalf("expected no match at %s", noMatchMinute)
	}
	if spec.Matches(noMatchDow) {
		t.Fatalf("expected no match at %s", noMatchDow)
	}
}

func TestStepFromValue(t *testing.T) {
	spec, err := Parse("5/15 * * * *")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, m := range []int{5, 20, 35, 50} {
		if !spec.Matches(time.Date(2026, 1, 1, 0, m, 0, 0, time.UTC)) {
			t.Fatalf("expected minute %d to match", m)
		}
	}
	if spec.Matches(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("minute 0 should not match")
	}
}

func TestDayFieldsAreOredWhenBothRestricted(t *testing.T) {
	spec, err := Parse("0 0 1 * 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	firstOfMonth := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) // Wednesday
	monday := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC)

	if !spec.Matches(firstOfMonth) || !spec.Matches(monday) {
		t.Fatalf("expected first-of-month and monday to match")
	}
	if spec.Matches(tuesday) {
		t.Fatalf("tuesday the 7th should not match")
	}
}

func TestNext(t *testing.T) {
	cases := []struct {
		expr string
		from time.Time
		want time.Time
	}{
		{"*/15 * * * *", time.Date(2026, 1, 1, 10, 7, 30, 0, time.UTC), time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC)},
		{"0 2 * * *", time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 2, 0, 0, 0, time.UTC)},
		{"@monthly", time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"30 9 * * 1", time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC), time.Date(2026, 2, 23, 9, 30, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		spec, err := Parse(tc.expr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.expr, err)
		}
		got, ok := spec.Next(tc.from)
		if !ok {
			t.Fatalf("Next(%q) found nothing", tc.expr)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("Next(%q) from %s = %s, want %s", tc.expr, tc.from, got, tc.want)
		}
	}
}

func TestNextImpossibleDate(t *testing.T) {
	spec, err := Parse("0 0 31 2 *")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := spec.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatalf("expected no next run for Feb 31")
	}
}
