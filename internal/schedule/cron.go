// Package schedule parses the five-field cron expressions used by prune
// targets and answers whether, and when next, a minute is due.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Spec struct {
	expr   string
	minute field
	hour   field
	dom    field
	month  field
	dow    field
}

type field struct {
	any    bool
	values map[int]struct{}
}

var descriptors = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@hourly":   "0 * * * *",
}

// Parse accepts "minute hour day-of-month month day-of-week" or one of the
// @hourly style descriptors.
func Parse(expr string) (Spec, error) {
	expr = strings.TrimSpace(expr)
	src := expr
	if d, ok := descriptors[strings.ToLower(expr)]; ok {
		src = d
	}

	parts := strings.Fields(src)
	if len(parts) != 5 {
		return Spec{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}

	bounds := []struct {
		name     string
		min, max int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 6},
	}

	fields := make([]field, len(parts))
	for i, b := range bounds {
		f, err := parseField(parts[i], b.min, b.max)
		if err != nil {
			return Spec{}, fmt.Errorf("%s: %w", b.name, err)
		}
		fields[i] = f
	}

	return Spec{
		expr:   expr,
		minute: fields[0],
		hour:   fields[1],
		dom:    fields[2],
		month:  fields[3],
		dow:    fields[4],
	}, nil
}

func (s Spec) String() string { return s.expr }

// Matches reports whether t falls in a due minute. When both day fields are
// restricted either one matching is enough, as in classic cron.
func (s Spec) Matches(t time.Time) bool {
	return s.minute.has(t.Minute()) &&
		s.hour.has(t.Hour()) &&
		s.month.has(int(t.Month())) &&
		s.dayMatches(t)
}

// maxLookahead bounds Next so an impossible date such as "0 0 31 2 *"
// cannot loop forever.
const maxLookahead = 5 * 366 * 24 * time.Hour

// Next returns the first due minute strictly after t.
func (s Spec) Next(t time.Time) (time.Time, bool) {
	cur := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(maxLookahead)
	for cur.Before(limit) {
		if !s.month.has(int(cur.Month())) {
			cur = time.Date(cur.Year(), cur.Month()+1, 1, 0, 0, 0, 0, cur.Location())
			continue
		}
		if !s.dayMatches(cur) {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day()+1, 0, 0, 0, 0, cur.Location())
			continue
		}
		if !s.hour.has(cur.Hour()) {
			cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour()+1, 0, 0, 0, cur.Location())
			continue
		}
		if s.minute.has(cur.Minute()) {
			return cur, true
		}
		cur = cur.Add(time.Minute)
	}
	return time.Time{}, false
}

func (s Spec) dayMatches(t time.Time) bool {
	domOK := s.dom.has(t.Day())
	dowOK := s.dow.has(int(t.Weekday()))
	if !s.dom.any && !s.dow.any {
		return domOK || dowOK
	}
	return domOK && dowOK
}

func (f field) has(v int) bool {
	if f.any {
		return true
	}
	_, ok := f.values[v]
	return ok
}

func parseField(token string, min, max int) (field, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return field{}, fmt.Errorf("empty field")
	}
	if token == "*" {
		return field{any: true}, nil
	}

	set := make(map[int]struct{})
	for _, part := range strings.Split(token, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return field{}, fmt.Errorf("empty list element")
		}

		rng, step := part, 1
		if i := strings.Index(part, "/"); i >= 0 {
			n, err := strconv.Atoi(part[i+1:])
			if err != nil || n <= 0 {
				return field{}, fmt.Errorf("invalid step %q", part)
			}
			rng, step = part[:i], n
		}

		start, end, err := parseRange(rng, min, max)
		if err != nil {
			return field{}, err
		}
		// "5/15" means 5, 20, 35, 50.
		if step > 1 && !strings.Contains(rng, "-") && rng != "*" {
			end = max
		}
		for v := start; v <= end; v += step {
			set[v] = struct{}{}
		}
	}

	if len(set) == 0 {
		return field{}, fmt.Errorf("no values")
	}
	return field{values: set}, nil
}

func parseRange(s string, min, max int) (int, int, error) {
	if s == "*" {
		return min, max, nil
	}
	if strings.Contains(s, "-") {
		ends := strings.SplitN(s, "-", 2)
		start, errA := strconv.Atoi(strings.TrimSpace(ends[0]))
		end, errB := strconv.Atoi(strings.TrimSpace(ends[1]))
		if errA != nil || errB != nil {
			return 0, 0, fmt.Errorf("invalid range %q", s)
		}
		if start > end || start < min || end > max {
			return 0, 0, fmt.Errorf("range out of bounds %q", s)
		}
		return start, end, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", s)
	}
	if v < min || v > max {
		return 0, 0, fmt.Errorf("value out of bounds %d", v)
	}
	return v, v, nil
}
