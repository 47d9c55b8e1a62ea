package listing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cast"

	"github.com/dev-tams/dirkit/internal/fsutil"
)

// NamePattern matches entry names. *regexp.Regexp satisfies it.
type NamePattern interface {
	MatchString(name string) bool
}

type globPattern string

func (g globPattern) MatchString(name string) bool {
	ok, _ := doublestar.Match(string(g), name)
	return ok
}

func (g globPattern) String() string { return string(g) }

// Glob compiles a doublestar pattern such as "app-*.log" or "{a,b}-*.txt".
func Glob(pattern string) (NamePattern, error) {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return nil, &fsutil.ArgumentError{Name: "glob", Reason: fmt.Sprintf("bad pattern %q", pattern)}
	}
	return globPattern(pattern), nil
}

// TypeFilter says which entry kinds survive. A kind whose flag is false is
// dropped, so the zero value drops everything.
type TypeFilter struct {
	Symlinks bool
	Files    bool
}

func (t TypeFilter) keep(e Entry) bool {
	if e.IsSymlink {
		return t.Symlinks
	}
	return t.Files
}

type boundKind uint8

const (
	boundUnset boundKind = iota
	boundAbsolute
	boundWindow
)

// TimeBound is either an absolute instant or a window measured back from
// now. The zero value is unset.
type TimeBound struct {
	kind   boundKind
	at     time.Time
	window time.Duration
}

func At(t time.Time) TimeBound { return TimeBound{kind: boundAbsolute, at: t} }

// Within bounds entries by age. A zero window does not filter and is
// returned unset.
func Within(d time.Duration) TimeBound {
	if d == 0 {
		return TimeBound{}
	}
	return TimeBound{kind: boundWindow, window: d}
}

func (b TimeBound) IsSet() bool { return b.kind != boundUnset }

// Instant returns the absolute reference, if b is one.
func (b TimeBound) Instant() (time.Time, bool) { return b.at, b.kind == boundAbsolute }

// Window returns the relative window, if b is one.
func (b TimeBound) Window() (time.Duration, bool) { return b.window, b.kind == boundWindow }

func (b TimeBound) String() string {
	switch b.kind {
	case boundAbsolute:
		return b.at.Format(time.RFC3339)
	case boundWindow:
		return b.window.String()
	default:
		return ""
	}
}

// ParseTimeBound reads a Go duration ("36h"), a bare integer of milliseconds
// or a timestamp. The empty string and a zero window ("0", "0s") are unset.
func ParseTimeBound(s string) (TimeBound, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeBound{}, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return TimeBound{}, &fsutil.ArgumentError{Name: "time bound", Reason: "negative window"}
		}
		return Within(time.Duration(ms) * time.Millisecond), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return TimeBound{}, &fsutil.ArgumentError{Name: "time bound", Reason: "negative window"}
		}
		return Within(d), nil
	}
	if t, err := cast.ToTimeE(s); err == nil {
		return At(t), nil
	}
	return TimeBound{}, &fsutil.ArgumentError{
		Name:   "time bound",
		Reason: fmt.Sprintf("%q is not a duration, millisecond count or timestamp", s),
	}
}

// FilterSpec is the fixed set of predicates a listing can apply. Unset fields
// do not filter.
type FilterSpec struct {
	Name         NamePattern
	Type         *TypeFilter
	ExcludeEmpty bool
	// ModifiedAfter keeps entries modified at or before an instant, or whose
	// age is within a window.
	ModifiedAfter TimeBound
	// ModifiedBefore keeps entries modified at or after an instant, or whose
	// age is at least a window.
	ModifiedBefore TimeBound
}

func (f FilterSpec) keep(e Entry, now time.Time) bool {
	if f.Type != nil && !f.Type.keep(e) {
		return false
	}
	if f.ExcludeEmpty && e.Size == 0 {
		return false
	}

	age := now.Sub(e.ModTime)
	switch f.ModifiedAfter.kind {
	case boundAbsolute:
		if e.ModTime.After(f.ModifiedAfter.at) {
			return false
		}
	case boundWindow:
		if age > f.ModifiedAfter.window {
			return false
		}
	}
	switch f.ModifiedBefore.kind {
	case boundAbsolute:
		if e.ModTime.Before(f.ModifiedBefore.at) {
			return false
		}
	case boundWindow:
		if age < f.ModifiedBefore.window {
			return false
		}
	}
	return true
}
