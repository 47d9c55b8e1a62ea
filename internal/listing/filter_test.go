package listing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/dirkit/internal/fsutil"
)

func TestParseTimeBound(t *testing.T) {
	tests := []struct {
		in         string
		wantWindow time.Duration
		wantAt     time.Time
	}{
		{in: "10000", wantWindow: 10 * time.Second},
		{in: "36h", wantWindow: 36 * time.Hour},
		{in: "1h30m", wantWindow: 90 * time.Minute},
		{in: "2024-01-02T03:04:05Z", wantAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2024-01-02", wantAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			b, err := ParseTimeBound(tt.in)
			require.NoError(t, err)
			require.True(t, b.IsSet())

			if at, ok := b.Instant(); ok {
				assert.True(t, at.Equal(tt.wantAt), "got %s", at)
				return
			}
			w, ok := b.Window()
			require.True(t, ok)
			assert.Equal(t, tt.wantWindow, w)
		})
	}
}

func TestParseTimeBoundEmptyIsUnset(t *testing.T) {
	for _, in := range []string{"  ", "0", "0s", "0ms"} {
		b, err := ParseTimeBound(in)
		require.NoError(t, err, in)
		assert.False(t, b.IsSet(), in)
	}
}

func TestParseTimeBoundRejectsGarbage(t *testing.T) {
	for _, in := range []string{"soon", "-5m", "-100"} {
		_, err := ParseTimeBound(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, fsutil.ErrInvalidArgument), in)
	}
}

func TestGlob(t *testing.T) {
	g, err := Glob("{app,web}-*.log")
	require.NoError(t, err)

	assert.True(t, g.MatchString("app-1.log"))
	assert.True(t, g.MatchString("web-2.log"))
	assert.False(t, g.MatchString("db-1.log"))
	assert.False(t, g.MatchString("app-1.txt"))
}

func TestGlobRejectsBadPattern(t *testing.T) {
	for _, p := range []string{"", "[a-"} {
		_, err := Glob(p)
		require.Error(t, err, p)
		assert.True(t, errors.Is(err, fsutil.ErrInvalidArgument))
	}
}

func TestTypeFilterZeroValueDropsEverything(t *testing.T) {
	f := FilterSpec{Type: &TypeFilter{}}
	now := time.Now()
	assert.False(t, f.keep(Entry{IsSymlink: true}, now))
	assert.False(t, f.keep(Entry{IsSymlink: false}, now))
}

func TestZeroWindowDoesNotFilter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	zero, err := ParseTimeBound("0")
	require.NoError(t, err)

	for _, f := range []FilterSpec{
		{ModifiedAfter: zero},
		{ModifiedBefore: zero},
		{ModifiedAfter: Within(0)},
	} {
		assert.True(t, f.keep(Entry{ModTime: now.Add(-time.Hour)}, now))
		assert.True(t, f.keep(Entry{ModTime: now.Add(-2 * time.Hour)}, now))
		assert.True(t, f.keep(Entry{ModTime: now.Add(time.Hour)}, now))
	}
}

func TestTimeBoundString(t *testing.T) {
	assert.Equal(t, "", TimeBound{}.String())
	assert.Equal(t, "1h0m0s", Within(time.Hour).String())
	assert.Equal(t, "2024-01-02T00:00:00Z", At(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)).String())
}
