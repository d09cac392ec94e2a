package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestOverlapsInclusive(t *testing.T) {
	jan1 := Single(day(t, "2025-01-01"))
	jan2 := Single(day(t, "2025-01-02"))

	assert.True(t, jan1.Overlaps(jan1))
	assert.False(t, jan1.Overlaps(jan2))
	assert.False(t, jan2.Overlaps(jan1))

	end := day(t, "2025-01-05")
	week := New(day(t, "2025-01-02"), &end)
	assert.True(t, week.Overlaps(jan2))
	assert.True(t, jan2.Overlaps(week))
	assert.False(t, week.Overlaps(jan1))
	assert.Equal(t, 4, week.Days())
	assert.Equal(t, "2025-01-02..2025-01-05", week.String())
}

func TestNewNormalizesToDay(t *testing.T) {
	start := time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC)
	r := New(start, nil)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, r.Start, r.End)
	assert.True(t, r.Contains(start))
}

func TestValidate(t *testing.T) {
	end := day(t, "2024-12-31")
	r := New(day(t, "2025-01-01"), &end)
	assert.ErrorIs(t, r.Validate(), ErrInverted)
	assert.Equal(t, 0, r.Days())

	_, err := ParseDay("01/02/2025")
	assert.Error(t, err)
}
