package timegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(9*60+30), c)

	// seconds are truncated to the minute
	c, err = Parse("09:30:45")
	require.NoError(t, err)
	assert.Equal(t, Clock(9*60+30), c)

	c, err = Parse("00:00")
	require.NoError(t, err)
	assert.Equal(t, Clock(0), c)

	c, err = Parse("23:59")
	require.NoError(t, err)
	assert.Equal(t, Clock(23*60+59), c)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd", "12:00:xx", "12:00:00:00"} {
		_, err := Parse(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "09:00", MustParse("09:00").String())
	assert.Equal(t, "09:30", MustParse("09:30:00").String())
	assert.Equal(t, "00:05", Clock(5).String())
	assert.Equal(t, "16:30", Clock(16*60+30).String())
}

func TestExpand(t *testing.T) {
	got := Expand(MustParse("09:00"), MustParse("11:00"), 30)
	want := []Clock{
		MustParse("09:00"),
		MustParse("09:30"),
		MustParse("10:00"),
		MustParse("10:30"),
	}
	assert.Equal(t, want, got)
}

func TestExpandEmptyWindow(t *testing.T) {
	assert.Empty(t, Expand(MustParse("09:00"), MustParse("09:00"), 30))
	assert.Empty(t, Expand(MustParse("10:00"), MustParse("09:00"), 30))
}

func TestExpandStartsAtWindowStart(t *testing.T) {
	// the grid anchors at the window start, not the nearest half hour
	got := Expand(MustParse("09:15"), MustParse("10:00"), 30)
	want := []Clock{MustParse("09:15"), MustParse("09:45")}
	assert.Equal(t, want, got)
}

func TestExpandIsPure(t *testing.T) {
	start, end := MustParse("09:00"), MustParse("17:00")
	first := Expand(start, end, 30)
	second := Expand(start, end, 30)
	assert.Equal(t, first, second)
	assert.Len(t, first, 16)
}

func TestExpandDefaultStep(t *testing.T) {
	got := Expand(MustParse("09:00"), MustParse("10:00"), 0)
	want := []Clock{MustParse("09:00"), MustParse("09:30")}
	assert.Equal(t, want, got)
}
