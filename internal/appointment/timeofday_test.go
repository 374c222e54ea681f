package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	valid := map[string]TimeOfDay{
		"00:00":    0,
		"09:30":    570,
		"9:05":     545,
		"23:59":    1439,
		"14:00:00": 840,
	}
	for in, want := range valid {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "24:00", "12:60", "12", "ab:cd", "10:00:30", "10:5"} {
		_, err := ParseTimeOfDay(in)
		assert.ErrorIs(t, err, ErrValidation, in)
	}
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "09:05", TimeOfDay(545).String())
	assert.Equal(t, "10:30", MustTimeOfDay("10:00").Add(30).String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2030-01-07")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, time.UTC, d.Location())

	_, err = ParseDate("07/01/2030")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDayName(t *testing.T) {
	assert.Equal(t, "Sunday", DayName(time.Sunday))
	assert.Equal(t, "Saturday", DayName(time.Saturday))
	assert.Equal(t, "", DayName(time.Weekday(9)))
}
