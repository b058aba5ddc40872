package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, m)

	m, err = ParseClock(" 9:05 ")
	require.NoError(t, err)
	assert.Equal(t, 545, m)

	for _, bad := range []string{"", "noon", "24:00", "12:60", "-1:00",
		"09:30xyz", "09:30:45", "+9:-0", "9:", ":30", "009:30", "09 :30"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:00", FormatClock(480))
	assert.Equal(t, "13:05", FormatClock(785))
	assert.Equal(t, "25:15", FormatClock(1515))
	assert.Equal(t, "00:00", FormatClock(-3))
}

func TestParseTimeWindow(t *testing.T) {
	w, err := ParseTimeWindow("09:00", "11:30")
	require.NoError(t, err)
	assert.Equal(t, TimeWindow{Start: 540, End: 690}, w)
	assert.True(t, w.Contains(540))
	assert.True(t, w.Contains(690))
	assert.False(t, w.Contains(691))
	assert.Equal(t, "09:00-11:30", w.String())

	_, err = ParseTimeWindow("12:00", "10:00")
	assert.Error(t, err)
	_, err = ParseTimeWindow("12:00", "late")
	assert.Error(t, err)
}

func TestDeliveryType(t *testing.T) {
	dt, ok := ParseDeliveryType("EXPRESS")
	assert.True(t, ok)
	assert.Equal(t, Express, dt)
	assert.Equal(t, 3, dt.Weight())

	dt, ok = ParseDeliveryType("overnight")
	assert.False(t, ok)
	assert.Equal(t, Standard, dt)
	assert.Equal(t, 1, dt.Weight())
	assert.Equal(t, 2, Scheduled.Weight())
}

func TestScheduledWindow(t *testing.T) {
	w := TimeWindow{Start: 600, End: 660}
	_, ok := Package{Type: Standard, Window: &w}.ScheduledWindow()
	assert.False(t, ok)
	got, ok := Package{Type: Scheduled, Window: &w}.ScheduledWindow()
	assert.True(t, ok)
	assert.Equal(t, w, got)
}

func TestSettingsMerge(t *testing.T) {
	on := true
	capN := 40
	base := OptimizerSettings{ForceStrategy: "solver"}
	got := base.Merge(OptimizerSettings{ComparisonMode: &on, ExternalMaxPackages: &capN})
	assert.Equal(t, "solver", got.ForceStrategy)
	require.NotNil(t, got.ComparisonMode)
	assert.True(t, *got.ComparisonMode)
	assert.Equal(t, 40, *got.ExternalMaxPackages)
	assert.Nil(t, got.SolverTimeBudgetMs)
}
