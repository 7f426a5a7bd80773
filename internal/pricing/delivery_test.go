package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedule(t *testing.T, free string) Schedule {
	t.Helper()
	schedule, err := NewSchedule([]Band{
		{Label: "outer", MinMeters: 8000, MaxMeters: 15000, BaseFee: dec("70"), PerKmFee: dec("4")},
		{Label: "near", MinMeters: 0, MaxMeters: 3000, BaseFee: dec("30")},
		{Label: "city", MinMeters: 3000, MaxMeters: 8000, BaseFee: dec("50")},
	}, dec(free))
	require.NoError(t, err)
	return schedule
}

func intPtr(v int) *int { return &v }

func TestResolveMissingDistance(t *testing.T) {
	schedule := testSchedule(t, "0")
	_, err := schedule.Resolve(nil, dec("500"))
	assert.ErrorIs(t, err, ErrMissingDistance)
}

func TestResolveBands(t *testing.T) {
	schedule := testSchedule(t, "0")
	cases := []struct {
		meters int
		fee    string
		zone   string
	}{
		{0, "30", "near"},
		{2999, "30", "near"},
		{3000, "50", "city"},
		{8000, "102", "outer"},
		{12345, "119.38", "outer"},
	}
	for _, tc := range cases {
		fee, err := schedule.Resolve(intPtr(tc.meters), dec("100"))
		require.NoError(t, err, "meters=%d", tc.meters)
		assert.True(t, fee.Amount.Equal(dec(tc.fee)), "meters=%d got %s", tc.meters, fee.Amount)
		assert.Equal(t, tc.zone, fee.ZoneLabel)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	schedule := testSchedule(t, "0")
	first, err := schedule.Resolve(intPtr(9100), dec("250"))
	require.NoError(t, err)
	second, err := schedule.Resolve(intPtr(9100), dec("250"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveOutOfRange(t *testing.T) {
	schedule := testSchedule(t, "0")
	_, err := schedule.Resolve(intPtr(15000), dec("100"))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestResolveFreeDeliveryThreshold(t *testing.T) {
	schedule := testSchedule(t, "1500")

	fee, err := schedule.Resolve(intPtr(4000), dec("1500"))
	require.NoError(t, err)
	assert.True(t, fee.Amount.IsZero())
	assert.Equal(t, "city", fee.ZoneLabel)

	fee, err = schedule.Resolve(intPtr(4000), dec("1499.99"))
	require.NoError(t, err)
	assert.True(t, fee.Amount.Equal(dec("50")))

	_, err = schedule.Resolve(nil, dec("5000"))
	assert.ErrorIs(t, err, ErrMissingDistance, "free delivery never bypasses the distance check")
}

func TestResolveFirstBandCoversShortDistances(t *testing.T) {
	schedule, err := NewSchedule([]Band{{Label: "town", MinMeters: 500, MaxMeters: 5000, BaseFee: dec("25")}}, decimal.Zero)
	require.NoError(t, err)
	fee, err := schedule.Resolve(intPtr(0), dec("10"))
	require.NoError(t, err)
	assert.True(t, fee.Amount.Equal(dec("25")))
}

func TestNewScheduleCollectsProblems(t *testing.T) {
	_, err := NewSchedule([]Band{
		{Label: "a", MinMeters: 0, MaxMeters: 4000, BaseFee: dec("10")},
		{Label: "b", MinMeters: 3000, MaxMeters: 2000, BaseFee: dec("-1")},
	}, dec("-5"))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "overlaps")
	assert.Contains(t, msg, "upper bound")
	assert.Contains(t, msg, "negative fee")
	assert.Contains(t, msg, "free delivery threshold")

	_, err = NewSchedule(nil, decimal.Zero)
	assert.Error(t, err)
}

func TestBandsAreSortedCopies(t *testing.T) {
	schedule := testSchedule(t, "0")
	bands := schedule.Bands()
	require.Len(t, bands, 3)
	assert.Equal(t, "near", bands[0].Label)
	bands[0].Label = "mutated"
	assert.Equal(t, "near", schedule.Bands()[0].Label)
}
