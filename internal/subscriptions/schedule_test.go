package subscriptions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

func TestNextDeliveryDate(t *testing.T) {
	t.Parallel()
	// 2024-05-15 is a Wednesday.
	wed := time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		freq enums.SubscriptionFrequency
		day  enums.DeliveryDay
		from time.Time
		want time.Time
	}{
		{"daily", enums.FrequencyDaily, enums.Monday, wed, time.Date(2024, 5, 16, 9, 30, 0, 0, time.UTC)},
		{"weekly later this week", enums.FrequencyWeekly, enums.Friday, wed, time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)},
		{"weekly next week", enums.FrequencyWeekly, enums.Monday, wed, time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)},
		{"weekly same day is a week out", enums.FrequencyWeekly, enums.Wednesday, wed, time.Date(2024, 5, 22, 9, 30, 0, 0, time.UTC)},
		{"weekly sunday", enums.FrequencyWeekly, enums.Sunday, wed, time.Date(2024, 5, 19, 9, 30, 0, 0, time.UTC)},
		{"monthly", enums.FrequencyMonthly, enums.Monday, wed, time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)},
		{"monthly overflow", enums.FrequencyMonthly, enums.Monday, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextDeliveryDate(tc.freq, tc.day, tc.from)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := NextDeliveryDate("fortnightly", enums.Monday, wed)
	assert.Error(t, err)
}

func TestRollForwardSkipsMissedCycles(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

	next, err := rollForward(enums.FrequencyDaily, enums.Monday, due, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 5, 8, 0, 0, 0, time.UTC), next)
}
