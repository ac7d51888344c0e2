package subscriptions

import (
	"fmt"
	"time"

	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
)

// NextDeliveryDate returns the first delivery after from. Weekly schedules land
// on the target weekday strictly after from, a full week out when from already
// falls on it. Monthly schedules follow time.AddDate normalization, so Jan 31
// rolls into early March.
func NextDeliveryDate(freq enums.SubscriptionFrequency, day enums.DeliveryDay, from time.Time) (time.Time, error) {
	switch freq {
	case enums.FrequencyDaily:
		return from.AddDate(0, 0, 1), nil
	case enums.FrequencyWeekly:
		offset := (int(day.Weekday()) - int(from.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return from.AddDate(0, 0, offset), nil
	case enums.FrequencyMonthly:
		return from.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid subscription frequency %q", freq)
	}
}

// rollForward advances a due date until it is after now. Missed cycles are
// skipped rather than replayed.
func rollForward(freq enums.SubscriptionFrequency, day enums.DeliveryDay, due, now time.Time) (time.Time, error) {
	next, err := NextDeliveryDate(freq, day, due)
	if err != nil {
		return time.Time{}, err
	}
	for !next.After(now) {
		if next, err = NextDeliveryDate(freq, day, next); err != nil {
			return time.Time{}, err
		}
	}
	return next, nil
}
