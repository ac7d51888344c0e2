package enums

import (
	"fmt"
	"strings"
	"time"
)

type SubscriptionFrequency string

const (
	FrequencyDaily   SubscriptionFrequency = "daily"
	FrequencyWeekly  SubscriptionFrequency = "weekly"
	FrequencyMonthly SubscriptionFrequency = "monthly"
)

var validFrequencies = []SubscriptionFrequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly}

func (f SubscriptionFrequency) IsValid() bool { return containsEnum(validFrequencies, f) }

func ParseSubscriptionFrequency(value string) (SubscriptionFrequency, error) {
	return parseEnum(validFrequencies, "subscription frequency", strings.ToLower(strings.TrimSpace(value)))
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

var validSubscriptionStatuses = []SubscriptionStatus{SubscriptionActive, SubscriptionPaused, SubscriptionCancelled}

func (s SubscriptionStatus) IsValid() bool { return containsEnum(validSubscriptionStatuses, s) }

func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	return parseEnum(validSubscriptionStatuses, "subscription status", strings.ToLower(strings.TrimSpace(value)))
}

// DeliveryDay is a lowercase weekday name.
type DeliveryDay string

const (
	Monday    DeliveryDay = "monday"
	Tuesday   DeliveryDay = "tuesday"
	Wednesday DeliveryDay = "wednesday"
	Thursday  DeliveryDay = "thursday"
	Friday    DeliveryDay = "friday"
	Saturday  DeliveryDay = "saturday"
	Sunday    DeliveryDay = "sunday"
)

var weekdays = map[DeliveryDay]time.Weekday{
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
}

func (d DeliveryDay) IsValid() bool {
	_, ok := weekdays[d]
	return ok
}

// Weekday converts the name to time.Weekday. Unknown names map to Monday.
func (d DeliveryDay) Weekday() time.Weekday {
	if wd, ok := weekdays[d]; ok {
		return wd
	}
	return time.Monday
}

func ParseDeliveryDay(value string) (DeliveryDay, error) {
	day := DeliveryDay(strings.ToLower(strings.TrimSpace(value)))
	if !day.IsValid() {
		var zero DeliveryDay
		return zero, fmt.Errorf("invalid delivery day %q", value)
	}
	return day, nil
}
