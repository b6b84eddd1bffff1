package bot

import (
	"fmt"
	"strings"
	"time"
)

const (
	secondsPerDay   = 24 * 60 * 60
	deliveryWindow  = 60 * time.Second
	timeOfDayLayout = "15:04:05"
)

// NormalizeTimeOfDay accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM:SS"
func NormalizeTimeOfDay(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{timeOfDayLayout, "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(timeOfDayLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", value)
}

// IsDeliveryTime reports whether now, seen in loc, falls within the minute that
// starts at deliveryTime. The comparison wraps around midnight.
func IsDeliveryTime(now time.Time, deliveryTime string, loc *time.Location) (bool, error) {
	normalized, err := NormalizeTimeOfDay(deliveryTime)
	if err != nil {
		return false, err
	}
	set, _ := time.Parse(timeOfDayLayout, normalized)

	local := now.In(loc)
	nowSeconds := local.Hour()*3600 + local.Minute()*60 + local.Second()
	setSeconds := set.Hour()*3600 + set.Minute()*60 + set.Second()

	delta := ((nowSeconds-setSeconds)%secondsPerDay + secondsPerDay) % secondsPerDay
	return time.Duration(delta)*time.Second < deliveryWindow, nil
}
