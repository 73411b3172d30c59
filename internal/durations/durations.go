// Package durations spells out waiting times for the Portuguese pages.
package durations

import (
	"fmt"
	"time"
)

type unit struct {
	singular string
	plural   string
	val      time.Duration
}

var units = []unit{
	{"dia", "dias", 24 * time.Hour},
	{"hora", "horas", time.Hour},
	{"minuto", "minutos", time.Minute},
	{"segundo", "segundos", time.Second},
}

func count(amount int64, u unit) string {
	if amount == 1 {
		return fmt.Sprintf("%d %s", amount, u.singular)
	}
	return fmt.Sprintf("%d %s", amount, u.plural)
}

// RoundedUp gives the largest unit only, rounded up, so a lock with 14m10s left reads "15 minutos".
func RoundedUp(dur time.Duration) string {
	seconds := units[len(units)-1]
	if dur <= 0 {
		return count(0, seconds)
	}

	for _, curr := range units {
		if dur >= curr.val {
			return count(int64((dur+curr.val-1)/curr.val), curr)
		}
	}

	return count(1, seconds)
}
