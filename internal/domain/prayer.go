package domain

import (
	"fmt"
	"strings"
)

// Prayer identifies one of the six daily events reported by the timings provider.
type Prayer int

const (
	Fajr Prayer = iota
	Sunrise
	Dhuhr
	Asr
	Maghrib
	Isha
)

// PrayerCount is the number of tracked prayers; per-prayer state is stored in arrays of this size.
const PrayerCount = 6

// Prayers lists all prayers in daily order.
var Prayers = [PrayerCount]Prayer{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

var prayerNames = [PrayerCount]string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// String returns the provider's name for p (e.g. "Fajr").
func (p Prayer) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Prayer(%d)", int(p))
	}
	return prayerNames[p]
}

// Key returns the lower-case identifier used in callback data and column names.
func (p Prayer) Key() string {
	return strings.ToLower(p.String())
}

func (p Prayer) Valid() bool {
	return p >= Fajr && p <= Isha
}

// ParsePrayer accepts either the provider name or the key, case-insensitively.
func ParsePrayer(s string) (Prayer, error) {
	s = strings.TrimSpace(s)
	for _, p := range Prayers {
		if strings.EqualFold(s, prayerNames[p]) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown prayer %q", s)
}
