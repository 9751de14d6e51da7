package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidClock = errors.New("invalid clock")

// DateLayout is the provider's date format (DD-MM-YYYY).
const DateLayout = "02-01-2006"

// ParseClock parses "HH:MM", ignoring a trailing zone label like "04:30 (MSK)".
func ParseClock(s string) (h, m int, err error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err = strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: hour %q", ErrInvalidClock, parts[0])
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: minute %q", ErrInvalidClock, parts[1])
	}
	return h, m, nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// FormatDate renders a date in the provider's DD-MM-YYYY layout.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// FormatOffset renders a whole-hour offset as "UTC+3" / "UTC-5" / "UTC".
func FormatOffset(offset int) string {
	switch {
	case offset > 0:
		return "UTC+" + strconv.Itoa(offset)
	case offset < 0:
		return "UTC" + strconv.Itoa(offset)
	default:
		return "UTC"
	}
}
