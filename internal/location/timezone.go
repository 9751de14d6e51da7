package location

import (
	"context"
	"errors"
	"fmt"
	"time"
	// Embedded zone database so offsets resolve on hosts without tzdata.
	_ "time/tzdata"
)

// ErrNoTimezone is returned when no timezone covers the coordinates (e.g. open sea).
var ErrNoTimezone = errors.New("timezone cannot be determined")

// ZoneFinder maps a coordinate to an IANA zone name; "" means none.
// tzf.F from github.com/ringsaturn/tzf implements it.
type ZoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// Timezone returns the current UTC offset at (lat, lon) in whole hours,
// truncated toward zero (UTC+5:30 becomes 5). The lookup is offline.
func (r *Resolver) Timezone(ctx context.Context, lat, lon float64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	name := r.zones.GetTimezoneName(lon, lat)
	if name == "" {
		return 0, fmt.Errorf("timezone at %.4f,%.4f: %w", lat, lon, ErrNoTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return 0, fmt.Errorf("timezone %q at %.4f,%.4f: %w", name, lat, lon, ErrNoTimezone)
	}
	_, secs := r.now().In(loc).Zone()
	return secs / 3600, nil
}
