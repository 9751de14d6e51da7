package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
)

const localDateLayout = "2006-01-02"

// userColumns is the column order shared by every SELECT on users.
var userColumns = buildUserColumns()

func buildUserColumns() string {
	cols := []string{"chat_id", "created_at", "city_name", "latitude", "longitude", "utc_offset"}
	for _, p := range domain.Prayers {
		cols = append(cols, timeCol(p), alarmCol(p), occurredCol(p))
	}
	cols = append(cols, "local_date")
	return strings.Join(cols, ", ")
}

func timeCol(p domain.Prayer) string     { return "time_" + p.Key() }
func alarmCol(p domain.Prayer) string    { return "alarm_" + p.Key() }
func occurredCol(p domain.Prayer) string { return "occurred_" + p.Key() }

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads one row selected with userColumns.
func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		createdAt int64
		times     [domain.PrayerCount]sql.NullInt64
		alarms    [domain.PrayerCount]int
		occurred  [domain.PrayerCount]int
		localDate sql.NullString
	)
	dest := []any{&u.ChatID, &createdAt, &u.Location.Name, &u.Location.Lat, &u.Location.Lon, &u.UTCOffset}
	for _, p := range domain.Prayers {
		dest = append(dest, &times[p], &alarms[p], &occurred[p])
	}
	dest = append(dest, &localDate)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	for _, p := range domain.Prayers {
		u.Times[p] = fromNullInt64(times[p])
		u.Flags.AlarmSent[p] = alarms[p] != 0
		u.Flags.OccurredSent[p] = occurred[p] != 0
	}
	if localDate.Valid {
		d, err := time.Parse(localDateLayout, localDate.String)
		if err != nil {
			return nil, err
		}
		u.LocalDate = d
	}
	return &u, nil
}

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

func toNullDate(d time.Time) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(localDateLayout), Valid: true}
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
