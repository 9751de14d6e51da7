package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/AlekseyNushtaev/Test-Namaz/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// CreateUser inserts a new user with its location, schedule and flags.
// An existing row for the same chat is left untouched.
func (r *SQLiteRepo) CreateUser(ctx context.Context, u *domain.User) (bool, error) {
	if u == nil {
		return false, errors.New("nil user")
	}
	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	cols := []string{"chat_id", "created_at", "city_name", "latitude", "longitude", "utc_offset", "local_date"}
	args := []any{u.ChatID, created, u.Location.Name, u.Location.Lat, u.Location.Lon, u.UTCOffset, toNullDate(u.LocalDate)}
	for _, p := range domain.Prayers {
		cols = append(cols, timeCol(p), alarmCol(p), occurredCol(p))
		args = append(args, toNullInt64(u.Times[p]), boolToInt(u.Flags.AlarmSent[p]), boolToInt(u.Flags.OccurredSent[p]))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users ("+strings.Join(cols, ", ")+") VALUES ("+placeholders+") ON CONFLICT(chat_id) DO NOTHING",
		args...,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetUser returns a user by chatID or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE chat_id = ?", chatID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// ListUsers returns every user ordered by chat ID.
func (r *SQLiteRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY chat_id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateUser writes the non-nil parts of upd with one UPDATE statement.
// A schedule update also clears all twelve notification flags.
func (r *SQLiteRepo) UpdateUser(ctx context.Context, chatID int64, upd domain.UserUpdate) error {
	if upd.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if upd.Location != nil {
		set("city_name", upd.Location.Name)
		set("latitude", upd.Location.Lat)
		set("longitude", upd.Location.Lon)
	}
	if upd.UTCOffset != nil {
		set("utc_offset", *upd.UTCOffset)
	}

	flags := upd.Flags
	if upd.Schedule != nil {
		for _, p := range domain.Prayers {
			set(timeCol(p), toNullInt64(upd.Schedule.Times[p]))
		}
		set("local_date", toNullDate(upd.Schedule.LocalDate))
		if flags == nil {
			flags = &domain.Flags{}
		}
	}
	if flags != nil {
		for _, p := range domain.Prayers {
			set(alarmCol(p), boolToInt(flags.AlarmSent[p]))
			set(occurredCol(p), boolToInt(flags.OccurredSent[p]))
		}
	}

	args = append(args, chatID)
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE chat_id = ?",
		args...,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
