package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

type HolidayKind string

const (
	KindHoliday HolidayKind = "holiday"
	KindLeave   HolidayKind = "leave"
	KindHalfDay HolidayKind = "half_day"
)

var ErrDuplicateHoliday = errors.New("a holiday already exists for that date")

// ParseHolidayKind accepts the stored names plus "half" as shorthand.
func ParseHolidayKind(s string) (HolidayKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "holiday", "":
		return KindHoliday, nil
	case "leave":
		return KindLeave, nil
	case "half_day", "half-day", "half":
		return KindHalfDay, nil
	}
	return "", fmt.Errorf("unknown holiday kind %q", s)
}

// DaysOff is how much of the working day the entry removes.
func (k HolidayKind) DaysOff() float64 {
	if k == KindHalfDay {
		return 0.5
	}
	return 1
}

type Holiday struct {
	ID     string      `json:"id"`
	UserID string      `json:"user_id"`
	Date   string      `json:"date"`
	Kind   HolidayKind `json:"kind"`
	Note   string      `json:"note,omitempty"`
}

func (d *Database) AddHoliday(ctx context.Context, h *Holiday) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Kind == "" {
		h.Kind = KindHoliday
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO holidays (id, user_id, date, kind, note) VALUES (?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Date, string(h.Kind), h.Note,
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrDuplicateHoliday
	}
	if err != nil {
		return fmt.Errorf("inserting holiday: %w", err)
	}
	return nil
}

func (d *Database) GetHoliday(ctx context.Context, id string) (*Holiday, error) {
	var h Holiday
	var kind string
	err := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, kind, note FROM holidays WHERE id = ?`, id,
	).Scan(&h.ID, &h.UserID, &h.Date, &kind, &h.Note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting holiday: %w", err)
	}
	h.Kind = HolidayKind(kind)
	return &h, nil
}

// ListHolidays returns the user's holidays with from <= date <= to. Empty
// bounds are open.
func (d *Database) ListHolidays(ctx context.Context, userID, from, to string) ([]*Holiday, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, date, kind, note FROM holidays
		 WHERE user_id = ? AND (? = '' OR date >= ?) AND (? = '' OR date <= ?)
		 ORDER BY date`,
		userID, from, from, to, to,
	)
	if err != nil {
		return nil, fmt.Errorf("listing holidays: %w", err)
	}
	defer rows.Close()

	var holidays []*Holiday
	for rows.Next() {
		var h Holiday
		var kind string
		if err := rows.Scan(&h.ID, &h.UserID, &h.Date, &kind, &h.Note); err != nil {
			return nil, fmt.Errorf("scanning holiday: %w", err)
		}
		h.Kind = HolidayKind(kind)
		holidays = append(holidays, &h)
	}
	return holidays, rows.Err()
}

func (d *Database) DeleteHoliday(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting holiday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
