package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/worktime/internal/work"
)

// DailyRecord is one finalized work day for a user.
type DailyRecord struct {
	UserID         string          `json:"user_id"`
	Date           string          `json:"date"`
	CheckIn        *work.TimeOfDay `json:"check_in"`
	CheckOut       *work.TimeOfDay `json:"check_out"`
	BreakIn        *work.TimeOfDay `json:"break_in"`
	BreakOut       *work.TimeOfDay `json:"break_out"`
	Meetings       []work.Meeting  `json:"meetings"`
	TotalHours     float64         `json:"total_hours"`
	BreakMinutes   int             `json:"break_minutes"`
	CreditMinutes  int             `json:"credit_minutes"`
	MeetingMinutes int             `json:"meeting_minutes"`
	ExpectedLeave  string          `json:"expected_leave"`
	Note           string          `json:"note,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Input rebuilds the engine input the record was calculated from.
func (r *DailyRecord) Input() work.Input {
	return work.Input{
		CheckIn:  r.CheckIn,
		CheckOut: r.CheckOut,
		BreakIn:  r.BreakIn,
		BreakOut: r.BreakOut,
		Meetings: r.Meetings,
	}
}

const recordColumns = `user_id, date, check_in, check_out, break_in, break_out, meetings,
	total_hours, break_minutes, credit_minutes, meeting_minutes, expected_leave, note, updated_at`

// noneSnapshot marks a history entry for a record that did not exist yet.
const noneSnapshot = "none"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UpsertRecord inserts the record or replaces the existing one for the same
// user and date. The previous state is appended to the edit history in the
// same transaction.
func (d *Database) UpsertRecord(ctx context.Context, rec *DailyRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if err := appendHistory(ctx, tx, rec.UserID, rec.Date); err != nil {
			return err
		}
		return writeRecord(ctx, tx, rec)
	})
}

func writeRecord(ctx context.Context, ex execer, rec *DailyRecord) error {
	meetings := rec.Meetings
	if meetings == nil {
		meetings = []work.Meeting{}
	}
	meetingsJSON, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("encoding meetings: %w", err)
	}

	query := `INSERT INTO daily_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			break_in = excluded.break_in,
			break_out = excluded.break_out,
			meetings = excluded.meetings,
			total_hours = excluded.total_hours,
			break_minutes = excluded.break_minutes,
			credit_minutes = excluded.credit_minutes,
			meeting_minutes = excluded.meeting_minutes,
			expected_leave = excluded.expected_leave,
			note = excluded.note,
			updated_at = excluded.updated_at`
	_, err = ex.ExecContext(ctx, query,
		rec.UserID,
		rec.Date,
		nullClock(rec.CheckIn),
		nullClock(rec.CheckOut),
		nullClock(rec.BreakIn),
		nullClock(rec.BreakOut),
		string(meetingsJSON),
		rec.TotalHours,
		rec.BreakMinutes,
		rec.CreditMinutes,
		rec.MeetingMinutes,
		rec.ExpectedLeave,
		rec.Note,
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting daily record: %w", err)
	}
	return nil
}

func (d *Database) GetRecord(ctx context.Context, userID, date string) (*DailyRecord, error) {
	return getRecord(ctx, d.db, userID, date)
}

func getRecord(ctx context.Context, ex execer, userID, date string) (*DailyRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM daily_records WHERE user_id = ? AND date = ?`
	rec, err := scanRecord(ex.QueryRowContext(ctx, query, userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListRecords returns the user's records with from <= date <= to, oldest
// first. Empty bounds are open.
func (d *Database) ListRecords(ctx context.Context, userID, from, to string) ([]*DailyRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM daily_records
		WHERE user_id = ? AND (? = '' OR date >= ?) AND (? = '' OR date <= ?)
		ORDER BY date`
	rows, err := d.db.QueryContext(ctx, query, userID, from, from, to, to)
	if err != nil {
		return nil, fmt.Errorf("listing daily records: %w", err)
	}
	defer rows.Close()

	var records []*DailyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteRecord removes a record. Its last state stays in the edit history so
// the deletion can be undone.
func (d *Database) DeleteRecord(ctx context.Context, userID, date string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getRecord(ctx, tx, userID, date); err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, userID, date); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_records WHERE user_id = ? AND date = ?`, userID, date); err != nil {
			return fmt.Errorf("deleting daily record: %w", err)
		}
		return nil
	})
}

// UndoRecord restores the record to the state before its last change and
// returns it, or nil when the change being undone was the record's creation.
func (d *Database) UndoRecord(ctx context.Context, userID, date string) (*DailyRecord, error) {
	var restored *DailyRecord
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var (
			seq      int64
			snapshot sql.NullString
		)
		err := tx.QueryRowContext(ctx,
			`SELECT seq, snapshot FROM record_history
			 WHERE user_id = ? AND date = ? ORDER BY seq DESC LIMIT 1`,
			userID, date,
		).Scan(&seq, &snapshot)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNothingToUndo
		}
		if err != nil {
			return fmt.Errorf("reading record history: %w", err)
		}

		if !snapshot.Valid || snapshot.String == noneSnapshot {
			if _, err := tx.ExecContext(ctx, `DELETE FROM daily_records WHERE user_id = ? AND date = ?`, userID, date); err != nil {
				return fmt.Errorf("deleting daily record: %w", err)
			}
		} else {
			var rec DailyRecord
			if err := json.Unmarshal([]byte(snapshot.String), &rec); err != nil {
				return fmt.Errorf("decoding history snapshot: %w", err)
			}
			if err := writeRecord(ctx, tx, &rec); err != nil {
				return err
			}
			restored = &rec
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM record_history WHERE seq = ?`, seq); err != nil {
			return fmt.Errorf("consuming history entry: %w", err)
		}
		return nil
	})
	return restored, err
}

// HistoryDepth is the number of undo steps available for a record.
func (d *Database) HistoryDepth(ctx context.Context, userID, date string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM record_history WHERE user_id = ? AND date = ?`, userID, date,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting record history: %w", err)
	}
	return n, nil
}

func appendHistory(ctx context.Context, tx *sql.Tx, userID, date string) error {
	snapshot := noneSnapshot
	prev, err := getRecord(ctx, tx, userID, date)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	default:
		data, err := json.Marshal(prev)
		if err != nil {
			return fmt.Errorf("encoding history snapshot: %w", err)
		}
		snapshot = string(data)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO record_history (id, user_id, date, snapshot, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, date, snapshot, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("appending record history: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*DailyRecord, error) {
	var (
		rec                                  DailyRecord
		checkIn, checkOut, breakIn, breakOut sql.NullString
		expectedLeave                        sql.NullString
		meetings, updatedAt                  string
	)
	err := row.Scan(
		&rec.UserID, &rec.Date,
		&checkIn, &checkOut, &breakIn, &breakOut,
		&meetings,
		&rec.TotalHours, &rec.BreakMinutes, &rec.CreditMinutes, &rec.MeetingMinutes,
		&expectedLeave, &rec.Note, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		src sql.NullString
		dst **work.TimeOfDay
	}{
		{checkIn, &rec.CheckIn},
		{checkOut, &rec.CheckOut},
		{breakIn, &rec.BreakIn},
		{breakOut, &rec.BreakOut},
	} {
		t, err := parseNullClock(f.src)
		if err != nil {
			return nil, fmt.Errorf("scanning record %s/%s: %w", rec.UserID, rec.Date, err)
		}
		*f.dst = t
	}

	if err := json.Unmarshal([]byte(meetings), &rec.Meetings); err != nil {
		return nil, fmt.Errorf("decoding meetings: %w", err)
	}
	rec.ExpectedLeave = expectedLeave.String
	rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning record %s/%s: parsing updated_at: %w", rec.UserID, rec.Date, err)
	}
	return &rec, nil
}

func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
