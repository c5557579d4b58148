// Package draft keeps the in-progress work day between CLI invocations.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/worktime/internal/work"
)

var ErrNoDraft = errors.New("no draft for this day")

// Draft is the form state of a day that has not been checked out yet.
type Draft struct {
	UserID   string          `json:"user_id"`
	Date     string          `json:"date"`
	CheckIn  *work.TimeOfDay `json:"check_in,omitempty"`
	BreakIn  *work.TimeOfDay `json:"break_in,omitempty"`
	BreakOut *work.TimeOfDay `json:"break_out,omitempty"`
	Meetings []work.Meeting  `json:"meetings,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// Input is the engine input for the draft, still running at now.
func (d *Draft) Input(now time.Time) work.Input {
	return work.Input{
		CheckIn:  d.CheckIn,
		BreakIn:  d.BreakIn,
		BreakOut: d.BreakOut,
		Meetings: d.Meetings,
		Now:      now,
	}
}

type Store struct {
	db *buntdb.DB
}

// Open opens the buntdb file at path. ":memory:" keeps everything in memory.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating draft directory: %w", err)
		}
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening draft store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(userID, date string) string {
	return "draft:" + userID + ":" + date
}

func (s *Store) Save(d *Draft) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		bs, err := json.Marshal(d)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(key(d.UserID, d.Date), string(bs), nil)
		return err
	})
}

func (s *Store) Get(userID, date string) (*Draft, error) {
	var d Draft
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key(userID, date))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(v), &d)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, ErrNoDraft
	} else if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetOrNew returns the stored draft or an empty one for the day.
func (s *Store) GetOrNew(userID, date string) (*Draft, error) {
	d, err := s.Get(userID, date)
	if errors.Is(err, ErrNoDraft) {
		return &Draft{UserID: userID, Date: date}, nil
	}
	return d, err
}

// Current returns the user's open draft whatever day it was started on, so
// a shift that runs past midnight stays reachable. With several drafts the
// latest date wins.
func (s *Store) Current(userID string) (*Draft, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(key(userID, "*"), func(_, v string) bool {
			raw = v
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, ErrNoDraft
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}
	return &d, nil
}

func (s *Store) Delete(userID, date string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key(userID, date))
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return ErrNoDraft
	}
	return err
}
