package store

import (
	"database/sql"
	"fmt"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

// Snapshot sections. Each section is stored as one JSON value keyed by
// (trip_id, section) and is written synchronously on every mutation.
const (
	SectionDays         = "days"
	SectionExpenses     = "expenses"
	SectionShopping     = "shopping"
	SectionCategories   = "shopping_categories"
	SectionParticipants = "participants"
	SectionRate         = "rate"
	SectionConfig       = "config"
)

type TripStore struct {
	db *sql.DB
}

func NewTripStore(db *sql.DB) *TripStore {
	return &TripStore{db: db}
}

func scanTrip(scanner interface{ Scan(...any) error }) (*model.TripMeta, error) {
	var t model.TripMeta
	err := scanner.Scan(&t.ID, &t.Destination, &t.StartDate, &t.DaysCount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const tripCols = `id, destination, start_date, days_count`

// List returns all known trips, newest first.
func (s *TripStore) List() ([]model.TripMeta, error) {
	rows, err := s.db.Query(`SELECT ` + tripCols + ` FROM trips ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []model.TripMeta
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (s *TripStore) Get(id string) (*model.TripMeta, error) {
	row := s.db.QueryRow(`SELECT `+tripCols+` FROM trips WHERE id = ?`, id)
	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

func (s *TripStore) Create(meta model.TripMeta) error {
	_, err := s.db.Exec(
		`INSERT INTO trips (id, destination, start_date, days_count) VALUES (?, ?, ?, ?)`,
		meta.ID, meta.Destination, meta.StartDate, meta.DaysCount,
	)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// Delete removes a trip and all of its local snapshots. The remote copy, if
// any, is left untouched.
func (s *TripStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete trip: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trip_snapshots WHERE trip_id = ?`, id); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM trips WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return tx.Commit()
}

// SaveSection upserts one snapshot section for a trip.
func (s *TripStore) SaveSection(tripID, section, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO trip_snapshots (trip_id, section, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(trip_id, section) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		tripID, section, value,
	)
	if err != nil {
		return fmt.Errorf("save section %s/%s: %w", tripID, section, err)
	}
	return nil
}

// LoadSection returns the stored value for one section. The second return
// value reports whether a snapshot exists.
func (s *TripStore) LoadSection(tripID, section string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM trip_snapshots WHERE trip_id = ? AND section = ?`,
		tripID, section,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load section %s/%s: %w", tripID, section, err)
	}
	return value, true, nil
}

// LoadAll returns every stored section for a trip.
func (s *TripStore) LoadAll(tripID string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT section, value FROM trip_snapshots WHERE trip_id = ?`, tripID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	sections := make(map[string]string)
	for rows.Next() {
		var section, value string
		if err := rows.Scan(&section, &value); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		sections[section] = value
	}
	return sections, rows.Err()
}
