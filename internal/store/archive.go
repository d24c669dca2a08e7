package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/model"
)

type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

func scanArchive(scanner interface{ Scan(...any) error }) (*model.Archive, error) {
	var a model.Archive
	var completedAt sql.NullTime
	var status string
	err := scanner.Scan(&a.ID, &a.Filename, &a.S3Key, &a.SizeBytes, &status, &a.ErrorMessage, &completedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = model.ArchiveStatus(status)
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

const archiveCols = `id, filename, s3_key, size_bytes, status, error_message, completed_at, created_at`

func (s *ArchiveStore) Create(filename, s3Key string) (*model.Archive, error) {
	result, err := s.db.Exec(
		`INSERT INTO archives (filename, s3_key, status) VALUES (?, ?, ?)`,
		filename, s3Key, string(model.ArchiveStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("insert archive: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ArchiveStore) GetByID(id int64) (*model.Archive, error) {
	row := s.db.QueryRow(`SELECT `+archiveCols+` FROM archives WHERE id = ?`, id)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return a, nil
}

func (s *ArchiveStore) List() ([]model.Archive, error) {
	rows, err := s.db.Query(`SELECT ` + archiveCols + ` FROM archives ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []model.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}

func (s *ArchiveStore) UpdateStatus(id int64, status model.ArchiveStatus, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE archives SET status = ?, error_message = ? WHERE id = ?`,
		string(status), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update archive status: %w", err)
	}
	return nil
}

func (s *ArchiveStore) UpdateCompleted(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE archives SET status = ?, size_bytes = ?, completed_at = ? WHERE id = ?`,
		string(model.ArchiveStatusCompleted), sizeBytes, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update archive completed: %w", err)
	}
	return nil
}

// DeleteOlderThan removes archive records created before the cutoff and
// returns their object keys so the caller can delete the blobs.
func (s *ArchiveStore) DeleteOlderThan(before time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT s3_key FROM archives WHERE created_at < ?`, before)
	if err != nil {
		return nil, fmt.Errorf("select old archives: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM archives WHERE created_at < ?`, before); err != nil {
		return nil, fmt.Errorf("delete old archives: %w", err)
	}
	return keys, nil
}
