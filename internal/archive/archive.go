// Package archive snapshots the whole trip database to S3-compatible
// storage, encrypted with a passphrase-derived key. A trip's itinerary and
// expense ledger are worth keeping after the trip ends; the archive is the
// durable copy once the device itself is wiped or replaced.
package archive

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wayfarer-app/wayfarer/internal/model"
	"github.com/wayfarer-app/wayfarer/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds archive manager configuration.
type Config struct {
	S3     S3Config
	DBPath string
}

// State represents the archive manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current archive manager status.
type Status struct {
	State       State      `json:"state"`
	LastArchive *time.Time `json:"lastArchive,omitempty"`
	Error       string     `json:"error,omitempty"`
	InProgress  bool       `json:"inProgress"`
}

// StatusCallback is called whenever the archive state changes.
type StatusCallback func(Status)

// cachedCreds stores passphrase and salt for scheduled archives (memory only).
type cachedCreds struct {
	passphrase string
	salt       []byte
}

// Manager manages encrypted database archives on S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	db            *sql.DB
	archiveStore  *store.ArchiveStore
	settingsStore *store.SettingsStore
	client        s3Client

	creds *cachedCreds

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new archive manager. It stays disabled until S3
// credentials are configured.
func NewManager(cfg Config, db *sql.DB, as *store.ArchiveStore, ss *store.SettingsStore, callback StatusCallback) *Manager {
	m := &Manager{
		cfg:           cfg,
		db:            db,
		archiveStore:  as,
		settingsStore: ss,
		callback:      callback,
		status:        Status{State: StateDisabled},
	}

	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// UpdateS3Config hot-reloads the S3 configuration.
func (m *Manager) UpdateS3Config(s3cfg S3Config) {
	m.mu.Lock()
	m.cfg.S3 = s3cfg
	if s3cfg.Bucket != "" && s3cfg.AccessKey != "" && s3cfg.SecretKey != "" {
		m.client = newS3Client(s3cfg)
		m.status.State = StateIdle
	} else {
		m.client = nil
		m.status.State = StateDisabled
	}
	status := m.status
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(status)
	}
}

// Start begins the scheduled archive loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the archive manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current archive status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// CacheKey caches the passphrase and salt so the scheduled loop can run
// without user interaction. Held in memory only.
func (m *Manager) CacheKey(passphrase string, salt []byte) {
	m.mu.Lock()
	m.creds = &cachedCreds{passphrase: passphrase, salt: salt}
	m.mu.Unlock()
}

// HasCachedKey returns whether credentials are cached.
func (m *Manager) HasCachedKey() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds != nil
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := time.Now().UTC()

	settings, err := m.settingsStore.GetArchiveSettings()
	if err != nil {
		return
	}

	if settings["archive_enabled"] != "true" {
		return
	}

	hour, _ := strconv.Atoi(settings["archive_schedule_hour"])
	if now.Hour() != hour || now.Minute() != 0 {
		return
	}

	m.mu.RLock()
	creds := m.creds
	m.mu.RUnlock()

	if creds == nil {
		log.Printf("archive: skipping scheduled run, no cached credentials")
		return
	}

	if _, err := m.runArchive(ctx, creds.passphrase, creds.salt); err != nil {
		log.Printf("archive: scheduled run failed: %v", err)
	}

	retentionDays, _ := strconv.Atoi(settings["archive_retention_days"])
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if err := m.Cleanup(ctx, retentionDays); err != nil {
		log.Printf("archive: cleanup failed: %v", err)
	}
}

// RunNow runs an archive immediately with the provided passphrase.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (int64, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return 0, fmt.Errorf("archive not configured: S3 credentials missing")
	}

	settings, err := m.settingsStore.GetArchiveSettings()
	if err != nil {
		return 0, fmt.Errorf("get archive settings: %w", err)
	}

	saltHex := settings["archive_passphrase_salt"]
	if saltHex == "" {
		return 0, fmt.Errorf("archive passphrase not configured")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return 0, fmt.Errorf("decode salt: %w", err)
	}

	return m.runArchive(ctx, passphrase, salt)
}

func (m *Manager) runArchive(ctx context.Context, passphrase string, salt []byte) (int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return 0, fmt.Errorf("archive not configured: S3 credentials missing")
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("archive-%s.db.enc", timestamp)
	s3Key := "trips/" + filename

	record, err := m.archiveStore.Create(filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("create archive record: %w", err)
	}

	m.archiveStore.UpdateStatus(record.ID, model.ArchiveStatusUploading, "")

	tmpDir := os.TempDir()
	dbCopy := filepath.Join(tmpDir, fmt.Sprintf("wayfarer-archive-%d.db", record.ID))
	encFile := filepath.Join(tmpDir, fmt.Sprintf("wayfarer-archive-%d.db.enc", record.ID))
	defer os.Remove(dbCopy)
	defer os.Remove(encFile)

	// Checkpoint WAL and copy database
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		m.archiveStore.UpdateStatus(record.ID, model.ArchiveStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("wal checkpoint: %w", err)
	}

	if err := copyFile(m.cfg.DBPath, dbCopy); err != nil {
		m.archiveStore.UpdateStatus(record.ID, model.ArchiveStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("copy database: %w", err)
	}

	// Encrypt
	if err := EncryptFile(dbCopy, encFile, passphrase, salt); err != nil {
		m.archiveStore.UpdateStatus(record.ID, model.ArchiveStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	// Upload to S3
	encData, err := os.Open(encFile)
	if err != nil {
		m.archiveStore.UpdateStatus(record.ID, model.ArchiveStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("open encrypted file: %w", err)
	}
	defer encData.Close()

	stat, _ := encData.Stat()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          encData,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		m.archiveStore.UpdateStatus(record.ID, model.ArchiveStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return 0, fmt.Errorf("upload to s3: %w", err)
	}

	m.archiveStore.UpdateCompleted(record.ID, stat.Size())

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastArchive: &now})

	return record.ID, nil
}

// Restore downloads an archive from S3, decrypts it, validates it, replaces
// the DB file, and exits so the process restarts on the restored data.
func (m *Manager) Restore(ctx context.Context, archiveID int64, passphrase string) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("archive not configured")
	}

	record, err := m.archiveStore.GetByID(archiveID)
	if err != nil {
		return fmt.Errorf("get archive: %w", err)
	}
	if record == nil {
		return fmt.Errorf("archive not found")
	}

	tmpDir := os.TempDir()
	encFile := filepath.Join(tmpDir, fmt.Sprintf("wayfarer-restore-%d.db.enc", archiveID))
	decFile := filepath.Join(tmpDir, fmt.Sprintf("wayfarer-restore-%d.db", archiveID))
	defer os.Remove(encFile)
	defer os.Remove(decFile)

	// Download from S3
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	outFile, err := os.Create(encFile)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(outFile, result.Body); err != nil {
		outFile.Close()
		return fmt.Errorf("write downloaded file: %w", err)
	}
	outFile.Close()

	// Decrypt
	if err := DecryptFile(encFile, decFile, passphrase); err != nil {
		return fmt.Errorf("decrypt archive: %w", err)
	}

	// Validate SQLite integrity
	tmpDB, err := sql.Open("sqlite", decFile)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	var integrity string
	if err := tmpDB.QueryRow("PRAGMA integrity_check").Scan(&integrity); err != nil {
		tmpDB.Close()
		return fmt.Errorf("integrity check: %w", err)
	}
	tmpDB.Close()
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	// Replace database file
	if err := copyFile(decFile, m.cfg.DBPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	// Remove WAL and SHM files
	os.Remove(m.cfg.DBPath + "-wal")
	os.Remove(m.cfg.DBPath + "-shm")

	log.Printf("archive: restore complete, exiting for restart")
	os.Exit(0)
	return nil // unreachable
}

// Download streams an encrypted archive from S3.
func (m *Manager) Download(ctx context.Context, archiveID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, 0, fmt.Errorf("archive not configured")
	}

	record, err := m.archiveStore.GetByID(archiveID)
	if err != nil {
		return nil, 0, fmt.Errorf("get archive: %w", err)
	}
	if record == nil {
		return nil, 0, fmt.Errorf("archive not found")
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}

	return result.Body, record.SizeBytes, nil
}

// Cleanup deletes archives older than the retention period.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	before := time.Now().UTC().AddDate(0, 0, -retentionDays)
	keys, err := m.archiveStore.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old archives: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			log.Printf("archive: failed to delete S3 object %s: %v", key, err)
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
