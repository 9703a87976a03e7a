package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/natefinch/atomic"
	_ "modernc.org/sqlite"
)

const (
	keyTimeFormat = "2006-01-02T150405Z"
	keySuffix     = ".db.enc"
)

var (
	ErrNotConfigured = errors.New("backup not configured: S3 bucket and credentials required")
	ErrNoPassphrase  = errors.New("backup passphrase is required")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Config struct {
	S3            S3Config
	DBPath        string
	Prefix        string
	RetentionDays int
}

// Snapshot is one encrypted copy of the database in the bucket.
type Snapshot struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager writes encrypted database snapshots to S3-compatible storage
// and restores them.
type Manager struct {
	cfg    Config
	db     *sql.DB
	client s3Client
	logger *slog.Logger
	now    func() time.Time
}

// NewManager returns ErrNotConfigured unless a bucket and credentials are set.
// db may be nil for a manager that only restores.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) (*Manager, error) {
	if cfg.S3.Bucket == "" || cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	return newManager(cfg, db, newS3Client(cfg.S3), logger), nil
}

func newManager(cfg Config, db *sql.DB, client s3Client, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		db:     db,
		client: client,
		logger: logger,
		now:    time.Now,
	}
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

func (m *Manager) keyFor(t time.Time) string {
	return m.cfg.Prefix + "backup-" + t.UTC().Format(keyTimeFormat) + keySuffix
}

// Run snapshots the live database, encrypts it, and uploads it.
func (m *Manager) Run(ctx context.Context, passphrase string) (*Snapshot, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if m.db == nil {
		return nil, fmt.Errorf("backup: no database handle")
	}

	tmpDir, err := os.MkdirTemp("", "choreboard-backup-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// VACUUM INTO gives a consistent copy without stopping writers.
	snapPath := filepath.Join(tmpDir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapPath); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}

	plain, err := os.ReadFile(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Seal(plain, passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	createdAt := m.now().UTC().Truncate(time.Second)
	key := m.keyFor(createdAt)
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "size", len(sealed))
	return &Snapshot{Key: key, Size: int64(len(sealed)), CreatedAt: createdAt}, nil
}

// List returns the snapshots under the configured prefix, newest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	var snaps []Snapshot
	p := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Prefix: aws.String(m.cfg.Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			createdAt, ok := m.parseKey(key)
			if !ok {
				continue
			}
			snaps = append(snaps, Snapshot{Key: key, Size: aws.ToInt64(obj.Size), CreatedAt: createdAt})
		}
	}
	slices.SortFunc(snaps, func(a, b Snapshot) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return snaps, nil
}

func (m *Manager) parseKey(key string) (time.Time, bool) {
	name, ok := strings.CutPrefix(key, m.cfg.Prefix+"backup-")
	if !ok {
		return time.Time{}, false
	}
	name, ok = strings.CutSuffix(name, keySuffix)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(keyTimeFormat, name)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Prune deletes snapshots older than the retention window and returns
// their keys. The newest snapshot is always kept. A retention of zero
// keeps everything.
func (m *Manager) Prune(ctx context.Context) ([]string, error) {
	if m.cfg.RetentionDays <= 0 {
		return nil, nil
	}
	snaps, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := m.now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	var deleted []string
	for i, s := range snaps {
		if i == 0 || !s.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(s.Key),
		}); err != nil {
			m.logger.Warn("failed to delete old backup", "key", s.Key, "error", err)
			continue
		}
		deleted = append(deleted, s.Key)
	}
	if len(deleted) > 0 {
		m.logger.Info("old backups pruned", "count", len(deleted))
	}
	return deleted, nil
}

// Restore downloads and decrypts a snapshot, checks its integrity, and
// atomically replaces the database file. The server must not be running.
func (m *Manager) Restore(ctx context.Context, key, passphrase string) error {
	if passphrase == "" {
		return ErrNoPassphrase
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	sealed, err := io.ReadAll(result.Body)
	result.Body.Close()
	if err != nil {
		return fmt.Errorf("read s3 object: %w", err)
	}

	plain, err := Open(sealed, passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "choreboard-restore-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	candidate := filepath.Join(tmpDir, "restore.db")
	if err := os.WriteFile(candidate, plain, 0o600); err != nil {
		return fmt.Errorf("write decrypted snapshot: %w", err)
	}
	if err := checkIntegrity(ctx, candidate); err != nil {
		return err
	}

	if err := atomic.WriteFile(m.cfg.DBPath, bytes.NewReader(plain)); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(m.cfg.DBPath + "-wal")
	os.Remove(m.cfg.DBPath + "-shm")

	m.logger.Info("database restored", "key", key, "path", m.cfg.DBPath)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
