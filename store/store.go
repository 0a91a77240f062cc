// Package store persists small flags across restarts: consent, which models
// finished loading, and the last download percentage seen per model.
package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	KeyConsent = "consent.granted"

	modelReadyPrefix    = "model.ready."
	modelProgressPrefix = "model.progress."
)

// Flag is one persisted key/value pair.
type Flag struct {
	Key       string `gorm:"primaryKey;type:varchar(255)"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Flag) TableName() string { return "flags" }

// Store is a best-effort key/value store. Read and write failures are logged
// and reported as missing values; they never stop the caller.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open creates the database file if needed and migrates the schema. An empty
// path opens an in-memory database.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	dsn := path
	if path == "" {
		dsn = "file::memory:?cache=shared"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	if err := db.AutoMigrate(&Flag{}); err != nil {
		return nil, errors.Wrap(err, "migrate store")
	}
	return &Store{db: db, log: log.With(slog.String("component", "store"))}, nil
}

// Get returns the value for key. ok is false when the key is missing or the
// store could not be read.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	var f Flag
	err := s.db.WithContext(ctx).Where(&Flag{Key: key}).Limit(1).Find(&f).Error
	if err != nil {
		s.log.Warn("store read failed", slog.String("key", key), slog.Any("error", err))
		return "", false
	}
	if f.Key == "" {
		return "", false
	}
	return f.Value, true
}

// Set upserts key.
func (s *Store) Set(ctx context.Context, key, value string) {
	if s == nil {
		return
	}
	f := Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&f).Error
	if err != nil {
		s.log.Warn("store write failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Store) Bool(ctx context.Context, key string) bool {
	v, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func (s *Store) SetBool(ctx context.Context, key string, v bool) {
	s.Set(ctx, key, strconv.FormatBool(v))
}

func (s *Store) ConsentGranted(ctx context.Context) bool { return s.Bool(ctx, KeyConsent) }

func (s *Store) GrantConsent(ctx context.Context) { s.SetBool(ctx, KeyConsent, true) }

func (s *Store) ModelReady(ctx context.Context, modelID string) bool {
	return s.Bool(ctx, modelReadyPrefix+modelID)
}

func (s *Store) MarkModelReady(ctx context.Context, modelID string) {
	s.SetBool(ctx, modelReadyPrefix+modelID, true)
}

// LastProgress returns the last download percentage recorded for modelID.
func (s *Store) LastProgress(ctx context.Context, modelID string) (float64, bool) {
	v, ok := s.Get(ctx, modelProgressPrefix+modelID)
	if !ok {
		return 0, false
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

func (s *Store) RecordProgress(ctx context.Context, modelID string, percent float64) {
	s.Set(ctx, modelProgressPrefix+modelID, strconv.FormatFloat(percent, 'f', 2, 64))
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "store handle")
	}
	return sqlDB.Close()
}
