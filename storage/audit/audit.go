// Package audit persists a record of every committed engine call and
// exports it for offline reconciliation.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDSNRequired is returned when no database location is configured.
var ErrDSNRequired = errors.New("audit: dsn must be configured")

// Record is one committed call.
type Record struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Action     string    `gorm:"index;not null"`
	Sender     string    `gorm:"index"`
	Minted     string
	Burned     string
	Reserve    string
	Supply     string
	Attributes string
	CreatedAt  time.Time `gorm:"index"`
}

// SetAttributes stores the key/value pairs as ordered JSON.
func (r *Record) SetAttributes(pairs [][2]string) error {
	encoded, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("audit: encode attributes: %w", err)
	}
	r.Attributes = string(encoded)
	return nil
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Action string
	Sender string
	Limit  int
}

// Store is the gorm-backed audit trail.
type Store struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// Open connects to postgres for postgres DSNs and to sqlite otherwise, then
// migrates the schema.
func Open(dsn string) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrDSNRequired
	}
	var dialector gorm.Dialector
	if isPostgres(trimmed) {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: nil database")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Store{db: db, nowFn: time.Now}, nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// SetNowFunc overrides the clock for deterministic tests.
func (s *Store) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.nowFn = now
}

// Append inserts rec, assigning an ID and timestamp when missing.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("audit: store not configured")
	}
	if rec == nil {
		return fmt.Errorf("audit: nil record")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.nowFn().UTC()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("audit: store not configured")
	}
	query := s.db.WithContext(ctx).Model(&Record{})
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if sender := strings.TrimSpace(filter.Sender); sender != "" {
		query = query.Where("sender = ?", sender)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var records []Record
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	return records, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type parquetRow struct {
	ID         string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Action     string `parquet:"name=action, type=BYTE_ARRAY, convertedtype=UTF8"`
	Sender     string `parquet:"name=sender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Minted     string `parquet:"name=minted, type=BYTE_ARRAY, convertedtype=UTF8"`
	Burned     string `parquet:"name=burned, type=BYTE_ARRAY, convertedtype=UTF8"`
	Reserve    string `parquet:"name=reserve, type=BYTE_ARRAY, convertedtype=UTF8"`
	Supply     string `parquet:"name=supply, type=BYTE_ARRAY, convertedtype=UTF8"`
	Attributes string `parquet:"name=attributes, type=BYTE_ARRAY, convertedtype=UTF8"`
	CreatedAt  string `parquet:"name=created_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportParquet writes every record matching filter to path and returns the
// number of rows written.
func (s *Store) ExportParquet(ctx context.Context, path string, filter Filter) (int, error) {
	records, err := s.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("audit: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("audit: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		row := &parquetRow{
			ID:         rec.ID.String(),
			Action:     rec.Action,
			Sender:     rec.Sender,
			Minted:     rec.Minted,
			Burned:     rec.Burned,
			Reserve:    rec.Reserve,
			Supply:     rec.Supply,
			Attributes: rec.Attributes,
			CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return 0, fmt.Errorf("audit: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return 0, fmt.Errorf("audit: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("audit: close parquet file: %w", err)
	}
	return len(records), nil
}
