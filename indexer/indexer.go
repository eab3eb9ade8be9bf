package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"farmledger/core/events"
	"farmledger/core/types"
)

// DefaultLimit bounds query results when the caller does not ask for a size.
const DefaultLimit = 100

// MaxLimit is the largest page a query may request.
const MaxLimit = 1000

// EventRecord is one committed ledger event.
type EventRecord struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement" json:"seq"`
	ID         uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"id"`
	Height     uint64    `gorm:"index" json:"height"`
	Type       string    `gorm:"index;size:64" json:"type"`
	Pool       string    `gorm:"index;size:20" json:"pool,omitempty"`
	Account    string    `gorm:"index;size:64" json:"account,omitempty"`
	Attributes string    `gorm:"type:text" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Decoded returns the attribute map of the record.
func (r *EventRecord) Decoded() map[string]string {
	out := map[string]string{}
	if r == nil || r.Attributes == "" {
		return out
	}
	_ = json.Unmarshal([]byte(r.Attributes), &out)
	return out
}

// Filter narrows an event query. Zero values match everything.
type Filter struct {
	Type    string
	Account string
	Pool    *uint64
	// Before returns only records with a sequence number below it.
	Before uint64
	Limit  int
}

// Store persists committed events. It implements events.Emitter so it can
// subscribe to the node's bus directly.
type Store struct {
	db        *gorm.DB
	log       *slog.Logger
	retention uint64
}

// Open connects to dsn. postgres:// and postgresql:// DSNs use Postgres;
// anything else is a sqlite path.
func Open(dsn string, log *slog.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("indexer: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB, log *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: db required")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Store{db: db, log: log.With("component", "indexer")}, nil
}

// SetRetention keeps at most n records; zero disables pruning.
func (s *Store) SetRetention(n uint64) { s.retention = n }

// Emit records evt. Failures are logged; the ledger never blocks on the index.
func (s *Store) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	if err := s.Record(evt); err != nil {
		s.log.Warn("index event", "type", evt.EventType(), "error", err)
	}
}

// Record stores evt and returns any persistence error.
func (s *Store) Record(evt events.Event) error {
	rec := EventRecord{ID: uuid.New(), Type: evt.EventType()}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok && payload.Event() != nil {
		attrs := payload.Event().Attributes
		if raw, err := json.Marshal(attrs); err == nil {
			rec.Attributes = string(raw)
		}
		rec.Pool = attrs["pool"]
		rec.Account = firstNonEmpty(attrs["account"], attrs["from"], attrs["owner"], attrs["to"])
		if h, err := strconv.ParseUint(attrs["height"], 10, 64); err == nil {
			rec.Height = h
		}
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return err
	}
	if s.retention > 0 && rec.Seq > s.retention {
		cutoff := rec.Seq - s.retention
		if err := s.db.Where("seq <= ?", cutoff).Delete(&EventRecord{}).Error; err != nil {
			return fmt.Errorf("prune: %w", err)
		}
	}
	return nil
}

// Query returns matching records, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]EventRecord, error) {
	if s == nil {
		return nil, errors.New("indexer: not configured")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q := s.db.WithContext(ctx).Model(&EventRecord{})
	if t := strings.TrimSpace(f.Type); t != "" {
		q = q.Where("type = ?", t)
	}
	if a := strings.TrimSpace(f.Account); a != "" {
		q = q.Where("account = ?", a)
	}
	if f.Pool != nil {
		q = q.Where("pool = ?", strconv.FormatUint(*f.Pool, 10))
	}
	if f.Before > 0 {
		q = q.Where("seq < ?", f.Before)
	}
	var out []EventRecord
	if err := q.Order("seq DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
