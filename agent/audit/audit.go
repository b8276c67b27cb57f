// Package audit records every tool dispatch for after-the-fact review.
// Payouts happen against a real (sandbox) backend, so the trail survives the
// process even though conversation state does not.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN     string        `envconfig:"DSN"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// Entry is one recorded tool invocation.
type Entry struct {
	bun.BaseModel `bun:"table:tool_invocations,alias:ti"`

	ID         int64     `bun:"id,pk,autoincrement"`
	RequestID  string    `bun:"request_id,notnull"`
	Tool       string    `bun:"tool,notnull"`
	Arguments  string    `bun:"arguments"`
	Status     string    `bun:"status,notnull"`
	Message    string    `bun:"message"`
	DurationMS int64     `bun:"duration_ms,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Noop is used when no audit DSN is configured.
type Noop struct{}

func (Noop) Record(context.Context, Entry) error { return nil }

// Store persists entries in Postgres through bun.
type Store struct {
	db      *bun.DB
	timeout time.Duration
}

var _ Recorder = (*Store)(nil)

func NewStore(cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("audit dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Store{db: db, timeout: timeout}, nil
}

// Init creates the backing table when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.NewCreateTable().Model((*Entry)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.NewInsert().Model(&entry).Exec(ctx); err != nil {
		// Audit failures must never take down the agent path; log and move on.
		log.Error().Err(err).Str("tool", entry.Tool).Msg("audit insert failed")
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
