package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"course-rag/internal/config"
	"course-rag/internal/models"
)

type sessionExchange struct {
	bun.BaseModel `bun:"table:session_exchanges,alias:se"`

	ID               int64     `bun:"id,pk,autoincrement"`
	SessionID        string    `bun:"session_id,notnull"`
	UserMessage      string    `bun:"user_message,notnull"`
	AssistantMessage string    `bun:"assistant_message,notnull"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// PostgresStore persists history in postgres so sessions survive restarts.
type PostgresStore struct {
	db         *bun.DB
	maxHistory int
}

// NewPostgresStore opens a connection pool for cfg and wraps it.
func NewPostgresStore(cfg *config.DatabaseConfig, maxHistory int) *PostgresStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(cfg.Addr),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.Database),
		pgdriver.WithInsecure(cfg.Insecure),
	))

	return NewPostgresStoreFromDB(sqldb, maxHistory, cfg.Debug)
}

// NewPostgresStoreFromDB wraps an existing connection pool. Used by tests.
func NewPostgresStoreFromDB(sqldb *sql.DB, maxHistory int, debug bool) *PostgresStore {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return &PostgresStore{db: db, maxHistory: maxHistory}
}

// Init creates the backing table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*sessionExchange)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session_exchanges table: %v", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) ([]models.Exchange, error) {
	var rows []sessionExchange
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for session %s: %v", sessionID, err)
	}

	exchanges := make([]models.Exchange, 0, len(rows))
	for _, row := range rows {
		exchanges = append(exchanges, models.Exchange{User: row.UserMessage, Assistant: row.AssistantMessage})
	}

	return exchanges, nil
}

func (s *PostgresStore) Append(ctx context.Context, sessionID string, exchange models.Exchange) error {
	if s.maxHistory <= 0 {
		return nil
	}

	row := &sessionExchange{
		SessionID:        sessionID,
		UserMessage:      exchange.User,
		AssistantMessage: exchange.Assistant,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store exchange for session %s: %v", sessionID, err)
	}

	// Keep only the newest maxHistory rows of the session.
	_, err := s.db.NewDelete().
		Model((*sessionExchange)(nil)).
		Where("session_id = ?", sessionID).
		Where("id NOT IN (SELECT id FROM session_exchanges WHERE session_id = ? ORDER BY id DESC LIMIT ?)", sessionID, s.maxHistory).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to trim history for session %s: %v", sessionID, err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
