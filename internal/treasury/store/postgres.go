package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
	"salegate/pkg/platform/tx"
)

// Postgres persists the collector wallet in a single-row table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) Wallet(ctx context.Context) (id.Account, error) {
	var wallet string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT wallet FROM collector_wallet WHERE singleton`).Scan(&wallet)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get wallet: %w", err)
	}
	return id.Account(wallet), nil
}

func (s *Postgres) SetWallet(ctx context.Context, wallet id.Account) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO collector_wallet (singleton, wallet)
		VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET wallet = EXCLUDED.wallet`,
		string(wallet))
	if err != nil {
		return fmt.Errorf("set wallet: %w", err)
	}
	return nil
}
