package store

import (
	"context"
	"database/sql"
	"fmt"

	id "salegate/pkg/domain"
	txcontext "salegate/pkg/platform/tx"
)

// Postgres persists the whitelist in the whitelist table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Add(ctx context.Context, account id.Account) (bool, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO whitelist (account)
		VALUES ($1)
		ON CONFLICT (account) DO NOTHING
	`, account.String())
	if err != nil {
		return false, fmt.Errorf("whitelist add: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("whitelist add: %w", err)
	}
	return n > 0, nil
}

func (s *Postgres) Remove(ctx context.Context, account id.Account) (bool, error) {
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM whitelist WHERE account = $1`, account.String())
	if err != nil {
		return false, fmt.Errorf("whitelist remove: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("whitelist remove: %w", err)
	}
	return n > 0, nil
}

func (s *Postgres) Contains(ctx context.Context, account id.Account) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM whitelist WHERE account = $1)`, account.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("whitelist check: %w", err)
	}
	return exists, nil
}
