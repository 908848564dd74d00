package store

import (
	"context"
	"database/sql"
	"fmt"

	id "salegate/pkg/domain"
	txcontext "salegate/pkg/platform/tx"
)

// Postgres persists the admin set in the admins table.
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
	query := `
		INSERT INTO admins (account)
		VALUES ($1)
		ON CONFLICT (account) DO NOTHING
	`
	res, err := s.conn(ctx).ExecContext(ctx, query, account.String())
	if err != nil {
		return false, fmt.Errorf("add admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add admin: %w", err)
	}
	return n > 0, nil
}

func (s *Postgres) IsAdmin(ctx context.Context, account id.Account) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE account = $1)`, account.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return exists, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
