package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salegate/internal/ledger"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
	"salegate/pkg/platform/tx"
)

// Postgres persists lock records in token_locks and the engine-wide
// aggregate in a single-row lock_totals table. Amounts are NUMERIC(78,0)
// and travel as decimal strings.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) Get(ctx context.Context, account id.Account, reason string) (*ledger.LockRecord, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT amount::text, validity, claimed, created_at
		FROM token_locks
		WHERE account = $1 AND reason = $2`,
		string(account), reason)

	rec := &ledger.LockRecord{Account: account, Reason: reason}
	var amount string
	if err := row.Scan(&amount, &rec.Validity, &rec.Claimed, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get lock: %w", err)
	}
	a, err := id.ParseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("get lock: %w", err)
	}
	rec.Amount = a
	return rec, nil
}

func (s *Postgres) Create(ctx context.Context, rec *ledger.LockRecord) error {
	c := s.conn(ctx)

	// re-lock after claim reuses the existing slot, keeping its position
	res, err := c.ExecContext(ctx, `
		UPDATE token_locks
		SET amount = $3::numeric, validity = $4, claimed = FALSE, created_at = $5
		WHERE account = $1 AND reason = $2 AND claimed`,
		string(rec.Account), rec.Reason, rec.Amount.Dec(), rec.Validity, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lock: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	res, err = c.ExecContext(ctx, `
		INSERT INTO token_locks (account, reason, amount, validity, claimed, created_at)
		VALUES ($1, $2, $3::numeric, $4, FALSE, $5)
		ON CONFLICT (account, reason) DO NOTHING`,
		string(rec.Account), rec.Reason, rec.Amount.Dec(), rec.Validity, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lock: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, rec *ledger.LockRecord) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE token_locks
		SET amount = $3::numeric, validity = $4, claimed = $5
		WHERE account = $1 AND reason = $2`,
		string(rec.Account), rec.Reason, rec.Amount.Dec(), rec.Validity, rec.Claimed)
	if err != nil {
		return fmt.Errorf("update lock: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByAccount(ctx context.Context, account id.Account) ([]*ledger.LockRecord, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT reason, amount::text, validity, claimed, created_at
		FROM token_locks
		WHERE account = $1
		ORDER BY position`,
		string(account))
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	defer rows.Close()

	var out []*ledger.LockRecord
	for rows.Next() {
		rec := &ledger.LockRecord{Account: account}
		var amount string
		var validity, createdAt time.Time
		if err := rows.Scan(&rec.Reason, &amount, &validity, &rec.Claimed, &createdAt); err != nil {
			return nil, fmt.Errorf("list locks: %w", err)
		}
		a, err := id.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("list locks: %w", err)
		}
		rec.Amount = a
		rec.Validity = validity
		rec.CreatedAt = createdAt
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Postgres) TotalLocked(ctx context.Context) (id.Amount, error) {
	var total string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT total::text FROM lock_totals WHERE singleton`).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return id.Zero(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("total locked: %w", err)
	}
	return id.ParseAmount(total)
}

func (s *Postgres) SetTotalLocked(ctx context.Context, total id.Amount) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO lock_totals (singleton, total)
		VALUES (TRUE, $1::numeric)
		ON CONFLICT (singleton) DO UPDATE SET total = EXCLUDED.total`,
		total.Dec())
	if err != nil {
		return fmt.Errorf("set total locked: %w", err)
	}
	return nil
}
