package store

import (
	"context"
	"database/sql"
	"fmt"

	"salegate/internal/phase"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
	txcontext "salegate/pkg/platform/tx"
)

// Postgres keeps the singleton sale state in a one-row table. Amounts are
// stored as NUMERIC(78,0): wide enough for 256 bits, exact, and comparable
// in SQL.
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

// Seed inserts the singleton row if absent, with the initial total sale cap.
func (s *Postgres) Seed(ctx context.Context, totalSaleCap id.Amount) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO sale_state (singleton, total_sale_cap, raised, min_cap, max_cap)
		VALUES (TRUE, $1, 0, 0, 0)
		ON CONFLICT (singleton) DO NOTHING
	`, totalSaleCap.Dec())
	if err != nil {
		return fmt.Errorf("seed sale state: %w", err)
	}
	return nil
}

func (s *Postgres) Phase(ctx context.Context) (phase.Phase, error) {
	var (
		rate       sql.NullString
		bonusRate  sql.NullInt64
		start, end sql.NullTime
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT phase_rate, phase_bonus_rate, phase_start, phase_end
		FROM sale_state WHERE singleton
	`).Scan(&rate, &bonusRate, &start, &end)
	if err != nil {
		return phase.Phase{}, fmt.Errorf("load phase: %w", err)
	}
	if !rate.Valid {
		return phase.Phase{}, sentinel.ErrNotFound
	}
	rateAmt, err := id.ParseAmount(rate.String)
	if err != nil {
		return phase.Phase{}, fmt.Errorf("decode phase rate: %w", err)
	}
	return phase.Phase{
		Rate:      rateAmt,
		BonusRate: uint64(bonusRate.Int64),
		StartTime: start.Time.UTC(),
		EndTime:   end.Time.UTC(),
	}, nil
}

func (s *Postgres) SetPhase(ctx context.Context, p phase.Phase) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE sale_state
		SET phase_rate = $1, phase_bonus_rate = $2, phase_start = $3, phase_end = $4
		WHERE singleton
	`, p.Rate.Dec(), int64(p.BonusRate), p.StartTime.UTC(), p.EndTime.UTC())
	if err != nil {
		return fmt.Errorf("store phase: %w", err)
	}
	return nil
}

func (s *Postgres) Caps(ctx context.Context) (phase.Caps, error) {
	var minCap, maxCap string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT min_cap::text, max_cap::text FROM sale_state WHERE singleton`,
	).Scan(&minCap, &maxCap)
	if err != nil {
		return phase.Caps{}, fmt.Errorf("load caps: %w", err)
	}
	minAmt, err := id.ParseAmount(minCap)
	if err != nil {
		return phase.Caps{}, fmt.Errorf("decode min cap: %w", err)
	}
	maxAmt, err := id.ParseAmount(maxCap)
	if err != nil {
		return phase.Caps{}, fmt.Errorf("decode max cap: %w", err)
	}
	return phase.Caps{Min: minAmt, Max: maxAmt}, nil
}

func (s *Postgres) SetCaps(ctx context.Context, c phase.Caps) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE sale_state SET min_cap = $1, max_cap = $2 WHERE singleton`,
		c.Min.Dec(), c.Max.Dec())
	if err != nil {
		return fmt.Errorf("store caps: %w", err)
	}
	return nil
}

func (s *Postgres) TotalSaleCap(ctx context.Context) (id.Amount, error) {
	return s.amountColumn(ctx, "total_sale_cap")
}

func (s *Postgres) SetTotalSaleCap(ctx context.Context, cap id.Amount) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE sale_state SET total_sale_cap = $1 WHERE singleton`, cap.Dec())
	if err != nil {
		return fmt.Errorf("store total sale cap: %w", err)
	}
	return nil
}

func (s *Postgres) Raised(ctx context.Context) (id.Amount, error) {
	return s.amountColumn(ctx, "raised")
}

func (s *Postgres) SetRaised(ctx context.Context, raised id.Amount) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE sale_state SET raised = $1 WHERE singleton`, raised.Dec())
	if err != nil {
		return fmt.Errorf("store raised total: %w", err)
	}
	return nil
}

func (s *Postgres) amountColumn(ctx context.Context, column string) (id.Amount, error) {
	var v string
	query := fmt.Sprintf(`SELECT %s::text FROM sale_state WHERE singleton`, column)
	if err := s.conn(ctx).QueryRowContext(ctx, query).Scan(&v); err != nil {
		return nil, fmt.Errorf("load %s: %w", column, err)
	}
	amt, err := id.ParseAmount(v)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", column, err)
	}
	return amt, nil
}
