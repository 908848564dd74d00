package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "salegate/pkg/domain"
	audit "salegate/pkg/platform/audit"
	txcontext "salegate/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL. Appends join the caller's
// transaction when one is carried in the context, so a rolled-back operation
// leaves no event behind.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON body stored alongside the indexed columns and shipped
// to downstream sinks. Field names match audit.Event.
type payload struct {
	ID          string `json:"ID"`
	Action      string `json:"Action"`
	Timestamp   string `json:"Timestamp"`
	Account     string `json:"Account,omitempty"`
	Caller      string `json:"Caller,omitempty"`
	Reason      string `json:"Reason,omitempty"`
	Validity    string `json:"Validity,omitempty"`
	Amount      string `json:"Amount,omitempty"`
	Value       string `json:"Value,omitempty"`
	TokenAmount string `json:"TokenAmount,omitempty"`
	BonusAmount string `json:"BonusAmount,omitempty"`
	Rate        string `json:"Rate,omitempty"`
	BonusRate   uint64 `json:"BonusRate,omitempty"`
	StartTime   string `json:"StartTime,omitempty"`
	EndTime     string `json:"EndTime,omitempty"`
	RequestID   string `json:"RequestID,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	p := payload{
		ID:          eventID.String(),
		Action:      string(event.Action),
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		Account:     event.Account.String(),
		Caller:      event.Caller.String(),
		Reason:      event.Reason,
		Amount:      event.Amount,
		Value:       event.Value,
		TokenAmount: event.TokenAmount,
		BonusAmount: event.BonusAmount,
		Rate:        event.Rate,
		BonusRate:   event.BonusRate,
		RequestID:   event.RequestID,
	}
	if !event.Validity.IsZero() {
		p.Validity = event.Validity.Format(time.RFC3339Nano)
	}
	if !event.StartTime.IsZero() {
		p.StartTime = event.StartTime.Format(time.RFC3339Nano)
		p.EndTime = event.EndTime.Format(time.RFC3339Nano)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, action, account, caller, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		eventID, string(event.Action), event.Account.String(), event.Caller.String(), event.Timestamp, body,
	); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, account id.Account) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_events
		WHERE account = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		out = append(out, p.toEvent())
	}
	return out, rows.Err()
}

func (p payload) toEvent() audit.Event {
	e := audit.Event{
		Action:      audit.Action(p.Action),
		Account:     id.Account(p.Account),
		Caller:      id.Account(p.Caller),
		Reason:      p.Reason,
		Amount:      p.Amount,
		Value:       p.Value,
		TokenAmount: p.TokenAmount,
		BonusAmount: p.BonusAmount,
		Rate:        p.Rate,
		BonusRate:   p.BonusRate,
		RequestID:   p.RequestID,
	}
	e.Timestamp, _ = time.Parse(time.RFC3339Nano, p.Timestamp)
	if p.Validity != "" {
		e.Validity, _ = time.Parse(time.RFC3339Nano, p.Validity)
	}
	if p.StartTime != "" {
		e.StartTime, _ = time.Parse(time.RFC3339Nano, p.StartTime)
		e.EndTime, _ = time.Parse(time.RFC3339Nano, p.EndTime)
	}
	return e
}
