package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAttemptNotFound = errors.New("payment attempt not found")

type Repository interface {
	Create(ctx context.Context, attempt *Attempt) error
	UpdateState(ctx context.Context, invoiceID, state, reason string) (*Attempt, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Attempt, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const attemptColumns = `id, order_id, provider, invoice_id, state, phone_number, amount, failure_reason, created_at, updated_at`

func scanAttempt(row pgx.Row, a *Attempt) error {
	return row.Scan(
		&a.ID,
		&a.OrderID,
		&a.Provider,
		&a.InvoiceID,
		&a.State,
		&a.PhoneNumber,
		&a.Amount,
		&a.FailureReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

func (r *postgresRepository) Create(ctx context.Context, attempt *Attempt) error {
	if attempt.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate payment attempt ID: %w", err)
		}
		attempt.ID = id
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO payment_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.OrderID,
		attempt.Provider,
		attempt.InvoiceID,
		attempt.State,
		attempt.PhoneNumber,
		attempt.Amount,
		attempt.FailureReason,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert payment attempt for order %s: %w", attempt.OrderID, err)
	}

	attempt.CreatedAt, attempt.UpdatedAt = now, now
	return nil
}

// UpdateState меняет состояние только незавершенной попытки. Для уже
// завершенной возвращается текущая запись без изменений.
func (r *postgresRepository) UpdateState(ctx context.Context, invoiceID, state, reason string) (*Attempt, error) {
	query := `
		UPDATE payment_attempts
		SET state = $2, failure_reason = $3, updated_at = $4
		WHERE invoice_id = $1 AND state NOT IN ($5, $6, $7)
		RETURNING ` + attemptColumns

	var attempt Attempt
	err := scanAttempt(r.db.QueryRow(ctx, query,
		invoiceID, state, reason, time.Now().UTC(),
		StateComplete, StateFailed, StateError,
	), &attempt)
	if err == nil {
		return &attempt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to update payment attempt %s: %w", invoiceID, err)
	}

	err = scanAttempt(r.db.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM payment_attempts WHERE invoice_id = $1`, invoiceID,
	), &attempt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("repository: failed to get payment attempt %s: %w", invoiceID, err)
	}
	return &attempt, nil
}

func (r *postgresRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE order_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query payment attempts for order %s: %w", orderID, err)
	}
	defer rows.Close()

	attempts := make([]Attempt, 0)
	for rows.Next() {
		var a Attempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, fmt.Errorf("repository: failed to scan payment attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating payment attempts: %w", err)
	}
	return attempts, nil
}
