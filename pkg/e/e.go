package e

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func Wrap(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInternal           = errors.New("internal error")
	ErrUnavailable        = errors.New("storage unavailable")
	ErrDeadline           = errors.New("deadline exceeded")
	ErrCanceled           = errors.New("context canceled")
	ErrUniqueViolation    = errors.New("unique violation")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrQueueEmpty         = errors.New("alert queue is empty")
	ErrSessionClosed      = errors.New("session closed")
)

// WrapError maps driver-level failures onto the service error taxonomy.
// Connectivity and timeout failures come back as ErrUnavailable or ErrDeadline
// so the ingestion path can tell transient storage errors from permanent ones.
func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrDeadline)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("%s: %w", op, ErrUniqueViolation)
		case pgErr.Code == "23503" || pgErr.Code == "23514":
			return fmt.Errorf("%s: %w", op, ErrInvalidInput)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08": // connection exception class
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrUnavailable)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrInternal)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if pgconn.SafeToRetry(err) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, ErrInternal)
}

// IsTransient reports whether the error is worth retrying with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrDeadline)
}
