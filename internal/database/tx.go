package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"

	"fishfarm-backend/internal/apperr"
	"fishfarm-backend/internal/logger"
	"fishfarm-backend/internal/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RetryPolicy bounds how often a transaction is re-run after a transient failure.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

var DefaultRetry = RetryPolicy{Attempts: 3, Backoff: 100 * time.Millisecond}

// RunInTransaction runs fn in one transaction. Transient store failures roll the
// whole transaction back and re-run it with exponential backoff; any other error
// is returned after the rollback without retrying.
func RunInTransaction(ctx context.Context, db *gorm.DB, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = Classify(db.WithContext(ctx).Transaction(fn))
		if err == nil || !apperr.IsTransient(err) || attempt == attempts {
			return err
		}

		metrics.StoreRetries.Inc()
		wait := policy.Backoff << (attempt - 1)
		logger.L().Warn("transient store failure, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// Classify marks connectivity, timeout and serialization failures as
// *apperr.TransientStoreError. Other errors pass through unchanged.
func Classify(err error) error {
	if err == nil || apperr.IsTransient(err) {
		return err
	}
	if isTransient(err) {
		return &apperr.TransientStoreError{Err: err}
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"57P01", // admin_shutdown
			"53300": // too_many_connections
			return true
		}
		// class 08: connection exceptions
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}

	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// IsNotFound reports gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
