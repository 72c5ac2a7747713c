// Package engine keeps per-account balance histories consistent. It rebuilds
// income-derived snapshots on top of the latest manual reading and turns
// charge edits into balance adjustments.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/service"
)

// Engine orchestrates reconciliation and delta application.
type Engine struct {
	storage service.Storage
	locks   *accountLocks
	now     func() time.Time
}

// Config holds configuration options for the engine.
type Config struct {
	// Now is the clock used to date adjustment snapshots.
	Now func() time.Time
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Now: time.Now,
	}
}

// New creates an engine backed by the given storage.
func New(storage service.Storage) *Engine {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *Engine {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		storage: storage,
		locks:   newAccountLocks(),
		now:     now,
	}
}

func (e *Engine) today() date.Date {
	return date.FromTime(e.now())
}

// inTx runs fn inside a single store transaction and commits it when fn
// succeeds. Every read and write in fn must go through tx.
func (e *Engine) inTx(ctx context.Context, op string, fn func(tx service.Transaction) error) error {
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return storeError("begin "+op, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Failed to roll back transaction", "op", op, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit "+op, err)
	}
	return nil
}

// storeError classifies a store failure. Not-found and validation errors keep
// their kind; everything else becomes a persistence failure.
func storeError(op string, err error) error {
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrValidation) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrPersistence, op, err)
}

func requireID(value, name string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", common.ErrValidation, name)
	}
	return nil
}
