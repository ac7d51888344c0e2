// Package uow runs multi-step writes either inside one database transaction or,
// when the store cannot offer one, as ordered steps with compensations.
package uow

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	pkgerrors "github.com/quickcart-labs/quickcart-backend/pkg/errors"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

type Mode string

const (
	ModeTransactional Mode = "transactional"
	ModeCompensating  Mode = "compensating"
)

// Scope is handed to the work function. Every write inside the unit must go
// through DB(). Compensate registers an undo step; transactional scopes ignore
// it because rollback already covers the writes.
type Scope interface {
	DB() *gorm.DB
	Compensate(name string, fn func(ctx context.Context) error)
}

type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context, scope Scope) error) error
	Mode() Mode
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type compensationObserver interface {
	CompensationRan()
}

// Select probes the store once and returns the matching runner.
func Select(ctx context.Context, client *db.Client, logg *logger.Logger, observer compensationObserver) Runner {
	if client.SupportsTransactions(ctx) {
		if logg != nil {
			logg.Info(logg.WithField(ctx, "uow_mode", ModeTransactional), "uow.selected")
		}
		return NewTransactional(client)
	}
	if logg != nil {
		logg.Warn(logg.WithField(ctx, "uow_mode", ModeCompensating), "uow.selected")
	}
	return NewCompensating(client.DB(), logg, observer)
}

type Transactional struct {
	tx txRunner
}

func NewTransactional(tx txRunner) *Transactional {
	return &Transactional{tx: tx}
}

func (t *Transactional) Mode() Mode { return ModeTransactional }

func (t *Transactional) Do(ctx context.Context, fn func(ctx context.Context, scope Scope) error) error {
	return t.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(ctx, txScope{tx: tx})
	})
}

type txScope struct {
	tx *gorm.DB
}

func (s txScope) DB() *gorm.DB { return s.tx }

func (txScope) Compensate(string, func(ctx context.Context) error) {}

// Compensating executes steps directly against the store. On failure the
// registered compensations run newest first. If any of them fails the caller
// gets RECONCILIATION_REQUIRED carrying every failure.
type Compensating struct {
	db       *gorm.DB
	logg     *logger.Logger
	observer compensationObserver
}

func NewCompensating(conn *gorm.DB, logg *logger.Logger, observer compensationObserver) *Compensating {
	return &Compensating{db: conn, logg: logg, observer: observer}
}

func (c *Compensating) Mode() Mode { return ModeCompensating }

func (c *Compensating) Do(ctx context.Context, fn func(ctx context.Context, scope Scope) error) (err error) {
	scope := &compensatingScope{db: c.db.WithContext(ctx)}

	defer func() {
		if r := recover(); r != nil {
			_ = c.unwind(ctx, scope)
			panic(r)
		}
	}()

	if err = fn(ctx, scope); err == nil {
		return nil
	}
	if unwindErr := c.unwind(ctx, scope); unwindErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeReconciliation, multierr.Append(err, unwindErr), "compensation failed; manual reconciliation required")
	}
	return err
}

func (c *Compensating) unwind(ctx context.Context, scope *compensatingScope) error {
	var errs error
	for i := len(scope.steps) - 1; i >= 0; i-- {
		step := scope.steps[i]
		if c.observer != nil {
			c.observer.CompensationRan()
		}
		if stepErr := step.fn(ctx); stepErr != nil {
			if c.logg != nil {
				c.logg.Error(c.logg.WithField(ctx, "compensation", step.name), "uow.compensation_failed", stepErr)
			}
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", step.name, stepErr))
		}
	}
	return errs
}

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

type compensatingScope struct {
	db    *gorm.DB
	steps []compensation
}

func (s *compensatingScope) DB() *gorm.DB { return s.db }

func (s *compensatingScope) Compensate(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}
