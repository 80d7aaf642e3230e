package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type txKey struct{}

// Transactor runs units of work inside a single database transaction. Repositories pick
// up the transaction from the context so they need no explicit handle.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor constructs a Transactor bound to db.
func NewTransactor(db *gorm.DB) (*Transactor, error) {
	if db == nil {
		return nil, errors.New("transactor: db is required")
	}
	return &Transactor{db: db}, nil
}

// WithinTransaction commits when fn succeeds and rolls back otherwise. Nested calls join
// the outer transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFromContext returns the transaction carried by ctx, or fallback scoped to ctx.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback.WithContext(ctx)
}
