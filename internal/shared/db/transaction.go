// Package db provides database utilities including transaction management
// and request-scoped session handoff.
package db

import (
	"context"

	"gorm.io/gorm"
)

// txKey is the context key for storing transaction.
type txKey struct{}

// sessionKey is the context key for the tenant-configured gorm session
// installed by the resolution middleware.
type sessionKey struct{}

// TransactionManager manages database transactions.
type TransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager creates a new TransactionManager.
func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// RunInTransaction executes the given function within a database transaction.
// If the function returns an error, the transaction will be rolled back.
func (tm *TransactionManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return FromContext(ctx, tm.db).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		return fn(txCtx)
	})
}

// WithSession returns a child context carrying the tenant-configured gorm
// session. Repositories resolve it via FromContext, so every query inside
// the request runs on the connection whose session variable names the
// resolved tenant.
func WithSession(ctx context.Context, session *gorm.DB) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// FromContext returns, in priority order: the active transaction, the
// tenant-configured session, or the default DB bound to ctx.
func FromContext(ctx context.Context, defaultDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	if session, ok := ctx.Value(sessionKey{}).(*gorm.DB); ok {
		return session.WithContext(ctx)
	}
	return defaultDB.WithContext(ctx)
}
