package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}
type collectionTxKey struct{}

// TxManager runs a function inside one atomic scope spanning the primary
// ledger store and the secondary collection store. The collection
// transaction is opened inside the primary one, so an error anywhere rolls
// back both. There is no compensation path for a collection-store commit
// failure after the primary has committed; the ordering here (collection
// commits first) narrows that window but does not close it.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTxManager struct {
	db           *gorm.DB
	collectionDB *gorm.DB
}

// NewTxManager creates a TxManager over the primary and collection stores
func NewTxManager(db, collectionDB *gorm.DB) TxManager {
	return &gormTxManager{db: db, collectionDB: collectionDB}
}

func (m *gormTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already inside a scope: join it instead of opening a new one.
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return m.collectionDB.WithContext(ctx).Transaction(func(ctx2 *gorm.DB) error {
			c := context.WithValue(ctx, txKey{}, tx)
			c = context.WithValue(c, collectionTxKey{}, ctx2)
			return fn(c)
		})
	})
}

// dbFrom returns the primary-store transaction bound to ctx, or the
// repository's own handle when no transaction is open.
func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// collectionDBFrom is dbFrom for the collection store.
func collectionDBFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(collectionTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
