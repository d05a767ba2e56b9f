package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicatePayback is returned when a payback with the same external
// transaction id was already recorded.
var ErrDuplicatePayback = errors.New("payback transaction already exists")

// PaybackRepository defines the interface for payback transaction data access
type PaybackRepository interface {
	FindByID(ctx context.Context, id uint) (*models.PaybackTransaction, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PaybackTransaction, error)
	Create(ctx context.Context, payback *models.PaybackTransaction) error
	Update(ctx context.Context, payback *models.PaybackTransaction) error
}

type paybackRepository struct {
	db *gorm.DB
}

// NewPaybackRepository creates a new payback repository
func NewPaybackRepository(db *gorm.DB) PaybackRepository {
	return &paybackRepository{db: db}
}

func (r *paybackRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *paybackRepository) FindByID(ctx context.Context, id uint) (*models.PaybackTransaction, error) {
	var payback models.PaybackTransaction
	if err := r.conn(ctx).First(&payback, id).Error; err != nil {
		return nil, err
	}
	return &payback, nil
}

func (r *paybackRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaybackTransaction, error) {
	var payback models.PaybackTransaction
	err := r.conn(ctx).Where("transaction_id = ?", transactionID).First(&payback).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payback, nil
}

func (r *paybackRepository) Create(ctx context.Context, payback *models.PaybackTransaction) error {
	if err := r.conn(ctx).Create(payback).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePayback
		}
		return err
	}
	return nil
}

func (r *paybackRepository) Update(ctx context.Context, payback *models.PaybackTransaction) error {
	return r.conn(ctx).Save(payback).Error
}
