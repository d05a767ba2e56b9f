package repository

import (
	"context"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines the interface for account and customer data access
type AccountRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Account, error)
	FindAllIDs(ctx context.Context) ([]uint, error)
	Update(ctx context.Context, account *models.Account) error
	CreateStatusHistory(ctx context.Context, history *models.AccountStatusHistory) error
	CreatePropertyHistory(ctx context.Context, history *models.AccountPropertyHistory) error
	FindCustomer(ctx context.Context, id uint) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.conn(ctx).Preload("Customer").First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindAllIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.conn(ctx).
		Model(&models.Account{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	return r.conn(ctx).Save(account).Error
}

func (r *accountRepository) CreateStatusHistory(ctx context.Context, history *models.AccountStatusHistory) error {
	return r.conn(ctx).Create(history).Error
}

func (r *accountRepository) CreatePropertyHistory(ctx context.Context, history *models.AccountPropertyHistory) error {
	return r.conn(ctx).Create(history).Error
}

func (r *accountRepository) FindCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.conn(ctx).First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *accountRepository) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.conn(ctx).Save(customer).Error
}
