package repository

import (
	"context"

	"github.com/sajinavi2006/servicing-api/internal/models"

	"gorm.io/gorm"
)

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByAccount(ctx context.Context, accountID uint) ([]models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	CreateStatusHistory(ctx context.Context, history *models.LoanStatusHistory) error
	TotalPaidOffAmount(ctx context.Context, accountID uint) (int64, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) conn(ctx context.Context) *gorm.DB {
	return dbFrom(ctx, r.db)
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := r.conn(ctx).First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByAccount(ctx context.Context, accountID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.conn(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&loans).Error
	return loans, err
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.conn(ctx).Save(loan).Error
}

func (r *loanRepository) CreateStatusHistory(ctx context.Context, history *models.LoanStatusHistory) error {
	return r.conn(ctx).Create(history).Error
}

// TotalPaidOffAmount sums the loan amounts of the account's paid off loans.
// Used for the proven account threshold check.
func (r *loanRepository) TotalPaidOffAmount(ctx context.Context, accountID uint) (int64, error) {
	var total int64
	err := r.conn(ctx).
		Model(&models.Loan{}).
		Where("account_id = ? AND status = ?", accountID, models.LoanStatusPaidOff).
		Select("COALESCE(SUM(loan_amount), 0)").
		Scan(&total).Error
	return total, err
}
