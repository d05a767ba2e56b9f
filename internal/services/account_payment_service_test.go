package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sajinavi2006/servicing-api/internal/models"
)

func testDay(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestReconcileReopensAfterReversal(t *testing.T) {
	ctx := context.Background()
	paidDate := testDay(10)
	ap := &models.AccountPayment{
		ID:        1,
		AccountID: 2,
		DueDate:   testDay(10),
		DueAmount: 30000,
		Status:    models.PaymentStatusPaidOnTime,
		PaidDate:  &paidDate,
	}
	payment := &models.Payment{
		ID:                   11,
		InstallmentPrincipal: 100000,
		PaidPrincipal:        70000,
		DueAmount:            30000,
	}

	var updatedAP *models.AccountPayment
	var statusHistory *models.AccountPaymentStatusHistory
	apRepo := &mockAccountPaymentRepo{
		UpdateFn: func(ctx context.Context, a *models.AccountPayment) error {
			updatedAP = a
			return nil
		},
		CreateStatusHistoryFn: func(ctx context.Context, h *models.AccountPaymentStatusHistory) error {
			statusHistory = h
			return nil
		},
		FindByAccountFn: func(ctx context.Context, accountID uint) ([]models.AccountPayment, error) {
			return []models.AccountPayment{*ap}, nil
		},
	}

	account := &models.Account{ID: 2, Status: models.AccountStatusActive}
	accountRepo := &mockAccountRepo{
		FindByIDFn: func(ctx context.Context, id uint) (*models.Account, error) {
			return account, nil
		},
	}

	svc := NewAccountPaymentService(apRepo, &mockPaymentRepo{}, accountRepo, 4, 3)
	changed, err := svc.Reconcile(ctx, ap, []*models.Payment{payment}, testDay(20), "payment_void")
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, models.PaymentStatusLate, ap.Status)
	assert.Nil(t, ap.PaidDate)
	require.NotNil(t, updatedAP)
	require.NotNil(t, statusHistory)
	assert.Equal(t, models.PaymentStatusPaidOnTime, statusHistory.StatusOld)
	assert.Equal(t, models.PaymentStatusLate, statusHistory.StatusNew)
	assert.Equal(t, "payment_void", statusHistory.ChangeReason)
}

func TestReconcileDueAmountRatchetsDownOnly(t *testing.T) {
	ctx := context.Background()
	ap := &models.AccountPayment{
		ID:        1,
		AccountID: 2,
		DueDate:   testDay(25),
		DueAmount: 90000,
		Status:    models.PaymentStatusNotDue,
	}
	payment := &models.Payment{
		ID:                   11,
		InstallmentPrincipal: 60000,
		PaidPrincipal:        10000,
	}

	svc := NewAccountPaymentService(&mockAccountPaymentRepo{}, &mockPaymentRepo{}, &mockAccountRepo{}, 4, 3)
	_, err := svc.Reconcile(ctx, ap, []*models.Payment{payment}, testDay(1), "payment_void")
	require.NoError(t, err)

	// Stored 90000 exceeded the 50000 outstanding bound; it was lowered.
	assert.Equal(t, int64(50000), ap.DueAmount)

	// A stored value under the bound stays where it is.
	ap.DueAmount = 20000
	_, err = svc.Reconcile(ctx, ap, []*models.Payment{payment}, testDay(1), "payment_void")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), ap.DueAmount)
}

func TestReconcileSuspendsAccountWhenSiblingLate(t *testing.T) {
	ctx := context.Background()
	ap := &models.AccountPayment{
		ID:        1,
		AccountID: 2,
		DueDate:   testDay(10),
		Status:    models.PaymentStatusDueToday,
	}

	account := &models.Account{ID: 2, Status: models.AccountStatusActive}
	var accountHistory *models.AccountStatusHistory
	accountRepo := &mockAccountRepo{
		FindByIDFn: func(ctx context.Context, id uint) (*models.Account, error) {
			return account, nil
		},
		CreateStatusHistoryFn: func(ctx context.Context, h *models.AccountStatusHistory) error {
			accountHistory = h
			return nil
		},
	}
	apRepo := &mockAccountPaymentRepo{
		FindByAccountFn: func(ctx context.Context, accountID uint) ([]models.AccountPayment, error) {
			return []models.AccountPayment{
				{ID: 1, Status: models.PaymentStatusLate},
				{ID: 2, Status: models.PaymentStatusNotDue},
			}, nil
		},
	}

	payment := &models.Payment{ID: 11, InstallmentPrincipal: 10000}
	svc := NewAccountPaymentService(apRepo, &mockPaymentRepo{}, accountRepo, 4, 3)
	_, err := svc.Reconcile(ctx, ap, []*models.Payment{payment}, testDay(15), "payment_void")
	require.NoError(t, err)

	assert.Equal(t, models.AccountStatusSuspended, account.Status)
	require.NotNil(t, accountHistory)
	assert.Equal(t, models.AccountStatusActive, accountHistory.StatusOld)
}

func TestReconcileAllPaidDerivesPaidGrade(t *testing.T) {
	ctx := context.Background()
	ap := &models.AccountPayment{
		ID:        1,
		AccountID: 2,
		DueDate:   testDay(10),
		Status:    models.PaymentStatusLate,
	}
	paidDate := testDay(12)
	payment := &models.Payment{
		ID:                   11,
		InstallmentPrincipal: 10000,
		PaidPrincipal:        10000,
		PaidDate:             &paidDate,
	}

	svc := NewAccountPaymentService(&mockAccountPaymentRepo{}, &mockPaymentRepo{}, &mockAccountRepo{}, 4, 3)
	changed, err := svc.Reconcile(ctx, ap, []*models.Payment{payment}, testDay(12), "payment")
	require.NoError(t, err)

	assert.True(t, changed)
	assert.Equal(t, models.PaymentStatusPaidWithinGrace, ap.Status)
	require.NotNil(t, ap.PaidDate)
	assert.Equal(t, paidDate, *ap.PaidDate)
}
