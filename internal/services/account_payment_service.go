package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/statemachine"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

// AccountPaymentService re-derives an account payment's aggregate balances
// and status from its constituent payments, and cascades status changes up
// to the account.
type AccountPaymentService struct {
	accountPaymentRepo repository.AccountPaymentRepository
	paymentRepo        repository.PaymentRepository
	accountRepo        repository.AccountRepository
	graceDays          int
	dueSoonDays        int
}

// NewAccountPaymentService creates a new account payment service
func NewAccountPaymentService(accountPaymentRepo repository.AccountPaymentRepository, paymentRepo repository.PaymentRepository, accountRepo repository.AccountRepository, graceDays, dueSoonDays int) *AccountPaymentService {
	return &AccountPaymentService{
		accountPaymentRepo: accountPaymentRepo,
		paymentRepo:        paymentRepo,
		accountRepo:        accountRepo,
		graceDays:          graceDays,
		dueSoonDays:        dueSoonDays,
	}
}

// Reconcile recomputes the account payment's status, paid date and due
// amount from its payments, then recomputes the account status with the
// given reason. The due-amount step is a one-way ratchet: the stored value
// is only ever lowered to the computed outstanding bound, never raised.
// Returns true when the account payment's status changed.
func (s *AccountPaymentService) Reconcile(ctx context.Context, accountPayment *models.AccountPayment, payments []*models.Payment, asOf time.Time, reason string) (bool, error) {
	oldStatus := accountPayment.Status

	allPaid := len(payments) > 0
	var latestPaid *time.Time
	var outstanding int64
	for _, p := range payments {
		if !p.IsFullyPaid() {
			allPaid = false
			outstanding += p.Outstanding()
		}
		if p.PaidDate != nil && (latestPaid == nil || p.PaidDate.After(*latestPaid)) {
			latestPaid = p.PaidDate
		}
	}

	if allPaid && latestPaid != nil {
		accountPayment.Status = statemachine.DerivePaidStatus(accountPayment.DueDate, *latestPaid, s.graceDays)
		accountPayment.PaidDate = latestPaid
	} else {
		accountPayment.Status = statemachine.DeriveUnpaidStatus(accountPayment.DueDate, asOf, s.dueSoonDays)
		accountPayment.PaidDate = nil
	}

	if accountPayment.DueAmount > outstanding {
		logger.Warn(fmt.Sprintf("[Reversal] Clamping account payment %d due amount %d to outstanding bound %d",
			accountPayment.ID, accountPayment.DueAmount, outstanding))
		accountPayment.DueAmount = outstanding
	}

	if err := s.accountPaymentRepo.Update(ctx, accountPayment); err != nil {
		return false, fmt.Errorf("failed to persist account payment %d: %w", accountPayment.ID, err)
	}

	statusChanged := accountPayment.Status != oldStatus
	if statusChanged {
		history := &models.AccountPaymentStatusHistory{
			AccountPaymentID: accountPayment.ID,
			StatusOld:        oldStatus,
			StatusNew:        accountPayment.Status,
			ChangeReason:     reason,
		}
		if err := s.accountPaymentRepo.CreateStatusHistory(ctx, history); err != nil {
			return false, fmt.Errorf("failed to record account payment status history: %w", err)
		}
	}

	if err := s.recomputeAccountStatus(ctx, accountPayment.AccountID, reason); err != nil {
		return false, err
	}

	return statusChanged, nil
}

// recomputeAccountStatus re-derives the account status from its account
// payments: suspended while any obligation is late, active otherwise. The
// read of sibling account payments is unlocked and may be stale; the status
// converges on the next recompute.
func (s *AccountPaymentService) recomputeAccountStatus(ctx context.Context, accountID uint, reason string) error {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account %d: %w", accountID, err)
	}

	siblings, err := s.accountPaymentRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account payments: %w", err)
	}

	newStatus := models.AccountStatusActive
	for _, ap := range siblings {
		if ap.Status == models.PaymentStatusLate {
			newStatus = models.AccountStatusSuspended
			break
		}
	}

	if newStatus == account.Status {
		return nil
	}

	oldStatus := account.Status
	account.Status = newStatus
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	history := &models.AccountStatusHistory{
		AccountID:    account.ID,
		StatusOld:    oldStatus,
		StatusNew:    newStatus,
		ChangeReason: reason,
	}
	if err := s.accountRepo.CreateStatusHistory(ctx, history); err != nil {
		return fmt.Errorf("failed to record account status history: %w", err)
	}
	return nil
}
