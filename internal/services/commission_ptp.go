package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

// AdjustResult reports whether a best-effort adjustment succeeded. A failed
// result carries the error for tests and monitoring but never aborts the
// enclosing reversal.
type AdjustResult struct {
	OK  bool
	Err error
}

func adjustOK() AdjustResult { return AdjustResult{OK: true} }

func adjustFailed(err error) AdjustResult {
	logger.Error(fmt.Sprintf("[Reversal] Commission/PTP adjustment failed: %v", err))
	return AdjustResult{OK: false, Err: err}
}

// CommissionPTPAdjuster unwinds commission credits and promise-to-pay state
// for the account payments a reversal touched. Strictly best-effort.
type CommissionPTPAdjuster struct {
	ptpRepo            repository.PTPRepository
	commissionRepo     repository.CommissionRepository
	txRepo             repository.TransactionRepository
	accountPaymentRepo repository.AccountPaymentRepository
}

// NewCommissionPTPAdjuster creates a new commission/PTP adjuster
func NewCommissionPTPAdjuster(ptpRepo repository.PTPRepository, commissionRepo repository.CommissionRepository, txRepo repository.TransactionRepository, accountPaymentRepo repository.AccountPaymentRepository) *CommissionPTPAdjuster {
	return &CommissionPTPAdjuster{
		ptpRepo:            ptpRepo,
		commissionRepo:     commissionRepo,
		txRepo:             txRepo,
		accountPaymentRepo: accountPaymentRepo,
	}
}

// Adjust processes every touched account payment: restores PTP state broken
// by the reversal and decrements matching commission credits by the reversed
// magnitude.
func (a *CommissionPTPAdjuster) Adjust(ctx context.Context, accountID uint, accountPaymentIDs []uint, originalDate time.Time, reversalDate time.Time, reversedAmount int64) AdjustResult {
	for _, apID := range accountPaymentIDs {
		if err := a.adjustAccountPayment(ctx, accountID, apID, originalDate, reversalDate, reversedAmount); err != nil {
			return adjustFailed(err)
		}
	}
	return adjustOK()
}

func (a *CommissionPTPAdjuster) adjustAccountPayment(ctx context.Context, accountID, accountPaymentID uint, originalDate, reversalDate time.Time, reversedAmount int64) error {
	ptps, err := a.ptpRepo.FindActiveByAccountPayment(ctx, accountPaymentID)
	if err != nil {
		return fmt.Errorf("failed to load PTPs for account payment %d: %w", accountPaymentID, err)
	}

	for i := range ptps {
		ptp := &ptps[i]
		if !ptp.CoversDate(originalDate) {
			continue
		}

		if ptp.IsExpiredAt(reversalDate) {
			// The reversed payment had satisfied this now-expired promise.
			// Restore the promise date on the obligation and retire the PTP.
			if err := a.restorePTP(ctx, accountPaymentID, ptp); err != nil {
				return err
			}
			continue
		}

		lookup, err := a.commissionRepo.FindMatch(ctx, accountID, accountPaymentID, reversedAmount)
		if err != nil {
			return fmt.Errorf("failed to look up commission: %w", err)
		}
		if lookup != nil {
			lookup.PaymentAmount -= reversedAmount
			lookup.CreditedAmount -= reversedAmount
			if lookup.PaymentAmount < 0 {
				lookup.PaymentAmount = 0
			}
			if lookup.CreditedAmount < 0 {
				lookup.CreditedAmount = 0
			}
			if err := a.commissionRepo.Update(ctx, lookup); err != nil {
				return fmt.Errorf("failed to update commission: %w", err)
			}
		}

		net, err := a.netPaidInWindow(ctx, accountPaymentID, ptp)
		if err != nil {
			return err
		}
		if net < ptp.PTPAmount {
			if err := a.restorePTP(ctx, accountPaymentID, ptp); err != nil {
				return err
			}
		}
	}

	return nil
}

// netPaidInWindow sums payment events minus void events inside the promise
// window to decide whether the promise is still satisfied.
func (a *CommissionPTPAdjuster) netPaidInWindow(ctx context.Context, accountPaymentID uint, ptp *models.PTP) (int64, error) {
	from := ptp.CreatedAt
	to := ptp.PTPDate.AddDate(0, 0, 1)

	paid, err := a.txRepo.SumEventsInWindow(ctx, accountPaymentID, models.EventTypePayment, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payment events: %w", err)
	}
	voided, err := a.txRepo.SumEventsInWindow(ctx, accountPaymentID, models.EventTypePaymentVoid, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to sum void events: %w", err)
	}
	// Void amounts are stored negative.
	return paid + voided, nil
}

func (a *CommissionPTPAdjuster) restorePTP(ctx context.Context, accountPaymentID uint, ptp *models.PTP) error {
	ap, err := a.accountPaymentRepo.FindByID(ctx, accountPaymentID)
	if err != nil {
		return fmt.Errorf("failed to load account payment %d: %w", accountPaymentID, err)
	}
	ptpDate := ptp.PTPDate
	ap.PTPDate = &ptpDate
	if err := a.accountPaymentRepo.Update(ctx, ap); err != nil {
		return fmt.Errorf("failed to restore ptp date: %w", err)
	}
	ptp.PTPStatus = nil
	if err := a.ptpRepo.Update(ctx, ptp); err != nil {
		return fmt.Errorf("failed to clear ptp status: %w", err)
	}
	return nil
}
