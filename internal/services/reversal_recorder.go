package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/statemachine"
)

// RecordParams carries the reversal context the recorder needs for every
// payment it touches.
type RecordParams struct {
	ReversalDate   time.Time
	Receipt        *string
	Method         *string
	Note           string
	CashbackFunded bool
}

// RecordOutcome is what one recorder pass produced.
type RecordOutcome struct {
	// VoidEvents are the compensating events created, one per payment whose
	// balance actually dropped.
	VoidEvents []*models.PaymentEvent
	// ReopenedLoanIDs are loans that fell out of paid-off as a side effect.
	ReopenedLoanIDs []uint
}

// ReversalRecorder turns allocator balance drops into compensating ledger
// events, re-derives payment status and paid date, and reconciles cashback
// state for every touched payment.
type ReversalRecorder struct {
	paymentRepo repository.PaymentRepository
	txRepo      repository.TransactionRepository
	loanRepo    repository.LoanRepository
	commRepo    repository.CommissionRepository
	cashbackSvc *CashbackService
	graceDays   int
	dueSoonDays int
}

// NewReversalRecorder creates a new reversal recorder
func NewReversalRecorder(paymentRepo repository.PaymentRepository, txRepo repository.TransactionRepository, loanRepo repository.LoanRepository, commRepo repository.CommissionRepository, cashbackSvc *CashbackService, graceDays, dueSoonDays int) *ReversalRecorder {
	return &ReversalRecorder{
		paymentRepo: paymentRepo,
		txRepo:      txRepo,
		loanRepo:    loanRepo,
		commRepo:    commRepo,
		cashbackSvc: cashbackSvc,
		graceDays:   graceDays,
		dueSoonDays: dueSoonDays,
	}
}

// RecordReversals walks the payments, diffs each against the pre-allocation
// snapshot, and for every payment whose paid amount dropped creates the void
// event and runs the full side-effect chain. Payments with no drop are
// skipped entirely.
func (r *ReversalRecorder) RecordReversals(ctx context.Context, account *models.Account, accountPayment *models.AccountPayment, payments []*models.Payment, snapshot paymentSnapshot, params RecordParams) (*RecordOutcome, error) {
	outcome := &RecordOutcome{}

	for _, payment := range payments {
		totalReversed := snapshot.reversedAmount(payment)
		if totalReversed <= 0 {
			continue
		}

		loan := &payment.Loan
		wasPaidOff := loan.IsPaidOff()

		clampDueAmount(payment)

		eventType := models.EventTypePaymentVoid
		if params.CashbackFunded {
			eventType = models.EventTypeCustomerWalletVoid
		}

		// The due-amount snapshot on the void reflects the post-allocation
		// balance: what the payment owes now that the reversal reopened it.
		event := &models.PaymentEvent{
			PaymentID:      payment.ID,
			EventType:      eventType,
			EventPayment:   -totalReversed,
			EventDueAmount: payment.DueAmount,
			EventDate:      params.ReversalDate,
			CanReverse:     false,
			PaymentReceipt: params.Receipt,
			PaymentMethod:  params.Method,
		}
		if err := r.txRepo.CreateEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to create void event for payment %d: %w", payment.ID, err)
		}
		outcome.VoidEvents = append(outcome.VoidEvents, event)

		if eventType == models.EventTypePaymentVoid {
			split := snapshot.reversedSplit(payment)
			voidSplit := &models.CommissionVoidSplit{
				PaymentID:      payment.ID,
				PaymentEventID: &event.ID,
				Principal:      split.Principal,
				Interest:       split.Interest,
				LateFee:        split.LateFee,
			}
			if err := r.commRepo.CreateVoidSplit(ctx, voidSplit); err != nil {
				return nil, fmt.Errorf("failed to record void split for payment %d: %w", payment.ID, err)
			}
		}

		events, err := r.txRepo.FindEventsByPayment(ctx, payment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load events for payment %d: %w", payment.ID, err)
		}
		payment.PaidDate = inferPaidDate(events)

		counter := 0
		if account.CashbackNewScheme && !params.CashbackFunded {
			counter, err = r.cashbackSvc.CounterAdjustment(ctx, account, accountPayment.ID, payment)
			if err != nil {
				return nil, err
			}
		}

		if wasPaidOff {
			if err := r.cashbackSvc.ReverseAvailable(ctx, account.CustomerID, loan); err != nil {
				return nil, err
			}
			if err := r.cashbackSvc.ReverseOverpaid(ctx, account.CustomerID, loan); err != nil {
				return nil, err
			}
		}

		if payment.CashbackEarned > 0 {
			percentage := PercentageForCounter(counter)
			if err := r.cashbackSvc.ReverseEarned(ctx, account.CustomerID, loan, payment, percentage, counter); err != nil {
				return nil, err
			}
		}

		if err := r.cashbackSvc.VoidClaimExperiment(ctx, account, payment, params.ReversalDate); err != nil {
			return nil, err
		}

		oldStatus := payment.Status
		if payment.IsPaid() && payment.Outstanding() > 0 {
			fsm := statemachine.NewPaymentFSM(payment, params.ReversalDate, r.graceDays, r.dueSoonDays)
			if err := fsm.Reopen(ctx); err != nil {
				return nil, err
			}
		}

		clampDueAmount(payment)

		if err := r.paymentRepo.Update(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to persist payment %d: %w", payment.ID, err)
		}

		if wasPaidOff && payment.Outstanding() > 0 {
			if err := r.reopenLoan(ctx, loan, eventType); err != nil {
				return nil, err
			}
			outcome.ReopenedLoanIDs = append(outcome.ReopenedLoanIDs, loan.ID)
		}

		if payment.Status != oldStatus {
			history := &models.PaymentStatusHistory{
				PaymentID:    payment.ID,
				StatusOld:    oldStatus,
				StatusNew:    payment.Status,
				ChangeReason: eventType,
			}
			if err := r.paymentRepo.CreateStatusHistory(ctx, history); err != nil {
				return nil, fmt.Errorf("failed to record payment status history: %w", err)
			}
		}

		if params.CashbackFunded {
			if err := r.cashbackSvc.RefundCashbackFunded(ctx, account.CustomerID, payment.ID, totalReversed); err != nil {
				return nil, err
			}
		}

		note := &models.PaymentNote{
			PaymentID: payment.ID,
			Note:      composeReversalNote(eventType, totalReversed, params),
			AddedBy:   "reversal",
		}
		if err := r.paymentRepo.CreateNote(ctx, note); err != nil {
			return nil, fmt.Errorf("failed to record payment note: %w", err)
		}
	}

	return outcome, nil
}

func (r *ReversalRecorder) reopenLoan(ctx context.Context, loan *models.Loan, reason string) error {
	oldStatus := loan.Status
	loan.Status = models.LoanStatusActive
	if err := r.loanRepo.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to reopen loan %d: %w", loan.ID, err)
	}
	history := &models.LoanStatusHistory{
		LoanID:       loan.ID,
		StatusOld:    oldStatus,
		StatusNew:    loan.Status,
		ChangedBy:    "reversal",
		ChangeReason: reason,
	}
	if err := r.loanRepo.CreateStatusHistory(ctx, history); err != nil {
		return fmt.Errorf("failed to record loan status history: %w", err)
	}
	return nil
}

func composeReversalNote(eventType string, amount int64, params RecordParams) string {
	method := "-"
	if params.Method != nil {
		method = *params.Method
	}
	note := fmt.Sprintf("Reversal (%s) of %s on %s via %s",
		eventType, models.FormatRupiah(amount), params.ReversalDate.Format("2006-01-02"), method)
	if params.Note != "" {
		note += ": " + params.Note
	}
	return note
}
