package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/config"
	"github.com/sajinavi2006/servicing-api/internal/jobs"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/statemachine"

	"gorm.io/gorm"
)

// RepaymentService applies inbound payback transactions to an account's
// obligations, oldest first, paying late fee before interest before
// principal within each payment.
type RepaymentService struct {
	repos       *repository.Repositories
	cashbackSvc *CashbackService
	worker      *jobs.Worker
	cfg         *config.Config
}

// NewRepaymentService creates a new repayment service
func NewRepaymentService(repos *repository.Repositories, cashbackSvc *CashbackService, worker *jobs.Worker, cfg *config.Config) *RepaymentService {
	return &RepaymentService{
		repos:       repos,
		cashbackSvc: cashbackSvc,
		worker:      worker,
		cfg:         cfg,
	}
}

// ProcessRepayment applies one payback to the account's oldest unpaid
// obligations and returns the resulting account transaction. Runs in its
// own atomic scope unless the caller already opened one.
func (s *RepaymentService) ProcessRepayment(ctx context.Context, payback *models.PaybackTransaction, note string, usingCashback bool) (*models.AccountTransaction, error) {
	var transaction *models.AccountTransaction
	err := s.repos.Tx.Do(ctx, func(ctx context.Context) error {
		var err error
		transaction, err = s.applyPayback(ctx, payback, note, usingCashback)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (s *RepaymentService) applyPayback(ctx context.Context, payback *models.PaybackTransaction, note string, usingCashback bool) (*models.AccountTransaction, error) {
	if payback.IsProcessed {
		return nil, ErrInvalidState
	}

	account, err := s.repos.Account.FindByID(ctx, payback.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", payback.AccountID, err)
	}

	transactionType := models.TransactionTypePayment
	eventType := models.EventTypePayment
	if usingCashback {
		transactionType = models.TransactionTypeCustomerWallet
		eventType = models.EventTypeCustomerWallet
		if err := s.debitWallet(ctx, account, payback.Amount); err != nil {
			return nil, err
		}
	}

	remaining := payback.Amount
	var totals ReversedTotals
	var events []*models.PaymentEvent

	for remaining > 0 {
		ap, err := s.repos.AccountPayment.FindOldestUnpaid(ctx, payback.AccountID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find unpaid obligation: %w", err)
		}

		ap, err = s.repos.AccountPayment.LockForUpdate(ctx, ap.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock account payment %d: %w", ap.ID, err)
		}

		applied, appliedTotals, apEvents, err := s.applyToAccountPayment(ctx, account, ap, remaining, eventType, payback)
		if err != nil {
			return nil, err
		}
		if applied == 0 {
			break
		}
		remaining -= applied
		totals.LateFee += appliedTotals.LateFee
		totals.Interest += appliedTotals.Interest
		totals.Principal += appliedTotals.Principal
		events = append(events, apEvents...)
	}

	if len(events) == 0 {
		return nil, ErrNoDestinationObligation
	}

	transaction := &models.AccountTransaction{
		AccountID:            payback.AccountID,
		PaybackTransactionID: &payback.ID,
		TransactionDate:      payback.TransactionDate,
		TransactionAmount:    payback.Amount - remaining,
		TransactionType:      transactionType,
		TowardsPrincipal:     totals.Principal,
		TowardsInterest:      totals.Interest,
		TowardsLateFee:       totals.LateFee,
		CanReverse:           true,
	}
	if note != "" {
		transaction.ReversalNote = &note
	}
	if err := s.repos.Transaction.Create(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to create account transaction: %w", err)
	}

	eventIDs := make([]uint, 0, len(events))
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}
	if err := s.repos.Transaction.AttachEvents(ctx, eventIDs, transaction.ID); err != nil {
		return nil, fmt.Errorf("failed to attach events: %w", err)
	}

	payback.IsProcessed = true
	if err := s.repos.Payback.Update(ctx, payback); err != nil {
		return nil, fmt.Errorf("failed to mark payback processed: %w", err)
	}

	return transaction, nil
}

// applyToAccountPayment pays down one account payment's constituent
// payments: late fee first, then interest, then principal, each payment in
// application order. Returns the total applied, the component split and the
// created events.
func (s *RepaymentService) applyToAccountPayment(ctx context.Context, account *models.Account, ap *models.AccountPayment, amount int64, eventType string, payback *models.PaybackTransaction) (int64, ReversedTotals, []*models.PaymentEvent, error) {
	paymentRows, err := s.repos.Payment.FindByAccountPayment(ctx, ap.ID)
	if err != nil {
		return 0, ReversedTotals{}, nil, fmt.Errorf("failed to load payments: %w", err)
	}

	var totals ReversedTotals
	var events []*models.PaymentEvent
	var applied int64

	for i := range paymentRows {
		payment := &paymentRows[i]
		if amount <= 0 {
			break
		}
		if payment.IsFullyPaid() {
			continue
		}

		before := payment.PaidAmount
		split := applyToPayment(payment, ap, amount)
		delta := payment.PaidAmount - before
		if delta == 0 {
			continue
		}
		amount -= delta
		applied += delta
		totals.LateFee += split.LateFee
		totals.Interest += split.Interest
		totals.Principal += split.Principal

		event := &models.PaymentEvent{
			PaymentID:      payment.ID,
			EventType:      eventType,
			EventPayment:   delta,
			EventDueAmount: payment.DueAmount,
			EventDate:      payback.TransactionDate,
			CanReverse:     true,
			PaymentMethod:  payback.PaymentMethod,
		}
		if err := s.repos.Transaction.CreateEvent(ctx, event); err != nil {
			return 0, ReversedTotals{}, nil, fmt.Errorf("failed to create payment event: %w", err)
		}
		events = append(events, event)

		if payment.IsFullyPaid() {
			if err := s.settlePayment(ctx, account, ap, payment, payback.TransactionDate, eventType); err != nil {
				return 0, ReversedTotals{}, nil, err
			}
		}

		if err := s.repos.Payment.Update(ctx, payment); err != nil {
			return 0, ReversedTotals{}, nil, fmt.Errorf("failed to persist payment %d: %w", payment.ID, err)
		}
	}

	if applied > 0 {
		payments := make([]*models.Payment, len(paymentRows))
		allPaid := true
		var latestPaid *time.Time
		for i := range paymentRows {
			payments[i] = &paymentRows[i]
			if !paymentRows[i].IsFullyPaid() {
				allPaid = false
			}
			pd := paymentRows[i].PaidDate
			if pd != nil && (latestPaid == nil || pd.After(*latestPaid)) {
				latestPaid = pd
			}
		}
		oldStatus := ap.Status
		if allPaid && latestPaid != nil {
			ap.Status = statemachine.DerivePaidStatus(ap.DueDate, *latestPaid, s.cfg.GracePeriodDays)
			ap.PaidDate = latestPaid
		}
		if err := s.repos.AccountPayment.Update(ctx, ap); err != nil {
			return 0, ReversedTotals{}, nil, fmt.Errorf("failed to persist account payment %d: %w", ap.ID, err)
		}
		if ap.Status != oldStatus {
			history := &models.AccountPaymentStatusHistory{
				AccountPaymentID: ap.ID,
				StatusOld:        oldStatus,
				StatusNew:        ap.Status,
				ChangeReason:     eventType,
			}
			if err := s.repos.AccountPayment.CreateStatusHistory(ctx, history); err != nil {
				return 0, ReversedTotals{}, nil, fmt.Errorf("failed to record status history: %w", err)
			}
		}
	}

	return applied, totals, events, nil
}

// settlePayment marks a fully paid payment, earns cashback under the new
// scheme and closes the loan when this was its last open installment.
func (s *RepaymentService) settlePayment(ctx context.Context, account *models.Account, ap *models.AccountPayment, payment *models.Payment, paidDate time.Time, reason string) error {
	oldStatus := payment.Status
	fsm := statemachine.NewPaymentFSM(payment, paidDate, s.cfg.GracePeriodDays, s.cfg.DueSoonDays)
	if err := fsm.MarkPaid(ctx, paidDate); err != nil {
		return err
	}
	if payment.Status != oldStatus {
		history := &models.PaymentStatusHistory{
			PaymentID:    payment.ID,
			StatusOld:    oldStatus,
			StatusNew:    payment.Status,
			ChangeReason: reason,
		}
		if err := s.repos.Payment.CreateStatusHistory(ctx, history); err != nil {
			return fmt.Errorf("failed to record payment status history: %w", err)
		}
	}

	if account.CashbackNewScheme && payment.Status == models.PaymentStatusPaidOnTime && reason == models.EventTypePayment {
		if err := s.earnCashback(ctx, account, ap, payment); err != nil {
			return err
		}
	}

	return s.maybeCloseLoan(ctx, account, payment, reason)
}

// earnCashback steps the tier counter up (capped at the ceiling) and credits
// the accruing wallet with the tier percentage of the installment principal.
func (s *RepaymentService) earnCashback(ctx context.Context, account *models.Account, ap *models.AccountPayment, payment *models.Payment) error {
	last, err := s.repos.Wallet.LastCounterByAccount(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to load counter history: %w", err)
	}
	counter := 1
	if last != nil {
		counter = last.Counter + 1
	}
	if counter > s.cfg.CashbackCounterCeiling {
		counter = s.cfg.CashbackCounterCeiling
	}

	entry := &models.CashbackCounterHistory{
		AccountID:        account.ID,
		AccountPaymentID: ap.ID,
		PaymentID:        &payment.ID,
		Counter:          counter,
		ChangeReason:     models.WalletReasonCashbackEarned,
	}
	if err := s.repos.Wallet.CreateCounterHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to record counter history: %w", err)
	}

	percentage := PercentageForCounter(counter)
	cashback := payment.InstallmentPrincipal * int64(percentage) / 100
	if cashback <= 0 {
		return nil
	}

	payment.CashbackEarned = cashback
	loan := &payment.Loan
	loan.CashbackEarnedTotal += cashback
	if err := s.repos.Loan.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to update loan cashback total: %w", err)
	}

	return s.cashbackSvc.ChangeWalletBalance(ctx, WalletChange{
		CustomerID:     account.CustomerID,
		ChangeAccruing: cashback,
		Reason:         models.WalletReasonCashbackEarned,
		PaymentID:      &payment.ID,
		LoanID:         &loan.ID,
		Percentage:     &percentage,
		Counter:        &counter,
	})
}

func (s *RepaymentService) maybeCloseLoan(ctx context.Context, account *models.Account, payment *models.Payment, reason string) error {
	loan := &payment.Loan
	if loan.IsPaidOff() {
		return nil
	}
	siblings, err := s.repos.Payment.FindByLoan(ctx, loan.ID)
	if err != nil {
		return fmt.Errorf("failed to load loan payments: %w", err)
	}
	for i := range siblings {
		if siblings[i].ID == payment.ID {
			continue
		}
		if !siblings[i].IsFullyPaid() {
			return nil
		}
	}

	oldStatus := loan.Status
	loan.Status = models.LoanStatusPaidOff
	if err := s.repos.Loan.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to close loan %d: %w", loan.ID, err)
	}
	history := &models.LoanStatusHistory{
		LoanID:       loan.ID,
		StatusOld:    oldStatus,
		StatusNew:    loan.Status,
		ChangedBy:    "repayment",
		ChangeReason: reason,
	}
	if err := s.repos.Loan.CreateStatusHistory(ctx, history); err != nil {
		return err
	}

	if account.CashbackNewScheme {
		return s.cashbackSvc.PromoteToAvailable(ctx, account.CustomerID, loan)
	}
	return nil
}

func (s *RepaymentService) debitWallet(ctx context.Context, account *models.Account, amount int64) error {
	return s.cashbackSvc.ChangeWalletBalance(ctx, WalletChange{
		CustomerID:      account.CustomerID,
		ChangeAccruing:  -amount,
		ChangeAvailable: -amount,
		Reason:          models.WalletReasonUsedOnPayment,
	})
}

// applyToPayment pays one payment down in component priority order. Returns
// the per-component split applied.
func applyToPayment(p *models.Payment, ap *models.AccountPayment, amount int64) ReversedTotals {
	var split ReversedTotals

	split.LateFee = payComponent(p, ap, amount, ComponentLateFee)
	amount -= split.LateFee
	split.Interest = payComponent(p, ap, amount, ComponentInterest)
	amount -= split.Interest
	split.Principal = payComponent(p, ap, amount, ComponentPrincipal)

	return split
}

func payComponent(p *models.Payment, ap *models.AccountPayment, amount int64, component string) int64 {
	if amount <= 0 {
		return 0
	}

	var owed int64
	switch component {
	case ComponentLateFee:
		owed = p.LateFeeAmount - p.PaidLateFee
	case ComponentInterest:
		owed = p.InstallmentInterest - p.PaidInterest
	default:
		owed = p.InstallmentPrincipal - p.PaidPrincipal
	}
	if owed <= 0 {
		return 0
	}

	delta := amount
	if owed < delta {
		delta = owed
	}

	addToComponent(p, component, delta)
	p.PaidAmount += delta
	p.DueAmount -= delta
	if p.DueAmount < 0 {
		p.DueAmount = 0
	}

	if ap != nil {
		addToAccountPaymentComponent(ap, component, delta)
		ap.PaidAmount += delta
		ap.DueAmount -= delta
		if ap.DueAmount < 0 {
			ap.DueAmount = 0
		}
	}

	return delta
}
