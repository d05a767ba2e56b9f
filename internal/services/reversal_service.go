package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/config"
	"github.com/sajinavi2006/servicing-api/internal/jobs"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

// ReversalService is the transaction orchestrator: it drives the allocator,
// recorder, cashback reconciler and aggregator for every payment event under
// a target transaction, creates the compensating transaction and handles the
// commission/PTP adjustment.
type ReversalService struct {
	repos           *repository.Repositories
	recorder        *ReversalRecorder
	aggregator      *AccountPaymentService
	adjuster        *CommissionPTPAdjuster
	cashbackSvc     *CashbackService
	notificationSvc *NotificationService
	emailSvc        *EmailService
	worker          *jobs.Worker
	cfg             *config.Config
}

// NewReversalService creates a new reversal service
func NewReversalService(repos *repository.Repositories, recorder *ReversalRecorder, aggregator *AccountPaymentService, adjuster *CommissionPTPAdjuster, cashbackSvc *CashbackService, notificationSvc *NotificationService, emailSvc *EmailService, worker *jobs.Worker, cfg *config.Config) *ReversalService {
	return &ReversalService{
		repos:           repos,
		recorder:        recorder,
		aggregator:      aggregator,
		adjuster:        adjuster,
		cashbackSvc:     cashbackSvc,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		worker:          worker,
		cfg:             cfg,
	}
}

// reversalState accumulates what one orchestration pass touched.
type reversalState struct {
	totals             ReversedTotals
	voidEventIDs       []uint
	reopenedLoanIDs    []uint
	touchedAPIDs       []uint
	statusChangedAPIDs []uint
	postCommit         []jobs.Job
	lockedAPs          map[uint]*lockedAccountPayment
}

type lockedAccountPayment struct {
	accountPayment *models.AccountPayment
	payments       []*models.Payment
}

// ProcessAccountTransactionReversal reverses one account transaction:
// every payment event under it is voided through the waterfall, the
// compensating transaction is created and linked, and the original is
// marked no longer reversible. Deferred side effects fire only after the
// enclosing transaction commits.
func (s *ReversalService) ProcessAccountTransactionReversal(ctx context.Context, transactionID uint, note string, refinancing bool) (*models.AccountTransaction, error) {
	var reversal *models.AccountTransaction
	state := &reversalState{lockedAPs: make(map[uint]*lockedAccountPayment)}

	err := s.repos.Tx.Do(ctx, func(ctx context.Context) error {
		var err error
		reversal, err = s.reverseTransaction(ctx, transactionID, note, refinancing, state)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, job := range state.postCommit {
		s.worker.EnqueueAsync(job)
	}
	return reversal, nil
}

func (s *ReversalService) reverseTransaction(ctx context.Context, transactionID uint, note string, refinancing bool, state *reversalState) (*models.AccountTransaction, error) {
	original, err := s.repos.Transaction.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %d: %w", transactionID, err)
	}
	if !original.CanReverse {
		return nil, ErrTransactionNotReversible
	}

	events, err := s.repos.Transaction.FindEvents(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNoPaymentEvents
	}

	account, err := s.repos.Account.FindByID(ctx, original.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", original.AccountID, err)
	}

	reversalDate := time.Now()
	cashbackFunded := original.IsCashbackFunded()

	for i := range events {
		event := &events[i]
		if event.EventPayment <= 0 {
			continue
		}
		if err := s.reverseEvent(ctx, account, original, event, note, cashbackFunded, reversalDate, state); err != nil {
			return nil, err
		}
	}

	reversal, err := s.createReversalTransaction(ctx, original, note, refinancing, reversalDate, state)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Transaction.AttachEvents(ctx, state.voidEventIDs, reversal.ID); err != nil {
		return nil, fmt.Errorf("failed to attach void events: %w", err)
	}

	original.CanReverse = false
	original.ReversalTransactionID = &reversal.ID
	if err := s.repos.Transaction.Update(ctx, original); err != nil {
		return nil, fmt.Errorf("failed to close original transaction: %w", err)
	}

	if err := s.reevaluateProven(ctx, account, reversal.TransactionType); err != nil {
		return nil, err
	}

	if reversal.TransactionType == models.TransactionTypePaymentVoid {
		result := s.adjuster.Adjust(ctx, account.ID, state.touchedAPIDs, original.TransactionDate, reversalDate, original.TransactionAmount)
		if !result.OK {
			logger.Warn(fmt.Sprintf("[Reversal] Commission/PTP adjustment skipped for transaction %d: %v", original.ID, result.Err))
		}
	}

	if len(state.statusChangedAPIDs) > 0 {
		if err := s.cashbackSvc.VoidClaimsForAccountPayments(ctx, state.statusChangedAPIDs); err != nil {
			return nil, err
		}
	}

	// Reversal reopens obligations; drop them from the dialer queue so
	// collectors re-pull them with fresh balances.
	for _, apID := range state.touchedAPIDs {
		if err := s.repos.Collection.DeleteQueueItems(ctx, apID); err != nil {
			return nil, fmt.Errorf("failed to clear collection queue: %w", err)
		}
	}

	s.schedulePostCommitEffects(account, original, reversal, refinancing, state)

	return reversal, nil
}

// reverseEvent undoes one payment event: locks the owning account payment,
// runs the waterfall, records void events and reconciles the aggregate.
func (s *ReversalService) reverseEvent(ctx context.Context, account *models.Account, original *models.AccountTransaction, event *models.PaymentEvent, note string, cashbackFunded bool, reversalDate time.Time, state *reversalState) error {
	payment, err := s.repos.Payment.FindByID(ctx, event.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment %d: %w", event.PaymentID, err)
	}
	if payment.AccountPaymentID == nil {
		logger.Warn(fmt.Sprintf("[Reversal] Payment %d has no account payment, skipping event %d", payment.ID, event.ID))
		return nil
	}
	apID := *payment.AccountPaymentID

	locked, err := s.lockAccountPayment(ctx, apID, payment.ID, state)
	if err != nil {
		return err
	}

	snapshot := snapshotPayments(locked.payments)
	totals := allocateReversal(locked.payments, locked.accountPayment, event.EventPayment)
	state.totals.LateFee += totals.LateFee
	state.totals.Interest += totals.Interest
	state.totals.Principal += totals.Principal

	outcome, err := s.recorder.RecordReversals(ctx, account, locked.accountPayment, locked.payments, snapshot, RecordParams{
		ReversalDate:   reversalDate,
		Receipt:        event.PaymentReceipt,
		Method:         event.PaymentMethod,
		Note:           note,
		CashbackFunded: cashbackFunded,
	})
	if err != nil {
		return err
	}
	for _, ve := range outcome.VoidEvents {
		state.voidEventIDs = append(state.voidEventIDs, ve.ID)
	}
	state.reopenedLoanIDs = append(state.reopenedLoanIDs, outcome.ReopenedLoanIDs...)

	statusChanged, err := s.aggregator.Reconcile(ctx, locked.accountPayment, locked.payments, reversalDate, models.VoidTypeFor(original.TransactionType))
	if err != nil {
		return err
	}
	if statusChanged {
		state.statusChangedAPIDs = appendUnique(state.statusChangedAPIDs, apID)
	}
	return nil
}

// lockAccountPayment acquires the pessimistic row lock once per account
// payment and loads its constituent payments, with the triggering payment
// ordered first so the waterfall consumes it before its siblings.
func (s *ReversalService) lockAccountPayment(ctx context.Context, apID, firstPaymentID uint, state *reversalState) (*lockedAccountPayment, error) {
	if locked, ok := state.lockedAPs[apID]; ok {
		reorderPayments(locked.payments, firstPaymentID)
		return locked, nil
	}

	ap, err := s.repos.AccountPayment.LockForUpdate(ctx, apID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account payment %d: %w", apID, err)
	}
	paymentRows, err := s.repos.Payment.FindByAccountPayment(ctx, apID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments for account payment %d: %w", apID, err)
	}
	payments := make([]*models.Payment, len(paymentRows))
	for i := range paymentRows {
		payments[i] = &paymentRows[i]
	}
	reorderPayments(payments, firstPaymentID)

	locked := &lockedAccountPayment{accountPayment: ap, payments: payments}
	state.lockedAPs[apID] = locked
	state.touchedAPIDs = appendUnique(state.touchedAPIDs, apID)
	return locked, nil
}

func (s *ReversalService) createReversalTransaction(ctx context.Context, original *models.AccountTransaction, note string, refinancing bool, reversalDate time.Time, state *reversalState) (*models.AccountTransaction, error) {
	reversalNote := note
	if refinancing {
		reversalNote = "refinancing void: " + note
	}
	reversal := &models.AccountTransaction{
		AccountID:         original.AccountID,
		TransactionDate:   reversalDate,
		TransactionAmount: -original.TransactionAmount,
		TransactionType:   models.VoidTypeFor(original.TransactionType),
		TowardsPrincipal:  -state.totals.Principal,
		TowardsInterest:   -state.totals.Interest,
		TowardsLateFee:    -state.totals.LateFee,
		CanReverse:        false,
		ReversalNote:      &reversalNote,
	}
	if err := s.repos.Transaction.Create(ctx, reversal); err != nil {
		return nil, fmt.Errorf("failed to create reversal transaction: %w", err)
	}
	return reversal, nil
}

// reevaluateProven drops the account's proven flag when its total paid-off
// loan amount falls back under the threshold.
func (s *ReversalService) reevaluateProven(ctx context.Context, account *models.Account, reason string) error {
	if !account.IsProven {
		return nil
	}
	total, err := s.repos.Loan.TotalPaidOffAmount(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to sum paid off loans: %w", err)
	}
	if total >= s.cfg.ProvenThreshold {
		return nil
	}
	account.IsProven = false
	if err := s.repos.Account.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account proven flag: %w", err)
	}
	history := &models.AccountPropertyHistory{
		AccountID:    account.ID,
		Property:     "is_proven",
		ValueOld:     "true",
		ValueNew:     "false",
		ChangeReason: reason,
	}
	if err := s.repos.Account.CreatePropertyHistory(ctx, history); err != nil {
		return fmt.Errorf("failed to record property history: %w", err)
	}
	return nil
}

func (s *ReversalService) schedulePostCommitEffects(account *models.Account, original, reversal *models.AccountTransaction, refinancing bool, state *reversalState) {
	// Refinancing keeps the released limit with the replacement loan.
	if !refinancing {
		for _, loanID := range state.reopenedLoanIDs {
			id := loanID
			state.postCommit = append(state.postCommit, func(ctx context.Context) error {
				return s.rollbackEarlyLimitRelease(ctx, id)
			})
		}
	}

	customerID := account.CustomerID
	amount := original.TransactionAmount
	state.postCommit = append(state.postCommit, func(ctx context.Context) error {
		return s.notificationSvc.NotifyCustomer(ctx, customerID,
			"Payment reversed",
			fmt.Sprintf("Your payment of %s has been reversed.", models.FormatRupiah(amount)),
			models.NotificationTypePaymentReversed)
	})

	transactionDate := original.TransactionDate
	note := ""
	if reversal.ReversalNote != nil {
		note = *reversal.ReversalNote
	}
	state.postCommit = append(state.postCommit, func(ctx context.Context) error {
		customer, err := s.repos.Account.FindCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		return s.emailSvc.SendPaymentReversed(ctx, customer, amount, transactionDate, note)
	})
}

// rollbackEarlyLimitRelease withdraws the credit limit released early for a
// loan that a reversal reopened.
func (s *ReversalService) rollbackEarlyLimitRelease(ctx context.Context, loanID uint) error {
	loan, err := s.repos.Loan.FindByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("failed to load loan %d: %w", loanID, err)
	}
	if !loan.EarlyLimitReleased {
		return nil
	}
	loan.EarlyLimitReleased = false
	if err := s.repos.Loan.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to roll back early limit release: %w", err)
	}
	logger.Info(fmt.Sprintf("[Reversal] Rolled back early limit release for loan %d", loanID))
	return nil
}

// ProcessLateFeeReversal waives a previously charged late fee: any paid
// portion is voided back through the waterfall and the unpaid remainder is
// removed from the obligation.
func (s *ReversalService) ProcessLateFeeReversal(ctx context.Context, transactionID uint, note string) (*models.AccountTransaction, error) {
	var reversal *models.AccountTransaction
	state := &reversalState{lockedAPs: make(map[uint]*lockedAccountPayment)}

	err := s.repos.Tx.Do(ctx, func(ctx context.Context) error {
		var err error
		reversal, err = s.reverseLateFee(ctx, transactionID, note, state)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, job := range state.postCommit {
		s.worker.EnqueueAsync(job)
	}
	return reversal, nil
}

func (s *ReversalService) reverseLateFee(ctx context.Context, transactionID uint, note string, state *reversalState) (*models.AccountTransaction, error) {
	original, err := s.repos.Transaction.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %d: %w", transactionID, err)
	}
	if original.TransactionType != models.TransactionTypeLateFee {
		return nil, ErrInvalidState
	}
	if !original.CanReverse {
		return nil, ErrTransactionNotReversible
	}

	events, err := s.repos.Transaction.FindEvents(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment events: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNoPaymentEvents
	}

	account, err := s.repos.Account.FindByID(ctx, original.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", original.AccountID, err)
	}

	reversalDate := time.Now()

	for i := range events {
		event := &events[i]
		if event.EventPayment <= 0 {
			continue
		}
		if err := s.reverseLateFeeEvent(ctx, original, event, note, reversalDate, state); err != nil {
			return nil, err
		}
	}

	reversal, err := s.createReversalTransaction(ctx, original, note, false, reversalDate, state)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Transaction.AttachEvents(ctx, state.voidEventIDs, reversal.ID); err != nil {
		return nil, fmt.Errorf("failed to attach void events: %w", err)
	}

	original.CanReverse = false
	original.ReversalTransactionID = &reversal.ID
	if err := s.repos.Transaction.Update(ctx, original); err != nil {
		return nil, fmt.Errorf("failed to close original transaction: %w", err)
	}

	customerID := account.CustomerID
	amount := original.TransactionAmount
	state.postCommit = append(state.postCommit, func(ctx context.Context) error {
		return s.notificationSvc.NotifyCustomer(ctx, customerID,
			"Late fee waived",
			fmt.Sprintf("A late fee of %s has been waived.", models.FormatRupiah(amount)),
			models.NotificationTypeLateFeeReversed)
	})
	state.postCommit = append(state.postCommit, func(ctx context.Context) error {
		customer, err := s.repos.Account.FindCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		return s.emailSvc.SendLateFeeWaived(ctx, customer, amount)
	})

	return reversal, nil
}

func (s *ReversalService) reverseLateFeeEvent(ctx context.Context, original *models.AccountTransaction, event *models.PaymentEvent, note string, reversalDate time.Time, state *reversalState) error {
	payment, err := s.repos.Payment.FindByID(ctx, event.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment %d: %w", event.PaymentID, err)
	}
	if payment.AccountPaymentID == nil {
		logger.Warn(fmt.Sprintf("[Reversal] Payment %d has no account payment, skipping event %d", payment.ID, event.ID))
		return nil
	}
	apID := *payment.AccountPaymentID

	locked, err := s.lockAccountPayment(ctx, apID, payment.ID, state)
	if err != nil {
		return err
	}
	ap := locked.accountPayment

	// Mutate the locked copy so the aggregator sees the change.
	for _, p := range locked.payments {
		if p.ID == payment.ID {
			payment = p
			break
		}
	}

	feeAmount := event.EventPayment

	// Void whatever portion of the fee was already paid.
	remaining, reversedPaid := allocateComponent([]*models.Payment{payment}, ap, feeAmount, ComponentLateFee)
	state.totals.LateFee += reversedPaid

	// The unpaid remainder of the fee is simply removed from the books.
	unpaid := remaining
	payment.LateFeeAmount -= feeAmount
	if payment.LateFeeAmount < 0 {
		payment.LateFeeAmount = 0
	}
	if payment.LateFeeApplied > 0 {
		payment.LateFeeApplied--
	}
	payment.DueAmount -= unpaid
	if payment.DueAmount < 0 {
		payment.DueAmount = 0
	}
	ap.LateFeeAmount -= feeAmount
	if ap.LateFeeAmount < 0 {
		ap.LateFeeAmount = 0
	}
	if ap.LateFeeApplied > 0 {
		ap.LateFeeApplied--
	}
	ap.DueAmount -= unpaid
	if ap.DueAmount < 0 {
		ap.DueAmount = 0
	}

	clampDueAmount(payment)
	if err := s.repos.Payment.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to persist payment %d: %w", payment.ID, err)
	}

	voidEvent := &models.PaymentEvent{
		PaymentID:      payment.ID,
		EventType:      models.EventTypeLateFeeVoid,
		EventPayment:   -feeAmount,
		EventDueAmount: payment.DueAmount,
		EventDate:      reversalDate,
		CanReverse:     false,
	}
	if err := s.repos.Transaction.CreateEvent(ctx, voidEvent); err != nil {
		return fmt.Errorf("failed to create late fee void event: %w", err)
	}
	state.voidEventIDs = append(state.voidEventIDs, voidEvent.ID)

	if note != "" {
		paymentNote := &models.PaymentNote{
			PaymentID: payment.ID,
			Note:      fmt.Sprintf("Late fee waiver of %s: %s", models.FormatRupiah(feeAmount), note),
			AddedBy:   "reversal",
		}
		if err := s.repos.Payment.CreateNote(ctx, paymentNote); err != nil {
			return fmt.Errorf("failed to record payment note: %w", err)
		}
	}

	statusChanged, err := s.aggregator.Reconcile(ctx, ap, locked.payments, reversalDate, models.TransactionTypeLateFeeVoid)
	if err != nil {
		return err
	}
	if statusChanged {
		state.statusChangedAPIDs = appendUnique(state.statusChangedAPIDs, apID)
	}
	return nil
}

func appendUnique(ids []uint, id uint) []uint {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func reorderPayments(payments []*models.Payment, firstID uint) {
	for i, p := range payments {
		if p.ID == firstID && i > 0 {
			payments[0], payments[i] = payments[i], payments[0]
			return
		}
	}
}
