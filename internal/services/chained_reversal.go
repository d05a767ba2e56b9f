package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sajinavi2006/servicing-api/internal/jobs"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/statemachine"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

// temporaryReversalNote marks reversals performed only to unblock an older
// target; their value is replayed by transfer once the target is reversed.
const temporaryReversalNote = "temporary void for chained reversal"

// ChainedReversalService resolves reversal of an old transaction when newer
// transactions depend on it. Payments apply oldest-first, so the newer
// transactions are temporarily voided newest-first, the target reversed,
// then each temporary void is replayed by transferring its value back onto
// the account.
type ChainedReversalService struct {
	repos           *repository.Repositories
	reversalSvc     *ReversalService
	repaymentSvc    *RepaymentService
	ptpRepo         repository.PTPRepository
	notificationSvc *NotificationService
	emailSvc        *EmailService
	worker          *jobs.Worker
}

// NewChainedReversalService creates a new chained reversal service
func NewChainedReversalService(repos *repository.Repositories, reversalSvc *ReversalService, repaymentSvc *RepaymentService, notificationSvc *NotificationService, emailSvc *EmailService, worker *jobs.Worker) *ChainedReversalService {
	return &ChainedReversalService{
		repos:           repos,
		reversalSvc:     reversalSvc,
		repaymentSvc:    repaymentSvc,
		ptpRepo:         repos.PTP,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		worker:          worker,
	}
}

// ProcessCustomerPaymentReversal reverses the target transaction even when
// newer transactions were applied on top of it. When destinationAccountID is
// set, the target's reversed value is additionally transferred onto that
// account. Everything runs in one atomic scope; deferred effects fire only
// after it commits.
func (s *ChainedReversalService) ProcessCustomerPaymentReversal(ctx context.Context, targetTransactionID uint, destinationAccountID *uint, note string) (*models.AccountTransaction, error) {
	var reversal *models.AccountTransaction
	var postCommit []jobs.Job

	err := s.repos.Tx.Do(ctx, func(ctx context.Context) error {
		var err error
		reversal, postCommit, err = s.resolve(ctx, targetTransactionID, destinationAccountID, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, job := range postCommit {
		s.worker.EnqueueAsync(job)
	}
	return reversal, nil
}

func (s *ChainedReversalService) resolve(ctx context.Context, targetTransactionID uint, destinationAccountID *uint, note string) (*models.AccountTransaction, []jobs.Job, error) {
	target, err := s.repos.Transaction.FindByID(ctx, targetTransactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transaction %d: %w", targetTransactionID, err)
	}
	if !target.CanReverse {
		return nil, nil, ErrTransactionNotReversible
	}

	// Newer reversible transactions block the target; void them newest
	// first so each undo peels off the most recently applied value.
	newer, err := s.repos.Transaction.FindReversibleNewerThan(ctx, target.AccountID, target.CreatedAt,
		[]string{models.TransactionTypePayment, models.TransactionTypeCustomerWallet})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan newer transactions: %w", err)
	}

	type tempVoid struct {
		original *models.AccountTransaction
		reversal *models.AccountTransaction
	}
	tempVoids := make([]tempVoid, 0, len(newer))
	allPostCommit := []jobs.Job{}

	for i := range newer {
		tx := &newer[i]
		state := &reversalState{lockedAPs: make(map[uint]*lockedAccountPayment)}
		rev, err := s.reversalSvc.reverseTransaction(ctx, tx.ID, temporaryReversalNote, false, state)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to temporarily void transaction %d: %w", tx.ID, err)
		}
		tempVoids = append(tempVoids, tempVoid{original: tx, reversal: rev})
	}

	state := &reversalState{lockedAPs: make(map[uint]*lockedAccountPayment)}
	reversal, err := s.reversalSvc.reverseTransaction(ctx, target.ID, note, false, state)
	if err != nil {
		return nil, nil, err
	}
	allPostCommit = append(allPostCommit, state.postCommit...)

	// Replay oldest first so the account's position is rebuilt in the same
	// order the payments originally arrived.
	for i := len(tempVoids) - 1; i >= 0; i-- {
		tv := tempVoids[i]
		if _, err := s.TransferPaymentAfterReversal(ctx, tv.original, tv.original.AccountID, tv.reversal, temporaryReversalNote); err != nil {
			return nil, nil, fmt.Errorf("failed to replay transaction %d: %w", tv.original.ID, err)
		}
	}

	if destinationAccountID != nil {
		transferred, err := s.TransferPaymentAfterReversal(ctx, target, *destinationAccountID, reversal, note)
		if err != nil {
			return nil, nil, err
		}
		destinationID := transferred.AccountID
		amount := transferred.TransactionAmount
		date := transferred.TransactionDate
		allPostCommit = append(allPostCommit, func(ctx context.Context) error {
			destination, err := s.repos.Account.FindByID(ctx, destinationID)
			if err != nil {
				return err
			}
			customer, err := s.repos.Account.FindCustomer(ctx, destination.CustomerID)
			if err != nil {
				return err
			}
			return s.emailSvc.SendPaymentTransferred(ctx, customer, amount, date)
		})
	}

	accountID := target.AccountID
	allPostCommit = append(allPostCommit, func(ctx context.Context) error {
		return s.RecomputeRiskBucket(ctx, accountID)
	})

	return reversal, allPostCommit, nil
}

// TransferPaymentAfterReversal replays a reversed transaction's value onto
// the destination account: the origin's payback record is deep-copied,
// reparented and re-applied through the repayment engine, and the resulting
// transaction links back to the reversal that freed the funds.
func (s *ChainedReversalService) TransferPaymentAfterReversal(ctx context.Context, origin *models.AccountTransaction, destinationAccountID uint, reversal *models.AccountTransaction, note string) (*models.AccountTransaction, error) {
	destination, err := s.repos.Account.FindByID(ctx, destinationAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load destination account %d: %w", destinationAccountID, err)
	}

	copyPayback, err := s.copyPayback(ctx, origin, destination)
	if err != nil {
		return nil, err
	}

	usingCashback := origin.IsCashbackFunded()
	transferred, err := s.repaymentSvc.ProcessRepayment(ctx, copyPayback, note, usingCashback)
	if err != nil {
		return nil, err
	}

	transferred.ReversedTransactionOriginID = &reversal.ID
	if err := s.repos.Transaction.Update(ctx, transferred); err != nil {
		return nil, fmt.Errorf("failed to link transferred transaction: %w", err)
	}

	if result := s.restoreOriginPTPs(ctx, origin); !result.OK {
		logger.Warn(fmt.Sprintf("[Transfer] PTP restoration skipped for transaction %d: %v", origin.ID, result.Err))
	}

	return transferred, nil
}

// copyPayback deep-copies the origin transaction's payback record onto the
// destination account. The original payback row is never mutated.
func (s *ChainedReversalService) copyPayback(ctx context.Context, origin *models.AccountTransaction, destination *models.Account) (*models.PaybackTransaction, error) {
	var source *models.PaybackTransaction
	if origin.PaybackTransactionID != nil {
		loaded, err := s.repos.Payback.FindByID(ctx, *origin.PaybackTransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load origin payback: %w", err)
		}
		source = loaded
	}

	copyPayback := &models.PaybackTransaction{
		CustomerID:      destination.CustomerID,
		AccountID:       destination.ID,
		Amount:          origin.TransactionAmount,
		TransactionDate: origin.TransactionDate,
		PaybackService:  models.PaybackServiceBank,
		TransactionID:   uuid.NewString(),
		IsProcessed:     false,
	}
	if source != nil {
		copyPayback.Amount = source.Amount
		copyPayback.PaymentMethod = source.PaymentMethod
		copyPayback.PaybackService = source.PaybackService
	}
	if origin.IsCashbackFunded() {
		copyPayback.PaybackService = models.PaybackServiceWallet
	}

	if err := s.repos.Payback.Create(ctx, copyPayback); err != nil {
		return nil, fmt.Errorf("failed to create transfer payback: %w", err)
	}
	return copyPayback, nil
}

// restoreOriginPTPs nulls any promise the origin transaction had left
// active, restoring the promise date on the obligation. Best-effort.
func (s *ChainedReversalService) restoreOriginPTPs(ctx context.Context, origin *models.AccountTransaction) AdjustResult {
	events, err := s.repos.Transaction.FindEvents(ctx, origin.ID)
	if err != nil {
		return adjustFailed(fmt.Errorf("failed to load origin events: %w", err))
	}

	seen := map[uint]bool{}
	for i := range events {
		payment := events[i].Payment
		if payment.AccountPaymentID == nil {
			continue
		}
		apID := *payment.AccountPaymentID
		if seen[apID] {
			continue
		}
		seen[apID] = true

		ptps, err := s.ptpRepo.FindActiveByAccountPayment(ctx, apID)
		if err != nil {
			return adjustFailed(fmt.Errorf("failed to load PTPs: %w", err))
		}
		for j := range ptps {
			ptp := &ptps[j]
			if !ptp.CoversDate(origin.TransactionDate) {
				continue
			}
			ap, err := s.repos.AccountPayment.FindByID(ctx, apID)
			if err != nil {
				return adjustFailed(err)
			}
			ptpDate := ptp.PTPDate
			ap.PTPDate = &ptpDate
			if err := s.repos.AccountPayment.Update(ctx, ap); err != nil {
				return adjustFailed(err)
			}
			ptp.PTPStatus = nil
			if err := s.ptpRepo.Update(ctx, ptp); err != nil {
				return adjustFailed(err)
			}
		}
	}
	return adjustOK()
}

// RecomputeRiskBucket re-derives the account's collection risk bucket from
// its current obligations and writes it to the collection store.
func (s *ChainedReversalService) RecomputeRiskBucket(ctx context.Context, accountID uint) error {
	aps, err := s.repos.AccountPayment.FindByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account payments: %w", err)
	}

	now := time.Now()
	maxDPD := 0
	var outstanding int64
	for i := range aps {
		ap := &aps[i]
		if statemachine.IsPaidStatus(ap.Status) {
			continue
		}
		outstanding += ap.DueAmount
		dpd := int(now.Sub(ap.DueDate).Hours() / 24)
		if dpd > maxDPD {
			maxDPD = dpd
		}
	}

	bucket := &models.CollectionRiskBucket{
		AccountID:         accountID,
		Bucket:            riskBucketFor(maxDPD),
		DPD:               maxDPD,
		OutstandingAmount: outstanding,
	}
	return s.repos.Collection.UpsertRiskBucket(ctx, bucket)
}

func riskBucketFor(dpd int) string {
	switch {
	case dpd <= 0:
		return "current"
	case dpd <= 30:
		return "b1"
	case dpd <= 60:
		return "b2"
	case dpd <= 90:
		return "b3"
	default:
		return "b4"
	}
}
