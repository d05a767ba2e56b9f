package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

// CashbackService reconciles the customer wallet, the tiered cashback
// counter and the claim experiment when payments are applied or reversed.
type CashbackService struct {
	walletRepo  repository.WalletRepository
	accountRepo repository.AccountRepository
	loanRepo    repository.LoanRepository
	ceiling     int
}

// NewCashbackService creates a new cashback service
func NewCashbackService(walletRepo repository.WalletRepository, accountRepo repository.AccountRepository, loanRepo repository.LoanRepository, counterCeiling int) *CashbackService {
	return &CashbackService{
		walletRepo:  walletRepo,
		accountRepo: accountRepo,
		loanRepo:    loanRepo,
		ceiling:     counterCeiling,
	}
}

// WalletChange describes one wallet balance mutation.
type WalletChange struct {
	CustomerID       uint
	ChangeAccruing   int64
	ChangeAvailable  int64
	Reason           string
	AccountPaymentID *uint
	PaymentID        *uint
	LoanID           *uint
	Percentage       *int
	Counter          *int
}

// ChangeWalletBalance applies a wallet delta to the customer and appends the
// matching history row. Old balances are captured before the mutation so the
// row records the exact delta.
func (s *CashbackService) ChangeWalletBalance(ctx context.Context, change WalletChange) error {
	customer, err := s.accountRepo.FindCustomer(ctx, change.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to load customer %d: %w", change.CustomerID, err)
	}

	history := &models.CustomerWalletHistory{
		CustomerID:                customer.ID,
		AccountPaymentID:          change.AccountPaymentID,
		PaymentID:                 change.PaymentID,
		LoanID:                    change.LoanID,
		WalletBalanceAccruingOld:  customer.WalletBalanceAccruing,
		WalletBalanceAvailableOld: customer.WalletBalanceAvailable,
		ChangeReason:              change.Reason,
		CashbackPercentage:        change.Percentage,
		CashbackCounter:           change.Counter,
	}

	customer.WalletBalanceAccruing += change.ChangeAccruing
	customer.WalletBalanceAvailable += change.ChangeAvailable
	history.WalletBalanceAccruing = customer.WalletBalanceAccruing
	history.WalletBalanceAvailable = customer.WalletBalanceAvailable

	if err := s.accountRepo.UpdateCustomer(ctx, customer); err != nil {
		return fmt.Errorf("failed to update customer wallet: %w", err)
	}
	if err := s.walletRepo.CreateWalletHistory(ctx, history); err != nil {
		return fmt.Errorf("failed to record wallet history: %w", err)
	}
	return nil
}

// CounterAdjustment decides the payment's new cashback counter after a
// reversal and appends the counter history row. The rule at the ceiling:
// hold when any sibling account payment's latest counter is also at the
// ceiling, otherwise step down one. Below the ceiling always step down,
// floored at zero.
func (s *CashbackService) CounterAdjustment(ctx context.Context, account *models.Account, accountPaymentID uint, payment *models.Payment) (int, error) {
	last, err := s.walletRepo.LastCounterByPayment(ctx, payment.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load counter history: %w", err)
	}
	if last == nil {
		// Payment never moved the counter; nothing to unwind.
		return 0, nil
	}

	next := last.Counter
	if last.Counter >= s.ceiling {
		siblings, err := s.walletRepo.LastSiblingCounters(ctx, account.ID, accountPaymentID)
		if err != nil {
			return 0, fmt.Errorf("failed to load sibling counters: %w", err)
		}
		hold := false
		for _, sib := range siblings {
			if sib.Counter >= s.ceiling {
				hold = true
				break
			}
		}
		if !hold {
			next = last.Counter - 1
		}
	} else {
		next = last.Counter - 1
	}
	if next < 0 {
		next = 0
	}

	if next != last.Counter {
		entry := &models.CashbackCounterHistory{
			AccountID:        account.ID,
			AccountPaymentID: accountPaymentID,
			PaymentID:        &payment.ID,
			Counter:          next,
			ChangeReason:     models.WalletReasonPaymentReversal,
		}
		if err := s.walletRepo.CreateCounterHistory(ctx, entry); err != nil {
			return 0, fmt.Errorf("failed to record counter history: %w", err)
		}
	}

	return next, nil
}

// ReverseOverpaid unwinds the most recent cashback-overpaid wallet entry for
// the loan, reversing exactly the delta that entry recorded. Fires when a
// reversal reopens a loan that had been overpaid into paid-off.
func (s *CashbackService) ReverseOverpaid(ctx context.Context, customerID uint, loan *models.Loan) error {
	last, err := s.walletRepo.LastWalletHistoryByReason(ctx, customerID, loan.ID, models.WalletReasonCashbackOverPaid)
	if err != nil {
		return fmt.Errorf("failed to load overpaid history: %w", err)
	}
	if last == nil {
		return nil
	}

	return s.ChangeWalletBalance(ctx, WalletChange{
		CustomerID:      customerID,
		ChangeAccruing:  -last.AccruingDelta(),
		ChangeAvailable: -last.AvailableDelta(),
		Reason:          models.WalletReasonCashbackOverPaidVoid,
		LoanID:          &loan.ID,
	})
}

// PromoteToAvailable moves the loan's accrued cashback into the spendable
// balance. Fires once, when the loan's last installment settles.
func (s *CashbackService) PromoteToAvailable(ctx context.Context, customerID uint, loan *models.Loan) error {
	if loan.CashbackEarnedTotal <= 0 {
		return nil
	}

	return s.ChangeWalletBalance(ctx, WalletChange{
		CustomerID:      customerID,
		ChangeAccruing:  -loan.CashbackEarnedTotal,
		ChangeAvailable: loan.CashbackEarnedTotal,
		Reason:          models.WalletReasonCashbackAvailable,
		LoanID:          &loan.ID,
	})
}

// ReverseAvailable unwinds the loan's accrued-to-available promotion,
// reversing exactly the delta that entry recorded. Fires when a reversal
// reopens a paid-off loan.
func (s *CashbackService) ReverseAvailable(ctx context.Context, customerID uint, loan *models.Loan) error {
	last, err := s.walletRepo.LastWalletHistoryByReason(ctx, customerID, loan.ID, models.WalletReasonCashbackAvailable)
	if err != nil {
		return fmt.Errorf("failed to load promotion history: %w", err)
	}
	if last == nil {
		return nil
	}

	return s.ChangeWalletBalance(ctx, WalletChange{
		CustomerID:      customerID,
		ChangeAccruing:  -last.AccruingDelta(),
		ChangeAvailable: -last.AvailableDelta(),
		Reason:          models.WalletReasonCashbackAvailableVoid,
		LoanID:          &loan.ID,
	})
}

// ReverseEarned unwinds the cashback a payment earned: decrements the loan's
// cumulative total, zeros the payment's earned amount, and debits the wallet
// with the current tier context so the compensating entry reflects the
// correct percentage and counter.
func (s *CashbackService) ReverseEarned(ctx context.Context, customerID uint, loan *models.Loan, payment *models.Payment, percentage, counter int) error {
	earned := payment.CashbackEarned
	if earned <= 0 {
		return nil
	}

	loan.CashbackEarnedTotal -= earned
	if loan.CashbackEarnedTotal < 0 {
		loan.CashbackEarnedTotal = 0
	}
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to update loan cashback total: %w", err)
	}
	payment.CashbackEarned = 0

	return s.ChangeWalletBalance(ctx, WalletChange{
		CustomerID:      customerID,
		ChangeAccruing:  -earned,
		ChangeAvailable: 0,
		Reason:          models.WalletReasonCashbackEarnedVoid,
		PaymentID:       &payment.ID,
		LoanID:          &loan.ID,
		Percentage:      &percentage,
		Counter:         &counter,
	})
}

// RefundCashbackFunded credits back a cashback-funded payment: both accruing
// and available go up by the voided magnitude.
func (s *CashbackService) RefundCashbackFunded(ctx context.Context, customerID uint, paymentID uint, amount int64) error {
	if amount < 0 {
		amount = -amount
	}
	return s.ChangeWalletBalance(ctx, WalletChange{
		CustomerID:      customerID,
		ChangeAccruing:  amount,
		ChangeAvailable: amount,
		Reason:          models.WalletReasonCashbackRefund,
		PaymentID:       &paymentID,
	})
}

// VoidClaimExperiment voids the claim experiment's per-payment state when it
// is active for the account on the given date.
func (s *CashbackService) VoidClaimExperiment(ctx context.Context, account *models.Account, payment *models.Payment, onDate time.Time) error {
	active, err := s.walletRepo.HasClaimRows(ctx, account.ID, onDate)
	if err != nil {
		return fmt.Errorf("failed to check claim experiment: %w", err)
	}
	if !active {
		return nil
	}
	if err := s.walletRepo.VoidClaimByPayment(ctx, payment.ID); err != nil {
		return fmt.Errorf("failed to void claim payment: %w", err)
	}
	logger.Info(fmt.Sprintf("[Cashback] Voided claim experiment state for payment %d", payment.ID))
	return nil
}

// VoidClaimsForAccountPayments voids the claim experiment's state for every
// given account payment id.
func (s *CashbackService) VoidClaimsForAccountPayments(ctx context.Context, accountPaymentIDs []uint) error {
	return s.walletRepo.VoidClaimsByAccountPayments(ctx, accountPaymentIDs)
}

// PercentageForCounter maps the tier counter to a cashback percentage under
// the new scheme.
func PercentageForCounter(counter int) int {
	switch {
	case counter >= 4:
		return 3
	case counter == 3:
		return 2
	case counter >= 1:
		return 1
	default:
		return 0
	}
}
