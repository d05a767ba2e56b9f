package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/sajinavi2006/servicing-api/internal/models"
)

var unpaidStatuses = []string{
	models.PaymentStatusNotDue,
	models.PaymentStatusDueSoon,
	models.PaymentStatusDueToday,
	models.PaymentStatusLate,
}

var paidStatuses = []string{
	models.PaymentStatusPaidOnTime,
	models.PaymentStatusPaidWithinGrace,
	models.PaymentStatusPaidLate,
}

// DeriveUnpaidStatus grades an unpaid obligation by its due date as of the
// given day: late once the due date has passed, due_today on the day itself,
// due_soon inside the warning window, not_due before that.
func DeriveUnpaidStatus(dueDate, asOf time.Time, dueSoonDays int) string {
	due := truncateDay(dueDate)
	day := truncateDay(asOf)

	switch {
	case day.After(due):
		return models.PaymentStatusLate
	case day.Equal(due):
		return models.PaymentStatusDueToday
	case !day.Before(due.AddDate(0, 0, -dueSoonDays)):
		return models.PaymentStatusDueSoon
	default:
		return models.PaymentStatusNotDue
	}
}

// DerivePaidStatus grades a settled obligation by when it was paid relative
// to its due date and grace window.
func DerivePaidStatus(dueDate, paidDate time.Time, graceDays int) string {
	due := truncateDay(dueDate)
	paid := truncateDay(paidDate)

	switch {
	case !paid.After(due):
		return models.PaymentStatusPaidOnTime
	case !paid.After(due.AddDate(0, 0, graceDays)):
		return models.PaymentStatusPaidWithinGrace
	default:
		return models.PaymentStatusPaidLate
	}
}

// IsPaidStatus returns true for the terminal paid grades
func IsPaidStatus(status string) bool {
	for _, s := range paidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// newStatusMachine builds the installment status machine. The reopen
// destination is fixed at construction time from the due date and the asOf
// day, so a reversal lands the obligation directly on the correct unpaid
// grade instead of forcing a status by hand.
func newStatusMachine(current string, dueDate, asOf time.Time, dueSoonDays int) *fsm.FSM {
	reopenDst := DeriveUnpaidStatus(dueDate, asOf, dueSoonDays)
	regradeDst := reopenDst

	return fsm.NewFSM(
		current,
		fsm.Events{
			{Name: "pay_on_time", Src: unpaidStatuses, Dst: models.PaymentStatusPaidOnTime},
			{Name: "pay_within_grace", Src: unpaidStatuses, Dst: models.PaymentStatusPaidWithinGrace},
			{Name: "pay_late", Src: unpaidStatuses, Dst: models.PaymentStatusPaidLate},

			// paid → unpaid (reversal)
			{Name: "reopen", Src: paidStatuses, Dst: reopenDst},

			// unpaid → unpaid (nightly regrade)
			{Name: "regrade", Src: unpaidStatuses, Dst: regradeDst},
		},
		fsm.Callbacks{},
	)
}

// PaymentFSM wraps a payment with its status state machine
type PaymentFSM struct {
	payment     *models.Payment
	fsm         *fsm.FSM
	graceDays   int
	dueSoonDays int
}

// NewPaymentFSM creates a payment state machine graded as of the given day
func NewPaymentFSM(payment *models.Payment, asOf time.Time, graceDays, dueSoonDays int) *PaymentFSM {
	return &PaymentFSM{
		payment:     payment,
		fsm:         newStatusMachine(payment.Status, payment.DueDate, asOf, dueSoonDays),
		graceDays:   graceDays,
		dueSoonDays: dueSoonDays,
	}
}

// MarkPaid transitions the payment to the paid grade earned by the given
// paid date
func (p *PaymentFSM) MarkPaid(ctx context.Context, paidDate time.Time) error {
	event := payEventFor(DerivePaidStatus(p.payment.DueDate, paidDate, p.graceDays))
	if err := p.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("cannot mark payment %d paid from status %s: %w", p.payment.ID, p.payment.Status, err)
	}
	p.payment.Status = p.fsm.Current()
	pd := truncateDay(paidDate)
	p.payment.PaidDate = &pd
	return nil
}

// Reopen transitions a paid payment back to the unpaid grade its due date
// earns today. Used when a reversal leaves the payment owing again.
func (p *PaymentFSM) Reopen(ctx context.Context) error {
	if err := p.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("cannot reopen payment %d from status %s: %w", p.payment.ID, p.payment.Status, err)
	}
	p.payment.Status = p.fsm.Current()
	p.payment.PaidDate = nil
	return nil
}

// Regrade refreshes an unpaid payment's grade. No-op when already correct.
func (p *PaymentFSM) Regrade(ctx context.Context) error {
	if p.payment.IsPaid() {
		return nil
	}
	target := DeriveUnpaidStatus(p.payment.DueDate, time.Now(), p.dueSoonDays)
	if p.payment.Status == target {
		return nil
	}
	if err := p.fsm.Event(ctx, "regrade"); err != nil {
		return fmt.Errorf("cannot regrade payment %d from status %s: %w", p.payment.ID, p.payment.Status, err)
	}
	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// AccountPaymentFSM wraps an account payment with the same status machine
type AccountPaymentFSM struct {
	accountPayment *models.AccountPayment
	fsm            *fsm.FSM
	graceDays      int
	dueSoonDays    int
}

// NewAccountPaymentFSM creates an account payment state machine graded as of
// the given day
func NewAccountPaymentFSM(ap *models.AccountPayment, asOf time.Time, graceDays, dueSoonDays int) *AccountPaymentFSM {
	return &AccountPaymentFSM{
		accountPayment: ap,
		fsm:            newStatusMachine(ap.Status, ap.DueDate, asOf, dueSoonDays),
		graceDays:      graceDays,
		dueSoonDays:    dueSoonDays,
	}
}

// MarkPaid transitions the account payment to the paid grade earned by the
// given paid date
func (a *AccountPaymentFSM) MarkPaid(ctx context.Context, paidDate time.Time) error {
	event := payEventFor(DerivePaidStatus(a.accountPayment.DueDate, paidDate, a.graceDays))
	if err := a.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("cannot mark account payment %d paid from status %s: %w", a.accountPayment.ID, a.accountPayment.Status, err)
	}
	a.accountPayment.Status = a.fsm.Current()
	pd := truncateDay(paidDate)
	a.accountPayment.PaidDate = &pd
	return nil
}

// Reopen transitions a paid account payment back to the unpaid grade its
// due date earns today
func (a *AccountPaymentFSM) Reopen(ctx context.Context) error {
	if err := a.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("cannot reopen account payment %d from status %s: %w", a.accountPayment.ID, a.accountPayment.Status, err)
	}
	a.accountPayment.Status = a.fsm.Current()
	a.accountPayment.PaidDate = nil
	return nil
}

// Current returns the current state
func (a *AccountPaymentFSM) Current() string {
	return a.fsm.Current()
}

func payEventFor(paidStatus string) string {
	switch paidStatus {
	case models.PaymentStatusPaidOnTime:
		return "pay_on_time"
	case models.PaymentStatusPaidWithinGrace:
		return "pay_within_grace"
	default:
		return "pay_late"
	}
}
