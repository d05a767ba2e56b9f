package services

import (
	"time"

	"github.com/sajinavi2006/servicing-api/internal/models"
)

// paymentBalances is the frozen money state of one payment.
type paymentBalances struct {
	PaidAmount    int64
	PaidPrincipal int64
	PaidInterest  int64
	PaidLateFee   int64
	DueAmount     int64
}

// paymentSnapshot freezes the money state of a set of payments before the
// waterfall mutates them. The recorder diffs against it to decide which
// payments actually changed and by how much per component.
type paymentSnapshot map[uint]paymentBalances

func snapshotPayments(payments []*models.Payment) paymentSnapshot {
	snap := make(paymentSnapshot, len(payments))
	for _, p := range payments {
		snap[p.ID] = paymentBalances{
			PaidAmount:    p.PaidAmount,
			PaidPrincipal: p.PaidPrincipal,
			PaidInterest:  p.PaidInterest,
			PaidLateFee:   p.PaidLateFee,
			DueAmount:     p.DueAmount,
		}
	}
	return snap
}

// reversedAmount returns how much the payment's paid amount dropped since
// the snapshot. Zero or negative means the payment was untouched.
func (s paymentSnapshot) reversedAmount(p *models.Payment) int64 {
	before, ok := s[p.ID]
	if !ok {
		return 0
	}
	return before.PaidAmount - p.PaidAmount
}

// reversedSplit returns the per-component drop since the snapshot.
func (s paymentSnapshot) reversedSplit(p *models.Payment) ReversedTotals {
	before, ok := s[p.ID]
	if !ok {
		return ReversedTotals{}
	}
	return ReversedTotals{
		Principal: before.PaidPrincipal - p.PaidPrincipal,
		Interest:  before.PaidInterest - p.PaidInterest,
		LateFee:   before.PaidLateFee - p.PaidLateFee,
	}
}

// inferPaidDate derives a payment's paid date from the events that survive
// the reversal: the latest positive event not yet voided, netting each
// event type against its void. Returns nil when nothing net-positive
// remains.
func inferPaidDate(events []models.PaymentEvent) *time.Time {
	var netPayment int64
	var latest *time.Time

	for i := range events {
		e := &events[i]
		switch e.EventType {
		case models.EventTypePayment, models.EventTypeCustomerWallet, models.EventTypeLateFee:
			netPayment += e.EventPayment
			d := e.EventDate
			if latest == nil || d.After(*latest) {
				latest = &d
			}
		case models.EventTypePaymentVoid, models.EventTypeCustomerWalletVoid, models.EventTypeLateFeeVoid:
			netPayment += e.EventPayment
		}
	}

	if netPayment <= 0 {
		return nil
	}
	return latest
}
