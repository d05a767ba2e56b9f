package services

import (
	"fmt"

	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

// Waterfall component identifiers. Reversal consumes components in the
// reverse of forward application order: late fee first, then interest,
// then principal.
const (
	ComponentLateFee   = "late_fee"
	ComponentInterest  = "interest"
	ComponentPrincipal = "principal"
)

// ReversedTotals accumulates how much of each component a reversal consumed.
type ReversedTotals struct {
	LateFee   int64
	Interest  int64
	Principal int64
}

// Total returns the sum reversed across all components.
func (t ReversedTotals) Total() int64 {
	return t.LateFee + t.Interest + t.Principal
}

// allocateComponent peels the given amount off one paid component across the
// supplied payments in order, mirroring every delta onto the owning account
// payment. Stops as soon as the amount is exhausted. Returns the remaining
// amount and the total reversed for this component.
func allocateComponent(payments []*models.Payment, accountPayment *models.AccountPayment, amount int64, component string) (int64, int64) {
	var totalReversed int64

	for _, payment := range payments {
		if amount <= 0 {
			break
		}

		paid := paidComponent(payment, component)
		if paid <= 0 {
			continue
		}

		delta := amount
		if paid < delta {
			delta = paid
		}

		addToComponent(payment, component, -delta)
		payment.PaidAmount -= delta
		payment.DueAmount += delta

		if accountPayment != nil {
			addToAccountPaymentComponent(accountPayment, component, -delta)
			accountPayment.PaidAmount -= delta
			accountPayment.DueAmount += delta
		}

		amount -= delta
		totalReversed += delta
	}

	return amount, totalReversed
}

// allocateReversal runs the full waterfall for one event amount: late fee,
// then interest, then principal. Any residual beyond the payments' paid
// components is dropped with a log line; the recorded event amount can
// exceed what was actually allocated and halting the reversal over that
// discrepancy is worse than letting reconciliation catch it.
func allocateReversal(payments []*models.Payment, accountPayment *models.AccountPayment, amount int64) ReversedTotals {
	var totals ReversedTotals

	amount, totals.LateFee = allocateComponent(payments, accountPayment, amount, ComponentLateFee)
	amount, totals.Interest = allocateComponent(payments, accountPayment, amount, ComponentInterest)
	amount, totals.Principal = allocateComponent(payments, accountPayment, amount, ComponentPrincipal)

	if amount > 0 {
		logger.Warn(fmt.Sprintf("[Reversal] Unallocated reversal residual %d dropped (account payment %d)",
			amount, accountPaymentID(accountPayment)))
	}

	return totals
}

func paidComponent(p *models.Payment, component string) int64 {
	switch component {
	case ComponentLateFee:
		return p.PaidLateFee
	case ComponentInterest:
		return p.PaidInterest
	default:
		return p.PaidPrincipal
	}
}

func addToComponent(p *models.Payment, component string, delta int64) {
	switch component {
	case ComponentLateFee:
		p.PaidLateFee += delta
	case ComponentInterest:
		p.PaidInterest += delta
	default:
		p.PaidPrincipal += delta
	}
}

func addToAccountPaymentComponent(ap *models.AccountPayment, component string, delta int64) {
	switch component {
	case ComponentLateFee:
		ap.PaidLateFee += delta
	case ComponentInterest:
		ap.PaidInterest += delta
	default:
		ap.PaidPrincipal += delta
	}
}

func accountPaymentID(ap *models.AccountPayment) uint {
	if ap == nil {
		return 0
	}
	return ap.ID
}

// clampDueAmount caps a payment's due amount at its remaining outstanding
// bound. The clamp only ever lowers the stored value.
func clampDueAmount(p *models.Payment) {
	bound := p.Outstanding()
	if bound < 0 {
		bound = 0
	}
	if p.DueAmount > bound {
		logger.Warn(fmt.Sprintf("[Reversal] Clamping payment %d due amount %d to outstanding bound %d",
			p.ID, p.DueAmount, bound))
		p.DueAmount = bound
	}
}
