package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/config"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/statemachine"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

// ConsistencyService is the nightly sweep: it regrades unpaid obligations,
// verifies that every account payment's aggregates equal the sum of its
// constituent payments, and re-clamps due amounts that drifted above their
// outstanding bound. Discrepancies are logged and repaired, never fatal.
type ConsistencyService struct {
	repos *repository.Repositories
	cfg   *config.Config
}

// NewConsistencyService creates a new consistency service
func NewConsistencyService(repos *repository.Repositories, cfg *config.Config) *ConsistencyService {
	return &ConsistencyService{repos: repos, cfg: cfg}
}

// SweepAll runs the sweep over every account. Each account runs in its own
// transaction so one bad account does not abort the rest.
func (s *ConsistencyService) SweepAll(ctx context.Context) error {
	ids, err := s.repos.Account.FindAllIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	var failed int
	for _, id := range ids {
		if err := s.SweepAccount(ctx, id); err != nil {
			failed++
			logger.Error(fmt.Sprintf("[Consistency] Sweep failed for account %d: %v", id, err))
		}
	}
	logger.Info(fmt.Sprintf("[Consistency] Sweep complete: %d accounts, %d failed", len(ids), failed))
	return nil
}

// SweepAccount checks and repairs one account's obligations.
func (s *ConsistencyService) SweepAccount(ctx context.Context, accountID uint) error {
	return s.repos.Tx.Do(ctx, func(ctx context.Context) error {
		aps, err := s.repos.AccountPayment.FindByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load account payments: %w", err)
		}

		now := time.Now()
		for i := range aps {
			if err := s.sweepAccountPayment(ctx, &aps[i], now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ConsistencyService) sweepAccountPayment(ctx context.Context, ap *models.AccountPayment, now time.Time) error {
	paymentRows, err := s.repos.Payment.FindByAccountPayment(ctx, ap.ID)
	if err != nil {
		return fmt.Errorf("failed to load payments for account payment %d: %w", ap.ID, err)
	}

	var sums paymentBalances
	changed := false

	for i := range paymentRows {
		p := &paymentRows[i]

		if !p.IsPaid() {
			target := statemachine.DeriveUnpaidStatus(p.DueDate, now, s.cfg.DueSoonDays)
			if p.Status != target {
				fsm := statemachine.NewPaymentFSM(p, now, s.cfg.GracePeriodDays, s.cfg.DueSoonDays)
				if err := fsm.Regrade(ctx); err != nil {
					return err
				}
				if err := s.repos.Payment.Update(ctx, p); err != nil {
					return fmt.Errorf("failed to regrade payment %d: %w", p.ID, err)
				}
			}
		}

		bound := p.Outstanding()
		if bound < 0 {
			bound = 0
		}
		if p.DueAmount > bound {
			logger.Warn(fmt.Sprintf("[Consistency] Payment %d due amount %d above bound %d, clamping", p.ID, p.DueAmount, bound))
			p.DueAmount = bound
			if err := s.repos.Payment.Update(ctx, p); err != nil {
				return fmt.Errorf("failed to clamp payment %d: %w", p.ID, err)
			}
		}

		sums.PaidAmount += p.PaidAmount
		sums.PaidPrincipal += p.PaidPrincipal
		sums.PaidInterest += p.PaidInterest
		sums.PaidLateFee += p.PaidLateFee
		sums.DueAmount += p.DueAmount
	}

	// Aggregates must equal the sum of constituents; repair and log drift.
	if ap.PaidAmount != sums.PaidAmount {
		logger.Warn(fmt.Sprintf("[Consistency] Account payment %d paid amount %d != sum %d, repairing", ap.ID, ap.PaidAmount, sums.PaidAmount))
		ap.PaidAmount = sums.PaidAmount
		changed = true
	}
	if ap.PaidPrincipal != sums.PaidPrincipal {
		ap.PaidPrincipal = sums.PaidPrincipal
		changed = true
	}
	if ap.PaidInterest != sums.PaidInterest {
		ap.PaidInterest = sums.PaidInterest
		changed = true
	}
	if ap.PaidLateFee != sums.PaidLateFee {
		ap.PaidLateFee = sums.PaidLateFee
		changed = true
	}
	if ap.DueAmount > sums.DueAmount {
		logger.Warn(fmt.Sprintf("[Consistency] Account payment %d due amount %d above bound %d, clamping", ap.ID, ap.DueAmount, sums.DueAmount))
		ap.DueAmount = sums.DueAmount
		changed = true
	}

	if changed {
		if err := s.repos.AccountPayment.Update(ctx, ap); err != nil {
			return fmt.Errorf("failed to repair account payment %d: %w", ap.ID, err)
		}
	}
	return nil
}
