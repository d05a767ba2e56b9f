package handlers

import (
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Transaction  *TransactionHandler
	Repayment    *RepaymentHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Transaction:  NewTransactionHandler(repos.Transaction, svcs.Reversal, svcs.ChainedReversal, svcs.Export, svcs.Report, svcs.Audit),
		Repayment:    NewRepaymentHandler(repos.Payback, repos.Account, svcs.Repayment, svcs.Audit),
		Notification: NewNotificationHandler(svcs.Notification),
		Audit:        NewAuditHandler(svcs.Audit),
	}
}
