package services

import (
	"github.com/sajinavi2006/servicing-api/internal/config"
	"github.com/sajinavi2006/servicing-api/internal/jobs"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Cashback        *CashbackService
	AccountPayment  *AccountPaymentService
	Reversal        *ReversalService
	ChainedReversal *ChainedReversalService
	Repayment       *RepaymentService
	Consistency     *ConsistencyService
	Notification    *NotificationService
	Email           *EmailService
	Audit           *AuditService
	Report          *ReportService
	Export          *ExportService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config, db *gorm.DB) *Services {
	notificationSvc := NewNotificationService(repos.Notification)
	emailSvc := NewEmailService(cfg)
	auditSvc := NewAuditService(db)

	cashbackSvc := NewCashbackService(repos.Wallet, repos.Account, repos.Loan, cfg.CashbackCounterCeiling)
	recorder := NewReversalRecorder(repos.Payment, repos.Transaction, repos.Loan, repos.Commission, cashbackSvc, cfg.GracePeriodDays, cfg.DueSoonDays)
	aggregator := NewAccountPaymentService(repos.AccountPayment, repos.Payment, repos.Account, cfg.GracePeriodDays, cfg.DueSoonDays)
	adjuster := NewCommissionPTPAdjuster(repos.PTP, repos.Commission, repos.Transaction, repos.AccountPayment)

	reversalSvc := NewReversalService(repos, recorder, aggregator, adjuster, cashbackSvc, notificationSvc, emailSvc, worker, cfg)
	repaymentSvc := NewRepaymentService(repos, cashbackSvc, worker, cfg)
	chainedSvc := NewChainedReversalService(repos, reversalSvc, repaymentSvc, notificationSvc, emailSvc, worker)

	return &Services{
		Cashback:        cashbackSvc,
		AccountPayment:  aggregator,
		Reversal:        reversalSvc,
		ChainedReversal: chainedSvc,
		Repayment:       repaymentSvc,
		Consistency:     NewConsistencyService(repos, cfg),
		Notification:    notificationSvc,
		Email:           emailSvc,
		Audit:           auditSvc,
		Report:          NewReportService(repos.Transaction, repos.Account),
		Export:          NewExportService(repos.Transaction),
	}
}
