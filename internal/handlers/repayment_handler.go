package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sajinavi2006/servicing-api/internal/middleware"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/services"
)

type RepaymentHandler struct {
	paybackRepo      repository.PaybackRepository
	accountRepo      repository.AccountRepository
	repaymentService *services.RepaymentService
	auditService     *services.AuditService
}

func NewRepaymentHandler(paybackRepo repository.PaybackRepository, accountRepo repository.AccountRepository, repaymentService *services.RepaymentService, auditService *services.AuditService) *RepaymentHandler {
	return &RepaymentHandler{
		paybackRepo:      paybackRepo,
		accountRepo:      accountRepo,
		repaymentService: repaymentService,
		auditService:     auditService,
	}
}

type RepaymentRequest struct {
	AccountID       uint    `json:"account_id"`
	Amount          int64   `json:"amount"`
	TransactionID   string  `json:"transaction_id"`
	TransactionDate *string `json:"transaction_date"`
	PaymentMethod   *string `json:"payment_method"`
	PaybackService  string  `json:"payback_service"`
	Note            string  `json:"note"`
	UseCashback     bool    `json:"use_cashback"`
}

// @Summary Process Repayment
// @Description Records an inbound payback and applies it to the account's oldest unpaid obligations
// @Tags Repayments
// @Accept json
// @Produce json
// @Param request body RepaymentRequest true "Repayment details"
// @Success 201 {object} models.AccountTransactionResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /repayments [post]
func (h *RepaymentHandler) Create(c *gin.Context) {
	var req RepaymentRequest
	if err := BindNestedOrFlat(c, "repayment", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AccountID == 0 || req.Amount <= 0 || req.TransactionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id, amount and transaction_id are required"})
		return
	}

	account, err := h.accountRepo.FindByID(c.Request.Context(), req.AccountID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	transactionDate := time.Now()
	if req.TransactionDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.TransactionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction_date, expected YYYY-MM-DD"})
			return
		}
		transactionDate = parsed
	}

	paybackService := req.PaybackService
	if paybackService == "" {
		paybackService = models.PaybackServiceBank
	}
	if req.UseCashback {
		paybackService = models.PaybackServiceWallet
	}

	payback := &models.PaybackTransaction{
		CustomerID:      account.CustomerID,
		AccountID:       account.ID,
		Amount:          req.Amount,
		TransactionDate: transactionDate,
		PaymentMethod:   req.PaymentMethod,
		PaybackService:  paybackService,
		TransactionID:   req.TransactionID,
	}
	if err := h.paybackRepo.Create(c.Request.Context(), payback); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayback) {
			c.JSON(http.StatusConflict, gin.H{"error": "payback with this transaction_id already processed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	transaction, err := h.repaymentService.ProcessRepayment(c.Request.Context(), payback, req.Note, req.UseCashback)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoDestinationObligation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "account has no unpaid obligation"})
		case errors.Is(err, services.ErrInvalidState):
			c.JSON(http.StatusConflict, gin.H{"error": "payback already processed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	actorID := middleware.GetUserID(c)
	_ = h.auditService.Log(c.Request.Context(), actorID, "CREATE", "PaybackTransaction", payback.ID, req.Note, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction.ToResponse()})
}
