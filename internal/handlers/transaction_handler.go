package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sajinavi2006/servicing-api/internal/middleware"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/sajinavi2006/servicing-api/internal/services"
)

type TransactionHandler struct {
	transactionRepo repository.TransactionRepository
	reversalService *services.ReversalService
	chainedService  *services.ChainedReversalService
	exportService   *services.ExportService
	reportService   *services.ReportService
	auditService    *services.AuditService
}

func NewTransactionHandler(transactionRepo repository.TransactionRepository, reversalService *services.ReversalService, chainedService *services.ChainedReversalService, exportService *services.ExportService, reportService *services.ReportService, auditService *services.AuditService) *TransactionHandler {
	return &TransactionHandler{
		transactionRepo: transactionRepo,
		reversalService: reversalService,
		chainedService:  chainedService,
		exportService:   exportService,
		reportService:   reportService,
		auditService:    auditService,
	}
}

// @Summary List Account Transactions
// @Description Returns the transaction history of an account, newest first
// @Tags Transactions
// @Produce json
// @Param account_id path int true "Account ID"
// @Success 200 {array} models.AccountTransactionResponse
// @Security BearerAuth
// @Router /accounts/{account_id}/transactions [get]
func (h *TransactionHandler) Index(c *gin.Context) {
	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	transactions, err := h.transactionRepo.FindByAccount(c.Request.Context(), uint(accountID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]models.AccountTransactionResponse, len(transactions))
	for i := range transactions {
		responses[i] = transactions[i].ToResponse()
	}
	c.JSON(http.StatusOK, gin.H{"transactions": responses})
}

// @Summary Get Transaction
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {object} models.AccountTransactionResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id} [get]
func (h *TransactionHandler) Show(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("transaction_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	transaction, err := h.transactionRepo.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": transaction.ToResponse()})
}

// @Summary List Transaction Events
// @Description Returns the payment events recorded under a transaction
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {array} models.PaymentEventResponse
// @Security BearerAuth
// @Router /transactions/{transaction_id}/events [get]
func (h *TransactionHandler) Events(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("transaction_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	events, err := h.transactionRepo.FindEvents(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]models.PaymentEventResponse, len(events))
	for i := range events {
		responses[i] = events[i].ToResponse()
	}
	c.JSON(http.StatusOK, gin.H{"events": responses})
}

type ReverseRequest struct {
	Note        string `json:"note"`
	Refinancing bool   `json:"refinancing"`
}

// @Summary Reverse Transaction
// @Description Reverses a single account transaction, voiding its payment events
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Param request body ReverseRequest false "Reversal options"
// @Success 200 {object} models.AccountTransactionResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/reverse [post]
func (h *TransactionHandler) Reverse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("transaction_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req ReverseRequest
	_ = c.ShouldBindJSON(&req)

	reversal, err := h.reversalService.ProcessAccountTransactionReversal(c.Request.Context(), uint(id), req.Note, req.Refinancing)
	if err != nil {
		h.renderReversalError(c, err)
		return
	}

	h.audit(c, "REVERSE", "AccountTransaction", uint(id), req.Note)
	c.JSON(http.StatusOK, gin.H{"transaction": reversal.ToResponse()})
}

type ChainedReverseRequest struct {
	Note                 string `json:"note"`
	DestinationAccountID *uint  `json:"destination_account_id"`
}

// @Summary Chained Reverse
// @Description Reverses a transaction even when newer transactions depend on it, optionally transferring the value to another account
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Param request body ChainedReverseRequest false "Reversal options"
// @Success 200 {object} models.AccountTransactionResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/chained-reverse [post]
func (h *TransactionHandler) ChainedReverse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("transaction_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req ChainedReverseRequest
	_ = c.ShouldBindJSON(&req)

	reversal, err := h.chainedService.ProcessCustomerPaymentReversal(c.Request.Context(), uint(id), req.DestinationAccountID, req.Note)
	if err != nil {
		h.renderReversalError(c, err)
		return
	}

	h.audit(c, "REVERSE", "AccountTransaction", uint(id), req.Note)
	c.JSON(http.StatusOK, gin.H{"transaction": reversal.ToResponse()})
}

// @Summary Waive Late Fee
// @Description Reverses a late fee transaction, voiding any paid portion and removing the unpaid remainder
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Param request body ReverseRequest false "Waiver options"
// @Success 200 {object} models.AccountTransactionResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/waive-late-fee [post]
func (h *TransactionHandler) WaiveLateFee(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("transaction_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req ReverseRequest
	_ = c.ShouldBindJSON(&req)

	reversal, err := h.reversalService.ProcessLateFeeReversal(c.Request.Context(), uint(id), req.Note)
	if err != nil {
		h.renderReversalError(c, err)
		return
	}

	h.audit(c, "REVERSE", "AccountTransaction", uint(id), req.Note)
	c.JSON(http.StatusOK, gin.H{"transaction": reversal.ToResponse()})
}

// @Summary Export Transactions
// @Description Export an account's transaction history as XLSX or CSV
// @Tags Transactions
// @Produce application/octet-stream
// @Param account_id path int true "Account ID"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 200
// @Security BearerAuth
// @Router /accounts/{account_id}/transactions/export [get]
func (h *TransactionHandler) Export(c *gin.Context) {
	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	var data []byte
	var filename string
	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		data, filename, err = h.exportService.ExportTransactionsCSV(c.Request.Context(), uint(accountID))
	default:
		data, filename, err = h.exportService.ExportTransactionsXLSX(c.Request.Context(), uint(accountID))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.audit(c, "EXPORT", "AccountTransaction", uint(accountID), filename)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// @Summary Export Transaction Events
// @Description Export a transaction's payment events as CSV
// @Tags Transactions
// @Produce application/octet-stream
// @Param transaction_id path int true "Transaction ID"
// @Success 200
// @Security BearerAuth
// @Router /transactions/{transaction_id}/events/export [get]
func (h *TransactionHandler) ExportEvents(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("transaction_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	data, filename, err := h.exportService.ExportEventsCSV(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// @Summary Reversal Receipt
// @Description Download a PDF receipt for a reversal transaction
// @Tags Transactions
// @Produce application/pdf
// @Param transaction_id path int true "Transaction ID"
// @Success 200
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/receipt [get]
func (h *TransactionHandler) Receipt(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("transaction_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	buf, filename, err := h.reportService.GenerateReversalReceiptPDF(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *TransactionHandler) renderReversalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTransactionNotReversible):
		c.JSON(http.StatusConflict, gin.H{"error": "transaction can no longer be reversed"})
	case errors.Is(err, services.ErrNoPaymentEvents):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "transaction has no payment events"})
	case errors.Is(err, services.ErrNoDestinationObligation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "destination account has no unpaid obligation"})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "transaction is not in a reversible state"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *TransactionHandler) audit(c *gin.Context, action, entity string, entityID uint, details string) {
	actorID := middleware.GetUserID(c)
	_ = h.auditService.Log(c.Request.Context(), actorID, action, entity, entityID, details, c.ClientIP(), c.Request.UserAgent())
}
