package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/internal/repository"
)

type ReportService struct {
	txRepo      repository.TransactionRepository
	accountRepo repository.AccountRepository
}

func NewReportService(txRepo repository.TransactionRepository, accountRepo repository.AccountRepository) *ReportService {
	return &ReportService{
		txRepo:      txRepo,
		accountRepo: accountRepo,
	}
}

// GenerateReversalReceiptPDF renders a printable receipt for a reversal
// transaction, itemizing the voided events.
func (s *ReportService) GenerateReversalReceiptPDF(ctx context.Context, transactionID uint) (*bytes.Buffer, string, error) {
	tx, err := s.txRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, "", err
	}

	account, err := s.accountRepo.FindByID(ctx, tx.AccountID)
	if err != nil {
		return nil, "", err
	}

	events, err := s.txRepo.FindEvents(ctx, tx.ID)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, "Reversal Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Transaction: #%d (%s)", tx.ID, tx.TransactionType))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Customer: %s", account.Customer.FullName))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Date: %s", tx.TransactionDate.Format("2 January 2006")))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Amount: %s", models.FormatRupiah(tx.TransactionAmount)))
	pdf.Ln(7)
	if tx.ReversalNote != nil && *tx.ReversalNote != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Note: %s", *tx.ReversalNote))
		pdf.Ln(7)
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(224, 224, 224)
	pdf.CellFormat(25, 8, "Event", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Payment", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Type", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 8, "Amount", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Date", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, e := range events {
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", e.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", e.PaymentID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, e.EventType, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, models.FormatRupiah(e.EventPayment), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, e.EventDate.Format("2006-01-02"), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Total voided: %s", models.FormatRupiah(sumEventAmounts(events))))

	pdf.Ln(12)
	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(128, 128, 128)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", time.Now().Format("2006-01-02 15:04")))

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", fmt.Errorf("failed to render receipt: %w", err)
	}

	filename := fmt.Sprintf("reversal_receipt_%d.pdf", tx.ID)
	return buf, filename, nil
}

func sumEventAmounts(events []models.PaymentEvent) int64 {
	var total int64
	for _, e := range events {
		total += e.EventPayment
	}
	return total
}
