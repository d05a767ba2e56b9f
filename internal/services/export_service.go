package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/sajinavi2006/servicing-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

type ExportService struct {
	txRepo repository.TransactionRepository
}

func NewExportService(txRepo repository.TransactionRepository) *ExportService {
	return &ExportService{txRepo: txRepo}
}

// ExportTransactionsCSV renders an account's transaction history as CSV
func (s *ExportService) ExportTransactionsCSV(ctx context.Context, accountID uint) ([]byte, string, error) {
	transactions, err := s.txRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Transaction History", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"ID", "Date", "Type", "Amount", "Principal", "Interest", "Late Fee", "Reversible", "Note"})

	for _, tx := range transactions {
		note := ""
		if tx.ReversalNote != nil {
			note = *tx.ReversalNote
		}
		_ = writer.Write([]string{
			fmt.Sprintf("%d", tx.ID),
			tx.TransactionDate.Format("2006-01-02"),
			tx.TransactionType,
			fmt.Sprintf("%d", tx.TransactionAmount),
			fmt.Sprintf("%d", tx.TowardsPrincipal),
			fmt.Sprintf("%d", tx.TowardsInterest),
			fmt.Sprintf("%d", tx.TowardsLateFee),
			fmt.Sprintf("%t", tx.CanReverse),
			note,
		})
	}

	writer.Flush()

	filename := fmt.Sprintf("transactions_%d_%s.csv", accountID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportTransactionsXLSX renders an account's transaction history as XLSX
func (s *ExportService) ExportTransactionsXLSX(ctx context.Context, accountID uint) ([]byte, string, error) {
	transactions, err := s.txRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Transaction History - Account %d", accountID))
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	headers := []string{"ID", "Date", "Type", "Amount", "Principal", "Interest", "Late Fee", "Reversible", "Note"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, tx := range transactions {
		note := ""
		if tx.ReversalNote != nil {
			note = *tx.ReversalNote
		}
		values := []interface{}{
			tx.ID,
			tx.TransactionDate.Format("2006-01-02"),
			tx.TransactionType,
			tx.TransactionAmount,
			tx.TowardsPrincipal,
			tx.TowardsInterest,
			tx.TowardsLateFee,
			tx.CanReverse,
			note,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+4)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "I", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("transactions_%d_%s.xlsx", accountID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportEventsCSV renders one transaction's payment events as CSV
func (s *ExportService) ExportEventsCSV(ctx context.Context, transactionID uint) ([]byte, string, error) {
	events, err := s.txRepo.FindEvents(ctx, transactionID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Payment Events", fmt.Sprintf("Transaction %d", transactionID)})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"ID", "Payment", "Type", "Amount", "Due After", "Date", "Reversible"})

	for _, e := range events {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", e.ID),
			fmt.Sprintf("%d", e.PaymentID),
			e.EventType,
			fmt.Sprintf("%d", e.EventPayment),
			fmt.Sprintf("%d", e.EventDueAmount),
			e.EventDate.Format("2006-01-02"),
			fmt.Sprintf("%t", e.CanReverse),
		})
	}

	writer.Flush()

	filename := fmt.Sprintf("events_%d.csv", transactionID)
	return buf.Bytes(), filename, nil
}
