package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/sajinavi2006/servicing-api/internal/config"
	"github.com/sajinavi2006/servicing-api/internal/models"
	"github.com/sajinavi2006/servicing-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

func (s *EmailService) SendPaymentReversed(ctx context.Context, customer *models.Customer, amount int64, date time.Time, note string) error {
	data := struct {
		Name   string
		Amount string
		Date   string
		Note   string
	}{
		Name:   customer.FullName,
		Amount: models.FormatRupiah(amount),
		Date:   date.Format("2 January 2006"),
		Note:   note,
	}
	return s.send(customer.Email, "Payment reversed", "payment_reversed.html", data)
}

func (s *EmailService) SendLateFeeWaived(ctx context.Context, customer *models.Customer, amount int64) error {
	data := struct {
		Name   string
		Amount string
	}{
		Name:   customer.FullName,
		Amount: models.FormatRupiah(amount),
	}
	return s.send(customer.Email, "Late fee waived", "late_fee_waived.html", data)
}

func (s *EmailService) SendPaymentTransferred(ctx context.Context, customer *models.Customer, amount int64, date time.Time) error {
	data := struct {
		Name   string
		Amount string
		Date   string
	}{
		Name:   customer.FullName,
		Amount: models.FormatRupiah(amount),
		Date:   date.Format("2 January 2006"),
	}
	return s.send(customer.Email, "Payment transferred", "payment_transferred.html", data)
}

func (s *EmailService) send(to, subject, templateName string, data interface{}) error {
	if to == "" {
		return nil
	}

	body, err := s.renderTemplate(templateName, data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if _, err := s.resendClient.Emails.Send(params); err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return err
	}

	logger.Info(fmt.Sprintf("📧 [Email Sent] To: %s | Subject: %s", to, subject))
	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
