package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"bookbridge-backend/internal/logger"
)

// sendClient is the part of the SendGrid client the email service uses.
type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendGridEmailService struct {
	client    sendClient
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName string) EmailService {
	return newSendGridEmailService(sendgrid.NewSendClient(apiKey), fromEmail, fromName)
}

func newSendGridEmailService(client sendClient, fromEmail, fromName string) *sendGridEmailService {
	return &sendGridEmailService{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (s *sendGridEmailService) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, recipient, body+"\n\nThe BookBridge Team", "")

	logger.ExternalServiceCall("sendgrid", "Send", "to", toEmail, "subject", subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", err, "to", toEmail)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logEmailService struct{}

// NewLogEmailService returns an EmailService that only logs, for environments
// without a SendGrid key.
func NewLogEmailService() EmailService {
	return logEmailService{}
}

func (logEmailService) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	logger.Info("Email (not sent, delivery disabled)", "to", toEmail, "subject", subject)
	return nil
}
