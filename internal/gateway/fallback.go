package gateway

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bitway/bitway-api/internal/notify"
)

// LogSMS records messages instead of sending them. Used when no SMS provider is configured.
type LogSMS struct {
	logger *zap.Logger
}

func NewLogSMS(logger *zap.Logger) *LogSMS {
	return &LogSMS{logger: logger}
}

func (l *LogSMS) Send(_ context.Context, to, message string) error {
	l.logger.Info("sms not sent, provider not configured", zap.String("to", maskPhone(to)), zap.Int("length", len(message)))
	return nil
}

// LogEmail records emails instead of sending them. Used when no email provider is configured.
type LogEmail struct {
	logger *zap.Logger
}

func NewLogEmail(logger *zap.Logger) *LogEmail {
	return &LogEmail{logger: logger}
}

func (l *LogEmail) SendTemplate(_ context.Context, email notify.Email) error {
	l.logger.Info("email not sent, provider not configured",
		zap.String("subject", email.Subject),
		zap.String("template_id", email.TemplateID),
	)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
