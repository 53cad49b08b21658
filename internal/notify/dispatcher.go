package notify

import (
	"context"
	"fmt"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/observability"
)

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// EmailSender delivers a templated email.
type EmailSender interface {
	SendTemplate(ctx context.Context, email Email) error
}

// Email is the gateway-facing view of an email message.
type Email struct {
	To         string
	Name       string
	Subject    string
	Body       string
	TemplateID string
	Variables  map[string]string
}

// Dispatcher routes messages to the gateway for their channel.
type Dispatcher struct {
	sms   SMSSender
	email EmailSender
}

func NewDispatcher(sms SMSSender, email EmailSender) *Dispatcher {
	return &Dispatcher{sms: sms, email: email}
}

// Dispatch delivers msg synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		observability.IncrementNotification(msg.Channel, "invalid")
		return err
	}

	var err error
	switch msg.Channel {
	case domain.NotifyChannelSMS:
		if d.sms == nil {
			return fmt.Errorf("%w: sms gateway not configured", ErrInvalidMessage)
		}
		err = d.sms.Send(ctx, msg.To, msg.Body)
	case domain.NotifyChannelEmail:
		if d.email == nil {
			return fmt.Errorf("%w: email gateway not configured", ErrInvalidMessage)
		}
		err = d.email.SendTemplate(ctx, Email{
			To:         msg.To,
			Name:       msg.Name,
			Subject:    msg.Subject,
			Body:       msg.Body,
			TemplateID: msg.TemplateID,
			Variables:  msg.Variables,
		})
	}
	if err != nil {
		observability.IncrementNotification(msg.Channel, "failed")
		return fmt.Errorf("dispatch %s notification: %w", msg.Channel, err)
	}
	observability.IncrementNotification(msg.Channel, "sent")
	return nil
}
