package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
)

// ErrInvalidMessage marks a message that can never be delivered and must not be retried.
var ErrInvalidMessage = errors.New("invalid notification message")

// Message is one outbound SMS or email.
type Message struct {
	Channel    string            `json:"channel"`
	To         string            `json:"to"`
	Name       string            `json:"name,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
}

// SMS builds a text message.
func SMS(to, body string) Message {
	return Message{Channel: domain.NotifyChannelSMS, To: to, Body: body}
}

// TemplateEmail builds a templated email.
func TemplateEmail(to, name, subject, templateID string, vars map[string]string) Message {
	return Message{
		Channel:    domain.NotifyChannelEmail,
		To:         to,
		Name:       name,
		Subject:    subject,
		TemplateID: templateID,
		Variables:  vars,
	}
}

// RoutingKey is the broker routing key for the message's channel.
func (m Message) RoutingKey() string {
	return "notify." + m.Channel
}

// Validate rejects messages missing the fields their channel needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	switch m.Channel {
	case domain.NotifyChannelSMS:
		if strings.TrimSpace(m.Body) == "" {
			return fmt.Errorf("%w: sms body is required", ErrInvalidMessage)
		}
	case domain.NotifyChannelEmail:
		if m.TemplateID == "" && m.Body == "" {
			return fmt.Errorf("%w: email needs a template or body", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidMessage, m.Channel)
	}
	return nil
}
