package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrDisabled signals that outbound email is switched off by configuration.
var ErrDisabled = errors.New("mail: delivery disabled")

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer sends email messages. Implementations return ErrDisabled when
// delivery is turned off so callers can treat it as a soft failure.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NopMailer drops every message.
type NopMailer struct{}

func (NopMailer) Send(context.Context, Message) error {
	return ErrDisabled
}

// envelope validates sender and recipients shared by every transport.
func envelope(msg Message, defaultFrom string) (string, []string, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return "", nil, errors.New("mail: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(defaultFrom)
	}
	if from == "" {
		return "", nil, errors.New("mail: sender address is required")
	}

	if _, err := mail.ParseAddress(from); err != nil {
		return "", nil, fmt.Errorf("mail: invalid from address: %w", err)
	}
	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return "", nil, fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
		}
	}
	return from, recipients, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
