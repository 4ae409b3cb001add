package mail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Message is a rendered outbound email.
type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

// Validate ensures the message can be handed to a provider.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	for _, to := range m.To {
		if strings.TrimSpace(to.Address) == "" {
			return fmt.Errorf("recipient address empty")
		}
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("message has no content")
	}
	return nil
}

// Sender delivers messages to a provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
