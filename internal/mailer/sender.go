package mailer

import (
	"context"
	"net/url"
	"strings"

	"github.com/lettercast/campaign-engine/internal/domain"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers email through a provider. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ValidateAddress performs basic syntactic validation of an email address.
func ValidateAddress(email string) error {
	email = strings.TrimSpace(email)
	if len(email) < 3 || len(email) > 254 {
		return domain.ErrInvalidEmail
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return domain.ErrInvalidEmail
	}
	local, host := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return domain.ErrInvalidEmail
	}
	if len(host) == 0 || len(host) > 253 || !strings.Contains(host, ".") {
		return domain.ErrInvalidEmail
	}
	if _, err := url.Parse("mailto:" + email); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}
