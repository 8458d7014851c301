package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string
	From    string // falls back to the sender's default, e.g. "RepCount <digest@repcount.app>"
	Subject string
	HTML    string
	Text    string // plain-text alternative
	ReplyTo string
	Tags    map[string]string // provider-side labels, e.g. gym ID
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers email through an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
