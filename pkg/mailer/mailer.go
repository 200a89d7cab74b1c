// Package mailer sends templated notifications. Idempotency is the caller's
// responsibility; a Mailer only reports whether a single send worked.
package mailer

import (
	"context"
	"time"
)

type Kind string

const (
	KindReminder      Kind = "reminder"
	KindExpiryWarning Kind = "expiry-warning"
)

type Payload struct {
	Description string
	UploadURL   string
	ExpiresAt   time.Time
	Deadline    *time.Time
}

type Mailer interface {
	Send(ctx context.Context, to string, kind Kind, payload Payload) error
}
