// Package payments opens checkout sessions and verifies provider webhooks.
package payments

import (
	"context"

	"github.com/pkg/errors"

	"github.com/aimastery/academy/backend/models"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNotConfigured    = errors.New("payments are not configured")
)

type CheckoutRequest struct {
	PaymentID  uint
	UserID     uint
	Email      string
	Tier       models.Tier
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.session.completed"
	EventCheckoutExpired   EventType = "checkout.session.expired"
)

// Event is the provider-neutral part of a webhook we act on.
type Event struct {
	ID        string
	Type      EventType
	SessionID string
	Metadata  map[string]string
	Paid      bool
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
