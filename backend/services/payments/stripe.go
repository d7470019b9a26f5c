package payments

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/aimastery/academy/backend/models"
)

const (
	MetaPaymentID = "payment_id"
	MetaUserID    = "user_id"
	MetaTier      = "tier"
)

type StripeGateway struct {
	webhookSecret string
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if stripe.Key == "" {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(req.PaymentID), 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("AI Mastery Academy - " + productName(req.Tier) + " access"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata(MetaPaymentID, strconv.FormatUint(uint64(req.PaymentID), 10))
	params.AddMetadata(MetaUserID, strconv.FormatUint(uint64(req.UserID), 10))
	params.AddMetadata(MetaTier, string(req.Tier))

	s, err := session.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create stripe checkout session")
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	// an empty secret would accept payloads signed with an empty key
	if g.webhookSecret == "" {
		return nil, errors.Wrap(ErrInvalidSignature, "no webhook secret configured")
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSignature, err.Error())
	}

	out := &Event{ID: evt.ID, Type: EventType(evt.Type)}
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		if evt.Data == nil {
			return nil, errors.New("webhook event has no data")
		}
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return nil, errors.Wrap(err, "decode checkout session")
		}
		out.SessionID = cs.ID
		out.Metadata = cs.Metadata
		out.Paid = cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	}
	return out, nil
}

func productName(t models.Tier) string {
	name := string(t)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
