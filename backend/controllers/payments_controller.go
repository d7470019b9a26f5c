package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/pricing"
	"github.com/aimastery/academy/backend/services/email"
	"github.com/aimastery/academy/backend/services/payments"
	"github.com/aimastery/academy/backend/utils"
)

type PaymentsController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Pricing *pricing.Catalog
	// Gateway is nil when no payment provider is configured.
	Gateway payments.Gateway
	Mailer  email.Sender
	Logger  logging.Logger
}

func NewPaymentsController(db *gorm.DB, cfg *config.Config, gateway payments.Gateway, mailer email.Sender, logger logging.Logger) *PaymentsController {
	return &PaymentsController{
		DB:      db,
		Cfg:     cfg,
		Pricing: pricing.NewCatalog(cfg),
		Gateway: gateway,
		Mailer:  mailer,
		Logger:  logger,
	}
}

type CheckoutRequest struct {
	Tier models.Tier `json:"tier" validate:"required" example:"pro"`
}

type CheckoutResponse struct {
	PaymentID uint          `json:"payment_id"`
	SessionID string        `json:"session_id"`
	URL       string        `json:"url"`
	Quote     pricing.Quote `json:"quote"`
}

// GetPromo godoc
// @Summary Promotion status
// @Description Countdown, remaining spots and current price per tier
// @Tags payments
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=pricing.Status}
// @Router /promo [get]
func (pc *PaymentsController) GetPromo(c *fiber.Ctx) error {
	sold, err := pricing.CountPromoSales(c.UserContext(), pc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, pc.Pricing.Status(time.Now(), sold))
}

// Checkout godoc
// @Summary Start checkout
// @Description Opens a payment session for a tier above the caller's current tier
// @Tags payments
// @Accept json
// @Produce json
// @Param input body CheckoutRequest true "Tier to buy"
// @Success 201 {object} utils.SuccessResponse{data=CheckoutResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /checkout [post]
func (pc *PaymentsController) Checkout(c *fiber.Ctx) error {
	var input CheckoutRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}
	user := currentUser(c)

	if !input.Tier.Purchasable() {
		return utils.Fail(c, apperr.WithDetails(apperr.ErrBadRequest,
			"Choose one of the paid tiers",
			fiber.Map{"purchasable": []models.Tier{models.TierStarter, models.TierPro, models.TierMaster}}))
	}
	if models.HasAccess(user.Tier, input.Tier) {
		return utils.Fail(c, apperr.WithDetails(apperr.ErrBadRequest,
			"You already have access to this tier",
			fiber.Map{"current_tier": user.Tier, "requested_tier": input.Tier}))
	}
	if pc.Gateway == nil {
		return utils.Fail(c, apperr.Wrap(apperr.ErrUnavailable, "Payments are not available right now"))
	}

	ctx := c.UserContext()
	sold, err := pricing.CountPromoSales(ctx, pc.DB)
	if err != nil {
		return utils.Fail(c, err)
	}
	quote, err := pc.Pricing.Quote(input.Tier, time.Now(), sold)
	if err != nil {
		return utils.Fail(c, apperr.Wrap(apperr.ErrBadRequest, err.Error()))
	}

	payment := models.Payment{
		UserID:       user.ID,
		Tier:         input.Tier,
		Amount:       quote.Final,
		Currency:     quote.Currency,
		Status:       models.PaymentPending,
		PromoApplied: quote.PromoApplied,
	}
	if err := pc.DB.WithContext(ctx).Create(&payment).Error; err != nil {
		return utils.Fail(c, err)
	}

	frontend := strings.TrimRight(pc.Cfg.FrontendURL, "/")
	session, err := pc.Gateway.CreateCheckout(ctx, payments.CheckoutRequest{
		PaymentID:  payment.ID,
		UserID:     user.ID,
		Email:      user.Email,
		Tier:       input.Tier,
		Amount:     quote.Final,
		Currency:   quote.Currency,
		SuccessURL: frontend + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  frontend + "/pricing",
	})
	if err != nil {
		pc.Logger.Error("checkout session failed", err, map[string]uint{"payment_id": payment.ID})
		if err := pc.DB.WithContext(ctx).Model(&payment).Update("status", models.PaymentFailed).Error; err != nil {
			pc.Logger.Error("mark payment failed", err, map[string]uint{"payment_id": payment.ID})
		}
		return utils.Fail(c, apperr.Wrap(apperr.ErrUnavailable, "Could not start checkout, try again later"))
	}

	if err := pc.DB.WithContext(ctx).Model(&payment).Update("session_id", session.ID).Error; err != nil {
		return utils.Fail(c, err)
	}

	return utils.Created(c, CheckoutResponse{
		PaymentID: payment.ID,
		SessionID: session.ID,
		URL:       session.URL,
		Quote:     quote,
	})
}

// StripeWebhook godoc
// @Summary Payment provider webhook
// @Description Verifies the signature and applies checkout completion or expiry. Repeated deliveries are no-ops
// @Tags payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /webhooks/stripe [post]
func (pc *PaymentsController) StripeWebhook(c *fiber.Ctx) error {
	if pc.Gateway == nil {
		return utils.Fail(c, apperr.Wrap(apperr.ErrUnavailable, "Payments are not configured"))
	}

	event, err := pc.Gateway.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		pc.Logger.Warn("rejected webhook", err)
		return utils.BadRequest(c, "Invalid webhook payload or signature")
	}

	ctx := c.UserContext()
	switch event.Type {
	case payments.EventCheckoutCompleted:
		if !event.Paid {
			return utils.Message(c, "Payment not settled yet")
		}
		status, err := pc.completePayment(ctx, event)
		if err != nil {
			return utils.Fail(c, err)
		}
		return utils.Message(c, status)
	case payments.EventCheckoutExpired:
		payment, err := pc.findPayment(ctx, event)
		if err != nil {
			return utils.Fail(c, err)
		}
		if payment != nil {
			if err := pc.DB.WithContext(ctx).Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
				Update("status", models.PaymentFailed).Error; err != nil {
				return utils.Fail(c, err)
			}
		}
		return utils.Message(c, "expired")
	default:
		return utils.Message(c, "ignored")
	}
}

// findPayment looks up the payment by session id, then by the payment id in the
// session metadata. It returns nil when neither matches.
func (pc *PaymentsController) findPayment(ctx context.Context, event *payments.Event) (*models.Payment, error) {
	db := pc.DB.WithContext(ctx)
	var payment models.Payment
	err := db.Where("session_id = ?", event.SessionID).First(&payment).Error
	if err == nil {
		return &payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	id, convErr := strconv.ParseUint(event.Metadata[payments.MetaPaymentID], 10, 64)
	if convErr != nil || id == 0 {
		pc.Logger.Warn("webhook for unknown session", map[string]string{"session_id": event.SessionID})
		return nil, nil
	}
	err = db.First(&payment, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pc.Logger.Warn("webhook for unknown payment", map[string]string{"session_id": event.SessionID})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// completePayment marks the payment completed and upgrades the user. Only the
// first delivery changes anything.
func (pc *PaymentsController) completePayment(ctx context.Context, event *payments.Event) (string, error) {
	payment, err := pc.findPayment(ctx, event)
	if err != nil {
		return "", err
	}
	if payment == nil {
		return "unknown payment", nil
	}
	if payment.Status == models.PaymentCompleted {
		return "already processed", nil
	}

	var user models.User
	applied := false
	err = pc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"status":       models.PaymentCompleted,
			"completed_at": now,
		}
		if payment.SessionID == nil && event.SessionID != "" {
			updates["session_id"] = event.SessionID
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status <> ?", payment.ID, models.PaymentCompleted).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		payment.Status = models.PaymentCompleted
		payment.CompletedAt = &now

		if err := tx.First(&user, payment.UserID).Error; err != nil {
			return err
		}
		if models.HasAccess(user.Tier, payment.Tier) {
			return nil
		}
		user.Tier = payment.Tier
		return tx.Model(&user).Update("tier", payment.Tier).Error
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return "already processed", nil
	}

	pc.Mailer.SendMessages(email.Receipt(&user, payment))
	pc.Logger.Info("payment completed", map[string]interface{}{
		"payment_id": payment.ID,
		"user_id":    payment.UserID,
		"tier":       payment.Tier,
	})
	return "completed", nil
}

// ListPayments godoc
// @Summary My payments
// @Tags payments
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]models.Payment}
// @Security ApiKeyAuth
// @Router /payments [get]
func (pc *PaymentsController) ListPayments(c *fiber.Ctx) error {
	out := []models.Payment{}
	if err := pc.DB.WithContext(c.UserContext()).
		Where("user_id = ?", currentUser(c).ID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, out)
}
