// Package pricing quotes tier prices and applies the launch promotion.
package pricing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/models"
)

var ErrNotPurchasable = errors.New("tier is not purchasable")

type Promo struct {
	Enabled         bool      `json:"enabled"`
	EndsAt          time.Time `json:"ends_at"`
	TotalSpots      int       `json:"spots_total"`
	DiscountPercent int       `json:"discount_percent"`
}

// SpotsRemaining never goes below zero, even when more promo sales were
// recorded than spots configured.
func (p Promo) SpotsRemaining(sold int64) int {
	left := int64(p.TotalSpots) - sold
	if left < 0 {
		return 0
	}
	return int(left)
}

func (p Promo) SecondsRemaining(now time.Time) int64 {
	if !now.Before(p.EndsAt) {
		return 0
	}
	return int64(p.EndsAt.Sub(now) / time.Second)
}

func (p Promo) Active(now time.Time, sold int64) bool {
	return p.Enabled && now.Before(p.EndsAt) && p.SpotsRemaining(sold) > 0
}

// Discount applies percent to base cents, rounding half up.
func Discount(base int64, percent int) int64 {
	if percent <= 0 {
		return base
	}
	if percent >= 100 {
		return 0
	}
	return (base*int64(100-percent) + 50) / 100
}

type Catalog struct {
	Currency string
	Prices   map[models.Tier]int64
	Promo    Promo
}

func NewCatalog(cfg *config.Config) *Catalog {
	return &Catalog{
		Currency: cfg.Currency,
		Prices: map[models.Tier]int64{
			models.TierStarter: cfg.PriceStarter,
			models.TierPro:     cfg.PricePro,
			models.TierMaster:  cfg.PriceMaster,
		},
		Promo: Promo{
			Enabled:         cfg.PromoEnabled,
			EndsAt:          cfg.PromoEndsAt,
			TotalSpots:      cfg.PromoTotalSpots,
			DiscountPercent: cfg.PromoDiscountPercent,
		},
	}
}

type Quote struct {
	Tier         models.Tier `json:"tier"`
	Base         int64       `json:"base"`
	Final        int64       `json:"final"`
	Currency     string      `json:"currency"`
	PromoApplied bool        `json:"promo_applied"`
}

func (c *Catalog) Quote(tier models.Tier, now time.Time, sold int64) (Quote, error) {
	base, ok := c.Prices[tier]
	if !ok || !tier.Purchasable() {
		return Quote{}, ErrNotPurchasable
	}
	q := Quote{Tier: tier, Base: base, Final: base, Currency: c.Currency}
	if c.Promo.Active(now, sold) {
		q.Final = Discount(base, c.Promo.DiscountPercent)
		q.PromoApplied = true
	}
	return q, nil
}

type Status struct {
	Active           bool                  `json:"active"`
	EndsAt           time.Time             `json:"ends_at"`
	SecondsRemaining int64                 `json:"seconds_remaining"`
	SpotsTotal       int                   `json:"spots_total"`
	SpotsRemaining   int                   `json:"spots_remaining"`
	DiscountPercent  int                   `json:"discount_percent"`
	Prices           map[models.Tier]Quote `json:"prices"`
}

func (c *Catalog) Status(now time.Time, sold int64) Status {
	s := Status{
		Active:           c.Promo.Active(now, sold),
		EndsAt:           c.Promo.EndsAt,
		SecondsRemaining: c.Promo.SecondsRemaining(now),
		SpotsTotal:       c.Promo.TotalSpots,
		SpotsRemaining:   c.Promo.SpotsRemaining(sold),
		DiscountPercent:  c.Promo.DiscountPercent,
		Prices:           make(map[models.Tier]Quote, len(c.Prices)),
	}
	if !c.Promo.Enabled {
		s.SecondsRemaining = 0
	}
	for tier := range c.Prices {
		if q, err := c.Quote(tier, now, sold); err == nil {
			s.Prices[tier] = q
		}
	}
	return s
}

// CountPromoSales counts completed payments that used the promotion.
func CountPromoSales(ctx context.Context, db *gorm.DB) (int64, error) {
	var sold int64
	err := db.WithContext(ctx).Model(&models.Payment{}).
		Where("status = ? AND promo_applied = ?", models.PaymentCompleted, true).
		Count(&sold).Error
	if err != nil {
		return 0, errors.Wrap(err, "count promo sales")
	}
	return sold, nil
}
