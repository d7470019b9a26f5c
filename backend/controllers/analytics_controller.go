package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/pricing"
	"github.com/aimastery/academy/backend/utils"
)

type AnalyticsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg}
}

type RevenueByTier struct {
	Tier    models.Tier `json:"tier"`
	Count   int64       `json:"count"`
	Revenue int64       `json:"revenue"`
}

type PlatformAnalytics struct {
	Users              int64                 `json:"users"`
	UsersByTier        map[models.Tier]int64 `json:"users_by_tier"`
	NewUsers           int64                 `json:"new_users"`
	ActiveUsers        int64                 `json:"active_users"`
	CompletedPayments  int64                 `json:"completed_payments"`
	Revenue            int64                 `json:"revenue"`
	Currency           string                `json:"currency"`
	RevenueByTier      []RevenueByTier       `json:"revenue_by_tier"`
	PromoSales         int64                 `json:"promo_sales"`
	LessonCompletions  int64                 `json:"lesson_completions"`
	QuizAttempts       int64                 `json:"quiz_attempts"`
	CertificatesIssued int64                 `json:"certificates_issued"`
	Posts              int64                 `json:"posts"`
	Period             fiber.Map             `json:"period"`
}

// GetPlatformAnalytics godoc
// @Summary Platform analytics
// @Description Users per tier, revenue, completions and certificates. new_users and active_users cover the period
// @Tags admin
// @Produce json
// @Param start_date query string false "YYYY-MM-DD, defaults to 30 days ago"
// @Param end_date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} utils.SuccessResponse{data=PlatformAnalytics}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/analytics [get]
func (ac *AnalyticsController) GetPlatformAnalytics(c *fiber.Ctx) error {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	var err error
	if raw := c.Query("start_date"); raw != "" {
		if start, err = time.Parse("2006-01-02", raw); err != nil {
			return utils.BadRequest(c, "Invalid start_date format. Use YYYY-MM-DD")
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if end, err = time.Parse("2006-01-02", raw); err != nil {
			return utils.BadRequest(c, "Invalid end_date format. Use YYYY-MM-DD")
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return utils.BadRequest(c, "end_date must not be before start_date")
	}

	ctx := c.UserContext()
	db := ac.DB.WithContext(ctx)
	out := PlatformAnalytics{
		UsersByTier:   map[models.Tier]int64{},
		RevenueByTier: []RevenueByTier{},
		Currency:      ac.Cfg.Currency,
		Period: fiber.Map{
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
		},
	}

	var tiers []struct {
		Tier  models.Tier
		Count int64
	}
	if err := db.Model(&models.User{}).Select("tier, COUNT(*) AS count").Group("tier").Scan(&tiers).Error; err != nil {
		return utils.Fail(c, err)
	}
	for _, t := range models.AllTiers {
		out.UsersByTier[t] = 0
	}
	for _, t := range tiers {
		out.UsersByTier[t.Tier] = t.Count
		out.Users += t.Count
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&out.NewUsers, db.Model(&models.User{}).Where("created_at BETWEEN ? AND ?", start, end)},
		{&out.ActiveUsers, db.Model(&models.LoginHistory{}).Where("login_time BETWEEN ? AND ?", start, end).Distinct("user_id")},
		{&out.LessonCompletions, db.Model(&models.Progress{}).Where("completed = ?", true)},
		{&out.QuizAttempts, db.Model(&models.QuizAttempt{})},
		{&out.CertificatesIssued, db.Model(&models.Certificate{})},
		{&out.Posts, db.Model(&models.Post{})},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			return utils.Fail(c, err)
		}
	}

	if err := db.Model(&models.Payment{}).
		Select("tier, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS revenue").
		Where("status = ?", models.PaymentCompleted).
		Group("tier").
		Scan(&out.RevenueByTier).Error; err != nil {
		return utils.Fail(c, err)
	}
	for _, r := range out.RevenueByTier {
		out.CompletedPayments += r.Count
		out.Revenue += r.Revenue
	}

	if out.PromoSales, err = pricing.CountPromoSales(ctx, ac.DB); err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, out)
}
