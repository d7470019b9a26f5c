package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/utils"
)

type AchievementsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAchievementsController(db *gorm.DB, cfg *config.Config) *AchievementsController {
	return &AchievementsController{DB: db, Cfg: cfg}
}

// ListBadges godoc
// @Summary List badges
// @Description Every badge with the caller's earned flag
// @Tags badges
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]BadgeView}
// @Security ApiKeyAuth
// @Router /badges [get]
func (ac *AchievementsController) ListBadges(c *fiber.Ctx) error {
	db := ac.DB.WithContext(c.UserContext())

	var all []models.Badge
	if err := db.Order("id ASC").Find(&all).Error; err != nil {
		return utils.Fail(c, err)
	}
	var owned []models.UserBadge
	if err := db.Where("user_id = ?", currentUser(c).ID).Find(&owned).Error; err != nil {
		return utils.Fail(c, err)
	}
	awardedAt := make(map[uint]time.Time, len(owned))
	for _, ub := range owned {
		awardedAt[ub.BadgeID] = ub.AwardedAt
	}

	out := make([]BadgeView, 0, len(all))
	for _, b := range all {
		v := BadgeView{Badge: b}
		if at, ok := awardedAt[b.ID]; ok {
			v.Earned = true
			v.AwardedAt = &at
		}
		out = append(out, v)
	}
	return utils.OK(c, out)
}

// MyBadges godoc
// @Summary List my badges
// @Tags badges
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]models.UserBadge}
// @Security ApiKeyAuth
// @Router /user/badges [get]
func (ac *AchievementsController) MyBadges(c *fiber.Ctx) error {
	out := []models.UserBadge{}
	if err := ac.DB.WithContext(c.UserContext()).
		Preload("Badge").
		Where("user_id = ?", currentUser(c).ID).
		Order("awarded_at DESC").
		Find(&out).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, out)
}

// MyCertificates godoc
// @Summary List my certificates
// @Tags certificates
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]models.Certificate}
// @Security ApiKeyAuth
// @Router /certificates [get]
func (ac *AchievementsController) MyCertificates(c *fiber.Ctx) error {
	out := []models.Certificate{}
	if err := ac.DB.WithContext(c.UserContext()).
		Preload("Course").
		Where("user_id = ?", currentUser(c).ID).
		Order("issued_at DESC").
		Find(&out).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, out)
}

type CertificateVerification struct {
	Code        string    `json:"code"`
	Valid       bool      `json:"valid"`
	IssuedAt    time.Time `json:"issued_at"`
	Username    string    `json:"username"`
	CourseTitle string    `json:"course_title"`
	CourseSlug  string    `json:"course_slug"`
}

// VerifyCertificate godoc
// @Summary Verify a certificate
// @Description Public lookup by verification code
// @Tags certificates
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} utils.SuccessResponse{data=CertificateVerification}
// @Failure 404 {object} utils.ErrorResponse
// @Router /certificates/verify/{code} [get]
func (ac *AchievementsController) VerifyCertificate(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))

	var cert models.Certificate
	if err := ac.DB.WithContext(c.UserContext()).
		Preload("Course").
		Where("code = ?", code).
		First(&cert).Error; err != nil {
		return utils.Fail(c, notFound(err, "Certificate not found"))
	}
	var user models.User
	if err := ac.DB.WithContext(c.UserContext()).Select("id", "username").First(&user, cert.UserID).Error; err != nil {
		return utils.Fail(c, notFound(err, "Certificate not found"))
	}

	return utils.OK(c, CertificateVerification{
		Code:        cert.Code,
		Valid:       true,
		IssuedAt:    cert.IssuedAt,
		Username:    user.Username,
		CourseTitle: cert.Course.Title,
		CourseSlug:  cert.Course.Slug,
	})
}
