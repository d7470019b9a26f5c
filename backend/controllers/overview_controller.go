package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/utils"
)

type OverviewController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewOverviewController(db *gorm.DB, cfg *config.Config) *OverviewController {
	return &OverviewController{DB: db, Cfg: cfg}
}

type DashboardResponse struct {
	User             UserView             `json:"user"`
	Courses          []CourseProgress     `json:"courses"`
	LessonsCompleted int                  `json:"lessons_completed"`
	QuizzesPassed    int64                `json:"quizzes_passed"`
	Badges           []models.UserBadge   `json:"badges"`
	Certificates     []models.Certificate `json:"certificates"`
	// Recommendations are courses with accessible lessons the user has not started.
	Recommendations []CourseProgress `json:"recommendations"`
	// LockedLessons counts lessons above the user's tier across published courses.
	LockedLessons int `json:"locked_lessons"`
}

// GetDashboard godoc
// @Summary Learner dashboard
// @Description Progress per course, streak, tier, badges, certificates and recommendations
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=DashboardResponse}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (oc *OverviewController) GetDashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)
	db := oc.DB.WithContext(ctx)

	var courses []models.Course
	if err := catalog(ctx, oc.DB).Find(&courses).Error; err != nil {
		return utils.Fail(c, err)
	}
	sums, err := summarize(ctx, oc.DB, user, courses)
	if err != nil {
		return utils.Fail(c, err)
	}

	resp := DashboardResponse{
		User:            newUserView(user),
		Courses:         make([]CourseProgress, 0, len(courses)),
		Badges:          []models.UserBadge{},
		Certificates:    []models.Certificate{},
		Recommendations: []CourseProgress{},
	}
	for i, s := range sums {
		cp := progressFromSummary(&courses[i], s)
		resp.Courses = append(resp.Courses, cp)
		resp.LessonsCompleted += s.CompletedLessons
		resp.LockedLessons += s.TotalLessons - s.AccessibleLessons
		if s.CompletedLessons == 0 && s.AccessibleLessons > 0 {
			resp.Recommendations = append(resp.Recommendations, cp)
		}
	}
	if len(resp.Recommendations) > 3 {
		resp.Recommendations = resp.Recommendations[:3]
	}

	if err := db.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND passed = ?", user.ID, true).
		Distinct("quiz_id").
		Count(&resp.QuizzesPassed).Error; err != nil {
		return utils.Fail(c, err)
	}
	if err := db.Preload("Badge").
		Where("user_id = ?", user.ID).
		Order("awarded_at DESC").
		Find(&resp.Badges).Error; err != nil {
		return utils.Fail(c, err)
	}
	if err := db.Preload("Course").
		Where("user_id = ?", user.ID).
		Order("issued_at DESC").
		Find(&resp.Certificates).Error; err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, resp)
}
