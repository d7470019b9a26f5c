package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimastery/academy/backend/certificates"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/services/email"
	"github.com/aimastery/academy/backend/utils"
)

type ProgressController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer email.Sender
	Logger logging.Logger
}

func NewProgressController(db *gorm.DB, cfg *config.Config, mailer email.Sender, logger logging.Logger) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Mailer: mailer, Logger: logger}
}

type CompletionResponse struct {
	Progress    models.Progress     `json:"progress"`
	NewBadges   []models.Badge      `json:"new_badges"`
	Certificate *models.Certificate `json:"certificate,omitempty"`
}

// CompleteLesson godoc
// @Summary Mark lesson completed
// @Description Idempotent; the first completion time is kept. Returns badges and a certificate earned by this completion
// @Tags progress
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse{data=CompletionResponse}
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/complete [post]
func (pc *ProgressController) CompleteLesson(c *fiber.Ctx) error {
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()
	user := currentUser(c)

	scope, err := loadLesson(ctx, pc.DB, user, lessonID)
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := requireAccess(user, scope.Module.RequiredTier); err != nil {
		return utils.Fail(c, err)
	}

	progress, err := markCompleted(ctx, pc.DB, user.ID, lessonID, time.Now())
	if err != nil {
		return utils.Fail(c, err)
	}

	resp := CompletionResponse{Progress: *progress}

	course := scope.Course
	cert, created, err := issueCertificate(ctx, pc.DB, pc.Mailer, pc.Cfg, user, course)
	switch {
	case errors.Is(err, certificates.ErrIncomplete):
	case err != nil:
		pc.Logger.Error("certificate evaluation failed", err, map[string]uint{"user_id": user.ID, "course_id": course.ID})
	case created:
		resp.Certificate = cert
	}

	// certificate first so the graduate badge can follow in the same request
	resp.NewBadges = awardBadges(ctx, pc.DB, pc.Logger, user.ID)

	return utils.OK(c, resp)
}

// markCompleted upserts the progress row, keeping an earlier CompletedAt.
func markCompleted(ctx context.Context, db *gorm.DB, userID, lessonID uint, now time.Time) (*models.Progress, error) {
	p := models.Progress{UserID: userID, LessonID: lessonID, Completed: true, CompletedAt: &now}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).Create(&p).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Progress{}).
			Where("user_id = ? AND lesson_id = ? AND completed = ?", userID, lessonID, false).
			Updates(map[string]interface{}{"completed": true, "completed_at": now}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UncompleteLesson godoc
// @Summary Clear lesson completion
// @Tags progress
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/complete [delete]
func (pc *ProgressController) UncompleteLesson(c *fiber.Ctx) error {
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()
	user := currentUser(c)
	if _, err := loadLesson(ctx, pc.DB, user, lessonID); err != nil {
		return utils.Fail(c, err)
	}

	if err := pc.DB.WithContext(ctx).Model(&models.Progress{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lessonID).
		Updates(map[string]interface{}{"completed": false, "completed_at": nil}).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.Message(c, "Lesson marked as not completed")
}

// courseProgress computes completion for every published course.
func courseProgress(ctx context.Context, db *gorm.DB, user *models.User) ([]CourseProgress, error) {
	var courses []models.Course
	if err := catalog(ctx, db).Find(&courses).Error; err != nil {
		return nil, err
	}
	sums, err := summarize(ctx, db, user, courses)
	if err != nil {
		return nil, err
	}
	out := make([]CourseProgress, 0, len(courses))
	for i := range courses {
		out = append(out, progressFromSummary(&courses[i], sums[i]))
	}
	return out, nil
}

func progressFromSummary(course *models.Course, s CourseSummary) CourseProgress {
	return newCourseProgress(course, certificates.Completion{
		Accessible: s.AccessibleLessons,
		Completed:  s.CompletedLessons,
	})
}

// GetProgress godoc
// @Summary Get user progress
// @Description Completed and accessible lesson counts per published course
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]CourseProgress}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	out, err := courseProgress(c.UserContext(), pc.DB, currentUser(c))
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, out)
}
