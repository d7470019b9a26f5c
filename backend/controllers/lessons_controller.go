package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/services/tts"
	"github.com/aimastery/academy/backend/utils"
)

type LessonsController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Speech tts.Synthesizer
	Logger logging.Logger
}

func NewLessonsController(db *gorm.DB, cfg *config.Config, speech tts.Synthesizer, logger logging.Logger) *LessonsController {
	return &LessonsController{DB: db, Cfg: cfg, Speech: speech, Logger: logger}
}

// GetLesson godoc
// @Summary Get lesson
// @Description Lesson content with its quiz summary. Requires the module's tier
// @Tags lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse{data=LessonView}
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id} [get]
func (lc *LessonsController) GetLesson(c *fiber.Ctx) error {
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()
	user := currentUser(c)

	scope, err := loadLesson(ctx, lc.DB, user, lessonID)
	if err != nil {
		return utils.Fail(c, err)
	}
	lesson, module := scope.Lesson, scope.Module
	if err := requireAccess(user, module.RequiredTier); err != nil {
		return utils.Fail(c, err)
	}

	done, err := completedLessonSet(ctx, lc.DB, user.ID, []uint{lesson.ID})
	if err != nil {
		return utils.Fail(c, err)
	}
	view := newLessonView(lesson, module.RequiredTier, false, done[lesson.ID])
	if view.Quiz != nil {
		if err := lc.DB.WithContext(ctx).Model(&models.Question{}).
			Where("quiz_id = ?", view.Quiz.ID).
			Count(&view.Quiz.QuestionCount).Error; err != nil {
			return utils.Fail(c, err)
		}
	}
	return utils.OK(c, view)
}

// LessonAudio godoc
// @Summary Narrate lesson
// @Description Synthesizes the lesson content as MP3 audio. Requires the module's tier
// @Tags lessons
// @Produce audio/mpeg
// @Param id path int true "Lesson ID"
// @Success 200 {file} binary
// @Failure 403 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/audio [post]
func (lc *LessonsController) LessonAudio(c *fiber.Ctx) error {
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()

	user := currentUser(c)

	scope, err := loadLesson(ctx, lc.DB, user, lessonID)
	if err != nil {
		return utils.Fail(c, err)
	}
	lesson := scope.Lesson
	if err := requireAccess(user, scope.Module.RequiredTier); err != nil {
		return utils.Fail(c, err)
	}
	if lesson.Content == "" {
		return utils.BadRequest(c, "Lesson has no text to narrate")
	}

	audio, err := lc.Speech.Synthesize(ctx, lesson.Title+". "+lesson.Content)
	if err != nil {
		if errors.Is(err, tts.ErrNotConfigured) {
			return utils.Fail(c, apperr.Wrap(apperr.ErrUnavailable, "Audio narration is not available"))
		}
		lc.Logger.Error("speech synthesis failed", err, map[string]uint{"lesson_id": lesson.ID})
		return utils.Error(c, fiber.StatusBadGateway, fiber.NewError(fiber.StatusBadGateway, "Audio narration failed, try again later"))
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="lesson.mp3"`)
	return c.Send(audio)
}
