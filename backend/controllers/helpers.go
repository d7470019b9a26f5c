package controllers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/badges"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/middleware"
	"github.com/aimastery/academy/backend/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Wrap(apperr.ErrBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func pagination(c *fiber.Ctx) (page, pageSize int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize = c.QueryInt("page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func currentUser(c *fiber.Ctx) *models.User {
	return middleware.CurrentUser(c)
}

// awardBadges evaluates badges after an activity. A failure is logged and
// never fails the request that triggered it.
func awardBadges(ctx context.Context, db *gorm.DB, logger logging.Logger, userID uint) []models.Badge {
	awarded, err := badges.Award(ctx, db, userID)
	if err != nil {
		if logger != nil {
			logger.Error("badge evaluation failed", err, map[string]uint{"user_id": userID})
		}
		return []models.Badge{}
	}
	if awarded == nil {
		return []models.Badge{}
	}
	return awarded
}

// lessonScope is a lesson together with the module and course it belongs to.
type lessonScope struct {
	Lesson *models.Lesson
	Module *models.Module
	Course *models.Course
}

// loadLesson returns the lesson with its module, quiz and course. Lessons whose
// module or course is deleted, or whose course is unpublished, are not found
// for non-admins.
func loadLesson(ctx context.Context, db *gorm.DB, user *models.User, id uint) (*lessonScope, error) {
	db = db.WithContext(ctx)
	var lesson models.Lesson
	if err := db.Preload("Quiz").First(&lesson, id).Error; err != nil {
		return nil, notFound(err, "Lesson not found")
	}
	var module models.Module
	if err := db.First(&module, lesson.ModuleID).Error; err != nil {
		return nil, notFound(err, "Lesson not found")
	}
	var course models.Course
	if err := db.First(&course, module.CourseID).Error; err != nil {
		return nil, notFound(err, "Lesson not found")
	}
	if !course.Published && !user.IsAdmin {
		return nil, apperr.Wrap(apperr.ErrNotFound, "Lesson not found")
	}
	return &lessonScope{Lesson: &lesson, Module: &module, Course: &course}, nil
}

// requireAccess fails with 403 and the required tier in details.
func requireAccess(user *models.User, required models.Tier) error {
	if user.CanAccess(required) {
		return nil
	}
	return apperr.WithDetails(apperr.ErrForbidden,
		"Upgrade to "+string(required)+" to access this content",
		fiber.Map{"required_tier": required, "current_tier": user.Tier})
}

// notFound replaces a missing-row error with a caller-facing 404 and passes
// other errors through.
func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, message)
	}
	return err
}
