package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/certificates"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/services/email"
	"github.com/aimastery/academy/backend/utils"
)

type CoursesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer email.Sender
	Logger logging.Logger
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, mailer email.Sender, logger logging.Logger) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Mailer: mailer, Logger: logger}
}

// courseTree preloads modules, lessons and quizzes in display order.
func courseTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Modules", models.OrderedScope).
		Preload("Modules.Lessons", models.OrderedScope).
		Preload("Modules.Lessons.Quiz")
}

// completedLessonSet returns which of lessonIDs the user has completed.
func completedLessonSet(ctx context.Context, db *gorm.DB, userID uint, lessonIDs []uint) (map[uint]bool, error) {
	done := map[uint]bool{}
	if len(lessonIDs) == 0 {
		return done, nil
	}
	var ids []uint
	if err := db.WithContext(ctx).Model(&models.Progress{}).
		Where("user_id = ? AND completed = ? AND lesson_id IN ?", userID, true, lessonIDs).
		Pluck("lesson_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

func lessonIDs(courses []models.Course) []uint {
	var ids []uint
	for _, course := range courses {
		for _, m := range course.Modules {
			for _, l := range m.Lessons {
				ids = append(ids, l.ID)
			}
		}
	}
	return ids
}

func summarize(ctx context.Context, db *gorm.DB, user *models.User, courses []models.Course) ([]CourseSummary, error) {
	done, err := completedLessonSet(ctx, db, user.ID, lessonIDs(courses))
	if err != nil {
		return nil, err
	}

	out := make([]CourseSummary, 0, len(courses))
	for _, course := range courses {
		s := CourseSummary{
			ID:          course.ID,
			Title:       course.Title,
			Slug:        course.Slug,
			Description: course.Description,
			ImageURL:    course.ImageURL,
		}
		for _, m := range course.Modules {
			accessible := user.CanAccess(m.RequiredTier)
			for _, l := range m.Lessons {
				s.TotalLessons++
				if accessible {
					s.AccessibleLessons++
					if done[l.ID] {
						s.CompletedLessons++
					}
				}
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// catalog loads published courses with their module tiers and lesson ids.
func catalog(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).
		Preload("Modules", models.OrderedScope).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "module_id")
		}).
		Where("published = ?", true).
		Scopes(models.OrderedScope)
}

// ListCourses godoc
// @Summary List courses
// @Description Published courses with the caller's accessible and completed lesson counts
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]CourseSummary}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var courses []models.Course
	if err := catalog(ctx, cc.DB).Find(&courses).Error; err != nil {
		return utils.Fail(c, err)
	}
	out, err := summarize(ctx, cc.DB, currentUser(c), courses)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, out)
}

// SearchCourses godoc
// @Summary Search courses
// @Description Matches title or description; tier keeps courses that have a module at that tier
// @Tags courses
// @Produce json
// @Param q query string false "Search text"
// @Param tier query string false "Module tier" Enums(free, starter, pro, master)
// @Success 200 {object} utils.SuccessResponse{data=[]CourseSummary}
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/search [get]
func (cc *CoursesController) SearchCourses(c *fiber.Ctx) error {
	ctx := c.UserContext()
	query := catalog(ctx, cc.DB)

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if raw := c.Query("tier"); raw != "" {
		tier, ok := models.ParseTier(raw)
		if !ok {
			return utils.BadRequest(c, "Unknown tier "+raw)
		}
		query = query.Where("id IN (?)",
			cc.DB.Model(&models.Module{}).Select("course_id").Where("required_tier = ?", tier))
	}

	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return utils.Fail(c, err)
	}
	out, err := summarize(ctx, cc.DB, currentUser(c), courses)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, out)
}

func (cc *CoursesController) findCourse(ctx context.Context, user *models.User, slug string, tree bool) (*models.Course, error) {
	query := cc.DB.WithContext(ctx).Where("slug = ?", slug)
	if !user.IsAdmin {
		query = query.Where("published = ?", true)
	}
	if tree {
		query = courseTree(query)
	}
	var course models.Course
	if err := query.First(&course).Error; err != nil {
		return nil, notFound(err, "Course not found")
	}
	return &course, nil
}

// GetCourse godoc
// @Summary Get course details
// @Description Full module and lesson tree; locked lessons carry no content
// @Tags courses
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} utils.SuccessResponse{data=CourseDetail}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug} [get]
func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)
	course, err := cc.findCourse(ctx, user, c.Params("slug"), true)
	if err != nil {
		return utils.Fail(c, err)
	}

	done, err := completedLessonSet(ctx, cc.DB, user.ID, lessonIDs([]models.Course{*course}))
	if err != nil {
		return utils.Fail(c, err)
	}

	detail := CourseDetail{
		ID:          course.ID,
		Title:       course.Title,
		Slug:        course.Slug,
		Description: course.Description,
		ImageURL:    course.ImageURL,
		Modules:     make([]ModuleView, 0, len(course.Modules)),
	}
	var completion certificates.Completion
	for _, m := range course.Modules {
		locked := !user.CanAccess(m.RequiredTier)
		mv := ModuleView{
			ID:           m.ID,
			Title:        m.Title,
			Description:  m.Description,
			RequiredTier: m.RequiredTier,
			Order:        m.Order,
			Locked:       locked,
			Lessons:      make([]LessonView, 0, len(m.Lessons)),
		}
		for i := range m.Lessons {
			l := &m.Lessons[i]
			mv.Lessons = append(mv.Lessons, newLessonView(l, m.RequiredTier, locked, done[l.ID]))
			if !locked {
				completion.Accessible++
				if done[l.ID] {
					completion.Completed++
				}
			}
		}
		detail.Modules = append(detail.Modules, mv)
	}
	detail.Progress = newCourseProgress(course, completion)

	if detail.Certificate, err = certificates.Find(ctx, cc.DB, user.ID, course.ID); err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, detail)
}

// RequestCertificate godoc
// @Summary Request a course certificate
// @Description Issues the certificate once every accessible lesson is completed; repeats return the same certificate
// @Tags certificates
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} utils.SuccessResponse{data=models.Certificate}
// @Success 201 {object} utils.SuccessResponse{data=models.Certificate}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{slug}/certificate [post]
func (cc *CoursesController) RequestCertificate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)
	course, err := cc.findCourse(ctx, user, c.Params("slug"), false)
	if err != nil {
		return utils.Fail(c, err)
	}

	cert, created, err := issueCertificate(ctx, cc.DB, cc.Mailer, cc.Cfg, user, course)
	if errors.Is(err, certificates.ErrIncomplete) {
		completion, cerr := certificates.CourseCompletion(ctx, cc.DB, user, course.ID)
		if cerr != nil {
			return utils.Fail(c, cerr)
		}
		return utils.Fail(c, apperr.WithDetails(apperr.ErrBadRequest,
			"Complete every lesson available on your tier first", completion))
	}
	if err != nil {
		return utils.Fail(c, err)
	}
	if created {
		return utils.Created(c, cert)
	}
	return utils.OK(c, cert)
}

// issueCertificate issues the course certificate and mails the user when it is new.
func issueCertificate(ctx context.Context, db *gorm.DB, mailer email.Sender, cfg *config.Config, user *models.User, course *models.Course) (*models.Certificate, bool, error) {
	cert, created, err := certificates.Issue(ctx, db, user, course.ID)
	if err != nil {
		return nil, false, err
	}
	cert.Course = *course
	cert.Course.Modules = nil
	if created {
		mailer.SendMessages(email.CertificateIssued(user, course, cert, cfg.FrontendURL))
	}
	return cert, created, nil
}
