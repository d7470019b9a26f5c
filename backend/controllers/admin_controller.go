package controllers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/utils"
)

// AdminController manages the catalog, users and payments.
type AdminController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAdminController(db *gorm.DB, cfg *config.Config) *AdminController {
	return &AdminController{DB: db, Cfg: cfg}
}

type CourseInput struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Slug        *string `json:"slug" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	Published   *bool   `json:"published"`
	Order       *int    `json:"order"`
}

type ModuleInput struct {
	Title        *string      `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string      `json:"description"`
	RequiredTier *models.Tier `json:"required_tier" validate:"omitempty,tier"`
	Order        *int         `json:"order"`
}

type LessonInput struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content         *string `json:"content"`
	VideoURL        *string `json:"video_url" validate:"omitempty,url"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=0"`
	Order           *int    `json:"order"`
}

type QuizInput struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	PassingScore *int    `json:"passing_score" validate:"omitempty,min=0,max=100"`
}

type QuestionInput struct {
	Prompt       *string  `json:"prompt" validate:"omitempty,min=1"`
	Options      []string `json:"options" validate:"omitempty,min=2,max=10,dive,required"`
	CorrectIndex *int     `json:"correct_index" validate:"omitempty,min=0"`
	Explanation  *string  `json:"explanation"`
	Order        *int     `json:"order"`
}

type SetTierRequest struct {
	Tier models.Tier `json:"tier" validate:"required,tier" example:"master"`
}

func requireFields(fields map[string]bool) error {
	missing := map[string]string{}
	for name, present := range fields {
		if !present {
			missing[name] = name + " is a required field"
		}
	}
	if len(missing) > 0 {
		return apperr.WithDetails(apperr.ErrValidation, "Missing required fields", missing)
	}
	return nil
}

func (in CourseInput) updates() map[string]interface{} {
	u := map[string]interface{}{}
	if in.Title != nil {
		u["title"] = *in.Title
	}
	if in.Slug != nil {
		u["slug"] = slug.Make(*in.Slug)
	}
	if in.Description != nil {
		u["description"] = *in.Description
	}
	if in.ImageURL != nil {
		u["image_url"] = *in.ImageURL
	}
	if in.Published != nil {
		u["published"] = *in.Published
	}
	if in.Order != nil {
		u["position"] = *in.Order
	}
	return u
}

func (in ModuleInput) updates() map[string]interface{} {
	u := map[string]interface{}{}
	if in.Title != nil {
		u["title"] = *in.Title
	}
	if in.Description != nil {
		u["description"] = *in.Description
	}
	if in.RequiredTier != nil {
		u["required_tier"] = *in.RequiredTier
	}
	if in.Order != nil {
		u["position"] = *in.Order
	}
	return u
}

func (in LessonInput) updates() map[string]interface{} {
	u := map[string]interface{}{}
	if in.Title != nil {
		u["title"] = *in.Title
	}
	if in.Content != nil {
		u["content"] = *in.Content
	}
	if in.VideoURL != nil {
		u["video_url"] = *in.VideoURL
	}
	if in.DurationMinutes != nil {
		u["duration_minutes"] = *in.DurationMinutes
	}
	if in.Order != nil {
		u["position"] = *in.Order
	}
	return u
}

func (in QuizInput) updates() map[string]interface{} {
	u := map[string]interface{}{}
	if in.Title != nil {
		u["title"] = *in.Title
	}
	if in.PassingScore != nil {
		u["passing_score"] = *in.PassingScore
	}
	return u
}

// apply writes updates to the row identified by the :id param of model.
func (ac *AdminController) apply(c *fiber.Ctx, model interface{}, updates map[string]interface{}, what string) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	db := ac.DB.WithContext(c.UserContext())
	if err := db.First(model, id).Error; err != nil {
		return utils.Fail(c, notFound(err, what+" not found"))
	}
	if len(updates) > 0 {
		if err := db.Model(model).Updates(updates).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return utils.Fail(c, apperr.Wrap(apperr.ErrConflict, what+" already exists"))
			}
			return utils.Fail(c, err)
		}
	}
	if err := db.First(model, id).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, model)
}

func (ac *AdminController) remove(c *fiber.Ctx, model interface{}, what string) error {
	return ac.removeWith(c, ac.DB, model, what)
}

func (ac *AdminController) removeWith(c *fiber.Ctx, db *gorm.DB, model interface{}, what string) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	res := db.WithContext(c.UserContext()).Delete(model, id)
	if res.Error != nil {
		return utils.Fail(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, what+" not found")
	}
	return utils.NoContent(c)
}

// exists fails with 404 unless a row of model with id exists.
func (ac *AdminController) exists(c *fiber.Ctx, model interface{}, id uint, what string) error {
	var n int64
	if err := ac.DB.WithContext(c.UserContext()).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Wrap(apperr.ErrNotFound, what+" not found")
	}
	return nil
}

// ListCourses godoc
// @Summary List all courses
// @Description Includes unpublished courses and the full tree
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]models.Course}
// @Security ApiKeyAuth
// @Router /admin/courses [get]
func (ac *AdminController) ListCourses(c *fiber.Ctx) error {
	out := []models.Course{}
	if err := courseTree(ac.DB.WithContext(c.UserContext())).
		Preload("Modules.Lessons.Quiz.Questions", models.OrderedScope).
		Scopes(models.OrderedScope).
		Find(&out).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, out)
}

// CreateCourse godoc
// @Summary Create a course
// @Description The slug defaults to one derived from the title
// @Tags admin
// @Accept json
// @Produce json
// @Param input body CourseInput true "Course"
// @Success 201 {object} utils.SuccessResponse{data=models.Course}
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/courses [post]
func (ac *AdminController) CreateCourse(c *fiber.Ctx) error {
	var in CourseInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	if err := requireFields(map[string]bool{"title": in.Title != nil}); err != nil {
		return utils.Fail(c, err)
	}

	course := models.Course{Title: *in.Title}
	course.Slug = slug.Make(*in.Title)
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		course.Slug = slug.Make(*in.Slug)
	}
	if in.Description != nil {
		course.Description = *in.Description
	}
	if in.ImageURL != nil {
		course.ImageURL = *in.ImageURL
	}
	if in.Published != nil {
		course.Published = *in.Published
	}
	if in.Order != nil {
		course.Order = *in.Order
	}

	if err := ac.DB.WithContext(c.UserContext()).Create(&course).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return utils.Fail(c, apperr.Wrap(apperr.ErrConflict, "A course with this slug already exists"))
		}
		return utils.Fail(c, err)
	}
	return utils.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update a course
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body CourseInput true "Fields to change"
// @Success 200 {object} utils.SuccessResponse{data=models.Course}
// @Security ApiKeyAuth
// @Router /admin/courses/{id} [put]
func (ac *AdminController) UpdateCourse(c *fiber.Ctx) error {
	var in CourseInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	return ac.apply(c, &models.Course{}, in.updates(), "Course")
}

// DeleteCourse godoc
// @Summary Delete a course
// @Tags admin
// @Param id path int true "Course ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /admin/courses/{id} [delete]
func (ac *AdminController) DeleteCourse(c *fiber.Ctx) error {
	return ac.remove(c, &models.Course{}, "Course")
}

// CreateModule godoc
// @Summary Add a module to a course
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body ModuleInput true "Module"
// @Success 201 {object} utils.SuccessResponse{data=models.Module}
// @Security ApiKeyAuth
// @Router /admin/courses/{id}/modules [post]
func (ac *AdminController) CreateModule(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var in ModuleInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	if err := requireFields(map[string]bool{"title": in.Title != nil}); err != nil {
		return utils.Fail(c, err)
	}
	if err := ac.exists(c, &models.Course{}, courseID, "Course"); err != nil {
		return utils.Fail(c, err)
	}

	module := models.Module{CourseID: courseID, Title: *in.Title, RequiredTier: models.TierFree}
	if in.Description != nil {
		module.Description = *in.Description
	}
	if in.RequiredTier != nil {
		module.RequiredTier = *in.RequiredTier
	}
	if in.Order != nil {
		module.Order = *in.Order
	}
	if err := ac.DB.WithContext(c.UserContext()).Create(&module).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.Created(c, module)
}

// UpdateModule godoc
// @Summary Update a module
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param input body ModuleInput true "Fields to change"
// @Success 200 {object} utils.SuccessResponse{data=models.Module}
// @Security ApiKeyAuth
// @Router /admin/modules/{id} [put]
func (ac *AdminController) UpdateModule(c *fiber.Ctx) error {
	var in ModuleInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	return ac.apply(c, &models.Module{}, in.updates(), "Module")
}

// DeleteModule godoc
// @Summary Delete a module
// @Tags admin
// @Param id path int true "Module ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /admin/modules/{id} [delete]
func (ac *AdminController) DeleteModule(c *fiber.Ctx) error {
	return ac.remove(c, &models.Module{}, "Module")
}

// CreateLesson godoc
// @Summary Add a lesson to a module
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param input body LessonInput true "Lesson"
// @Success 201 {object} utils.SuccessResponse{data=models.Lesson}
// @Security ApiKeyAuth
// @Router /admin/modules/{id}/lessons [post]
func (ac *AdminController) CreateLesson(c *fiber.Ctx) error {
	moduleID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var in LessonInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	if err := requireFields(map[string]bool{"title": in.Title != nil}); err != nil {
		return utils.Fail(c, err)
	}
	if err := ac.exists(c, &models.Module{}, moduleID, "Module"); err != nil {
		return utils.Fail(c, err)
	}

	lesson := models.Lesson{ModuleID: moduleID, Title: *in.Title}
	if in.Content != nil {
		lesson.Content = *in.Content
	}
	if in.VideoURL != nil {
		lesson.VideoURL = *in.VideoURL
	}
	if in.DurationMinutes != nil {
		lesson.DurationMinutes = *in.DurationMinutes
	}
	if in.Order != nil {
		lesson.Order = *in.Order
	}
	if err := ac.DB.WithContext(c.UserContext()).Create(&lesson).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update a lesson
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param input body LessonInput true "Fields to change"
// @Success 200 {object} utils.SuccessResponse{data=models.Lesson}
// @Security ApiKeyAuth
// @Router /admin/lessons/{id} [put]
func (ac *AdminController) UpdateLesson(c *fiber.Ctx) error {
	var in LessonInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	return ac.apply(c, &models.Lesson{}, in.updates(), "Lesson")
}

// DeleteLesson godoc
// @Summary Delete a lesson
// @Tags admin
// @Param id path int true "Lesson ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /admin/lessons/{id} [delete]
func (ac *AdminController) DeleteLesson(c *fiber.Ctx) error {
	return ac.remove(c, &models.Lesson{}, "Lesson")
}

// CreateQuiz godoc
// @Summary Attach a quiz to a lesson
// @Description A lesson has at most one quiz
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param input body QuizInput true "Quiz"
// @Success 201 {object} utils.SuccessResponse{data=models.Quiz}
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/lessons/{id}/quiz [post]
func (ac *AdminController) CreateQuiz(c *fiber.Ctx) error {
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var in QuizInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	if err := ac.exists(c, &models.Lesson{}, lessonID, "Lesson"); err != nil {
		return utils.Fail(c, err)
	}

	quiz := models.Quiz{LessonID: lessonID, PassingScore: 70}
	if in.Title != nil {
		quiz.Title = *in.Title
	}
	if in.PassingScore != nil {
		quiz.PassingScore = *in.PassingScore
	}
	if err := ac.DB.WithContext(c.UserContext()).Create(&quiz).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return utils.Fail(c, apperr.Wrap(apperr.ErrConflict, "This lesson already has a quiz"))
		}
		return utils.Fail(c, err)
	}
	return utils.Created(c, quiz)
}

// UpdateQuiz godoc
// @Summary Update a quiz
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Quiz ID"
// @Param input body QuizInput true "Fields to change"
// @Success 200 {object} utils.SuccessResponse{data=models.Quiz}
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id} [put]
func (ac *AdminController) UpdateQuiz(c *fiber.Ctx) error {
	var in QuizInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	return ac.apply(c, &models.Quiz{}, in.updates(), "Quiz")
}

// DeleteQuiz godoc
// @Summary Delete a quiz
// @Tags admin
// @Param id path int true "Quiz ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id} [delete]
func (ac *AdminController) DeleteQuiz(c *fiber.Ctx) error {
	// hard delete frees the lesson's unique quiz slot
	return ac.removeWith(c, ac.DB.Unscoped(), &models.Quiz{}, "Quiz")
}

func validCorrectIndex(options []string, idx int) error {
	if idx < 0 || idx >= len(options) {
		return apperr.WithDetails(apperr.ErrValidation, "correct_index is out of range",
			map[string]string{"correct_index": "correct_index must point at one of the options"})
	}
	return nil
}

// CreateQuestion godoc
// @Summary Add a question to a quiz
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Quiz ID"
// @Param input body QuestionInput true "Question"
// @Success 201 {object} utils.SuccessResponse{data=models.Question}
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/quizzes/{id}/questions [post]
func (ac *AdminController) CreateQuestion(c *fiber.Ctx) error {
	quizID, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var in QuestionInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}
	if err := requireFields(map[string]bool{
		"prompt":        in.Prompt != nil,
		"options":       len(in.Options) > 0,
		"correct_index": in.CorrectIndex != nil,
	}); err != nil {
		return utils.Fail(c, err)
	}
	if err := validCorrectIndex(in.Options, *in.CorrectIndex); err != nil {
		return utils.Fail(c, err)
	}
	if err := ac.exists(c, &models.Quiz{}, quizID, "Quiz"); err != nil {
		return utils.Fail(c, err)
	}

	options, err := json.Marshal(in.Options)
	if err != nil {
		return utils.Fail(c, err)
	}
	q := models.Question{
		QuizID:       quizID,
		Prompt:       *in.Prompt,
		Options:      options,
		CorrectIndex: *in.CorrectIndex,
	}
	if in.Explanation != nil {
		q.Explanation = *in.Explanation
	}
	if in.Order != nil {
		q.Order = *in.Order
	}
	if err := ac.DB.WithContext(c.UserContext()).Create(&q).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.Created(c, q)
}

// UpdateQuestion godoc
// @Summary Update a question
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param input body QuestionInput true "Fields to change"
// @Success 200 {object} utils.SuccessResponse{data=models.Question}
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/questions/{id} [put]
func (ac *AdminController) UpdateQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var in QuestionInput
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}

	var q models.Question
	if err := ac.DB.WithContext(c.UserContext()).First(&q, id).Error; err != nil {
		return utils.Fail(c, notFound(err, "Question not found"))
	}

	options := in.Options
	if options == nil {
		if err := json.Unmarshal(q.Options, &options); err != nil {
			return utils.Fail(c, err)
		}
	}
	correct := q.CorrectIndex
	if in.CorrectIndex != nil {
		correct = *in.CorrectIndex
	}
	if err := validCorrectIndex(options, correct); err != nil {
		return utils.Fail(c, err)
	}

	updates := map[string]interface{}{"correct_index": correct}
	if in.Options != nil {
		raw, err := json.Marshal(in.Options)
		if err != nil {
			return utils.Fail(c, err)
		}
		updates["options"] = raw
	}
	if in.Prompt != nil {
		updates["prompt"] = *in.Prompt
	}
	if in.Explanation != nil {
		updates["explanation"] = *in.Explanation
	}
	if in.Order != nil {
		updates["position"] = *in.Order
	}
	return ac.apply(c, &models.Question{}, updates, "Question")
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags admin
// @Param id path int true "Question ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /admin/questions/{id} [delete]
func (ac *AdminController) DeleteQuestion(c *fiber.Ctx) error {
	return ac.remove(c, &models.Question{}, "Question")
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Username or email contains"
// @Param tier query string false "Tier filter"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.SuccessResponse{data=[]UserView,meta=utils.PaginationMeta}
// @Security ApiKeyAuth
// @Router /admin/users [get]
func (ac *AdminController) ListUsers(c *fiber.Ctx) error {
	page, pageSize := pagination(c)
	query := ac.DB.WithContext(c.UserContext()).Model(&models.User{})
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(username) LIKE ? OR LOWER(email) LIKE ?)", like, like)
	}
	if raw := c.Query("tier"); raw != "" {
		tier, ok := models.ParseTier(raw)
		if !ok {
			return utils.BadRequest(c, "Unknown tier "+raw)
		}
		query = query.Where("tier = ?", tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Fail(c, err)
	}
	var users []models.User
	if err := query.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return utils.Fail(c, err)
	}
	out := make([]UserView, 0, len(users))
	for i := range users {
		out = append(out, newUserView(&users[i]))
	}
	return utils.Paginate(c, out, total, page, pageSize)
}

// SetUserTier godoc
// @Summary Set a user's tier
// @Description Grants or revokes access without a payment
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param input body SetTierRequest true "Tier"
// @Success 200 {object} utils.SuccessResponse{data=UserView}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/users/{id}/tier [put]
func (ac *AdminController) SetUserTier(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var in SetTierRequest
	if ok, err := utils.ParseBody(c, &in); !ok {
		return err
	}

	db := ac.DB.WithContext(c.UserContext())
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return utils.Fail(c, notFound(err, "User not found"))
	}
	if err := db.Model(&user).Update("tier", in.Tier).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, newUserView(&user))
}

// ListPayments godoc
// @Summary List payments
// @Tags admin
// @Produce json
// @Param status query string false "pending, completed or failed"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.SuccessResponse{data=[]models.Payment,meta=utils.PaginationMeta}
// @Security ApiKeyAuth
// @Router /admin/payments [get]
func (ac *AdminController) ListPayments(c *fiber.Ctx) error {
	page, pageSize := pagination(c)
	query := ac.DB.WithContext(c.UserContext()).Model(&models.Payment{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Fail(c, err)
	}
	out := []models.Payment{}
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&out).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.Paginate(c, out, total, page, pageSize)
}
