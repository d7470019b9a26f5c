package controllers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/grading"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/utils"
)

type QuizController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger logging.Logger
}

func NewQuizController(db *gorm.DB, cfg *config.Config, logger logging.Logger) *QuizController {
	return &QuizController{DB: db, Cfg: cfg, Logger: logger}
}

type SubmitQuizRequest struct {
	// Answers holds one option index per question, in question order.
	Answers []int `json:"answers" validate:"required,max=200"`
}

type QuizAttemptResponse struct {
	Attempt   models.QuizAttempt    `json:"attempt"`
	Result    grading.Result        `json:"result"`
	Questions []QuestionExplanation `json:"explanations"`
	NewBadges []models.Badge        `json:"new_badges"`
}

type QuestionExplanation struct {
	QuestionID  uint   `json:"question_id"`
	Explanation string `json:"explanation,omitempty"`
}

type AttemptsResponse struct {
	Attempts  []models.QuizAttempt `json:"attempts"`
	BestScore int                  `json:"best_score"`
	Passed    bool                 `json:"passed"`
}

// loadQuiz returns the quiz with ordered questions after checking the
// caller's tier against the lesson's module.
func (qc *QuizController) loadQuiz(ctx context.Context, user *models.User, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := qc.DB.WithContext(ctx).
		Preload("Questions", models.OrderedScope).
		First(&quiz, id).Error; err != nil {
		return nil, notFound(err, "Quiz not found")
	}
	scope, err := loadLesson(ctx, qc.DB, user, quiz.LessonID)
	if err != nil {
		return nil, err
	}
	if err := requireAccess(user, scope.Module.RequiredTier); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// GetQuiz godoc
// @Summary Get quiz
// @Description Questions and options without correct answers. Requires the lesson's tier
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 200 {object} utils.SuccessResponse{data=QuizView}
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id} [get]
func (qc *QuizController) GetQuiz(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	quiz, err := qc.loadQuiz(c.UserContext(), currentUser(c), id)
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.OK(c, newQuizView(quiz))
}

// SubmitAttempt godoc
// @Summary Submit quiz answers
// @Description Grades the answers, stores the attempt and evaluates badges
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path int true "Quiz ID"
// @Param input body SubmitQuizRequest true "Answers"
// @Success 201 {object} utils.SuccessResponse{data=QuizAttemptResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/attempts [post]
func (qc *QuizController) SubmitAttempt(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var input SubmitQuizRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	ctx := c.UserContext()
	user := currentUser(c)
	quiz, err := qc.loadQuiz(ctx, user, id)
	if err != nil {
		return utils.Fail(c, err)
	}

	result, err := grading.Score(quiz.Questions, input.Answers, quiz.PassingScore)
	if errors.Is(err, grading.ErrNoQuestions) {
		return utils.BadRequest(c, "Quiz has no questions yet")
	}
	if err != nil {
		return utils.Fail(c, err)
	}

	answers := make([]int, len(result.Questions))
	for i, q := range result.Questions {
		answers[i] = q.Answer
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return utils.Fail(c, err)
	}

	attempt := models.QuizAttempt{
		UserID:  user.ID,
		QuizID:  quiz.ID,
		Score:   result.Score,
		Passed:  result.Passed,
		Correct: result.Correct,
		Total:   result.Total,
		Answers: raw,
	}
	if err := qc.DB.WithContext(ctx).Create(&attempt).Error; err != nil {
		return utils.Fail(c, err)
	}

	explanations := make([]QuestionExplanation, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		explanations = append(explanations, QuestionExplanation{QuestionID: q.ID, Explanation: q.Explanation})
	}

	return utils.Created(c, QuizAttemptResponse{
		Attempt:   attempt,
		Result:    result,
		Questions: explanations,
		NewBadges: awardBadges(ctx, qc.DB, qc.Logger, user.ID),
	})
}

// ListAttempts godoc
// @Summary List my quiz attempts
// @Description Newest first, with the best score
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 200 {object} utils.SuccessResponse{data=AttemptsResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/attempts [get]
func (qc *QuizController) ListAttempts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	ctx := c.UserContext()
	user := currentUser(c)
	if _, err := qc.loadQuiz(ctx, user, id); err != nil {
		return utils.Fail(c, err)
	}

	resp := AttemptsResponse{Attempts: []models.QuizAttempt{}}
	if err := qc.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", user.ID, id).
		Order("created_at DESC").Order("id DESC").
		Find(&resp.Attempts).Error; err != nil {
		return utils.Fail(c, err)
	}
	for _, a := range resp.Attempts {
		if a.Score > resp.BestScore {
			resp.BestScore = a.Score
		}
		resp.Passed = resp.Passed || a.Passed
	}
	return utils.OK(c, resp)
}
