package controllers

import (
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/utils"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32,alphanum" example:"ada"`
	Email    *string `json:"email" validate:"omitempty,email,max=254" example:"ada@example.com"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns the authenticated user's account
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=UserView}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	return utils.OK(c, newUserView(currentUser(c)))
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Changes username and/or email
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} utils.SuccessResponse{data=UserView}
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var input UpdateProfileRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	user := currentUser(c)
	updates := map[string]interface{}{}
	if input.Username != nil && *input.Username != user.Username {
		updates["username"] = *input.Username
	}
	if input.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*input.Email))
		if normalized != user.Email {
			updates["email"] = normalized
		}
	}
	if len(updates) == 0 {
		return utils.OK(c, newUserView(user))
	}

	if err := uc.DB.WithContext(c.UserContext()).Model(user).Updates(updates).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return utils.Fail(c, apperr.Wrap(apperr.ErrConflict, "Username or email already taken"))
		}
		return utils.Fail(c, err)
	}
	return utils.OK(c, newUserView(user))
}

// ChangePassword godoc
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Param input body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/password [put]
func (uc *UserController) ChangePassword(c *fiber.Ctx) error {
	var input ChangePasswordRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	user := currentUser(c)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return utils.Unauthorized(c, "Current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := uc.DB.WithContext(c.UserContext()).Model(user).Update("password_hash", string(hashed)).Error; err != nil {
		return utils.Fail(c, err)
	}
	return utils.Message(c, "Password updated")
}

// DayActivity aggregates one calendar day (UTC).
type DayActivity struct {
	Date             string `json:"date"`
	Logins           int    `json:"logins"`
	LessonsCompleted int    `json:"lessons_completed"`
	QuizAttempts     int    `json:"quiz_attempts"`
}

// GetUserActivity godoc
// @Summary Get user activity
// @Description Per-day logins, lesson completions and quiz attempts
// @Tags users
// @Produce json
// @Param days query int false "Number of days to look back" default(7)
// @Success 200 {object} utils.SuccessResponse{data=[]DayActivity}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/activity [get]
func (uc *UserController) GetUserActivity(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days < 1 || days > 365 {
		return utils.BadRequest(c, "days must be between 1 and 365")
	}
	user := currentUser(c)
	since := time.Now().UTC().AddDate(0, 0, -days)
	db := uc.DB.WithContext(c.UserContext())

	var logins []time.Time
	if err := db.Model(&models.LoginHistory{}).
		Where("user_id = ? AND login_time >= ?", user.ID, since).
		Pluck("login_time", &logins).Error; err != nil {
		return utils.Fail(c, err)
	}
	var completions []time.Time
	if err := db.Model(&models.Progress{}).
		Where("user_id = ? AND completed = ? AND completed_at >= ?", user.ID, true, since).
		Pluck("completed_at", &completions).Error; err != nil {
		return utils.Fail(c, err)
	}
	var attempts []time.Time
	if err := db.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND created_at >= ?", user.ID, since).
		Pluck("created_at", &attempts).Error; err != nil {
		return utils.Fail(c, err)
	}

	return utils.OK(c, groupActivity(logins, completions, attempts), fiber.Map{"period_days": days})
}

// groupActivity buckets timestamps by UTC day, newest day first.
func groupActivity(logins, completions, attempts []time.Time) []DayActivity {
	byDay := map[string]*DayActivity{}
	bucket := func(t time.Time) *DayActivity {
		key := t.UTC().Format("2006-01-02")
		d, ok := byDay[key]
		if !ok {
			d = &DayActivity{Date: key}
			byDay[key] = d
		}
		return d
	}
	for _, t := range logins {
		bucket(t).Logins++
	}
	for _, t := range completions {
		bucket(t).LessonsCompleted++
	}
	for _, t := range attempts {
		bucket(t).QuizAttempts++
	}

	out := make([]DayActivity, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}
