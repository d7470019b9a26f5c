package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/services/email"
	"github.com/aimastery/academy/backend/utils"
)

type AuthController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer email.Sender
	Logger logging.Logger
}

func NewAuthController(db *gorm.DB, cfg *config.Config, mailer email.Sender, logger logging.Logger) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Mailer: mailer, Logger: logger}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum" example:"ada"`
	Email    string `json:"email" validate:"required,email,max=254" example:"ada@example.com"`
	Password string `json:"password" validate:"required,min=8,max=72" example:"correct horse"`
}

type LoginRequest struct {
	// Login is a username or an email address.
	Login    string `json:"login" validate:"required" example:"ada"`
	Password string `json:"password" validate:"required" example:"correct horse"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates a free-tier account and returns a token
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "User registration data"
// @Success 201 {object} utils.SuccessResponse{data=AuthResponse}
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	var taken int64
	if err := ac.DB.WithContext(c.UserContext()).Model(&models.User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Count(&taken).Error; err != nil {
		return utils.Fail(c, err)
	}
	if taken > 0 {
		return utils.Fail(c, apperr.Wrap(apperr.ErrConflict, "Username or email already registered"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.Fail(c, err)
	}

	now := time.Now()
	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Tier:         models.TierFree,
		StreakDays:   1,
		LastActiveAt: &now,
	}
	if err := ac.DB.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return utils.Fail(c, apperr.Wrap(apperr.ErrConflict, "Username or email already registered"))
		}
		return utils.Fail(c, err)
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.Fail(c, err)
	}

	ac.Mailer.SendMessages(email.Welcome(&user, ac.Cfg.FrontendURL))

	return utils.Created(c, AuthResponse{Token: token, User: newUserView(&user)})
}

// Login godoc
// @Summary User login
// @Description Authenticates by username or email, records the login and updates the streak
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} utils.SuccessResponse{data=AuthResponse}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}
	login := strings.TrimSpace(input.Login)

	ctx := c.UserContext()
	var user models.User
	if err := ac.DB.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.Fail(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.Fail(c, err)
	}

	now := time.Now()
	user.TouchStreak(now)
	err = ac.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"streak_days":    user.StreakDays,
			"last_active_at": user.LastActiveAt,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&models.LoginHistory{UserID: user.ID, LoginTime: now}).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	newBadges := awardBadges(ctx, ac.DB, ac.Logger, user.ID)

	return utils.OK(c, AuthResponse{Token: token, User: newUserView(&user), NewBadges: newBadges})
}
