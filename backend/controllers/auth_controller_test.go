package controllers_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimastery/academy/backend/controllers"
	"github.com/aimastery/academy/backend/models"
)

func TestRegister(t *testing.T) {
	h := newHarness(t)

	resp := h.post("/api/auth/register", fiber.Map{
		"username": "ada",
		"email":    "Ada@Example.com",
		"password": "correct horse",
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))

	var out controllers.AuthResponse
	resp.into(t, &out)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "ada", out.User.Username)
	assert.Equal(t, "ada@example.com", out.User.Email)
	assert.Equal(t, models.TierFree, out.User.Tier)
	assert.Equal(t, 1, out.User.StreakDays)

	sent := h.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].To[0].Address)

	// the token works
	profile := h.request(fiber.MethodGet, "/api/user/profile", nil, nil, fiber.HeaderAuthorization, "Bearer "+out.Token)
	assert.Equal(t, fiber.StatusOK, profile.Status)

	t.Run("duplicate", func(t *testing.T) {
		resp := h.post("/api/auth/register", fiber.Map{
			"username": "ada2",
			"email":    "ada@example.com",
			"password": "correct horse",
		}, nil)
		assert.Equal(t, fiber.StatusConflict, resp.Status)
		assert.False(t, resp.Body.Success)
	})

	t.Run("validation", func(t *testing.T) {
		resp := h.post("/api/auth/register", fiber.Map{
			"username": "x",
			"email":    "not-an-email",
			"password": "short",
		}, nil)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.Status)

		var details map[string]string
		require.NoError(t, jsonUnmarshal(resp.Body.Details, &details))
		assert.Contains(t, details, "username")
		assert.Contains(t, details, "email")
		assert.Contains(t, details, "password")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := h.post("/api/auth/register", []byte("{"), nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	})
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	u := h.user("grace", models.TierPro)

	yesterday := time.Now().Add(-25 * time.Hour)
	require.NoError(t, h.db.Model(u).Updates(map[string]interface{}{
		"streak_days":    3,
		"last_active_at": yesterday,
	}).Error)

	tests := []struct {
		name   string
		login  string
		pass   string
		status int
	}{
		{"by email", "grace@example.com", "password123", fiber.StatusOK},
		{"by username", "grace", "password123", fiber.StatusOK},
		{"wrong password", "grace", "password124", fiber.StatusUnauthorized},
		{"unknown user", "nobody", "password123", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.post("/api/auth/login", fiber.Map{"login": tt.login, "password": tt.pass}, nil)
			assert.Equal(t, tt.status, resp.Status, string(resp.Raw))
		})
	}

	// the first successful login continued the streak, the second was the same day
	require.NoError(t, h.db.First(u, u.ID).Error)
	assert.Equal(t, 4, u.StreakDays)
	require.NotNil(t, u.LastActiveAt)
	assert.WithinDuration(t, time.Now(), *u.LastActiveAt, time.Minute)

	var logins int64
	require.NoError(t, h.db.Model(&models.LoginHistory{}).Where("user_id = ?", u.ID).Count(&logins).Error)
	assert.EqualValues(t, 2, logins)
}

func TestLoginResetsBrokenStreak(t *testing.T) {
	h := newHarness(t)
	u := h.user("linus", models.TierFree)
	require.NoError(t, h.db.Model(u).Updates(map[string]interface{}{
		"streak_days":    6,
		"last_active_at": time.Now().Add(-72 * time.Hour),
	}).Error)

	resp := h.post("/api/auth/login", fiber.Map{"login": "linus", "password": "password123"}, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)

	var out controllers.AuthResponse
	resp.into(t, &out)
	assert.Equal(t, 1, out.User.StreakDays)
}

func TestLoginAwardsStreakBadge(t *testing.T) {
	h := newHarness(t)
	u := h.user("streaker", models.TierFree)
	require.NoError(t, h.db.Model(u).Updates(map[string]interface{}{
		"streak_days":    6,
		"last_active_at": time.Now().Add(-25 * time.Hour),
	}).Error)

	resp := h.post("/api/auth/login", fiber.Map{"login": "streaker", "password": "password123"}, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)

	var out controllers.AuthResponse
	resp.into(t, &out)
	assert.Equal(t, 7, out.User.StreakDays)
	require.Len(t, out.NewBadges, 1)
	assert.Equal(t, "on_fire", out.NewBadges[0].Code)
}
