package controllers_test

import (
	"encoding/json"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aimastery/academy/backend/controllers"
	"github.com/aimastery/academy/backend/models"
)

func jsonUnmarshal(raw json.RawMessage, out interface{}) error {
	return json.Unmarshal(raw, out)
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	u := h.user("ada", models.TierStarter)
	h.user("taken", models.TierFree)

	resp := h.get("/api/user/profile", u)
	require.Equal(t, fiber.StatusOK, resp.Status)
	var view controllers.UserView
	resp.into(t, &view)
	assert.Equal(t, u.ID, view.ID)
	assert.Equal(t, models.TierStarter, view.Tier)
	assert.NotContains(t, string(resp.Raw), "password")

	resp = h.put("/api/user/profile", fiber.Map{"username": "lovelace"}, u)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	resp.into(t, &view)
	assert.Equal(t, "lovelace", view.Username)
	assert.Equal(t, "ada@example.com", view.Email)

	resp = h.put("/api/user/profile", fiber.Map{"username": "taken"}, u)
	assert.Equal(t, fiber.StatusConflict, resp.Status)

	// tier is not writable through the profile
	resp = h.put("/api/user/profile", fiber.Map{"tier": "master"}, u)
	require.Equal(t, fiber.StatusOK, resp.Status)
	require.NoError(t, h.db.First(u, u.ID).Error)
	assert.Equal(t, models.TierStarter, u.Tier)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	u := h.user("ada", models.TierFree)

	resp := h.put("/api/user/password", fiber.Map{"current_password": "wrong-pass", "new_password": "brand new pass"}, u)
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status)

	resp = h.put("/api/user/password", fiber.Map{"current_password": "password123", "new_password": "password123"}, u)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.Status)

	resp = h.put("/api/user/password", fiber.Map{"current_password": "password123", "new_password": "brand new pass"}, u)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))

	require.NoError(t, h.db.First(u, u.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("brand new pass")))
}

func TestUserActivity(t *testing.T) {
	h := newHarness(t)
	u := h.user("ada", models.TierFree)

	resp := h.get("/api/user/activity?days=0", u)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	require.Equal(t, fiber.StatusOK, h.post("/api/auth/login", fiber.Map{"login": "ada", "password": "password123"}, nil).Status)

	resp = h.get("/api/user/activity?days=7", u)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var days []controllers.DayActivity
	resp.into(t, &days)
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].Logins)
	assert.JSONEq(t, `{"period_days":7}`, string(resp.Body.Meta))
}

func TestUnauthenticated(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/api/user/profile", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status)
	assert.False(t, resp.Body.Success)

	resp = h.request(fiber.MethodGet, "/api/user/profile", nil, nil, fiber.HeaderAuthorization, "Bearer garbage")
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status)
}
