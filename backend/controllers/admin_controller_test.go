package controllers_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimastery/academy/backend/controllers"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/testutil"
	"github.com/aimastery/academy/backend/utils"
)

func TestAdminRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	u := h.user("ada", models.TierMaster)

	resp := h.get("/api/admin/courses", u)
	assert.Equal(t, fiber.StatusForbidden, resp.Status)
	assert.Equal(t, "Forbidden - Admin access required", resp.Body.Message)

	assert.Equal(t, fiber.StatusUnauthorized, h.get("/api/admin/courses", nil).Status)
}

func TestAdminCatalogCRUD(t *testing.T) {
	h := newHarness(t)
	root := h.admin("root")

	// course
	resp := h.post("/api/admin/courses", fiber.Map{"title": "Intro to Agents", "description": "Tools and loops"}, root)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	var course models.Course
	resp.into(t, &course)
	assert.Equal(t, "intro-to-agents", course.Slug)
	assert.False(t, course.Published)

	assert.Equal(t, fiber.StatusConflict, h.post("/api/admin/courses", fiber.Map{"title": "Intro to agents!"}, root).Status)

	resp = h.post("/api/admin/courses", fiber.Map{"description": "no title"}, root)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.Status)
	assert.JSONEq(t, `{"title":"title is a required field"}`, string(resp.Body.Details))

	resp = h.put(fmt.Sprintf("/api/admin/courses/%d", course.ID), fiber.Map{"published": true}, root)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	resp.into(t, &course)
	assert.True(t, course.Published)
	assert.Equal(t, "Intro to Agents", course.Title)

	// module
	resp = h.post(fmt.Sprintf("/api/admin/courses/%d/modules", course.ID), fiber.Map{"title": "Advanced", "required_tier": "pro"}, root)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	var module models.Module
	resp.into(t, &module)
	assert.Equal(t, models.TierPro, module.RequiredTier)

	assert.Equal(t, fiber.StatusUnprocessableEntity,
		h.post(fmt.Sprintf("/api/admin/courses/%d/modules", course.ID), fiber.Map{"title": "x", "required_tier": "gold"}, root).Status)
	assert.Equal(t, fiber.StatusNotFound,
		h.post("/api/admin/courses/9999/modules", fiber.Map{"title": "x"}, root).Status)

	// lesson
	resp = h.post(fmt.Sprintf("/api/admin/modules/%d/lessons", module.ID), fiber.Map{"title": "Planning", "content": "Plan first.", "duration_minutes": 12}, root)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	var lesson models.Lesson
	resp.into(t, &lesson)
	assert.Equal(t, 12, lesson.DurationMinutes)

	resp = h.put(fmt.Sprintf("/api/admin/lessons/%d", lesson.ID), fiber.Map{"content": "Plan, then act."}, root)
	require.Equal(t, fiber.StatusOK, resp.Status)
	resp.into(t, &lesson)
	assert.Equal(t, "Plan, then act.", lesson.Content)

	// quiz
	resp = h.post(fmt.Sprintf("/api/admin/lessons/%d/quiz", lesson.ID), fiber.Map{"title": "Check", "passing_score": 80}, root)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	var quiz models.Quiz
	resp.into(t, &quiz)
	assert.Equal(t, 80, quiz.PassingScore)
	assert.Equal(t, fiber.StatusConflict, h.post(fmt.Sprintf("/api/admin/lessons/%d/quiz", lesson.ID), fiber.Map{}, root).Status)

	// question
	questions := fmt.Sprintf("/api/admin/quizzes/%d/questions", quiz.ID)
	resp = h.post(questions, fiber.Map{"prompt": "Pick b", "options": []string{"a", "b"}, "correct_index": 5}, root)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.Status)

	resp = h.post(questions, fiber.Map{"prompt": "Pick b", "options": []string{"a", "b"}, "correct_index": 1, "explanation": "b is b"}, root)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	assert.NotContains(t, string(resp.Raw), "correct_index")
	var question models.Question
	resp.into(t, &question)
	require.NoError(t, h.db.First(&question, question.ID).Error)
	assert.Equal(t, 1, question.CorrectIndex)

	resp = h.put(fmt.Sprintf("/api/admin/questions/%d", question.ID), fiber.Map{"correct_index": 2}, root)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.Status, "index past the stored options")

	resp = h.put(fmt.Sprintf("/api/admin/questions/%d", question.ID), fiber.Map{"options": []string{"b", "a"}, "correct_index": 0}, root)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	require.NoError(t, h.db.First(&question, question.ID).Error)
	assert.Equal(t, 0, question.CorrectIndex)
	assert.JSONEq(t, `["b","a"]`, string(question.Options))

	// tree
	resp = h.get("/api/admin/courses", root)
	require.Equal(t, fiber.StatusOK, resp.Status)
	var tree []models.Course
	resp.into(t, &tree)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Modules, 1)
	require.Len(t, tree[0].Modules[0].Lessons, 1)
	require.NotNil(t, tree[0].Modules[0].Lessons[0].Quiz)
	assert.Len(t, tree[0].Modules[0].Lessons[0].Quiz.Questions, 1)

	// deletes
	assert.Equal(t, fiber.StatusNoContent, h.delete(fmt.Sprintf("/api/admin/questions/%d", question.ID), root).Status)
	assert.Equal(t, fiber.StatusNotFound, h.delete(fmt.Sprintf("/api/admin/questions/%d", question.ID), root).Status)
	assert.Equal(t, fiber.StatusNoContent, h.delete(fmt.Sprintf("/api/admin/quizzes/%d", quiz.ID), root).Status)
	assert.Equal(t, fiber.StatusCreated, h.post(fmt.Sprintf("/api/admin/lessons/%d/quiz", lesson.ID), fiber.Map{}, root).Status,
		"a deleted quiz frees the lesson")
	assert.Equal(t, fiber.StatusNoContent, h.delete(fmt.Sprintf("/api/admin/courses/%d", course.ID), root).Status)
	assert.Equal(t, fiber.StatusNotFound, h.get("/api/courses/intro-to-agents", root).Status)
}

func TestAdminUsers(t *testing.T) {
	h := newHarness(t)
	root := h.admin("root")
	ada := h.user("ada", models.TierFree)
	h.user("adam", models.TierPro)
	h.user("grace", models.TierPro)

	resp := h.get("/api/admin/users?q=ADA", root)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var users []controllers.UserView
	resp.into(t, &users)
	assert.Len(t, users, 2)

	resp = h.get("/api/admin/users?tier=pro&page_size=1", root)
	require.Equal(t, fiber.StatusOK, resp.Status)
	resp.into(t, &users)
	assert.Len(t, users, 1)
	var meta utils.PaginationMeta
	require.NoError(t, jsonUnmarshal(resp.Body.Meta, &meta))
	assert.EqualValues(t, 2, meta.Total)
	assert.Equal(t, 1, meta.PageSize)

	assert.Equal(t, fiber.StatusBadRequest, h.get("/api/admin/users?tier=gold", root).Status)

	resp = h.put(fmt.Sprintf("/api/admin/users/%d/tier", ada.ID), fiber.Map{"tier": "master"}, root)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var view controllers.UserView
	resp.into(t, &view)
	assert.Equal(t, models.TierMaster, view.Tier)

	assert.Equal(t, fiber.StatusUnprocessableEntity, h.put(fmt.Sprintf("/api/admin/users/%d/tier", ada.ID), fiber.Map{"tier": "gold"}, root).Status)
	assert.Equal(t, fiber.StatusNotFound, h.put("/api/admin/users/9999/tier", fiber.Map{"tier": "pro"}, root).Status)
}

func TestPlatformAnalytics(t *testing.T) {
	h := newHarness(t)
	root := h.admin("root")
	ada := h.user("ada", models.TierPro)
	h.user("bob", models.TierFree)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	testutil.Complete(t, h.db, ada.ID, f.Lessons[models.TierFree][0])

	now := time.Now()
	require.NoError(t, h.db.Create(&[]models.Payment{
		{UserID: ada.ID, Tier: models.TierPro, Amount: 4950, Currency: "usd", Status: models.PaymentCompleted, PromoApplied: true, CompletedAt: &now},
		{UserID: ada.ID, Tier: models.TierStarter, Amount: 4900, Currency: "usd", Status: models.PaymentCompleted, CompletedAt: &now},
		{UserID: ada.ID, Tier: models.TierMaster, Amount: 19900, Currency: "usd", Status: models.PaymentPending},
	}).Error)
	require.NoError(t, h.db.Create(&models.LoginHistory{UserID: ada.ID, LoginTime: now}).Error)

	resp := h.get("/api/admin/analytics", root)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var out controllers.PlatformAnalytics
	resp.into(t, &out)

	assert.EqualValues(t, 3, out.Users)
	assert.EqualValues(t, 2, out.UsersByTier[models.TierFree])
	assert.EqualValues(t, 1, out.UsersByTier[models.TierPro])
	assert.EqualValues(t, 0, out.UsersByTier[models.TierMaster])
	assert.EqualValues(t, 3, out.NewUsers)
	assert.EqualValues(t, 1, out.ActiveUsers)
	assert.EqualValues(t, 2, out.CompletedPayments)
	assert.EqualValues(t, 4950+4900, out.Revenue)
	assert.Len(t, out.RevenueByTier, 2)
	assert.EqualValues(t, 1, out.PromoSales)
	assert.EqualValues(t, 1, out.LessonCompletions)
	assert.Equal(t, "usd", out.Currency)

	assert.Equal(t, fiber.StatusBadRequest, h.get("/api/admin/analytics?start_date=yesterday", root).Status)
	assert.Equal(t, fiber.StatusBadRequest, h.get("/api/admin/analytics?start_date=2024-02-01&end_date=2024-01-01", root).Status)

	resp = h.get("/api/admin/analytics?start_date=2020-01-01&end_date=2020-01-31", root)
	require.Equal(t, fiber.StatusOK, resp.Status)
	out = controllers.PlatformAnalytics{}
	resp.into(t, &out)
	assert.EqualValues(t, 0, out.NewUsers)
	assert.EqualValues(t, 3, out.Users)
}

func TestAdminPayments(t *testing.T) {
	h := newHarness(t)
	root := h.admin("root")
	ada := h.user("ada", models.TierFree)
	require.NoError(t, h.db.Create(&[]models.Payment{
		{UserID: ada.ID, Tier: models.TierPro, Amount: 9900, Currency: "usd", Status: models.PaymentCompleted},
		{UserID: ada.ID, Tier: models.TierPro, Amount: 9900, Currency: "usd", Status: models.PaymentFailed},
	}).Error)

	var list []models.Payment
	h.get("/api/admin/payments", root).into(t, &list)
	assert.Len(t, list, 2)

	h.get("/api/admin/payments?status=failed", root).into(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, models.PaymentFailed, list[0].Status)
}
