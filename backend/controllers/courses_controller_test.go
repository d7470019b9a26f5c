package controllers_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimastery/academy/backend/controllers"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/services/tts"
	"github.com/aimastery/academy/backend/testutil"
)

func badgeCodes(bs []models.Badge) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Code)
	}
	return out
}

func TestListCourses(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 2)
	hidden := models.Course{Title: "Draft", Slug: "draft"}
	require.NoError(t, h.db.Create(&hidden).Error)

	free := h.user("free", models.TierFree)
	testutil.Complete(t, h.db, free.ID, f.Lessons[models.TierFree][0])

	resp := h.get("/api/courses", free)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var out []controllers.CourseSummary
	resp.into(t, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "go", out[0].Slug)
	assert.Equal(t, 8, out[0].TotalLessons)
	assert.Equal(t, 2, out[0].AccessibleLessons)
	assert.Equal(t, 1, out[0].CompletedLessons)

	pro := h.user("pro", models.TierPro)
	h.get("/api/courses", pro).into(t, &out)
	assert.Equal(t, 6, out[0].AccessibleLessons)
	assert.Equal(t, 0, out[0].CompletedLessons)
}

func TestSearchCourses(t *testing.T) {
	h := newHarness(t)
	testutil.CreateCourse(t, h.db, "golang", 1)
	testutil.CreateCourse(t, h.db, "rust", 1)
	onlyFree := models.Course{Title: "Intro", Slug: "intro", Description: "Prompting for everyone", Published: true}
	require.NoError(t, h.db.Create(&onlyFree).Error)
	require.NoError(t, h.db.Create(&models.Module{CourseID: onlyFree.ID, Title: "m", RequiredTier: models.TierFree}).Error)
	u := h.user("ada", models.TierFree)

	tests := []struct {
		query string
		want  []string
	}{
		{"?q=RUST", []string{"rust"}},
		{"?q=prompting", []string{"intro"}},
		{"?tier=master", []string{"golang", "rust"}},
		{"?q=course&tier=free", []string{"golang", "rust"}},
		{"", []string{"golang", "rust", "intro"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := h.get("/api/courses/search"+tt.query, u)
			require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
			var out []controllers.CourseSummary
			resp.into(t, &out)
			var slugs []string
			for _, c := range out {
				slugs = append(slugs, c.Slug)
			}
			assert.ElementsMatch(t, tt.want, slugs)
		})
	}

	resp := h.get("/api/courses/search?tier=platinum", u)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
}

func TestGetCourseLocksModules(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	starter := h.user("starter", models.TierStarter)

	resp := h.get("/api/courses/go", starter)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var detail controllers.CourseDetail
	resp.into(t, &detail)

	require.Len(t, detail.Modules, 4)
	for i, tier := range models.AllTiers {
		m := detail.Modules[i]
		assert.Equal(t, tier, m.RequiredTier)
		locked := !models.HasAccess(models.TierStarter, tier)
		assert.Equal(t, locked, m.Locked, tier)
		require.Len(t, m.Lessons, 1)
		assert.Equal(t, locked, m.Lessons[0].Locked)
		if locked {
			assert.Empty(t, m.Lessons[0].Content)
		} else {
			assert.Equal(t, "content", m.Lessons[0].Content)
		}
	}
	require.NotNil(t, detail.Modules[0].Lessons[0].Quiz)
	assert.Equal(t, f.Lessons[models.TierFree][0].ID, detail.Modules[0].Lessons[0].ID)
	assert.Equal(t, 2, detail.Progress.Accessible)
	assert.Nil(t, detail.Certificate)

	assert.Equal(t, fiber.StatusNotFound, h.get("/api/courses/missing", starter).Status)
}

func TestGetCourseUnpublished(t *testing.T) {
	h := newHarness(t)
	draft := models.Course{Title: "Draft", Slug: "draft"}
	require.NoError(t, h.db.Create(&draft).Error)

	assert.Equal(t, fiber.StatusNotFound, h.get("/api/courses/draft", h.user("ada", models.TierMaster)).Status)
	assert.Equal(t, fiber.StatusOK, h.get("/api/courses/draft", h.admin("root")).Status)
}

func TestLessonsOfHiddenCourses(t *testing.T) {
	hide := map[string]func(h *harness, f *testutil.CourseFixture){
		"draft": func(h *harness, f *testutil.CourseFixture) {
			require.NoError(h.t, h.db.Model(&f.Course).Update("published", false).Error)
		},
		"deleted": func(h *harness, f *testutil.CourseFixture) {
			resp := h.delete(fmt.Sprintf("/api/admin/courses/%d", f.Course.ID), h.admin("root"))
			require.Equal(h.t, fiber.StatusNoContent, resp.Status)
		},
	}
	for name, apply := range hide {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			f := testutil.CreateCourse(t, h.db, "go", 1)
			u := h.user("ada", models.TierMaster)
			lesson := f.Lessons[models.TierFree][0]
			var quiz models.Quiz
			require.NoError(t, h.db.Where("lesson_id = ?", lesson.ID).First(&quiz).Error)

			apply(h, f)

			base := fmt.Sprintf("/api/lessons/%d", lesson.ID)
			quizPath := fmt.Sprintf("/api/quizzes/%d", quiz.ID)
			for _, r := range []struct {
				method, path string
				body         interface{}
			}{
				{fiber.MethodGet, base, nil},
				{fiber.MethodPost, base + "/audio", nil},
				{fiber.MethodPost, base + "/complete", nil},
				{fiber.MethodDelete, base + "/complete", nil},
				{fiber.MethodGet, quizPath, nil},
				{fiber.MethodGet, quizPath + "/attempts", nil},
				{fiber.MethodPost, quizPath + "/attempts", map[string][]int{"answers": {0, 1, 2}}},
			} {
				resp := h.request(r.method, r.path, r.body, u)
				assert.Equal(t, fiber.StatusNotFound, resp.Status, "%s %s: %s", r.method, r.path, resp.Raw)
			}

			var rows int64
			require.NoError(t, h.db.Model(&models.Progress{}).Count(&rows).Error)
			assert.Zero(t, rows)
			require.NoError(t, h.db.Model(&models.QuizAttempt{}).Count(&rows).Error)
			assert.Zero(t, rows)
			require.NoError(t, h.db.Model(&models.Certificate{}).Count(&rows).Error)
			assert.Zero(t, rows)
			require.NoError(t, h.db.Model(&models.UserBadge{}).Count(&rows).Error)
			assert.Zero(t, rows)
		})
	}
}

func TestAdminSeesDraftLessons(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	require.NoError(t, h.db.Model(&f.Course).Update("published", false).Error)

	resp := h.get(fmt.Sprintf("/api/lessons/%d", f.Lessons[models.TierMaster][0].ID), h.admin("root"))
	assert.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
}

func TestGetLesson(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	free := h.user("free", models.TierFree)

	resp := h.get(fmt.Sprintf("/api/lessons/%d", f.Lessons[models.TierFree][0].ID), free)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var view controllers.LessonView
	resp.into(t, &view)
	assert.Equal(t, "content", view.Content)
	assert.False(t, view.Locked)
	require.NotNil(t, view.Quiz)
	assert.EqualValues(t, 3, view.Quiz.QuestionCount)

	resp = h.get(fmt.Sprintf("/api/lessons/%d", f.Lessons[models.TierPro][0].ID), free)
	require.Equal(t, fiber.StatusForbidden, resp.Status)
	assert.JSONEq(t, `{"required_tier":"pro","current_tier":"free"}`, string(resp.Body.Details))

	// admins bypass tiers
	assert.Equal(t, fiber.StatusOK, h.get(fmt.Sprintf("/api/lessons/%d", f.Lessons[models.TierMaster][0].ID), h.admin("root")).Status)

	assert.Equal(t, fiber.StatusNotFound, h.get("/api/lessons/9999", free).Status)
	assert.Equal(t, fiber.StatusBadRequest, h.get("/api/lessons/abc", free).Status)
}

func TestTierChangeUnlocksImmediately(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	u := h.user("ada", models.TierFree)
	path := fmt.Sprintf("/api/lessons/%d", f.Lessons[models.TierPro][0].ID)

	assert.Equal(t, fiber.StatusForbidden, h.get(path, u).Status)
	require.NoError(t, h.db.Model(u).Update("tier", models.TierPro).Error)
	assert.Equal(t, fiber.StatusOK, h.get(path, u).Status)
}

func TestCompleteLessonAwardsBadgesAndCertificate(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 2)
	u := h.user("free", models.TierFree)
	first, second := f.Lessons[models.TierFree][0], f.Lessons[models.TierFree][1]

	resp := h.post(fmt.Sprintf("/api/lessons/%d/complete", first.ID), nil, u)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var out controllers.CompletionResponse
	resp.into(t, &out)
	assert.True(t, out.Progress.Completed)
	require.NotNil(t, out.Progress.CompletedAt)
	firstCompletedAt := *out.Progress.CompletedAt
	assert.Equal(t, []string{"first_steps"}, badgeCodes(out.NewBadges))
	assert.Nil(t, out.Certificate)

	// repeating is a no-op
	resp = h.post(fmt.Sprintf("/api/lessons/%d/complete", first.ID), nil, u)
	require.Equal(t, fiber.StatusOK, resp.Status)
	out = controllers.CompletionResponse{}
	resp.into(t, &out)
	assert.Empty(t, out.NewBadges)
	require.NotNil(t, out.Progress.CompletedAt)
	assert.True(t, firstCompletedAt.Equal(*out.Progress.CompletedAt))

	// the last accessible lesson completes the course for a free user
	resp = h.post(fmt.Sprintf("/api/lessons/%d/complete", second.ID), nil, u)
	require.Equal(t, fiber.StatusOK, resp.Status)
	out = controllers.CompletionResponse{}
	resp.into(t, &out)
	require.NotNil(t, out.Certificate)
	assert.True(t, strings.HasPrefix(out.Certificate.Code, "AIMA-"))
	assert.Equal(t, []string{"graduate"}, badgeCodes(out.NewBadges))

	var mailed bool
	for _, m := range h.mailer.Sent() {
		mailed = mailed || strings.HasPrefix(m.Subject, "Certificate earned")
	}
	assert.True(t, mailed)

	// locked lessons cannot be completed
	resp = h.post(fmt.Sprintf("/api/lessons/%d/complete", f.Lessons[models.TierStarter][0].ID), nil, u)
	assert.Equal(t, fiber.StatusForbidden, resp.Status)

	var rows int64
	require.NoError(t, h.db.Model(&models.Progress{}).Where("user_id = ?", u.ID).Count(&rows).Error)
	assert.EqualValues(t, 2, rows)
}

func TestUncompleteLesson(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 2)
	u := h.user("free", models.TierFree)
	lesson := f.Lessons[models.TierFree][0]
	testutil.Complete(t, h.db, u.ID, lesson)

	resp := h.delete(fmt.Sprintf("/api/lessons/%d/complete", lesson.ID), u)
	require.Equal(t, fiber.StatusOK, resp.Status)

	var p models.Progress
	require.NoError(t, h.db.Where("user_id = ? AND lesson_id = ?", u.ID, lesson.ID).First(&p).Error)
	assert.False(t, p.Completed)
	assert.Nil(t, p.CompletedAt)
}

func TestProgressAndDashboard(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 2)
	testutil.CreateCourse(t, h.db, "rust", 1)
	u := h.user("starter", models.TierStarter)
	testutil.Complete(t, h.db, u.ID, f.Lessons[models.TierFree]...)

	resp := h.get("/api/progress", u)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var progress []controllers.CourseProgress
	resp.into(t, &progress)
	require.Len(t, progress, 2)
	bySlug := map[string]controllers.CourseProgress{}
	for _, p := range progress {
		bySlug[p.Slug] = p
	}
	assert.Equal(t, 2, bySlug["go"].Completed)
	assert.Equal(t, 4, bySlug["go"].Accessible)
	assert.Equal(t, 50, bySlug["go"].Percent)
	assert.Equal(t, 0, bySlug["rust"].Percent)

	resp = h.get("/api/dashboard", u)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var dash controllers.DashboardResponse
	resp.into(t, &dash)
	assert.Equal(t, 2, dash.LessonsCompleted)
	assert.Equal(t, 4+2, dash.LockedLessons)
	require.Len(t, dash.Recommendations, 1)
	assert.Equal(t, "rust", dash.Recommendations[0].Slug)
	assert.Equal(t, u.Username, dash.User.Username)
}

func TestQuizFlow(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	u := h.user("free", models.TierFree)

	var quiz models.Quiz
	require.NoError(t, h.db.Where("lesson_id = ?", f.Lessons[models.TierFree][0].ID).First(&quiz).Error)
	base := fmt.Sprintf("/api/quizzes/%d", quiz.ID)

	resp := h.get(base, u)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	assert.NotContains(t, string(resp.Raw), "correct_index")
	assert.NotContains(t, string(resp.Raw), "explanation")
	var view controllers.QuizView
	resp.into(t, &view)
	assert.Len(t, view.Questions, 3)

	resp = h.post(base+"/attempts", map[string][]int{"answers": {0, 2}}, u)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	var attempt controllers.QuizAttemptResponse
	resp.into(t, &attempt)
	assert.Equal(t, 1, attempt.Result.Correct)
	assert.Equal(t, 33, attempt.Result.Score)
	assert.False(t, attempt.Result.Passed)
	assert.Equal(t, -1, attempt.Result.Questions[2].Answer)
	assert.Empty(t, attempt.NewBadges)

	resp = h.post(base+"/attempts", map[string][]int{"answers": {0, 1, 2}}, u)
	require.Equal(t, fiber.StatusCreated, resp.Status)
	attempt = controllers.QuizAttemptResponse{}
	resp.into(t, &attempt)
	assert.Equal(t, 100, attempt.Result.Score)
	assert.True(t, attempt.Result.Passed)
	assert.ElementsMatch(t, []string{"quiz_whiz", "perfectionist"}, badgeCodes(attempt.NewBadges))
	assert.Len(t, attempt.Questions, 3)

	resp = h.get(base+"/attempts", u)
	require.Equal(t, fiber.StatusOK, resp.Status)
	var attempts controllers.AttemptsResponse
	resp.into(t, &attempts)
	require.Len(t, attempts.Attempts, 2)
	assert.Equal(t, 100, attempts.Attempts[0].Score)
	assert.Equal(t, 100, attempts.BestScore)
	assert.True(t, attempts.Passed)

	assert.Equal(t, fiber.StatusUnprocessableEntity, h.post(base+"/attempts", fiber.Map{}, u).Status)
}

func TestQuizGating(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	u := h.user("free", models.TierFree)

	// the fixture quiz owns the first free lesson
	lesson := models.Lesson{ModuleID: f.Modules[models.TierFree].ID, Title: "extra", Content: "x"}
	require.NoError(t, h.db.Create(&lesson).Error)
	empty := models.Quiz{LessonID: lesson.ID, Title: "Empty"}
	require.NoError(t, h.db.Create(&empty).Error)

	resp := h.post(fmt.Sprintf("/api/quizzes/%d/attempts", empty.ID), map[string][]int{"answers": {0}}, u)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	locked := models.Quiz{LessonID: f.Lessons[models.TierMaster][0].ID, Title: "Locked"}
	require.NoError(t, h.db.Create(&locked).Error)
	assert.Equal(t, fiber.StatusForbidden, h.get(fmt.Sprintf("/api/quizzes/%d", locked.ID), u).Status)
	assert.Equal(t, fiber.StatusNotFound, h.get("/api/quizzes/9999", u).Status)
}

func TestRequestAndVerifyCertificate(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	u := h.user("free", models.TierFree)

	resp := h.post("/api/courses/go/certificate", nil, u)
	require.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `{"accessible":1,"completed":0}`, string(resp.Body.Details))

	testutil.Complete(t, h.db, u.ID, f.Lessons[models.TierFree][0])
	resp = h.post("/api/courses/go/certificate", nil, u)
	require.Equal(t, fiber.StatusCreated, resp.Status, string(resp.Raw))
	var cert models.Certificate
	resp.into(t, &cert)
	assert.Equal(t, "go", cert.Course.Slug)
	assert.Equal(t, f.Course.ID, cert.Course.ID)
	assert.Contains(t, string(resp.Raw), `"created_at"`)
	assert.NotContains(t, string(resp.Raw), `"DeletedAt"`)
	assert.NotContains(t, string(resp.Raw), `"ID"`)

	resp = h.post("/api/courses/go/certificate", nil, u)
	require.Equal(t, fiber.StatusOK, resp.Status)
	var again models.Certificate
	resp.into(t, &again)
	assert.Equal(t, cert.Code, again.Code)

	// verification is public and case-insensitive
	resp = h.get("/api/certificates/verify/"+strings.ToLower(cert.Code), nil)
	require.Equal(t, fiber.StatusOK, resp.Status, string(resp.Raw))
	var v controllers.CertificateVerification
	resp.into(t, &v)
	assert.True(t, v.Valid)
	assert.Equal(t, "free", v.Username)
	assert.Equal(t, "go", v.CourseSlug)
	assert.NotContains(t, string(resp.Raw), "free@example.com")

	assert.Equal(t, fiber.StatusNotFound, h.get("/api/certificates/verify/AIMA-NOPE", nil).Status)

	resp = h.get("/api/certificates", u)
	var mine []models.Certificate
	resp.into(t, &mine)
	assert.Len(t, mine, 1)
}

func TestBadges(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 2)
	u := h.user("free", models.TierFree)
	require.Equal(t, fiber.StatusOK, h.post(fmt.Sprintf("/api/lessons/%d/complete", f.Lessons[models.TierFree][0].ID), nil, u).Status)

	var all []controllers.BadgeView
	h.get("/api/badges", u).into(t, &all)
	require.NotEmpty(t, all)
	for _, b := range all {
		assert.Equal(t, b.Code == "first_steps", b.Earned, b.Code)
	}

	var mine []models.UserBadge
	h.get("/api/user/badges", u).into(t, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "first_steps", mine[0].Badge.Code)
}

func TestLessonAudio(t *testing.T) {
	h := newHarness(t)
	f := testutil.CreateCourse(t, h.db, "go", 1)
	u := h.user("free", models.TierFree)
	path := fmt.Sprintf("/api/lessons/%d/audio", f.Lessons[models.TierFree][0].ID)

	resp := h.post(path, nil, u)
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "audio/mpeg", resp.Header[fiber.HeaderContentType])
	assert.Equal(t, "ID3", string(resp.Raw))
	assert.Contains(t, h.speech.text, "content")

	h.speech.err = tts.ErrNotConfigured
	assert.Equal(t, fiber.StatusServiceUnavailable, h.post(path, nil, u).Status)

	h.speech.err = errors.New("upstream 500")
	assert.Equal(t, fiber.StatusBadGateway, h.post(path, nil, u).Status)

	locked := fmt.Sprintf("/api/lessons/%d/audio", f.Lessons[models.TierPro][0].ID)
	assert.Equal(t, fiber.StatusForbidden, h.post(locked, nil, u).Status)
}
