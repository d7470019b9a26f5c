package badges_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimastery/academy/backend/badges"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/testutil"
)

func codes(bs []models.Badge) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Code)
	}
	return out
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, badges.Seed(context.Background(), db))

	var count int64
	require.NoError(t, db.Model(&models.Badge{}).Count(&count).Error)
	assert.Equal(t, int64(len(badges.Definitions)), count)
}

func TestAwardGrantsOnce(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice", models.TierFree)
	course := testutil.CreateCourse(t, db, "intro", 1)

	awarded, err := badges.Award(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	testutil.Complete(t, db, user.ID, course.Lessons[models.TierFree][0])

	awarded, err = badges.Award(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_steps"}, codes(awarded))

	awarded, err = badges.Award(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	var owned int64
	require.NoError(t, db.Model(&models.UserBadge{}).Where("user_id = ?", user.ID).Count(&owned).Error)
	assert.Equal(t, int64(1), owned)
}

func TestComputeStats(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "bob", models.TierPro)
	course := testutil.CreateCourse(t, db, "stats", 2)

	testutil.Complete(t, db, user.ID, course.Lessons[models.TierFree]...)
	require.NoError(t, db.Create(&models.QuizAttempt{UserID: user.ID, QuizID: 1, Score: 100, Passed: true}).Error)
	require.NoError(t, db.Create(&models.QuizAttempt{UserID: user.ID, QuizID: 1, Score: 80, Passed: true}).Error)
	require.NoError(t, db.Create(&models.Post{UserID: user.ID, Title: "hi"}).Error)
	require.NoError(t, db.Model(user).Update("streak_days", 7).Error)

	stats, err := badges.ComputeStats(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.LessonsCompleted)
	assert.Equal(t, int64(1), stats.QuizzesPassed)
	assert.Equal(t, int64(1), stats.PerfectScores)
	assert.Equal(t, int64(1), stats.CommunityPosts)
	assert.Equal(t, 7, stats.StreakDays)

	awarded, err := badges.Award(ctx, db, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first_steps", "quiz_whiz", "perfectionist", "community_voice", "on_fire"}, codes(awarded))
}
