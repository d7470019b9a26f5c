// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aimastery/academy/backend/database"
	"github.com/aimastery/academy/backend/models"
)

// NewDB returns a migrated and seeded in-memory SQLite database scoped to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(context.Background(), db))
	return db
}

// CreateUser inserts a user whose password is "password123".
func CreateUser(t testing.TB, db *gorm.DB, username string, tier models.Tier) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Tier:         tier,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CourseFixture is a published course with one module per tier.
type CourseFixture struct {
	Course  models.Course
	Modules map[models.Tier]*models.Module
	Lessons map[models.Tier][]*models.Lesson
}

// CreateCourse builds a course with lessonsPerTier lessons in each module. The
// first free lesson carries a three question quiz with correct answers 0, 1, 2.
func CreateCourse(t testing.TB, db *gorm.DB, slug string, lessonsPerTier int) *CourseFixture {
	t.Helper()

	f := &CourseFixture{
		Course:  models.Course{Title: "Course " + slug, Slug: slug, Published: true},
		Modules: map[models.Tier]*models.Module{},
		Lessons: map[models.Tier][]*models.Lesson{},
	}
	require.NoError(t, db.Create(&f.Course).Error)

	for i, tier := range models.AllTiers {
		m := &models.Module{CourseID: f.Course.ID, Title: string(tier) + " module", RequiredTier: tier, Order: i}
		require.NoError(t, db.Create(m).Error)
		f.Modules[tier] = m

		for j := 0; j < lessonsPerTier; j++ {
			l := &models.Lesson{ModuleID: m.ID, Title: string(tier) + " lesson", Content: "content", Order: j}
			require.NoError(t, db.Create(l).Error)
			f.Lessons[tier] = append(f.Lessons[tier], l)
		}
	}

	if lessonsPerTier > 0 {
		quiz := &models.Quiz{LessonID: f.Lessons[models.TierFree][0].ID, Title: "Check", PassingScore: 70}
		require.NoError(t, db.Create(quiz).Error)
		for i := 0; i < 3; i++ {
			q := &models.Question{
				QuizID:       quiz.ID,
				Prompt:       "question",
				Options:      []byte(`["a","b","c"]`),
				CorrectIndex: i,
				Order:        i,
			}
			require.NoError(t, db.Create(q).Error)
		}
	}
	return f
}

// Complete marks lessons completed for the user.
func Complete(t testing.TB, db *gorm.DB, userID uint, lessons ...*models.Lesson) {
	t.Helper()
	for _, l := range lessons {
		require.NoError(t, db.Create(&models.Progress{UserID: userID, LessonID: l.ID, Completed: true}).Error)
	}
}
