package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/testutil"
)

func setup(t *testing.T) (*commandLine, *gorm.DB, *bytes.Buffer) {
	db := testutil.NewDB(t)
	out := &bytes.Buffer{}
	return &commandLine{db: db, out: out}, db, out
}

func run(cl *commandLine, args ...string) error {
	return cl.app().Run(append([]string{"admin"}, args...))
}

func TestCreateAdmin(t *testing.T) {
	cl, db, out := setup(t)

	require.NoError(t, run(cl, "create-admin", "--username", "root", "--email", "Root@Example.com", "--password", "longenough"))
	assert.Contains(t, out.String(), "admin root created")

	var u models.User
	require.NoError(t, db.Where("username = ?", "root").First(&u).Error)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, models.TierMaster, u.Tier)
	assert.Equal(t, "root@example.com", u.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough")))

	err := run(cl, "create-admin", "--username", "root", "--email", "other@example.com", "--password", "longenough")
	assert.EqualError(t, err, "username or email already taken")
}

func TestCreateAdminRejectsInput(t *testing.T) {
	cl, _, _ := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing password", []string{"create-admin", "--username", "root", "--email", "root@example.com"}},
		{"short password", []string{"create-admin", "--username", "root", "--email", "root@example.com", "--password", "short"}},
		{"bad email", []string{"create-admin", "--username", "root", "--email", "nope", "--password", "longenough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ADMIN_PASSWORD", "")
			assert.Error(t, run(cl, tt.args...))
		})
	}
}

func TestSetTier(t *testing.T) {
	cl, db, out := setup(t)
	u := testutil.CreateUser(t, db, "alice", models.TierFree)

	require.NoError(t, run(cl, "set-tier", "--user", "alice@example.com", "--tier", "Pro"))
	assert.Contains(t, out.String(), "alice is now on the pro tier")

	require.NoError(t, db.First(u, u.ID).Error)
	assert.Equal(t, models.TierPro, u.Tier)

	assert.EqualError(t, run(cl, "set-tier", "--user", "alice", "--tier", "platinum"), `unknown tier "platinum"`)
	assert.EqualError(t, run(cl, "set-tier", "--user", "bob", "--tier", "pro"), `user "bob" not found`)
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	cl, db, out := setup(t)

	require.NoError(t, run(cl, "seed-demo"))
	require.NoError(t, run(cl, "seed-demo"))
	assert.Contains(t, out.String(), "course prompt-engineering-foundations created")
	assert.Contains(t, out.String(), "already exists")

	var course models.Course
	require.NoError(t, db.Preload("Modules.Lessons.Quiz.Questions").Where("slug = ?", "prompt-engineering-foundations").First(&course).Error)
	require.Len(t, course.Modules, len(models.AllTiers))
	for i, m := range course.Modules {
		assert.Equal(t, models.AllTiers[i], m.RequiredTier)
		require.Len(t, m.Lessons, 2)
		require.NotNil(t, m.Lessons[0].Quiz)
		assert.Len(t, m.Lessons[0].Quiz.Questions, 1)
	}
}

func TestMigrate(t *testing.T) {
	cl, db, out := setup(t)

	require.NoError(t, run(cl, "migrate"))
	assert.Contains(t, out.String(), "migrations applied")

	var badges int64
	require.NoError(t, db.Model(&models.Badge{}).Count(&badges).Error)
	assert.Positive(t, badges)
}
