// Package certificates decides course completion and issues one certificate
// per user and course.
package certificates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimastery/academy/backend/models"
)

const codePrefix = "AIMA-"

var ErrIncomplete = errors.New("course is not complete")

// Completion counts the lessons of a course the user can access and how many of
// those are completed.
type Completion struct {
	Accessible int `json:"accessible"`
	Completed  int `json:"completed"`
}

// Done reports whether every accessible lesson is completed. A course with no
// accessible lessons is never done.
func (c Completion) Done() bool {
	return c.Accessible > 0 && c.Completed >= c.Accessible
}

// AccessibleLessonIDs returns the ids of the course's lessons the user may view.
func AccessibleLessonIDs(ctx context.Context, db *gorm.DB, user *models.User, courseID uint) ([]uint, error) {
	var modules []models.Module
	if err := db.WithContext(ctx).Where("course_id = ?", courseID).Find(&modules).Error; err != nil {
		return nil, errors.Wrap(err, "load modules")
	}
	var moduleIDs []uint
	for _, m := range modules {
		if user.CanAccess(m.RequiredTier) {
			moduleIDs = append(moduleIDs, m.ID)
		}
	}
	if len(moduleIDs) == 0 {
		return nil, nil
	}

	var ids []uint
	if err := db.WithContext(ctx).Model(&models.Lesson{}).
		Where("module_id IN ?", moduleIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "load lessons")
	}
	return ids, nil
}

func CourseCompletion(ctx context.Context, db *gorm.DB, user *models.User, courseID uint) (Completion, error) {
	ids, err := AccessibleLessonIDs(ctx, db, user, courseID)
	if err != nil || len(ids) == 0 {
		return Completion{}, err
	}

	var completed int64
	if err := db.WithContext(ctx).Model(&models.Progress{}).
		Where("user_id = ? AND completed = ? AND lesson_id IN ?", user.ID, true, ids).
		Count(&completed).Error; err != nil {
		return Completion{}, errors.Wrap(err, "count completed lessons")
	}
	return Completion{Accessible: len(ids), Completed: int(completed)}, nil
}

// NewCode returns a verification code such as AIMA-3F2A9C0B41D7.
func NewCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return codePrefix + strings.ToUpper(hex[:12])
}

// Issue returns the user's certificate for the course, creating it when the
// course is complete. created is false when the certificate already existed.
// ErrIncomplete is returned when the course is not complete.
func Issue(ctx context.Context, db *gorm.DB, user *models.User, courseID uint) (cert *models.Certificate, created bool, err error) {
	existing, err := Find(ctx, db, user.ID, courseID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	completion, err := CourseCompletion(ctx, db, user, courseID)
	if err != nil {
		return nil, false, err
	}
	if !completion.Done() {
		return nil, false, ErrIncomplete
	}

	c := &models.Certificate{
		UserID:   user.ID,
		CourseID: courseID,
		Code:     NewCode(),
		IssuedAt: time.Now(),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(c)
	if res.Error != nil {
		return nil, false, errors.Wrap(res.Error, "create certificate")
	}
	if res.RowsAffected == 0 {
		// lost a race with a concurrent completion
		existing, err = Find(ctx, db, user.ID, courseID)
		return existing, false, err
	}
	return c, true, nil
}

// Find returns nil without error when the user has no certificate for the course.
func Find(ctx context.Context, db *gorm.DB, userID, courseID uint) (*models.Certificate, error) {
	var c models.Certificate
	err := db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load certificate")
	}
	return &c, nil
}
