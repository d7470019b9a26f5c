package badges

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimastery/academy/backend/models"
)

// Seed inserts missing badge rows and refreshes names and descriptions.
func Seed(ctx context.Context, db *gorm.DB) error {
	for _, d := range Definitions {
		b := d.Model()
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "icon"}),
		}).Create(&b).Error
		if err != nil {
			return errors.Wrapf(err, "seed badge %s", d.Code)
		}
	}
	return nil
}

func ComputeStats(ctx context.Context, db *gorm.DB, userID uint) (Stats, error) {
	var s Stats
	tx := db.WithContext(ctx)

	if err := tx.Model(&models.Progress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&s.LessonsCompleted).Error; err != nil {
		return s, errors.Wrap(err, "count completed lessons")
	}
	if err := tx.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND passed = ?", userID, true).
		Distinct("quiz_id").
		Count(&s.QuizzesPassed).Error; err != nil {
		return s, errors.Wrap(err, "count passed quizzes")
	}
	if err := tx.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND score = ?", userID, 100).
		Count(&s.PerfectScores).Error; err != nil {
		return s, errors.Wrap(err, "count perfect scores")
	}
	if err := tx.Model(&models.Certificate{}).
		Where("user_id = ?", userID).
		Count(&s.Certificates).Error; err != nil {
		return s, errors.Wrap(err, "count certificates")
	}

	var posts, replies int64
	if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Count(&posts).Error; err != nil {
		return s, errors.Wrap(err, "count posts")
	}
	if err := tx.Model(&models.Reply{}).Where("user_id = ?", userID).Count(&replies).Error; err != nil {
		return s, errors.Wrap(err, "count replies")
	}
	s.CommunityPosts = posts + replies

	var user models.User
	if err := tx.Select("streak_days").First(&user, userID).Error; err != nil {
		return s, errors.Wrap(err, "load user streak")
	}
	s.StreakDays = user.StreakDays
	return s, nil
}

// Award evaluates every criterion for the user and grants the badges not yet
// owned. It returns only the badges granted by this call.
func Award(ctx context.Context, db *gorm.DB, userID uint) ([]models.Badge, error) {
	stats, err := ComputeStats(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	var ownedCodes []string
	if err := db.WithContext(ctx).Model(&models.UserBadge{}).
		Joins("JOIN badges ON badges.id = user_badges.badge_id").
		Where("user_badges.user_id = ?", userID).
		Pluck("badges.code", &ownedCodes).Error; err != nil {
		return nil, errors.Wrap(err, "load owned badges")
	}
	owned := make(map[string]bool, len(ownedCodes))
	for _, c := range ownedCodes {
		owned[c] = true
	}

	codes := Evaluate(stats, owned)
	if len(codes) == 0 {
		return nil, nil
	}

	var candidates []models.Badge
	if err := db.WithContext(ctx).Where("code IN ?", codes).Find(&candidates).Error; err != nil {
		return nil, errors.Wrap(err, "load badges")
	}

	var awarded []models.Badge
	for _, b := range candidates {
		res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserBadge{UserID: userID, BadgeID: b.ID, AwardedAt: time.Now()})
		if res.Error != nil {
			return awarded, errors.Wrapf(res.Error, "award badge %s", b.Code)
		}
		// zero rows means a concurrent request granted it first
		if res.RowsAffected > 0 {
			awarded = append(awarded, b)
		}
	}
	return awarded, nil
}
