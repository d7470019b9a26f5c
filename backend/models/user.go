package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username     string     `gorm:"uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Tier         Tier       `gorm:"type:varchar(16);default:free;not null" json:"tier"`
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	StreakDays   int        `gorm:"default:0" json:"streak_days"`
	LastActiveAt *time.Time `json:"last_active_at"`
}

// CanAccess applies tier gating; admins see everything.
func (u *User) CanAccess(required Tier) bool {
	return u.IsAdmin || HasAccess(u.Tier, required)
}

const streakWindow = 48 * time.Hour

// TouchStreak records activity at now. Activity on a later calendar day within
// 48 hours extends the streak, a repeat on the same day keeps it, and anything
// else starts over at 1.
func (u *User) TouchStreak(now time.Time) {
	switch {
	case u.LastActiveAt == nil || u.StreakDays < 1:
		u.StreakDays = 1
	case sameDay(*u.LastActiveAt, now):
	case now.After(*u.LastActiveAt) && now.Sub(*u.LastActiveAt) < streakWindow:
		u.StreakDays++
	default:
		u.StreakDays = 1
	}
	u.LastActiveAt = &now
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type LoginHistory struct {
	gorm.Model
	UserID    uint `gorm:"index"`
	LoginTime time.Time
}
