package models

import "time"

type Badge struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type UserBadge struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"user_id"`
	BadgeID   uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`
	Badge     Badge     `json:"badge"`
}

type Certificate struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	UserID   uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"user_id"`
	CourseID uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"course_id"`
	Code     string    `gorm:"uniqueIndex;not null" json:"code"`
	IssuedAt time.Time `json:"issued_at"`
	Course   Course    `json:"course,omitempty"`
}
