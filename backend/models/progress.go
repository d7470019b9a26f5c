package models

import (
	"time"

	"gorm.io/datatypes"
)

// Progress is unique per user and lesson.
type Progress struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	UserID      uint       `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"user_id"`
	LessonID    uint       `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"lesson_id"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (Progress) TableName() string {
	return "progress"
}

type QuizAttempt struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	QuizID    uint           `gorm:"index;not null" json:"quiz_id"`
	Score     int            `json:"score"`
	Passed    bool           `json:"passed"`
	Correct   int            `json:"correct"`
	Total     int            `json:"total"`
	Answers   datatypes.JSON `json:"answers"`
}
