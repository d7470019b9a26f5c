package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	Published   bool           `gorm:"default:false" json:"published"`
	Order       int            `gorm:"column:position;default:0" json:"order"`
	Modules     []Module       `gorm:"constraint:OnDelete:CASCADE;" json:"modules,omitempty"`
}

type Module struct {
	gorm.Model
	CourseID     uint     `gorm:"index;not null" json:"course_id"`
	Title        string   `gorm:"not null" json:"title"`
	Description  string   `json:"description"`
	RequiredTier Tier     `gorm:"type:varchar(16);default:free;not null" json:"required_tier"`
	Order        int      `gorm:"column:position;default:0" json:"order"`
	Lessons      []Lesson `gorm:"constraint:OnDelete:CASCADE;" json:"lessons,omitempty"`
}

type Lesson struct {
	gorm.Model
	ModuleID        uint   `gorm:"index;not null" json:"module_id"`
	Title           string `gorm:"not null" json:"title"`
	Content         string `json:"content"`
	VideoURL        string `json:"video_url"`
	DurationMinutes int    `json:"duration_minutes"`
	Order           int    `gorm:"column:position;default:0" json:"order"`
	Quiz            *Quiz  `gorm:"constraint:OnDelete:CASCADE;" json:"quiz,omitempty"`
}

type Quiz struct {
	gorm.Model
	LessonID     uint       `gorm:"uniqueIndex;not null" json:"lesson_id"`
	Title        string     `json:"title"`
	PassingScore int        `gorm:"default:70" json:"passing_score"`
	Questions    []Question `gorm:"constraint:OnDelete:CASCADE;" json:"questions,omitempty"`
}

type Question struct {
	gorm.Model
	QuizID       uint           `gorm:"index;not null" json:"quiz_id"`
	Prompt       string         `gorm:"not null" json:"prompt"`
	Options      datatypes.JSON `json:"options"` // JSON array of strings
	CorrectIndex int            `json:"-"`
	Explanation  string         `json:"explanation,omitempty"`
	Order        int            `gorm:"column:position;default:0" json:"order"`
}

// OptionCount is the number of answer options, or 0 when they cannot be decoded.
func (q *Question) OptionCount() int {
	var options []json.RawMessage
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return 0
	}
	return len(options)
}

// OrderedScope orders rows by their position and then by id.
func OrderedScope(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}
