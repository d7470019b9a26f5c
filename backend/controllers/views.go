package controllers

import (
	"time"

	"gorm.io/datatypes"

	"github.com/aimastery/academy/backend/certificates"
	"github.com/aimastery/academy/backend/grading"
	"github.com/aimastery/academy/backend/models"
)

// UserView is the caller's own account.
type UserView struct {
	ID           uint        `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Tier         models.Tier `json:"tier"`
	IsAdmin      bool        `json:"is_admin"`
	StreakDays   int         `json:"streak_days"`
	LastActiveAt *time.Time  `json:"last_active_at"`
	CreatedAt    time.Time   `json:"created_at"`
}

func newUserView(u *models.User) UserView {
	return UserView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Tier:         u.Tier,
		IsAdmin:      u.IsAdmin,
		StreakDays:   u.StreakDays,
		LastActiveAt: u.LastActiveAt,
		CreatedAt:    u.CreatedAt,
	}
}

// AuthorView is how other users appear in the community.
type AuthorView struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Tier     models.Tier `json:"tier"`
}

func newAuthorView(u models.User) AuthorView {
	return AuthorView{ID: u.ID, Username: u.Username, Tier: u.Tier}
}

type AuthResponse struct {
	Token     string         `json:"token"`
	User      UserView       `json:"user"`
	NewBadges []models.Badge `json:"new_badges,omitempty"`
}

type QuizSummary struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	PassingScore  int    `json:"passing_score"`
	QuestionCount int64  `json:"question_count"`
}

// LessonView omits content and video of locked lessons.
type LessonView struct {
	ID              uint         `json:"id"`
	ModuleID        uint         `json:"module_id"`
	Title           string       `json:"title"`
	Content         string       `json:"content,omitempty"`
	VideoURL        string       `json:"video_url,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	Order           int          `json:"order"`
	RequiredTier    models.Tier  `json:"required_tier"`
	Locked          bool         `json:"locked"`
	Completed       bool         `json:"completed"`
	Quiz            *QuizSummary `json:"quiz,omitempty"`
}

func newLessonView(l *models.Lesson, required models.Tier, locked, completed bool) LessonView {
	v := LessonView{
		ID:              l.ID,
		ModuleID:        l.ModuleID,
		Title:           l.Title,
		DurationMinutes: l.DurationMinutes,
		Order:           l.Order,
		RequiredTier:    required,
		Locked:          locked,
		Completed:       completed,
	}
	if !locked {
		v.Content = l.Content
		v.VideoURL = l.VideoURL
	}
	if l.Quiz != nil {
		v.Quiz = &QuizSummary{ID: l.Quiz.ID, Title: l.Quiz.Title, PassingScore: l.Quiz.PassingScore}
	}
	return v
}

type ModuleView struct {
	ID           uint         `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	RequiredTier models.Tier  `json:"required_tier"`
	Order        int          `json:"order"`
	Locked       bool         `json:"locked"`
	Lessons      []LessonView `json:"lessons"`
}

// CourseSummary is a catalog entry.
type CourseSummary struct {
	ID                uint   `json:"id"`
	Title             string `json:"title"`
	Slug              string `json:"slug"`
	Description       string `json:"description"`
	ImageURL          string `json:"image_url"`
	TotalLessons      int    `json:"total_lessons"`
	AccessibleLessons int    `json:"accessible_lessons"`
	CompletedLessons  int    `json:"completed_lessons"`
}

type CourseDetail struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	Slug        string              `json:"slug"`
	Description string              `json:"description"`
	ImageURL    string              `json:"image_url"`
	Modules     []ModuleView        `json:"modules"`
	Progress    CourseProgress      `json:"progress"`
	Certificate *models.Certificate `json:"certificate"`
}

// CourseProgress is the completion of one course for one user.
type CourseProgress struct {
	CourseID   uint   `json:"course_id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Completed  int    `json:"completed"`
	Accessible int    `json:"accessible"`
	Percent    int    `json:"percent"`
}

func newCourseProgress(course *models.Course, c certificates.Completion) CourseProgress {
	return CourseProgress{
		CourseID:   course.ID,
		Title:      course.Title,
		Slug:       course.Slug,
		Completed:  c.Completed,
		Accessible: c.Accessible,
		Percent:    grading.Percent(c.Completed, c.Accessible),
	}
}

// QuestionView hides the correct answer and explanation.
type QuestionView struct {
	ID      uint           `json:"id"`
	Prompt  string         `json:"prompt"`
	Options datatypes.JSON `json:"options"`
	Order   int            `json:"order"`
}

type QuizView struct {
	ID           uint           `json:"id"`
	LessonID     uint           `json:"lesson_id"`
	Title        string         `json:"title"`
	PassingScore int            `json:"passing_score"`
	Questions    []QuestionView `json:"questions"`
}

func newQuizView(q *models.Quiz) QuizView {
	v := QuizView{
		ID:           q.ID,
		LessonID:     q.LessonID,
		Title:        q.Title,
		PassingScore: q.PassingScore,
		Questions:    make([]QuestionView, 0, len(q.Questions)),
	}
	for _, qs := range q.Questions {
		v.Questions = append(v.Questions, QuestionView{ID: qs.ID, Prompt: qs.Prompt, Options: qs.Options, Order: qs.Order})
	}
	return v
}

type BadgeView struct {
	models.Badge
	Earned    bool       `json:"earned"`
	AwardedAt *time.Time `json:"awarded_at,omitempty"`
}

type PostView struct {
	ID         uint        `json:"id"`
	Title      string      `json:"title"`
	Slug       string      `json:"slug"`
	Body       string      `json:"body"`
	ReplyCount int         `json:"reply_count"`
	Author     AuthorView  `json:"author"`
	CreatedAt  time.Time   `json:"created_at"`
	Replies    []ReplyView `json:"replies,omitempty"`
}

type ReplyView struct {
	ID        uint       `json:"id"`
	PostID    uint       `json:"post_id"`
	Body      string     `json:"body"`
	Author    AuthorView `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
}

func newPostView(p *models.Post) PostView {
	v := PostView{
		ID:         p.ID,
		Title:      p.Title,
		Slug:       p.Slug,
		Body:       p.Body,
		ReplyCount: p.ReplyCount,
		Author:     newAuthorView(p.Author),
		CreatedAt:  p.CreatedAt,
	}
	for i := range p.Replies {
		v.Replies = append(v.Replies, newReplyView(&p.Replies[i]))
	}
	return v
}

func newReplyView(r *models.Reply) ReplyView {
	return ReplyView{ID: r.ID, PostID: r.PostID, Body: r.Body, Author: newAuthorView(r.Author), CreatedAt: r.CreatedAt}
}
