// Package badges evaluates the fixed badge criteria and records awards.
package badges

import "github.com/aimastery/academy/backend/models"

// Stats are the activity counters the criteria are evaluated against.
type Stats struct {
	LessonsCompleted int64
	QuizzesPassed    int64
	PerfectScores    int64
	Certificates     int64
	CommunityPosts   int64
	StreakDays       int
}

type Definition struct {
	Code        string
	Name        string
	Description string
	Icon        string
	Earned      func(Stats) bool
}

func (d Definition) Model() models.Badge {
	return models.Badge{Code: d.Code, Name: d.Name, Description: d.Description, Icon: d.Icon}
}

var Definitions = []Definition{
	{
		Code: "first_steps", Name: "First Steps", Icon: "footprints",
		Description: "Complete your first lesson",
		Earned:      func(s Stats) bool { return s.LessonsCompleted >= 1 },
	},
	{
		Code: "dedicated_learner", Name: "Dedicated Learner", Icon: "book-open",
		Description: "Complete 10 lessons",
		Earned:      func(s Stats) bool { return s.LessonsCompleted >= 10 },
	},
	{
		Code: "knowledge_seeker", Name: "Knowledge Seeker", Icon: "brain",
		Description: "Complete 50 lessons",
		Earned:      func(s Stats) bool { return s.LessonsCompleted >= 50 },
	},
	{
		Code: "quiz_whiz", Name: "Quiz Whiz", Icon: "check-circle",
		Description: "Pass your first quiz",
		Earned:      func(s Stats) bool { return s.QuizzesPassed >= 1 },
	},
	{
		Code: "perfectionist", Name: "Perfectionist", Icon: "star",
		Description: "Score 100% on a quiz",
		Earned:      func(s Stats) bool { return s.PerfectScores >= 1 },
	},
	{
		Code: "graduate", Name: "Graduate", Icon: "award",
		Description: "Earn your first course certificate",
		Earned:      func(s Stats) bool { return s.Certificates >= 1 },
	},
	{
		Code: "community_voice", Name: "Community Voice", Icon: "message-circle",
		Description: "Post or reply in the community",
		Earned:      func(s Stats) bool { return s.CommunityPosts >= 1 },
	},
	{
		Code: "on_fire", Name: "On Fire", Icon: "flame",
		Description: "Keep a 7 day learning streak",
		Earned:      func(s Stats) bool { return s.StreakDays >= 7 },
	},
}

// Evaluate returns the codes of badges whose criteria hold for stats and that
// are not already in owned, in definition order.
func Evaluate(stats Stats, owned map[string]bool) []string {
	var earned []string
	for _, d := range Definitions {
		if owned[d.Code] {
			continue
		}
		if d.Earned(stats) {
			earned = append(earned, d.Code)
		}
	}
	return earned
}
