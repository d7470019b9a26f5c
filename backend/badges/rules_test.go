package badges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		owned map[string]bool
		want  []string
	}{
		{"nothing", Stats{}, nil, nil},
		{"first lesson", Stats{LessonsCompleted: 1}, nil, []string{"first_steps"}},
		{"ten lessons", Stats{LessonsCompleted: 10}, nil, []string{"first_steps", "dedicated_learner"}},
		{"already owned skipped", Stats{LessonsCompleted: 10}, map[string]bool{"first_steps": true}, []string{"dedicated_learner"}},
		{"quiz and perfect", Stats{QuizzesPassed: 1, PerfectScores: 1}, nil, []string{"quiz_whiz", "perfectionist"}},
		{"graduate", Stats{Certificates: 1}, nil, []string{"graduate"}},
		{"community", Stats{CommunityPosts: 2}, nil, []string{"community_voice"}},
		{"streak below", Stats{StreakDays: 6}, nil, nil},
		{"streak", Stats{StreakDays: 7}, nil, []string{"on_fire"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.stats, tt.owned))
		})
	}
}

func TestDefinitionsHaveUniqueCodes(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Definitions {
		assert.False(t, seen[d.Code], d.Code)
		seen[d.Code] = true
		assert.NotNil(t, d.Earned, d.Code)
	}
}
