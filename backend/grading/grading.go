// Package grading scores quiz submissions.
package grading

import (
	"errors"
	"math"

	"github.com/aimastery/academy/backend/models"
)

var ErrNoQuestions = errors.New("quiz has no questions")

type QuestionResult struct {
	QuestionID   uint `json:"question_id"`
	Answer       int  `json:"answer"`
	CorrectIndex int  `json:"correct_index"`
	Correct      bool `json:"correct"`
}

type Result struct {
	Correct   int              `json:"correct"`
	Total     int              `json:"total"`
	Score     int              `json:"score"`
	Passed    bool             `json:"passed"`
	Questions []QuestionResult `json:"questions"`
}

// Score compares answers with questions index by index. questions must already be
// in display order. A missing answer, or one outside the question's options, is
// recorded as -1 and counts as wrong.
func Score(questions []models.Question, answers []int, passingScore int) (Result, error) {
	if len(questions) == 0 {
		return Result{}, ErrNoQuestions
	}

	res := Result{Total: len(questions), Questions: make([]QuestionResult, len(questions))}
	for i, q := range questions {
		answer := -1
		if i < len(answers) && answers[i] >= 0 {
			answer = answers[i]
		}
		if n := q.OptionCount(); n > 0 && answer >= n {
			answer = -1
		}
		ok := answer >= 0 && answer == q.CorrectIndex
		if ok {
			res.Correct++
		}
		res.Questions[i] = QuestionResult{
			QuestionID:   q.ID,
			Answer:       answer,
			CorrectIndex: q.CorrectIndex,
			Correct:      ok,
		}
	}

	res.Score = Percent(res.Correct, res.Total)
	res.Passed = res.Score >= passingScore
	return res, nil
}

// Percent returns round(part/total*100), or 0 when total is zero.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part*100) / float64(total)))
}
