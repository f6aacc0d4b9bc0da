// Package grading scores quiz submissions. It has no I/O and no clock.
package grading

import (
	"errors"
	"fmt"
	"math"

	"github.com/learnhub/lms-backend/internal/model"
)

var (
	ErrQuestionIndexRange     = errors.New("question index out of range")
	ErrQuestionIndexDuplicate = errors.New("question answered more than once")
)

// InvalidAnswerError identifies the submitted answer that could not be graded.
type InvalidAnswerError struct {
	Position int
	Index    int
	Err      error
}

func (e *InvalidAnswerError) Error() string {
	return fmt.Sprintf("answers[%d]: question index %d: %v", e.Position, e.Index, e.Err)
}

func (e *InvalidAnswerError) Unwrap() error { return e.Err }

// Result is the graded draft that becomes a QuizAttempt once numbered and stored.
type Result struct {
	Score       int
	TotalPoints int
	Percentage  float64
	Passed      bool
	Answers     []model.AnswerDetail
}

// Evaluate grades answers against quiz. Every question of the quiz gets one
// AnswerDetail in question order; unanswered questions are misses.
// An out-of-range or blank option is a miss, not an error.
func Evaluate(quiz *model.Quiz, answers []model.SubmittedAnswer) (*Result, error) {
	selected := make(map[int]int, len(answers))
	for pos, a := range answers {
		idx := *a.QuestionIndex
		if idx < 0 || idx >= len(quiz.Questions) {
			return nil, &InvalidAnswerError{Position: pos, Index: idx, Err: ErrQuestionIndexRange}
		}
		if _, dup := selected[idx]; dup {
			return nil, &InvalidAnswerError{Position: pos, Index: idx, Err: ErrQuestionIndexDuplicate}
		}
		selected[idx] = a.Selected()
	}

	res := &Result{
		TotalPoints: quiz.TotalPoints,
		Answers:     make([]model.AnswerDetail, len(quiz.Questions)),
	}

	for i, q := range quiz.Questions {
		choice, ok := selected[i]
		if !ok || choice < 0 || choice >= len(q.Options) {
			choice = model.NoSelection
		}

		detail := model.AnswerDetail{QuestionIndex: i, SelectedOptionIndex: choice}
		if choice != model.NoSelection && q.Options[choice].IsCorrect {
			detail.IsCorrect = true
			detail.PointsEarned = q.Points
			res.Score += q.Points
		}
		res.Answers[i] = detail
	}

	if res.TotalPoints > 0 {
		res.Percentage = float64(res.Score) / float64(res.TotalPoints) * 100
	}
	res.Passed = res.Percentage >= float64(quiz.PassingScore)

	return res, nil
}

// DisplayPercentage rounds a stored percentage for presentation.
func DisplayPercentage(p float64) int {
	return int(math.Round(p))
}
