package model

import (
	"time"

	"github.com/google/uuid"
)

// NoSelection marks an answer the student left blank.
const NoSelection = -1

// AnswerDetail is the scored record of a single question in an attempt.
type AnswerDetail struct {
	QuestionIndex       int  `json:"questionIndex"`
	SelectedOptionIndex int  `json:"selectedOptionIndex"`
	IsCorrect           bool `json:"isCorrect"`
	PointsEarned        int  `json:"pointsEarned"`
}

// QuizAttempt is one immutable entry in the attempt ledger.
type QuizAttempt struct {
	ID            uuid.UUID      `json:"id"`
	QuizID        uuid.UUID      `json:"quizId"`
	CourseID      string         `json:"courseId"`
	UserID        string         `json:"userId"`
	Score         int            `json:"score"`
	TotalPoints   int            `json:"totalPoints"`
	Percentage    float64        `json:"percentage"`
	Passed        bool           `json:"passed"`
	AttemptNumber int            `json:"attemptNumber"`
	Answers       []AnswerDetail `json:"answers"`
	TimeSpent     int            `json:"timeSpent"`
	CompletedAt   time.Time      `json:"completedAt"`
}

// SubmittedAnswer is one answer in a submission. A nil SelectedOptionIndex
// is treated as NoSelection.
type SubmittedAnswer struct {
	QuestionIndex       *int `json:"questionIndex" binding:"required,min=0"`
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
}

// Selected returns the chosen option index or NoSelection.
func (a SubmittedAnswer) Selected() int {
	if a.SelectedOptionIndex == nil {
		return NoSelection
	}
	return *a.SelectedOptionIndex
}

// SubmitQuizRequest is the payload for POST /quiz/submit.
type SubmitQuizRequest struct {
	QuizID    string            `json:"quizId" binding:"required,uuid"`
	Answers   []SubmittedAnswer `json:"answers" binding:"required,dive"`
	TimeSpent int               `json:"timeSpent" binding:"min=0"`
}

// SubmitQuizResult is returned to the student after grading.
type SubmitQuizResult struct {
	AttemptID     uuid.UUID `json:"attemptId"`
	Score         int       `json:"score"`
	TotalPoints   int       `json:"totalPoints"`
	Percentage    int       `json:"percentage"`
	Passed        bool      `json:"passed"`
	AttemptNumber int       `json:"attemptNumber"`
	PassingScore  int       `json:"passingScore"`
}

// AttemptSummary is the slice of an attempt shown next to a certificate request.
type AttemptSummary struct {
	Score       int     `json:"score"`
	TotalPoints int     `json:"totalPoints"`
	Percentage  float64 `json:"percentage"`
	Passed      bool    `json:"passed"`
}

// Summary projects the attempt for educator listings.
func (a *QuizAttempt) Summary() *AttemptSummary {
	return &AttemptSummary{
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
		Percentage:  a.Percentage,
		Passed:      a.Passed,
	}
}

// QuizResults is the student's own history for a course quiz.
type QuizResults struct {
	Quiz     QuizResultsHeader `json:"quiz"`
	Attempts []QuizAttempt     `json:"attempts"`
}

// QuizResultsHeader identifies the quiz in a results listing.
type QuizResultsHeader struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	PassingScore int       `json:"passingScore"`
	MaxAttempts  int       `json:"maxAttempts"`
	TotalPoints  int       `json:"totalPoints"`
}
