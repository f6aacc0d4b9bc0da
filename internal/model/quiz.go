package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OptionsPerQuestion is the fixed number of choices every question carries.
const OptionsPerQuestion = 4

// Defaults applied when a create request leaves a setting out.
const (
	DefaultQuizTitle       = "Course Quiz"
	DefaultQuizDescription = "Test your knowledge with this quiz"
	DefaultPassingScore    = 60
	DefaultTimeLimit       = 30
	DefaultMaxAttempts     = 1
	DefaultQuestionPoints  = 1
)

// Option is one answer choice. IsCorrect never leaves the server on student paths.
type Option struct {
	OptionText string `json:"optionText"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Question is a single multiple-choice question stored inside the quiz document.
type Question struct {
	QuestionText string   `json:"questionText"`
	Options      []Option `json:"options"`
	Points       int      `json:"points"`
}

// CorrectIndex returns the index of the option marked correct, or -1.
func (q Question) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// Quiz is the one quiz a course may carry. TotalPoints is derived from Questions.
type Quiz struct {
	ID           uuid.UUID  `json:"id"`
	CourseID     string     `json:"courseId"`
	EducatorID   string     `json:"educatorId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Questions    []Question `json:"questions"`
	TotalPoints  int        `json:"totalPoints"`
	PassingScore int        `json:"passingScore"`
	TimeLimit    int        `json:"timeLimit"`
	MaxAttempts  int        `json:"maxAttempts"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RecomputeTotalPoints sets TotalPoints to the sum of question points.
// Repositories call it before every write.
func (q *Quiz) RecomputeTotalPoints() {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	q.TotalPoints = total
}

// StudentOption is an Option without its correctness marking.
type StudentOption struct {
	OptionText string `json:"optionText"`
}

// StudentQuestion is a Question as a student sees it.
type StudentQuestion struct {
	QuestionText string          `json:"questionText"`
	Options      []StudentOption `json:"options"`
	Points       int             `json:"points"`
}

// StudentQuiz is the cached, answer-free view of a quiz.
type StudentQuiz struct {
	ID             uuid.UUID         `json:"id"`
	CourseID       string            `json:"courseId"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Questions      []StudentQuestion `json:"questions"`
	TimeLimit      int               `json:"timeLimit"`
	TotalPoints    int               `json:"totalPoints"`
	PassingScore   int               `json:"passingScore"`
	MaxAttempts    int               `json:"maxAttempts"`
	CurrentAttempt int               `json:"currentAttempt,omitempty"`
}

// StudentView strips correct-answer markings from the quiz.
func (q *Quiz) StudentView() *StudentQuiz {
	questions := make([]StudentQuestion, len(q.Questions))
	for i, question := range q.Questions {
		opts := make([]StudentOption, len(question.Options))
		for j, opt := range question.Options {
			opts[j] = StudentOption{OptionText: opt.OptionText}
		}
		questions[i] = StudentQuestion{
			QuestionText: question.QuestionText,
			Options:      opts,
			Points:       question.Points,
		}
	}

	return &StudentQuiz{
		ID:           q.ID,
		CourseID:     q.CourseID,
		Title:        q.Title,
		Description:  q.Description,
		Questions:    questions,
		TimeLimit:    q.TimeLimit,
		TotalPoints:  q.TotalPoints,
		PassingScore: q.PassingScore,
		MaxAttempts:  q.MaxAttempts,
	}
}

// OptionInput is a client-supplied answer choice.
type OptionInput struct {
	OptionText string `json:"optionText" binding:"required,max=500"`
	IsCorrect  bool   `json:"isCorrect"`
}

// QuestionInput is a client-supplied question. Option count and the single
// correct marking are checked by ValidateQuestions so the error can name the question.
type QuestionInput struct {
	QuestionText string        `json:"questionText" binding:"required,max=2000"`
	Options      []OptionInput `json:"options" binding:"required,dive"`
	Points       int           `json:"points" binding:"omitempty,min=1,max=1000"`
}

// CreateQuizRequest is the payload for POST /quiz/create.
type CreateQuizRequest struct {
	CourseID     string          `json:"courseId" binding:"required,mongodb"`
	Title        string          `json:"title" binding:"omitempty,max=255"`
	Description  string          `json:"description" binding:"omitempty,max=2000"`
	Questions    []QuestionInput `json:"questions" binding:"required,min=1,dive"`
	PassingScore int             `json:"passingScore" binding:"omitempty,min=1,max=100"`
	TimeLimit    int             `json:"timeLimit" binding:"omitempty,min=1,max=600"`
	MaxAttempts  int             `json:"maxAttempts" binding:"omitempty,min=1,max=100"`
}

// UpdateQuizRequest is the payload for POST /quiz/update. Absent fields are left unchanged.
type UpdateQuizRequest struct {
	QuizID       string          `json:"quizId" binding:"required,uuid"`
	Title        *string         `json:"title" binding:"omitempty,min=1,max=255"`
	Description  *string         `json:"description" binding:"omitempty,max=2000"`
	Questions    []QuestionInput `json:"questions" binding:"omitempty,min=1,dive"`
	PassingScore *int            `json:"passingScore" binding:"omitempty,min=1,max=100"`
	TimeLimit    *int            `json:"timeLimit" binding:"omitempty,min=1,max=600"`
	MaxAttempts  *int            `json:"maxAttempts" binding:"omitempty,min=1,max=100"`
	IsActive     *bool           `json:"isActive"`
}

// DeleteQuizRequest is the payload for POST /quiz/delete.
type DeleteQuizRequest struct {
	QuizID string `json:"quizId" binding:"required,uuid"`
}

// ValidateQuestions enforces the structural rules on a question list.
// The returned map is keyed "questions[i]" and is nil when the list is valid.
func ValidateQuestions(questions []QuestionInput) map[string]string {
	fields := make(map[string]string)
	for i, q := range questions {
		key := fmt.Sprintf("questions[%d]", i)
		if len(q.Options) != OptionsPerQuestion {
			fields[key] = fmt.Sprintf("question %d must have question text and exactly %d options", i+1, OptionsPerQuestion)
			continue
		}
		correct := 0
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			fields[key] = fmt.Sprintf("question %d must have exactly one correct option", i+1)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// BuildQuestions converts validated input into stored questions, defaulting points.
func BuildQuestions(inputs []QuestionInput) []Question {
	questions := make([]Question, len(inputs))
	for i, in := range inputs {
		opts := make([]Option, len(in.Options))
		for j, o := range in.Options {
			opts[j] = Option{OptionText: o.OptionText, IsCorrect: o.IsCorrect}
		}
		points := in.Points
		if points < 1 {
			points = DefaultQuestionPoints
		}
		questions[i] = Question{
			QuestionText: in.QuestionText,
			Options:      opts,
			Points:       points,
		}
	}
	return questions
}
