package model

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func options(correct ...int) []OptionInput {
	opts := make([]OptionInput, OptionsPerQuestion)
	for i := range opts {
		opts[i] = OptionInput{OptionText: "opt"}
	}
	for _, c := range correct {
		opts[c].IsCorrect = true
	}
	return opts
}

func TestValidateQuestions(t *testing.T) {
	t.Run("valid list", func(t *testing.T) {
		fields := ValidateQuestions([]QuestionInput{
			{QuestionText: "q1", Options: options(0)},
			{QuestionText: "q2", Options: options(3)},
		})
		assert.Nil(t, fields)
	})

	t.Run("each broken question is named", func(t *testing.T) {
		fields := ValidateQuestions([]QuestionInput{
			{QuestionText: "ok", Options: options(1)},
			{QuestionText: "three options", Options: options(0)[:3]},
			{QuestionText: "no correct", Options: options()},
			{QuestionText: "two correct", Options: options(0, 2)},
		})
		require.Len(t, fields, 3)
		assert.Contains(t, fields["questions[1]"], "exactly 4 options")
		assert.Contains(t, fields["questions[2]"], "exactly one correct option")
		assert.Contains(t, fields["questions[3]"], "question 4")
		assert.NotContains(t, fields, "questions[0]")
	})
}

func TestBuildQuestionsDefaultsPoints(t *testing.T) {
	questions := BuildQuestions([]QuestionInput{
		{QuestionText: "a", Options: options(2)},
		{QuestionText: "b", Options: options(0), Points: 5},
	})

	require.Len(t, questions, 2)
	assert.Equal(t, DefaultQuestionPoints, questions[0].Points)
	assert.Equal(t, 2, questions[0].CorrectIndex())
	assert.Equal(t, 5, questions[1].Points)

	quiz := &Quiz{Questions: questions}
	quiz.RecomputeTotalPoints()
	assert.Equal(t, 6, quiz.TotalPoints)
}

func TestStudentViewStripsCorrectness(t *testing.T) {
	quiz := &Quiz{
		Title:        "Quiz",
		Questions:    BuildQuestions([]QuestionInput{{QuestionText: "a", Options: options(1)}}),
		PassingScore: 70,
		MaxAttempts:  3,
	}
	quiz.RecomputeTotalPoints()

	view := quiz.StudentView()
	assert.Equal(t, 70, view.PassingScore)
	assert.Equal(t, 1, view.TotalPoints)
	require.Len(t, view.Questions, 1)
	assert.Len(t, view.Questions[0].Options, OptionsPerQuestion)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "isCorrect")
}

func TestNewCertificateID(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^CERT-(\d+)-[0-9A-Z]{9}$`)

	id := NewCertificateID(now)
	m := pattern.FindStringSubmatch(id)
	require.NotNil(t, m, "unexpected id %q", id)
	assert.Equal(t, "1772359200000", m[1])

	assert.NotEqual(t, id, NewCertificateID(now))
}

func TestCertificateURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/certificates/CERT-1-ABC.pdf",
		CertificateURL("https://cdn.example.com/", "CERT-1-ABC"))
	assert.Equal(t, "/certificates/CERT-1-ABC.pdf", CertificateURL("", "CERT-1-ABC"))
}

func TestCertificateStatusIsTerminal(t *testing.T) {
	assert.False(t, CertificateStatusPending.IsTerminal())
	assert.True(t, CertificateStatusApproved.IsTerminal())
	assert.True(t, CertificateStatusRejected.IsTerminal())
}

func TestSubmittedAnswerSelected(t *testing.T) {
	two := 2
	assert.Equal(t, NoSelection, SubmittedAnswer{}.Selected())
	assert.Equal(t, 2, SubmittedAnswer{SelectedOptionIndex: &two}.Selected())
}
