package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/cache"
	"github.com/learnhub/lms-backend/internal/catalog"
	"github.com/learnhub/lms-backend/internal/grading"
	"github.com/learnhub/lms-backend/internal/metrics"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/learnhub/lms-backend/internal/repository"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/rs/zerolog"
)

// QuizService owns quiz definitions and the attempt workflow.
type QuizService struct {
	quizzes  QuizStore
	attempts AttemptStore
	catalog  Catalog
	cache    StudentQuizCache
	log      zerolog.Logger
	now      func() time.Time
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	quizzes QuizStore,
	attempts AttemptStore,
	cat Catalog,
	quizCache StudentQuizCache,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		quizzes:  quizzes,
		attempts: attempts,
		catalog:  cat,
		cache:    quizCache,
		log:      log.With().Str("component", "quiz_service").Logger(),
		now:      time.Now,
	}
}

// ─── Educator operations ────────────────────────────────────────────────────

// Create attaches a new quiz to a course the educator owns.
func (s *QuizService) Create(ctx context.Context, educatorID string, req *model.CreateQuizRequest) (*model.Quiz, error) {
	if fields := model.ValidateQuestions(req.Questions); fields != nil {
		return nil, validationError(response.ErrValidation, fields)
	}

	if _, err := s.ownedCourse(ctx, educatorID, req.CourseID); err != nil {
		return nil, err
	}

	if _, err := s.quizzes.GetByCourse(ctx, req.CourseID); err == nil {
		return nil, conflict(response.ErrQuizExists, "")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup quiz: %w", err)
	}

	quiz := &model.Quiz{
		CourseID:     req.CourseID,
		EducatorID:   educatorID,
		Title:        orDefault(req.Title, model.DefaultQuizTitle),
		Description:  orDefault(req.Description, model.DefaultQuizDescription),
		Questions:    model.BuildQuestions(req.Questions),
		PassingScore: orDefaultInt(req.PassingScore, model.DefaultPassingScore),
		TimeLimit:    orDefaultInt(req.TimeLimit, model.DefaultTimeLimit),
		MaxAttempts:  orDefaultInt(req.MaxAttempts, model.DefaultMaxAttempts),
		IsActive:     true,
	}

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(response.ErrQuizExists, "")
		}
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	s.invalidate(ctx, quiz.CourseID)

	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Str("course_id", quiz.CourseID).
		Int("questions", len(quiz.Questions)).
		Msg("Quiz created")
	return quiz, nil
}

// GetForEducator returns the full quiz, correct markings included.
func (s *QuizService) GetForEducator(ctx context.Context, educatorID, courseID string) (*model.Quiz, error) {
	if _, err := s.ownedCourse(ctx, educatorID, courseID); err != nil {
		return nil, err
	}
	return s.quizByCourse(ctx, courseID)
}

// Update applies the non-nil fields of req to a quiz the educator owns.
func (s *QuizService) Update(ctx context.Context, educatorID string, req *model.UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.ownedQuiz(ctx, educatorID, req.QuizID)
	if err != nil {
		return nil, err
	}

	if req.Questions != nil {
		if fields := model.ValidateQuestions(req.Questions); fields != nil {
			return nil, validationError(response.ErrValidation, fields)
		}
		quiz.Questions = model.BuildQuestions(req.Questions)
	}
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = *req.TimeLimit
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}

	if err := s.quizzes.Update(ctx, quiz); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(response.ErrQuizNotFound)
		}
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	s.invalidate(ctx, quiz.CourseID)

	s.log.Info().Str("quiz_id", quiz.ID.String()).Msg("Quiz updated")
	return quiz, nil
}

// Delete removes a quiz the educator owns together with its attempts.
func (s *QuizService) Delete(ctx context.Context, educatorID, quizID string) error {
	quiz, err := s.ownedQuiz(ctx, educatorID, quizID)
	if err != nil {
		return err
	}

	if err := s.quizzes.Delete(ctx, quiz.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(response.ErrQuizNotFound)
		}
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.invalidate(ctx, quiz.CourseID)

	s.log.Info().Str("quiz_id", quiz.ID.String()).Msg("Quiz deleted")
	return nil
}

// EducatorCourses lists owned courses with a hasQuiz flag.
func (s *QuizService) EducatorCourses(ctx context.Context, educatorID string) ([]model.EducatorCourse, error) {
	courses, err := s.catalog.ListEducatorCourses(ctx, educatorID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	withQuiz, err := s.quizzes.CoursesWithQuiz(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	out := make([]model.EducatorCourse, len(courses))
	for i, c := range courses {
		out[i] = model.EducatorCourse{
			ID:        c.ID,
			Title:     c.Title,
			Thumbnail: c.Thumbnail,
			HasQuiz:   withQuiz[c.ID],
		}
	}
	return out, nil
}

// ─── Student operations ─────────────────────────────────────────────────────

// GetForStudent returns the answer-free quiz if the student may attempt it now.
func (s *QuizService) GetForStudent(ctx context.Context, userID, courseID string) (*model.StudentQuiz, error) {
	if err := validCourseID(courseID); err != nil {
		return nil, err
	}
	if err := s.requireEnrollment(ctx, userID, courseID); err != nil {
		return nil, err
	}

	view, err := s.studentView(ctx, courseID)
	if err != nil {
		return nil, err
	}

	prior, err := s.attempts.CountByUserQuiz(ctx, userID, view.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if prior >= view.MaxAttempts {
		return nil, maxAttemptsError(view.MaxAttempts)
	}

	view.CurrentAttempt = prior + 1
	return view, nil
}

// Submit grades answers and appends the attempt to the ledger.
func (s *QuizService) Submit(ctx context.Context, userID string, req *model.SubmitQuizRequest) (*model.SubmitQuizResult, error) {
	quizID, err := uuid.Parse(req.QuizID)
	if err != nil {
		return nil, validationError(response.ErrInvalidID, nil)
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(response.ErrQuizNotFound)
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if !quiz.IsActive {
		return nil, notFound(response.ErrQuizInactive)
	}
	if err := s.requireEnrollment(ctx, userID, quiz.CourseID); err != nil {
		return nil, err
	}

	// Checked against the ledger right before recording; the unique
	// (user, quiz, attempt_number) key settles concurrent submissions.
	prior, err := s.attempts.CountByUserQuiz(ctx, userID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if prior >= quiz.MaxAttempts {
		return nil, maxAttemptsError(quiz.MaxAttempts)
	}

	graded, err := grading.Evaluate(quiz, req.Answers)
	if err != nil {
		var invalid *grading.InvalidAnswerError
		if errors.As(err, &invalid) {
			return nil, validationError(response.ErrValidation, map[string]string{
				fmt.Sprintf("answers[%d]", invalid.Position): invalid.Err.Error(),
			})
		}
		return nil, err
	}

	attempt := &model.QuizAttempt{
		QuizID:        quiz.ID,
		CourseID:      quiz.CourseID,
		UserID:        userID,
		Score:         graded.Score,
		TotalPoints:   graded.TotalPoints,
		Percentage:    graded.Percentage,
		Passed:        graded.Passed,
		AttemptNumber: prior + 1,
		Answers:       graded.Answers,
		TimeSpent:     req.TimeSpent,
		CompletedAt:   s.now(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict(response.ErrAttemptConflict, "")
		}
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	metrics.ObserveSubmission(attempt.Passed)

	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Str("user_id", userID).
		Int("attempt", attempt.AttemptNumber).
		Int("score", attempt.Score).
		Bool("passed", attempt.Passed).
		Msg("Quiz submitted")

	return &model.SubmitQuizResult{
		AttemptID:     attempt.ID,
		Score:         attempt.Score,
		TotalPoints:   attempt.TotalPoints,
		Percentage:    grading.DisplayPercentage(attempt.Percentage),
		Passed:        attempt.Passed,
		AttemptNumber: attempt.AttemptNumber,
		PassingScore:  quiz.PassingScore,
	}, nil
}

// Results lists the student's own attempts at a course quiz.
func (s *QuizService) Results(ctx context.Context, userID, courseID string) (*model.QuizResults, error) {
	if err := validCourseID(courseID); err != nil {
		return nil, err
	}
	quiz, err := s.quizByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListByUserQuiz(ctx, userID, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	return &model.QuizResults{
		Quiz: model.QuizResultsHeader{
			ID:           quiz.ID,
			Title:        quiz.Title,
			PassingScore: quiz.PassingScore,
			MaxAttempts:  quiz.MaxAttempts,
			TotalPoints:  quiz.TotalPoints,
		},
		Attempts: attempts,
	}, nil
}

// CheckCourseCompletion reports lecture progress for the student.
func (s *QuizService) CheckCourseCompletion(ctx context.Context, userID, courseID string) (*model.CourseCompletion, error) {
	if err := validCourseID(courseID); err != nil {
		return nil, err
	}
	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return courseCompletion(ctx, s.catalog, userID, course)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *QuizService) studentView(ctx context.Context, courseID string) (*model.StudentQuiz, error) {
	if view, err := s.cache.Get(ctx, courseID); err == nil {
		return view, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("course_id", courseID).Msg("Quiz cache read failed")
	}

	// Read before loading so an Update or Delete that lands in between
	// makes the write-back below a no-op.
	gen, genErr := s.cache.Generation(ctx, courseID)
	if genErr != nil {
		s.log.Warn().Err(genErr).Str("course_id", courseID).Msg("Quiz cache read failed")
	}

	quiz, err := s.quizByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, notFound(response.ErrQuizInactive)
	}

	view := quiz.StudentView()
	if genErr != nil {
		return view, nil
	}
	if err := s.cache.Set(ctx, view, gen); err != nil {
		if errors.Is(err, cache.ErrStale) {
			s.log.Debug().Str("course_id", courseID).Msg("Quiz changed while loading; view not cached")
		} else {
			s.log.Warn().Err(err).Str("course_id", courseID).Msg("Quiz cache write failed")
		}
	}
	return view, nil
}

func (s *QuizService) quizByCourse(ctx context.Context, courseID string) (*model.Quiz, error) {
	quiz, err := s.quizzes.GetByCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(response.ErrQuizNotFound)
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, educatorID, rawID string) (*model.Quiz, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, validationError(response.ErrInvalidID, nil)
	}
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(response.ErrQuizNotFound)
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if quiz.EducatorID != educatorID {
		return nil, forbidden(response.ErrNotCourseOwner)
	}
	return quiz, nil
}

func (s *QuizService) course(ctx context.Context, courseID string) (*model.Course, error) {
	return loadCourse(ctx, s.catalog, courseID)
}

func (s *QuizService) ownedCourse(ctx context.Context, educatorID, courseID string) (*model.Course, error) {
	if err := validCourseID(courseID); err != nil {
		return nil, err
	}
	course, err := s.course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.EducatorID != educatorID {
		return nil, forbidden(response.ErrNotCourseOwner)
	}
	return course, nil
}

func (s *QuizService) requireEnrollment(ctx context.Context, userID, courseID string) error {
	return requireEnrollment(ctx, s.catalog, userID, courseID)
}

func (s *QuizService) invalidate(ctx context.Context, courseID string) {
	if err := s.cache.Invalidate(ctx, courseID); err != nil {
		s.log.Warn().Err(err).Str("course_id", courseID).Msg("Quiz cache invalidation failed")
	}
}

// ─── Shared rules ───────────────────────────────────────────────────────────

func validCourseID(courseID string) error {
	if _, err := catalog.ParseCourseID(courseID); err != nil {
		return validationError(response.ErrInvalidID, map[string]string{"courseId": "must be a 24 character hex id"})
	}
	return nil
}

func loadCourse(ctx context.Context, cat Catalog, courseID string) (*model.Course, error) {
	course, err := cat.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, notFound(response.ErrCourseNotFound)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

func requireEnrollment(ctx context.Context, cat Catalog, userID, courseID string) error {
	enrolled, err := cat.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return forbidden(response.ErrNotEnrolled)
	}
	return nil
}

// courseCompletion counts completed lectures against the course total.
// A course with no lectures is never complete.
func courseCompletion(ctx context.Context, cat Catalog, userID string, course *model.Course) (*model.CourseCompletion, error) {
	completed, err := cat.CompletedLectures(ctx, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	done := len(completed)
	total := course.TotalLectures
	if done > total {
		done = total
	}

	out := &model.CourseCompletion{
		IsCompleted: total > 0 && done == total,
		Progress:    fmt.Sprintf("%d/%d", done, total),
		Completed:   done,
		Total:       total,
	}
	if total > 0 {
		out.Percentage = math.Round(float64(done)/float64(total)*10000) / 100
	}
	return out, nil
}

func maxAttemptsError(limit int) *RuleError {
	return conflict(response.ErrMaxAttempts,
		fmt.Sprintf("You have reached the maximum number of attempts (%d) for this quiz.", limit))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
