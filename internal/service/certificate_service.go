package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/catalog"
	"github.com/learnhub/lms-backend/internal/config"
	"github.com/learnhub/lms-backend/internal/metrics"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/learnhub/lms-backend/internal/repository"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/rs/zerolog"
)

const unknownUserName = "Unknown User"

// Dispatcher is the notification side of an approval.
type Dispatcher interface {
	NewCertificateEntry(payload model.CertificateEmail) *model.OutboxEntry
	Deliver(ctx context.Context, entry *model.OutboxEntry) bool
	Requeue(ctx context.Context, outboxID uuid.UUID) error
}

// CertificateService runs the eligibility gate and the request lifecycle.
type CertificateService struct {
	certificates CertificateStore
	quizzes      QuizStore
	attempts     AttemptStore
	outbox       OutboxStore
	catalog      Catalog
	dispatcher   Dispatcher
	cfg          config.CertificateConfig
	log          zerolog.Logger
	now          func() time.Time
}

// NewCertificateService creates a new CertificateService.
func NewCertificateService(
	certificates CertificateStore,
	quizzes QuizStore,
	attempts AttemptStore,
	outbox OutboxStore,
	cat Catalog,
	dispatcher Dispatcher,
	cfg config.CertificateConfig,
	log zerolog.Logger,
) *CertificateService {
	return &CertificateService{
		certificates: certificates,
		quizzes:      quizzes,
		attempts:     attempts,
		outbox:       outbox,
		catalog:      cat,
		dispatcher:   dispatcher,
		cfg:          cfg,
		log:          log.With().Str("component", "certificate_service").Logger(),
		now:          time.Now,
	}
}

// ─── Student operations ─────────────────────────────────────────────────────

// Apply opens a pending certificate request when every precondition holds.
// Each unmet precondition yields its own RuleError.
func (s *CertificateService) Apply(ctx context.Context, userID, courseID string) (*model.CertificateRequest, error) {
	if err := validCourseID(courseID); err != nil {
		return nil, err
	}
	if err := requireEnrollment(ctx, s.catalog, userID, courseID); err != nil {
		return nil, err
	}
	course, err := loadCourse(ctx, s.catalog, courseID)
	if err != nil {
		return nil, err
	}

	quiz, err := s.quizzes.GetByCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(response.ErrQuizNotFound)
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	passed, err := s.attempts.LatestPassed(ctx, userID, quiz.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, forbidden(response.ErrQuizNotPassed)
		}
		return nil, fmt.Errorf("latest passed attempt: %w", err)
	}

	existing, err := s.certificates.GetByUserCourse(ctx, userID, courseID)
	if err == nil {
		return nil, alreadyApplied(existing.Status)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup request: %w", err)
	}

	if s.cfg.RequireCourseCompletion {
		completion, err := courseCompletion(ctx, s.catalog, userID, course)
		if err != nil {
			return nil, err
		}
		if !completion.IsCompleted {
			return nil, newRule(KindForbidden, response.ErrCourseNotCompleted,
				fmt.Sprintf("You must complete all lectures before applying for a certificate (%s completed).", completion.Progress))
		}
	}

	now := s.now()
	attemptID := passed.ID
	req := &model.CertificateRequest{
		UserID:        userID,
		CourseID:      courseID,
		QuizAttemptID: &attemptID,
		Status:        model.CertificateStatusPending,
		CertificateID: model.NewCertificateID(now),
		AppliedAt:     now,
	}
	if err := s.certificates.Create(ctx, req); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race to a concurrent apply; report what won.
			if winner, getErr := s.certificates.GetByUserCourse(ctx, userID, courseID); getErr == nil {
				return nil, alreadyApplied(winner.Status)
			}
			return nil, alreadyApplied(model.CertificateStatusPending)
		}
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.log.Info().
		Str("request_id", req.ID.String()).
		Str("user_id", userID).
		Str("course_id", courseID).
		Str("certificate_id", req.CertificateID).
		Msg("Certificate requested")
	return req, nil
}

// Status returns the student's request for a course, or nil if none exists.
func (s *CertificateService) Status(ctx context.Context, userID, courseID string) (*model.CertificateRequest, error) {
	if err := validCourseID(courseID); err != nil {
		return nil, err
	}
	req, err := s.certificates.GetByUserCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ─── Educator operations ────────────────────────────────────────────────────

// ListRequests returns every request for an owned course with requester
// profile and quiz result attached.
func (s *CertificateService) ListRequests(ctx context.Context, educatorID, courseID string) ([]model.CertificateRequestView, error) {
	if err := validCourseID(courseID); err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, educatorID, courseID); err != nil {
		return nil, err
	}

	requests, err := s.certificates.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	userIDs := make([]string, 0, len(requests))
	attemptIDs := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		userIDs = append(userIDs, r.UserID)
		if r.QuizAttemptID != nil {
			attemptIDs = append(attemptIDs, *r.QuizAttemptID)
		}
	}

	users, err := s.catalog.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load requesters: %w", err)
	}
	attempts, err := s.attempts.GetByIDs(ctx, attemptIDs)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}

	views := make([]model.CertificateRequestView, len(requests))
	for i, r := range requests {
		view := model.CertificateRequestView{
			CertificateRequest: r,
			Requester:          model.Requester{ID: r.UserID, Name: unknownUserName},
		}
		if u, ok := users[r.UserID]; ok {
			view.Requester = model.Requester{ID: u.ID, Name: u.Name, Email: u.Email, ImageURL: u.ImageURL}
		}
		if r.QuizAttemptID != nil {
			if a, ok := attempts[*r.QuizAttemptID]; ok {
				view.QuizResult = a.Summary()
			}
		}
		views[i] = view
	}
	return views, nil
}

// Approve moves a pending request to approved and attempts the notification.
// The transition stands whatever the email outcome; EmailSent reports it.
func (s *CertificateService) Approve(ctx context.Context, educatorID, requestID string) (*model.ApprovalResult, error) {
	req, course, err := s.ownedRequest(ctx, educatorID, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.CertificateStatusPending {
		return nil, notPending(req.Status)
	}

	student, err := s.catalog.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, newRule(KindNotFound, response.ErrNotFound, "The student who requested this certificate no longer exists.")
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	now := s.now()
	url := model.CertificateURL(s.cfg.URLPrefix, req.CertificateID)
	entry := s.dispatcher.NewCertificateEntry(model.CertificateEmail{
		StudentName:    student.Name,
		StudentEmail:   student.Email,
		CourseTitle:    course.Title,
		CertificateID:  req.CertificateID,
		CertificateURL: url,
		IssuedAt:       now,
	})

	approved, err := s.certificates.ApproveWithOutbox(ctx, req.ID, educatorID, url, now, entry)
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, s.currentStateConflict(ctx, req.ID)
		}
		return nil, fmt.Errorf("approve request: %w", err)
	}
	metrics.ObserveDecision(string(model.CertificateStatusApproved))

	emailSent := s.dispatcher.Deliver(ctx, entry)

	s.log.Info().
		Str("request_id", approved.ID.String()).
		Str("educator_id", educatorID).
		Bool("email_sent", emailSent).
		Msg("Certificate approved")

	return &model.ApprovalResult{Request: approved, EmailSent: emailSent}, nil
}

// Reject moves a pending request to rejected.
func (s *CertificateService) Reject(ctx context.Context, educatorID string, in *model.RejectCertificateRequest) (*model.CertificateRequest, error) {
	req, _, err := s.ownedRequest(ctx, educatorID, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.CertificateStatusPending {
		return nil, notPending(req.Status)
	}

	rejected, err := s.certificates.Reject(ctx, req.ID, educatorID, in.Reason, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, s.currentStateConflict(ctx, req.ID)
		}
		return nil, fmt.Errorf("reject request: %w", err)
	}
	metrics.ObserveDecision(string(model.CertificateStatusRejected))

	s.log.Info().
		Str("request_id", rejected.ID.String()).
		Str("educator_id", educatorID).
		Msg("Certificate rejected")
	return rejected, nil
}

// Resend queues the approval email of an approved request again.
func (s *CertificateService) Resend(ctx context.Context, educatorID, requestID string) error {
	req, _, err := s.ownedRequest(ctx, educatorID, requestID)
	if err != nil {
		return err
	}
	if req.Status != model.CertificateStatusApproved {
		return conflict(response.ErrRequestNotApproved,
			fmt.Sprintf("Only approved certificate requests can be resent. Current status: %s.", req.Status))
	}

	entry, err := s.outbox.LatestForRequest(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(response.ErrNotFound)
		}
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if err := s.dispatcher.Requeue(ctx, entry.ID); err != nil {
		return fmt.Errorf("requeue notification: %w", err)
	}

	s.log.Info().Str("request_id", req.ID.String()).Str("outbox_id", entry.ID.String()).Msg("Certificate email requeued")
	return nil
}

// Stats reports, per owned course, how many students passed its quiz.
func (s *CertificateService) Stats(ctx context.Context, educatorID string) ([]model.CourseCertificateStats, error) {
	courses, err := s.catalog.ListEducatorCourses(ctx, educatorID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	passed, err := s.attempts.CountPassedUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count passed users: %w", err)
	}

	stats := make([]model.CourseCertificateStats, len(courses))
	for i, c := range courses {
		stats[i] = model.CourseCertificateStats{
			CourseID:      c.ID,
			CourseTitle:   c.Title,
			PassedCount:   passed[c.ID],
			TotalEnrolled: len(c.EnrolledStudents),
		}
	}
	return stats, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *CertificateService) ownedCourse(ctx context.Context, educatorID, courseID string) (*model.Course, error) {
	course, err := loadCourse(ctx, s.catalog, courseID)
	if err != nil {
		return nil, err
	}
	if course.EducatorID != educatorID {
		return nil, forbidden(response.ErrNotCourseOwner)
	}
	return course, nil
}

func (s *CertificateService) ownedRequest(ctx context.Context, educatorID, rawID string) (*model.CertificateRequest, *model.Course, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, validationError(response.ErrInvalidID, nil)
	}
	req, err := s.certificates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, notFound(response.ErrRequestNotFound)
		}
		return nil, nil, fmt.Errorf("get request: %w", err)
	}
	course, err := s.ownedCourse(ctx, educatorID, req.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return req, course, nil
}

func (s *CertificateService) currentStateConflict(ctx context.Context, id uuid.UUID) error {
	current, err := s.certificates.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reload request: %w", err)
	}
	return notPending(current.Status)
}

func alreadyApplied(status model.CertificateStatus) *RuleError {
	return conflict(response.ErrAlreadyApplied, fmt.Sprintf("Certificate request already %s.", status))
}

func notPending(status model.CertificateStatus) *RuleError {
	return conflict(response.ErrRequestNotPending, fmt.Sprintf("This certificate request has already been %s.", status))
}
