package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/config"
	"github.com/learnhub/lms-backend/internal/mailer"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type certFixture struct {
	*quizFixture
	store  *fakeCertificateStore
	outbox *fakeOutboxStore
	svc    *CertificateService
	notify *NotificationService
	mailer *fakeMailer
	queue  *fakeQueue
}

func newCertFixture(t *testing.T, requireCompletion bool) *certFixture {
	t.Helper()
	qf := newQuizFixture(t)
	outbox := newFakeOutboxStore()
	store := newFakeCertificateStore(outbox)
	m := &fakeMailer{}
	q := &fakeQueue{}

	certCfg := config.CertificateConfig{
		URLPrefix:               "https://cdn.example.com",
		FrontendURL:             "https://learn.example.com",
		RequireCourseCompletion: requireCompletion,
	}
	notify := NewNotificationService(outbox, m, q, certCfg, config.NotificationConfig{MaxAttempts: 3}, zerolog.Nop())
	notify.now = func() time.Time { return fixedNow }

	svc := NewCertificateService(store, qf.quizzes, qf.attempts, outbox, qf.catalog, notify, certCfg, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }

	return &certFixture{
		quizFixture: qf,
		store:       store,
		outbox:      outbox,
		svc:         svc,
		notify:      notify,
		mailer:      m,
		queue:       q,
	}
}

// eligible creates the quiz and records a passing attempt for the student.
func (f *certFixture) eligible(t *testing.T) {
	t.Helper()
	quiz := f.createQuiz(t, 2)
	_, err := f.quizFixture.svc.Submit(context.Background(), studentID, &model.SubmitQuizRequest{
		QuizID:  quiz.ID.String(),
		Answers: answers(4),
	})
	require.NoError(t, err)
	f.catalog.complete(studentID, testCourseID, 3)
}

func (f *certFixture) applied(t *testing.T) *model.CertificateRequest {
	t.Helper()
	f.eligible(t)
	req, err := f.svc.Apply(context.Background(), studentID, testCourseID)
	require.NoError(t, err)
	return req
}

func TestApply_CreatesPendingRequest(t *testing.T) {
	f := newCertFixture(t, true)

	req := f.applied(t)

	assert.Equal(t, model.CertificateStatusPending, req.Status)
	assert.Equal(t, studentID, req.UserID)
	assert.Equal(t, testCourseID, req.CourseID)
	assert.Regexp(t, regexp.MustCompile(`^CERT-\d+-[0-9A-Z]{9}$`), req.CertificateID)
	assert.Equal(t, fixedNow, req.AppliedAt)
	require.NotNil(t, req.QuizAttemptID)

	status, err := f.svc.Status(context.Background(), studentID, testCourseID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, req.ID, status.ID)
}

func TestApply_GateReasons(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		setup func(t *testing.T, f *certFixture) string
		kind  Kind
		code  response.ErrCode
	}{
		{
			name:  "malformed course id",
			setup: func(t *testing.T, f *certFixture) string { return "nope" },
			kind:  KindValidation,
			code:  response.ErrInvalidID,
		},
		{
			name: "not enrolled",
			setup: func(t *testing.T, f *certFixture) string {
				f.catalog.addCourse(otherCourseID, educatorID, 1)
				return otherCourseID
			},
			kind: KindForbidden,
			code: response.ErrNotEnrolled,
		},
		{
			name:  "course has no quiz",
			setup: func(t *testing.T, f *certFixture) string { return testCourseID },
			kind:  KindNotFound,
			code:  response.ErrQuizNotFound,
		},
		{
			name: "never passed",
			setup: func(t *testing.T, f *certFixture) string {
				quiz := f.createQuiz(t, 1)
				_, err := f.quizFixture.svc.Submit(ctx, studentID, &model.SubmitQuizRequest{QuizID: quiz.ID.String(), Answers: answers(1)})
				require.NoError(t, err)
				return testCourseID
			},
			kind: KindForbidden,
			code: response.ErrQuizNotPassed,
		},
		{
			name: "lectures incomplete",
			setup: func(t *testing.T, f *certFixture) string {
				f.eligible(t)
				f.catalog.complete(studentID, testCourseID, 1)
				return testCourseID
			},
			kind: KindForbidden,
			code: response.ErrCourseNotCompleted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCertFixture(t, true)
			courseID := tc.setup(t, f)

			_, err := f.svc.Apply(ctx, studentID, courseID)
			assertRule(t, err, tc.kind, tc.code)
		})
	}
}

func TestApply_IncompleteMessageCarriesProgress(t *testing.T) {
	f := newCertFixture(t, true)
	f.eligible(t)
	f.catalog.complete(studentID, testCourseID, 2)

	_, err := f.svc.Apply(context.Background(), studentID, testCourseID)
	re := assertRule(t, err, KindForbidden, response.ErrCourseNotCompleted)
	assert.Contains(t, re.Message, "2/3")
}

func TestApply_CompletionNotRequired(t *testing.T) {
	f := newCertFixture(t, false)
	f.eligible(t)
	f.catalog.complete(studentID, testCourseID, 0)

	req, err := f.svc.Apply(context.Background(), studentID, testCourseID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificateStatusPending, req.Status)
}

func TestApply_SecondApplicationRefused(t *testing.T) {
	f := newCertFixture(t, true)
	ctx := context.Background()
	req := f.applied(t)

	_, err := f.svc.Apply(ctx, studentID, testCourseID)
	re := assertRule(t, err, KindConflict, response.ErrAlreadyApplied)
	assert.Equal(t, "Certificate request already pending.", re.Message)

	_, err = f.svc.Reject(ctx, educatorID, &model.RejectCertificateRequest{RequestID: req.ID.String(), Reason: "blurry photo"})
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, studentID, testCourseID)
	re = assertRule(t, err, KindConflict, response.ErrAlreadyApplied)
	assert.Equal(t, "Certificate request already rejected.", re.Message)
}

func TestApply_LostRaceReportsWinner(t *testing.T) {
	f := newCertFixture(t, true)
	f.eligible(t)

	racing := &racingCertificateStore{fakeCertificateStore: f.store}
	f.svc.certificates = racing

	_, err := f.svc.Apply(context.Background(), studentID, testCourseID)
	re := assertRule(t, err, KindConflict, response.ErrAlreadyApplied)
	assert.Contains(t, re.Message, "pending")

	requests, err := f.store.ListByCourse(context.Background(), testCourseID)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

// racingCertificateStore lets a competing request land between the
// existence check and the insert.
type racingCertificateStore struct {
	*fakeCertificateStore
	raced bool
}

func (r *racingCertificateStore) Create(ctx context.Context, c *model.CertificateRequest) error {
	if !r.raced {
		r.raced = true
		winner := *c
		winner.ID = uuid.New()
		if err := r.fakeCertificateStore.Create(ctx, &winner); err != nil {
			return err
		}
	}
	return r.fakeCertificateStore.Create(ctx, c)
}

func TestStatus_NoneYet(t *testing.T) {
	f := newCertFixture(t, true)

	status, err := f.svc.Status(context.Background(), studentID, testCourseID)
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestApprove_SendsEmailAndIsOneWay(t *testing.T) {
	f := newCertFixture(t, true)
	ctx := context.Background()
	req := f.applied(t)

	res, err := f.svc.Approve(ctx, educatorID, req.ID.String())
	require.NoError(t, err)

	assert.True(t, res.EmailSent)
	assert.Equal(t, model.CertificateStatusApproved, res.Request.Status)
	assert.Equal(t, "https://cdn.example.com/certificates/"+req.CertificateID+".pdf", res.Request.CertificateURL)
	require.NotNil(t, res.Request.ApprovedAt)
	assert.Equal(t, educatorID, res.Request.DecidedBy)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, studentID+"@example.com", f.mailer.sent[0].ToAddress)
	assert.Contains(t, f.mailer.sent[0].HTML, req.CertificateID)

	entry, err := f.outbox.LatestForRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusSent, entry.Status)

	_, err = f.svc.Approve(ctx, educatorID, req.ID.String())
	re := assertRule(t, err, KindConflict, response.ErrRequestNotPending)
	assert.Equal(t, "This certificate request has already been approved.", re.Message)

	_, err = f.svc.Reject(ctx, educatorID, &model.RejectCertificateRequest{RequestID: req.ID.String()})
	assertRule(t, err, KindConflict, response.ErrRequestNotPending)
}

func TestApprove_EmailFailureKeepsApproval(t *testing.T) {
	f := newCertFixture(t, true)
	ctx := context.Background()
	req := f.applied(t)
	f.mailer.err = &mailer.SendError{Cause: mailer.CauseAuth, Err: errors.New("535 bad credentials")}

	res, err := f.svc.Approve(ctx, educatorID, req.ID.String())
	require.NoError(t, err)
	assert.False(t, res.EmailSent)

	stored, err := f.store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificateStatusApproved, stored.Status)

	entry, err := f.outbox.LatestForRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusPending, entry.Status)
	assert.Equal(t, 1, entry.Attempts)
	assert.Equal(t, string(mailer.CauseAuth), entry.LastCause)
	assert.Equal(t, fixedNow.Add(time.Minute), entry.NextAttemptAt)
}

func TestApprove_Refusals(t *testing.T) {
	ctx := context.Background()

	t.Run("not the course owner", func(t *testing.T) {
		f := newCertFixture(t, true)
		req := f.applied(t)
		_, err := f.svc.Approve(ctx, "someone_else", req.ID.String())
		assertRule(t, err, KindForbidden, response.ErrNotCourseOwner)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newCertFixture(t, true)
		_, err := f.svc.Approve(ctx, educatorID, uuid.NewString())
		assertRule(t, err, KindNotFound, response.ErrRequestNotFound)
	})

	t.Run("malformed request id", func(t *testing.T) {
		f := newCertFixture(t, true)
		_, err := f.svc.Approve(ctx, educatorID, "42")
		assertRule(t, err, KindValidation, response.ErrInvalidID)
	})
}

func TestReject_RecordsReason(t *testing.T) {
	f := newCertFixture(t, true)
	ctx := context.Background()
	req := f.applied(t)

	rejected, err := f.svc.Reject(ctx, educatorID, &model.RejectCertificateRequest{RequestID: req.ID.String(), Reason: "Incomplete profile"})
	require.NoError(t, err)
	assert.Equal(t, model.CertificateStatusRejected, rejected.Status)
	assert.Equal(t, "Incomplete profile", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)

	_, err = f.svc.Approve(ctx, educatorID, req.ID.String())
	re := assertRule(t, err, KindConflict, response.ErrRequestNotPending)
	assert.Contains(t, re.Message, "rejected")
	assert.Empty(t, f.mailer.sent)
}

func TestResend(t *testing.T) {
	f := newCertFixture(t, true)
	ctx := context.Background()
	req := f.applied(t)

	err := f.svc.Resend(ctx, educatorID, req.ID.String())
	assertRule(t, err, KindConflict, response.ErrRequestNotApproved)

	_, err = f.svc.Approve(ctx, educatorID, req.ID.String())
	require.NoError(t, err)

	require.NoError(t, f.svc.Resend(ctx, educatorID, req.ID.String()))

	entry, err := f.outbox.LatestForRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.Attempts)
	assert.Equal(t, []uuid.UUID{entry.ID}, f.queue.ids)
}

func TestListRequests_EnrichesRequesters(t *testing.T) {
	f := newCertFixture(t, true)
	ctx := context.Background()
	req := f.applied(t)

	orphan := &model.CertificateRequest{
		UserID:        "deleted_user",
		CourseID:      testCourseID,
		Status:        model.CertificateStatusPending,
		CertificateID: "CERT-1-ABCDEFGHI",
		AppliedAt:     fixedNow.Add(-time.Hour),
	}
	require.NoError(t, f.store.Create(ctx, orphan))

	views, err := f.svc.ListRequests(ctx, educatorID, testCourseID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, req.ID, views[0].ID)
	assert.Equal(t, "Student One", views[0].Requester.Name)
	require.NotNil(t, views[0].QuizResult)
	assert.Equal(t, 4, views[0].QuizResult.Score)
	assert.True(t, views[0].QuizResult.Passed)

	assert.Equal(t, "Unknown User", views[1].Requester.Name)
	assert.Nil(t, views[1].QuizResult)

	_, err = f.svc.ListRequests(ctx, "someone_else", testCourseID)
	assertRule(t, err, KindForbidden, response.ErrNotCourseOwner)
}

func TestStats(t *testing.T) {
	f := newCertFixture(t, true)
	f.catalog.addCourse(otherCourseID, educatorID, 1)
	f.catalog.enroll("user_two", "Student Two", testCourseID)
	f.eligible(t)

	stats, err := f.svc.Stats(context.Background(), educatorID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byCourse := map[string]model.CourseCertificateStats{}
	for _, s := range stats {
		byCourse[s.CourseID] = s
	}
	assert.Equal(t, 1, byCourse[testCourseID].PassedCount)
	assert.Equal(t, 2, byCourse[testCourseID].TotalEnrolled)
	assert.Zero(t, byCourse[otherCourseID].PassedCount)
	assert.Zero(t, byCourse[otherCourseID].TotalEnrolled)
}
