package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/lms-backend/internal/cache"
	"github.com/learnhub/lms-backend/internal/catalog"
	"github.com/learnhub/lms-backend/internal/mailer"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/learnhub/lms-backend/internal/repository"
)

// ─── Quizzes ────────────────────────────────────────────────────────────────

type fakeQuizStore struct {
	mu      sync.Mutex
	quizzes map[uuid.UUID]model.Quiz
	// afterLoad runs once, outside the lock, after the next GetByCourse read.
	afterLoad func()
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{quizzes: make(map[uuid.UUID]model.Quiz)}
}

func (f *fakeQuizStore) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (f *fakeQuizStore) GetByCourse(_ context.Context, courseID string) (*model.Quiz, error) {
	f.mu.Lock()
	var found *model.Quiz
	for _, q := range f.quizzes {
		if q.CourseID == courseID {
			q := q
			found = &q
			break
		}
	}
	hook := f.afterLoad
	f.afterLoad = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (f *fakeQuizStore) Create(_ context.Context, q *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.quizzes {
		if existing.CourseID == q.CourseID {
			return repository.ErrDuplicate
		}
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	q.RecomputeTotalPoints()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	f.quizzes[q.ID] = *q
	return nil
}

func (f *fakeQuizStore) Update(_ context.Context, q *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[q.ID]; !ok {
		return repository.ErrNotFound
	}
	q.RecomputeTotalPoints()
	f.quizzes[q.ID] = *q
	return nil
}

func (f *fakeQuizStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.quizzes, id)
	return nil
}

func (f *fakeQuizStore) CoursesWithQuiz(_ context.Context, courseIDs []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, q := range f.quizzes {
		for _, id := range courseIDs {
			if q.CourseID == id {
				out[id] = true
			}
		}
	}
	return out, nil
}

// ─── Attempts ───────────────────────────────────────────────────────────────

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts []model.QuizAttempt
	// beforeCreate runs inside Create before the uniqueness check, to stage races.
	beforeCreate func(a *model.QuizAttempt)
}

func newFakeAttemptStore() *fakeAttemptStore { return &fakeAttemptStore{} }

func (f *fakeAttemptStore) CountByUserQuiz(_ context.Context, userID string, quizID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttemptStore) Create(_ context.Context, a *model.QuizAttempt) error {
	if f.beforeCreate != nil {
		f.beforeCreate(a)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.UserID == a.UserID && existing.QuizID == a.QuizID && existing.AttemptNumber == a.AttemptNumber {
			return repository.ErrDuplicate
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.attempts = append(f.attempts, *a)
	return nil
}

func (f *fakeAttemptStore) LatestPassed(_ context.Context, userID string, quizID uuid.UUID) (*model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.QuizAttempt
	for i := range f.attempts {
		a := f.attempts[i]
		if a.UserID == userID && a.QuizID == quizID && a.Passed {
			if best == nil || a.AttemptNumber > best.AttemptNumber {
				best = &a
			}
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (f *fakeAttemptStore) ListByUserQuiz(_ context.Context, userID string, quizID uuid.UUID) ([]model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.QuizAttempt{}
	for _, a := range f.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber > out[j].AttemptNumber })
	return out, nil
}

func (f *fakeAttemptStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]*model.QuizAttempt)
	for i := range f.attempts {
		for _, id := range ids {
			if f.attempts[i].ID == id {
				a := f.attempts[i]
				out[id] = &a
			}
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) CountPassedUsers(_ context.Context, courseIDs []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]map[string]bool)
	for _, a := range f.attempts {
		if !a.Passed {
			continue
		}
		if seen[a.CourseID] == nil {
			seen[a.CourseID] = make(map[string]bool)
		}
		seen[a.CourseID][a.UserID] = true
	}
	out := make(map[string]int)
	for _, id := range courseIDs {
		if n := len(seen[id]); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

// ─── Certificates and outbox ────────────────────────────────────────────────

type fakeOutboxStore struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]model.OutboxEntry
	queuedUntil map[uuid.UUID]time.Time
}

func newFakeOutboxStore() *fakeOutboxStore {
	return &fakeOutboxStore{
		entries:     make(map[uuid.UUID]model.OutboxEntry),
		queuedUntil: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeOutboxStore) put(e model.OutboxEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID] = e
}

func (f *fakeOutboxStore) get(id uuid.UUID) model.OutboxEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[id]
}

func (f *fakeOutboxStore) GetByID(_ context.Context, id uuid.UUID) (*model.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (f *fakeOutboxStore) LatestForRequest(_ context.Context, requestID uuid.UUID) (*model.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.CertificateRequestID == requestID {
			e := e
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOutboxStore) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[id]
	e.Status = model.OutboxStatusSent
	e.Attempts++
	e.SentAt = &at
	f.entries[id] = e
	delete(f.queuedUntil, id)
	return nil
}

func (f *fakeOutboxStore) MarkFailed(_ context.Context, id uuid.UUID, lastErr, cause string, next time.Time, giveUp bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[id]
	e.Attempts++
	e.LastError = lastErr
	e.LastCause = cause
	e.NextAttemptAt = next
	e.Status = model.OutboxStatusPending
	if giveUp {
		e.Status = model.OutboxStatusFailed
	}
	f.entries[id] = e
	delete(f.queuedUntil, id)
	return nil
}

func (f *fakeOutboxStore) Reset(_ context.Context, id uuid.UUID, now, queuedUntil time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = model.OutboxStatusPending
	e.Attempts = 0
	e.NextAttemptAt = now
	e.SentAt = nil
	f.entries[id] = e
	f.queuedUntil[id] = queuedUntil
	return nil
}

func (f *fakeOutboxStore) ClaimForDelivery(_ context.Context, id uuid.UUID, now, leaseUntil time.Time) (*model.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Status != model.OutboxStatusPending || e.NextAttemptAt.After(now) {
		return nil, repository.ErrNotFound
	}
	e.NextAttemptAt = leaseUntil
	f.entries[id] = e
	delete(f.queuedUntil, id)
	return &e, nil
}

func (f *fakeOutboxStore) ClaimDue(_ context.Context, now, queuedUntil time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, e := range f.entries {
		if len(ids) >= limit {
			break
		}
		if e.Status != model.OutboxStatusPending || e.NextAttemptAt.After(now) {
			continue
		}
		if q, ok := f.queuedUntil[e.ID]; ok && q.After(now) {
			continue
		}
		f.queuedUntil[e.ID] = queuedUntil
		ids = append(ids, e.ID)
	}
	return ids, nil
}

type fakeCertificateStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]model.CertificateRequest
	outbox   *fakeOutboxStore
}

func newFakeCertificateStore(outbox *fakeOutboxStore) *fakeCertificateStore {
	return &fakeCertificateStore{requests: make(map[uuid.UUID]model.CertificateRequest), outbox: outbox}
}

func (f *fakeCertificateStore) GetByID(_ context.Context, id uuid.UUID) (*model.CertificateRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f *fakeCertificateStore) GetByUserCourse(_ context.Context, userID, courseID string) (*model.CertificateRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.UserID == userID && r.CourseID == courseID {
			r := r
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCertificateStore) Create(_ context.Context, c *model.CertificateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.UserID == c.UserID && r.CourseID == c.CourseID {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = c.AppliedAt
	c.UpdatedAt = c.AppliedAt
	f.requests[c.ID] = *c
	return nil
}

func (f *fakeCertificateStore) ListByCourse(_ context.Context, courseID string) ([]model.CertificateRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.CertificateRequest{}
	for _, r := range f.requests {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (f *fakeCertificateStore) ApproveWithOutbox(_ context.Context, id uuid.UUID, educatorID, url string, at time.Time, entry *model.OutboxEntry) (*model.CertificateRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok || r.Status != model.CertificateStatusPending {
		return nil, repository.ErrNotPending
	}
	r.Status = model.CertificateStatusApproved
	r.ApprovedAt = &at
	r.CertificateURL = url
	r.DecidedBy = educatorID
	f.requests[id] = r

	entry.CertificateRequestID = id
	f.outbox.put(*entry)
	return &r, nil
}

func (f *fakeCertificateStore) Reject(_ context.Context, id uuid.UUID, educatorID, reason string, at time.Time) (*model.CertificateRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok || r.Status != model.CertificateStatusPending {
		return nil, repository.ErrNotPending
	}
	r.Status = model.CertificateStatusRejected
	r.RejectedAt = &at
	r.RejectionReason = reason
	r.DecidedBy = educatorID
	f.requests[id] = r
	return &r, nil
}

// ─── Catalog ────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	courses  map[string]model.Course
	users    map[string]model.User
	progress map[string][]string // key userID+"/"+courseID
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		courses:  make(map[string]model.Course),
		users:    make(map[string]model.User),
		progress: make(map[string][]string),
	}
}

func (f *fakeCatalog) addCourse(id, educatorID string, lectures int) {
	f.courses[id] = model.Course{ID: id, Title: "Course " + id[:4], EducatorID: educatorID, TotalLectures: lectures}
}

func (f *fakeCatalog) enroll(userID, name, courseID string) {
	u := f.users[userID]
	u.ID = userID
	u.Name = name
	u.Email = userID + "@example.com"
	u.EnrolledCourses = append(u.EnrolledCourses, courseID)
	f.users[userID] = u

	c := f.courses[courseID]
	c.EnrolledStudents = append(c.EnrolledStudents, userID)
	f.courses[courseID] = c
}

func (f *fakeCatalog) complete(userID, courseID string, lectures int) {
	done := make([]string, lectures)
	for i := range done {
		done[i] = uuid.NewString()
	}
	f.progress[userID+"/"+courseID] = done
}

func (f *fakeCatalog) GetCourse(_ context.Context, courseID string) (*model.Course, error) {
	c, ok := f.courses[courseID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &c, nil
}

func (f *fakeCatalog) ListEducatorCourses(_ context.Context, educatorID string) ([]model.Course, error) {
	var out []model.Course
	for _, c := range f.courses {
		if c.EducatorID == educatorID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCatalog) GetUser(_ context.Context, userID string) (*model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &u, nil
}

func (f *fakeCatalog) GetUsers(_ context.Context, userIDs []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User)
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok {
			u := u
			out[id] = &u
		}
	}
	return out, nil
}

func (f *fakeCatalog) IsEnrolled(_ context.Context, userID, courseID string) (bool, error) {
	for _, c := range f.users[userID].EnrolledCourses {
		if c == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) CompletedLectures(_ context.Context, userID, courseID string) ([]string, error) {
	return f.progress[userID+"/"+courseID], nil
}

// ─── Cache, queue, mailer ───────────────────────────────────────────────────

type fakeQuizCache struct {
	mu          sync.Mutex
	items       map[string]model.StudentQuiz
	gens        map[string]int64
	invalidated []string
}

func newFakeQuizCache() *fakeQuizCache {
	return &fakeQuizCache{items: make(map[string]model.StudentQuiz), gens: make(map[string]int64)}
}

func (f *fakeQuizCache) Generation(_ context.Context, courseID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gens[courseID], nil
}

func (f *fakeQuizCache) Get(_ context.Context, courseID string) (*model.StudentQuiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.items[courseID]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &q, nil
}

func (f *fakeQuizCache) Set(_ context.Context, q *model.StudentQuiz, gen int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gens[q.CourseID] != gen {
		return cache.ErrStale
	}
	stored := *q
	stored.CurrentAttempt = 0
	f.items[q.CourseID] = stored
	return nil
}

func (f *fakeQuizCache) Invalidate(_ context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, courseID)
	f.gens[courseID]++
	f.invalidated = append(f.invalidated, courseID)
	return nil
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (f *fakeQueue) Enqueue(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	err   error
	calls int
	sent  []mailer.Message
}

func (f *fakeMailer) Name() string { return "fake" }

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}
