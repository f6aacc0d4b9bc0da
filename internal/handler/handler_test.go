package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/lms-backend/internal/middleware"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/learnhub/lms-backend/internal/service"
	"github.com/learnhub/lms-backend/internal/validator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// withClaims stands in for RequireAuth.
func withClaims(userID string, role service.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: userID, Role: role})
		c.Next()
	}
}

func TestFailService_MapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"validation", &service.RuleError{Kind: service.KindValidation, Code: response.ErrInvalidID, Message: "Invalid ID format."}, http.StatusBadRequest, response.ErrInvalidID},
		{"forbidden", &service.RuleError{Kind: service.KindForbidden, Code: response.ErrNotEnrolled, Message: "no"}, http.StatusForbidden, response.ErrNotEnrolled},
		{"not found", &service.RuleError{Kind: service.KindNotFound, Code: response.ErrQuizNotFound, Message: "no"}, http.StatusNotFound, response.ErrQuizNotFound},
		{"conflict", &service.RuleError{Kind: service.KindConflict, Code: response.ErrAlreadyApplied, Message: "Certificate request already approved."}, http.StatusConflict, response.ErrAlreadyApplied},
		{"wrapped rule", errors.Join(errors.New("ctx"), &service.RuleError{Kind: service.KindConflict, Code: response.ErrMaxAttempts, Message: "cap"}), http.StatusConflict, response.ErrMaxAttempts},
		{"infrastructure", errors.New("pg: connection refused"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			failService(c, zerolog.Nop(), tc.err)

			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestFailService_KeepsRuleMessageAndFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	failService(c, zerolog.Nop(), &service.RuleError{
		Kind:    service.KindValidation,
		Code:    response.ErrValidation,
		Message: "The submitted data is invalid.",
		Fields:  map[string]string{"questions[2]": "question 3 must have exactly one correct option"},
	})

	body := decode(t, w)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "question 3 must have exactly one correct option", body.Error.Fields["questions[2]"])
}

func TestBodyRejectedBeforeService(t *testing.T) {
	// Nil services: a request that reaches them would panic.
	quizzes := NewQuizHandler(nil, zerolog.Nop())
	certs := NewCertificateHandler(nil, nil, zerolog.Nop())

	r := gin.New()
	r.Use(response.RequestIDMiddleware(), withClaims("user_1", service.RoleStudent))
	r.POST("/quiz/submit", quizzes.Submit)
	r.POST("/certificate/apply", certs.Apply)
	r.POST("/certificate/reject", certs.Reject)

	cases := []struct {
		path  string
		body  string
		code  response.ErrCode
		field string
	}{
		{"/quiz/submit", `{"quizId":`, response.ErrInvalidPayload, "body"},
		{"/quiz/submit", `{"quizId":"not-a-uuid","answers":[]}`, response.ErrValidation, "quizId"},
		{"/quiz/submit", `{"quizId":"6f1c2e4a-8a3b-4f2e-9c1d-0a1b2c3d4e5f","answers":[{"selectedOptionIndex":1}]}`, response.ErrValidation, "answers[0].questionIndex"},
		{"/certificate/apply", `{"courseId":"xyz"}`, response.ErrValidation, "courseId"},
		{"/certificate/reject", `{"requestId":"6f1c2e4a-8a3b-4f2e-9c1d-0a1b2c3d4e5f","reason":"` + strings.Repeat("x", 501) + `"}`, response.ErrValidation, "reason"},
	}

	for _, tc := range cases {
		t.Run(tc.path+" "+string(tc.code)+" "+tc.field, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Contains(t, body.Error.Fields, tc.field)
			assert.NotEmpty(t, body.Metadata.RequestID)
		})
	}
}

func TestHealth(t *testing.T) {
	up := Dependency{Name: "postgres", Ping: func(context.Context) error { return nil }}
	down := Dependency{Name: "mongo", Ping: func(context.Context) error { return errors.New("no reachable servers") }}

	t.Run("all dependencies up", func(t *testing.T) {
		h := NewSystemHandler([]Dependency{up}, nil, zerolog.Nop())
		r := gin.New()
		r.GET("/health", h.Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode(t, w).Success)
	})

	t.Run("a dependency down", func(t *testing.T) {
		h := NewSystemHandler([]Dependency{up, down}, nil, zerolog.Nop())
		r := gin.New()
		r.GET("/health", h.Health)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decode(t, w)
		assert.False(t, body.Success)
		data, ok := body.Data.(map[string]interface{})
		require.True(t, ok)
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "ok", checks["postgres"])
		assert.Equal(t, "down", checks["mongo"])
	})
}

type fixedDepth int64

func (d fixedDepth) Len(context.Context) (int64, error) { return int64(d), nil }

func TestStatus_ReportsQueueDepth(t *testing.T) {
	h := NewSystemHandler(nil, fixedDepth(7), zerolog.Nop())
	r := gin.New()
	r.GET("/status", h.Status)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["notification_queue"])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m 5s", formatDuration(5e9))
	assert.Equal(t, "1h 1m 0s", formatDuration(3660e9))
	assert.Equal(t, "2d 0h 0m 0s", formatDuration(48*3600e9))
}
