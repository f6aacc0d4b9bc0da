package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/lms-backend/internal/middleware"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/learnhub/lms-backend/internal/service"
	"github.com/learnhub/lms-backend/internal/validator"
	"github.com/rs/zerolog"
)

var kindStatus = map[service.Kind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindConflict:     http.StatusConflict,
}

// failService writes the envelope for a service error. Rule errors keep
// their code and message; anything else is logged and reported as internal.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	if re, ok := service.AsRule(err); ok {
		status, known := kindStatus[re.Kind]
		if !known {
			status = http.StatusBadRequest
		}
		if len(re.Fields) > 0 {
			response.FailWithFields(c, status, re.Code, re.Fields)
			return
		}
		response.FailWithMessage(c, status, re.Code, re.Message)
		return
	}

	_ = c.Error(err)
	log.Error().
		Err(err).
		Str("path", c.FullPath()).
		Str("request_id", response.RequestID(c)).
		Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// bind decodes the body into dst and writes the 400 itself on failure.
func bind(c *gin.Context, dst interface{}) bool {
	if failure := validator.Bind(c, dst); failure != nil {
		response.FailWithFields(c, http.StatusBadRequest, failure.Code, failure.Fields)
		return false
	}
	return true
}

// userID returns the caller's id. Routes are mounted behind RequireAuth.
func userID(c *gin.Context) (string, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return "", false
	}
	return claims.UserID, true
}
