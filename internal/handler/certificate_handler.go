package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/lms-backend/internal/mailer"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/learnhub/lms-backend/internal/service"
	"github.com/rs/zerolog"
)

// CertificateHandler serves certificate request endpoints.
type CertificateHandler struct {
	certificateService  *service.CertificateService
	notificationService *service.NotificationService
	log                 zerolog.Logger
}

// NewCertificateHandler creates a new CertificateHandler.
func NewCertificateHandler(
	certificateService *service.CertificateService,
	notificationService *service.NotificationService,
	log zerolog.Logger,
) *CertificateHandler {
	return &CertificateHandler{
		certificateService:  certificateService,
		notificationService: notificationService,
		log:                 log.With().Str("component", "certificate_handler").Logger(),
	}
}

// Apply godoc
// POST /api/certificate/apply
func (h *CertificateHandler) Apply(c *gin.Context) {
	studentID, ok := userID(c)
	if !ok {
		return
	}

	var req model.ApplyCertificateRequest
	if !bind(c, &req) {
		return
	}

	created, err := h.certificateService.Apply(c.Request.Context(), studentID, req.CourseID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusCreated,
		"Certificate request submitted. Your educator will review it shortly.",
		gin.H{"request": created})
}

// Status godoc
// GET /api/certificate/status/:courseId
// Data is {"request": null} when the student has not applied.
func (h *CertificateHandler) Status(c *gin.Context) {
	studentID, ok := userID(c)
	if !ok {
		return
	}

	req, err := h.certificateService.Status(c.Request.Context(), studentID, c.Param("courseId"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"request": req})
}

// ListRequests godoc
// GET /api/certificate/requests/:courseId
func (h *CertificateHandler) ListRequests(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	requests, err := h.certificateService.ListRequests(c.Request.Context(), educatorID, c.Param("courseId"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requests": requests})
}

// Approve godoc
// POST /api/certificate/approve
func (h *CertificateHandler) Approve(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	var req model.CertificateDecisionRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.certificateService.Approve(c.Request.Context(), educatorID, req.RequestID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	msg := "Certificate approved and email sent to the student."
	if !result.EmailSent {
		msg = "Certificate approved. The email could not be sent and will be retried."
	}
	response.SuccessWithMessage(c, http.StatusOK, msg, result)
}

// Reject godoc
// POST /api/certificate/reject
func (h *CertificateHandler) Reject(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	var req model.RejectCertificateRequest
	if !bind(c, &req) {
		return
	}

	rejected, err := h.certificateService.Reject(c.Request.Context(), educatorID, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "Certificate request rejected.", gin.H{"request": rejected})
}

// Resend godoc
// POST /api/certificate/resend
func (h *CertificateHandler) Resend(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	var req model.CertificateDecisionRequest
	if !bind(c, &req) {
		return
	}

	if err := h.certificateService.Resend(c.Request.Context(), educatorID, req.RequestID); err != nil {
		failService(c, h.log, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusAccepted, "Certificate email queued for delivery.", nil)
}

// Stats godoc
// GET /api/certificate/stats
func (h *CertificateHandler) Stats(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	stats, err := h.certificateService.Stats(c.Request.Context(), educatorID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if stats == nil {
		stats = []model.CourseCertificateStats{}
	}
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// TestEmail godoc
// POST /api/certificate/test-email
// Sends a diagnostic message through the configured transport.
func (h *CertificateHandler) TestEmail(c *gin.Context) {
	var req model.TestEmailRequest
	if !bind(c, &req) {
		return
	}

	if err := h.notificationService.SendTest(c.Request.Context(), req.Email); err != nil {
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrEmailFailed,
			fmt.Sprintf("Test email failed (%s).", mailer.CauseOf(err)))
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "Test email sent.", gin.H{"to": req.Email})
}
