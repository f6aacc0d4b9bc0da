package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CertificateStatus enumerates certificate request states.
type CertificateStatus string

const (
	CertificateStatusPending  CertificateStatus = "pending"
	CertificateStatusApproved CertificateStatus = "approved"
	CertificateStatusRejected CertificateStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s CertificateStatus) IsTerminal() bool {
	return s == CertificateStatusApproved || s == CertificateStatusRejected
}

// CertificateRequest records a student's request for a completion certificate.
type CertificateRequest struct {
	ID              uuid.UUID         `json:"id"`
	UserID          string            `json:"userId"`
	CourseID        string            `json:"courseId"`
	QuizAttemptID   *uuid.UUID        `json:"quizAttemptId,omitempty"`
	Status          CertificateStatus `json:"status"`
	CertificateID   string            `json:"certificateId"`
	CertificateURL  string            `json:"certificateUrl,omitempty"`
	AppliedAt       time.Time         `json:"appliedAt"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time        `json:"rejectedAt,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	DecidedBy       string            `json:"decidedBy,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// NewCertificateID builds "CERT-<unix millis>-<9 base36 chars>".
func NewCertificateID(now time.Time) string {
	return fmt.Sprintf("CERT-%d-%s", now.UnixMilli(), randomBase36(9))
}

// randomBase36 encodes random uuid bytes in base36. Sixteen bytes always yield
// at least sixteen characters, so n up to 16 is safe.
func randomBase36(n int) string {
	id := uuid.New()
	var b strings.Builder
	for _, by := range id[:] {
		b.WriteString(strconv.FormatUint(uint64(by), 36))
		if b.Len() >= n {
			break
		}
	}
	return strings.ToUpper(b.String()[:n])
}

// CertificateURL builds the deterministic download location of a certificate.
func CertificateURL(prefix, certificateID string) string {
	return strings.TrimRight(prefix, "/") + "/certificates/" + certificateID + ".pdf"
}

// ApplyCertificateRequest is the payload for POST /certificate/apply.
type ApplyCertificateRequest struct {
	CourseID string `json:"courseId" binding:"required,mongodb"`
}

// CertificateDecisionRequest is the payload for approve and resend.
type CertificateDecisionRequest struct {
	RequestID string `json:"requestId" binding:"required,uuid"`
}

// RejectCertificateRequest is the payload for POST /certificate/reject.
type RejectCertificateRequest struct {
	RequestID string `json:"requestId" binding:"required,uuid"`
	Reason    string `json:"reason" binding:"omitempty,max=500"`
}

// TestEmailRequest is the payload for POST /certificate/test-email.
type TestEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Requester is the student profile shown to educators.
type Requester struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// CertificateRequestView is a request enriched for the educator listing.
type CertificateRequestView struct {
	CertificateRequest
	Requester  Requester       `json:"requester"`
	QuizResult *AttemptSummary `json:"quizResult,omitempty"`
}

// ApprovalResult is returned after a successful approval or resend.
type ApprovalResult struct {
	Request   *CertificateRequest `json:"request"`
	EmailSent bool                `json:"emailSent"`
}

// CourseCertificateStats counts quiz passes against enrollment for one course.
type CourseCertificateStats struct {
	CourseID      string `json:"courseId"`
	CourseTitle   string `json:"courseTitle"`
	PassedCount   int    `json:"passedCount"`
	TotalEnrolled int    `json:"totalEnrolled"`
}
