package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus enumerates notification delivery states.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// NotificationKindCertificateApproved is the only notification kind emitted today.
const NotificationKindCertificateApproved = "certificate_approved"

// CertificateEmail carries everything the approval email template needs.
type CertificateEmail struct {
	StudentName    string    `json:"studentName"`
	StudentEmail   string    `json:"studentEmail"`
	CourseTitle    string    `json:"courseTitle"`
	CertificateID  string    `json:"certificateId"`
	CertificateURL string    `json:"certificateUrl"`
	IssuedAt       time.Time `json:"issuedAt"`
}

// OutboxEntry is a durable notification waiting for, or done with, delivery.
type OutboxEntry struct {
	ID                   uuid.UUID        `json:"id"`
	CertificateRequestID uuid.UUID        `json:"certificateRequestId"`
	Kind                 string           `json:"kind"`
	Recipient            string           `json:"recipient"`
	Payload              CertificateEmail `json:"payload"`
	Status               OutboxStatus     `json:"status"`
	Attempts             int              `json:"attempts"`
	LastError            string           `json:"lastError,omitempty"`
	LastCause            string           `json:"lastCause,omitempty"`
	NextAttemptAt        time.Time        `json:"nextAttemptAt"`
	SentAt               *time.Time       `json:"sentAt,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}
