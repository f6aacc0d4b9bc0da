package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/learnhub/lms-backend/internal/model"
)

const certificateHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Certificate of Completion</title>
<style>
body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background: #f4f6fb; margin: 0; padding: 0; color: #1f2937; }
.container { max-width: 600px; margin: 32px auto; background: #ffffff; border-radius: 10px; overflow: hidden; }
.header { background: #4f46e5; color: #ffffff; padding: 32px; text-align: center; }
.content { padding: 32px; line-height: 1.6; }
.row { display: flex; justify-content: space-between; border-bottom: 1px solid #e5e7eb; padding: 8px 0; }
.label { color: #6b7280; }
.cert-id { margin-top: 16px; padding: 12px; background: #eef2ff; font-family: monospace; text-align: center; }
.cta { display: inline-block; margin-top: 24px; padding: 12px 24px; background: #4f46e5; color: #ffffff; text-decoration: none; border-radius: 6px; }
.footer { padding: 20px; text-align: center; font-size: 12px; color: #6b7280; background: #f9fafb; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Certificate Awarded</h1>
    <p>Congratulations on your achievement!</p>
  </div>
  <div class="content">
    <h2>Dear {{.StudentName}},</h2>
    <p>Your certificate request has been approved.</p>
    <div class="row"><span class="label">Student Name</span><span>{{.StudentName}}</span></div>
    <div class="row"><span class="label">Course Completed</span><span>{{.CourseTitle}}</span></div>
    <div class="row"><span class="label">Date Issued</span><span>{{.IssueDate}}</span></div>
    <div class="cert-id">Certificate ID: {{.CertificateID}}</div>
    {{if .DashboardURL}}<p style="text-align:center"><a class="cta" href="{{.DashboardURL}}">View Your Certificate</a></p>{{end}}
    {{if .CertificateURL}}<p>Download: <a href="{{.CertificateURL}}">{{.CertificateURL}}</a></p>{{end}}
  </div>
  <div class="footer">
    <p>&copy; {{.Year}} Learning Management System. All rights reserved.</p>
    <p>This is an automated message. Please do not reply to this email.</p>
  </div>
</div>
</body>
</html>`

var certificateTmpl = template.Must(template.New("certificate").Parse(certificateHTML))

type certificateView struct {
	StudentName    string
	CourseTitle    string
	IssueDate      string
	Year           int
	CertificateID  string
	CertificateURL string
	DashboardURL   string
}

// RenderCertificateEmail builds the approval message for a student.
// dashboardURL may be empty, in which case the call-to-action is omitted.
func RenderCertificateEmail(e model.CertificateEmail, dashboardURL string) (Message, error) {
	issued := e.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	view := certificateView{
		StudentName:    e.StudentName,
		CourseTitle:    e.CourseTitle,
		IssueDate:      issued.Format("January 2, 2006"),
		Year:           issued.Year(),
		CertificateID:  e.CertificateID,
		CertificateURL: e.CertificateURL,
	}
	if dashboardURL != "" {
		view.DashboardURL = strings.TrimRight(dashboardURL, "/") + "/my-enrollments"
	}

	var buf bytes.Buffer
	if err := certificateTmpl.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render certificate email: %w", err)
	}

	return Message{
		ToAddress: e.StudentEmail,
		ToName:    e.StudentName,
		Subject:   "Certificate of Completion - " + e.CourseTitle,
		HTML:      buf.String(),
		Text: fmt.Sprintf("Congratulations %s! Your certificate for %q has been approved. Certificate ID: %s. Log in to your account to view and download your certificate.",
			e.StudentName, e.CourseTitle, e.CertificateID),
	}, nil
}

// RenderTestEmail builds the diagnostic message sent by the test-email endpoint.
func RenderTestEmail(to string, provider string) Message {
	return Message{
		ToAddress: to,
		Subject:   "Test email from Learning Management System",
		HTML:      "<p>This is a test email. Your mail transport <strong>" + template.HTMLEscapeString(provider) + "</strong> is working.</p>",
		Text:      "This is a test email. Your mail transport " + provider + " is working.",
	}
}
