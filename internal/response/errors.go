package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden          ErrCode = "FORBIDDEN"
	ErrEducatorAccessOnly ErrCode = "EDUCATOR_ACCESS_ONLY"
	ErrNotCourseOwner     ErrCode = "NOT_COURSE_OWNER"
	ErrNotEnrolled        ErrCode = "NOT_ENROLLED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrCourseNotFound  ErrCode = "COURSE_NOT_FOUND"
	ErrQuizNotFound    ErrCode = "QUIZ_NOT_FOUND"
	ErrRequestNotFound ErrCode = "REQUEST_NOT_FOUND"
	ErrQuizExists      ErrCode = "QUIZ_EXISTS"
	ErrQuizInactive    ErrCode = "QUIZ_INACTIVE"

	// ─── Quiz attempts ─────────────────────────────────────────────────
	ErrMaxAttempts     ErrCode = "MAX_ATTEMPTS_REACHED"
	ErrAttemptConflict ErrCode = "ATTEMPT_CONFLICT"

	// ─── Certificates ──────────────────────────────────────────────────
	ErrQuizNotPassed      ErrCode = "QUIZ_NOT_PASSED"
	ErrAlreadyApplied     ErrCode = "ALREADY_APPLIED"
	ErrCourseNotCompleted ErrCode = "COURSE_NOT_COMPLETED"
	ErrRequestNotPending  ErrCode = "REQUEST_NOT_PENDING"
	ErrRequestNotApproved ErrCode = "REQUEST_NOT_APPROVED"
	ErrEmailFailed        ErrCode = "EMAIL_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authorization token is required."
	case ErrTokenInvalid:
		return "Authorization token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrEducatorAccessOnly:
		return "This endpoint is for educators only."
	case ErrNotCourseOwner:
		return "Unauthorized. You are not the educator of this course."
	case ErrNotEnrolled:
		return "You are not enrolled in this course."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "The submitted data is invalid."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Malformed request body."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrCourseNotFound:
		return "Course not found."
	case ErrQuizNotFound:
		return "No quiz found for this course."
	case ErrRequestNotFound:
		return "Certificate request not found."
	case ErrQuizExists:
		return "A quiz already exists for this course."
	case ErrQuizInactive:
		return "The quiz for this course is not active."

	// ─── Quiz attempts ─────────────────────────────────────────────────
	case ErrMaxAttempts:
		return "You have reached the maximum number of attempts for this quiz."
	case ErrAttemptConflict:
		return "Another submission for this attempt was recorded first."

	// ─── Certificates ──────────────────────────────────────────────────
	case ErrQuizNotPassed:
		return "You must pass the quiz before applying for a certificate."
	case ErrAlreadyApplied:
		return "You have already applied for a certificate for this course."
	case ErrCourseNotCompleted:
		return "You must complete all lectures before applying for a certificate."
	case ErrRequestNotPending:
		return "This certificate request has already been processed."
	case ErrRequestNotApproved:
		return "Only approved certificate requests can be resent."
	case ErrEmailFailed:
		return "The email could not be delivered."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."

	default:
		return "An unknown error occurred."
	}
}
