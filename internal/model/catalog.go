package model

// Course is the slice of an LMS course this service reads.
type Course struct {
	ID               string   `json:"id"`
	Title            string   `json:"courseTitle"`
	Thumbnail        string   `json:"courseThumbnail,omitempty"`
	EducatorID       string   `json:"educator"`
	TotalLectures    int      `json:"totalLectures"`
	EnrolledStudents []string `json:"-"`
}

// User is the LMS profile of a student or educator.
type User struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	ImageURL        string   `json:"imageUrl,omitempty"`
	EnrolledCourses []string `json:"-"`
}

// EducatorCourse is an owned course annotated with quiz presence.
type EducatorCourse struct {
	ID        string `json:"id"`
	Title     string `json:"courseTitle"`
	Thumbnail string `json:"courseThumbnail,omitempty"`
	HasQuiz   bool   `json:"hasQuiz"`
}

// CourseCompletion reports lecture progress for a (user, course) pair.
type CourseCompletion struct {
	IsCompleted bool    `json:"isCompleted"`
	Progress    string  `json:"progress"`
	Percentage  float64 `json:"percentage"`
	Completed   int     `json:"completedLectures"`
	Total       int     `json:"totalLectures"`
}

// CheckCompletionRequest is the payload for POST /quiz/check-course-completion.
type CheckCompletionRequest struct {
	CourseID string `json:"courseId" binding:"required,mongodb"`
}
