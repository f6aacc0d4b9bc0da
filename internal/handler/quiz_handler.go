package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/lms-backend/internal/model"
	"github.com/learnhub/lms-backend/internal/response"
	"github.com/learnhub/lms-backend/internal/service"
	"github.com/rs/zerolog"
)

// QuizHandler serves quiz authoring and attempt endpoints.
type QuizHandler struct {
	quizService *service.QuizService
	log         zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		log:         log.With().Str("component", "quiz_handler").Logger(),
	}
}

// Create godoc
// POST /api/quiz/create
func (h *QuizHandler) Create(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	var req model.CreateQuizRequest
	if !bind(c, &req) {
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), educatorID, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusCreated, "Quiz created successfully", gin.H{"quiz": quiz})
}

// GetForEducator godoc
// GET /api/quiz/course/:courseId
func (h *QuizHandler) GetForEducator(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.GetForEducator(c.Request.Context(), educatorID, c.Param("courseId"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// Update godoc
// POST /api/quiz/update
func (h *QuizHandler) Update(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	var req model.UpdateQuizRequest
	if !bind(c, &req) {
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), educatorID, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "Quiz updated successfully", gin.H{"quiz": quiz})
}

// Delete godoc
// POST /api/quiz/delete
func (h *QuizHandler) Delete(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	var req model.DeleteQuizRequest
	if !bind(c, &req) {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), educatorID, req.QuizID); err != nil {
		failService(c, h.log, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "Quiz deleted successfully", nil)
}

// EducatorCourses godoc
// GET /api/quiz/educator-courses
func (h *QuizHandler) EducatorCourses(c *gin.Context) {
	educatorID, ok := userID(c)
	if !ok {
		return
	}

	courses, err := h.quizService.EducatorCourses(c.Request.Context(), educatorID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if courses == nil {
		courses = []model.EducatorCourse{}
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// GetForStudent godoc
// GET /api/quiz/student/:courseId
// Returns the quiz without correct-answer markings.
func (h *QuizHandler) GetForStudent(c *gin.Context) {
	studentID, ok := userID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.GetForStudent(c.Request.Context(), studentID, c.Param("courseId"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// Submit godoc
// POST /api/quiz/submit
func (h *QuizHandler) Submit(c *gin.Context) {
	studentID, ok := userID(c)
	if !ok {
		return
	}

	var req model.SubmitQuizRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.quizService.Submit(c.Request.Context(), studentID, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	msg := "Quiz submitted. You did not reach the passing score."
	if result.Passed {
		msg = "Congratulations! You passed the quiz."
	}
	response.SuccessWithMessage(c, http.StatusOK, msg, result)
}

// Results godoc
// GET /api/quiz/results/:courseId
func (h *QuizHandler) Results(c *gin.Context) {
	studentID, ok := userID(c)
	if !ok {
		return
	}

	results, err := h.quizService.Results(c.Request.Context(), studentID, c.Param("courseId"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// CheckCourseCompletion godoc
// POST /api/quiz/check-course-completion
func (h *QuizHandler) CheckCourseCompletion(c *gin.Context) {
	studentID, ok := userID(c)
	if !ok {
		return
	}

	var req model.CheckCompletionRequest
	if !bind(c, &req) {
		return
	}

	completion, err := h.quizService.CheckCourseCompletion(c.Request.Context(), studentID, req.CourseID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, completion)
}
