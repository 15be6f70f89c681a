package handlers

import (
	"strconv"

	"github.com/architect/chess-trainer/internal/common/errors"
	"github.com/architect/chess-trainer/internal/common/middleware"
	"github.com/architect/chess-trainer/internal/common/validation"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/architect/chess-trainer/internal/lessons/services"
	"github.com/gin-gonic/gin"
)

// GetLessons retrieves all lessons
func GetLessons(c *gin.Context) {
	page := c.DefaultQuery("page", "1")
	pageSize := c.DefaultQuery("page_size", "20")

	pageNum, err := strconv.Atoi(page)
	if err != nil || pageNum < 1 {
		pageNum = 1
	}

	pageSizeNum, err := strconv.Atoi(pageSize)
	if err != nil || pageSizeNum < 1 || pageSizeNum > 100 {
		pageSizeNum = 20
	}

	result, err := services.GetLessons(pageNum, pageSizeNum)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(200, result)
}

// GetLessonPuzzles retrieves a lesson's ordered puzzle list with the
// learner's completion status
func GetLessonPuzzles(c *gin.Context) {
	slug := c.Param("slug")
	learnerID := middleware.LearnerID(c)

	result, err := services.FetchLessonPuzzles(learnerID, slug)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(200, result)
}

// CreateLesson creates a new lesson
func CreateLesson(c *gin.Context) {
	var req models.CreateLessonRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.JSONErrorResponse(c, errors.Validation("invalid request body", err.Error()))
		return
	}

	lesson, err := services.CreateLesson(req)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(201, lesson)
}

// CreatePuzzle adds a puzzle to a lesson
func CreatePuzzle(c *gin.Context) {
	slug := c.Param("slug")

	var req models.CreatePuzzleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.JSONErrorResponse(c, errors.Validation("invalid request body", err.Error()))
		return
	}

	puzzle, err := services.CreatePuzzle(slug, req)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(201, puzzle)
}

// MarkComplete records a puzzle completion
func MarkComplete(c *gin.Context) {
	slug := c.Param("slug")
	learnerID := middleware.LearnerID(c)

	var req models.MarkCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.JSONErrorResponse(c, errors.Validation("invalid request body", err.Error()))
		return
	}

	result, err := services.MarkComplete(learnerID, slug, req)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(200, result)
}

// DeleteLesson removes a lesson with its puzzles
func DeleteLesson(c *gin.Context) {
	slug := c.Param("slug")

	if err := services.DeleteLesson(slug); err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.Status(204)
}

// DeletePuzzle removes one puzzle from a lesson
func DeletePuzzle(c *gin.Context) {
	slug := c.Param("slug")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		middleware.JSONErrorResponse(c, errors.BadRequest("invalid puzzle index"))
		return
	}
	if err := validation.ValidateIntRange(index, 1, 10000); err != nil {
		middleware.JSONErrorResponse(c, errors.BadRequest("invalid puzzle index"))
		return
	}

	if err := services.DeletePuzzle(slug, index); err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.Status(204)
}

// RegisterRoutes wires the lesson API onto a router group.
func RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/lessons", GetLessons)
	group.GET("/lessons/:slug/puzzles", middleware.OptionalAuth(), GetLessonPuzzles)
	group.POST("/lessons", middleware.AuthRequired(), CreateLesson)
	group.POST("/lessons/:slug/puzzles", middleware.AuthRequired(), CreatePuzzle)
	group.POST("/lessons/:slug/complete", middleware.OptionalAuth(), MarkComplete)
	group.DELETE("/lessons/:slug", middleware.AuthRequired(), DeleteLesson)
	group.DELETE("/lessons/:slug/puzzles/:index", middleware.AuthRequired(), DeletePuzzle)
}
