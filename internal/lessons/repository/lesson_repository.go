package repository

import (
	goerrors "errors"

	"github.com/architect/chess-trainer/internal/common/database"
	"github.com/architect/chess-trainer/internal/common/errors"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"gorm.io/gorm"
)

// GetLessons retrieves lessons with pagination
func GetLessons(limit, offset int) ([]*models.Lesson, int64, error) {
	var lessons []*models.Lesson
	var total int64

	query := database.DB.Model(&models.Lesson{})
	query.Count(&total)

	result := query.Limit(limit).Offset(offset).Order("id").Find(&lessons)
	if result.Error != nil {
		return nil, 0, errors.Internal("failed to fetch lessons", result.Error.Error())
	}

	return lessons, total, nil
}

// GetLessonBySlug retrieves a lesson with its puzzles in ordinal order
func GetLessonBySlug(slug string) (*models.Lesson, error) {
	var lesson models.Lesson
	result := database.DB.Preload("Puzzles", func(db *gorm.DB) *gorm.DB {
		return db.Order("ordinal_index")
	}).Where("slug = ?", slug).First(&lesson)
	if result.Error != nil {
		if goerrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("lesson")
		}
		return nil, errors.Unavailable("lesson store unavailable", result.Error.Error())
	}
	return &lesson, nil
}

// CreateLesson creates a new lesson
func CreateLesson(lesson *models.Lesson) error {
	result := database.DB.Create(lesson)
	if result.Error != nil {
		return errors.Internal("failed to create lesson", result.Error.Error())
	}
	return nil
}

// DeleteLesson deletes a lesson and its puzzles
func DeleteLesson(id uint) error {
	result := database.DB.Delete(&models.Lesson{}, id)
	if result.Error != nil {
		return errors.Internal("failed to delete lesson", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("lesson")
	}
	return nil
}
