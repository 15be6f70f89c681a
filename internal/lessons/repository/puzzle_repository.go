package repository

import (
	goerrors "errors"

	"github.com/architect/chess-trainer/internal/common/database"
	"github.com/architect/chess-trainer/internal/common/errors"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"gorm.io/gorm"
)

// CreatePuzzle adds a puzzle to a lesson
func CreatePuzzle(puzzle *models.Puzzle) error {
	result := database.DB.Create(puzzle)
	if result.Error != nil {
		return errors.Internal("failed to create puzzle", result.Error.Error())
	}
	return nil
}

// GetPuzzleByLessonAndIndex retrieves a puzzle by its lesson and ordinal index
func GetPuzzleByLessonAndIndex(lessonID uint, ordinalIndex int) (*models.Puzzle, error) {
	var puzzle models.Puzzle
	result := database.DB.Where("lesson_id = ? AND ordinal_index = ?", lessonID, ordinalIndex).First(&puzzle)
	if result.Error != nil {
		if goerrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("puzzle")
		}
		return nil, errors.Unavailable("lesson store unavailable", result.Error.Error())
	}
	return &puzzle, nil
}

// CountPuzzles returns the number of puzzles in a lesson
func CountPuzzles(lessonID uint) (int64, error) {
	var total int64
	result := database.DB.Model(&models.Puzzle{}).Where("lesson_id = ?", lessonID).Count(&total)
	if result.Error != nil {
		return 0, errors.Internal("failed to count puzzles", result.Error.Error())
	}
	return total, nil
}

// DeletePuzzle deletes a puzzle
func DeletePuzzle(id uint) error {
	result := database.DB.Delete(&models.Puzzle{}, id)
	if result.Error != nil {
		return errors.Internal("failed to delete puzzle", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("puzzle")
	}
	return nil
}
