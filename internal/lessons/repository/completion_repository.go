package repository

import (
	"github.com/architect/chess-trainer/internal/common/database"
	"github.com/architect/chess-trainer/internal/common/errors"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/google/uuid"
)

// GetCompletions retrieves a learner's completions for a lesson, keyed
// by puzzle ID.
func GetCompletions(learnerID, lessonID uint) (map[uint]*models.Completion, error) {
	var rows []*models.Completion
	result := database.DB.Where("learner_id = ? AND lesson_id = ?", learnerID, lessonID).Find(&rows)
	if result.Error != nil {
		return nil, errors.Internal("failed to fetch completions", result.Error.Error())
	}

	completions := make(map[uint]*models.Completion, len(rows))
	for _, c := range rows {
		completions[c.PuzzleID] = c
	}
	return completions, nil
}

// UpsertCompletion records a completion if one does not already exist.
// Returns the row and whether it already existed; repeated completion
// of the same puzzle is a no-op.
func UpsertCompletion(learnerID uint, puzzle *models.Puzzle, attempts int) (*models.Completion, bool, error) {
	var existing models.Completion
	result := database.DB.Where("learner_id = ? AND puzzle_id = ?", learnerID, puzzle.ID).First(&existing)
	if result.Error == nil {
		return &existing, true, nil
	}

	completion := &models.Completion{
		LearnerID:      learnerID,
		PuzzleID:       puzzle.ID,
		LessonID:       puzzle.LessonID,
		Attempts:       attempts,
		IdempotencyKey: uuid.NewString(),
	}
	if err := database.DB.Create(completion).Error; err != nil {
		// A concurrent insert may have won the unique-index race.
		retry := database.DB.Where("learner_id = ? AND puzzle_id = ?", learnerID, puzzle.ID).First(&existing)
		if retry.Error == nil {
			return &existing, true, nil
		}
		return nil, false, errors.Internal("failed to record completion", err.Error())
	}
	return completion, false, nil
}

// DeleteCompletionsForLesson removes every learner's completions for a lesson
func DeleteCompletionsForLesson(lessonID uint) error {
	result := database.DB.Where("lesson_id = ?", lessonID).Delete(&models.Completion{})
	if result.Error != nil {
		return errors.Internal("failed to delete completions", result.Error.Error())
	}
	return nil
}

// DeleteCompletionsForPuzzle removes every learner's completions for a puzzle
func DeleteCompletionsForPuzzle(puzzleID uint) error {
	result := database.DB.Where("puzzle_id = ?", puzzleID).Delete(&models.Completion{})
	if result.Error != nil {
		return errors.Internal("failed to delete completions", result.Error.Error())
	}
	return nil
}

// CountCompletions returns how many puzzles of a lesson a learner has completed
func CountCompletions(learnerID, lessonID uint) (int64, error) {
	var total int64
	result := database.DB.Model(&models.Completion{}).
		Where("learner_id = ? AND lesson_id = ?", learnerID, lessonID).
		Count(&total)
	if result.Error != nil {
		return 0, errors.Internal("failed to count completions", result.Error.Error())
	}
	return total, nil
}
