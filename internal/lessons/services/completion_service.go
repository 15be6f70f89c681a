package services

import (
	"github.com/architect/chess-trainer/internal/common/errors"
	"github.com/architect/chess-trainer/internal/common/validation"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/architect/chess-trainer/internal/lessons/repository"
)

// MarkComplete records that a learner finished a puzzle and reports
// whether the whole lesson is now complete. Safe to call more than once
// for the same puzzle.
func MarkComplete(learnerID uint, slug string, req models.MarkCompleteRequest) (*models.MarkCompleteResponse, error) {
	if learnerID == 0 {
		return nil, errors.BadRequest("invalid learner ID")
	}
	if verrs := validation.Validate(req); verrs != nil {
		return nil, errors.Validation("invalid completion", validation.Describe(verrs))
	}

	lesson, err := repository.GetLessonBySlug(slug)
	if err != nil {
		return nil, err
	}

	puzzleRow, err := repository.GetPuzzleByLessonAndIndex(lesson.ID, req.PuzzleIndex)
	if err != nil {
		return nil, err
	}

	attempts := req.Attempts
	if attempts < 1 {
		attempts = 1
	}

	_, already, err := repository.UpsertCompletion(learnerID, puzzleRow, attempts)
	if err != nil {
		return nil, err
	}

	completed, err := repository.CountCompletions(learnerID, lesson.ID)
	if err != nil {
		return nil, err
	}
	total, err := repository.CountPuzzles(lesson.ID)
	if err != nil {
		return nil, err
	}

	return &models.MarkCompleteResponse{
		LessonComplete:   total > 0 && completed >= total,
		AlreadyCompleted: already,
		CompletedCount:   int(completed),
		TotalCount:       int(total),
	}, nil
}
