package services

import (
	"sync"
	"testing"

	"github.com/architect/chess-trainer/internal/common/database"
	apperrors "github.com/architect/chess-trainer/internal/common/errors"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/architect/chess-trainer/internal/puzzle"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var setupOnce sync.Once

// setupTestDB opens one shared in-memory database for the package. The
// shared cache keeps every pooled connection on the same store.
func setupTestDB(t *testing.T) {
	t.Helper()
	setupOnce.Do(func() {
		if err := database.InitWithType("sqlite", "file::memory:?cache=shared"); err != nil {
			t.Fatalf("failed to open test database: %v", err)
		}
		if err := database.DB.AutoMigrate(
			&database.Learner{},
			&models.Lesson{},
			&models.Puzzle{},
			&models.Completion{},
		); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	})
}

func uniqueSlug() string {
	return "lesson-" + uuid.NewString()[:8]
}

func seedLesson(t *testing.T, slug string, puzzles ...models.CreatePuzzleRequest) *models.Lesson {
	t.Helper()
	lesson, err := CreateLesson(models.CreateLessonRequest{
		Slug:  slug,
		Title: "Test Lesson",
	})
	assert.NoError(t, err)
	for _, req := range puzzles {
		_, err := CreatePuzzle(slug, req)
		assert.NoError(t, err)
	}
	return lesson
}

func exactMovePuzzle(index int) models.CreatePuzzleRequest {
	return models.CreatePuzzleRequest{
		OrdinalIndex: index,
		StartFEN:     "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		SolutionKind: "exact_move",
		SolutionFrom: "e2",
		SolutionTo:   "e4",
		HintText:     "Open with the king's pawn.",
	}
}

func TestCreateLesson_NormalizesSlug(t *testing.T) {
	setupTestDB(t)

	slug := uniqueSlug()
	lesson, err := CreateLesson(models.CreateLessonRequest{
		Slug:  "  " + slug + "  ",
		Title: "Knight Tours",
	})

	assert.NoError(t, err)
	assert.Equal(t, slug, lesson.Slug)
	assert.NotZero(t, lesson.ID)
}

func TestCreateLesson_RejectsBlankSlug(t *testing.T) {
	setupTestDB(t)

	_, err := CreateLesson(models.CreateLessonRequest{Slug: "   ", Title: "Nameless"})

	assert.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	assert.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
}

func TestCreatePuzzle_StoresAllKinds(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug)

	row, err := CreatePuzzle(slug, exactMovePuzzle(1))
	assert.NoError(t, err)
	assert.Equal(t, "w", row.Orientation)

	_, err = CreatePuzzle(slug, models.CreatePuzzleRequest{
		OrdinalIndex: 2,
		StartFEN:     "k7/8/8/5N2/8/8/8/K7 w - - 0 1",
		SolutionKind: "single_target",
		TargetSquare: "h6",
	})
	assert.NoError(t, err)

	multi, err := CreatePuzzle(slug, models.CreatePuzzleRequest{
		OrdinalIndex: 3,
		StartFEN:     "7k/8/8/1p1Q3p/8/8/8/K7 w - - 0 1",
		SolutionKind: "multi_target",
		Targets:      []string{"b5", "h5"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "b5,h5", multi.TargetList)

	spec := SpecFromModel(multi)
	assert.Equal(t, puzzle.KindMultiTarget, spec.Kind)
	assert.Len(t, spec.Targets, 2)
	assert.NoError(t, spec.Validate())
}

func TestCreatePuzzle_RejectsMalformedPosition(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug)

	req := exactMovePuzzle(1)
	req.StartFEN = "this is not a position"
	_, err := CreatePuzzle(slug, req)

	assert.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	assert.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
}

func TestCreatePuzzle_RejectsIllegalSolution(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug)

	req := exactMovePuzzle(1)
	req.SolutionFrom = "e2"
	req.SolutionTo = "e5"
	_, err := CreatePuzzle(slug, req)

	assert.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	assert.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
}

func TestCreatePuzzle_RejectsDuplicateTargets(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug)

	_, err := CreatePuzzle(slug, models.CreatePuzzleRequest{
		OrdinalIndex: 1,
		StartFEN:     "7k/8/8/1p1Q3p/8/8/8/K7 w - - 0 1",
		SolutionKind: "multi_target",
		Targets:      []string{"b5", "b5"},
	})

	assert.Error(t, err)
}

func TestCreatePuzzle_UnknownLesson(t *testing.T) {
	setupTestDB(t)

	_, err := CreatePuzzle("no-such-lesson-"+uuid.NewString()[:8], exactMovePuzzle(1))

	assert.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	assert.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
}

func TestFetchLessonPuzzles_FreshLearner(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1), exactMovePuzzle(2), exactMovePuzzle(3))

	resp, err := FetchLessonPuzzles(701, slug)

	assert.NoError(t, err)
	assert.Equal(t, slug, resp.LessonID)
	assert.Equal(t, 3, resp.TotalCount)
	assert.Equal(t, 0, resp.CompletedCount)
	assert.Equal(t, 1, resp.CurrentIndex)
	assert.Len(t, resp.Puzzles, 3)
	// Ordinal order regardless of insertion order.
	for i, p := range resp.Puzzles {
		assert.Equal(t, i+1, p.Index)
		assert.False(t, p.Completed)
	}
}

func TestFetchLessonPuzzles_ResumesAtFirstUncompleted(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1), exactMovePuzzle(2), exactMovePuzzle(3))
	learnerID := uint(702)

	_, err := MarkComplete(learnerID, slug, models.MarkCompleteRequest{PuzzleIndex: 1, Attempts: 2})
	assert.NoError(t, err)

	resp, err := FetchLessonPuzzles(learnerID, slug)

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.CompletedCount)
	assert.Equal(t, 2, resp.CurrentIndex)
	assert.True(t, resp.Puzzles[0].Completed)
	assert.Equal(t, 2, resp.Puzzles[0].Attempts)
	assert.False(t, resp.Puzzles[1].Completed)
}

func TestFetchLessonPuzzles_CompletionsArePerLearner(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1), exactMovePuzzle(2))

	_, err := MarkComplete(703, slug, models.MarkCompleteRequest{PuzzleIndex: 1, Attempts: 1})
	assert.NoError(t, err)

	resp, err := FetchLessonPuzzles(704, slug)

	assert.NoError(t, err)
	assert.Equal(t, 0, resp.CompletedCount)
	assert.Equal(t, 1, resp.CurrentIndex)
}

func TestMarkComplete_Progression(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1), exactMovePuzzle(2))
	learnerID := uint(705)

	resp, err := MarkComplete(learnerID, slug, models.MarkCompleteRequest{PuzzleIndex: 1, Attempts: 3})
	assert.NoError(t, err)
	assert.False(t, resp.LessonComplete)
	assert.False(t, resp.AlreadyCompleted)
	assert.Equal(t, 1, resp.CompletedCount)
	assert.Equal(t, 2, resp.TotalCount)

	resp, err = MarkComplete(learnerID, slug, models.MarkCompleteRequest{PuzzleIndex: 2, Attempts: 1})
	assert.NoError(t, err)
	assert.True(t, resp.LessonComplete)
	assert.Equal(t, 2, resp.CompletedCount)
}

func TestMarkComplete_Idempotent(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1))
	learnerID := uint(706)

	first, err := MarkComplete(learnerID, slug, models.MarkCompleteRequest{PuzzleIndex: 1, Attempts: 4})
	assert.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)

	second, err := MarkComplete(learnerID, slug, models.MarkCompleteRequest{PuzzleIndex: 1, Attempts: 9})
	assert.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, 1, second.CompletedCount)

	// The original attempt count survives the repeat.
	resp, err := FetchLessonPuzzles(learnerID, slug)
	assert.NoError(t, err)
	assert.Equal(t, 4, resp.Puzzles[0].Attempts)
}

func TestMarkComplete_ZeroAttemptsFloorsToOne(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1))
	learnerID := uint(707)

	_, err := MarkComplete(learnerID, slug, models.MarkCompleteRequest{PuzzleIndex: 1, Attempts: 0})
	assert.NoError(t, err)

	resp, err := FetchLessonPuzzles(learnerID, slug)
	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Puzzles[0].Attempts)
}

func TestMarkComplete_UnknownPuzzleIndex(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1))

	_, err := MarkComplete(708, slug, models.MarkCompleteRequest{PuzzleIndex: 9, Attempts: 1})

	assert.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	assert.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
}

func TestMarkComplete_RejectsAnonymousLearner(t *testing.T) {
	setupTestDB(t)
	slug := uniqueSlug()
	seedLesson(t, slug, exactMovePuzzle(1))

	_, err := MarkComplete(0, slug, models.MarkCompleteRequest{PuzzleIndex: 1, Attempts: 1})

	assert.Error(t, err)
}

func TestGetLessons_Pagination(t *testing.T) {
	setupTestDB(t)
	seedLesson(t, uniqueSlug())
	seedLesson(t, uniqueSlug())

	result, err := GetLessons(1, 1)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.PageSize)
	assert.GreaterOrEqual(t, result.Total, int64(2))
	lessons, ok := result.Data.([]*models.Lesson)
	assert.True(t, ok)
	assert.Len(t, lessons, 1)
}
