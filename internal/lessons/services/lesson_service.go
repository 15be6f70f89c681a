package services

import (
	"strings"

	"github.com/architect/chess-trainer/internal/board"
	"github.com/architect/chess-trainer/internal/common/database"
	"github.com/architect/chess-trainer/internal/common/errors"
	"github.com/architect/chess-trainer/internal/common/validation"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/architect/chess-trainer/internal/lessons/repository"
	"github.com/architect/chess-trainer/internal/puzzle"
)

// GetLessons retrieves lessons with pagination
func GetLessons(page, pageSize int) (*database.PaginatedResult, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	offset := (page - 1) * pageSize
	lessons, total, err := repository.GetLessons(pageSize, offset)
	if err != nil {
		return nil, err
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		totalPages++
	}

	return &database.PaginatedResult{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Data:       lessons,
	}, nil
}

// CreateLesson creates a new lesson
func CreateLesson(req models.CreateLessonRequest) (*models.Lesson, error) {
	if verrs := validation.Validate(req); verrs != nil {
		return nil, errors.Validation("invalid lesson", validation.Describe(verrs))
	}

	lesson := &models.Lesson{
		Slug:        strings.ToLower(strings.TrimSpace(req.Slug)),
		Title:       req.Title,
		Description: req.Description,
	}
	if err := validation.ValidateStringRange(lesson.Slug, 1, 64); err != nil {
		return nil, errors.BadRequest("lesson slug must be 1-64 characters")
	}
	if err := repository.CreateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// CreatePuzzle validates and adds a puzzle to a lesson. The starting
// position and solution descriptor are checked through the rules oracle
// so a malformed puzzle can never reach a learner.
func CreatePuzzle(slug string, req models.CreatePuzzleRequest) (*models.Puzzle, error) {
	if verrs := validation.Validate(req); verrs != nil {
		return nil, errors.Validation("invalid puzzle", validation.Describe(verrs))
	}

	lesson, err := repository.GetLessonBySlug(slug)
	if err != nil {
		return nil, err
	}

	row := &models.Puzzle{
		LessonID:     lesson.ID,
		OrdinalIndex: req.OrdinalIndex,
		StartFEN:     strings.TrimSpace(req.StartFEN),
		SolutionKind: req.SolutionKind,
		SolutionFrom: req.SolutionFrom,
		SolutionTo:   req.SolutionTo,
		SolutionProm: req.SolutionProm,
		TargetSquare: req.TargetSquare,
		TargetList:   strings.Join(req.Targets, ","),
		HintText:     req.HintText,
		Orientation:  req.Orientation,
		Strict:       req.Strict,
	}
	if row.Orientation == "" {
		row.Orientation = string(board.SideWhite)
	}

	spec := SpecFromModel(row)
	if err := spec.Validate(); err != nil {
		return nil, errors.Validation("invalid puzzle", err.Error())
	}
	if spec.Kind == puzzle.KindExactMove {
		oracle, err := board.NewOracle(spec.Start)
		if err != nil {
			return nil, errors.Validation("invalid puzzle", err.Error())
		}
		if !oracle.IsLegal(spec.Solution) {
			return nil, errors.Validation("invalid puzzle",
				"solution move is not legal in the starting position")
		}
	}

	if err := repository.CreatePuzzle(row); err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteLesson removes a lesson with its puzzles and completion history.
func DeleteLesson(slug string) error {
	lesson, err := repository.GetLessonBySlug(slug)
	if err != nil {
		return err
	}
	if err := repository.DeleteCompletionsForLesson(lesson.ID); err != nil {
		return err
	}
	return repository.DeleteLesson(lesson.ID)
}

// DeletePuzzle removes one puzzle and its completion history. Ordinal
// indexes of the remaining puzzles are left untouched.
func DeletePuzzle(slug string, ordinalIndex int) error {
	lesson, err := repository.GetLessonBySlug(slug)
	if err != nil {
		return err
	}
	row, err := repository.GetPuzzleByLessonAndIndex(lesson.ID, ordinalIndex)
	if err != nil {
		return err
	}
	if err := repository.DeleteCompletionsForPuzzle(row.ID); err != nil {
		return err
	}
	return repository.DeletePuzzle(row.ID)
}

// FetchLessonPuzzles assembles the lesson fetch response: the ordered
// puzzle list, the learner's completion status, and the current index
// (first uncompleted puzzle).
func FetchLessonPuzzles(learnerID uint, slug string) (*models.LessonPuzzlesResponse, error) {
	lesson, err := repository.GetLessonBySlug(slug)
	if err != nil {
		return nil, err
	}

	completions, err := repository.GetCompletions(learnerID, lesson.ID)
	if err != nil {
		return nil, err
	}

	resp := &models.LessonPuzzlesResponse{
		LessonID:   lesson.Slug,
		Title:      lesson.Title,
		TotalCount: len(lesson.Puzzles),
		Puzzles:    make([]models.PuzzleResponse, 0, len(lesson.Puzzles)),
	}

	currentIndex := 0
	for _, p := range lesson.Puzzles {
		completion := completions[p.ID]
		pr := PuzzleToResponse(&p)
		if completion != nil {
			pr.Completed = true
			pr.Attempts = completion.Attempts
			resp.CompletedCount++
		} else if currentIndex == 0 {
			currentIndex = p.OrdinalIndex
		}
		resp.Puzzles = append(resp.Puzzles, pr)
	}
	if currentIndex == 0 {
		currentIndex = 1
	}
	resp.CurrentIndex = currentIndex

	return resp, nil
}

// SpecFromModel converts a stored puzzle row into the engine's spec form.
func SpecFromModel(p *models.Puzzle) puzzle.Spec {
	spec := puzzle.Spec{
		ID:          p.LessonPuzzleID(),
		Index:       p.OrdinalIndex,
		Start:       board.Position(p.StartFEN),
		Kind:        puzzle.SolutionKind(p.SolutionKind),
		Hint:        p.HintText,
		Orientation: board.Side(p.Orientation),
		Strict:      p.Strict,
	}
	switch spec.Kind {
	case puzzle.KindExactMove:
		spec.Solution = board.Move{
			From:      board.Square(p.SolutionFrom),
			To:        board.Square(p.SolutionTo),
			Promotion: p.SolutionProm,
		}
	case puzzle.KindSingleTarget:
		spec.Target = board.Square(p.TargetSquare)
	case puzzle.KindMultiTarget:
		for _, t := range strings.Split(p.TargetList, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				spec.Targets = append(spec.Targets, board.Square(t))
			}
		}
	}
	return spec
}

// PuzzleToResponse converts a stored puzzle row into its wire form.
func PuzzleToResponse(p *models.Puzzle) models.PuzzleResponse {
	pr := models.PuzzleResponse{
		ID:           p.LessonPuzzleID(),
		Index:        p.OrdinalIndex,
		Start:        p.StartFEN,
		Kind:         p.SolutionKind,
		SolutionFrom: p.SolutionFrom,
		SolutionTo:   p.SolutionTo,
		SolutionProm: p.SolutionProm,
		Target:       p.TargetSquare,
		Hint:         p.HintText,
		Orientation:  p.Orientation,
		Strict:       p.Strict,
	}
	if p.TargetList != "" {
		for _, t := range strings.Split(p.TargetList, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				pr.Targets = append(pr.Targets, t)
			}
		}
	}
	return pr
}
