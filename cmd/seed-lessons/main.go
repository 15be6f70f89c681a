// Command seed-lessons loads a demo lesson into the database so the
// trainer can be exercised without an authoring UI.
package main

import (
	"log"

	"github.com/architect/chess-trainer/internal/common/database"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/architect/chess-trainer/internal/lessons/repository"
	"github.com/architect/chess-trainer/internal/lessons/services"
	"github.com/architect/chess-trainer/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.InitWithType(cfg.Database.Type, cfg.Database.DSN); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.DB.AutoMigrate(
		&database.Learner{},
		&models.Lesson{},
		&models.Puzzle{},
		&models.Completion{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if _, err := repository.GetLessonBySlug("first-steps"); err == nil {
		log.Println("Lesson 'first-steps' already seeded")
		return
	}

	if _, err := services.CreateLesson(models.CreateLessonRequest{
		Slug:        "first-steps",
		Title:       "First Steps",
		Description: "Three ways to solve a puzzle: the right move, the right square, and a capture tour.",
	}); err != nil {
		log.Fatalf("Failed to create lesson: %v", err)
	}

	puzzles := []models.CreatePuzzleRequest{
		{
			OrdinalIndex: 1,
			StartFEN:     "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			SolutionKind: "exact_move",
			SolutionFrom: "e2",
			SolutionTo:   "e4",
			HintText:     "Open with the king's pawn.",
		},
		{
			OrdinalIndex: 2,
			StartFEN:     "k7/8/8/5N2/8/8/8/K7 w - - 0 1",
			SolutionKind: "single_target",
			TargetSquare: "h6",
			HintText:     "Bring the knight to h6.",
		},
		{
			OrdinalIndex: 3,
			StartFEN:     "7k/8/8/1p1Q3p/8/8/8/K7 w - - 0 1",
			SolutionKind: "multi_target",
			Targets:      []string{"b5", "h5"},
		},
	}

	for _, req := range puzzles {
		if _, err := services.CreatePuzzle("first-steps", req); err != nil {
			log.Fatalf("Failed to create puzzle %d: %v", req.OrdinalIndex, err)
		}
	}

	log.Println("Seeded lesson 'first-steps' with 3 puzzles")
}
