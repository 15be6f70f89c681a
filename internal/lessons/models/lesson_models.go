package models

import (
	"fmt"
	"time"
)

// Lesson represents an ordered collection of puzzles
type Lesson struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"unique;not null" json:"slug"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Puzzles     []Puzzle  `gorm:"constraint:OnDelete:CASCADE" json:"puzzles,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Puzzle represents one exercise within a lesson
type Puzzle struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LessonID     uint      `gorm:"not null;index;uniqueIndex:idx_lesson_ordinal" json:"lesson_id"`
	OrdinalIndex int       `gorm:"not null;uniqueIndex:idx_lesson_ordinal" json:"ordinal_index"`
	StartFEN     string    `gorm:"not null" json:"start_fen"`
	SolutionKind string    `gorm:"not null" json:"solution_kind"` // exact_move, single_target, multi_target
	SolutionFrom string    `json:"solution_from,omitempty"`
	SolutionTo   string    `json:"solution_to,omitempty"`
	SolutionProm string    `json:"solution_promotion,omitempty"`
	TargetSquare string    `json:"target_square,omitempty"`
	TargetList   string    `json:"target_list,omitempty"` // Comma-separated squares
	HintText     string    `json:"hint_text,omitempty"`
	Orientation  string    `gorm:"default:w" json:"orientation"`
	Strict       bool      `gorm:"default:false" json:"strict"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LessonPuzzleID returns a stable wire identifier for the puzzle.
func (p *Puzzle) LessonPuzzleID() string {
	return fmt.Sprintf("%d-%d", p.LessonID, p.OrdinalIndex)
}

// Completion records that a learner finished a puzzle. One row per
// learner+puzzle; repeated completion is a no-op.
type Completion struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	LearnerID      uint      `gorm:"not null;uniqueIndex:idx_learner_puzzle" json:"learner_id"`
	PuzzleID       uint      `gorm:"not null;uniqueIndex:idx_learner_puzzle" json:"puzzle_id"`
	LessonID       uint      `gorm:"not null;index" json:"lesson_id"`
	Attempts       int       `gorm:"default:1" json:"attempts"`
	IdempotencyKey string    `gorm:"unique" json:"idempotency_key"`
	CompletedAt    time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// CreateLessonRequest is the request body for creating a lesson
type CreateLessonRequest struct {
	Slug        string `json:"slug" binding:"required,min=1,max=64"`
	Title       string `json:"title" binding:"required,min=1,max=255"`
	Description string `json:"description"`
}

// CreatePuzzleRequest is the request body for adding a puzzle to a lesson
type CreatePuzzleRequest struct {
	OrdinalIndex int      `json:"ordinal_index" binding:"required,min=1"`
	StartFEN     string   `json:"start_fen" binding:"required"`
	SolutionKind string   `json:"solution_kind" binding:"required,oneof=exact_move single_target multi_target"`
	SolutionFrom string   `json:"solution_from"`
	SolutionTo   string   `json:"solution_to"`
	SolutionProm string   `json:"solution_promotion"`
	TargetSquare string   `json:"target_square"`
	Targets      []string `json:"targets"`
	HintText     string   `json:"hint_text"`
	Orientation  string   `json:"orientation"`
	Strict       bool     `json:"strict"`
}

// MarkCompleteRequest is the request body for recording a completion
type MarkCompleteRequest struct {
	PuzzleIndex int `json:"puzzle_index" binding:"required,min=1"`
	Attempts    int `json:"attempts" binding:"min=0"`
}

// MarkCompleteResponse reports the lesson's progress after a completion
type MarkCompleteResponse struct {
	LessonComplete   bool `json:"lesson_complete"`
	AlreadyCompleted bool `json:"already_completed"`
	CompletedCount   int  `json:"completed_count"`
	TotalCount       int  `json:"total_count"`
}

// PuzzleResponse is the wire form of one puzzle with learner progress
type PuzzleResponse struct {
	ID           string   `json:"id"`
	Index        int      `json:"index"`
	Start        string   `json:"start"`
	Kind         string   `json:"kind"`
	SolutionFrom string   `json:"solution_from,omitempty"`
	SolutionTo   string   `json:"solution_to,omitempty"`
	SolutionProm string   `json:"solution_promotion,omitempty"`
	Target       string   `json:"target,omitempty"`
	Targets      []string `json:"targets,omitempty"`
	Hint         string   `json:"hint,omitempty"`
	Orientation  string   `json:"orientation,omitempty"`
	Strict       bool     `json:"strict"`
	Completed    bool     `json:"completed"`
	Attempts     int      `json:"attempts"`
}

// LessonPuzzlesResponse is the wire form of a lesson fetch
type LessonPuzzlesResponse struct {
	LessonID       string           `json:"lesson_id"`
	Title          string           `json:"title"`
	TotalCount     int              `json:"total_count"`
	CompletedCount int              `json:"completed_count"`
	CurrentIndex   int              `json:"current_index"`
	Puzzles        []PuzzleResponse `json:"puzzles"`
}
