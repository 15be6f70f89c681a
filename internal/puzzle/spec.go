// Package puzzle implements the interactive puzzle engine: per-move
// classification against a puzzle's solution semantics, the board state
// machine, and the session controller that sequences a lesson's puzzles.
package puzzle

import (
	"errors"
	"fmt"

	"github.com/architect/chess-trainer/internal/board"
)

// SolutionKind selects how a puzzle is solved.
type SolutionKind string

const (
	// KindExactMove requires one specific move from the starting position.
	KindExactMove SolutionKind = "exact_move"
	// KindSingleTarget requires the final move to land on one target
	// square; intermediate moves that approach it are accepted.
	KindSingleTarget SolutionKind = "single_target"
	// KindMultiTarget requires capturing every target square, in any
	// order, with silent continuations in between.
	KindMultiTarget SolutionKind = "multi_target"
)

var ErrInvalidSpec = errors.New("invalid puzzle spec")

// Spec describes one exercise. Created server-side, fetched read-only;
// the engine never mutates it.
type Spec struct {
	ID          string         `json:"id"`
	Index       int            `json:"index"` // 1-based ordinal within the lesson
	Start       board.Position `json:"start"`
	Kind        SolutionKind   `json:"kind"`
	Solution    board.Move     `json:"solution,omitempty"`
	Target      board.Square   `json:"target,omitempty"`
	Targets     []board.Square `json:"targets,omitempty"`
	Hint        string         `json:"hint,omitempty"`
	Orientation board.Side     `json:"orientation,omitempty"`
	// Strict disables distance-based intermediate acceptance for this
	// puzzle regardless of the engine-wide option.
	Strict bool `json:"strict,omitempty"`
}

// Validate checks the spec is self-consistent before an engine is built
// around it.
func (s Spec) Validate() error {
	if s.Index < 1 {
		return fmt.Errorf("%w: index must be >= 1", ErrInvalidSpec)
	}
	if err := board.ValidatePosition(s.Start); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	switch s.Kind {
	case KindExactMove:
		if !s.Solution.From.Valid() || !s.Solution.To.Valid() {
			return fmt.Errorf("%w: exact-move puzzle needs a solution move", ErrInvalidSpec)
		}
	case KindSingleTarget:
		if !s.Target.Valid() {
			return fmt.Errorf("%w: single-target puzzle needs a target square", ErrInvalidSpec)
		}
	case KindMultiTarget:
		if len(s.Targets) == 0 {
			return fmt.Errorf("%w: multi-target puzzle needs target squares", ErrInvalidSpec)
		}
		seen := make(map[board.Square]bool, len(s.Targets))
		for _, t := range s.Targets {
			if !t.Valid() {
				return fmt.Errorf("%w: bad target square %q", ErrInvalidSpec, t)
			}
			if seen[t] {
				return fmt.Errorf("%w: duplicate target square %q", ErrInvalidSpec, t)
			}
			seen[t] = true
		}
	default:
		return fmt.Errorf("%w: unknown solution kind %q", ErrInvalidSpec, s.Kind)
	}

	return nil
}

// hintSquare returns the square a hint should reveal. Multi-target
// puzzles have no single hint square.
func (s Spec) hintSquare() board.Square {
	switch s.Kind {
	case KindExactMove:
		return s.Solution.To
	case KindSingleTarget:
		return s.Target
	}
	return ""
}
