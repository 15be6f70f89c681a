// Package board wraps the chess ruleset behind a small oracle used by the
// puzzle engine: legality checks, move application and position resets.
// It is pure and synchronous; all I/O lives elsewhere.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// Position is an opaque FEN encoding of a full chess position: piece
// placement, side to move, castling rights, en-passant target and move
// counters.
type Position string

// StartingPosition is the standard initial chess position.
const StartingPosition Position = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidSide     = errors.New("invalid side")
)

// Oracle tracks one chess position and answers legality and application
// questions about it. Not safe for concurrent use; the puzzle engine
// serializes access.
type Oracle struct {
	game *chess.Game
}

// NewOracle creates an oracle tracking the given position.
func NewOracle(pos Position) (*Oracle, error) {
	o := &Oracle{}
	if err := o.Reset(pos); err != nil {
		return nil, err
	}
	return o, nil
}

// Position returns the tracked position.
func (o *Oracle) Position() Position {
	return Position(o.game.Position().String())
}

// SideToMove returns the side entitled to move in the tracked position.
func (o *Oracle) SideToMove() Side {
	if o.game.Position().Turn() == chess.White {
		return SideWhite
	}
	return SideBlack
}

// IsLegal reports whether the move is legal in the tracked position.
// It has no side effects.
func (o *Oracle) IsLegal(m Move) bool {
	return o.findLegal(m) != nil
}

// Apply plays a legal move and returns the resulting position with the
// side to move flipped normally. Returns ErrIllegalMove otherwise; the
// tracked position is then unchanged.
func (o *Oracle) Apply(m Move) (Position, error) {
	vm := o.findLegal(m)
	if vm == nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, m.Notation())
	}
	if err := o.game.Move(vm); err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, m.Notation())
	}
	return o.Position(), nil
}

// Reset replaces the tracked position wholesale. Used for puzzle
// (re)initialization and for the incorrect-move revert.
func (o *Oracle) Reset(pos Position) error {
	fenOpt, err := chess.FEN(string(pos))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	o.game = chess.NewGame(fenOpt)
	return nil
}

// ForceSideToMove rewrites only the side-to-move field of the tracked
// position, leaving piece placement untouched, and returns the result.
//
// This is a deliberate rules violation confined to puzzle mode: it lets
// one side play several consecutive moves inside a single exercise
// (teaching sequences, multi-target captures). The en-passant target is
// cleared because it cannot survive a turn handoff that never happened.
// Callers must re-derive legal moves from the returned position before
// accepting further input.
func (o *Oracle) ForceSideToMove(side Side) (Position, error) {
	if side != SideWhite && side != SideBlack {
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}

	fields := strings.Fields(string(o.Position()))
	if len(fields) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPosition, o.Position())
	}
	fields[1] = string(side)
	fields[3] = "-"

	forced := Position(strings.Join(fields, " "))
	if err := o.Reset(forced); err != nil {
		return "", err
	}
	return forced, nil
}

// findLegal locates the legal move matching the origin/destination pair.
// A promotion move submitted without a promotion piece defaults to queen.
func (o *Oracle) findLegal(m Move) *chess.Move {
	if !m.From.Valid() || !m.To.Valid() {
		return nil
	}

	from := chessSquare(m.From)
	to := chessSquare(m.To)

	for _, vm := range o.game.ValidMoves() {
		if vm.S1() != from || vm.S2() != to {
			continue
		}
		switch {
		case m.Promotion == "" && vm.Promo() == chess.NoPieceType:
			return vm
		case m.Promotion == "" && vm.Promo() == chess.Queen:
			return vm
		case m.Promotion != "" && vm.Promo() == promoPiece(m.Promotion):
			return vm
		}
	}
	return nil
}

// ValidatePosition checks that a FEN string parses as a chess position.
func ValidatePosition(pos Position) error {
	if _, err := chess.FEN(string(pos)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return nil
}
