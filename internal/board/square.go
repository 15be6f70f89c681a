package board

import (
	"github.com/notnil/chess"
)

// Square is a board square in algebraic notation ("a1".."h8").
type Square string

// Valid reports whether the square names a real board coordinate.
func (s Square) Valid() bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// File returns the zero-based file index (a=0 .. h=7).
func (s Square) File() int {
	return int(s[0] - 'a')
}

// Rank returns the zero-based rank index (1=0 .. 8=7).
func (s Square) Rank() int {
	return int(s[1] - '1')
}

// ChebyshevDistance is max(|Δfile|, |Δrank|): the number of king moves
// between two squares. Used as the acceptance filter for non-strict
// single-target puzzles.
func ChebyshevDistance(a, b Square) int {
	df := a.File() - b.File()
	if df < 0 {
		df = -df
	}
	dr := a.Rank() - b.Rank()
	if dr < 0 {
		dr = -dr
	}
	if df > dr {
		return df
	}
	return dr
}

// Side identifies the player to move, using FEN notation.
type Side string

const (
	SideWhite Side = "w"
	SideBlack Side = "b"
)

// Move is an (origin, destination) pair with an optional promotion piece
// ("q", "r", "b" or "n"). A move is only meaningful relative to a
// specific position.
type Move struct {
	From      Square `json:"from"`
	To        Square `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// Notation returns the move in origin+destination form, e.g. "e2e4" or
// "e7e8q".
func (m Move) Notation() string {
	return string(m.From) + string(m.To) + m.Promotion
}

func chessSquare(s Square) chess.Square {
	return chess.Square(s.Rank()*8 + s.File())
}

func promoPiece(p string) chess.PieceType {
	switch p {
	case "q":
		return chess.Queen
	case "r":
		return chess.Rook
	case "b":
		return chess.Bishop
	case "n":
		return chess.Knight
	default:
		return chess.NoPieceType
	}
}
