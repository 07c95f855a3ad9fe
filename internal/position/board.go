package position

import (
	"fmt"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Board is the widget's structured board: square ("e2") to piece code ("wP").
type Board map[string]string

var (
	pieceByCode = map[string]nchess.Piece{
		"wK": nchess.WhiteKing,
		"wQ": nchess.WhiteQueen,
		"wR": nchess.WhiteRook,
		"wB": nchess.WhiteBishop,
		"wN": nchess.WhiteKnight,
		"wP": nchess.WhitePawn,
		"bK": nchess.BlackKing,
		"bQ": nchess.BlackQueen,
		"bR": nchess.BlackRook,
		"bB": nchess.BlackBishop,
		"bN": nchess.BlackKnight,
		"bP": nchess.BlackPawn,
	}
	codeByPiece = func() map[nchess.Piece]string {
		m := make(map[nchess.Piece]string, len(pieceByCode))
		for code, p := range pieceByCode {
			m[p] = code
		}
		return m
	}()
	squareByName = func() map[string]nchess.Square {
		m := make(map[string]nchess.Square, 64)
		for i := 0; i < 64; i++ {
			sq := nchess.Square(i)
			m[sq.String()] = sq
		}
		return m
	}()
)

// ValidSquare reports whether name is an algebraic square a1..h8.
func ValidSquare(name string) bool {
	_, ok := squareByName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// PieceSide returns the colour of a piece code such as "bN".
func PieceSide(code string) (Side, error) {
	if _, ok := pieceByCode[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPiece, code)
	}
	if code[0] == 'b' {
		return Black, nil
	}
	return White, nil
}

// Squares returns the occupied squares in sorted order.
func (b Board) Squares() []string {
	out := make([]string, 0, len(b))
	for sq := range b {
		out = append(out, sq)
	}
	sort.Strings(out)
	return out
}

// Encode builds the exchange-format string for board after the piece moved
// was played. The side to move is the opposite of the mover's colour and the
// castling field is always FixedCastling.
func Encode(board Board, moved string) (Position, error) {
	mover, err := PieceSide(moved)
	if err != nil {
		return "", err
	}
	placement, err := encodePlacement(board)
	if err != nil {
		return "", err
	}
	return Position(placement + " " + mover.Opposite().token() + " " + FixedCastling), nil
}

func encodePlacement(board Board) (string, error) {
	squares := make(map[nchess.Square]nchess.Piece, len(board))
	for name, code := range board {
		sq, ok := squareByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidSquare, name)
		}
		piece, ok := pieceByCode[code]
		if !ok {
			return "", fmt.Errorf("%w: %q on %s", ErrInvalidPiece, code, name)
		}
		squares[sq] = piece
	}
	return nchess.NewBoard(squares).String(), nil
}
