// Package position converts between the board widget's structured board and
// the FEN exchange format understood by the engine boundary.
package position

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies a colour, also used for board orientation.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Black {
		return White
	}
	return Black
}

// Valid reports whether s is one of the two sides.
func (s Side) Valid() bool { return s == White || s == Black }

// ParseSide accepts white|w|black|b in any case.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, raw)
	}
}

func sideFromToken(tok string) (Side, bool) {
	switch tok {
	case "w":
		return White, true
	case "b":
		return Black, true
	default:
		return "", false
	}
}

func (s Side) token() string {
	if s == Black {
		return "b"
	}
	return "w"
}

// FixedCastling is appended to every widget-side encoding.
const FixedCastling = "KQkq"

// Position is an exchange-format value. Both the short form
// "placement side castling" and the full six-field FEN are accepted.
type Position string

// Start is the canonical start encoding.
const Start Position = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq"

var (
	ErrInvalidSide     = errors.New("invalid side")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidSquare   = errors.New("invalid square")
	ErrInvalidPiece    = errors.New("invalid piece code")
)

func (p Position) String() string { return string(p) }

// IsZero reports whether p is absent.
func (p Position) IsZero() bool { return strings.TrimSpace(string(p)) == "" }

// Parse validates raw as a position and returns it trimmed.
func Parse(raw string) (Position, error) {
	fields := strings.Fields(raw)
	if len(fields) < 3 || len(fields) > 6 {
		return "", fmt.Errorf("%w: expected 3-6 fields, got %d", ErrInvalidPosition, len(fields))
	}
	if err := checkPlacement(fields[0]); err != nil {
		return "", err
	}
	if _, ok := sideFromToken(fields[1]); !ok {
		return "", fmt.Errorf("%w: side to move %q", ErrInvalidPosition, fields[1])
	}
	if !validCastling(fields[2]) {
		return "", fmt.Errorf("%w: castling %q", ErrInvalidPosition, fields[2])
	}
	p := Position(strings.Join(fields, " "))
	if _, err := p.game(); err != nil {
		return "", err
	}
	return p, nil
}

// Placement returns the piece placement field.
func (p Position) Placement() string {
	fields := strings.Fields(string(p))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SideToMove returns the side whose turn it is.
func (p Position) SideToMove() (Side, error) {
	fields := strings.Fields(string(p))
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: missing side to move", ErrInvalidPosition)
	}
	side, ok := sideFromToken(fields[1])
	if !ok {
		return "", fmt.Errorf("%w: side to move %q", ErrInvalidPosition, fields[1])
	}
	return side, nil
}

// Full normalises p into a six-field FEN.
func (p Position) Full() string {
	fields := strings.Fields(string(p))
	defaults := []string{"", "w", FixedCastling, "-", "0", "1"}
	for len(fields) < len(defaults) {
		fields = append(fields, defaults[len(fields)])
	}
	return strings.Join(fields, " ")
}

// Board decodes p into the widget's structured board.
func (p Position) Board() (Board, error) {
	game, err := p.game()
	if err != nil {
		return nil, err
	}
	out := make(Board)
	for sq, piece := range game.Position().Board().SquareMap() {
		code, ok := codeByPiece[piece]
		if !ok {
			continue
		}
		out[sq.String()] = code
	}
	return out, nil
}

func (p Position) game() (*nchess.Game, error) {
	opt, err := nchess.FEN(p.Full())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return nchess.NewGame(opt), nil
}

func checkPlacement(field string) error {
	ranks := strings.Split(field, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: expected 8 ranks, got %d", ErrInvalidPosition, len(ranks))
	}
	for i, rank := range ranks {
		width := 0
		for _, r := range rank {
			switch {
			case r >= '1' && r <= '8':
				width += int(r - '0')
			case strings.ContainsRune("kqrbnpKQRBNP", r):
				width++
			default:
				return fmt.Errorf("%w: rank %d has %q", ErrInvalidPosition, 8-i, r)
			}
		}
		if width != 8 {
			return fmt.Errorf("%w: rank %d spans %d squares", ErrInvalidPosition, 8-i, width)
		}
	}
	return nil
}

func validCastling(field string) bool {
	if field == "-" {
		return true
	}
	if field == "" || len(field) > 4 {
		return false
	}
	for _, r := range field {
		if !strings.ContainsRune(FixedCastling, r) {
			return false
		}
	}
	return true
}
