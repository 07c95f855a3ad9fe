package engine

import (
	"strings"

	"github.com/park285/duchess-board/internal/position"
)

// Raw tokens returned across the boundary.
const (
	TokenIllegal        = "illegal"
	TokenIllegalInput   = "illegal_input"
	TokenNone           = "none"
	TokenDraw           = "draw"
	TokenCheckmateWhite = "checkmate white"
	TokenCheckmateBlack = "checkmate black"
)

// ReplyKind tags a move reply.
type ReplyKind int

const (
	ReplyUnrecoverable ReplyKind = iota
	ReplyPosition
	ReplyIllegal
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyPosition:
		return "position"
	case ReplyIllegal:
		return "illegal"
	default:
		return "unrecoverable"
	}
}

// MoveReply is a decoded reply of MakeMove or FindBestMove.
type MoveReply struct {
	Kind     ReplyKind
	Position position.Position
	Raw      string
}

// DecodeMoveReply classifies raw. Anything that is neither the illegal token
// nor a well-formed position is unrecoverable.
func DecodeMoveReply(raw string) MoveReply {
	text := strings.TrimSpace(raw)
	if text == TokenIllegal {
		return MoveReply{Kind: ReplyIllegal, Raw: raw}
	}
	pos, err := position.Parse(text)
	if err != nil {
		return MoveReply{Kind: ReplyUnrecoverable, Raw: raw}
	}
	return MoveReply{Kind: ReplyPosition, Position: pos, Raw: raw}
}

// Outcome tags an end-game reply.
type Outcome int

const (
	OutcomeUnrecoverable Outcome = iota
	OutcomeNone
	OutcomeDraw
	OutcomeCheckmate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeDraw:
		return "draw"
	case OutcomeCheckmate:
		return "checkmate"
	default:
		return "unrecoverable"
	}
}

// Terminal reports whether the game is over.
func (o Outcome) Terminal() bool { return o == OutcomeDraw || o == OutcomeCheckmate }

// EndGame is a decoded reply of CheckEndGame. Mated is set for checkmate.
type EndGame struct {
	Outcome Outcome
	Mated   position.Side
	Raw     string
}

// DecodeEndGame classifies raw into one of the documented outcomes.
func DecodeEndGame(raw string) EndGame {
	switch strings.TrimSpace(raw) {
	case TokenNone:
		return EndGame{Outcome: OutcomeNone, Raw: raw}
	case TokenDraw:
		return EndGame{Outcome: OutcomeDraw, Raw: raw}
	case TokenCheckmateWhite:
		return EndGame{Outcome: OutcomeCheckmate, Mated: position.White, Raw: raw}
	case TokenCheckmateBlack:
		return EndGame{Outcome: OutcomeCheckmate, Mated: position.Black, Raw: raw}
	default:
		return EndGame{Outcome: OutcomeUnrecoverable, Raw: raw}
	}
}

// EncodeEndGame is the inverse of DecodeEndGame for boundary implementations.
func EncodeEndGame(o Outcome, mated position.Side) string {
	switch o {
	case OutcomeNone:
		return TokenNone
	case OutcomeDraw:
		return TokenDraw
	case OutcomeCheckmate:
		if mated == position.Black {
			return TokenCheckmateBlack
		}
		return TokenCheckmateWhite
	default:
		return TokenIllegalInput
	}
}
