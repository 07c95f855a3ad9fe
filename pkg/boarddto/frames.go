// Package boarddto defines the JSON frames exchanged with the board widget
// over its WebSocket.
package boarddto

// Frame types sent by the board.
const (
	TypeNewGame = "new_game"
	TypeDrop    = "drop"
	TypeMoveEnd = "move_end"
	TypeSuggest = "suggest"
	TypeUndo    = "undo"
)

// Frame types sent to the board.
const (
	TypeOrientation = "orientation"
	TypePosition    = "position"
	TypeMoves       = "moves"
	TypeNotice      = "notice"
	TypeReload      = "reload"
	TypeSnapback    = "snapback"
	TypeError       = "error"
)

// Inbound is any frame the board sends; only the fields of its Type are set.
type Inbound struct {
	Type        string            `json:"type"`
	Orientation string            `json:"orientation,omitempty"`
	Source      string            `json:"source,omitempty"`
	Target      string            `json:"target,omitempty"`
	Piece       string            `json:"piece,omitempty"`
	Board       map[string]string `json:"board,omitempty"`
}

// Outbound is any frame sent to the board.
type Outbound struct {
	Type        string            `json:"type"`
	SessionID   string            `json:"session_id,omitempty"`
	Orientation string            `json:"orientation,omitempty"`
	FEN         string            `json:"fen,omitempty"`
	Board       map[string]string `json:"board,omitempty"`
	Moves       *Moves            `json:"moves,omitempty"`
	Notice      *Notice           `json:"notice,omitempty"`
	Source      string            `json:"source,omitempty"`
	Target      string            `json:"target,omitempty"`
	Error       *Error            `json:"error,omitempty"`
}

type Moves struct {
	Current  string `json:"current"`
	Previous string `json:"previous"`
}

type Notice struct {
	Kind string `json:"kind"`
	Key  string `json:"key,omitempty"`
	Text string `json:"text"`
	// Blocking asks the board to hold input until the user dismisses it.
	Blocking bool `json:"blocking,omitempty"`
}

// Error reports a rejected board command.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "board command failed"
}
