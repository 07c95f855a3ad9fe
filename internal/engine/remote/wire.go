// Package remote carries the engine boundary over HTTP: a fasthttp client
// implementing engine.Boundary and the matching server handler.
package remote

const (
	PathMakeMove     = "/make_move"
	PathFindBestMove = "/find_best_move"
	PathCheckEndGame = "/check_end_game"
	PathHealth       = "/healthz"
)

// Request is the body of every boundary call; From and To are only used by
// make_move.
type Request struct {
	FEN  string `json:"fen"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Response carries the raw boundary reply unchanged.
type Response struct {
	Result string `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}
