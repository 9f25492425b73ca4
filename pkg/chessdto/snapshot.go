package chessdto

// Snapshot is the board state pushed to live subscribers.
type Snapshot struct {
	SessionID   string   `json:"session_id"`
	State       string   `json:"state"`
	FEN         string   `json:"fen"`
	Cursor      int      `json:"cursor"`
	Length      int      `json:"length"`
	Orientation string   `json:"orientation"`
	SideToMove  string   `json:"side_to_move"`
	HumanSide   string   `json:"human_side"`
	LastMove    []string `json:"last_move,omitempty"`
	Check       string   `json:"check,omitempty"`
	Evaluation  string   `json:"evaluation"`
	EvalPercent float64  `json:"eval_percent"`
	Opening     string   `json:"opening,omitempty"`
	BookMove    bool     `json:"book_move,omitempty"`
	Hint        string   `json:"hint,omitempty"`
	Clock       *Clock   `json:"clock,omitempty"`
	Result      string   `json:"result,omitempty"`
	Method      string   `json:"method,omitempty"`
	MovesSAN    []string `json:"moves_san"`
}

// Clock carries remaining seconds per side.
type Clock struct {
	White  int    `json:"white"`
	Black  int    `json:"black"`
	Active string `json:"active,omitempty"`
}

// Notice is a transient user-facing message.
type Notice struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Blocking bool   `json:"blocking,omitempty"`
}

// Frame is one websocket message; exactly one of Snapshot or Notice is set.
type Frame struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Notice   *Notice   `json:"notice,omitempty"`
}
