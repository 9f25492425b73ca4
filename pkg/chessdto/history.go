package chessdto

import "time"

// ChessGame is an archived game as shown to clients.
type ChessGame struct {
	ID           int64     `json:"id"`
	SessionUUID  string    `json:"session_uuid"`
	HumanSide    string    `json:"human_side"`
	Opponent     string    `json:"opponent"`
	Level        int       `json:"level"`
	TimeControl  string    `json:"time_control"`
	Result       string    `json:"result"`
	ResultMethod string    `json:"result_method"`
	MovesSAN     []string  `json:"moves_san"`
	PGN          string    `json:"pgn"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationSec  int64     `json:"duration_sec"`
}
