package domain

import "time"

// ChessGame is a finished game as it is archived.
type ChessGame struct {
	ID           int64
	SessionUUID  string
	HumanSide    string
	Opponent     string
	Level        int
	TimeControl  string
	Result       string
	ResultMethod string
	StartFEN     string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
