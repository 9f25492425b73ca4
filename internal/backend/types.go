package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrRejected matches every *RejectedError.
var ErrRejected = errors.New("backend rejected request")

// RejectedError is a well-formed response with success=false.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return e.Op + ": rejected"
	}
	return e.Op + ": " + e.Message
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

type ConfirmRequest struct {
	Move string `json:"move"`
	FEN  string `json:"fen"`
}

type ConfirmResponse struct {
	Success bool   `json:"success"`
	FEN     string `json:"fen"`
	Error   string `json:"error,omitempty"`
}

type MoveRequest struct {
	FEN        string  `json:"fen"`
	Engine     string  `json:"engine"`
	SkillLevel int     `json:"skill_level"`
	TimeLimit  float64 `json:"time_limit"`
	Increment  *int    `json:"increment,omitempty"`
}

type MoveResponse struct {
	Success    bool      `json:"success"`
	MoveUCI    string    `json:"move_uci"`
	FEN        string    `json:"fen"`
	Evaluation ScoreText `json:"evaluation"`
	Error      string    `json:"error,omitempty"`
}

type EvaluateRequest struct {
	FEN string `json:"fen"`
}

type EngineResults struct {
	SearchScore ScoreText `json:"search_score"`
	BestMove    string    `json:"best_move"`
}

type EvaluateResponse struct {
	Success       bool          `json:"success"`
	EngineResults EngineResults `json:"engine_results"`
	Error         string        `json:"error,omitempty"`
}

type AnalyzeResponse struct {
	Success    bool   `json:"success"`
	FEN        string `json:"fen"`
	DebugImage string `json:"debug_image,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ChatRequest struct {
	Question   string   `json:"question"`
	FEN        string   `json:"fen"`
	PGN        string   `json:"pgn,omitempty"`
	Moves      []string `json:"moves,omitempty"`
	Evaluation string   `json:"evaluation,omitempty"`
	SideToMove string   `json:"side_to_move,omitempty"`
	Opening    string   `json:"opening,omitempty"`
}

// ScoreText accepts a score sent either as a JSON string ("M3", "+0.25") or
// as a bare number.
type ScoreText string

func (s *ScoreText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = ScoreText(text)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = ScoreText(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}
