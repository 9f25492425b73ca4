package position

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/Cheese-chess-client/internal/history"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrInvalidFEN  = errors.New("invalid fen")
	ErrMissingKing = errors.New("position must have exactly one king per side")
	ErrInvalidPGN  = errors.New("invalid pgn")
)

const (
	files = "abcdefgh"
	ranks = "12345678"
)

var (
	bookOnce sync.Once
	book     *opening.BookECO
)

func ecoBook() *opening.BookECO {
	bookOnce.Do(func() { book = opening.NewBookECO() })
	return book
}

// Applied is the outcome of playing one move on a position.
type Applied struct {
	FEN    string
	SAN    string
	UCI    string
	From   string
	To     string
	Status history.Status
	Check  bool
}

// Ply converts the applied move into a history record.
func (a Applied) Ply() history.Ply {
	return history.Ply{
		FEN:    a.FEN,
		SAN:    a.SAN,
		UCI:    a.UCI,
		Status: a.Status,
		Check:  a.Check,
	}
}

// Engine answers rule questions about FEN positions. It holds no game state;
// every call rebuilds what it needs from the FEN it is given.
type Engine struct{}

func New() *Engine { return &Engine{} }

func gameFromFEN(fen string) (*nchess.Game, error) {
	text := strings.TrimSpace(fen)
	if text == "" || text == "startpos" {
		return nchess.NewGame(), nil
	}
	opt, err := nchess.FEN(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(opt), nil
}

// Apply plays uci on fen. A pawn reaching the last rank without a promotion
// suffix is promoted to a queen.
func (e *Engine) Apply(fen, uci string) (Applied, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return Applied{}, err
	}
	return applyOn(game, uci)
}

func applyOn(game *nchess.Game, uci string) (Applied, error) {
	pos := game.Position()
	text := autoQueen(pos, strings.ToLower(strings.TrimSpace(uci)))
	if len(text) < 4 {
		return Applied{}, ErrIllegalMove
	}
	mv, err := nchess.UCINotation{}.Decode(pos, text)
	if err != nil {
		return Applied{}, ErrIllegalMove
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := game.Move(mv, nil); err != nil {
		return Applied{}, ErrIllegalMove
	}
	status := statusOf(game)
	return Applied{
		FEN:    game.FEN(),
		SAN:    san,
		UCI:    text,
		From:   text[:2],
		To:     text[2:4],
		Status: status,
		Check:  mv.HasTag(nchess.Check) || status == history.Checkmate,
	}, nil
}

func autoQueen(pos *nchess.Position, text string) string {
	if len(text) != 4 || pos == nil {
		return text
	}
	from, ok := parseSquare(text[:2])
	if !ok {
		return text
	}
	piece := pos.Board().Piece(from)
	if piece.Type() != nchess.Pawn {
		return text
	}
	if (piece.Color() == nchess.White && text[3] == '8') || (piece.Color() == nchess.Black && text[3] == '1') {
		return text + "q"
	}
	return text
}

func parseSquare(name string) (nchess.Square, bool) {
	if len(name) != 2 {
		return nchess.NoSquare, false
	}
	f := strings.IndexByte(files, name[0])
	r := strings.IndexByte(ranks, name[1])
	if f < 0 || r < 0 {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(f), nchess.Rank(r)), true
}

func squareName(f, r int) string {
	return string([]byte{files[f], ranks[r]})
}

func statusOf(game *nchess.Game) history.Status {
	switch game.Outcome() {
	case nchess.NoOutcome:
		return history.InProgress
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			return history.Stalemate
		}
		return history.Draw
	default:
		return history.Checkmate
	}
}

// Turn reports the side to move.
func (e *Engine) Turn(fen string) (nchess.Color, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nchess.NoColor, err
	}
	return game.Position().Turn(), nil
}

// Status inspects a bare position (no move history, so repetition is not seen).
func (e *Engine) Status(fen string) history.Status {
	game, err := gameFromFEN(fen)
	if err != nil {
		return history.InProgress
	}
	switch game.Position().Status() {
	case nchess.Checkmate:
		return history.Checkmate
	case nchess.Stalemate:
		return history.Stalemate
	default:
		return history.InProgress
	}
}

// Validate rejects unparseable FEN and positions without exactly one king each.
func (e *Engine) Validate(fen string) error {
	if strings.TrimSpace(fen) == "" {
		return ErrInvalidFEN
	}
	game, err := gameFromFEN(fen)
	if err != nil {
		return err
	}
	board := game.Position().Board()
	kings := map[nchess.Color]int{}
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			p := board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
			if p.Type() == nchess.King {
				kings[p.Color()]++
			}
		}
	}
	if kings[nchess.White] != 1 || kings[nchess.Black] != 1 {
		return ErrMissingKing
	}
	return nil
}

// Start builds the index-0 record for fen.
func (e *Engine) Start(fen string) (history.Ply, error) {
	if err := e.Validate(fen); err != nil {
		return history.Ply{}, err
	}
	game, _ := gameFromFEN(fen)
	status := e.Status(fen)
	pos := game.Position()
	return history.Ply{
		FEN:    game.FEN(),
		Status: status,
		Check:  status == history.Checkmate || inCheck(pos.Board(), pos.Turn()),
	}, nil
}

var (
	knightSteps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straight    = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// inCheck reports whether color's king is attacked on board.
func inCheck(board *nchess.Board, color nchess.Color) bool {
	kf, kr := -1, -1
	for f := 0; f < 8 && kf < 0; f++ {
		for r := 0; r < 8; r++ {
			p := board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
			if p.Type() == nchess.King && p.Color() == color {
				kf, kr = f, r
				break
			}
		}
	}
	if kf < 0 {
		return false
	}
	enemy := nchess.White
	if color == nchess.White {
		enemy = nchess.Black
	}
	at := func(f, r int) (nchess.Piece, bool) {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return nchess.NoPiece, false
		}
		return board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r))), true
	}
	hits := func(steps [8][2]int, kind nchess.PieceType) bool {
		for _, d := range steps {
			if p, ok := at(kf+d[0], kr+d[1]); ok && p.Type() == kind && p.Color() == enemy {
				return true
			}
		}
		return false
	}
	if hits(knightSteps, nchess.Knight) || hits(kingSteps, nchess.King) {
		return true
	}

	// enemy pawns attack toward our side of the board
	pawnRank := kr + 1
	if color == nchess.Black {
		pawnRank = kr - 1
	}
	for _, df := range []int{-1, 1} {
		if p, ok := at(kf+df, pawnRank); ok && p.Type() == nchess.Pawn && p.Color() == enemy {
			return true
		}
	}

	slides := func(dirs [4][2]int, kinds ...nchess.PieceType) bool {
		for _, d := range dirs {
			for f, r := kf+d[0], kr+d[1]; ; f, r = f+d[0], r+d[1] {
				p, ok := at(f, r)
				if !ok {
					break
				}
				if p == nchess.NoPiece {
					continue
				}
				if p.Color() == enemy {
					for _, k := range kinds {
						if p.Type() == k {
							return true
						}
					}
				}
				break
			}
		}
		return false
	}
	return slides(straight, nchess.Rook, nchess.Queen) || slides(diagonal, nchess.Bishop, nchess.Queen)
}

// Targets lists the squares the piece on from may legally move to.
func (e *Engine) Targets(fen, from string) []string {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil
	}
	if _, ok := parseSquare(from); !ok {
		return nil
	}
	var out []string
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			to := squareName(f, r)
			if to == from {
				continue
			}
			if _, err := applyOn(game.Clone(), from+to); err == nil {
				out = append(out, to)
			}
		}
	}
	return out
}

// KingSquare returns the square of color's king, or "".
func (e *Engine) KingSquare(fen string, color nchess.Color) string {
	game, err := gameFromFEN(fen)
	if err != nil {
		return ""
	}
	board := game.Position().Board()
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			p := board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
			if p.Type() == nchess.King && p.Color() == color {
				return squareName(f, r)
			}
		}
	}
	return ""
}

// Replay applies moves from fen in order and returns every intermediate result.
func (e *Engine) Replay(fen string, moves []string) ([]Applied, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	out := make([]Applied, 0, len(moves))
	for _, mv := range moves {
		res, err := applyOn(game, mv)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", mv, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Continue replays line from fen and then plays uci. Unlike Apply, the result
// sees the whole line, so repetition draws are detected.
func (e *Engine) Continue(fen string, line []string, uci string) (Applied, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return Applied{}, err
	}
	for _, mv := range line {
		if _, err := applyOn(game, mv); err != nil {
			return Applied{}, fmt.Errorf("replay %s: %w", mv, err)
		}
	}
	return applyOn(game, uci)
}

// ParsePGN reads the main line of a single-game PGN.
func (e *Engine) ParsePGN(pgn string) (history.Ply, []Applied, error) {
	if strings.TrimSpace(pgn) == "" {
		return history.Ply{}, nil, ErrInvalidPGN
	}
	opt, err := nchess.PGN(strings.NewReader(pgn))
	if err != nil {
		return history.Ply{}, nil, fmt.Errorf("%w: %v", ErrInvalidPGN, err)
	}
	loaded := nchess.NewGame(opt)
	positions := loaded.Positions()
	moves := loaded.Moves()
	if len(positions) == 0 {
		return history.Ply{}, nil, ErrInvalidPGN
	}

	startFEN := positions[0].String()
	start, err := e.Start(startFEN)
	if err != nil {
		return history.Ply{}, nil, err
	}
	notation := nchess.UCINotation{}
	ucis := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		ucis = append(ucis, strings.ToLower(notation.Encode(positions[i], mv)))
	}
	applied, err := e.Replay(startFEN, ucis)
	if err != nil {
		return history.Ply{}, nil, fmt.Errorf("%w: %v", ErrInvalidPGN, err)
	}
	return start, applied, nil
}

// PGN renders the line starting at fen as PGN text. result, when set, is
// written as the game termination marker.
func (e *Engine) PGN(fen string, moves []string, result string) (string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	for _, mv := range moves {
		if _, err := applyOn(game, mv); err != nil {
			return "", fmt.Errorf("export %s: %w", mv, err)
		}
	}
	text := strings.TrimSpace(game.String())
	if result != "" && game.Outcome() == nchess.NoOutcome {
		text = strings.TrimSuffix(text, "*")
		text = strings.TrimSpace(text) + " " + result
	}
	return text, nil
}

// Opening names the opening reached by moves from the standard start. book is
// true while the line is still a prefix of a catalogued opening.
func (e *Engine) Opening(startFEN string, moves []string) (name string, inBook bool) {
	if len(moves) == 0 || !isStandardStart(startFEN) {
		return "", false
	}
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range moves {
		m, err := notation.Decode(game.Position(), mv)
		if err != nil {
			return "", false
		}
		if err := game.Move(m, nil); err != nil {
			return "", false
		}
	}
	b := ecoBook()
	if b == nil {
		return "", false
	}
	if o := b.Find(game.Moves()); o != nil {
		name = o.Title()
	}
	inBook = len(b.Possible(game.Moves())) > 0
	return name, inBook
}

func isStandardStart(fen string) bool {
	text := strings.TrimSpace(fen)
	if text == "" || text == "startpos" {
		return true
	}
	return fieldsPrefix(text, 4) == fieldsPrefix(StartFEN, 4)
}

func fieldsPrefix(fen string, n int) string {
	parts := strings.Fields(fen)
	if len(parts) > n {
		parts = parts[:n]
	}
	return strings.Join(parts, " ")
}
