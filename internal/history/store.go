package history

import (
	"errors"
	"sync"

	"github.com/park285/Cheese-chess-client/internal/evalfmt"
)

var ErrNotFound = errors.New("ply not found")

// Status is the terminal state of the position a ply leads to.
type Status int

const (
	InProgress Status = iota
	Checkmate
	Stalemate
	Draw
)

func (s Status) Terminal() bool { return s != InProgress }

// Ply is one recorded half-move. Index 0 is the starting position and has no
// SAN/UCI.
type Ply struct {
	FEN          string
	SAN          string
	UCI          string
	Score        *evalfmt.Score
	OpeningName  string
	IsBookMove   bool
	BestMoveHint string
	Status       Status
	Check        bool
}

func (p Ply) clone() Ply {
	if p.Score != nil {
		s := *p.Score
		p.Score = &s
	}
	return p
}

// Store is a linear move history with a cursor. Recording from a past cursor
// drops the tail; there is no branching.
type Store struct {
	mu     sync.RWMutex
	plies  []Ply
	cursor int
}

// New starts a history at the given position.
func New(start Ply) *Store {
	s := &Store{}
	s.TruncateToCurrent(start)
	return s
}

// Record appends p after the cursor, discarding anything beyond it, and moves
// the cursor onto the new ply. It returns the new ply's index.
func (s *Store) Record(p Ply) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < len(s.plies)-1 {
		s.plies = s.plies[:s.cursor+1]
	}
	s.plies = append(s.plies, p.clone())
	s.cursor = len(s.plies) - 1
	return s.cursor
}

func (s *Store) At(i int) (Ply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.plies) {
		return Ply{}, ErrNotFound
	}
	return s.plies[i].clone(), nil
}

// TruncateToCurrent discards the whole game and keeps a single index-0 entry
// at the given position.
func (s *Store) TruncateToCurrent(start Ply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start.SAN, start.UCI = "", ""
	s.plies = []Ply{start.clone()}
	s.cursor = 0
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plies)
}

func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

func (s *Store) Current() Ply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plies[s.cursor].clone()
}

// Seek clamps i into [0, len-1] and moves the cursor there.
func (s *Store) Seek(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i > len(s.plies)-1 {
		i = len(s.plies) - 1
	}
	s.cursor = i
	return i
}

func (s *Store) First() int { return s.Seek(0) }

func (s *Store) Last() int { return s.Seek(s.Len() - 1) }

func (s *Store) Prev() int {
	s.mu.RLock()
	c := s.cursor
	s.mu.RUnlock()
	return s.Seek(c - 1)
}

func (s *Store) Next() int {
	s.mu.RLock()
	c := s.cursor
	s.mu.RUnlock()
	return s.Seek(c + 1)
}

// Plies returns a copy of the whole sequence.
func (s *Store) Plies() []Ply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Ply, len(s.plies))
	for i, p := range s.plies {
		out[i] = p.clone()
	}
	return out
}

// UCIMoves returns the moves of plies 1..upTo.
func (s *Store) UCIMoves(upTo int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if upTo > len(s.plies)-1 {
		upTo = len(s.plies) - 1
	}
	if upTo < 1 {
		return nil
	}
	out := make([]string, 0, upTo)
	for _, p := range s.plies[1 : upTo+1] {
		out = append(out, p.UCI)
	}
	return out
}

// SetScore stores an evaluation for ply i, provided ply i still holds fen.
// It reports whether the write happened.
func (s *Store) SetScore(i int, fen string, score evalfmt.Score) bool {
	return s.update(i, fen, func(p *Ply) {
		sc := score
		p.Score = &sc
	})
}

// SetHint stores a best-move suggestion for ply i, provided ply i still holds fen.
func (s *Store) SetHint(i int, fen, move string) bool {
	return s.update(i, fen, func(p *Ply) { p.BestMoveHint = move })
}

// SetOpening updates the annotation of ply i.
func (s *Store) SetOpening(i int, fen, name string, book bool) bool {
	return s.update(i, fen, func(p *Ply) {
		p.OpeningName = name
		p.IsBookMove = book
	})
}

func (s *Store) update(i int, fen string, fn func(*Ply)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.plies) || s.plies[i].FEN != fen {
		return false
	}
	fn(&s.plies[i])
	return true
}
