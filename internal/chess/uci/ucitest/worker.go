// Package ucitest provides a scripted in-memory UCI worker for tests.
package ucitest

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// SearchFunc returns the lines the worker prints after a go command.
type SearchFunc func(position, goCmd string) []string

// Worker answers uci/isready and replies to go with lines from its SearchFunc.
type Worker struct {
	search SearchFunc

	inR  *io.PipeReader
	inW  *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter

	mu       sync.Mutex
	received []string
	done     chan struct{}
}

func New(search SearchFunc) *Worker {
	w := &Worker{search: search, done: make(chan struct{})}
	w.inR, w.inW = io.Pipe()
	w.outR, w.outW = io.Pipe()
	go w.run()
	return w
}

// BestMove replies to every search with a single scored info line and move.
func BestMove(info, move string) SearchFunc {
	return func(string, string) []string {
		return []string{info, "bestmove " + move}
	}
}

func (w *Worker) Stdin() io.WriteCloser { return w.inW }

func (w *Worker) Stdout() io.Reader { return w.outR }

// Close stops the worker as if the process exited.
func (w *Worker) Close() error {
	w.inR.Close()
	w.outW.Close()
	<-w.done
	return nil
}

// Received returns every command line the worker has read.
func (w *Worker) Received() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.received...)
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.outW.Close()

	sc := bufio.NewScanner(w.inR)
	var position string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		w.mu.Lock()
		w.received = append(w.received, line)
		w.mu.Unlock()

		var reply []string
		switch {
		case line == "uci":
			reply = []string{"id name ucitest", "uciok"}
		case line == "isready":
			reply = []string{"readyok"}
		case strings.HasPrefix(line, "position"):
			position = line
		case strings.HasPrefix(line, "go"):
			if w.search != nil {
				reply = w.search(position, line)
			}
		case line == "quit":
			return
		}
		for _, r := range reply {
			if _, err := io.WriteString(w.outW, r+"\n"); err != nil {
				return
			}
		}
	}
}
