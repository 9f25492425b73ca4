package main

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/feed"
	"github.com/park285/Cheese-chess-client/pkg/chessdto"
)

func consoleFeed(url string, out io.Writer, logger *zap.Logger) *feed.Subscriber {
	sub := feed.NewSubscriber(url,
		feed.WithReconnect(5),
		feed.WithSubscriberLogger(logger.Named("watch")),
	)
	sub.OnState(func(st feed.State) {
		fmt.Fprintf(out, "feed %s\n", st)
	})
	sub.OnFrame(func(f chessdto.Frame) {
		if line := frameLine(f); line != "" {
			fmt.Fprintln(out, line)
		}
	})
	return sub
}

func frameLine(f chessdto.Frame) string {
	switch {
	case f.Snapshot != nil:
		s := f.Snapshot
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] ply %d/%d %s to move, eval %s", s.State, s.Cursor, s.Length-1, s.SideToMove, s.Evaluation)
		if len(s.LastMove) == 2 {
			fmt.Fprintf(&sb, ", last %s%s", s.LastMove[0], s.LastMove[1])
		}
		if s.Clock != nil {
			fmt.Fprintf(&sb, ", clock %d/%d", s.Clock.White, s.Clock.Black)
		}
		if s.Result != "" {
			fmt.Fprintf(&sb, ", %s by %s", s.Result, s.Method)
		}
		sb.WriteString("\n  " + s.FEN)
		return sb.String()
	case f.Notice != nil:
		return "notice: " + f.Notice.Text
	default:
		return ""
	}
}
