package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/Cheese-chess-client/internal/backend"
	"github.com/park285/Cheese-chess-client/internal/evalfmt"
	"github.com/park285/Cheese-chess-client/internal/feed"
	"github.com/park285/Cheese-chess-client/internal/position"
	"github.com/park285/Cheese-chess-client/pkg/chessdto"
)

func main() {
	baseURL := os.Getenv("API_BASE_URL")
	feedURL := os.Getenv("FEED_URL")
	userID := os.Getenv("X_USER_ID")
	sessionID := os.Getenv("X_SESSION_ID")

	if baseURL == "" {
		log.Fatal("API_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if userID != "" {
			m["X-User-Id"] = userID
		}
		if sessionID != "" {
			m["X-Session-Id"] = sessionID
		}
		return m
	}

	client := backend.NewClient(baseURL,
		backend.WithHeaderProvider(headers),
		backend.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Ping(ctx); err != nil {
		log.Printf("health error: %v", err)
	} else {
		log.Printf("health ok: %s", client.BaseURL())
	}
	cancel()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	res, err := client.DeepEvaluate(ctx, position.StartFEN)
	cancel()
	if err != nil {
		log.Printf("evaluate error: %v", err)
	} else {
		score := evalfmt.ParseScore(string(res.SearchScore))
		log.Printf("evaluate ok: score=%s best=%s", score, res.BestMove)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	mv, err := client.RequestMove(ctx, backend.MoveRequest{FEN: position.StartFEN, Engine: "stockfish", SkillLevel: 5, TimeLimit: 0.5})
	cancel()
	if err != nil {
		log.Printf("move error: %v", err)
	} else {
		log.Printf("move ok: %s eval=%s", mv.MoveUCI, mv.Evaluation)
	}

	if feedURL == "" {
		log.Println("FEED_URL not set; skipping feed check")
		return
	}

	sub := feed.NewSubscriber(feedURL, feed.WithReconnect(0), feed.WithHeaders(headers))
	sub.OnState(func(st feed.State) {
		log.Printf("feed state: %s", st)
	})
	sub.OnFrame(func(f chessdto.Frame) {
		switch {
		case f.Snapshot != nil:
			fmt.Printf("feed snapshot state=%s fen=%q eval=%s\n", f.Snapshot.State, f.Snapshot.FEN, f.Snapshot.Evaluation)
		case f.Notice != nil:
			fmt.Printf("feed notice kind=%s text=%q\n", f.Notice.Kind, f.Notice.Text)
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := sub.Connect(cctx); err != nil {
		log.Printf("feed connect error: %v", err)
		return
	}

	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = sub.Close(context.Background())
}
