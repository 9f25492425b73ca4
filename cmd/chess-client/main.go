package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-client/internal/adapter/consoleview"
	"github.com/park285/Cheese-chess-client/internal/clientbuilder"
	appcfg "github.com/park285/Cheese-chess-client/internal/config"
	"github.com/park285/Cheese-chess-client/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	if len(os.Args) > 2 && os.Args[1] == "watch" {
		if err := watch(os.Args[2], logger); err != nil {
			log.Fatalf("watch error: %v", err)
		}
		return
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := clientbuilder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("client init error: %v", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := deps.Warm(ctx); err != nil {
			logger.Warn("engine_warm_failed", zap.Error(err))
		}
	}()

	formatter := consoleview.NewFormatter(cfg.Unicode)
	presenter := consoleview.NewPresenter(os.Stdout, formatter,
		consoleview.WithSnapshotDir(cfg.SnapshotDir),
		consoleview.WithLogger(logger.Named("console")),
	)
	deps.Controller.AddView(presenter)

	if deps.Hub != nil {
		go func() {
			if err := deps.Hub.ListenAndServe(ctx, cfg.FeedAddr); err != nil {
				logger.Error("feed_server_failed", zap.Error(err))
			}
		}()
	}

	sh := &shell{
		ctrl:      deps.Controller,
		presenter: presenter,
		format:    formatter,
		archive:   deps.Archive,
		defaults:  deps.Defaults,
		logger:    logger.Named("shell"),
	}
	if deps.Backend != nil {
		sh.chat = deps.Backend
	}
	presenter.Print(formatter.Help())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if sh.handle(ctx, line) {
				return
			}
		}
	}
}

// watch follows a running client's feed and prints every frame.
func watch(url string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := consoleFeed(url, os.Stdout, logger)
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := sub.Connect(cctx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer func() { _ = sub.Close(context.Background()) }()

	if err := sub.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
