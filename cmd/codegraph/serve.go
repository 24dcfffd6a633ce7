package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dev.helix.code/internal/codegraph/cache"
	"dev.helix.code/internal/codegraph/cdc"
	"dev.helix.code/internal/codegraph/entrypoint"
	"dev.helix.code/internal/codegraph/graph"
	"dev.helix.code/internal/codegraph/ignore"
	"dev.helix.code/internal/codegraph/lang"
	"dev.helix.code/internal/codegraph/parser"
	"dev.helix.code/internal/codegraph/ws"
	"dev.helix.code/internal/redis"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the graph live and stream mutation events over WebSocket",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8089", "address the WebSocket endpoint listens on")
	rootCmd.AddCommand(serveCmd)
}

// runServe builds the full stack and exposes only the C8 WebSocket
// broadcaster on /ws. Query Engine (C6) stays a Go API consumed
// in-process; this command never mounts a REST surface, per the engine's
// declared out-of-scope boundary on HTTP request routing.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := newLogger()

	matcher, err := ignore.Load(cfg.RootPath, cfg.IgnoreFileNames)
	if err != nil {
		return fmt.Errorf("loading ignore patterns: %w", err)
	}

	rds, err := redis.NewClient(cfg.L2URL, cfg.L2Enabled || cfg.CDCEnabled)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rds.Close()

	var l2 cache.L2Store
	if cfg.L2Enabled {
		l2 = rds
	}
	c, err := cache.New(cfg.L1CacheEntries, l2, log)
	if err != nil {
		return fmt.Errorf("building cache: %w", err)
	}

	cdcManager := cdc.New(rds, cfg.StreamName, log)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = cdcManager.Shutdown(ctx)
	}()

	var sink graph.EventSink = graph.NopSink{}
	if cfg.CDCEnabled {
		sink = cdcManager
	}
	g := graph.New(sink, cfg.HubPercentile)

	p := parser.New(lang.NewRegistry(), c, nil, log, cfg.MaxFileBytes, cfg.L1TTLSeconds.FileParse())

	ctx := context.Background()
	summary, err := p.ParseProject(ctx, cfg.RootPath, nil, matcher, cfg.ParserParallelism, g)
	if err != nil {
		return fmt.Errorf("initial parse: %w", err)
	}
	log.Info("initial parse: %d files parsed, %d skipped, %d nodes, %d relationships",
		summary.FilesParsed, summary.FilesSkipped, summary.NodesAdded, summary.RelsAdded)

	classified := entrypoint.Classify(ctx, g)
	log.Info("entry points: %d/%d function/method nodes matched", classified.NodesMatched, classified.NodesScanned)

	broadcaster := ws.New(cdcManager, log)
	runCtx, cancelRun := context.WithCancel(context.Background())
	go broadcaster.Run(runCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", broadcaster.HandleWebSocket)

	srv := &http.Server{Addr: listenAddr, Handler: mux}

	go func() {
		log.Info("websocket endpoint listening on %s/ws", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
