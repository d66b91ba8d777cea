package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/server"
)

type serveOptions struct {
	transport   string
	addr        string
	sseEndpoint string
	fixture     string
}

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the analysis tools over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, global, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.transport, "transport", "stdio", "Transport to use: stdio or sse")
	f.StringVar(&opts.addr, "addr", ":8080", "Address to listen on when using SSE transport")
	f.StringVar(&opts.sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
	f.StringVar(&opts.fixture, "fixture", "", "JSON table of relationship scores to use instead of an API")
	return cmd
}

func serve(cmd *cobra.Command, global *globalOptions, opts *serveOptions) error {
	if opts.transport != "stdio" && opts.transport != "sse" {
		return fmt.Errorf("unknown transport: %s (expected: stdio or sse)", opts.transport)
	}
	cfg, log, err := global.setup("")
	if err != nil {
		return err
	}
	sc := cfg.ScorerConfig()
	if opts.fixture != "" {
		sc.FixturePath = opts.fixture
	}
	sc.Log = log
	rel, err := scorer.New(sc)
	if err != nil {
		return err
	}
	db, sinks, err := deepsearch.OpenSinks(sinkConfig(cfg))
	if err != nil {
		return err
	}

	srv := server.NewMCPServer(server.Options{
		Scorer:   rel,
		Analyzer: cfg.AnalyzerConfig(),
		DB:       db,
		Sinks:    sinks,
		Log:      log,
	})
	defer func() {
		if err := srv.Close(); err != nil {
			log.WithError(err).Warn("closing export sinks")
		}
	}()

	log.WithField("scorer", rel.Name()).WithField("transport", opts.transport).Info("starting MCP server")
	ctx := cmd.Context()
	if opts.transport == "sse" {
		err = srv.RunSSE(ctx, opts.addr, opts.sseEndpoint)
	} else {
		err = srv.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
