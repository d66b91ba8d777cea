package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

type runOptions struct {
	entities     []string
	file         string
	context      string
	expand       bool
	order        int
	maxPerEntity int
	threshold    float64
	output       string
	apiKey       string
	fixture      string
	crossLink    bool
	noHTML       bool
	describe     bool
	project      string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [entity...]",
		Short: "Analyze the relationships between entities",
		Example: `  deepsearch run -e Python -e JavaScript -e Rust -c "programming languages"
  deepsearch run -f entities.txt --expand --order 2 -o results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.entities = append(opts.entities, args...)
			return runAnalysis(cmd, global, opts)
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&opts.entities, "entities", "e", nil, "Entity to analyze (repeatable)")
	f.StringVarP(&opts.file, "file", "f", "", "File with one entity per line")
	f.StringVarP(&opts.context, "context", "c", "", "Topic the entities are analyzed in")
	f.BoolVar(&opts.expand, "expand", false, "Discover related entities before analysis")
	f.IntVar(&opts.order, "order", deepsearch.DefaultOrder, "Expansion levels")
	f.IntVar(&opts.maxPerEntity, "max-per-entity", deepsearch.DefaultMaxPerEntity, "Related entities requested per entity")
	f.Float64Var(&opts.threshold, "threshold", deepsearch.DefaultThreshold, "Minimum relationship weight to keep")
	f.StringVarP(&opts.output, "output", "o", "output", "Directory for results and visualizations")
	f.StringVar(&opts.apiKey, "api-key", "", "API key for the relationship scorer (overrides OPENAI_API_KEY)")
	f.StringVar(&opts.fixture, "fixture", "", "JSON table of relationship scores to use instead of an API")
	f.BoolVar(&opts.crossLink, "cross-link", false, "Score pairs among discovered entities")
	f.BoolVar(&opts.noHTML, "no-html", false, "Skip the HTML visualizations")
	f.BoolVar(&opts.describe, "describe", false, "Ask the scorer for a short description of every entity")
	f.StringVar(&opts.project, "project", deepsearch.DefaultProject, "Project name used by export sinks")
	return cmd
}

// readEntities reads one entity per line, skipping blank lines.
func readEntities(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entity file: %w", err)
	}
	defer fh.Close()

	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read entity file: %w", err)
	}
	return out, nil
}

func runAnalysis(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	entities := opts.entities
	if opts.file != "" {
		fromFile, err := readEntities(opts.file)
		if err != nil {
			return err
		}
		entities = append(entities, fromFile...)
	}
	if len(entities) == 0 {
		return errors.New("no entities provided; use -e or --file to specify entities")
	}

	cfg, log, err := global.setup("warn")
	if err != nil {
		return err
	}
	sc := cfg.ScorerConfig()
	if opts.apiKey != "" {
		sc.APIKey = opts.apiKey
	}
	if opts.fixture != "" {
		sc.FixturePath = opts.fixture
	}
	sc.Log = log
	rel, err := scorer.New(sc)
	if err != nil {
		return err
	}

	out := newReport(cmd.OutOrStdout())
	if rel.Name() == "default" {
		out.warn("No API key provided. Relationships get a neutral default estimate.")
		out.warn("Set OPENAI_API_KEY or use --api-key.")
	}

	_, sinks, err := deepsearch.OpenSinks(sinkConfig(cfg))
	if err != nil {
		return err
	}
	p := deepsearch.New(rel, cfg.AnalyzerConfig(), log, sinks...)
	defer func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("closing export sinks")
		}
	}()

	out.header(entities, opts.context)
	res, err := p.Run(cmd.Context(), deepsearch.Request{
		Entities:     entities,
		Context:      opts.context,
		Expand:       opts.expand,
		Order:        opts.order,
		MaxPerEntity: opts.maxPerEntity,
		Threshold:    opts.threshold,
		CrossLink:    opts.crossLink,
		Describe:     opts.describe,
		OutputDir:    opts.output,
		NoHTML:       opts.noHTML,
		Project:      opts.project,
		Progress:     out.step,
	})
	if err != nil {
		if cmd.Context().Err() != nil {
			out.warn("Analysis interrupted.")
		}
		return err
	}
	out.results(res, opts.output)
	return nil
}
