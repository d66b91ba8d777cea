package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/config"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/logging"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "deepsearch",
		Short: "Build and analyze entity relationship graphs",
		Long: `deepsearch scores relationships between entities with an LLM, expands
the network to related entities and reports neighborhoods, connecting
paths and network statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       buildinfo.Version,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override LOG_LEVEL (trace, debug, info, warn, error)")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newVersionCmd())
	return root
}

// setup loads configuration, builds the logger and starts metrics. quietLevel
// replaces the configured level when neither the flag nor LOG_LEVEL is set.
func (o *globalOptions) setup(quietLevel string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	switch {
	case o.logLevel != "":
		level = o.logLevel
	case quietLevel != "" && os.Getenv("LOG_LEVEL") == "":
		level = quietLevel
	}
	log, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Metrics.Prometheus {
		metrics.Init(cfg.Metrics.Addr)
	}
	return cfg, log, nil
}

func sinkConfig(cfg *config.Config) deepsearch.SinkConfig {
	return deepsearch.SinkConfig{
		Database:      cfg.DatabaseConfig(),
		Neo4jURI:      cfg.Neo4j.URI,
		Neo4jUser:     cfg.Neo4j.User,
		Neo4jPassword: cfg.Neo4j.Password,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "deepsearch "+buildinfo.String())
		},
	}
}
