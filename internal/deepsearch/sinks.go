package deepsearch

import (
	"fmt"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/database"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/export"
)

// SinkConfig selects the optional export sinks.
type SinkConfig struct {
	// Database enables the libSQL sink when non-nil.
	Database      *database.Config
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
}

// OpenSinks connects every configured sink. The libSQL manager is returned
// separately as well so callers can read graphs back from it; it is also the
// first element of the sink list.
func OpenSinks(cfg SinkConfig) (*database.DBManager, []export.Sink, error) {
	var (
		db    *database.DBManager
		sinks []export.Sink
	)
	if cfg.Database != nil {
		dm, err := database.NewDBManager(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open libsql sink: %w", err)
		}
		db = dm
		sinks = append(sinks, dm)
	}
	if cfg.Neo4jURI != "" {
		neo, err := export.NewNeo4jSink(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, nil, fmt.Errorf("open neo4j sink: %w", err)
		}
		sinks = append(sinks, neo)
	}
	return db, sinks, nil
}
