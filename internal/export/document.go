// Package export writes run artifacts: graph and results JSON files, D3
// visualizations and optional graph database sinks.
package export

import (
	"context"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

// Node is an entity as written to graph documents.
type Node struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Level       int     `json:"level"`
	Seed        bool    `json:"seed"`
	Importance  float64 `json:"importance"`
	Description string  `json:"description,omitempty"`
	Degree      int     `json:"degree"`
}

// Edge is a relationship as written to graph documents.
type Edge struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Weight       float64 `json:"weight"`
	RelationType string  `json:"type"`
	Description  string  `json:"description,omitempty"`
}

// GraphDocument is the node/edge form of a graph shared by every sink.
type GraphDocument struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Sink receives the final graph of a run.
type Sink interface {
	Name() string
	Export(ctx context.Context, project string, doc GraphDocument) error
	Close() error
}

// NewDocument converts a snapshot. Node ids are normalized keys; entities
// with level 0 are marked as seeds.
func NewDocument(snap apptype.GraphSnapshot) GraphDocument {
	doc := GraphDocument{
		Nodes: make([]Node, 0, len(snap.Entities)),
		Edges: make([]Edge, 0, len(snap.Relationships)),
	}
	degree := make(map[string]int, len(snap.Entities))
	for _, r := range snap.Relationships {
		a, b := graphstore.NormalizeName(r.A), graphstore.NormalizeName(r.B)
		degree[a]++
		degree[b]++
		doc.Edges = append(doc.Edges, Edge{
			Source:       a,
			Target:       b,
			Weight:       r.Weight,
			RelationType: r.RelationType,
			Description:  r.Description,
		})
	}
	for _, e := range snap.Entities {
		doc.Nodes = append(doc.Nodes, Node{
			ID:          e.Key,
			Label:       e.Name,
			Level:       e.Level,
			Seed:        e.Level == 0,
			Importance:  e.Importance,
			Description: e.Description,
			Degree:      degree[e.Key],
		})
	}
	return doc
}
