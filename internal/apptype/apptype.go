package apptype

// Entity represents a node in the relationship graph
type Entity struct {
	Name        string  `json:"name"`
	Key         string  `json:"key"`
	Seq         int     `json:"seq"`
	Level       int     `json:"level"`
	Importance  float64 `json:"importance,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Relationship represents an undirected, weighted edge between two entities.
// A and B hold display names; A is always the endpoint with the smaller key.
type Relationship struct {
	A            string  `json:"a"`
	B            string  `json:"b"`
	Weight       float64 `json:"weight"`
	RelationType string  `json:"relationType"`
	Description  string  `json:"description,omitempty"`
}

// Neighbor is a single adjacency entry seen from one entity
type Neighbor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	RelationType string  `json:"relationType"`
}

// LayerEdge links an entity of order k to one of its predecessors at order k-1
type LayerEdge struct {
	From         string  `json:"from"`
	Weight       float64 `json:"weight"`
	RelationType string  `json:"relationType"`
}

// LayerEntry is a member of a neighborhood layer with every shortest-path
// predecessor edge leading into it.
type LayerEntry struct {
	Name string      `json:"name"`
	Via  []LayerEdge `json:"via"`
}

// NeighborhoodLayer holds the entities at an exact hop distance from a root
type NeighborhoodLayer struct {
	Order         int          `json:"order"`
	Entities      []LayerEntry `json:"entities"`
	Count         int          `json:"count"`
	AverageWeight float64      `json:"averageWeight"`
}

// PathRecord describes one simple path between two entities
type PathRecord struct {
	Nodes         []string  `json:"nodes"`
	Weights       []float64 `json:"weights"`
	RelationTypes []string  `json:"relationTypes"`
	Length        int       `json:"length"`
	AverageWeight float64   `json:"averageWeight"`
	MinWeight     float64   `json:"minWeight"`
	MaxWeight     float64   `json:"maxWeight"`
	Strength      float64   `json:"strength"`
}

// GraphSnapshot is the serializable view of a graph
type GraphSnapshot struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}
