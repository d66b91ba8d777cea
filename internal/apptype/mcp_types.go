package apptype

// ProjectArgs provides a standard way to pass project context to tools.
type ProjectArgs struct {
	ProjectName string `json:"projectName,omitempty" jsonschema:"The name of the project to operate on. If not provided, the default project is used."`
}

// BuildGraphArgs represents the arguments for the build_graph tool
type BuildGraphArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Entities    []string    `json:"entities" jsonschema:"Seed entity names. Every pair is scored."`
	Context     string      `json:"context,omitempty" jsonschema:"Topic the relationships are judged against."`
	Threshold   *float64    `json:"threshold,omitempty" jsonschema:"Minimum weight in [0,1] for a relationship to be kept (default 0.2)."`
}

// ExpandNetworkArgs represents the arguments for the expand_network tool
type ExpandNetworkArgs struct {
	ProjectArgs  ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Context      string      `json:"context,omitempty" jsonschema:"Topic used when asking for related entities."`
	Order        int         `json:"order,omitempty" jsonschema:"Number of expansion levels (default 1)."`
	MaxPerEntity int         `json:"maxPerEntity,omitempty" jsonschema:"Related entities requested per queried entity (default 3)."`
	Threshold    *float64    `json:"threshold,omitempty" jsonschema:"Minimum candidate weight in [0,1] (default 0.2)."`
	CrossLink    bool        `json:"crossLink,omitempty" jsonschema:"Also score pairs among newly discovered entities."`
}

// EntityArgs names a single entity
type EntityArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Name        string      `json:"name" jsonschema:"Entity name (case-insensitive)."`
	Limit       int         `json:"limit,omitempty" jsonschema:"Maximum neighbors to return, strongest first (default all)."`
}

// NeighborhoodArgs represents the arguments for the neighborhood_orders tool
type NeighborhoodArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Name        string      `json:"name" jsonschema:"Root entity name."`
	MaxOrder    int         `json:"maxOrder,omitempty" jsonschema:"Deepest hop distance to report (default 3)."`
}

// PathArgs represents the arguments for connecting_paths and path_summary
type PathArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Source      string      `json:"source" jsonschema:"Source entity name."`
	Target      string      `json:"target" jsonschema:"Target entity name."`
	MaxLength   int         `json:"maxLength,omitempty" jsonschema:"Maximum hops per path (default 4, capped at 6)."`
}

// ReadGraphArgs represents the arguments for the read_graph and graph_stats tools
type ReadGraphArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
}

// DeepSearchArgs represents the arguments for the deep_search tool
type DeepSearchArgs struct {
	ProjectArgs  ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Entities     []string    `json:"entities" jsonschema:"Seed entity names."`
	Context      string      `json:"context,omitempty" jsonschema:"Topic the analysis is about."`
	Expand       bool        `json:"expand,omitempty" jsonschema:"Discover related entities before analysis."`
	Order        int         `json:"order,omitempty" jsonschema:"Expansion levels when expand is set (default 1)."`
	MaxPerEntity int         `json:"maxPerEntity,omitempty" jsonschema:"Related entities per queried entity (default 3)."`
	Threshold    *float64    `json:"threshold,omitempty" jsonschema:"Minimum weight in [0,1] (default 0.2)."`
	CrossLink    bool        `json:"crossLink,omitempty" jsonschema:"Score pairs among discovered entities."`
	OutputDir    string      `json:"outputDir,omitempty" jsonschema:"Directory for JSON and HTML artifacts. Omit to skip file output."`
}

// NeighborsResult is the structured result of the neighbors tool
type NeighborsResult struct {
	Entity    string     `json:"entity"`
	Found     bool       `json:"found"`
	Neighbors []Neighbor `json:"neighbors"`
}

// NeighborhoodResult is the structured result of the neighborhood_orders tool
type NeighborhoodResult struct {
	Entity string              `json:"entity"`
	Layers []NeighborhoodLayer `json:"layers"`
}

// PathsResult is the structured result of the connecting_paths tool
type PathsResult struct {
	Source string       `json:"source"`
	Target string       `json:"target"`
	Paths  []PathRecord `json:"paths"`
	// Truncated is set when enumeration hit its path cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Health
type HealthArgs struct{}

type HealthResult struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Revision     string   `json:"revision"`
	BuildDate    string   `json:"buildDate"`
	Scorer       string   `json:"scorer"`
	Persistence  bool     `json:"persistence"`
	MultiProject bool     `json:"multiProject"`
	Projects     []string `json:"projects"`
}
