package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
)

const (
	GraphFile   = "knowledge_graph.json"
	ResultsFile = "results.json"
)

// JSONStore writes run artifacts as indented JSON under a directory.
type JSONStore struct {
	dir string
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) Dir() string { return s.dir }

// WriteGraph writes doc to knowledge_graph.json and returns the file path.
func (s *JSONStore) WriteGraph(doc GraphDocument) (string, error) {
	return s.write(GraphFile, doc)
}

// WriteResults writes the full run result to results.json.
func (s *JSONStore) WriteResults(v any) (string, error) {
	return s.write(ResultsFile, v)
}

func (s *JSONStore) write(name string, v any) (path string, err error) {
	done := metrics.TimeOp("export_json")
	defer func() { done(err == nil) }()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	path = filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
