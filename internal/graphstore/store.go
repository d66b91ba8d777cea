// Package graphstore holds the in-memory undirected relationship graph.
//
// Entities are identified by a case-normalized key; the first spelling seen
// is kept for display. Each unordered pair of entities carries at most one
// relationship, and re-scoring a pair overwrites the previous record.
package graphstore

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
)

// DefaultRelationType labels relationships added without a type.
const DefaultRelationType = "related_to"

var (
	ErrInvalidWeight = errors.New("relationship weight must be within [0, 1]")
	ErrSelfLoop      = errors.New("relationship endpoints must be distinct entities")
	ErrEmptyName     = errors.New("entity name must not be empty")
)

// Reader is the read-only surface handed to analysis and export collaborators.
type Reader interface {
	Has(name string) bool
	Entity(name string) (apptype.Entity, bool)
	Entities() []apptype.Entity
	Relationships() []apptype.Relationship
	Relationship(a, b string) (apptype.Relationship, bool)
	Neighbors(name string) []apptype.Neighbor
	Order() int
	Size() int
	Snapshot() apptype.GraphSnapshot
}

type node struct {
	entity apptype.Entity
	adj    map[string]*edge
}

type edge struct {
	a, b         string // keys, a < b
	weight       float64
	relationType string
	description  string
}

// Store is a concurrency-safe undirected graph keyed by normalized entity name.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*node
	edges map[[2]string]*edge
	seq   int
}

var _ Reader = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*node),
		edges: make(map[[2]string]*edge),
	}
}

// NormalizeName returns the identity key for an entity name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func pairKey(ka, kb string) [2]string {
	if kb < ka {
		ka, kb = kb, ka
	}
	return [2]string{ka, kb}
}

// AddEntity inserts an entity if it is not present and returns the stored record.
func (s *Store) AddEntity(name string) (apptype.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, err := s.ensureLocked(name)
	if err != nil {
		return apptype.Entity{}, err
	}
	return n.entity, nil
}

// AddEntityAtLevel inserts an entity tagged with the expansion level that
// discovered it. It reports whether the entity was newly created; existing
// entities keep their original level.
func (s *Store) AddEntityAtLevel(name string, level int) (apptype.Entity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, created, err := s.ensureLocked(name)
	if err != nil {
		return apptype.Entity{}, false, err
	}
	if created {
		n.entity.Level = level
	}
	return n.entity, created, nil
}

func (s *Store) ensureLocked(name string) (*node, bool, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, false, ErrEmptyName
	}
	if n, ok := s.nodes[key]; ok {
		return n, false, nil
	}
	n := &node{
		entity: apptype.Entity{
			Name: strings.Join(strings.Fields(name), " "),
			Key:  key,
			Seq:  s.seq,
		},
		adj: make(map[string]*edge),
	}
	s.seq++
	s.nodes[key] = n
	return n, true, nil
}

// AddRelationship inserts or overwrites the edge between a and b. Missing
// endpoints are created.
func (s *Store) AddRelationship(a, b string, weight float64, relationType, description string) (apptype.Relationship, error) {
	if math.IsNaN(weight) || weight < 0 || weight > 1 {
		return apptype.Relationship{}, fmt.Errorf("%w: got %v", ErrInvalidWeight, weight)
	}
	ka, kb := NormalizeName(a), NormalizeName(b)
	if ka == "" || kb == "" {
		return apptype.Relationship{}, ErrEmptyName
	}
	if ka == kb {
		return apptype.Relationship{}, fmt.Errorf("%w: %q", ErrSelfLoop, a)
	}
	if relationType == "" {
		relationType = DefaultRelationType
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	na, _, err := s.ensureLocked(a)
	if err != nil {
		return apptype.Relationship{}, err
	}
	nb, _, err := s.ensureLocked(b)
	if err != nil {
		return apptype.Relationship{}, err
	}
	pk := pairKey(ka, kb)
	e, ok := s.edges[pk]
	if !ok {
		e = &edge{a: pk[0], b: pk[1]}
		s.edges[pk] = e
		na.adj[kb] = e
		nb.adj[ka] = e
	}
	e.weight = weight
	e.relationType = relationType
	e.description = description
	return s.relationshipLocked(e), nil
}

func (s *Store) relationshipLocked(e *edge) apptype.Relationship {
	return apptype.Relationship{
		A:            s.nodes[e.a].entity.Name,
		B:            s.nodes[e.b].entity.Name,
		Weight:       e.weight,
		RelationType: e.relationType,
		Description:  e.description,
	}
}

// Has reports whether the entity exists.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[NormalizeName(name)]
	return ok
}

// Entity returns a copy of the stored entity.
func (s *Store) Entity(name string) (apptype.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[NormalizeName(name)]
	if !ok {
		return apptype.Entity{}, false
	}
	return n.entity, true
}

// Entities returns every entity in insertion order.
func (s *Store) Entities() []apptype.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entitiesLocked()
}

func (s *Store) entitiesLocked() []apptype.Entity {
	out := make([]apptype.Entity, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.entity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Relationship returns the edge between a and b, if any.
func (s *Store) Relationship(a, b string) (apptype.Relationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[pairKey(NormalizeName(a), NormalizeName(b))]
	if !ok {
		return apptype.Relationship{}, false
	}
	return s.relationshipLocked(e), true
}

// Relationships returns every edge ordered by its endpoint keys.
func (s *Store) Relationships() []apptype.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relationshipsLocked()
}

func (s *Store) relationshipsLocked() []apptype.Relationship {
	keys := make([][2]string, 0, len(s.edges))
	for k := range s.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]apptype.Relationship, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.relationshipLocked(s.edges[k]))
	}
	return out
}

// Neighbors lists the direct neighbors of name sorted by neighbor key.
// Unknown or isolated entities yield an empty slice.
func (s *Store) Neighbors(name string) []apptype.Neighbor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[NormalizeName(name)]
	if !ok {
		return []apptype.Neighbor{}
	}
	keys := make([]string, 0, len(n.adj))
	for k := range n.adj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]apptype.Neighbor, 0, len(keys))
	for _, k := range keys {
		e := n.adj[k]
		out = append(out, apptype.Neighbor{
			Name:         s.nodes[k].entity.Name,
			Weight:       e.weight,
			RelationType: e.relationType,
		})
	}
	return out
}

// Order returns the number of entities.
func (s *Store) Order() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Size returns the number of relationships.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// SetImportance caches an influence score on the entity.
func (s *Store) SetImportance(name string, score float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[NormalizeName(name)]
	if ok {
		n.entity.Importance = score
	}
	return ok
}

// SetDescription attaches a short description to the entity.
func (s *Store) SetDescription(name, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[NormalizeName(name)]
	if ok {
		n.entity.Description = description
	}
	return ok
}

// Snapshot copies the whole graph into a serializable value. Entities and
// relationships are read under one lock, so every edge endpoint is listed.
func (s *Store) Snapshot() apptype.GraphSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return apptype.GraphSnapshot{
		Entities:      s.entitiesLocked(),
		Relationships: s.relationshipsLocked(),
	}
}

// Load rebuilds a store from a snapshot. Invalid relationships are skipped
// and reported through the returned error.
func Load(snap apptype.GraphSnapshot) (*Store, error) {
	s := New()
	var errs []error
	for _, e := range snap.Entities {
		if _, _, err := s.AddEntityAtLevel(e.Name, e.Level); err != nil {
			errs = append(errs, err)
			continue
		}
		if e.Importance != 0 {
			s.SetImportance(e.Name, e.Importance)
		}
		if e.Description != "" {
			s.SetDescription(e.Name, e.Description)
		}
	}
	for _, r := range snap.Relationships {
		if _, err := s.AddRelationship(r.A, r.B, r.Weight, r.RelationType, r.Description); err != nil {
			errs = append(errs, fmt.Errorf("relationship %s-%s: %w", r.A, r.B, err))
		}
	}
	return s, errors.Join(errs...)
}
