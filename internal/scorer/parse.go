package scorer

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// UnweightedCandidateWeight is assigned to candidates returned as bare names.
const UnweightedCandidateWeight = 0.5

// extractJSON isolates the JSON payload in a model reply and repairs it when
// it is not valid as-is.
func extractJSON(text string, open, closing byte) (string, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if i := strings.IndexByte(s, open); i >= 0 {
		if j := strings.LastIndexByte(s, closing); j > i {
			s = s[i : j+1]
		} else {
			s = s[i:]
		}
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}
	if gjson.Valid(s) {
		return s, nil
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil || !gjson.Valid(repaired) {
		return "", fmt.Errorf("%w: %q", ErrMalformedResponse, truncateForLog(text))
	}
	return repaired, nil
}

func parsePairScore(text string) (PairScore, error) {
	js, err := extractJSON(text, '{', '}')
	if err != nil {
		return PairScore{}, err
	}
	root := gjson.Parse(js)
	if !root.IsObject() {
		return PairScore{}, fmt.Errorf("%w: expected object", ErrMalformedResponse)
	}
	w := firstOf(root, "weight", "strength", "score")
	if w.Type != gjson.Number {
		return PairScore{}, fmt.Errorf("%w: missing numeric weight", ErrMalformedResponse)
	}
	if !inUnitRange(w.Float()) {
		return PairScore{}, fmt.Errorf("%w: weight %v outside [0, 1]", ErrMalformedResponse, w.Float())
	}
	score := PairScore{
		Weight:       w.Float(),
		RelationType: normalizeLabel(firstOf(root, "relationship_type", "relation_type", "relationType", "type").String()),
		Description:  strings.TrimSpace(root.Get("description").String()),
	}
	if exists := root.Get("relationship_exists"); exists.Exists() && !exists.Bool() {
		score.Weight = 0
	}
	if score.RelationType == "" {
		score.RelationType = DefaultRelationType
	}
	return score, nil
}

func parseCandidates(text string) ([]Candidate, error) {
	open, closing := byte('['), byte(']')
	if t := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "```json")); strings.HasPrefix(t, "{") {
		open, closing = '{', '}'
	}
	js, err := extractJSON(text, open, closing)
	if err != nil {
		return nil, err
	}
	list := gjson.Parse(js)
	if list.IsObject() {
		list = firstOf(list, "related", "entities", "related_entities", "candidates")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected array of entities", ErrMalformedResponse)
	}

	out := make([]Candidate, 0, len(list.Array()))
	list.ForEach(func(_, item gjson.Result) bool {
		switch {
		case item.Type == gjson.String:
			if name := strings.TrimSpace(item.String()); name != "" {
				out = append(out, Candidate{Name: name, Weight: UnweightedCandidateWeight})
			}
		case item.IsObject():
			name := strings.TrimSpace(firstOf(item, "name", "entity").String())
			if name == "" {
				return true
			}
			w := UnweightedCandidateWeight
			if v := firstOf(item, "weight", "strength", "score"); v.Type == gjson.Number {
				if !inUnitRange(v.Float()) {
					// off-scale weight; skip the candidate
					return true
				}
				w = v.Float()
			}
			out = append(out, Candidate{
				Name:         name,
				Weight:       w,
				RelationType: normalizeLabel(firstOf(item, "relationship_type", "relation_type", "relationType").String()),
			})
		}
		return true
	})
	return out, nil
}

func firstOf(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func truncateForLog(s string) string {
	const limit = 200
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
