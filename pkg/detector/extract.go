package detector

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Path addresses a value inside a decoded JSON document, one key per level.
type Path []string

func (p Path) String() string { return strings.Join(p, ".") }

// Rules is an ordered list of paths. The first path that resolves to a
// usable value wins.
type Rules []Path

// The service has answered with flat and nested bodies, in camelCase and
// snake_case. Each field is looked up through these lists in order.
var (
	SignedURLRules = Rules{
		{"signedUrl"},
		{"response", "signedUrl"},
	}
	MediaIDRules = Rules{
		{"mediaId"},
		{"response", "mediaId"},
		{"media_id"},
		{"response", "media_id"},
	}
	RequestIDRules = Rules{
		{"requestId"},
		{"response", "requestId"},
		{"request_id"},
		{"response", "request_id"},
	}
	SummaryRules = Rules{
		{"resultsSummary"},
		{"response", "resultsSummary"},
		{"results_summary"},
	}
	StatusRules = Rules{
		{"status"},
		{"state"},
	}
	VerdictRules = Rules{
		{"verdict"},
		{"label"},
	}
	ConfidenceRules = Rules{
		{"metadata", "finalScore"},
		{"metadata", "confidence"},
		{"finalScore"},
		{"confidence"},
		{"score"},
	}
)

func (p Path) lookup(doc map[string]any) (any, bool) {
	var cur any = doc
	for _, key := range p {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Text returns the first non-empty string matched by the rules.
func (r Rules) Text(doc map[string]any) (string, bool) {
	for _, p := range r {
		v, ok := p.lookup(doc)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s, true
			}
		case json.Number:
			return s.String(), true
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), true
		}
	}
	return "", false
}

// Number returns the first numeric value matched by the rules. Numeric
// strings are accepted.
func (r Rules) Number(doc map[string]any) (float64, bool) {
	for _, p := range r {
		v, ok := p.lookup(doc)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			if !math.IsNaN(n) {
				return n, true
			}
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := json.Number(strings.TrimSpace(n)).Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Object returns the first JSON object matched by the rules.
func (r Rules) Object(doc map[string]any) (map[string]any, bool) {
	for _, p := range r {
		v, ok := p.lookup(doc)
		if !ok {
			continue
		}
		if obj, ok := v.(map[string]any); ok {
			return obj, true
		}
	}
	return nil, false
}

// normalizeConfidence maps a provider score into [0,1]. Whole numbers in
// (1,100] are percentages; fractional scores just above the unit range are
// clamped to 1. Negative and larger scores are discarded.
func normalizeConfidence(v float64) (float64, bool) {
	switch {
	case v >= 0 && v <= 1:
		return v, true
	case v > 1 && v <= 100 && v == math.Trunc(v):
		return v / 100, true
	case v > 1 && v <= 100:
		return 1, true
	default:
		return 0, false
	}
}

func decodeObject(body []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrMalformedResponse
	}
	return doc, nil
}
