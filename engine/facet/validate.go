package facet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Value is a canonical facet value. Single carries enum/band/location
// results, Tokens carries multi-enum results in first-seen order.
type Value struct {
	Single string   `json:"single,omitempty"`
	Tokens []string `json:"tokens,omitempty"`
}

func (v Value) Equal(other Value) bool {
	if v.Single != other.Single {
		return false
	}
	if len(v.Tokens) != len(other.Tokens) {
		return false
	}
	for i := range v.Tokens {
		if v.Tokens[i] != other.Tokens[i] {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	if len(v.Tokens) > 0 {
		return strings.Join(v.Tokens, ", ")
	}
	return v.Single
}

var (
	multiSplitPattern = regexp.MustCompile(`\s*(?:,|/|&|\band\b)\s*`)
	numberPattern     = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Validate normalizes raw against the facet's definition. Unknown
// facets and failed normalizations come back as sentinel-wrapped
// errors; the call never mutates anything.
func (r *Registry) Validate(facetID string, raw string) (Value, error) {
	def, ok := r.Lookup(facetID)
	if !ok {
		return Value{}, fmt.Errorf("%w: facet=%s", ErrUnknownFacet, facetID)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Value{}, fmt.Errorf("%w: facet=%s value is empty", ErrInvalidValue, facetID)
	}

	switch def.Kind {
	case KindLocation:
		return normalizeLocation(raw), nil
	case KindEnum:
		canonical, ok := matchAllowed(def.Allowed, raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: facet=%s value=%q", ErrInvalidValue, facetID, raw)
		}
		return Value{Single: canonical}, nil
	case KindMultiEnum:
		tokens, err := normalizeMulti(def, raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Tokens: tokens}, nil
	case KindBand:
		label, err := normalizeBand(def, raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Single: label}, nil
	default:
		return Value{}, fmt.Errorf("%w: facet=%s has unknown kind=%q", ErrBadDefinition, facetID, def.Kind)
	}
}

// normalizeLocation canonicalizes to "City, Region, Country",
// defaulting the country to USA when the raw value has no third part.
func normalizeLocation(raw string) Value {
	parts := strings.Split(raw, ",")
	cleaned := make([]string, 0, len(parts)+1)
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) < 3 {
		cleaned = append(cleaned, "USA")
	}
	return Value{Single: strings.Join(cleaned, ", ")}
}

// matchAllowed compares case-insensitively, ignoring spaces and
// hyphens, and returns the canonical allowed spelling.
func matchAllowed(allowed []string, raw string) (string, bool) {
	key := foldToken(raw)
	for _, candidate := range allowed {
		if foldToken(candidate) == key {
			return candidate, true
		}
	}
	return "", false
}

func foldToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// normalizeMulti splits on connective tokens; every piece must match
// the allowed set, duplicates collapse to first-seen order.
func normalizeMulti(def *Definition, raw string) ([]string, error) {
	pieces := multiSplitPattern.Split(raw, -1)
	seen := make(map[string]struct{}, len(pieces))
	tokens := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		canonical, ok := matchAllowed(def.Allowed, piece)
		if !ok {
			return nil, fmt.Errorf("%w: facet=%s token=%q", ErrInvalidValue, def.ID, piece)
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		tokens = append(tokens, canonical)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: facet=%s has no recognizable tokens", ErrInvalidValue, def.ID)
	}
	return tokens, nil
}

// normalizeBand takes the first numeric token in the raw value and
// maps it through the ordered bounds with <= comparisons. Bound order
// is significant; first match wins.
func normalizeBand(def *Definition, raw string) (string, error) {
	match := numberPattern.FindString(raw)
	if match == "" {
		return "", fmt.Errorf("%w: facet=%s value=%q has no numeric quantity", ErrInvalidValue, def.ID, raw)
	}
	quantity, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return "", fmt.Errorf("%w: facet=%s value=%q: %v", ErrInvalidValue, def.ID, raw, err)
	}
	for _, band := range def.Bands {
		if quantity <= band.UpperBound {
			return band.Label, nil
		}
	}
	// Unreachable while the last band is a catch-all; NewRegistry
	// enforces that.
	return "", fmt.Errorf("%w: facet=%s value=%q exceeds all bands", ErrInvalidValue, def.ID, raw)
}
