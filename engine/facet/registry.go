package facet

import (
	"errors"
	"fmt"
	"math"
)

// Kind is the closed set of facet value shapes. The validator switches
// exhaustively on it; adding a kind means touching Normalize too.
type Kind string

const (
	KindLocation  Kind = "text-location"
	KindEnum      Kind = "enum"
	KindMultiEnum Kind = "multi-enum"
	KindBand      Kind = "ordered-band"
)

var (
	ErrUnknownFacet    = errors.New("unknown facet")
	ErrInvalidValue    = errors.New("invalid facet value")
	ErrDependencyCycle = errors.New("facet dependency cycle")
	ErrBadDefinition   = errors.New("invalid facet definition")
)

// Band maps any numeric quantity <= UpperBound to Label. Bands are
// evaluated in ascending bound order, first match wins; the final band
// should carry +Inf as a catch-all.
type Band struct {
	UpperBound float64 `json:"upper_bound"`
	Label      string  `json:"label"`
}

// Definition describes one facet. Immutable once registered.
type Definition struct {
	ID        string   `json:"id"`
	Kind      Kind     `json:"kind"`
	Required  bool     `json:"required"`
	Allowed   []string `json:"allowed,omitempty"`
	Bands     []Band   `json:"bands,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
	Question  string   `json:"question,omitempty"`
}

// Registry is the static facet catalog: pure lookup, no state.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs:  make(map[string]*Definition, len(defs)),
		order: make([]string, 0, len(defs)),
	}

	for i := range defs {
		def := defs[i]
		if def.ID == "" {
			return nil, fmt.Errorf("%w: empty facet id", ErrBadDefinition)
		}
		if _, ok := r.defs[def.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate facet id=%s", ErrBadDefinition, def.ID)
		}
		if err := validateDefinition(&def); err != nil {
			return nil, err
		}
		r.defs[def.ID] = &def
		r.order = append(r.order, def.ID)
	}

	for _, def := range r.defs {
		for _, dep := range def.DependsOn {
			if _, ok := r.defs[dep]; !ok {
				return nil, fmt.Errorf("%w: facet=%s depends on unknown facet=%s", ErrBadDefinition, def.ID, dep)
			}
		}
	}

	if err := r.checkCycles(); err != nil {
		return nil, err
	}

	return r, nil
}

func MustNewRegistry(defs []Definition) *Registry {
	r, err := NewRegistry(defs)
	if err != nil {
		panic(err)
	}
	return r
}

func validateDefinition(def *Definition) error {
	switch def.Kind {
	case KindLocation:
		return nil
	case KindEnum, KindMultiEnum:
		if len(def.Allowed) == 0 {
			return fmt.Errorf("%w: facet=%s kind=%s requires allowed values", ErrBadDefinition, def.ID, def.Kind)
		}
		return nil
	case KindBand:
		if len(def.Bands) == 0 {
			return fmt.Errorf("%w: facet=%s has no bands", ErrBadDefinition, def.ID)
		}
		prev := math.Inf(-1)
		for _, b := range def.Bands {
			if b.Label == "" {
				return fmt.Errorf("%w: facet=%s has a band without a label", ErrBadDefinition, def.ID)
			}
			if b.UpperBound <= prev {
				return fmt.Errorf("%w: facet=%s bands must have strictly ascending bounds", ErrBadDefinition, def.ID)
			}
			prev = b.UpperBound
		}
		if !math.IsInf(def.Bands[len(def.Bands)-1].UpperBound, 1) {
			return fmt.Errorf("%w: facet=%s last band must be a catch-all", ErrBadDefinition, def.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w: facet=%s has unknown kind=%q", ErrBadDefinition, def.ID, def.Kind)
	}
}

// checkCycles walks the dependency edges with an explicit visit state
// so a self- or transitive cycle is reported instead of looping.
func (r *Registry) checkCycles() error {
	const (
		unseen = 0
		onPath = 1
		done   = 2
	)
	state := make(map[string]int, len(r.defs))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case onPath:
			return fmt.Errorf("%w: facet=%s", ErrDependencyCycle, id)
		case done:
			return nil
		}
		state[id] = onPath
		for _, dep := range r.defs[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, id := range r.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns a definition by facet id.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.defs[id]
	return def, ok
}

// Order returns facet ids in declaration order.
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// OrderIndex is the declaration position of a facet, used as the final
// planner tie-break. Unknown facets sort last.
func (r *Registry) OrderIndex(id string) int {
	for i, cur := range r.order {
		if cur == id {
			return i
		}
	}
	return len(r.order)
}

// RequiredIDs returns the mission-independent (core) facet ids in
// declaration order.
func (r *Registry) RequiredIDs() []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if r.defs[id].Required {
			out = append(out, id)
		}
	}
	return out
}

// Facet ids of the built-in intake catalog.
const (
	FacetLocation    = "location"
	FacetGender      = "gender"
	FacetCommsPref   = "commsPref"
	FacetStep        = "step"
	FacetStepsTaught = "stepsTaught"
	FacetSpecialties = "specialties"
	FacetBudget      = "budget"
	FacetExperience  = "experience"
	FacetAvail       = "availability"
)

var stepValues = []string{"salsa", "bachata", "kizomba", "zouk"}

// Default is the built-in facet catalog for the dance-tutoring intake
// flow. It must load; a panic here is a programming error.
func Default() *Registry {
	return MustNewRegistry([]Definition{
		{
			ID:       FacetLocation,
			Kind:     KindLocation,
			Required: true,
			Question: "Where are you based?",
		},
		{
			ID:       FacetGender,
			Kind:     KindEnum,
			Required: true,
			Allowed:  []string{"female", "male", "nonbinary", "unspecified"},
			Question: "How do you identify?",
		},
		{
			ID:       FacetCommsPref,
			Kind:     KindMultiEnum,
			Required: true,
			Allowed:  []string{"video", "text", "audio", "inPerson"},
			Question: "How do you prefer to communicate?",
		},
		{
			ID:       FacetStep,
			Kind:     KindEnum,
			Allowed:  stepValues,
			Question: "Which dance is your main focus?",
		},
		{
			ID:       FacetStepsTaught,
			Kind:     KindMultiEnum,
			Allowed:  stepValues,
			Question: "Which dances do you teach?",
		},
		{
			ID:        FacetSpecialties,
			Kind:      KindMultiEnum,
			Allowed:   []string{"footwork", "musicality", "partnerwork", "styling"},
			DependsOn: []string{FacetStepsTaught},
			Question:  "What are your teaching specialties?",
		},
		{
			ID:   FacetBudget,
			Kind: KindBand,
			Bands: []Band{
				{UpperBound: 30, Label: "$"},
				{UpperBound: 60, Label: "$$"},
				{UpperBound: 100, Label: "$$$"},
				{UpperBound: math.Inf(1), Label: "$$$$"},
			},
			Question: "What hourly rate works for you?",
		},
		{
			ID:        FacetExperience,
			Kind:      KindEnum,
			Allowed:   []string{"beginner", "improver", "intermediate", "advanced"},
			DependsOn: []string{FacetStep},
			Question:  "How experienced are you in that dance?",
		},
		{
			ID:       FacetAvail,
			Kind:     KindMultiEnum,
			Allowed:  []string{"weekday", "weekend", "evening", "morning"},
			Question: "When are you usually free?",
		},
	})
}
