package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/pagemerge/model"
	"github.com/tsawler/pagemerge/spatial"
)

// ErrInvalidPlan is wrapped by every plan validation error
var ErrInvalidPlan = errors.New("invalid merge plan")

// Policy describes one merge pass
type Policy struct {
	// Target is the class whose detections are clustered
	Target model.Class `yaml:"target"`

	// PassThrough lists classes that may bridge two target detections
	PassThrough []model.Class `yaml:"pass_through"`

	// TableMerge attaches pass-through detections lying inside a cluster's
	// union box to that cluster
	TableMerge bool `yaml:"table_merge"`

	// HeaderBearing marks classes whose merged objects carry a header.
	// It must be declared explicitly.
	HeaderBearing *bool `yaml:"header_bearing"`
}

// PassesThrough reports whether c may bridge two target detections
func (p Policy) PassesThrough(c model.Class) bool {
	for _, pc := range p.PassThrough {
		if pc == c {
			return true
		}
	}
	return false
}

// BearsHeader reports whether merged objects of this pass carry a header.
// Undeclared values read as false; Validate rejects them.
func (p Policy) BearsHeader() bool {
	return p.HeaderBearing != nil && *p.HeaderBearing
}

// Plan is the ordered list of merge passes applied to every page
type Plan struct {
	// Margin is the adjacency margin in page pixels
	Margin float64 `yaml:"margin"`

	// Passes run strictly in slice order
	Passes []Policy `yaml:"passes"`
}

// DefaultPlan returns the reference pipeline: tables first (bridging over
// figures, section headers and running headers/footers), then figures.
func DefaultPlan() Plan {
	return Plan{
		Margin: spatial.DefaultMargin,
		Passes: []Policy{
			{
				Target: model.ClassTable,
				PassThrough: []model.Class{
					model.ClassFigure,
					model.ClassSectionHeader,
					model.ClassPageFooter,
					model.ClassPageHeader,
				},
				TableMerge:    true,
				HeaderBearing: Bool(true),
			},
			{
				Target:        model.ClassFigure,
				PassThrough:   []model.Class{},
				TableMerge:    false,
				HeaderBearing: Bool(false),
			},
		},
	}
}

// Bool returns a pointer to v, for declaring HeaderBearing in literals
func Bool(v bool) *bool {
	return &v
}

// Targets returns the target classes in pass order
func (pl Plan) Targets() []model.Class {
	out := make([]model.Class, len(pl.Passes))
	for i, p := range pl.Passes {
		out[i] = p.Target
	}
	return out
}

// Validate checks the plan for contract violations. A plan that fails
// validation must not be used to merge any page.
func (pl Plan) Validate() error {
	if pl.Margin < 0 {
		return fmt.Errorf("%w: negative margin %v", ErrInvalidPlan, pl.Margin)
	}
	if len(pl.Passes) == 0 {
		return fmt.Errorf("%w: no passes", ErrInvalidPlan)
	}

	seen := make(map[model.Class]bool, len(pl.Passes))
	for i, p := range pl.Passes {
		if !p.Target.Known() {
			return fmt.Errorf("%w: pass %d has no target class", ErrInvalidPlan, i)
		}
		if seen[p.Target] {
			return fmt.Errorf("%w: target %s appears in more than one pass", ErrInvalidPlan, p.Target)
		}
		seen[p.Target] = true

		if p.HeaderBearing == nil {
			return fmt.Errorf("%w: target %s does not declare header_bearing", ErrInvalidPlan, p.Target)
		}
		for _, c := range p.PassThrough {
			if !c.Known() {
				return fmt.Errorf("%w: target %s lists an unknown pass-through class", ErrInvalidPlan, p.Target)
			}
			if c == p.Target {
				return fmt.Errorf("%w: target %s passes through itself", ErrInvalidPlan, p.Target)
			}
		}
	}

	if cycle := pl.passThroughCycle(); cycle != nil {
		names := make([]string, len(cycle))
		for i, c := range cycle {
			names[i] = c.String()
		}
		return fmt.Errorf("%w: circular pass-through %s", ErrInvalidPlan, strings.Join(names, " -> "))
	}
	return nil
}

// passThroughCycle returns a cycle in the graph target -> pass-through
// class, restricted to classes that are targets of the plan, or nil.
func (pl Plan) passThroughCycle() []model.Class {
	edges := make(map[model.Class][]model.Class, len(pl.Passes))
	for _, p := range pl.Passes {
		edges[p.Target] = p.PassThrough
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[model.Class]int, len(edges))
	var stack []model.Class

	var visit func(c model.Class) []model.Class
	visit = func(c model.Class) []model.Class {
		color[c] = grey
		stack = append(stack, c)
		for _, next := range edges[c] {
			if _, isTarget := edges[next]; !isTarget {
				continue
			}
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						return append(append([]model.Class(nil), stack[i:]...), next)
					}
				}
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[c] = black
		return nil
	}

	for _, p := range pl.Passes {
		if color[p.Target] == white {
			if cycle := visit(p.Target); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// rawPolicy is the file form of a Policy. Labels are kept as strings so
// that a misspelled class is reported by name.
type rawPolicy struct {
	Target        string   `yaml:"target"`
	PassThrough   []string `yaml:"pass_through"`
	TableMerge    bool     `yaml:"table_merge"`
	HeaderBearing *bool    `yaml:"header_bearing"`
}

func (r rawPolicy) policy() (Policy, error) {
	p := Policy{
		PassThrough:   make([]model.Class, 0, len(r.PassThrough)),
		TableMerge:    r.TableMerge,
		HeaderBearing: r.HeaderBearing,
	}
	if r.Target != "" {
		c, err := model.ParseClass(r.Target)
		if err != nil {
			return Policy{}, err
		}
		p.Target = c
	}
	for _, label := range r.PassThrough {
		c, err := model.ParseClass(label)
		if err != nil {
			return Policy{}, err
		}
		p.PassThrough = append(p.PassThrough, c)
	}
	return p, nil
}

// Parse reads a plan from YAML. A missing margin defaults to
// spatial.DefaultMargin. Class labels must be known. The returned plan is
// validated.
func Parse(data []byte) (Plan, error) {
	var raw struct {
		Margin *float64    `yaml:"margin"`
		Passes []rawPolicy `yaml:"passes"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Plan{}, fmt.Errorf("parse merge plan: %w", err)
	}

	pl := Plan{Margin: spatial.DefaultMargin, Passes: make([]Policy, 0, len(raw.Passes))}
	if raw.Margin != nil {
		pl.Margin = *raw.Margin
	}
	for i, rp := range raw.Passes {
		p, err := rp.policy()
		if err != nil {
			return Plan{}, fmt.Errorf("parse merge plan: pass %d: %w", i, err)
		}
		pl.Passes = append(pl.Passes, p)
	}
	if err := pl.Validate(); err != nil {
		return Plan{}, err
	}
	return pl, nil
}

// Load reads and validates a YAML plan file
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, err
	}
	return Parse(data)
}

// Marshal renders the plan as YAML
func (pl Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(pl)
}
