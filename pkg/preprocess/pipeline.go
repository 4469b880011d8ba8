package preprocess

import (
	"fmt"

	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// NamedStep pairs a step with its name inside a Pipeline.
type NamedStep struct {
	Name string
	Step Step
}

// Pipeline chains steps: each step is fit on the output of the previous one.
type Pipeline struct {
	Steps []NamedStep
}

// NewPipeline creates a pipeline. Step names must be non-empty and unique.
func NewPipeline(steps ...NamedStep) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one step")
	}
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if s.Name == "" {
			return nil, fmt.Errorf("pipeline step name is empty")
		}
		if s.Step == nil {
			return nil, fmt.Errorf("pipeline step %q is nil", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate pipeline step %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return &Pipeline{Steps: steps}, nil
}

// Fit fits every step in order.
func (p *Pipeline) Fit(t *core.Table) error {
	_, err := p.FitTransform(t)
	return err
}

// FitTransform fits every step and returns the output of the last one.
func (p *Pipeline) FitTransform(t *core.Table) (*core.Table, error) {
	out := t
	for _, s := range p.Steps {
		if err := s.Step.Fit(out); err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
		next, err := s.Step.Transform(out)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
		out = next
	}
	return out, nil
}

// Transform runs t through every fitted step.
func (p *Pipeline) Transform(t *core.Table) (*core.Table, error) {
	out := t
	for _, s := range p.Steps {
		next, err := s.Step.Transform(out)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Name, err)
		}
		out = next
	}
	return out, nil
}

// Step returns the named step.
func (p *Pipeline) Step(name string) (Step, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s.Step, true
		}
	}
	return nil, false
}
