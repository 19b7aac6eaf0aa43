// Package template implements the step template registry and rendering.
//
// The registry maps sequence steps to subject/body templates, per-step
// delay-from-enrollment, and a tracking tag. Bodies are Liquid templates
// with at least {{ first_name }} and {{ unsubscribe_url }} available.
package template

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ignite/sequencer/internal/domain"
)

// ErrNotFound is returned when a step has no registered template.
var ErrNotFound = errors.New("template not found for step")

// Registry holds the ordered step templates for the sequence. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	byStep map[int]domain.Template
	steps  []domain.Template
}

// NewRegistry builds a registry from the configured step templates.
// Steps must be unique and delays non-decreasing in step order, since
// offsets are anchored at enrollment time.
func NewRegistry(templates []domain.Template) (*Registry, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("at least one step template is required")
	}

	steps := make([]domain.Template, len(templates))
	copy(steps, templates)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })

	byStep := make(map[int]domain.Template, len(steps))
	prevDelay := -1
	for _, t := range steps {
		if t.Step <= 0 {
			return nil, fmt.Errorf("step numbers start at 1, got %d", t.Step)
		}
		if _, dup := byStep[t.Step]; dup {
			return nil, fmt.Errorf("duplicate template for step %d", t.Step)
		}
		if t.DelayDays < 0 {
			return nil, fmt.Errorf("step %d: negative delay", t.Step)
		}
		if t.DelayDays < prevDelay {
			return nil, fmt.Errorf("step %d: delay %d days is earlier than the previous step", t.Step, t.DelayDays)
		}
		if t.Subject == "" || t.Body == "" {
			return nil, fmt.Errorf("step %d: subject and body are required", t.Step)
		}
		prevDelay = t.DelayDays
		byStep[t.Step] = t
	}

	return &Registry{byStep: byStep, steps: steps}, nil
}

// Resolve returns the template for a step, or ErrNotFound.
func (r *Registry) Resolve(step int) (domain.Template, error) {
	t, ok := r.byStep[step]
	if !ok {
		return domain.Template{}, fmt.Errorf("step %d: %w", step, ErrNotFound)
	}
	return t, nil
}

// Steps returns all templates in step order.
func (r *Registry) Steps() []domain.Template {
	out := make([]domain.Template, len(r.steps))
	copy(out, r.steps)
	return out
}
