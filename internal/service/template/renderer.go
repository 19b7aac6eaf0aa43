package template

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/sequencer/internal/domain"
)

// Renderer renders step templates with Liquid, caching compiled
// templates keyed by step and field.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewRenderer creates a renderer with the sequencer's custom filters.
func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	// Fallback for sparse directory data: {{ first_name | default: "there" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Renderer{engine: engine}
}

// RenderedEmail is the output of rendering one step for one prospect.
type RenderedEmail struct {
	Subject string
	Body    string
}

// Render produces the subject and body for one prospect. unsubscribeURL
// is the prospect's signed unsubscribe link and must be non-empty for
// any template that embeds it.
func (r *Renderer) Render(tpl domain.Template, firstName, email, unsubscribeURL string) (*RenderedEmail, error) {
	bindings := map[string]interface{}{
		"first_name":      firstName,
		"email":           email,
		"unsubscribe_url": unsubscribeURL,
	}

	subject, err := r.render(fmt.Sprintf("step:%d:subject", tpl.Step), tpl.Subject, bindings)
	if err != nil {
		return nil, fmt.Errorf("render subject for step %d: %w", tpl.Step, err)
	}
	body, err := r.render(fmt.Sprintf("step:%d:body", tpl.Step), tpl.Body, bindings)
	if err != nil {
		return nil, fmt.Errorf("render body for step %d: %w", tpl.Step, err)
	}

	return &RenderedEmail{Subject: subject, Body: body}, nil
}

func (r *Renderer) render(cacheKey, source string, bindings map[string]interface{}) (string, error) {
	if cached, ok := r.cache.Load(cacheKey); ok {
		return cached.(*liquid.Template).RenderString(bindings)
	}

	tpl, err := r.engine.ParseString(source)
	if err != nil {
		return "", err
	}
	r.cache.Store(cacheKey, tpl)
	return tpl.RenderString(bindings)
}
