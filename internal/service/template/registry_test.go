package template

import (
	"testing"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeSteps() []domain.Template {
	return []domain.Template{
		{Step: 1, Subject: "Quick question, {{ first_name }}", Body: "Hi {{ first_name }}. <a href=\"{{ unsubscribe_url }}\">Unsubscribe</a>", DelayDays: 0, TrackingTag: "step-1"},
		{Step: 2, Subject: "Following up", Body: "Still there, {{ first_name | default: \"there\" }}? {{ unsubscribe_url }}", DelayDays: 2, TrackingTag: "step-2"},
		{Step: 3, Subject: "Last note", Body: "Closing the loop. {{ unsubscribe_url }}", DelayDays: 5, TrackingTag: "step-3"},
	}
}

func TestNewRegistry_RejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name      string
		templates []domain.Template
	}{
		{"empty", nil},
		{"duplicate step", []domain.Template{
			{Step: 1, Subject: "a", Body: "b", DelayDays: 0},
			{Step: 1, Subject: "c", Body: "d", DelayDays: 1},
		}},
		{"zero step number", []domain.Template{{Step: 0, Subject: "a", Body: "b"}}},
		{"decreasing delays", []domain.Template{
			{Step: 1, Subject: "a", Body: "b", DelayDays: 3},
			{Step: 2, Subject: "c", Body: "d", DelayDays: 1},
		}},
		{"missing body", []domain.Template{{Step: 1, Subject: "a", DelayDays: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.templates)
			assert.Error(t, err)
		})
	}
}

func TestResolve_UnknownStep(t *testing.T) {
	reg, err := NewRegistry(threeSteps())
	require.NoError(t, err)

	_, err = reg.Resolve(4)
	assert.ErrorIs(t, err, ErrNotFound)

	tpl, err := reg.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, 2, tpl.DelayDays)
	assert.Equal(t, "step-2", tpl.TrackingTag)
}

func TestRender_SubstitutesVariables(t *testing.T) {
	reg, err := NewRegistry(threeSteps())
	require.NoError(t, err)
	renderer := NewRenderer()

	tpl, _ := reg.Resolve(1)
	out, err := renderer.Render(tpl, "Jane", "jane@x.com", "https://seq.example.com/u/abc/def")
	require.NoError(t, err)

	assert.Equal(t, "Quick question, Jane", out.Subject)
	assert.Contains(t, out.Body, "Hi Jane.")
	assert.Contains(t, out.Body, "https://seq.example.com/u/abc/def")
}

func TestRender_DefaultFilterForMissingFirstName(t *testing.T) {
	reg, err := NewRegistry(threeSteps())
	require.NoError(t, err)
	renderer := NewRenderer()

	tpl, _ := reg.Resolve(2)
	out, err := renderer.Render(tpl, "", "anon@x.com", "https://seq.example.com/u/a/b")
	require.NoError(t, err)

	assert.Contains(t, out.Body, "Still there, there?")
}

func TestRender_CachesCompiledTemplates(t *testing.T) {
	reg, err := NewRegistry(threeSteps())
	require.NoError(t, err)
	renderer := NewRenderer()
	tpl, _ := reg.Resolve(3)

	for i := 0; i < 3; i++ {
		out, err := renderer.Render(tpl, "Sam", "sam@x.com", "u")
		require.NoError(t, err)
		assert.Equal(t, "Last note", out.Subject)
	}
}
