package timeline_test

import (
	"context"
	"errors"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

// bindingsRecorder returns the bindings it was evaluated with.
type bindingsRecorder struct {
	profile timeline.Profile
	err     error
}

func (r bindingsRecorder) Profile() timeline.Profile {
	return r.profile
}

func (r bindingsRecorder) Evaluate(_ context.Context, bindings timeline.Bindings) (any, error) {
	if r.err != nil {
		return nil, r.err
	}

	return bindings, nil
}

func Test_EvaluateForFeature_BindsFeatureToEveryFeatureVariable(t *testing.T) {
	// arrange
	expr := bindingsRecorder{profile: timeline.Profile{Variables: []timeline.ProfileVariable{
		{Name: "$feature", Type: "feature"},
		{Name: "$other", Type: "Feature"},
		{Name: "$limit", Type: "number"},
	}}}
	feature := timeline.Feature{Attributes: map[string]any{"NAME": "x"}}

	// act
	result, err := timeline.EvaluateForFeature(context.Background(), expr, feature, timeline.Bindings{"$limit": 3})

	// assert
	require.NoError(t, err)
	bindings := result.(timeline.Bindings)
	assert.Equal(t, feature, bindings["$feature"])
	assert.Equal(t, feature, bindings["$other"])
	assert.Equal(t, 3, bindings["$limit"])
}

func Test_EvaluateForFeature_When_EngineFails_Then_EvaluationError(t *testing.T) {
	// arrange
	expr := bindingsRecorder{profile: timeline.DefaultProfile(), err: errors.New("division by zero")}

	// act
	_, err := timeline.EvaluateForFeature(context.Background(), expr, timeline.Feature{}, nil)

	// assert
	assert.ErrorIs(t, err, timeline.ErrEvaluatingExpressionFailed)
	assert.ErrorContains(t, err, "division by zero")
}

func Test_EvaluateForFeatures_EvaluatesInOrder(t *testing.T) {
	// arrange
	compiled := compiledStub{profile: timeline.DefaultProfile(), fn: attribute("NAME")}
	features := timeline.Features{
		{Attributes: map[string]any{"NAME": "a"}},
		{Attributes: map[string]any{"NAME": "b"}},
	}

	// act
	results, err := timeline.EvaluateForFeatures(context.Background(), compiled, features, nil)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, results)
}

func Test_ExpressionSpec_DecodesBothShapes(t *testing.T) {
	type holder struct {
		Title timeline.ExpressionSpec `json:"title" yaml:"title"`
	}

	tests := []struct {
		name    string
		decode  func(h *holder) error
		script  string
		profile bool
	}{
		{
			name:   "yaml_string",
			decode: func(h *holder) error { return yaml.Unmarshal([]byte(`title: $feature.NAME`), h) },
			script: "$feature.NAME",
		},
		{
			name: "yaml_object",
			decode: func(h *holder) error {
				return yaml.Unmarshal([]byte("title:\n  script: $f.NAME\n  profile:\n    variables:\n      - name: $f\n        type: feature\n"), h)
			},
			script:  "$f.NAME",
			profile: true,
		},
		{
			name:   "json_string",
			decode: func(h *holder) error { return jsoniter.Unmarshal([]byte(`{"title":"$feature.NAME"}`), h) },
			script: "$feature.NAME",
		},
		{
			name: "json_object",
			decode: func(h *holder) error {
				return jsoniter.Unmarshal([]byte(`{"title":{"script":"$f.NAME","profile":{"variables":[{"name":"$f","type":"feature"}]}}}`), h)
			},
			script:  "$f.NAME",
			profile: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var h holder

			require.NoError(t, tc.decode(&h))
			assert.Equal(t, tc.script, h.Title.Script)

			if tc.profile {
				assert.Equal(t, []string{"$f"}, h.Title.EffectiveProfile().FeatureVariables())
			} else {
				assert.Nil(t, h.Title.Profile)
				assert.Equal(t, []string{timeline.FeatureVariable}, h.Title.EffectiveProfile().FeatureVariables())
			}
		})
	}
}
