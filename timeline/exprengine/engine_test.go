package exprengine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline/exprengine"
)

func newEngine(t *testing.T) *exprengine.Engine {
	t.Helper()

	engine, err := exprengine.New()
	require.NoError(t, err)

	return engine
}

func givenFeature() timeline.Feature {
	return timeline.Feature{Attributes: map[string]any{
		"NAME":       "Stone Arch Bridge",
		"YEAR":       1883,
		"STATUS":     "open",
		"EVENT_DATE": int64(1577836800000),
	}}
}

func Test_Engine_Evaluate_FeatureExpressions(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected any
	}{
		{name: "attribute", script: "$feature.NAME", expected: "Stone Arch Bridge"},
		{name: "concatenation", script: `$feature.NAME + " (" + string($feature.YEAR) + ")"`, expected: "Stone Arch Bridge (1883)"},
		{name: "conditional", script: `$feature.STATUS == "open" ? "Open" : "Closed"`, expected: "Open"},
		{name: "missing_attribute", script: "$feature.NOPE", expected: nil},
		{name: "format_date", script: `formatDate($feature.EVENT_DATE, "YYYY-MM-DD")`, expected: "2020-01-01"},
		{name: "variable_name_inside_string_literal", script: `"cost in $feature units: " + $feature.NAME`, expected: "cost in $feature units: Stone Arch Bridge"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			compiled, err := newEngine(t).Compile(timeline.Expr(tc.script))
			require.NoError(t, err)

			// act
			result, err := timeline.EvaluateForFeature(context.Background(), compiled, givenFeature(), nil)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func Test_Engine_Compile_When_Invalid_Then_CompileError(t *testing.T) {
	tests := []struct {
		name string
		spec timeline.ExpressionSpec
	}{
		{name: "empty_script", spec: timeline.Expr("  ")},
		{name: "syntax_error", spec: timeline.Expr("$feature.NAME +")},
		{name: "undeclared_variable", spec: timeline.Expr("$layer.NAME")},
		{
			name: "invalid_variable_name",
			spec: timeline.ExpressionSpec{
				Script:  "1",
				Profile: &timeline.Profile{Variables: []timeline.ProfileVariable{{Name: "$not valid", Type: "feature"}}},
			},
		},
		{
			name: "reserved_variable_name",
			spec: timeline.ExpressionSpec{
				Script:  "1",
				Profile: &timeline.Profile{Variables: []timeline.ProfileVariable{{Name: "$env", Type: "dict"}}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// act
			compiled, err := newEngine(t).Compile(tc.spec)

			// assert
			assert.ErrorIs(t, err, timeline.ErrCompilingExpressionFailed)
			assert.Nil(t, compiled)
		})
	}
}

func Test_Engine_Evaluate_When_RuntimeTypeMismatch_Then_EvaluationError(t *testing.T) {
	// arrange
	compiled, err := newEngine(t).Compile(timeline.Expr("$feature.NAME + 1"))
	require.NoError(t, err)

	// act
	_, err = timeline.EvaluateForFeature(context.Background(), compiled, givenFeature(), nil)

	// assert
	assert.ErrorIs(t, err, timeline.ErrEvaluatingExpressionFailed)
}

func Test_Engine_CustomProfile(t *testing.T) {
	// arrange
	spec := timeline.ExpressionSpec{
		Script: `$f.NAME + $suffix`,
		Profile: &timeline.Profile{Variables: []timeline.ProfileVariable{
			{Name: "$f", Type: timeline.VariableTypeFeature},
			{Name: "$suffix", Type: timeline.VariableTypeText},
		}},
	}
	compiled, err := newEngine(t).Compile(spec)
	require.NoError(t, err)

	// act
	result, err := timeline.EvaluateForFeature(context.Background(), compiled, givenFeature(), timeline.Bindings{"$suffix": "!"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Stone Arch Bridge!", result)
}

func Test_Engine_CustomProfile_When_NamesSharePrefix_Then_EachBindsItsOwnValue(t *testing.T) {
	// arrange
	spec := timeline.ExpressionSpec{
		Script: `$label + ": " + $labelSuffix + " '$label'"`,
		Profile: &timeline.Profile{Variables: []timeline.ProfileVariable{
			{Name: "$label", Type: timeline.VariableTypeText},
			{Name: "$labelSuffix", Type: timeline.VariableTypeText},
		}},
	}
	compiled, err := newEngine(t).Compile(spec)
	require.NoError(t, err)

	// act
	result, err := compiled.Evaluate(context.Background(), timeline.Bindings{"$label": "bridge", "$labelSuffix": "open"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "bridge: open '$label'", result)
}

func Test_Engine_Evaluate_When_ContextCanceled_Then_Error(t *testing.T) {
	// arrange
	compiled, err := newEngine(t).Compile(timeline.Expr("$feature.NAME"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	_, err = timeline.EvaluateForFeature(ctx, compiled, givenFeature(), nil)

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Engine_CompiledExpression_IsSafeForConcurrentEvaluation(t *testing.T) {
	// arrange
	compiled, err := newEngine(t).Compile(timeline.Expr(`$feature.NAME + "!"`))
	require.NoError(t, err)

	// act
	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = timeline.EvaluateForFeature(context.Background(), compiled, givenFeature(), nil)
		}()
	}
	wg.Wait()

	// assert
	for _, result := range results {
		assert.Equal(t, "Stone Arch Bridge!", result)
	}
}
