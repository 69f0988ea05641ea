package timeline

import (
	"context"
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Profile variable types understood by EvaluateForFeature.
const (
	VariableTypeFeature = "feature"
	VariableTypeText    = "text"
	VariableTypeNumber  = "number"
	VariableTypeDict    = "dictionary"

	// FeatureVariable is the name of the variable in the default profile.
	FeatureVariable = "$feature"
)

// ProfileVariable declares one binding visible to a script.
type ProfileVariable struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Profile is the set of variable bindings a script is allowed to reference.
type Profile struct {
	Variables []ProfileVariable `json:"variables" yaml:"variables"`
}

// DefaultProfile exposes exactly one variable bound to the current feature.
func DefaultProfile() Profile {
	return Profile{Variables: []ProfileVariable{{Name: FeatureVariable, Type: VariableTypeFeature}}}
}

// FeatureVariables returns the names of all feature-typed variables.
func (p Profile) FeatureVariables() []string {
	names := make([]string, 0, 1)
	for _, variable := range p.Variables {
		if strings.EqualFold(variable.Type, VariableTypeFeature) {
			names = append(names, variable.Name)
		}
	}

	return names
}

// ExpressionSpec is a script plus the profile it runs under.
// It decodes from either a bare string or a {script, profile} object.
type ExpressionSpec struct {
	Script  string   `json:"script" yaml:"script"`
	Profile *Profile `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// Expr builds an ExpressionSpec for a raw script with the default profile.
func Expr(script string) ExpressionSpec {
	return ExpressionSpec{Script: script}
}

// IsZero reports whether no script was configured.
func (s ExpressionSpec) IsZero() bool {
	return strings.TrimSpace(s.Script) == ""
}

// EffectiveProfile returns the declared profile, or the default one.
func (s ExpressionSpec) EffectiveProfile() Profile {
	if s.Profile == nil || len(s.Profile.Variables) == 0 {
		return DefaultProfile()
	}

	return *s.Profile
}

// UnmarshalYAML accepts both the string and the object shape.
func (s *ExpressionSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Script = node.Value
		s.Profile = nil
		return nil
	}

	type plain ExpressionSpec
	var decoded plain
	if err := node.Decode(&decoded); err != nil {
		return err
	}

	*s = ExpressionSpec(decoded)

	return nil
}

// UnmarshalJSON accepts both the string and the object shape.
func (s *ExpressionSpec) UnmarshalJSON(data []byte) error {
	var script string
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &script); err == nil {
		s.Script = script
		s.Profile = nil
		return nil
	}

	type plain ExpressionSpec
	var decoded plain
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*s = ExpressionSpec(decoded)

	return nil
}

// Bindings maps profile variable names to their values for one execution.
type Bindings map[string]any

// CompiledExpression is a compiled, reusable script. It holds no reference to any feature and must be
// safe for concurrent evaluation.
type CompiledExpression interface {
	Profile() Profile
	Evaluate(ctx context.Context, bindings Bindings) (any, error)
}

// Evaluator compiles scripts for a concrete scripting engine.
// Compile failures must be joined with ErrCompilingExpressionFailed.
type Evaluator interface {
	Compile(spec ExpressionSpec) (CompiledExpression, error)
}

// EvaluateForFeature binds the feature to every feature-typed variable of the expression's profile,
// merges the optional extra bindings, and executes the expression.
func EvaluateForFeature(ctx context.Context, expr CompiledExpression, feature Feature, extra Bindings) (any, error) {
	bindings := make(Bindings, len(extra)+1)
	for name, value := range extra {
		bindings[name] = value
	}

	for _, name := range expr.Profile().FeatureVariables() {
		bindings[name] = feature
	}

	value, err := expr.Evaluate(ctx, bindings)
	if err != nil {
		if errors.Is(err, ErrEvaluatingExpressionFailed) {
			return nil, err
		}

		return nil, errors.Join(ErrEvaluatingExpressionFailed, err)
	}

	return value, nil
}

// EvaluateForFeatures runs the expression against each feature in order.
// The first failure aborts and is returned.
func EvaluateForFeatures(ctx context.Context, expr CompiledExpression, features []Feature, extra Bindings) ([]any, error) {
	results := make([]any, 0, len(features))
	for _, feature := range features {
		value, err := EvaluateForFeature(ctx, expr, feature, extra)
		if err != nil {
			return nil, err
		}

		results = append(results, value)
	}

	return results, nil
}
