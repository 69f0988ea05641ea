// Package exprengine is the default timeline.Evaluator, backed by github.com/expr-lang/expr.
//
// Scripts use expr syntax with profile variables written as in the configuration, e.g.
//
//	$feature.NAME + " (" + string($feature.YEAR) + ")"
//	$feature.STATUS == "open" ? "Open" : "Closed"
//	formatDate($feature.EVENT_DATE, "MMM D, YYYY")
//
// Variables are bound under their configured names, "$" included, so string literals are never
// touched. A feature-typed variable is the attribute map of the bound feature, so a missing
// attribute evaluates to nil.
package exprengine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

var identifierPattern = regexp.MustCompile(`^\$?[A-Za-z_][A-Za-z0-9_]*$`)

// $env is the expr builtin for the whole environment.
const reservedVariableName = "$env"

// ErrInvalidVariableName is returned when a profile variable cannot be expressed as an identifier.
var ErrInvalidVariableName = errors.New("invalid profile variable name")

// Engine compiles scripts into expr programs. The zero value is not usable, use New.
type Engine struct {
	options []expr.Option
	utc     bool
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLocalTime makes formatDate render dates in local time instead of UTC.
func WithLocalTime() Option {
	return func(e *Engine) error {
		e.utc = false
		return nil
	}
}

// WithExprOptions passes additional options to expr.Compile, e.g. expr.Function.
func WithExprOptions(options ...expr.Option) Option {
	return func(e *Engine) error {
		e.options = append(e.options, options...)
		return nil
	}
}

// New creates an Engine.
func New(options ...Option) (*Engine, error) {
	e := &Engine{utc: true}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Compile implements timeline.Evaluator.
func (e *Engine) Compile(spec timeline.ExpressionSpec) (timeline.CompiledExpression, error) {
	if spec.IsZero() {
		return nil, errors.Join(timeline.ErrCompilingExpressionFailed, timeline.ErrEmptyScript)
	}

	profile := spec.EffectiveProfile()

	variables, err := resolveVariables(profile)
	if err != nil {
		return nil, errors.Join(timeline.ErrCompilingExpressionFailed, err)
	}

	env := make(map[string]any, len(variables))
	for _, v := range variables {
		env[v.name] = v.prototype()
	}

	options := []expr.Option{expr.Env(env), e.formatDateFunction()}
	options = append(options, e.options...)

	program, err := expr.Compile(spec.Script, options...)
	if err != nil {
		return nil, errors.Join(timeline.ErrCompilingExpressionFailed, err)
	}

	return &Expression{
		script:    spec.Script,
		profile:   profile,
		variables: variables,
		program:   program,
	}, nil
}

func (e *Engine) formatDateFunction() expr.Option {
	return expr.Function(
		"formatDate",
		func(params ...any) (any, error) {
			return timeline.FormatDate(params[0], params[1].(string), e.utc), nil
		},
		new(func(any, string) string),
	)
}

// Expression is a compiled script. It keeps no state between evaluations.
type Expression struct {
	script    string
	profile   timeline.Profile
	variables []variable
	program   *vm.Program
}

// Profile implements timeline.CompiledExpression.
func (x *Expression) Profile() timeline.Profile {
	return x.profile
}

// Script returns the script as configured.
func (x *Expression) Script() string {
	return x.script
}

// Evaluate implements timeline.CompiledExpression. Missing bindings evaluate to nil.
func (x *Expression) Evaluate(ctx context.Context, bindings timeline.Bindings) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env := make(map[string]any, len(x.variables))
	for _, v := range x.variables {
		env[v.name] = v.bind(bindings[v.name])
	}

	result, err := expr.Run(x.program, env)
	if err != nil {
		return nil, errors.Join(timeline.ErrEvaluatingExpressionFailed, err)
	}

	return result, nil
}

type variable struct {
	name string
	kind string
}

func resolveVariables(profile timeline.Profile) ([]variable, error) {
	variables := make([]variable, 0, len(profile.Variables))
	for _, pv := range profile.Variables {
		if !identifierPattern.MatchString(pv.Name) || pv.Name == reservedVariableName {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVariableName, pv.Name)
		}

		variables = append(variables, variable{
			name: pv.Name,
			kind: strings.ToLower(pv.Type),
		})
	}

	return variables, nil
}

// prototype is the compile-time value of the variable, which fixes its type for the checker.
func (v variable) prototype() any {
	switch v.kind {
	case timeline.VariableTypeFeature, timeline.VariableTypeDict:
		return map[string]any{}
	case timeline.VariableTypeText:
		return ""
	case timeline.VariableTypeNumber:
		return float64(0)
	default:
		return nil
	}
}

// bind converts a binding into the runtime value of the variable.
func (v variable) bind(value any) any {
	switch v.kind {
	case timeline.VariableTypeFeature:
		return featureAttributes(value)
	case timeline.VariableTypeDict:
		if m, ok := value.(map[string]any); ok {
			return m
		}
		return map[string]any{}
	case timeline.VariableTypeText:
		if value == nil {
			return ""
		}
		return fmt.Sprint(value)
	case timeline.VariableTypeNumber:
		if f, ok := toFloat64(value); ok {
			return f
		}
		return float64(0)
	default:
		return value
	}
}

func featureAttributes(value any) map[string]any {
	switch f := value.(type) {
	case timeline.Feature:
		if f.Attributes == nil {
			return map[string]any{}
		}
		return f.Attributes
	case *timeline.Feature:
		if f == nil || f.Attributes == nil {
			return map[string]any{}
		}
		return f.Attributes
	case map[string]any:
		return f
	default:
		return map[string]any{}
	}
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

var _ timeline.Evaluator = (*Engine)(nil)
