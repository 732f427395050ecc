package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/autoexpr/internal/expr"
)

// Expression wraps an expression tree for YAML decoding and encoding.
//
// Each node is a single-key mapping: {const: 2}, {var: x},
// {add: [...]}, {mul: [...]} or {exp: {...}}. A bare number is accepted as
// a constant.
type Expression struct {
	Node expr.Node
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Expression) UnmarshalYAML(value *yaml.Node) error {
	n, err := decodeNode(value)
	if err != nil {
		return err
	}
	e.Node = n
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (e Expression) MarshalYAML() (any, error) {
	if e.Node == nil {
		return nil, nil
	}
	return expr.Visit[any](e.Node, encoder{}), nil
}

func decodeNode(value *yaml.Node) (expr.Node, error) {
	if value.Kind == yaml.AliasNode {
		value = value.Alias
	}

	switch value.Kind {
	case yaml.ScalarNode:
		var c float64
		if err := value.Decode(&c); err != nil {
			return nil, fmt.Errorf("%w: line %d: scalar %q is not a number", ErrInvalidExpr, value.Line, value.Value)
		}
		return expr.NewConst(c), nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("%w: line %d: expected a mapping", ErrInvalidExpr, value.Line)
	}

	if len(value.Content) != 2 {
		return nil, fmt.Errorf("%w: line %d: node must have exactly one key", ErrInvalidExpr, value.Line)
	}
	key, body := value.Content[0], value.Content[1]

	switch key.Value {
	case "const":
		var c float64
		if err := body.Decode(&c); err != nil {
			return nil, fmt.Errorf("%w: line %d: const: %w", ErrInvalidExpr, body.Line, err)
		}
		return expr.NewConst(c), nil

	case "var":
		var name string
		if err := body.Decode(&name); err != nil || name == "" {
			return nil, fmt.Errorf("%w: line %d: var needs a name", ErrInvalidExpr, body.Line)
		}
		return expr.NewVar(name), nil

	case "add", "mul":
		if body.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: line %d: %s expects a list", ErrInvalidExpr, body.Line, key.Value)
		}
		if len(body.Content) == 0 {
			return nil, fmt.Errorf("%w: line %d: %s needs at least one operand", ErrInvalidExpr, body.Line, key.Value)
		}
		operands := make([]expr.Node, 0, len(body.Content))
		for _, item := range body.Content {
			op, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			operands = append(operands, op)
		}
		if key.Value == "add" {
			return expr.NewAdd(operands...), nil
		}
		return expr.NewMul(operands...), nil

	case "exp":
		exponent, err := decodeNode(body)
		if err != nil {
			return nil, err
		}
		return expr.NewExp(exponent), nil

	default:
		return nil, fmt.Errorf("%w: line %d: unknown node %q", ErrInvalidExpr, key.Line, key.Value)
	}
}

// encoder renders nodes as plain maps and slices for yaml.Marshal.
type encoder struct{}

func (encoder) VisitConst(c expr.Const) any { return map[string]any{"const": c.Value()} }

func (encoder) VisitVar(v expr.Var) any { return map[string]any{"var": v.Name()} }

func (enc encoder) VisitAdd(a expr.Add) any {
	return map[string]any{"add": enc.list(a.Children())}
}

func (enc encoder) VisitMul(m expr.Mul) any {
	return map[string]any{"mul": enc.list(m.Children())}
}

func (enc encoder) VisitExp(e expr.Exp) any {
	return map[string]any{"exp": expr.Visit[any](e.Exponent(), enc)}
}

func (enc encoder) list(nodes []expr.Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = expr.Visit[any](n, enc)
	}
	return out
}
