package expr

import (
	"fmt"
	"math"
)

// Value is the result of evaluating an expression: either a number or a
// boolean.
type Value struct {
	IsBool bool
	Num    float64
	Bool   bool
}

func numberValue(n float64) Value { return Value{Num: n} }
func boolValue(b bool) Value      { return Value{IsBool: true, Bool: b} }

// Eval interprets the compiled expression against the applicant data
// record. Field values may be float64, int, int64, or bool (the shapes JSON
// decoding and callers produce); anything else, or a reference to an absent
// field, fails the evaluation closed.
func (c *Compiled) Eval(fields map[string]any) (Value, error) {
	return evalNode(c.root, fields)
}

func evalNode(n *node, fields map[string]any) (Value, error) {
	switch n.kind {
	case nodeNumber:
		return numberValue(n.num), nil
	case nodeBool:
		return boolValue(n.boolV), nil
	case nodeField:
		return resolveField(n.name, fields)
	case nodeCall:
		return evalCall(n, fields)
	case nodeUnary:
		return evalUnary(n, fields)
	case nodeBinary:
		return evalBinary(n, fields)
	}
	return Value{}, fmt.Errorf("%w: unknown node", ErrEvaluation)
}

func resolveField(name string, fields map[string]any) (Value, error) {
	raw, ok := fields[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: unknown field %q", ErrEvaluation, name)
	}
	switch v := raw.(type) {
	case float64:
		return numberValue(v), nil
	case int:
		return numberValue(float64(v)), nil
	case int64:
		return numberValue(float64(v)), nil
	case bool:
		return boolValue(v), nil
	default:
		return Value{}, fmt.Errorf("%w: field %q is not numeric or boolean", ErrEvaluation, name)
	}
}

func evalCall(n *node, fields map[string]any) (Value, error) {
	args := make([]float64, 0, len(n.args))
	for _, argNode := range n.args {
		arg, err := evalNode(argNode, fields)
		if err != nil {
			return Value{}, err
		}
		if arg.IsBool {
			return Value{}, fmt.Errorf("%w: function %q requires numeric arguments", ErrEvaluation, n.name)
		}
		args = append(args, arg.Num)
	}
	switch n.name {
	case "min":
		return numberValue(math.Min(args[0], args[1])), nil
	case "max":
		return numberValue(math.Max(args[0], args[1])), nil
	case "abs":
		return numberValue(math.Abs(args[0])), nil
	}
	return Value{}, fmt.Errorf("%w: function %q is not allowed", ErrEvaluation, n.name)
}

func evalUnary(n *node, fields map[string]any) (Value, error) {
	operand, err := evalNode(n.left, fields)
	if err != nil {
		return Value{}, err
	}
	switch n.op {
	case tokenMinus:
		if operand.IsBool {
			return Value{}, fmt.Errorf("%w: cannot negate a boolean", ErrEvaluation)
		}
		return numberValue(-operand.Num), nil
	case tokenNot:
		if !operand.IsBool {
			return Value{}, fmt.Errorf("%w: 'not' requires a boolean operand", ErrEvaluation)
		}
		return boolValue(!operand.Bool), nil
	}
	return Value{}, fmt.Errorf("%w: unknown unary operator", ErrEvaluation)
}

func evalBinary(n *node, fields map[string]any) (Value, error) {
	// and/or short-circuit so an error in the untaken branch cannot fail an
	// otherwise decidable rule.
	if n.op == tokenAnd || n.op == tokenOr {
		left, err := evalNode(n.left, fields)
		if err != nil {
			return Value{}, err
		}
		if !left.IsBool {
			return Value{}, fmt.Errorf("%w: 'and'/'or' require boolean operands", ErrEvaluation)
		}
		if n.op == tokenAnd && !left.Bool {
			return boolValue(false), nil
		}
		if n.op == tokenOr && left.Bool {
			return boolValue(true), nil
		}
		right, err := evalNode(n.right, fields)
		if err != nil {
			return Value{}, err
		}
		if !right.IsBool {
			return Value{}, fmt.Errorf("%w: 'and'/'or' require boolean operands", ErrEvaluation)
		}
		return boolValue(right.Bool), nil
	}

	left, err := evalNode(n.left, fields)
	if err != nil {
		return Value{}, err
	}
	right, err := evalNode(n.right, fields)
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case tokenEq, tokenNeq:
		if left.IsBool != right.IsBool {
			return Value{}, fmt.Errorf("%w: cannot compare boolean with number", ErrEvaluation)
		}
		equal := left.Bool == right.Bool
		if !left.IsBool {
			equal = left.Num == right.Num
		}
		if n.op == tokenNeq {
			equal = !equal
		}
		return boolValue(equal), nil
	}

	if left.IsBool || right.IsBool {
		return Value{}, fmt.Errorf("%w: operator requires numeric operands", ErrEvaluation)
	}

	switch n.op {
	case tokenPlus:
		return numberValue(left.Num + right.Num), nil
	case tokenMinus:
		return numberValue(left.Num - right.Num), nil
	case tokenStar:
		return numberValue(left.Num * right.Num), nil
	case tokenSlash:
		if right.Num == 0 {
			return Value{}, fmt.Errorf("%w: division by zero", ErrEvaluation)
		}
		return numberValue(left.Num / right.Num), nil
	case tokenLt:
		return boolValue(left.Num < right.Num), nil
	case tokenLte:
		return boolValue(left.Num <= right.Num), nil
	case tokenGt:
		return boolValue(left.Num > right.Num), nil
	case tokenGte:
		return boolValue(left.Num >= right.Num), nil
	}
	return Value{}, fmt.Errorf("%w: unknown operator", ErrEvaluation)
}
