package querysql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/thunderluca/mementofx-sqlite/internal/predicate"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

// Encoder converts a filter constant into a value the SQLite driver can bind.
// The store passes the field type mapper so constants are stored the same way
// as the columns they are compared against.
type Encoder func(v any) (any, error)

// CompiledPredicate is a parameterized WHERE fragment.
// Params are in placeholder order.
type CompiledPredicate struct {
	SQL    string
	Params []any
}

// Empty reports whether there is no filter to apply.
func (c CompiledPredicate) Empty() bool {
	return c.SQL == ""
}

var compareTokens = map[predicate.CompareOp]string{
	predicate.OpEq: "=",
	predicate.OpNe: "<>",
	predicate.OpLt: "<",
	predicate.OpLe: "<=",
	predicate.OpGt: ">",
	predicate.OpGe: ">=",
}

var logicalTokens = map[predicate.LogicalOp]string{
	predicate.OpAnd: "AND",
	predicate.OpOr:  "OR",
}

// SQLite has no XOR operator; ^ is rewritten in compileArithmetic.
var arithTokens = map[predicate.ArithOp]string{
	predicate.OpAdd:    "+",
	predicate.OpSub:    "-",
	predicate.OpMul:    "*",
	predicate.OpDiv:    "/",
	predicate.OpMod:    "%",
	predicate.OpBitAnd: "&",
	predicate.OpBitOr:  "|",
}

// Compile converts a filter expression to a parameterized SQL fragment.
//
// Binary nodes render as "(left OP right)", field references as quoted
// column names and constants as "?" placeholders; values are never
// interpolated. A nil expression compiles to an empty fragment.
// Operators outside the supported set fail with an unsupported-operator error.
func Compile(e predicate.Expr, enc Encoder) (CompiledPredicate, error) {
	if e == nil {
		return CompiledPredicate{}, nil
	}
	if enc == nil {
		enc = func(v any) (any, error) { return v, nil }
	}

	c := &compiler{enc: enc, params: []any{}}
	sql, err := c.compile(e)
	if err != nil {
		return CompiledPredicate{}, err
	}
	return CompiledPredicate{SQL: sql, Params: c.params}, nil
}

type compiler struct {
	enc    Encoder
	params []any
}

func (c *compiler) compile(e predicate.Expr) (string, error) {
	switch n := e.(type) {
	case nil:
		return "", storeerr.Argument("filter", "missing operand")
	case predicate.FieldRef:
		return c.compileField(n)
	case *predicate.FieldRef:
		return c.compileField(*n)
	case predicate.Constant:
		return c.compileConstant(n)
	case *predicate.Constant:
		return c.compileConstant(*n)
	case predicate.Comparison:
		return c.compileComparison(n)
	case *predicate.Comparison:
		return c.compileComparison(*n)
	case predicate.Logical:
		return c.compileLogical(n)
	case *predicate.Logical:
		return c.compileLogical(*n)
	case predicate.Arithmetic:
		return c.compileArithmetic(n)
	case *predicate.Arithmetic:
		return c.compileArithmetic(*n)
	case predicate.Not:
		return c.compileUnary("NOT ", n.Operand)
	case *predicate.Not:
		return c.compileUnary("NOT ", n.Operand)
	case predicate.Negate:
		return c.compileUnary("- ", n.Operand)
	case *predicate.Negate:
		return c.compileUnary("- ", n.Operand)
	case predicate.IsNull:
		return c.compileIsNull(n.Operand, false)
	case *predicate.IsNull:
		return c.compileIsNull(n.Operand, false)
	default:
		return "", storeerr.UnsupportedOperator(fmt.Sprintf("%T", e))
	}
}

func (c *compiler) compileField(f predicate.FieldRef) (string, error) {
	if f.Name == "" {
		return "", storeerr.Argument("filter", "field reference has no name")
	}
	return QuoteIdent(f.Name), nil
}

func (c *compiler) compileConstant(k predicate.Constant) (string, error) {
	v, err := c.enc(k.Value)
	if err != nil {
		return "", fmt.Errorf("encode filter constant: %w", err)
	}
	c.params = append(c.params, v)
	return "?", nil
}

func (c *compiler) compileComparison(cmp predicate.Comparison) (string, error) {
	token, ok := compareTokens[cmp.Op]
	if !ok {
		return "", storeerr.UnsupportedOperator(fmt.Sprintf("Comparison(%s)", cmp.Op))
	}

	// NULL never compares equal; x = nil means x IS NULL.
	if cmp.Op == predicate.OpEq || cmp.Op == predicate.OpNe {
		negate := cmp.Op == predicate.OpNe
		switch {
		case isNilConstant(cmp.Right):
			return c.compileIsNull(cmp.Left, negate)
		case isNilConstant(cmp.Left):
			return c.compileIsNull(cmp.Right, negate)
		}
	}
	return c.compileBinary(token, cmp.Left, cmp.Right)
}

func (c *compiler) compileLogical(l predicate.Logical) (string, error) {
	token, ok := logicalTokens[l.Op]
	if !ok {
		return "", storeerr.UnsupportedOperator(fmt.Sprintf("Logical(%s)", l.Op))
	}
	return c.compileBinary(token, l.Left, l.Right)
}

func (c *compiler) compileArithmetic(a predicate.Arithmetic) (string, error) {
	if a.Op == predicate.OpBitXor {
		// a ^ b == (a | b) - (a & b)
		or, err := c.compileBinary("|", a.Left, a.Right)
		if err != nil {
			return "", err
		}
		and, err := c.compileBinary("&", a.Left, a.Right)
		if err != nil {
			return "", err
		}
		return "(" + or + " - " + and + ")", nil
	}

	token, ok := arithTokens[a.Op]
	if !ok {
		return "", storeerr.UnsupportedOperator(fmt.Sprintf("Arithmetic(%s)", a.Op))
	}
	return c.compileBinary(token, a.Left, a.Right)
}

func (c *compiler) compileBinary(token string, left, right predicate.Expr) (string, error) {
	l, err := c.compile(left)
	if err != nil {
		return "", err
	}
	r, err := c.compile(right)
	if err != nil {
		return "", err
	}
	return "(" + l + " " + token + " " + r + ")", nil
}

func (c *compiler) compileUnary(prefix string, operand predicate.Expr) (string, error) {
	x, err := c.compile(operand)
	if err != nil {
		return "", err
	}
	return "(" + prefix + x + ")", nil
}

func (c *compiler) compileIsNull(operand predicate.Expr, negate bool) (string, error) {
	x, err := c.compile(operand)
	if err != nil {
		return "", err
	}
	if negate {
		return "(" + x + " IS NOT NULL)", nil
	}
	return "(" + x + " IS NULL)", nil
}

func isNilConstant(e predicate.Expr) bool {
	var v any
	switch k := e.(type) {
	case predicate.Constant:
		v = k.Value
	case *predicate.Constant:
		v = k.Value
	default:
		return false
	}
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// QuoteIdent renders name as a double-quoted SQLite identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
