package predicate

import (
	"errors"
	"fmt"

	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

// Walk calls fn for e and every node below it, depth first, left to right.
// Traversal of a subtree stops when fn returns false.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case Comparison:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Comparison:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Logical:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Logical:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Arithmetic:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Arithmetic:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case Not:
		Walk(n.Operand, fn)
	case *Not:
		Walk(n.Operand, fn)
	case Negate:
		Walk(n.Operand, fn)
	case *Negate:
		Walk(n.Operand, fn)
	case IsNull:
		Walk(n.Operand, fn)
	case *IsNull:
		Walk(n.Operand, fn)
	}
}

// Fields returns the field names referenced by e, in first-seen order.
func Fields(e Expr) []string {
	seen := map[string]bool{}
	names := []string{}
	Walk(e, func(n Expr) bool {
		var name string
		switch f := n.(type) {
		case FieldRef:
			name = f.Name
		case *FieldRef:
			name = f.Name
		default:
			return true
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return true
	})
	return names
}

// Validate checks that every field e references is known and that no
// operand is missing. known reports whether a column exists on the kind.
//
// All problems are reported together as argument errors. A nil expression
// is valid and means no filter.
func Validate(e Expr, known func(column string) bool) error {
	v := &validator{known: known}
	v.validate(e, "filter")
	return errors.Join(v.errs...)
}

// validator accumulates problems during traversal.
type validator struct {
	known func(string) bool
	errs  []error
}

func (v *validator) fail(path, format string, args ...any) {
	v.errs = append(v.errs, storeerr.Argument(path, fmt.Sprintf(format, args...)))
}

func (v *validator) validate(e Expr, path string) {
	switch n := e.(type) {
	case nil:
		return
	case FieldRef:
		v.field(n, path)
	case *FieldRef:
		v.field(*n, path)
	case Constant, *Constant:
	case Comparison:
		v.binary(n.Left, n.Right, path)
	case *Comparison:
		v.binary(n.Left, n.Right, path)
	case Logical:
		v.binary(n.Left, n.Right, path)
	case *Logical:
		v.binary(n.Left, n.Right, path)
	case Arithmetic:
		v.binary(n.Left, n.Right, path)
	case *Arithmetic:
		v.binary(n.Left, n.Right, path)
	case Not:
		v.unary(n.Operand, path)
	case *Not:
		v.unary(n.Operand, path)
	case Negate:
		v.unary(n.Operand, path)
	case *Negate:
		v.unary(n.Operand, path)
	case IsNull:
		v.unary(n.Operand, path)
	case *IsNull:
		v.unary(n.Operand, path)
	}
}

func (v *validator) field(f FieldRef, path string) {
	if f.Name == "" {
		v.fail(path, "field reference has no name")
		return
	}
	if v.known != nil && !v.known(f.Name) {
		v.fail(path, "unknown field %q", f.Name)
	}
}

func (v *validator) binary(left, right Expr, path string) {
	if left == nil {
		v.fail(path, "missing left operand")
	}
	if right == nil {
		v.fail(path, "missing right operand")
	}
	v.validate(left, path+".left")
	v.validate(right, path+".right")
}

func (v *validator) unary(operand Expr, path string) {
	if operand == nil {
		v.fail(path, "missing operand")
		return
	}
	v.validate(operand, path+".operand")
}
