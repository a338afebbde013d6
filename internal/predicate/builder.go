package predicate

// Field returns a reference to the named column.
func Field(name string) FieldRef {
	return FieldRef{Name: name}
}

// Value wraps v as a Constant.
func Value(v any) Constant {
	return Constant{Value: v}
}

// operand turns v into an expression. Expressions pass through,
// anything else becomes a Constant.
func operand(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Constant{Value: v}
}

// Compare builds left op right.
func Compare(op CompareOp, left, right any) Comparison {
	return Comparison{Op: op, Left: operand(left), Right: operand(right)}
}

// Arith builds left op right.
func Arith(op ArithOp, left, right any) Arithmetic {
	return Arithmetic{Op: op, Left: operand(left), Right: operand(right)}
}

// And joins exprs with AND, left to right. Nil entries are dropped.
// With no remaining expressions it returns nil, meaning no filter.
func And(exprs ...Expr) Expr {
	return fold(OpAnd, exprs)
}

// Or joins exprs with OR, left to right. Nil entries are dropped.
func Or(exprs ...Expr) Expr {
	return fold(OpOr, exprs)
}

func fold(op LogicalOp, exprs []Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = Logical{Op: op, Left: out, Right: e}
	}
	return out
}

// Invert wraps e in Not.
func Invert(e Expr) Not {
	return Not{Operand: e}
}

// Neg wraps v in Negate.
func Neg(v any) Negate {
	return Negate{Operand: operand(v)}
}

func (f FieldRef) Eq(v any) Comparison { return Compare(OpEq, f, v) }
func (f FieldRef) Ne(v any) Comparison { return Compare(OpNe, f, v) }
func (f FieldRef) Lt(v any) Comparison { return Compare(OpLt, f, v) }
func (f FieldRef) Le(v any) Comparison { return Compare(OpLe, f, v) }
func (f FieldRef) Gt(v any) Comparison { return Compare(OpGt, f, v) }
func (f FieldRef) Ge(v any) Comparison { return Compare(OpGe, f, v) }

// IsNull tests the column for NULL.
func (f FieldRef) IsNull() IsNull { return IsNull{Operand: f} }

// IsNotNull tests the column for a value.
func (f FieldRef) IsNotNull() Not { return Not{Operand: IsNull{Operand: f}} }

func (f FieldRef) Add(v any) Arithmetic    { return Arith(OpAdd, f, v) }
func (f FieldRef) Sub(v any) Arithmetic    { return Arith(OpSub, f, v) }
func (f FieldRef) Mul(v any) Arithmetic    { return Arith(OpMul, f, v) }
func (f FieldRef) Div(v any) Arithmetic    { return Arith(OpDiv, f, v) }
func (f FieldRef) Mod(v any) Arithmetic    { return Arith(OpMod, f, v) }
func (f FieldRef) BitAnd(v any) Arithmetic { return Arith(OpBitAnd, f, v) }
func (f FieldRef) BitOr(v any) Arithmetic  { return Arith(OpBitOr, f, v) }
func (f FieldRef) BitXor(v any) Arithmetic { return Arith(OpBitXor, f, v) }

func (a Arithmetic) Eq(v any) Comparison { return Compare(OpEq, a, v) }
func (a Arithmetic) Ne(v any) Comparison { return Compare(OpNe, a, v) }
func (a Arithmetic) Lt(v any) Comparison { return Compare(OpLt, a, v) }
func (a Arithmetic) Le(v any) Comparison { return Compare(OpLe, a, v) }
func (a Arithmetic) Gt(v any) Comparison { return Compare(OpGt, a, v) }
func (a Arithmetic) Ge(v any) Comparison { return Compare(OpGe, a, v) }

func (n Negate) Eq(v any) Comparison { return Compare(OpEq, n, v) }
func (n Negate) Ne(v any) Comparison { return Compare(OpNe, n, v) }
func (n Negate) Lt(v any) Comparison { return Compare(OpLt, n, v) }
func (n Negate) Le(v any) Comparison { return Compare(OpLe, n, v) }
func (n Negate) Gt(v any) Comparison { return Compare(OpGt, n, v) }
func (n Negate) Ge(v any) Comparison { return Compare(OpGe, n, v) }

func (a Arithmetic) Add(v any) Arithmetic { return Arith(OpAdd, a, v) }
func (a Arithmetic) Sub(v any) Arithmetic { return Arith(OpSub, a, v) }
func (a Arithmetic) Mul(v any) Arithmetic { return Arith(OpMul, a, v) }
func (a Arithmetic) Div(v any) Arithmetic { return Arith(OpDiv, a, v) }
func (a Arithmetic) Mod(v any) Arithmetic { return Arith(OpMod, a, v) }
