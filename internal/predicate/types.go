package predicate

// Expr is a node of a filter expression.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	exprNode()
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// LogicalOp joins two boolean expressions.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
)

// ArithOp is a binary arithmetic or bitwise operator.
type ArithOp string

const (
	OpAdd    ArithOp = "+"
	OpSub    ArithOp = "-"
	OpMul    ArithOp = "*"
	OpDiv    ArithOp = "/"
	OpMod    ArithOp = "%"
	OpBitAnd ArithOp = "&"
	OpBitOr  ArithOp = "|"
	OpBitXor ArithOp = "^"
)

// FieldRef references a column of the queried kind by name.
type FieldRef struct {
	Name string
}

func (FieldRef) exprNode() {}

// Constant is a literal or captured value. It is never interpolated into SQL;
// the compiler binds it as a parameter after encoding it like a field value.
type Constant struct {
	Value any
}

func (Constant) exprNode() {}

// Comparison compares two operands.
//
// Comparing against a nil Constant with OpEq or OpNe means IS NULL and
// IS NOT NULL respectively.
type Comparison struct {
	Op          CompareOp
	Left, Right Expr
}

func (Comparison) exprNode() {}

// Logical combines two boolean expressions.
type Logical struct {
	Op          LogicalOp
	Left, Right Expr
}

func (Logical) exprNode() {}

// Not inverts a boolean expression.
type Not struct {
	Operand Expr
}

func (Not) exprNode() {}

// Arithmetic computes a numeric value from two operands.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Expr
}

func (Arithmetic) exprNode() {}

// Negate is unary minus.
type Negate struct {
	Operand Expr
}

func (Negate) exprNode() {}

// IsNull tests an operand for NULL.
type IsNull struct {
	Operand Expr
}

func (IsNull) exprNode() {}
