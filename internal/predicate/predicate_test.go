package predicate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

func knownColumns(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return func(c string) bool { return set[strings.ToLower(c)] }
}

func TestBuilders(t *testing.T) {
	got := Field("Title").Eq("Star Wars")
	assert.Equal(t, Comparison{Op: OpEq, Left: FieldRef{Name: "Title"}, Right: Constant{Value: "Star Wars"}}, got)

	arith := Field("Number").Mod(2).Eq(0)
	assert.Equal(t, Comparison{
		Op:    OpEq,
		Left:  Arithmetic{Op: OpMod, Left: FieldRef{Name: "Number"}, Right: Constant{Value: 2}},
		Right: Constant{Value: 0},
	}, arith)

	// Expressions pass through as operands.
	cross := Field("A").Lt(Field("B"))
	assert.Equal(t, FieldRef{Name: "B"}, cross.Right)

	assert.Equal(t, Not{Operand: IsNull{Operand: FieldRef{Name: "TimelineId"}}}, Field("TimelineId").IsNotNull())
	assert.Equal(t, Negate{Operand: FieldRef{Name: "Number"}}, Neg(Field("Number")))
}

func TestNegate_Comparisons(t *testing.T) {
	neg := Neg(Field("Number"))

	testCases := []struct {
		got  Comparison
		want CompareOp
	}{
		{neg.Eq(-5), OpEq},
		{neg.Ne(-5), OpNe},
		{neg.Lt(-5), OpLt},
		{neg.Le(-5), OpLe},
		{neg.Gt(-5), OpGt},
		{neg.Ge(-5), OpGe},
	}
	for _, tc := range testCases {
		assert.Equal(t, Comparison{Op: tc.want, Left: neg, Right: Constant{Value: -5}}, tc.got)
	}
}

func TestAndOr_Fold(t *testing.T) {
	a := Field("A").Eq(1)
	b := Field("B").Eq(2)
	c := Field("C").Eq(3)

	assert.Nil(t, And())
	assert.Nil(t, Or(nil, nil))
	assert.Equal(t, a, And(nil, a))

	assert.Equal(t, Logical{
		Op:    OpAnd,
		Left:  Logical{Op: OpAnd, Left: a, Right: b},
		Right: c,
	}, And(a, b, c))

	assert.Equal(t, Logical{Op: OpOr, Left: a, Right: b}, Or(a, nil, b))
}

func TestFields(t *testing.T) {
	e := And(
		Field("Title").Eq("x"),
		Or(Field("Number").Add(1).Gt(Field("Title")), Invert(Field("Date").IsNull())),
	)
	assert.Equal(t, []string{"Title", "Number", "Date"}, Fields(e))
	assert.Empty(t, Fields(nil))
}

func TestWalk_StopsDescending(t *testing.T) {
	e := And(Field("A").Eq(1), Field("B").Eq(2))

	var visited int
	Walk(e, func(n Expr) bool {
		visited++
		_, isLogical := n.(Logical)
		return isLogical
	})
	// The root plus its two comparisons; the comparisons' leaves are skipped.
	assert.Equal(t, 3, visited)
}

func TestValidate(t *testing.T) {
	known := knownColumns("Id", "Title", "Number")

	testCases := []struct {
		name    string
		expr    Expr
		wantErr string
	}{
		{name: "nil filter", expr: nil},
		{name: "known fields", expr: And(Field("title").Eq("x"), Field("NUMBER").Ge(3))},
		{name: "pointer nodes", expr: &Comparison{Op: OpEq, Left: &FieldRef{Name: "Id"}, Right: &Constant{Value: 1}}},
		{name: "unknown field", expr: Field("Rating").Eq(5), wantErr: `unknown field "Rating"`},
		{name: "unknown nested", expr: Invert(Field("Title").Add(Field("Nope")).Eq(1)), wantErr: `unknown field "Nope"`},
		{name: "empty name", expr: Field("").Eq(1), wantErr: "field reference has no name"},
		{name: "missing operand", expr: Comparison{Op: OpEq, Left: Field("Title")}, wantErr: "missing right operand"},
		{name: "missing unary operand", expr: Not{}, wantErr: "missing operand"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.expr, known)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, storeerr.IsArgument(err))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := Validate(And(Field("X").Eq(1), Field("Y").Eq(2)), knownColumns("Id"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"X"`)
	assert.Contains(t, err.Error(), `"Y"`)
}
