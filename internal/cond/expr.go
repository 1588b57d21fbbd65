// Package cond models filter predicates as a small expression tree.
//
// A tree is built once and then either evaluated against in-memory records
// (Eval) or compiled into a single SQL condition (Compile, Scope). Relations
// are matched with correlated EXISTS subqueries, so a compiled predicate never
// multiplies the rows of the outer table.
package cond

// Op is a comparison operator.
type Op string

// Supported comparison operators.
const (
	OpEq        Op = "eq"
	OpIn        Op = "in"
	OpGte       Op = "gte"
	OpLte       Op = "lte"
	OpIContains Op = "icontains"
)

// Expr is a node of a predicate tree.
type Expr interface {
	isExpr()
}

// And holds when every operand holds. An empty And is true.
type And []Expr

// Or holds when at least one operand holds. An empty Or is false.
type Or []Expr

// Compare tests one field of a record against a value. For OpIn the value
// is a slice.
type Compare struct {
	Field string
	Op    Op
	Value any
}

// Exists holds when at least one related record satisfies Where.
type Exists struct {
	Relation string
	Where    Expr
}

func (And) isExpr()     {}
func (Or) isExpr()      {}
func (Compare) isExpr() {}
func (Exists) isExpr()  {}

// All joins exprs with And, skipping nils and flattening nested Ands.
func All(exprs ...Expr) Expr {
	out := make(And, 0, len(exprs))
	for _, e := range exprs {
		switch v := e.(type) {
		case nil:
		case And:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	return out
}

// Any joins exprs with Or, skipping nils and flattening nested Ors.
func Any(exprs ...Expr) Expr {
	out := make(Or, 0, len(exprs))
	for _, e := range exprs {
		switch v := e.(type) {
		case nil:
		case Or:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	return out
}

func Eq(field string, value any) Compare  { return Compare{Field: field, Op: OpEq, Value: value} }
func Gte(field string, value any) Compare { return Compare{Field: field, Op: OpGte, Value: value} }
func Lte(field string, value any) Compare { return Compare{Field: field, Op: OpLte, Value: value} }

// In matches records whose field equals one of values.
func In[T any](field string, values []T) Compare {
	return Compare{Field: field, Op: OpIn, Value: values}
}

// IContains matches records whose field contains substr, ignoring case.
func IContains(field, substr string) Compare {
	return Compare{Field: field, Op: OpIContains, Value: substr}
}

// Has matches records with at least one related record satisfying where.
func Has(relation string, where Expr) Exists {
	return Exists{Relation: relation, Where: where}
}
