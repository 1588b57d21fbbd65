package cond

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a value Eval can inspect.
type Record interface {
	// Field returns the value of a named field.
	Field(name string) (any, bool)
	// Related returns the records of a named relation.
	Related(name string) ([]Record, bool)
}

// Eval reports whether r satisfies e. A nil expression is true.
func Eval(e Expr, r Record) (bool, error) {
	switch v := e.(type) {
	case nil:
		return true, nil
	case And:
		for _, sub := range v {
			ok, err := Eval(sub, r)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, sub := range v {
			ok, err := Eval(sub, r)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Compare:
		got, ok := r.Field(v.Field)
		if !ok {
			return false, fmt.Errorf("cond: unknown field %q", v.Field)
		}
		return evalCompare(v, got)
	case Exists:
		related, ok := r.Related(v.Relation)
		if !ok {
			return false, fmt.Errorf("cond: unknown relation %q", v.Relation)
		}
		for _, rr := range related {
			ok, err := Eval(v.Where, rr)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("cond: unsupported expression %T", e)
	}
}

func evalCompare(c Compare, got any) (bool, error) {
	switch c.Op {
	case OpEq:
		return equal(got, c.Value), nil
	case OpIn:
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice {
			return false, fmt.Errorf("cond: %s value for %q must be a slice, got %T", c.Op, c.Field, c.Value)
		}
		for i := 0; i < rv.Len(); i++ {
			if equal(got, rv.Index(i).Interface()) {
				return true, nil
			}
		}
		return false, nil
	case OpGte, OpLte:
		n, err := order(got, c.Value)
		if err != nil {
			return false, fmt.Errorf("cond: field %q: %w", c.Field, err)
		}
		if c.Op == OpGte {
			return n >= 0, nil
		}
		return n <= 0, nil
	case OpIContains:
		s, ok1 := got.(string)
		sub, ok2 := c.Value.(string)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("cond: %s on %q needs strings, got %T and %T", c.Op, c.Field, got, c.Value)
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub)), nil
	default:
		return false, fmt.Errorf("cond: unknown operator %q", c.Op)
	}
}

func equal(a, b any) bool {
	if n, err := order(a, b); err == nil {
		return n == 0
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// order compares two values of compatible kinds: numbers (including
// decimals), strings and times.
func order(a, b any) (int, error) {
	na, nb := normalize(a), normalize(b)
	if da, ok := toDecimal(na); ok {
		if db, ok := toDecimal(nb); ok {
			return da.Cmp(db), nil
		}
	}
	switch x := na.(type) {
	case string:
		if y, ok := nb.(string); ok {
			return strings.Compare(x, y), nil
		}
	case time.Time:
		if y, ok := nb.(time.Time); ok {
			return x.Compare(y), nil
		}
	}
	return 0, fmt.Errorf("cannot order %T and %T", a, b)
}

func normalize(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0)
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(rv.Float())
	}
	return rv.Interface()
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case decimal.NullDecimal:
		return x.Decimal, x.Valid
	}
	return decimal.Decimal{}, false
}
