package cond

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"gorm.io/gorm"
)

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Schema describes the table a predicate is compiled against.
type Schema struct {
	Table string
	// PrimaryKey defaults to "id".
	PrimaryKey string
	// Fields lists the columns predicates may reference.
	Fields    []string
	Relations map[string]Relation
}

// Relation is a one-to-many relation whose rows point back at the parent
// through ForeignKey.
type Relation struct {
	Schema     Schema
	ForeignKey string
}

// Compile turns e into a SQL condition with positional "?" placeholders.
// dialect is the GORM dialector name. OpIContains uses ILIKE on "postgres",
// a Unicode-aware fold function on "sqlite" and LOWER on both sides elsewhere.
func Compile(s Schema, e Expr, dialect string) (string, []any, error) {
	c := &compiler{dialect: dialect}
	sql, err := c.compile(s, e)
	if err != nil {
		return "", nil, err
	}
	return sql, c.args, nil
}

// Scope returns a GORM scope applying e as a WHERE condition. Compilation
// errors are added to the statement.
func Scope(s Schema, e Expr) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if e == nil {
			return db
		}
		sql, args, err := Compile(s, e, db.Dialector.Name())
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		return db.Where(sql, args...)
	}
}

type compiler struct {
	dialect string
	args    []any
}

func (c *compiler) compile(s Schema, e Expr) (string, error) {
	switch v := e.(type) {
	case nil:
		return "1 = 1", nil
	case And:
		return c.join(s, v, " AND ", "1 = 1")
	case Or:
		return c.join(s, v, " OR ", "1 = 0")
	case Compare:
		return c.compare(s, v)
	case Exists:
		rel, ok := s.Relations[v.Relation]
		if !ok {
			return "", fmt.Errorf("cond: unknown relation %q on %s", v.Relation, s.Table)
		}
		if !validFieldName.MatchString(rel.ForeignKey) || !validFieldName.MatchString(rel.Schema.Table) {
			return "", fmt.Errorf("cond: invalid relation %q", v.Relation)
		}
		inner, err := c.compile(rel.Schema, v.Where)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s)",
			rel.Schema.Table, rel.Schema.Table, rel.ForeignKey, s.Table, s.primaryKey(), inner), nil
	default:
		return "", fmt.Errorf("cond: unsupported expression %T", e)
	}
}

func (c *compiler) join(s Schema, exprs []Expr, sep, empty string) (string, error) {
	if len(exprs) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(exprs))
	for _, sub := range exprs {
		p, err := c.compile(s, sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compiler) compare(s Schema, cmp Compare) (string, error) {
	col, err := s.column(cmp.Field)
	if err != nil {
		return "", err
	}
	switch cmp.Op {
	case OpEq:
		c.args = append(c.args, cmp.Value)
		return col + " = ?", nil
	case OpGte:
		c.args = append(c.args, cmp.Value)
		return col + " >= ?", nil
	case OpLte:
		c.args = append(c.args, cmp.Value)
		return col + " <= ?", nil
	case OpIn:
		rv := reflect.ValueOf(cmp.Value)
		if rv.Kind() != reflect.Slice {
			return "", fmt.Errorf("cond: %s value for %q must be a slice, got %T", cmp.Op, cmp.Field, cmp.Value)
		}
		if rv.Len() == 0 {
			return "1 = 0", nil
		}
		marks := make([]string, rv.Len())
		for i := range marks {
			marks[i] = "?"
			c.args = append(c.args, rv.Index(i).Interface())
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", nil
	case OpIContains:
		sub, ok := cmp.Value.(string)
		if !ok {
			return "", fmt.Errorf("cond: %s value for %q must be a string, got %T", cmp.Op, cmp.Field, cmp.Value)
		}
		c.args = append(c.args, "%"+escapeLike(strings.ToLower(sub))+"%")
		switch c.dialect {
		case "postgres":
			return col + ` ILIKE ? ESCAPE '\'`, nil
		case "sqlite":
			return sqliteFold + "(" + col + `) LIKE ? ESCAPE '\'`, nil
		default:
			return "LOWER(" + col + `) LIKE LOWER(?) ESCAPE '\'`, nil
		}
	default:
		return "", fmt.Errorf("cond: unknown operator %q", cmp.Op)
	}
}

func (s Schema) column(field string) (string, error) {
	if !validFieldName.MatchString(field) || !slices.Contains(s.Fields, field) {
		return "", fmt.Errorf("cond: field %q is not allowed on %s", field, s.Table)
	}
	return s.Table + "." + field, nil
}

func (s Schema) primaryKey() string {
	if s.PrimaryKey == "" {
		return "id"
	}
	return s.PrimaryKey
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
