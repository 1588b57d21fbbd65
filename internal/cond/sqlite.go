package cond

import (
	"database/sql/driver"
	"strings"

	gosqlite "github.com/glebarez/go-sqlite"
)

// sqliteFold is the SQLite function OpIContains compiles to. The built-in
// LOWER folds ASCII letters only.
const sqliteFold = "unicode_lower"

func init() {
	gosqlite.MustRegisterDeterministicScalarFunction(sqliteFold, 1, foldValue)
}

// foldValue lowercases text with the same rules Eval uses. Other values pass
// through unchanged.
func foldValue(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
