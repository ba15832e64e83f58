package sqlite

import (
	"database/sql/driver"

	msqlite "modernc.org/sqlite"

	"github.com/mesh-intelligence/repertoire/internal/textnorm"
)

// SQLite's lower() only folds ASCII. casefold gives search the same Unicode
// folding the snapshot uses, so Cyrillic titles match case-insensitively.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("casefold", 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return textnorm.Fold(v), nil
			case []byte:
				return textnorm.Fold(string(v)), nil
			default:
				return v, nil
			}
		})
}
