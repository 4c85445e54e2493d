// Package testsupport holds helpers shared by kuebico tests.
package testsupport

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteMemoryDB opens a shared-cache in-memory sqlite database. Databases
// are isolated by name; pass t.Name() to give each test its own.
func NewSQLiteMemoryDB(name string) (*sql.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	return sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))
}
