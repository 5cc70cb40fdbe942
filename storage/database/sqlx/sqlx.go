// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/trezcool/darasa/core"
)

// orderBy renders an ORDER BY clause from the requested ordering. Fields come
// straight from the query string, so only those in the allowed map make it
// into the SQL; each maps to its (possibly aliased) column. Unknown fields
// are dropped, and the default applies when nothing survives.
func orderBy(ordering []core.DBOrdering, allowed map[string]string, dflt string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return " ORDER BY " + dflt
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
