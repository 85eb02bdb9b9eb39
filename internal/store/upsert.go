package store

import (
	"fmt"
	"strings"
)

// upsertSpec describes one "insert or update on natural-key conflict"
// statement: target table, insert column set, conflict target and the columns
// refreshed when the key already exists. An empty UpdateCols renders DO
// NOTHING, which is how immutable rows (the date dimension) are written.
// TouchCol, when set, is bumped to NOW() on every conflicting write.
type upsertSpec struct {
	Table        string
	Columns      []string
	ConflictCols []string
	UpdateCols   []string
	TouchCol     string
}

// SQL renders the statement with positional placeholders in column order.
// Rendering is deterministic so tests can match the exact text.
func (s upsertSpec) SQL() string {
	placeholders := make([]string, len(s.Columns))
	for i := range s.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		s.Table,
		strings.Join(s.Columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(s.ConflictCols, ", "),
	)

	if len(s.UpdateCols) == 0 && s.TouchCol == "" {
		b.WriteString(" DO NOTHING;")
		return b.String()
	}

	sets := make([]string, 0, len(s.UpdateCols)+1)
	for _, col := range s.UpdateCols {
		sets = append(sets, col+" = EXCLUDED."+col)
	}
	if s.TouchCol != "" {
		sets = append(sets, s.TouchCol+" = NOW()")
	}
	fmt.Fprintf(&b, " DO UPDATE SET %s;", strings.Join(sets, ", "))
	return b.String()
}
