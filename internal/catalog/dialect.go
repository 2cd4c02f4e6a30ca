package catalog

import (
	"fmt"
	"strings"

	"songplaydw/internal/catalog/jsonpaths"
	"songplaydw/pkg/models"
)

// Sources are the bulk-load inputs substituted into the copy statements.
type Sources struct {
	LogData     string
	LogJSONPath string
	SongData    string
	RoleARN     string
	Region      string
}

// Dialect renders the engine-specific parts of the catalog.
type Dialect interface {
	Name() string
	// CreateTable renders the create statement for t.
	CreateTable(t Table) string
	// Copies renders the statements that land raw data in the two staging tables.
	// mapping is nil unless NeedsPathMapping reports true.
	Copies(src Sources, mapping *jsonpaths.Mapping) ([]Statement, error)
	// NeedsPathMapping reports whether Copies needs the parsed JSONPaths document
	// instead of passing its location to the engine.
	NeedsPathMapping() bool
	// Week and Weekday render the calendar extractions used by the times insert.
	Week(expr string) string
	Weekday(expr string) string
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case models.DialectRedshift:
		return Redshift{}, nil
	case models.DialectSnowflake:
		return Snowflake{}, nil
	case models.DialectPostgres:
		return Postgres{}, nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

// renderCreate lays out a create statement one column per line, the way the
// schema is documented.
func renderCreate(t Table, column func(Column) string, suffix string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "create table %s (\n", t.Name)
	for i, c := range t.Columns {
		fmt.Fprintf(&b, "    %-19s %s", c.Name, column(c))
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	b.WriteString(suffix)
	return b.String()
}
