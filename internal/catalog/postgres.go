package catalog

import (
	"fmt"
	"strings"

	"songplaydw/internal/catalog/jsonpaths"
)

// Postgres is the local engine. It cannot read S3, so its copies are performed
// client-side with COPY ... FROM STDIN. Primary keys are enforced, unlike Redshift.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) NeedsPathMapping() bool { return true }

func (Postgres) CreateTable(t Table) string {
	return renderCreate(t, func(c Column) string {
		parts := []string{c.Type.String()}
		if c.Identity {
			parts = append(parts, "generated by default as identity (start with 0 minvalue 0)")
		}
		if c.NotNull {
			parts = append(parts, "not null")
		}
		if c.PrimaryKey {
			parts = append(parts, "primary key")
		}
		return strings.Join(parts, " ")
	}, "")
}

func (Postgres) Copies(src Sources, mapping *jsonpaths.Mapping) ([]Statement, error) {
	if mapping == nil {
		return nil, fmt.Errorf("postgres copies need the jsonpaths mapping")
	}
	if len(mapping.Paths) != len(StagingEvents.Columns) {
		return nil, fmt.Errorf("jsonpaths has %d expressions, %s has %d columns",
			len(mapping.Paths), StagingEvents.Name, len(StagingEvents.Columns))
	}

	return []Statement{
		{
			Name:    "copy staging_events",
			Table:   StagingEvents.Name,
			Kind:    KindClientCopy,
			Source:  src.LogData,
			Mapping: mapping,
			SQL:     clientCopySQL(StagingEvents),
		},
		{
			Name:   "copy staging_songs",
			Table:  StagingSongs.Name,
			Kind:   KindClientCopy,
			Source: src.SongData,
			SQL:    clientCopySQL(StagingSongs),
		},
	}, nil
}

func clientCopySQL(t Table) string {
	return fmt.Sprintf("copy %s (%s) from stdin", t.Name, strings.Join(t.ColumnNames(), ", "))
}

// Week is the ISO-8601 week number.
func (Postgres) Week(expr string) string { return "extract(week from " + expr + ")" }

// Weekday numbers Sunday as 0 through Saturday as 6.
func (Postgres) Weekday(expr string) string { return "extract(dow from " + expr + ")::integer" }
