package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"songplaydw/internal/catalog/jsonpaths"
)

// Snowflake loads through a temporary external stage per source so that the
// JSONPaths mapping can be applied as a transformation in COPY INTO. Sort and
// distribution keys become a table-level cluster by.
type Snowflake struct{}

func (Snowflake) Name() string { return "snowflake" }

func (Snowflake) NeedsPathMapping() bool { return true }

func (Snowflake) columnType(t ColumnType) string {
	if t == Timestamp {
		return "timestamp_ntz"
	}
	return t.String()
}

func (s Snowflake) CreateTable(t Table) string {
	var clusterBy []string
	for _, c := range t.Columns {
		if c.SortKey || c.DistKey {
			clusterBy = append(clusterBy, c.Name)
		}
	}
	suffix := ""
	if len(clusterBy) > 0 {
		suffix = " cluster by (" + strings.Join(clusterBy, ", ") + ")"
	}

	return renderCreate(t, func(c Column) string {
		parts := []string{s.columnType(c.Type)}
		if c.Identity {
			parts = append(parts, "identity(0,1)")
		}
		if c.NotNull {
			parts = append(parts, "not null")
		}
		if c.PrimaryKey {
			parts = append(parts, "primary key")
		}
		return strings.Join(parts, " ")
	}, suffix)
}

func (s Snowflake) Copies(src Sources, mapping *jsonpaths.Mapping) ([]Statement, error) {
	if mapping == nil {
		return nil, fmt.Errorf("snowflake copies need the jsonpaths mapping")
	}
	if len(mapping.Paths) != len(StagingEvents.Columns) {
		return nil, fmt.Errorf("jsonpaths has %d expressions, %s has %d columns",
			len(mapping.Paths), StagingEvents.Name, len(StagingEvents.Columns))
	}

	eventsProjection := make([]string, len(StagingEvents.Columns))
	for i, c := range StagingEvents.Columns {
		eventsProjection[i] = s.project(snowflakePath(mapping.Paths[i]), c)
	}

	songsProjection := make([]string, len(StagingSongs.Columns))
	for i, c := range StagingSongs.Columns {
		songsProjection[i] = s.project(snowflakePath(jsonpaths.Path{Segments: []jsonpaths.Segment{{Key: c.Name}}}), c)
	}

	return []Statement{
		s.stage(StagingEvents, src.LogData, src),
		s.copyInto(StagingEvents, src.LogData, eventsProjection),
		s.stage(StagingSongs, src.SongData, src),
		s.copyInto(StagingSongs, src.SongData, songsProjection),
	}, nil
}

func (Snowflake) stageName(t Table) string { return t.Name + "_stage" }

func (s Snowflake) stage(t Table, location string, src Sources) Statement {
	sql := "create or replace temporary stage " + s.stageName(t) + "\n" +
		"    url = " + pq.QuoteLiteral(location) + "\n" +
		"    credentials = (aws_role = " + pq.QuoteLiteral(src.RoleARN) + ")\n" +
		"    file_format = (type = json)"
	return Statement{Name: "stage " + t.Name, Table: t.Name, Kind: KindExec, Source: location, SQL: sql}
}

func (s Snowflake) copyInto(t Table, location string, projection []string) Statement {
	sql := "copy into " + t.Name + " (" + strings.Join(t.ColumnNames(), ", ") + ")\n" +
		"    from (select\n        " + strings.Join(projection, ",\n        ") + "\n" +
		"    from @" + s.stageName(t) + ")"
	return Statement{Name: "copy " + t.Name, Table: t.Name, Kind: KindCopy, Source: location, SQL: sql}
}

// project casts a variant path to the column type. Timestamps arrive as epoch
// milliseconds. An empty string loads as NULL in every non-text column.
func (s Snowflake) project(path string, c Column) string {
	switch c.Type {
	case Varchar:
		return path + "::varchar"
	case Timestamp:
		return "to_timestamp_ntz(" + nonEmpty(path) + "::number, 3)"
	default:
		return nonEmpty(path) + "::" + s.columnType(c.Type)
	}
}

func nonEmpty(path string) string {
	return "nullif(" + path + "::varchar, '')"
}

func snowflakePath(p jsonpaths.Path) string {
	var b strings.Builder
	b.WriteString("$1")
	for _, seg := range p.Segments {
		if seg.IsIndex {
			b.WriteString("[" + strconv.Itoa(seg.Index) + "]")
			continue
		}
		b.WriteString(`["` + strings.ReplaceAll(seg.Key, `"`, `\"`) + `"]`)
	}
	return b.String()
}

// Week is the ISO-8601 week number.
func (Snowflake) Week(expr string) string { return "weekiso(" + expr + ")" }

// Weekday numbers Sunday as 0 through Saturday as 6 under the default WEEK_START of 0.
func (Snowflake) Weekday(expr string) string { return "dayofweek(" + expr + ")" }
