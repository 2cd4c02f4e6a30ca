package catalog

import (
	"strings"

	"github.com/lib/pq"

	"songplaydw/internal/catalog/jsonpaths"
)

// Redshift loads straight from S3 with the engine's own COPY. Sort and
// distribution keys are declared inline; primary keys are informational only.
type Redshift struct{}

func (Redshift) Name() string { return "redshift" }

func (Redshift) NeedsPathMapping() bool { return false }

func (Redshift) CreateTable(t Table) string {
	return renderCreate(t, func(c Column) string {
		parts := []string{c.Type.String()}
		if c.Identity {
			parts = append(parts, "identity(0,1)")
		}
		if c.NotNull {
			parts = append(parts, "not null")
		}
		if c.SortKey {
			parts = append(parts, "sortkey")
		}
		if c.DistKey {
			parts = append(parts, "distkey")
		}
		if c.PrimaryKey {
			parts = append(parts, "primary key")
		}
		return strings.Join(parts, " ")
	}, "")
}

func (Redshift) Copies(src Sources, _ *jsonpaths.Mapping) ([]Statement, error) {
	credentials := pq.QuoteLiteral("aws_iam_role=" + src.RoleARN)
	region := pq.QuoteLiteral(src.Region)

	events := "copy staging_events from " + pq.QuoteLiteral(src.LogData) + "\n" +
		"    credentials " + credentials + "\n" +
		"    region      " + region + "\n" +
		"    format       as json " + pq.QuoteLiteral(src.LogJSONPath) + "\n" +
		"    timeformat   as 'epochmillisecs'"

	songs := "copy staging_songs from " + pq.QuoteLiteral(src.SongData) + "\n" +
		"    credentials " + credentials + "\n" +
		"    region      " + region + "\n" +
		"    format       as json 'auto'"

	return []Statement{
		{Name: "copy staging_events", Table: StagingEvents.Name, Kind: KindCopy, Source: src.LogData, SQL: events},
		{Name: "copy staging_songs", Table: StagingSongs.Name, Kind: KindCopy, Source: src.SongData, SQL: songs},
	}, nil
}

// Week is the ISO-8601 week number.
func (Redshift) Week(expr string) string { return "extract(week from " + expr + ")" }

// Weekday numbers Sunday as 0 through Saturday as 6.
func (Redshift) Weekday(expr string) string { return "extract(dayofweek from " + expr + ")" }
