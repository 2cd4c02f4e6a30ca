// Package catalog holds every statement the pipeline runs: drop and create DDL for
// the seven tables, the two bulk loads, the five transforms and the seven counts.
// Engine differences are confined to a Dialect.
package catalog

import (
	"fmt"
	"strings"

	"songplaydw/internal/catalog/jsonpaths"
	"songplaydw/internal/config"
	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

// Kind tells the executor how to run a statement.
type Kind int

const (
	// KindExec is DDL or DML with no result set.
	KindExec Kind = iota
	// KindCopy is an engine-side bulk load.
	KindCopy
	// KindClientCopy streams objects from Source through COPY ... FROM STDIN.
	KindClientCopy
	// KindQuery returns a single scalar.
	KindQuery
)

// Statement is one unit of work, committed on its own.
type Statement struct {
	Name  string
	Table string
	Kind  Kind
	SQL   string
	// Source is the S3 location a copy reads from.
	Source string
	// Mapping selects record values for a client-side copy; nil means by column name.
	Mapping *jsonpaths.Mapping
}

const songplayInsert = `insert into songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
    select
        distinct(e.ts)  as start_time,
        e.userId        as user_id,
        e.level         as level,
        s.song_id       as song_id,
        s.artist_id     as artist_id,
        e.sessionId     as session_id,
        e.location      as location,
        e.userAgent     as user_agent
    from staging_events e
    join staging_songs  s
    on e.song = s.title and e.artist = s.artist_name and e.page = 'NextSong' and e.length = s.duration`

const userInsert = `insert into users (user_id, first_name, last_name, gender, level)
    select
        distinct(userId)    as user_id,
        firstName           as first_name,
        lastName            as last_name,
        gender,
        level
    from staging_events
    where userId is not null
    and page = 'NextSong'`

const songInsert = `insert into songs (song_id, title, artist_id, year, duration)
    select
        distinct(song_id) as song_id,
        title,
        artist_id,
        year,
        duration
    from staging_songs
    where song_id is not null`

const artistInsert = `insert into artists (artist_id, name, location, latitude, longitude)
    select
        distinct(artist_id) as artist_id,
        artist_name         as name,
        artist_location     as location,
        artist_latitude     as latitude,
        artist_longitude    as longitude
    from staging_songs
    where artist_id is not null`

// Catalog renders the statement lists for one dialect and one set of sources.
type Catalog struct {
	dialect Dialect
	sources Sources
}

// New validates the source configuration and builds a catalog. It never touches
// the network, so a missing key is reported before any connection is attempted.
func New(cfg *models.Config) (*Catalog, error) {
	if err := config.ValidateSources(cfg); err != nil {
		return nil, err
	}
	dialect, err := LookupDialect(cfg.Warehouse.Dialect)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), "warehouse.dialect")
	}

	region := cfg.S3.Region
	if region == "" {
		region = config.DefaultRegion
	}

	return &Catalog{
		dialect: dialect,
		sources: Sources{
			LogData:     cfg.S3.LogData,
			LogJSONPath: cfg.S3.LogJSONPath,
			SongData:    cfg.S3.SongData,
			RoleARN:     cfg.IAMRole.ARN,
			Region:      region,
		},
	}, nil
}

// Dialect returns the dialect the catalog renders for.
func (c *Catalog) Dialect() Dialect { return c.dialect }

// Sources returns the substituted bulk-load inputs.
func (c *Catalog) Sources() Sources { return c.sources }

// NeedsPathMapping reports whether Copies must be given the parsed JSONPaths document.
func (c *Catalog) NeedsPathMapping() bool { return c.dialect.NeedsPathMapping() }

// Drops returns one "drop table if exists" per table.
func (c *Catalog) Drops() []Statement {
	tables := Tables()
	out := make([]Statement, len(tables))
	for i, t := range tables {
		out[i] = Statement{
			Name:  "drop " + t.Name,
			Table: t.Name,
			Kind:  KindExec,
			SQL:   "drop table if exists " + t.Name,
		}
	}
	return out
}

// Creates returns one create statement per table.
func (c *Catalog) Creates() []Statement {
	tables := Tables()
	out := make([]Statement, len(tables))
	for i, t := range tables {
		out[i] = Statement{
			Name:  "create " + t.Name,
			Table: t.Name,
			Kind:  KindExec,
			SQL:   c.dialect.CreateTable(t),
		}
	}
	return out
}

// Copies returns the statements loading staging_events then staging_songs.
func (c *Catalog) Copies(mapping *jsonpaths.Mapping) ([]Statement, error) {
	stmts, err := c.dialect.Copies(c.sources, mapping)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to build bulk-load statements").
			WithContext("dialect", c.dialect.Name()).
			WithContext("jsonpath", c.sources.LogJSONPath)
	}
	return stmts, nil
}

// Inserts returns the five transforms in dependency order; times reads songplays.
func (c *Catalog) Inserts() []Statement {
	return []Statement{
		{Name: "insert songplays", Table: Songplays.Name, Kind: KindExec, SQL: songplayInsert},
		{Name: "insert users", Table: Users.Name, Kind: KindExec, SQL: userInsert},
		{Name: "insert songs", Table: Songs.Name, Kind: KindExec, SQL: songInsert},
		{Name: "insert artists", Table: Artists.Name, Kind: KindExec, SQL: artistInsert},
		{Name: "insert times", Table: Times.Name, Kind: KindExec, SQL: c.timeInsert()},
	}
}

func (c *Catalog) timeInsert() string {
	const col = "start_time"
	parts := []struct{ expr, alias string }{
		{"distinct(" + col + ")", "start_time"},
		{"extract(hour  from " + col + ")", "hour"},
		{"extract(day   from " + col + ")", "day"},
		{c.dialect.Week(col), "week"},
		{"extract(month from " + col + ")", "month"},
		{"extract(year  from " + col + ")", "year"},
		{c.dialect.Weekday(col), "weekday"},
	}

	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = fmt.Sprintf("        %-34s as %s", p.expr, p.alias)
	}

	return "insert into times (start_time, hour, day, week, month, year, weekday)\n" +
		"    select\n" + strings.Join(lines, ",\n") + "\n" +
		"    from songplays"
}

// Counts returns one "select count(*)" per table.
func (c *Catalog) Counts() []Statement {
	tables := Tables()
	out := make([]Statement, len(tables))
	for i, t := range tables {
		out[i] = Statement{
			Name:  "count " + t.Name,
			Table: t.Name,
			Kind:  KindQuery,
			SQL:   "select count(*) from " + t.Name,
		}
	}
	return out
}
