package catalog

// ColumnType is the logical type of a column; dialects map it to engine types.
type ColumnType int

const (
	Varchar ColumnType = iota
	Integer
	Float
	Timestamp
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Timestamp:
		return "timestamp"
	default:
		return "varchar"
	}
}

// Role classifies a table within the star schema.
type Role string

const (
	RoleStaging   Role = "staging"
	RoleFact      Role = "fact"
	RoleDimension Role = "dimension"
)

// Column describes one column and its constraints.
type Column struct {
	Name       string
	Type       ColumnType
	NotNull    bool
	PrimaryKey bool
	Identity   bool
	SortKey    bool
	DistKey    bool
}

// Table is a warehouse table definition.
type Table struct {
	Name    string
	Role    Role
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

var StagingEvents = Table{
	Name: "staging_events",
	Role: RoleStaging,
	Columns: []Column{
		{Name: "artist", Type: Varchar},
		{Name: "auth", Type: Varchar},
		{Name: "firstName", Type: Varchar},
		{Name: "gender", Type: Varchar},
		{Name: "itemInSession", Type: Integer},
		{Name: "lastName", Type: Varchar},
		{Name: "length", Type: Float},
		{Name: "level", Type: Varchar},
		{Name: "location", Type: Varchar},
		{Name: "method", Type: Varchar},
		{Name: "page", Type: Varchar},
		{Name: "registration", Type: Float},
		{Name: "sessionId", Type: Integer},
		{Name: "song", Type: Varchar},
		{Name: "status", Type: Integer},
		{Name: "ts", Type: Timestamp},
		{Name: "userAgent", Type: Varchar},
		{Name: "userId", Type: Integer},
	},
}

var StagingSongs = Table{
	Name: "staging_songs",
	Role: RoleStaging,
	Columns: []Column{
		{Name: "num_songs", Type: Integer},
		{Name: "artist_id", Type: Varchar},
		{Name: "artist_latitude", Type: Float},
		{Name: "artist_longitude", Type: Float},
		{Name: "artist_location", Type: Varchar},
		{Name: "artist_name", Type: Varchar},
		{Name: "song_id", Type: Varchar},
		{Name: "title", Type: Varchar},
		{Name: "duration", Type: Float},
		{Name: "year", Type: Integer},
	},
}

var Songplays = Table{
	Name: "songplays",
	Role: RoleFact,
	Columns: []Column{
		{Name: "songplay_id", Type: Integer, Identity: true, PrimaryKey: true},
		{Name: "start_time", Type: Timestamp, NotNull: true, SortKey: true, DistKey: true},
		{Name: "user_id", Type: Integer, NotNull: true},
		{Name: "level", Type: Varchar},
		{Name: "song_id", Type: Varchar, NotNull: true},
		{Name: "artist_id", Type: Varchar, NotNull: true},
		{Name: "session_id", Type: Integer},
		{Name: "location", Type: Varchar},
		{Name: "user_agent", Type: Varchar},
	},
}

var Users = Table{
	Name: "users",
	Role: RoleDimension,
	Columns: []Column{
		{Name: "user_id", Type: Integer, NotNull: true, SortKey: true, PrimaryKey: true},
		{Name: "first_name", Type: Varchar, NotNull: true},
		{Name: "last_name", Type: Varchar, NotNull: true},
		{Name: "gender", Type: Varchar, NotNull: true},
		{Name: "level", Type: Varchar, NotNull: true},
	},
}

var Songs = Table{
	Name: "songs",
	Role: RoleDimension,
	Columns: []Column{
		{Name: "song_id", Type: Varchar, NotNull: true, SortKey: true, PrimaryKey: true},
		{Name: "title", Type: Varchar, NotNull: true},
		{Name: "artist_id", Type: Varchar, NotNull: true},
		{Name: "year", Type: Integer, NotNull: true},
		{Name: "duration", Type: Float},
	},
}

var Artists = Table{
	Name: "artists",
	Role: RoleDimension,
	Columns: []Column{
		{Name: "artist_id", Type: Varchar, NotNull: true, SortKey: true, PrimaryKey: true},
		{Name: "name", Type: Varchar, NotNull: true},
		{Name: "location", Type: Varchar},
		{Name: "latitude", Type: Float},
		{Name: "longitude", Type: Float},
	},
}

var Times = Table{
	Name: "times",
	Role: RoleDimension,
	Columns: []Column{
		{Name: "start_time", Type: Timestamp, NotNull: true, DistKey: true, SortKey: true, PrimaryKey: true},
		{Name: "hour", Type: Integer, NotNull: true},
		{Name: "day", Type: Integer, NotNull: true},
		{Name: "week", Type: Integer, NotNull: true},
		{Name: "month", Type: Integer, NotNull: true},
		{Name: "year", Type: Integer, NotNull: true},
		{Name: "weekday", Type: Varchar, NotNull: true},
	},
}

// Tables returns all seven tables in the order they are dropped, created and counted.
func Tables() []Table {
	return []Table{StagingEvents, StagingSongs, Songplays, Users, Songs, Artists, Times}
}

// TableByName looks a table up by name.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
