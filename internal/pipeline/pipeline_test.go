package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"songplaydw/internal/catalog"
	"songplaydw/internal/observability"
	"songplaydw/internal/warehouse"
	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

func names(stmts []catalog.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Name
	}
	return out
}

func TestSchemaResetCommitsEachStatement(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	wh, err := warehouse.NewWithDB(ctx, db, warehouse.Config{Dialect: models.DialectRedshift})
	require.NoError(t, err)

	cat := testCatalog(t, models.DialectRedshift)
	for _, stmt := range append(cat.Drops(), cat.Creates()...) {
		mock.ExpectBegin()
		mock.ExpectExec(stmt.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
	}

	require.NoError(t, NewSchemaManager(cat, wh, Options{}).Reset(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaResetStopsAtFirstFailure(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)
	wh := newFakeWarehouse()
	wh.failOn = "create songs"

	err := NewSchemaManager(cat, wh, Options{}).Reset(context.Background())
	require.Error(t, err)

	want := append(names(cat.Drops()), "create staging_events", "create staging_songs", "create songplays", "create users", "create songs")
	assert.Equal(t, want, wh.executed)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "redshift", appErr.Context["dialect"])
	assert.Equal(t, "create songs", appErr.Context["statement"])
}

func TestSchemaDropAndCreate(t *testing.T) {
	cat := testCatalog(t, models.DialectPostgres)
	wh := newFakeWarehouse()
	m := NewSchemaManager(cat, wh, Options{})

	require.NoError(t, m.Drop(context.Background()))
	assert.Equal(t, names(cat.Drops()), wh.executed)

	wh.executed = nil
	require.NoError(t, m.Create(context.Background()))
	assert.Equal(t, names(cat.Creates()), wh.executed)
}

func TestSchemaLogsAndCounts(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := observability.NewRegistry()
	cat := testCatalog(t, models.DialectRedshift)

	err := NewSchemaManager(cat, newFakeWarehouse(), Options{Logger: zap.New(core), Metrics: metrics}).Drop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), metrics.Counter(observability.StatementsExecuted).Value())
	assert.Equal(t, 7, metrics.Timer("statement_duration").Count())

	running := logs.FilterMessage("Running drop staging_events").All()
	require.Len(t, running, 1)
	assert.Equal(t, "drop table if exists staging_events", running[0].ContextMap()["sql"])
	assert.Equal(t, 7, logs.FilterMessageSnippet("Completed drop").Len())
}

func TestDryRunWritesPlan(t *testing.T) {
	var plan bytes.Buffer
	cat := testCatalog(t, models.DialectRedshift)

	// a nil warehouse proves nothing is executed
	err := NewSchemaManager(cat, nil, Options{Plan: &plan}).Reset(context.Background())
	require.NoError(t, err)

	out := plan.String()
	assert.True(t, strings.HasPrefix(out, "-- drop staging_events\ndrop table if exists staging_events;\n\n"))
	assert.Equal(t, 14, strings.Count(out, ";\n\n"))
	assert.Contains(t, out, "-- create times\ncreate table times (")
}

func TestRedshiftLoadRunsEngineCopies(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)
	wh := newFakeWarehouse()

	require.NoError(t, NewStageLoader(cat, wh, nil, Options{}).Load(context.Background()))
	assert.Equal(t, []string{"copy staging_events", "copy staging_songs"}, wh.executed)
}

func TestSnowflakeLoadStagesThenCopies(t *testing.T) {
	cat := testCatalog(t, models.DialectSnowflake)
	wh := newFakeWarehouse()

	require.NoError(t, NewStageLoader(cat, wh, newFakeStore(), Options{}).Load(context.Background()))
	assert.Equal(t, []string{"stage staging_events", "copy staging_events", "stage staging_songs", "copy staging_songs"}, wh.executed)
	assert.Empty(t, wh.copied)
}

func TestPostgresLoadStreamsObjects(t *testing.T) {
	cat := testCatalog(t, models.DialectPostgres)
	wh := newFakeWarehouse()
	metrics := observability.NewRegistry()

	require.NoError(t, NewStageLoader(cat, wh, newFakeStore(), Options{Metrics: metrics}).Load(context.Background()))
	assert.Equal(t, []string{"copy staging_events", "copy staging_songs"}, wh.executed)

	events := wh.copied["staging_events"]
	require.Len(t, events, 2)
	assert.Equal(t, "Kings of Leon", events[0][0])
	assert.Equal(t, "Revelry", events[0][13])
	assert.Equal(t, time.Date(2018, 11, 1, 21, 11, 13, 796000000, time.UTC), events[0][15])
	assert.Equal(t, "Home", events[1][10])

	songs := wh.copied["staging_songs"]
	require.Len(t, songs, 1)
	assert.Equal(t, "SOX123", songs[0][6])
	assert.Equal(t, 180.0, songs[0][8])

	assert.Equal(t, int64(3), metrics.Counter(observability.RowsCopied).Value())
	assert.Equal(t, int64(2), metrics.Counter(observability.ObjectsRead).Value())
}

func TestPostgresLoadEmptyUserIsNull(t *testing.T) {
	cat := testCatalog(t, models.DialectPostgres)
	wh := newFakeWarehouse()
	store := newFakeStore()
	store.objects["log_data/2018/11/2018-11-01-events.json"] = loggedOutEvent + "\n"

	require.NoError(t, NewStageLoader(cat, wh, store, Options{}).Load(context.Background()))

	events := wh.copied["staging_events"]
	require.Len(t, events, 1)
	assert.Equal(t, "NextSong", events[0][10])
	assert.Nil(t, events[0][11], "registration")
	assert.Nil(t, events[0][17], "userId")
	assert.Equal(t, int64(601), events[0][12])
}

func TestPostgresLoadMalformedRecord(t *testing.T) {
	cat := testCatalog(t, models.DialectPostgres)
	store := newFakeStore()
	store.objects["song_data/A/A/B/bad.json"] = `{"song_id": "SOY000", "year": "soon"}`

	err := NewStageLoader(cat, newFakeWarehouse(), store, Options{}).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMalformedRecord, errors.GetErrorCode(err))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "s3://udacity-dend/song_data/A/A/B/bad.json", appErr.Context["location"])
	assert.Equal(t, "postgres", appErr.Context["dialect"])
}

func TestPostgresLoadEmptyPrefix(t *testing.T) {
	cat := testCatalog(t, models.DialectPostgres)
	store := newFakeStore()
	delete(store.objects, "song_data/A/A/A/TRAAAAK128F9318786.json")

	err := NewStageLoader(cat, newFakeWarehouse(), store, Options{}).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeObjectNotFound, errors.GetErrorCode(err))
}

func TestPostgresLoadNeedsStore(t *testing.T) {
	cat := testCatalog(t, models.DialectPostgres)

	err := NewStageLoader(cat, newFakeWarehouse(), nil, Options{}).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.GetErrorCode(err))
}

func TestLoadBadMapping(t *testing.T) {
	cat := testCatalog(t, models.DialectPostgres)
	store := newFakeStore()
	store.objects["log_json_path.json"] = `{"jsonpaths": ["$.artist"]}`

	err := NewStageLoader(cat, newFakeWarehouse(), store, Options{}).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}

func TestTransformRunsInOrder(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)
	wh := newFakeWarehouse()

	require.NoError(t, NewTransformEngine(cat, wh, Options{}).Run(context.Background(), false))
	assert.Equal(t, []string{"insert songplays", "insert users", "insert songs", "insert artists", "insert times"}, wh.executed)
	assert.Zero(t, wh.atomic)
}

func TestTransformStopsAtFailure(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)
	wh := newFakeWarehouse()
	wh.failOn = "insert songs"

	err := NewTransformEngine(cat, wh, Options{}).Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, []string{"insert songplays", "insert users", "insert songs"}, wh.executed)
	assert.False(t, wh.rolledBack)
}

func TestTransformAtomicRollsBack(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)
	wh := newFakeWarehouse()
	wh.failOn = "insert times"

	err := NewTransformEngine(cat, wh, Options{}).Run(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, 1, wh.atomic)
	assert.True(t, wh.rolledBack)
	assert.Len(t, wh.executed, 5)
}

func TestTransformAtomicLogsCompletionAfterCommit(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)

	core, logs := observer.New(zapcore.DebugLevel)
	wh := newFakeWarehouse()
	wh.failOn = "insert times"

	err := NewTransformEngine(cat, wh, Options{Logger: zap.New(core)}).Run(context.Background(), true)
	require.Error(t, err)
	assert.Zero(t, logs.FilterMessageSnippet("Completed insert").Len())
	assert.Equal(t, 4, logs.FilterMessageSnippet("in transaction").FilterLevelExact(zapcore.DebugLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("Transforms rolled back").Len())

	core, logs = observer.New(zapcore.DebugLevel)
	require.NoError(t, NewTransformEngine(cat, newFakeWarehouse(), Options{Logger: zap.New(core)}).Run(context.Background(), true))

	completed := logs.FilterMessageSnippet("Completed insert").FilterLevelExact(zapcore.InfoLevel).All()
	require.Len(t, completed, 5)
	assert.Equal(t, "Completed insert songplays", completed[0].Message)
	assert.Equal(t, 1, logs.FilterMessage("Transforms committed").Len())

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Less(t, indexOf(messages, "Executed insert times in transaction"), indexOf(messages, "Completed insert songplays"),
		"completion is reported once the transaction has committed")
}

func indexOf(messages []string, want string) int {
	for i, m := range messages {
		if m == want {
			return i
		}
	}
	return -1
}

func TestTransformAtomicWithSession(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	wh, err := warehouse.NewWithDB(ctx, db, warehouse.Config{Dialect: models.DialectPostgres})
	require.NoError(t, err)

	cat := testCatalog(t, models.DialectPostgres)
	inserts := cat.Inserts()
	mock.ExpectBegin()
	mock.ExpectExec(inserts[0].SQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(inserts[1].SQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(inserts[2].SQL).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = NewTransformEngine(cat, wh, Options{}).Run(ctx, true)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransformAtomicDryRun(t *testing.T) {
	var plan bytes.Buffer
	cat := testCatalog(t, models.DialectRedshift)

	require.NoError(t, NewTransformEngine(cat, nil, Options{Plan: &plan}).Run(context.Background(), true))
	out := plan.String()
	assert.True(t, strings.HasPrefix(out, "begin;\n\n-- insert songplays\n"))
	assert.True(t, strings.HasSuffix(out, "commit;\n\n"))
}

func TestAuditReport(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)
	wh := newFakeWarehouse()
	wh.counts = map[string]int64{"staging_events": 8056, "staging_songs": 14896, "songplays": 333, "users": 104, "songs": 14896, "artists": 10025, "times": 333}

	report, err := NewAuditor(cat, wh, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "redshift", report.Dialect)
	require.Len(t, report.Counts, 7)
	assert.Equal(t, "staging_events", report.Counts[0].Table)
	assert.Equal(t, "staging", report.Counts[0].Role)
	assert.Equal(t, "fact", report.Counts[2].Role)

	n, ok := report.Count("songplays")
	require.True(t, ok)
	assert.Equal(t, int64(333), n)

	_, ok = report.Count("nope")
	assert.False(t, ok)
}

func TestAuditStopsOnError(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)
	wh := newFakeWarehouse()
	wh.failOn = "count users"

	_, err := NewAuditor(cat, wh, Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Len(t, wh.executed, 4)
}

func TestVerifier(t *testing.T) {
	cat := testCatalog(t, models.DialectRedshift)

	checks, err := NewVerifier(cat, newFakeStore(), nil).Check(context.Background())
	require.NoError(t, err)
	require.Len(t, checks, 3)
	for _, c := range checks {
		assert.True(t, c.Found, c.Key)
	}
	assert.True(t, checks[0].Prefix)
	assert.False(t, checks[1].Prefix)

	store := newFakeStore()
	delete(store.objects, "log_json_path.json")
	checks, err = NewVerifier(cat, store, nil).Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeObjectNotFound, errors.GetErrorCode(err))
	assert.False(t, checks[1].Found)
	assert.True(t, checks[2].Found)
}
