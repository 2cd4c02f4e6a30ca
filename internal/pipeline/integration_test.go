//go:build integration

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"songplaydw/internal/catalog"
	"songplaydw/internal/warehouse"
	"songplaydw/pkg/models"
)

func startWarehouse(t *testing.T) *warehouse.Service {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("dev"),
		postgres.WithUsername("awsuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to cleanup postgres container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	svc := warehouse.NewService(warehouse.Config{
		Dialect:  models.DialectPostgres,
		Host:     host,
		Port:     port.Int(),
		Database: "dev",
		Username: "awsuser",
		Password: "testpass",
		SSLMode:  "disable",
	})
	require.NoError(t, svc.Connect(ctx))
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// query runs a single-value count through the session.
func query(t *testing.T, svc *warehouse.Service, sql string) int64 {
	t.Helper()
	n, err := svc.Count(context.Background(), catalog.Statement{Name: "count", Kind: catalog.KindQuery, SQL: sql})
	require.NoError(t, err)
	return n
}

func runPipeline(t *testing.T, svc *warehouse.Service, store *fakeStore) *Report {
	t.Helper()
	ctx := context.Background()
	cat := testCatalog(t, models.DialectPostgres)

	require.NoError(t, NewSchemaManager(cat, svc, Options{}).Reset(ctx))
	require.NoError(t, NewStageLoader(cat, svc, store, Options{}).Load(ctx))
	require.NoError(t, NewTransformEngine(cat, svc, Options{}).Run(ctx, false))

	report, err := NewAuditor(cat, svc, Options{}).Run(ctx)
	require.NoError(t, err)
	return report
}

func TestIntegrationSchemaResetIsRepeatable(t *testing.T) {
	svc := startWarehouse(t)
	ctx := context.Background()
	cat := testCatalog(t, models.DialectPostgres)

	manager := NewSchemaManager(cat, svc, Options{})
	require.NoError(t, manager.Reset(ctx))
	require.NoError(t, manager.Reset(ctx))

	report, err := NewAuditor(cat, svc, Options{}).Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Counts, 7)
	for _, c := range report.Counts {
		assert.Zero(t, c.Count, c.Table)
	}

	for _, table := range catalog.Tables() {
		columns := query(t, svc, "select count(*) from information_schema.columns where table_name = '"+table.Name+"'")
		assert.Equal(t, int64(len(table.Columns)), columns, table.Name)

		notNull := 0
		for _, c := range table.Columns {
			if c.NotNull || c.PrimaryKey {
				notNull++
			}
		}
		assert.Equal(t, int64(notNull),
			query(t, svc, "select count(*) from information_schema.columns where table_name = '"+table.Name+"' and is_nullable = 'NO'"),
			table.Name)
	}

	assert.Equal(t, int64(5), query(t, svc, "select count(*) from information_schema.table_constraints where constraint_type = 'PRIMARY KEY' and table_schema = 'public'"))
}

func TestIntegrationRevelrySongplay(t *testing.T) {
	svc := startWarehouse(t)

	report := runPipeline(t, svc, newFakeStore())

	expected := map[string]int64{
		"staging_events": 2,
		"staging_songs":  1,
		"songplays":      1,
		"users":          1,
		"songs":          1,
		"artists":        1,
		"times":          1,
	}
	for table, want := range expected {
		got, ok := report.Count(table)
		require.True(t, ok, table)
		assert.Equal(t, want, got, table)
	}

	assert.Equal(t, int64(1), query(t, svc, `select count(*) from songplays
		where song_id = 'SOX123' and artist_id = 'ARX456' and user_id = 73
		and session_id = 518 and level = 'paid' and location = 'Tampa, FL'`))
	assert.Equal(t, int64(1), query(t, svc, "select count(*) from users where user_id = 73 and first_name = 'Jacob' and level = 'paid'"))
	assert.Equal(t, int64(1), query(t, svc, "select count(*) from artists where artist_id = 'ARX456' and name = 'Kings of Leon' and latitude is null"))
	assert.Equal(t, int64(1), query(t, svc, "select count(*) from songs where song_id = 'SOX123' and year = 2008 and duration = 180"))
}

func TestIntegrationTimesDecomposition(t *testing.T) {
	svc := startWarehouse(t)

	runPipeline(t, svc, newFakeStore())

	// 1541106673796 is 2018-11-01T21:11:13.796Z, a Thursday in ISO week 44.
	assert.Equal(t, int64(1), query(t, svc, `select count(*) from times
		where start_time = timestamp '2018-11-01 21:11:13.796'
		and hour = 21 and day = 1 and week = 44 and month = 11 and year = 2018
		and weekday = '4'`))
}

func TestIntegrationNonNextSongProducesNoFacts(t *testing.T) {
	svc := startWarehouse(t)

	store := newFakeStore()
	store.objects["log_data/2018/11/2018-11-01-events.json"] = homeEvent + "\n"

	report := runPipeline(t, svc, store)

	for table, want := range map[string]int64{
		"staging_events": 1,
		"songplays":      0,
		"users":          0,
		"times":          0,
		"songs":          1,
		"artists":        1,
	} {
		got, _ := report.Count(table)
		assert.Equal(t, want, got, table)
	}
}

func TestIntegrationPagePredicateExcludesMatchingHomeEvent(t *testing.T) {
	svc := startWarehouse(t)

	store := newFakeStore()
	store.objects["log_data/2018/11/2018-11-01-events.json"] = revelryEvent + "\n" + revelryHomeEvent + "\n"

	report := runPipeline(t, svc, store)

	for table, want := range map[string]int64{
		"staging_events": 2,
		"songplays":      1,
		"users":          1,
		"times":          1,
	} {
		got, _ := report.Count(table)
		assert.Equal(t, want, got, table)
	}
	assert.Zero(t, query(t, svc, "select count(*) from songplays where start_time = timestamp '2018-11-01 21:11:20.796'"))
}

func TestIntegrationDimensionsAreDistinct(t *testing.T) {
	svc := startWarehouse(t)

	store := newFakeStore()
	store.objects["log_data/2018/11/2018-11-01-events.json"] = revelryEvent + "\n" + revelryReplay + "\n" + loggedOutEvent + "\n"
	store.objects["song_data/A/A/B/TRAAABD128F429CF47.json"] = revelrySong
	store.objects["song_data/A/A/C/TRAAACN128F9355673.json"] = sexOnFireSong

	report := runPipeline(t, svc, store)

	for table, want := range map[string]int64{
		"staging_events": 3,
		"staging_songs":  3,
		"songplays":      2,
		"users":          1,
		"songs":          2,
		"artists":        1,
		"times":          2,
	} {
		got, _ := report.Count(table)
		assert.Equal(t, want, got, table)
	}

	assert.Equal(t,
		query(t, svc, "select count(distinct userId) from staging_events where page = 'NextSong'"),
		query(t, svc, "select count(*) from users"))
	assert.Equal(t,
		query(t, svc, "select count(distinct song_id) from staging_songs"),
		query(t, svc, "select count(*) from songs"))
	assert.Equal(t,
		query(t, svc, "select count(distinct artist_id) from staging_songs"),
		query(t, svc, "select count(*) from artists"))
	assert.Equal(t, int64(1), query(t, svc, "select count(*) from staging_events where userId is null"))
	assert.Zero(t, query(t, svc, "select count(*) from users where user_id is null"))
}
