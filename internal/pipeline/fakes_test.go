package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"songplaydw/internal/catalog"
	"songplaydw/internal/catalog/jsonpaths"
	"songplaydw/internal/storage"
	"songplaydw/internal/warehouse"
	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

// fakeWarehouse records what the stages ask of the session.
type fakeWarehouse struct {
	executed   []string
	failOn     string
	counts     map[string]int64
	copied     map[string][][]any
	atomic     int
	rolledBack bool
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{counts: map[string]int64{}, copied: map[string][][]any{}}
}

func (w *fakeWarehouse) Exec(_ context.Context, stmt catalog.Statement) error {
	w.executed = append(w.executed, stmt.Name)
	if stmt.Name == w.failOn {
		return errors.SQLError("Failed to execute "+stmt.Name, stmt.SQL, fmt.Errorf("boom")).
			WithContext("statement", stmt.Name)
	}
	return nil
}

func (w *fakeWarehouse) Atomic(_ context.Context, fn func(tx warehouse.Execer) error) error {
	w.atomic++
	if err := fn(w); err != nil {
		w.rolledBack = true
		return err
	}
	return nil
}

func (w *fakeWarehouse) Count(_ context.Context, stmt catalog.Statement) (int64, error) {
	w.executed = append(w.executed, stmt.Name)
	if stmt.Name == w.failOn {
		return 0, errors.SQLError("Failed to execute "+stmt.Name, stmt.SQL, fmt.Errorf("boom"))
	}
	return w.counts[stmt.Table], nil
}

func (w *fakeWarehouse) CopyFrom(_ context.Context, stmt catalog.Statement, columns []string, src pgx.CopyFromSource) (int64, error) {
	w.executed = append(w.executed, stmt.Name)
	var rows int64
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			return rows, err
		}
		if len(v) != len(columns) {
			return rows, fmt.Errorf("row has %d values for %d columns", len(v), len(columns))
		}
		w.copied[stmt.Table] = append(w.copied[stmt.Table], v)
		rows++
	}
	if err := src.Err(); err != nil {
		return rows, errors.Wrap(err, errors.ErrCodeBulkLoadFailed, "copy aborted")
	}
	return rows, nil
}

// fakeStore serves one bucket from memory.
type fakeStore struct {
	bucket  string
	objects map[string]string
}

func (s *fakeStore) List(_ context.Context, loc storage.Location) ([]storage.Object, error) {
	var out []storage.Object
	for k, v := range s.objects {
		if loc.Bucket == s.bucket && strings.HasPrefix(k, loc.Key) {
			out = append(out, storage.Object{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *fakeStore) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	body, ok := s.objects[key]
	if !ok || bucket != s.bucket {
		return nil, errors.New(errors.ErrCodeObjectNotFound, "Object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (s *fakeStore) Exists(_ context.Context, loc storage.Location) (bool, error) {
	_, ok := s.objects[loc.Key]
	return ok && loc.Bucket == s.bucket, nil
}

func (s *fakeStore) HasObjects(ctx context.Context, loc storage.Location) (bool, error) {
	objects, err := s.List(ctx, loc)
	return len(objects) > 0, err
}

func (s *fakeStore) FetchMapping(ctx context.Context, raw string) (*jsonpaths.Mapping, error) {
	loc, err := storage.ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	body, err := s.Open(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return jsonpaths.Parse(body)
}

func testCatalog(t *testing.T, dialect string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(&models.Config{
		IAMRole: models.IAMRole{ARN: "arn:aws:iam::123456789012:role/dwhRole"},
		S3: models.S3{
			LogData:     "s3://udacity-dend/log_data",
			LogJSONPath: "s3://udacity-dend/log_json_path.json",
			SongData:    "s3://udacity-dend/song_data",
		},
		Warehouse: models.Warehouse{Dialect: dialect},
	})
	require.NoError(t, err)
	return cat
}

func jsonPathsDocument() string {
	paths := make([]string, len(catalog.StagingEvents.Columns))
	for i, c := range catalog.StagingEvents.Columns {
		paths[i] = `"$['` + c.Name + `']"`
	}
	return `{"jsonpaths": [` + strings.Join(paths, ", ") + `]}`
}

const revelryEvent = `{"artist":"Kings of Leon","auth":"Logged In","firstName":"Jacob","gender":"M","itemInSession":0,"lastName":"Klein","length":180.0,"level":"paid","location":"Tampa, FL","method":"PUT","page":"NextSong","registration":1540558108796.0,"sessionId":518,"song":"Revelry","status":200,"ts":1541106673796,"userAgent":"Mozilla/5.0","userId":"73"}`

const homeEvent = `{"artist":null,"auth":"Logged In","firstName":"Jacob","gender":"M","itemInSession":1,"lastName":"Klein","length":null,"level":"paid","location":"Tampa, FL","method":"GET","page":"Home","registration":1540558108796.0,"sessionId":518,"song":null,"status":200,"ts":1541106674796,"userAgent":"Mozilla/5.0","userId":"73"}`

// revelryHomeEvent matches the Revelry song on every join column but is not a NextSong page view.
const revelryHomeEvent = `{"artist":"Kings of Leon","auth":"Logged In","firstName":"Jacob","gender":"M","itemInSession":2,"lastName":"Klein","length":180.0,"level":"paid","location":"Tampa, FL","method":"GET","page":"Home","registration":1540558108796.0,"sessionId":518,"song":"Revelry","status":200,"ts":1541106680796,"userAgent":"Mozilla/5.0","userId":"73"}`

// revelryReplay is the same user playing Revelry again later in the session.
const revelryReplay = `{"artist":"Kings of Leon","auth":"Logged In","firstName":"Jacob","gender":"M","itemInSession":3,"lastName":"Klein","length":180.0,"level":"paid","location":"Tampa, FL","method":"PUT","page":"NextSong","registration":1540558108796.0,"sessionId":518,"song":"Revelry","status":200,"ts":1541106860796,"userAgent":"Mozilla/5.0","userId":"73"}`

// loggedOutEvent is a NextSong page view without a user.
const loggedOutEvent = `{"artist":"Nobody Known","auth":"Logged Out","firstName":null,"gender":null,"itemInSession":0,"lastName":null,"length":201.5,"level":"free","location":null,"method":"PUT","page":"NextSong","registration":null,"sessionId":601,"song":"Unknown Track","status":200,"ts":1541106900796,"userAgent":null,"userId":""}`

const sexOnFireSong = `{"num_songs": 1, "artist_id": "ARX456", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Kings of Leon", "song_id": "SOY789", "title": "Sex on Fire", "duration": 203.0, "year": 2008}`

const revelrySong = `{"num_songs": 1, "artist_id": "ARX456", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Kings of Leon", "song_id": "SOX123", "title": "Revelry", "duration": 180.0, "year": 2008}`

func newFakeStore() *fakeStore {
	return &fakeStore{
		bucket: "udacity-dend",
		objects: map[string]string{
			"log_json_path.json":                      jsonPathsDocument(),
			"log_data/2018/11/2018-11-01-events.json": revelryEvent + "\n" + homeEvent + "\n",
			"song_data/A/A/A/TRAAAAK128F9318786.json": revelrySong,
		},
	}
}
