// Package staging streams raw JSON records from S3 into staging-table rows for
// engines that cannot read S3 themselves.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"songplaydw/internal/catalog"
	"songplaydw/internal/catalog/jsonpaths"
	"songplaydw/internal/storage"
	"songplaydw/pkg/errors"
)

// Opener opens one object for reading.
type Opener interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Extractor picks one raw value per target column out of a record.
type Extractor func(record map[string]any) []any

// ByMapping selects values with a JSONPaths mapping, position by position.
func ByMapping(m *jsonpaths.Mapping) Extractor {
	return func(record map[string]any) []any {
		return m.Extract(record)
	}
}

// ByColumn selects values whose key matches the column name, ignoring case.
func ByColumn(t catalog.Table) Extractor {
	names := t.ColumnNames()
	return func(record map[string]any) []any {
		folded := make(map[string]any, len(record))
		for k, v := range record {
			folded[strings.ToLower(k)] = v
		}
		out := make([]any, len(names))
		for i, n := range names {
			out[i] = folded[strings.ToLower(n)]
		}
		return out
	}
}

// Source yields one row per JSON record across a list of objects. Each object
// may hold JSON lines or concatenated objects. It implements pgx.CopyFromSource.
type Source struct {
	ctx     context.Context
	opener  Opener
	bucket  string
	objects []storage.Object
	table   catalog.Table
	extract Extractor

	next   int
	body   io.ReadCloser
	dec    *json.Decoder
	key    string
	record int

	row  []any
	rows int64
	err  error
}

// NewSource builds a source over objects in bucket. extract must return one value
// per column of table.
func NewSource(ctx context.Context, opener Opener, bucket string, objects []storage.Object, table catalog.Table, extract Extractor) *Source {
	return &Source{
		ctx:     ctx,
		opener:  opener,
		bucket:  bucket,
		objects: objects,
		table:   table,
		extract: extract,
	}
}

// Next advances to the next record, opening objects as needed.
func (s *Source) Next() bool {
	if s.err != nil {
		return false
	}

	for {
		if s.dec == nil {
			if s.next >= len(s.objects) {
				return false
			}
			if err := s.ctx.Err(); err != nil {
				s.err = err
				return false
			}
			if !s.open(s.objects[s.next].Key) {
				return false
			}
			s.next++
		}

		var value any
		err := s.dec.Decode(&value)
		if err == io.EOF {
			s.closeBody()
			continue
		}
		s.record++
		if err != nil {
			s.fail(err, "Invalid JSON")
			return false
		}

		record, ok := value.(map[string]any)
		if !ok {
			s.fail(fmt.Errorf("got %T", value), "Record is not a JSON object")
			return false
		}

		row, err := s.convert(record)
		if err != nil {
			s.fail(err, "Record does not fit "+s.table.Name)
			return false
		}
		s.row = row
		s.rows++
		return true
	}
}

// Values returns the current row.
func (s *Source) Values() ([]any, error) {
	return s.row, nil
}

// Err returns the error that stopped iteration, if any.
func (s *Source) Err() error {
	return s.err
}

// Rows returns the number of rows yielded so far.
func (s *Source) Rows() int64 {
	return s.rows
}

// Close releases the object being read. It is safe to call more than once.
func (s *Source) Close() error {
	return s.closeBody()
}

func (s *Source) open(key string) bool {
	body, err := s.opener.Open(s.ctx, s.bucket, key)
	if err != nil {
		s.err = err
		return false
	}
	s.body = body
	s.key = key
	s.record = 0
	s.dec = json.NewDecoder(body)
	s.dec.UseNumber()
	return true
}

func (s *Source) closeBody() error {
	s.dec = nil
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

func (s *Source) convert(record map[string]any) ([]any, error) {
	raw := s.extract(record)
	if len(raw) != len(s.table.Columns) {
		return nil, fmt.Errorf("extracted %d values for %d columns", len(raw), len(s.table.Columns))
	}
	row := make([]any, len(raw))
	for i, c := range s.table.Columns {
		v, err := Coerce(raw[i], c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		row[i] = v
	}
	return row, nil
}

func (s *Source) fail(cause error, message string) {
	s.err = errors.Wrap(cause, errors.ErrCodeMalformedRecord, message).
		WithContext("location", storage.Location{Bucket: s.bucket, Key: s.key}.String()).
		WithContext("record", s.record).
		WithContext("table", s.table.Name)
	s.closeBody()
}
