// Package jsonpaths reads JSONPaths documents, the row-level mapping a bulk loader
// uses to pick one value per target column out of each JSON record.
//
// A document looks like {"jsonpaths": ["$['artist']", "$.auth", "$['tags'][0]"]}.
// The n-th expression feeds the n-th column of the target table.
package jsonpaths

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Segment is one step of a path: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is a parsed JSONPath expression.
type Path struct {
	Raw      string
	Segments []Segment
}

// Mapping is an ordered list of paths.
type Mapping struct {
	Paths []Path
}

type document struct {
	JSONPaths []string `json:"jsonpaths"`
}

// Parse decodes a JSONPaths document.
func Parse(r io.Reader) (*Mapping, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode jsonpaths document: %w", err)
	}
	if len(doc.JSONPaths) == 0 {
		return nil, fmt.Errorf("jsonpaths document has no expressions")
	}

	m := &Mapping{Paths: make([]Path, 0, len(doc.JSONPaths))}
	for i, expr := range doc.JSONPaths {
		p, err := ParsePath(expr)
		if err != nil {
			return nil, fmt.Errorf("jsonpaths[%d]: %w", i, err)
		}
		m.Paths = append(m.Paths, p)
	}
	return m, nil
}

// ParsePath parses bracket ($['a']["b"][0]) and dot ($.a.b) notation, mixed freely.
func ParsePath(expr string) (Path, error) {
	p := Path{Raw: expr}
	s := strings.TrimSpace(expr)
	if !strings.HasPrefix(s, "$") {
		return p, fmt.Errorf("path %q must start with $", expr)
	}

	i := 1
	for i < len(s) {
		switch s[i] {
		case '.':
			j := i + 1
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			if j == i+1 {
				return p, fmt.Errorf("path %q has an empty key at offset %d", expr, i)
			}
			p.Segments = append(p.Segments, Segment{Key: s[i+1 : j]})
			i = j
		case '[':
			if i+1 >= len(s) {
				return p, fmt.Errorf("path %q ends inside brackets", expr)
			}
			if q := s[i+1]; q == '\'' || q == '"' {
				end := strings.IndexByte(s[i+2:], q)
				if end < 0 {
					return p, fmt.Errorf("path %q has an unterminated quote", expr)
				}
				key := s[i+2 : i+2+end]
				i = i + 2 + end + 1
				if i >= len(s) || s[i] != ']' {
					return p, fmt.Errorf("path %q is missing ] after key %q", expr, key)
				}
				p.Segments = append(p.Segments, Segment{Key: key})
				i++
				continue
			}
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return p, fmt.Errorf("path %q is missing ]", expr)
			}
			idx, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || idx < 0 {
				return p, fmt.Errorf("path %q has an invalid index %q", expr, s[i+1:i+end])
			}
			p.Segments = append(p.Segments, Segment{Index: idx, IsIndex: true})
			i += end + 1
		default:
			return p, fmt.Errorf("path %q has an unexpected %q at offset %d", expr, s[i], i)
		}
	}

	if len(p.Segments) == 0 {
		return p, fmt.Errorf("path %q selects the whole record", expr)
	}
	return p, nil
}

// Lookup walks the decoded JSON value v. Missing keys, out-of-range indexes and
// type mismatches all report false.
func (p Path) Lookup(v any) (any, bool) {
	cur := v
	for _, seg := range p.Segments {
		if seg.IsIndex {
			arr, ok := cur.([]any)
			if !ok || seg.Index >= len(arr) {
				return nil, false
			}
			cur = arr[seg.Index]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg.Key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Extract returns one value per path; unresolved paths yield nil.
func (m *Mapping) Extract(record any) []any {
	out := make([]any, len(m.Paths))
	for i, p := range m.Paths {
		if v, ok := p.Lookup(record); ok {
			out[i] = v
		}
	}
	return out
}
