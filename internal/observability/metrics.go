package observability

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Counter is a monotonically increasing value
type Counter struct {
	mu    sync.Mutex
	name  string
	value int64
}

// Add increases the counter by delta
func (c *Counter) Add(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += delta
}

// Inc increments the counter by 1
func (c *Counter) Inc() {
	c.Add(1)
}

// Value returns the current value
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Timer accumulates durations
type Timer struct {
	mu    sync.Mutex
	name  string
	count int
	total time.Duration
	max   time.Duration
}

// Observe records one duration
func (t *Timer) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	t.total += d
	if d > t.max {
		t.max = d
	}
}

// Since records the time elapsed since start
func (t *Timer) Since(start time.Time) {
	t.Observe(time.Since(start))
}

// Count returns the number of observations
func (t *Timer) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Total returns the sum of observations
func (t *Timer) Total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Max returns the longest observation
func (t *Timer) Max() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.max
}

// Metric names recorded by the pipeline
const (
	StatementsExecuted = "statements_executed"
	StatementsFailed   = "statements_failed"
	RowsCopied         = "rows_copied"
	ObjectsRead        = "objects_read"
)

// Registry holds the counters and timers of one run. Metrics are created on
// first use.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
	timers   map[string]*Timer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		timers:   make(map[string]*Timer),
	}
}

// Counter returns the named counter
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = &Counter{name: name}
		r.counters[name] = c
	}
	return c
}

// Timer returns the named timer
func (r *Registry) Timer(name string) *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[name]
	if !ok {
		t = &Timer{name: name}
		r.timers[name] = t
	}
	return t
}

// Fields renders every metric as zap fields, sorted by name.
func (r *Registry) Fields() []zap.Field {
	r.mu.Lock()
	counters := make([]*Counter, 0, len(r.counters))
	for _, c := range r.counters {
		counters = append(counters, c)
	}
	timers := make([]*Timer, 0, len(r.timers))
	for _, t := range r.timers {
		timers = append(timers, t)
	}
	r.mu.Unlock()

	sort.Slice(counters, func(i, j int) bool { return counters[i].name < counters[j].name })
	sort.Slice(timers, func(i, j int) bool { return timers[i].name < timers[j].name })

	fields := make([]zap.Field, 0, len(counters)+len(timers))
	for _, c := range counters {
		fields = append(fields, zap.Int64(c.name, c.Value()))
	}
	for _, t := range timers {
		fields = append(fields, zap.Duration(t.name, t.Total()))
	}
	return fields
}
