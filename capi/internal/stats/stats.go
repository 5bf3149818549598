// Package stats collects engine counters on prometheus registries and
// renders them in the JSON shape returned by the stats ABI calls.
package stats

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "tiledb"

// Set is one independent group of counters.
type Set struct {
	registry *prometheus.Registry
	queries  *prometheus.CounterVec
	cells    *prometheus.CounterVec
	filtered *prometheus.CounterVec
	vfsOps   *prometheus.CounterVec
	vfsBytes *prometheus.CounterVec
	objects  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a Set on its own registry.
func New() *Set {
	s := &Set{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_submit_total",
			Help:      "Query submissions by query type and status.",
		}, []string{"type", "status"}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cells_total",
			Help:      "Cells written or returned by queries.",
		}, []string{"type"}),
		filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_bytes_total",
			Help:      "Bytes passed through the filter pipeline.",
		}, []string{"direction", "stage"}),
		vfsOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vfs_ops_total",
			Help:      "VFS operations by kind.",
		}, []string{"op"}),
		vfsBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vfs_bytes_total",
			Help:      "Bytes moved through VFS file handles.",
		}, []string{"op"}),
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Engine objects allocated and freed by kind.",
		}, []string{"kind", "event"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_submit_seconds",
			Help:      "Time spent in query submission.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"type"}),
	}
	s.registry.MustRegister(s.queries, s.cells, s.filtered, s.vfsOps, s.vfsBytes, s.objects, s.latency)
	return s
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (s *Set) Registry() *prometheus.Registry { return s.registry }

func (s *Set) Query(queryType, status string, cells int, took time.Duration) {
	s.queries.WithLabelValues(queryType, status).Inc()
	s.cells.WithLabelValues(queryType).Add(float64(cells))
	s.latency.WithLabelValues(queryType).Observe(took.Seconds())
}

// Chunk records one chunk passing through the filter pipeline.
func (s *Set) Chunk(direction string, raw, filtered int) {
	s.filtered.WithLabelValues(direction, "raw").Add(float64(raw))
	s.filtered.WithLabelValues(direction, "filtered").Add(float64(filtered))
}

func (s *Set) VFS(op string, n int) {
	s.vfsOps.WithLabelValues(op).Inc()
	if n > 0 {
		s.vfsBytes.WithLabelValues(op).Add(float64(n))
	}
}

// Object records an engine object being allocated or freed.
func (s *Set) Object(kind string, created bool) {
	event := "freed"
	if created {
		event = "allocated"
	}
	s.objects.WithLabelValues(kind, event).Inc()
}

// Reset zeroes every counter.
func (s *Set) Reset() {
	s.queries.Reset()
	s.cells.Reset()
	s.filtered.Reset()
	s.vfsOps.Reset()
	s.vfsBytes.Reset()
	s.objects.Reset()
	s.latency.Reset()
}

// Snapshot is the JSON document produced by Dump.
type Snapshot struct {
	Timers   map[string]float64 `json:"timers"`
	Counters map[string]float64 `json:"counters"`
}

// Snapshot gathers the current values. Zero counters are left out.
func (s *Set) Snapshot() (Snapshot, error) {
	snap := Snapshot{Timers: map[string]float64{}, Counters: map[string]float64{}}
	families, err := s.registry.Gather()
	if err != nil {
		return snap, err
	}
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), namespace+"_")
		for _, m := range mf.GetMetric() {
			key := name + labels(m)
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				if v := m.GetCounter().GetValue(); v != 0 {
					snap.Counters[key] = v
				}
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				if h.GetSampleCount() == 0 {
					continue
				}
				snap.Timers[key+".sum"] = h.GetSampleSum()
				snap.Timers[key+".count"] = float64(h.GetSampleCount())
			}
		}
	}
	return snap, nil
}

func labels(m *dto.Metric) string {
	pairs := m.GetLabel()
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

// Dump renders the counters as indented JSON.
func (s *Set) Dump() (string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent([]Snapshot{snap}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

// RawDump renders the counters as compact JSON.
func (s *Set) RawDump() (string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	out, err := json.Marshal([]Snapshot{snap})
	return string(out), err
}

// Text renders the counters one per line, sorted by name.
func (s *Set) Text() (string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	var keys []string
	for k := range snap.Counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("==== Counters ====\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %g\n", k, snap.Counters[k])
	}
	return b.String(), nil
}

// Sink fans one observation out to several sets. Nil entries are skipped.
type Sink []*Set

func (k Sink) Query(queryType, status string, cells int, took time.Duration) {
	for _, s := range k {
		if s != nil {
			s.Query(queryType, status, cells, took)
		}
	}
}

func (k Sink) Chunk(direction string, raw, filtered int) {
	for _, s := range k {
		if s != nil {
			s.Chunk(direction, raw, filtered)
		}
	}
}

func (k Sink) VFS(op string, n int) {
	for _, s := range k {
		if s != nil {
			s.VFS(op, n)
		}
	}
}

var (
	global  = New()
	enabled atomic.Bool
)

// Global returns the process-wide set, or nil while collection is disabled.
func Global() *Set {
	if !enabled.Load() {
		return nil
	}
	return global
}

// GlobalSet returns the process-wide set regardless of the enabled flag.
func GlobalSet() *Set { return global }

func Enable()  { enabled.Store(true) }
func Disable() { enabled.Store(false) }

func Enabled() bool { return enabled.Load() }
