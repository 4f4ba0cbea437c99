package storage

import (
	"context"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

var _ Store = (*InstrumentedStore)(nil)

// Latencies are recorded in microseconds, up to 10s with 3 significant figures.
const (
	minLatencyMicros = 1
	maxLatencyMicros = 10_000_000
	sigFigs          = 3
)

type OpStats struct {
	Count  int64   `json:"count"`
	Errors int64   `json:"errors"`
	MeanUs float64 `json:"mean_us"`
	P50Us  int64   `json:"p50_us"`
	P95Us  int64   `json:"p95_us"`
	P99Us  int64   `json:"p99_us"`
	MaxUs  int64   `json:"max_us"`
}

// InstrumentedStore records latency histograms for the wrapped store.
type InstrumentedStore struct {
	next Store

	mu     sync.Mutex
	hists  map[string]*hdrhistogram.Histogram
	errors map[string]int64
}

func NewInstrumentedStore(next Store) *InstrumentedStore {
	return &InstrumentedStore{
		next:   next,
		hists:  map[string]*hdrhistogram.Histogram{},
		errors: map[string]int64{},
	}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := s.next.Get(ctx, key)
	s.record("get", start, err)
	return v, ok, err
}

func (s *InstrumentedStore) Apply(ctx context.Context, mutations ...Mutation) error {
	start := time.Now()
	err := s.next.Apply(ctx, mutations...)
	s.record("apply", start, err)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}

func (s *InstrumentedStore) record(op string, start time.Time, err error) {
	elapsed := time.Since(start).Microseconds()
	if elapsed < minLatencyMicros {
		elapsed = minLatencyMicros
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hists[op]
	if !ok {
		h = hdrhistogram.New(minLatencyMicros, maxLatencyMicros, sigFigs)
		s.hists[op] = h
	}
	// values past the ceiling are dropped by the histogram
	_ = h.RecordValue(elapsed)
	if err != nil {
		s.errors[op]++
	}
}

// Snapshot returns per-operation stats.
func (s *InstrumentedStore) Snapshot() map[string]OpStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]OpStats, len(s.hists))
	for op, h := range s.hists {
		out[op] = OpStats{
			Count:  h.TotalCount(),
			Errors: s.errors[op],
			MeanUs: h.Mean(),
			P50Us:  h.ValueAtQuantile(50),
			P95Us:  h.ValueAtQuantile(95),
			P99Us:  h.ValueAtQuantile(99),
			MaxUs:  h.Max(),
		}
	}
	return out
}
