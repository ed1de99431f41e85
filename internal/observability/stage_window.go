package observability

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Stage names recorded by the speech pipeline.
const (
	StageCredentialRefresh = "credential_refresh"
	StageChunkSynthesis    = "chunk_synthesis"
	StageBatch             = "batch"
	StageFirstAudio        = "first_audio"
	StageRequestTotal      = "request_total"
)

// stageTargets holds the p95 budget per stage in milliseconds. Stages without
// an entry, like request_total which scales with input length, have no target.
var stageTargets = map[string]float64{
	StageCredentialRefresh: 800,
	StageChunkSynthesis:    2500,
	StageBatch:             3500,
	StageFirstAudio:        4000,
}

type StageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	// OverTarget counts windowed samples slower than the target.
	OverTarget int `json:"over_target,omitempty"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StageSnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// latencyRing is a fixed-capacity ring of the most recent samples.
type latencyRing struct {
	samples []float64
	head    int
	last    float64
}

func (r *latencyRing) add(ms float64, capacity int) {
	r.last = ms
	if len(r.samples) < capacity {
		r.samples = append(r.samples, ms)
		return
	}
	r.samples[r.head] = ms
	r.head = (r.head + 1) % capacity
}

func (r *latencyRing) stats(stage string) StageStats {
	sorted := slices.Clone(r.samples)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	target := stageTargets[stage]
	over := 0
	if target > 0 {
		// sorted is ascending, so everything past the first slow sample is slow too.
		idx, _ := slices.BinarySearch(sorted, math.Nextafter(target, math.Inf(1)))
		over = len(sorted) - idx
	}
	return StageStats{
		Stage:       stage,
		Samples:     len(sorted),
		LastMS:      round2(r.last),
		AvgMS:       round2(sum / float64(len(sorted))),
		P50MS:       round2(interpolate(sorted, 0.50)),
		P95MS:       round2(interpolate(sorted, 0.95)),
		P99MS:       round2(interpolate(sorted, 0.99)),
		TargetP95MS: target,
		OverTarget:  over,
	}
}

// stageWindow aggregates recent per-stage latencies and event counters for
// /v1/perf/latency. Prometheus histograms keep the long-run view.
type stageWindow struct {
	capacity int

	mu         sync.Mutex
	rings      map[string]*latencyRing
	indicators map[string]int
}

func newStageWindow(capacity int) *stageWindow {
	if capacity <= 0 {
		capacity = 256
	}
	return &stageWindow{
		capacity:   capacity,
		rings:      map[string]*latencyRing{},
		indicators: map[string]int{},
	}
}

func (w *stageWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.rings[stage]
	if r == nil {
		r = &latencyRing{}
		w.rings[stage] = r
	}
	r.add(ms, w.capacity)
}

func (w *stageWindow) ObserveIndicator(name string) {
	if w == nil {
		return
	}
	if name = strings.TrimSpace(name); name == "" {
		return
	}
	w.mu.Lock()
	w.indicators[name]++
	w.mu.Unlock()
}

func (w *stageWindow) Snapshot() StageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := StageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.capacity,
		Stages:      make([]StageStats, 0, len(w.rings)),
	}
	for _, stage := range sortedKeys(w.rings) {
		snap.Stages = append(snap.Stages, w.rings[stage].stats(stage))
	}
	for _, name := range sortedKeys(w.indicators) {
		snap.Indicators = append(snap.Indicators, Indicator{Name: name, Count: w.indicators[name]})
	}
	return snap
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// interpolate returns the q-quantile of ascending values, linear between ranks.
func interpolate(sorted []float64, q float64) float64 {
	switch n := len(sorted); {
	case n == 0:
		return 0
	case q <= 0 || n == 1:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i+1 >= len(sorted) {
		return sorted[i]
	}
	return sorted[i] + (sorted[i+1]-sorted[i])*(pos-float64(i))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
