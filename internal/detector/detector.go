// Package detector implements the statistical anomaly detection methods
// applied to per-service daily cost series.
package detector

import (
	"math"
	"sort"
	"time"
)

// Point is one day of a cost series, ordered by date ascending
type Point struct {
	Date   time.Time
	Amount float64
}

// Flag marks one point of a series as anomalous
type Flag struct {
	Index      int
	Expected   float64
	Deviation  float64
	Confidence float64 // 0..1
}

// Method scores a daily cost series and returns the anomalous points.
// Series shorter than MinPoints must be skipped by the caller.
type Method interface {
	Name() string
	MinPoints() int
	Detect(series []Point) []Flag
}

// Registry holds the detection methods by name
type Registry struct {
	methods map[string]Method
	order   []string
}

// NewRegistry creates an empty method registry
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]Method)}
}

// Register adds a method, replacing any existing method with the same name
func (r *Registry) Register(m Method) {
	if _, ok := r.methods[m.Name()]; !ok {
		r.order = append(r.order, m.Name())
	}
	r.methods[m.Name()] = m
}

// Get returns the method with the given name
func (r *Registry) Get(name string) (Method, bool) {
	m, ok := r.methods[name]
	return m, ok
}

// DefaultRegistry builds a registry with all four detection methods
// using the given tuning parameters
func DefaultRegistry(zscoreCutoff, movingAvgPct float64, minData int) *Registry {
	r := NewRegistry()
	r.Register(NewZScore(zscoreCutoff, minData))
	r.Register(NewIQR(minData))
	r.Register(NewMovingAverage(7, movingAvgPct, minData))
	r.Register(NewIsolationForest(100, 64, 0.65, minData))
	return r
}

// Names lists registered method names in registration order
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev returns the sample standard deviation
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// percentile returns the p-th percentile (0..100) of values using linear
// interpolation between closest ranks
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func amounts(series []Point) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Amount
	}
	return out
}
