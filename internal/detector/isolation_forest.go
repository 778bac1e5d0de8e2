package detector

import (
	"math"
	"math/rand"

	"github.com/costwatch/costwatch/internal/domain/anomaly"
)

// IsolationForest flags points that an ensemble of random partition
// trees isolates in unusually few splits. Outliers sit alone in sparse
// regions of the value range and separate early, giving short average
// path lengths and scores near 1.
type IsolationForest struct {
	Trees      int
	SampleSize int
	ScoreCut   float64
	MinData    int
	seed       int64
}

// NewIsolationForest creates a forest with the given ensemble size.
// Scoring is deterministic for a given series; the forest is rebuilt
// from a fixed seed on every Detect call.
func NewIsolationForest(trees, sampleSize int, scoreCut float64, minData int) *IsolationForest {
	if trees <= 0 {
		trees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 64
	}
	if scoreCut <= 0 {
		scoreCut = 0.65
	}
	return &IsolationForest{
		Trees:      trees,
		SampleSize: sampleSize,
		ScoreCut:   scoreCut,
		MinData:    minData,
		seed:       1,
	}
}

func (d *IsolationForest) Name() string { return anomaly.MethodIsolationForest }

func (d *IsolationForest) MinPoints() int { return d.MinData }

type isoNode struct {
	split       float64
	left, right *isoNode
	size        int
}

func (d *IsolationForest) Detect(series []Point) []Flag {
	if len(series) < d.MinPoints() {
		return nil
	}
	values := amounts(series)

	sample := d.SampleSize
	if sample > len(values) {
		sample = len(values)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))
	rng := rand.New(rand.NewSource(d.seed))

	trees := make([]*isoNode, d.Trees)
	for t := range trees {
		sub := make([]float64, sample)
		for i := range sub {
			sub[i] = values[rng.Intn(len(values))]
		}
		trees[t] = buildIsoTree(sub, 0, maxDepth, rng)
	}

	cn := avgPathLength(sample)
	m := mean(values)

	var flags []Flag
	for i, v := range values {
		var total float64
		for _, tree := range trees {
			total += pathLength(tree, v, 0)
		}
		avg := total / float64(len(trees))
		score := math.Pow(2, -avg/cn)
		if score < d.ScoreCut {
			continue
		}
		flags = append(flags, Flag{
			Index:      i,
			Expected:   m,
			Deviation:  v - m,
			Confidence: math.Min(1, score),
		})
	}
	return flags
}

func buildIsoTree(values []float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if depth >= maxDepth || len(values) <= 1 {
		return &isoNode{size: len(values)}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &isoNode{size: len(values)}
	}
	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &isoNode{
		split: split,
		left:  buildIsoTree(left, depth+1, maxDepth, rng),
		right: buildIsoTree(right, depth+1, maxDepth, rng),
		size:  len(values),
	}
}

func pathLength(n *isoNode, v float64, depth int) float64 {
	if n.left == nil {
		// external node: add the average depth of an unbuilt subtree
		return float64(depth) + avgPathLength(n.size)
	}
	if v < n.split {
		return pathLength(n.left, v, depth+1)
	}
	return pathLength(n.right, v, depth+1)
}

// avgPathLength is c(n), the average path length of an unsuccessful
// search in a binary search tree of n nodes
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649 // Euler-Mascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}
