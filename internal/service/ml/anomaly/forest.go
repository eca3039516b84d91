package anomaly

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

const eulerGamma = 0.5772156649

// node is an isolation tree node; leaves have no children.
type node struct {
	feature     int
	split       float64
	left, right *node
	size        int
}

// Forest is an ensemble of isolation trees
type Forest struct {
	trees      []*node
	sampleSize int
}

// FitForest grows nTrees isolation trees, each over its own random subsample
// of at most maxSamples rows. Tree i draws from a source seeded with seed+i,
// so the result does not depend on how trees are scheduled.
func FitForest(ctx context.Context, x [][]float64, nTrees, maxSamples, workers int, seed int64) (*Forest, error) {
	psi := maxSamples
	if psi > len(x) {
		psi = len(x)
	}
	heightLimit := 0
	if psi > 1 {
		heightLimit = int(math.Ceil(math.Log2(float64(psi))))
	}

	f := &Forest{trees: make([]*node, nTrees), sampleSize: psi}

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < nTrees; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed + int64(i)))
			sample := make([][]float64, psi)
			for j, idx := range rng.Perm(len(x))[:psi] {
				sample[j] = x[idx]
			}
			f.trees[i] = grow(sample, 0, heightLimit, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

func grow(rows [][]float64, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(rows) <= 1 {
		return &node{size: len(rows)}
	}

	dim := len(rows[0])
	var candidates []int
	lo := make([]float64, dim)
	hi := make([]float64, dim)
	for j := 0; j < dim; j++ {
		lo[j], hi[j] = rows[0][j], rows[0][j]
		for _, r := range rows[1:] {
			lo[j] = math.Min(lo[j], r[j])
			hi[j] = math.Max(hi[j], r[j])
		}
		if hi[j] > lo[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := lo[feature] + rng.Float64()*(hi[feature]-lo[feature])

	var left, right [][]float64
	for _, r := range rows {
		if r[feature] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &node{
		feature: feature,
		split:   split,
		left:    grow(left, depth+1, limit, rng),
		right:   grow(right, depth+1, limit, rng),
		size:    len(rows),
	}
}

// PathLength is the mean isolation depth of p across the forest.
func (f *Forest) PathLength(p []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, p, 0)
	}
	return total / float64(len(f.trees))
}

// Score maps the mean path length into (0, 1]; values near 1 isolate fast
// and are anomalous, values well below 0.5 are ordinary.
func (f *Forest) Score(p []float64) float64 {
	norm := averagePath(f.sampleSize)
	if norm == 0 {
		return 0.5
	}
	return math.Pow(2, -f.PathLength(p)/norm)
}

func pathLength(n *node, p []float64, depth int) float64 {
	for n.left != nil {
		if p[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePath(n.size)
}

// averagePath is the expected path length of an unsuccessful search in a
// binary search tree of n nodes.
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}
