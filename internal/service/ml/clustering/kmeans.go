package clustering

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeansResult is one partition of the data into k groups
type KMeansResult struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

const kmeansTolerance = 1e-4

// KMeans runs Lloyd's algorithm nInit times from k-means++ seeds drawn from
// rng and keeps the partition with the lowest inertia.
func KMeans(x [][]float64, k, nInit, maxIter int, rng *rand.Rand) *KMeansResult {
	if k > len(x) {
		k = len(x)
	}
	if nInit < 1 {
		nInit = 1
	}

	var best *KMeansResult
	for run := 0; run < nInit; run++ {
		res := lloyd(x, seedCentroids(x, k, rng), maxIter)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best
}

// seedCentroids picks k starting centroids with k-means++ weighting.
func seedCentroids(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(x[rng.Intn(len(x))]))

	d2 := make([]float64, len(x))
	for len(centroids) < k {
		var total float64
		for i, p := range x {
			d := nearestDistance(p, centroids)
			d2[i] = d * d
			total += d2[i]
		}
		if total == 0 {
			centroids = append(centroids, clone(x[rng.Intn(len(x))]))
			continue
		}
		target := rng.Float64() * total
		chosen := len(x) - 1
		for i, w := range d2 {
			target -= w
			if target <= 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(x[chosen]))
	}
	return centroids
}

func lloyd(x [][]float64, centroids [][]float64, maxIter int) *KMeansResult {
	k := len(centroids)
	dim := len(x[0])
	labels := make([]int, len(x))

	for iter := 0; iter < maxIter; iter++ {
		for i, p := range x {
			labels[i] = nearest(p, centroids)
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range x {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		// re-seed each empty cluster at the farthest point of a cluster that
		// can spare one; the donor loses the point before means are taken
		taken := make([]bool, len(x))
		for c := range centroids {
			if counts[c] > 0 {
				continue
			}
			far := farthest(x, labels, centroids, counts, taken)
			if far < 0 {
				continue
			}
			donor := labels[far]
			floats.Sub(sums[donor], x[far])
			counts[donor]--
			floats.Add(sums[c], x[far])
			counts[c] = 1
			labels[far] = c
			taken[far] = true
		}

		var shift float64
		for c := range centroids {
			if counts[c] == 0 {
				sums[c] = centroids[c]
			} else {
				floats.Scale(1/float64(counts[c]), sums[c])
			}
			shift += floats.Distance(sums[c], centroids[c], 2)
			centroids[c] = sums[c]
		}
		if shift <= kmeansTolerance {
			break
		}
	}

	for i, p := range x {
		labels[i] = nearest(p, centroids)
	}
	var inertia float64
	for i, p := range x {
		d := floats.Distance(p, centroids[labels[i]], 2)
		inertia += d * d
	}
	return &KMeansResult{Labels: labels, Centroids: centroids, Inertia: inertia}
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(p, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func nearestDistance(p []float64, centroids [][]float64) float64 {
	return floats.Distance(p, centroids[nearest(p, centroids)], 2)
}

// farthest returns the point farthest from its centroid among points not yet
// taken whose cluster keeps at least one other member, or -1.
func farthest(x [][]float64, labels []int, centroids [][]float64, counts []int, taken []bool) int {
	idx, maxDist := -1, -1.0
	for i, p := range x {
		if taken[i] || counts[labels[i]] < 2 {
			continue
		}
		if d := floats.Distance(p, centroids[labels[i]], 2); d > maxDist {
			idx, maxDist = i, d
		}
	}
	return idx
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
