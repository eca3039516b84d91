package clustering

import (
	"gonum.org/v1/gonum/floats"
)

// Noise is the label of points that belong to no dense region.
const Noise = -1

// DBSCAN labels points by density reachability. A point is a core point
// when at least minPts points (itself included) lie within eps of it.
// Labels are assigned in order of discovery starting at 0.
func DBSCAN(x [][]float64, eps float64, minPts int) []int {
	n := len(x)
	labels := make([]int, n)
	visited := make([]bool, n)
	for i := range labels {
		labels[i] = Noise
	}

	neighbors := func(p int) []int {
		var out []int
		for q := 0; q < n; q++ {
			if floats.Distance(x[p], x[q], 2) <= eps {
				out = append(out, q)
			}
		}
		return out
	}

	cluster := 0
	for p := 0; p < n; p++ {
		if visited[p] {
			continue
		}
		visited[p] = true
		seeds := neighbors(p)
		if len(seeds) < minPts {
			continue
		}

		labels[p] = cluster
		for k := 0; k < len(seeds); k++ {
			q := seeds[k]
			if labels[q] == Noise {
				labels[q] = cluster
			}
			if visited[q] {
				continue
			}
			visited[q] = true
			if more := neighbors(q); len(more) >= minPts {
				seeds = append(seeds, more...)
			}
		}
		cluster++
	}
	return labels
}

// countClusters returns the number of non-noise clusters and noise points.
func countClusters(labels []int) (clusters, noise int) {
	seen := make(map[int]bool)
	for _, l := range labels {
		if l == Noise {
			noise++
			continue
		}
		seen[l] = true
	}
	return len(seen), noise
}
