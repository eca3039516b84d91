package clustering

import (
	"context"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

// Method names the algorithm that produced a partition
type Method string

const (
	MethodDBSCAN           Method = "DBSCAN"
	MethodKMeans           Method = "KMeans"
	MethodInsufficientData Method = "insufficient_data"
)

// Config holds clustering parameters
type Config struct {
	Eps                       float64
	MinSamples                int
	MinClusters               int
	MaxClusters               int
	FallbackK                 int
	KMeansInit                int
	KMeansMaxIter             int
	RepresentativesPerCluster int
	// MinPopulation is the smallest population worth partitioning; below
	// it everything is one cluster.
	MinPopulation int
	Seed          int64
}

// DefaultConfig returns the stock clustering parameters
func DefaultConfig() Config {
	return Config{
		Eps:                       0.5,
		MinSamples:                5,
		MinClusters:               2,
		MaxClusters:               20,
		FallbackK:                 10,
		KMeansInit:                10,
		KMeansMaxIter:             300,
		RepresentativesPerCluster: 5,
		MinPopulation:             10,
		Seed:                      42,
	}
}

// TypeCount is a deviation type with its frequency inside a cluster
type TypeCount struct {
	Type  deviation.Type `json:"type"`
	Count int            `json:"count"`
}

// Summary describes one cluster
type Summary struct {
	Label                string                  `json:"label"`
	Size                 int                     `json:"size"`
	Percentage           float64                 `json:"percentage"`
	TopSeverity          values.Severity         `json:"top_severity"`
	TopType              deviation.Type          `json:"top_deviation_type"`
	TopOfficer           string                  `json:"top_officer"`
	SeverityDistribution map[values.Severity]int `json:"severity_distribution"`
	TopTypes             []TypeCount             `json:"deviation_types"`
	Representatives      []int                   `json:"representatives,omitempty"`
}

// Result is a partition of the population
type Result struct {
	Labels         []int     `json:"-"`
	Method         Method    `json:"method"`
	NClusters      int       `json:"n_clusters"`
	NoiseCount     int       `json:"noise_count"`
	Inertia        float64   `json:"inertia,omitempty"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
	Clusters       []Summary `json:"clusters"`

	// members of each cluster ordered by distance to its centroid
	ranked map[int][]int
}

// Members returns the indices of a cluster, nearest to its centroid first.
func (r *Result) Members(label int) []int {
	return r.ranked[label]
}

// ClusterIDs lists the non-noise labels in ascending order.
func (r *Result) ClusterIDs() []int {
	ids := make([]int, 0, len(r.ranked))
	for id := range r.ranked {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Pick selects n members of a cluster mixing the points nearest its
// centroid with the boundary points farthest from it.
func (r *Result) Pick(label, n int) []int {
	members := r.ranked[label]
	if n >= len(members) {
		return append([]int(nil), members...)
	}
	if n <= 0 {
		return nil
	}
	nClose := n / 2
	if nClose < 1 {
		nClose = 1
	}
	picked := append([]int(nil), members[:nClose]...)
	picked = append(picked, members[len(members)-(n-nClose):]...)
	return picked
}

// Clusterer groups deviations by feature similarity
type Clusterer struct {
	logger *zap.Logger
	config Config
}

// NewClusterer creates a new clusterer
func NewClusterer(logger *zap.Logger, config Config) *Clusterer {
	return &Clusterer{
		logger: logger.Named("clustering"),
		config: config,
	}
}

// Cluster partitions the population. Density clustering runs first; when
// it yields a cluster count outside [MinClusters, MaxClusters] the
// population is re-partitioned with k-means.
func (c *Clusterer) Cluster(ctx context.Context, matrix [][]float64, devs []deviation.Deviation) (*Result, error) {
	n := len(matrix)
	c.logger.Info("Starting clustering", zap.Int("samples", n))

	if n < c.config.MinPopulation {
		c.logger.Warn("Too few samples for clustering, assigning all to one cluster",
			zap.Int("samples", n),
			zap.Int("minimum", c.config.MinPopulation))
		res := &Result{
			Labels:    make([]int, n),
			Method:    MethodInsufficientData,
			NClusters: 1,
		}
		if n == 0 {
			res.NClusters = 0
		}
		c.finish(res, Standardize(matrix), devs)
		return res, nil
	}

	scaled := Standardize(matrix)

	labels := DBSCAN(scaled, c.config.Eps, c.config.MinSamples)
	clusters, noise := countClusters(labels)
	c.logger.Info("DBSCAN complete",
		zap.Int("clusters", clusters),
		zap.Int("noise", noise),
		zap.Float64("eps", c.config.Eps),
		zap.Int("min_samples", c.config.MinSamples))

	res := &Result{Labels: labels, Method: MethodDBSCAN, NClusters: clusters, NoiseCount: noise}

	if clusters < c.config.MinClusters || clusters > c.config.MaxClusters {
		degenerate := errors.NewDegenerateClusteringError(clusters, c.config.MinClusters, c.config.MaxClusters)
		c.logger.Warn("Falling back to k-means", zap.Error(degenerate))

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		k := c.fallbackK(n)
		km := KMeans(scaled, k, c.config.KMeansInit, c.config.KMeansMaxIter, rand.New(rand.NewSource(c.config.Seed)))
		kmClusters, _ := countClusters(km.Labels)
		res = &Result{
			Labels:         km.Labels,
			Method:         MethodKMeans,
			NClusters:      kmClusters,
			Inertia:        values.Round(km.Inertia, 2),
			FallbackReason: degenerate.Message,
		}
		c.logger.Info("K-means complete",
			zap.Int("clusters", res.NClusters),
			zap.Float64("inertia", res.Inertia))
	}

	c.finish(res, scaled, devs)
	return res, nil
}

// fallbackK keeps at least five samples per cluster and at least two
// clusters.
func (c *Clusterer) fallbackK(n int) int {
	k := c.config.FallbackK
	if n/5 < k {
		k = n / 5
	}
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}
	return k
}

func (c *Clusterer) finish(res *Result, scaled [][]float64, devs []deviation.Deviation) {
	res.ranked = rankMembers(res.Labels, scaled)

	groups := make(map[int][]int)
	for i, l := range res.Labels {
		groups[l] = append(groups[l], i)
	}
	labels := make([]int, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	// noise last
	if len(labels) > 0 && labels[0] == Noise {
		labels = append(labels[1:], Noise)
	}

	for _, l := range labels {
		s := summarize(l, groups[l], devs, len(res.Labels))
		if l != Noise {
			s.Representatives = res.Pick(l, c.config.RepresentativesPerCluster)
		}
		res.Clusters = append(res.Clusters, s)
	}
}

func rankMembers(labels []int, scaled [][]float64) map[int][]int {
	groups := make(map[int][]int)
	for i, l := range labels {
		if l != Noise {
			groups[l] = append(groups[l], i)
		}
	}

	ranked := make(map[int][]int, len(groups))
	for l, members := range groups {
		dim := len(scaled[members[0]])
		centroid := make([]float64, dim)
		for _, m := range members {
			floats.Add(centroid, scaled[m])
		}
		floats.Scale(1/float64(len(members)), centroid)

		dist := make(map[int]float64, len(members))
		for _, m := range members {
			dist[m] = floats.Distance(scaled[m], centroid, 2)
		}
		ordered := append([]int(nil), members...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return dist[ordered[i]] < dist[ordered[j]]
		})
		ranked[l] = ordered
	}
	return ranked
}

func summarize(label int, members []int, devs []deviation.Deviation, total int) Summary {
	sevCounts := make(map[values.Severity]int)
	typeCounts := make(map[string]int)
	officerCounts := make(map[string]int)
	for _, m := range members {
		if m >= len(devs) {
			continue
		}
		d := devs[m]
		sevCounts[d.Severity]++
		typeCounts[string(d.Type)]++
		officerCounts[d.OfficerID]++
	}

	sevKeys := make(map[string]int, len(sevCounts))
	for s, n := range sevCounts {
		sevKeys[string(s)] = n
	}

	s := Summary{
		Label:                deviation.ClusterLabel(label),
		Size:                 len(members),
		Percentage:           values.Percent(len(members), total),
		SeverityDistribution: sevCounts,
		TopSeverity:          values.Severity(mostCommon(sevKeys)),
		TopType:              deviation.Type(mostCommon(typeCounts)),
		TopOfficer:           mostCommon(officerCounts),
	}
	for _, t := range ranked(typeCounts, 3) {
		s.TopTypes = append(s.TopTypes, TypeCount{Type: deviation.Type(t), Count: typeCounts[t]})
	}
	return s
}

func mostCommon(counts map[string]int) string {
	if top := ranked(counts, 1); len(top) > 0 {
		return top[0]
	}
	return "unknown"
}

// ranked orders keys by count descending, then key ascending.
func ranked(counts map[string]int, k int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
