package anomaly

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

// Config holds isolation forest parameters
type Config struct {
	Contamination float64
	Trees         int
	MaxSamples    int
	Workers       int
	MinPopulation int
	Seed          int64
}

// DefaultConfig returns the stock anomaly parameters
func DefaultConfig() Config {
	return Config{
		Contamination: 0.1,
		Trees:         100,
		MaxSamples:    256,
		Workers:       4,
		MinPopulation: 10,
		Seed:          42,
	}
}

// Validate rejects parameters the forest cannot work with.
func (c Config) Validate() error {
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		return errors.NewConfigurationError("contamination", "must be in (0, 0.5]")
	}
	if c.Trees < 1 {
		return errors.NewConfigurationError("trees", "must be positive")
	}
	if c.MaxSamples < 2 {
		return errors.NewConfigurationError("max_tree_samples", "must be at least 2")
	}
	return nil
}

// Result holds per-deviation anomaly scores. Scores are centred on the
// contamination cut: anomalies score at or below zero, more negative is more
// anomalous.
type Result struct {
	Scores    []float64
	Anomalies []bool
	// Ranked lists anomaly indices, most anomalous first.
	Ranked []int
	// Offset is the raw isolation score at the contamination cut.
	Offset  float64
	Applied bool
}

// Count is the number of flagged anomalies.
func (r *Result) Count() int {
	return len(r.Ranked)
}

// Scorer flags statistically unusual deviations
type Scorer struct {
	logger *zap.Logger
	config Config
}

// NewScorer creates a new scorer
func NewScorer(logger *zap.Logger, config Config) (*Scorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{
		logger: logger.Named("anomaly"),
		config: config,
	}, nil
}

// Score fits a forest over the matrix and labels exactly
// round(contamination * n) rows as anomalies, ties broken by row order.
func (s *Scorer) Score(ctx context.Context, matrix [][]float64) (*Result, error) {
	n := len(matrix)
	if n < s.config.MinPopulation {
		s.logger.Warn("Too few samples for anomaly detection",
			zap.Int("samples", n),
			zap.Int("minimum", s.config.MinPopulation))
		return &Result{
			Scores:    make([]float64, n),
			Anomalies: make([]bool, n),
		}, nil
	}

	s.logger.Info("Running isolation forest",
		zap.Int("samples", n),
		zap.Int("trees", s.config.Trees),
		zap.Float64("contamination", s.config.Contamination))

	forest, err := FitForest(ctx, matrix, s.config.Trees, s.config.MaxSamples, s.config.Workers, s.config.Seed)
	if err != nil {
		return nil, err
	}

	raw := make([]float64, n)
	for i, row := range matrix {
		raw[i] = forest.Score(row)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return raw[order[a]] > raw[order[b]]
	})

	k := int(math.Round(s.config.Contamination * float64(n)))
	var offset float64
	switch {
	case k == 0:
		offset = raw[order[0]]
	case k >= n:
		k = n
		offset = raw[order[n-1]]
	default:
		offset = (raw[order[k-1]] + raw[order[k]]) / 2
	}

	res := &Result{
		Scores:    make([]float64, n),
		Anomalies: make([]bool, n),
		Ranked:    append([]int(nil), order[:k]...),
		Offset:    offset,
		Applied:   true,
	}
	for i := range raw {
		res.Scores[i] = offset - raw[i]
	}
	for _, idx := range res.Ranked {
		res.Anomalies[idx] = true
	}

	s.logger.Info("Anomaly detection complete",
		zap.Int("anomalies", k),
		zap.Float64("percentage", values.Percent(k, n)),
		zap.Float64("offset", offset))

	return res, nil
}

// ScoreRange describes the spread of anomaly scores
type ScoreRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// MostAnomalous identifies the single strongest outlier
type MostAnomalous struct {
	Index       int             `json:"index"`
	Score       float64         `json:"score"`
	CaseID      string          `json:"case_id"`
	OfficerID   string          `json:"officer_id"`
	Type        deviation.Type  `json:"deviation_type"`
	Severity    values.Severity `json:"severity"`
	Description string          `json:"description"`
}

// Analysis characterizes the flagged anomalies
type Analysis struct {
	Count                int                     `json:"count"`
	Percentage           float64                 `json:"percentage"`
	ScoreRange           ScoreRange              `json:"score_range"`
	SeverityDistribution map[values.Severity]int `json:"severity_distribution,omitempty"`
	TopTypes             map[deviation.Type]int  `json:"top_deviation_types,omitempty"`
	TopOfficers          map[string]int          `json:"top_officers,omitempty"`
	MostAnomalous        *MostAnomalous          `json:"most_anomalous,omitempty"`
}

// Analyze summarizes a scoring result against the deviations it scored.
func Analyze(res *Result, devs []deviation.Deviation) Analysis {
	a := Analysis{
		Count:      res.Count(),
		Percentage: values.Percent(res.Count(), len(devs)),
	}
	if len(res.Scores) > 0 {
		mean, std := stat.PopMeanStdDev(res.Scores, nil)
		a.ScoreRange = ScoreRange{
			Min:  values.Round(floats.Min(res.Scores), 4),
			Max:  values.Round(floats.Max(res.Scores), 4),
			Mean: values.Round(mean, 4),
			Std:  values.Round(std, 4),
		}
	}
	if a.Count == 0 {
		return a
	}

	a.SeverityDistribution = make(map[values.Severity]int)
	types := make(map[string]int)
	officers := make(map[string]int)
	for _, idx := range res.Ranked {
		d := devs[idx]
		a.SeverityDistribution[d.Severity]++
		types[string(d.Type)]++
		officers[d.OfficerID]++
	}
	a.TopTypes = make(map[deviation.Type]int)
	for _, t := range topKeys(types, 5) {
		a.TopTypes[deviation.Type(t)] = types[t]
	}
	a.TopOfficers = make(map[string]int)
	for _, o := range topKeys(officers, 5) {
		a.TopOfficers[o] = officers[o]
	}

	top := res.Ranked[0]
	d := devs[top]
	desc := d.Description
	if r := []rune(desc); len(r) > 100 {
		desc = string(r[:100])
	}
	a.MostAnomalous = &MostAnomalous{
		Index:       top,
		Score:       values.Round(res.Scores[top], 4),
		CaseID:      d.CaseID,
		OfficerID:   d.OfficerID,
		Type:        d.Type,
		Severity:    d.Severity,
		Description: desc,
	}
	return a
}

func topKeys(counts map[string]int, k int) []string {
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
