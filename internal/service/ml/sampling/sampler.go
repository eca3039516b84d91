package sampling

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/anomaly"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/clustering"
)

// Config holds sampling parameters
type Config struct {
	TargetSampleSize int
	// SoftCap is the largest target that stays cheap downstream; larger
	// targets are honoured with a warning.
	SoftCap            int
	MaxOfficerBackfill int
}

// DefaultConfig returns the stock sampling parameters
func DefaultConfig() Config {
	return Config{
		TargetSampleSize:   75,
		SoftCap:            100,
		MaxOfficerBackfill: 5,
	}
}

// Validate rejects unusable sampling parameters.
func (c Config) Validate() error {
	if c.TargetSampleSize < 1 {
		return errors.NewConfigurationError("target_sample_size", "must be positive")
	}
	if c.MaxOfficerBackfill < 0 {
		return errors.NewConfigurationError("max_officer_backfill", "cannot be negative")
	}
	return nil
}

// stage records why an index was selected
type stage int

const (
	stageAnomaly stage = iota
	stageCluster
	stageSeverity
	stagePeriod
	stageOfficer
	stageTopUp
)

// Composition counts selections per stage
type Composition struct {
	Anomalies              int `json:"anomalies"`
	ClusterRepresentatives int `json:"cluster_representatives"`
	SeverityBackfill       int `json:"severity_backfill"`
	TemporalBackfill       int `json:"temporal_backfill"`
	OfficerBackfill        int `json:"officer_backfill"`
	TopUp                  int `json:"top_up"`
}

// Coverage compares what the sample covers with what the population holds
type Coverage struct {
	SeverityLevels        int                 `json:"severity_levels"`
	SeverityLevelsPresent int                 `json:"severity_levels_present"`
	TimePeriods           int                 `json:"time_periods"`
	TimePeriodsPresent    int                 `json:"time_periods_present"`
	Officers              int                 `json:"officers"`
	OfficersPresent       int                 `json:"officers_present"`
	DeviationTypes        int                 `json:"deviation_types"`
	DeviationTypesPresent int                 `json:"deviation_types_present"`
	MissingSeverities     []values.Severity   `json:"missing_severities,omitempty"`
	MissingTimePeriods    []values.TimePeriod `json:"missing_time_periods,omitempty"`
}

// Report describes a sampling run
type Report struct {
	TotalDeviations      int         `json:"total_deviations"`
	SelectedCount        int         `json:"selected_count"`
	TargetSampleSize     int         `json:"target_sample_size"`
	CompressionRatio     float64     `json:"compression_ratio"`
	AllAnomaliesIncluded bool        `json:"all_anomalies_included"`
	Composition          Composition `json:"composition"`
	Coverage             Coverage    `json:"coverage"`
}

// Result is the selected subset
type Result struct {
	// Indices into the input population, ascending.
	Indices  []int
	Selected []deviation.Annotated
	Report   Report
}

// Sampler selects a bounded representative subset
type Sampler struct {
	logger *zap.Logger
	config Config
}

// NewSampler creates a new sampler
func NewSampler(logger *zap.Logger, config Config) (*Sampler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger = logger.Named("sampling")
	if config.SoftCap > 0 && config.TargetSampleSize > config.SoftCap {
		logger.Warn("Target sample size exceeds soft cap",
			zap.Int("target", config.TargetSampleSize),
			zap.Int("soft_cap", config.SoftCap))
	}
	return &Sampler{logger: logger, config: config}, nil
}

// selection tracks chosen indices and what they cover
type selection struct {
	devs     []deviation.Deviation
	stages   map[int]stage
	order    []int
	severity map[values.Severity]int
	period   map[values.TimePeriod]int
	officer  map[string]int
	perClust map[int]int
	labels   []int
}

func newSelection(devs []deviation.Deviation, labels []int) *selection {
	return &selection{
		devs:     devs,
		stages:   make(map[int]stage),
		severity: make(map[values.Severity]int),
		period:   make(map[values.TimePeriod]int),
		officer:  make(map[string]int),
		perClust: make(map[int]int),
		labels:   labels,
	}
}

func (s *selection) has(i int) bool {
	_, ok := s.stages[i]
	return ok
}

func (s *selection) add(i int, st stage) {
	s.stages[i] = st
	s.order = append(s.order, i)
	d := s.devs[i]
	s.severity[d.Severity]++
	if p, ok := values.PeriodOfTime(d.DetectedAt); ok {
		s.period[p]++
	}
	s.officer[d.OfficerID]++
	if st == stageCluster {
		s.perClust[s.labels[i]]++
	}
}

func (s *selection) remove(i int) {
	st := s.stages[i]
	delete(s.stages, i)
	for k, idx := range s.order {
		if idx == i {
			s.order = append(s.order[:k], s.order[k+1:]...)
			break
		}
	}
	d := s.devs[i]
	s.severity[d.Severity]--
	if p, ok := values.PeriodOfTime(d.DetectedAt); ok {
		s.period[p]--
	}
	s.officer[d.OfficerID]--
	if st == stageCluster {
		s.perClust[s.labels[i]]--
	}
}

// evictable finds the most recently added cluster representative whose
// removal loses no coverage and does not empty its cluster.
func (s *selection) evictable() (int, bool) {
	for k := len(s.order) - 1; k >= 0; k-- {
		i := s.order[k]
		if s.stages[i] != stageCluster || s.perClust[s.labels[i]] < 2 {
			continue
		}
		d := s.devs[i]
		if s.severity[d.Severity] < 2 || s.officer[d.OfficerID] < 2 {
			continue
		}
		if p, ok := values.PeriodOfTime(d.DetectedAt); ok && s.period[p] < 2 {
			continue
		}
		return i, true
	}
	return 0, false
}

// Sample selects min(N, max(target, anomalies)) deviations: every anomaly,
// then cluster representatives in proportion to cluster size, then severity,
// time period and officer backfills, topping up with the most anomalous
// remaining deviations.
func (s *Sampler) Sample(devs []deviation.Deviation, clusters *clustering.Result, scores *anomaly.Result) *Result {
	n := len(devs)
	nAnomalies := scores.Count()
	size := s.config.TargetSampleSize
	if nAnomalies > size {
		size = nAnomalies
	}
	if size > n {
		size = n
	}

	s.logger.Info("Starting sampling",
		zap.Int("deviations", n),
		zap.Int("target", s.config.TargetSampleSize),
		zap.Int("sample_size", size))

	sel := newSelection(devs, clusters.Labels)

	for _, i := range scores.Ranked {
		sel.add(i, stageAnomaly)
	}

	if budget := size - len(sel.order); budget > 0 {
		for _, i := range s.clusterRepresentatives(clusters, scores, budget) {
			sel.add(i, stageCluster)
		}
	}

	place := func(i int, st stage) bool {
		if len(sel.order) >= size {
			victim, ok := sel.evictable()
			if !ok {
				return false
			}
			sel.remove(victim)
		}
		sel.add(i, st)
		return true
	}

	skipped := 0

	// severity, highest first
	sevs := values.Severities()
	for k := len(sevs) - 1; k >= 0; k-- {
		sev := sevs[k]
		if sel.severity[sev] > 0 {
			continue
		}
		if i, ok := firstWhere(devs, sel, func(d deviation.Deviation) bool { return d.Severity == sev }); ok {
			if !place(i, stageSeverity) {
				skipped++
			}
		}
	}

	for _, p := range values.TimePeriods() {
		if sel.period[p] > 0 {
			continue
		}
		period := p
		if i, ok := firstWhere(devs, sel, func(d deviation.Deviation) bool {
			got, ok := values.PeriodOfTime(d.DetectedAt)
			return ok && got == period
		}); ok {
			if !place(i, stagePeriod) {
				skipped++
			}
		}
	}

	added := 0
	for _, officer := range officersByFrequency(devs) {
		if added >= s.config.MaxOfficerBackfill {
			break
		}
		if sel.officer[officer] > 0 {
			continue
		}
		id := officer
		if i, ok := firstWhere(devs, sel, func(d deviation.Deviation) bool { return d.OfficerID == id }); ok {
			if place(i, stageOfficer) {
				added++
			} else {
				skipped++
			}
		}
	}

	if len(sel.order) < size {
		for _, i := range byScore(scores.Scores, n) {
			if len(sel.order) >= size {
				break
			}
			if !sel.has(i) {
				sel.add(i, stageTopUp)
			}
		}
	}

	if skipped > 0 {
		s.logger.Warn("Coverage backfills skipped, sample is full of anomalies",
			zap.Int("skipped", skipped),
			zap.Int("sample_size", size))
	}

	res := s.assemble(devs, clusters, scores, sel)
	s.logger.Info("Sampling complete",
		zap.Int("selected", res.Report.SelectedCount),
		zap.Int("total", n),
		zap.Float64("compression_ratio", res.Report.CompressionRatio))
	return res
}

// clusterRepresentatives allocates budget across clusters in proportion to
// their non-anomalous membership, at least one each, and picks members near
// the centroid and at the boundary.
func (s *Sampler) clusterRepresentatives(clusters *clustering.Result, scores *anomaly.Result, budget int) []int {
	ids := clusters.ClusterIDs()
	normal := make(map[int][]int, len(ids))
	total := 0
	for _, id := range ids {
		for _, m := range clusters.Members(id) {
			if !scores.Anomalies[m] {
				normal[id] = append(normal[id], m)
			}
		}
		total += len(normal[id])
	}
	if total == 0 {
		s.logger.Warn("No clustered deviations outside the anomaly set")
		return nil
	}

	alloc := make(map[int]int, len(ids))
	allocated := 0
	for _, id := range ids {
		size := len(normal[id])
		if size == 0 {
			continue
		}
		a := int(math.Round(float64(size) / float64(total) * float64(budget)))
		if a < 1 {
			a = 1
		}
		if a > size {
			a = size
		}
		alloc[id] = a
		allocated += a
	}

	// trim the largest allocations first, keeping one per cluster
	bySize := append([]int(nil), ids...)
	sort.SliceStable(bySize, func(i, j int) bool { return alloc[bySize[i]] > alloc[bySize[j]] })
	for _, id := range bySize {
		if allocated <= budget {
			break
		}
		cut := allocated - budget
		if room := alloc[id] - 1; room < cut {
			cut = room
		}
		if cut > 0 {
			alloc[id] -= cut
			allocated -= cut
		}
	}
	// more clusters than budget: drop the smallest
	for k := len(bySize) - 1; k >= 0 && allocated > budget; k-- {
		id := bySize[k]
		if alloc[id] > 0 {
			allocated -= alloc[id]
			alloc[id] = 0
		}
	}

	var picked []int
	for _, id := range ids {
		picked = append(picked, mix(normal[id], alloc[id])...)
	}
	return picked
}

// mix takes n of members (ordered nearest-first), half from the centre and
// the rest from the boundary.
func mix(members []int, n int) []int {
	if n <= 0 {
		return nil
	}
	if n >= len(members) {
		return members
	}
	nClose := n / 2
	if nClose < 1 {
		nClose = 1
	}
	out := append([]int(nil), members[:nClose]...)
	return append(out, members[len(members)-(n-nClose):]...)
}

func (s *Sampler) assemble(devs []deviation.Deviation, clusters *clustering.Result, scores *anomaly.Result, sel *selection) *Result {
	indices := append([]int(nil), sel.order...)
	sort.Ints(indices)

	res := &Result{Indices: indices, Selected: make([]deviation.Annotated, 0, len(indices))}
	comp := Composition{}
	for _, i := range indices {
		a := deviation.Annotated{Deviation: devs[i], IsAnomaly: scores.Anomalies[i]}
		if i < len(clusters.Labels) {
			a.Cluster = deviation.ClusterLabel(clusters.Labels[i])
		}
		if scores.Applied {
			score := values.Round(scores.Scores[i], 4)
			a.AnomalyScore = &score
		}
		res.Selected = append(res.Selected, a)

		switch sel.stages[i] {
		case stageAnomaly:
			comp.Anomalies++
		case stageCluster:
			comp.ClusterRepresentatives++
		case stageSeverity:
			comp.SeverityBackfill++
		case stagePeriod:
			comp.TemporalBackfill++
		case stageOfficer:
			comp.OfficerBackfill++
		case stageTopUp:
			comp.TopUp++
		}
	}

	allAnomalies := true
	for _, i := range scores.Ranked {
		if !sel.has(i) {
			allAnomalies = false
		}
	}

	res.Report = Report{
		TotalDeviations:      len(devs),
		SelectedCount:        len(indices),
		TargetSampleSize:     s.config.TargetSampleSize,
		CompressionRatio:     values.Ratio(len(devs), len(indices)),
		AllAnomaliesIncluded: allAnomalies,
		Composition:          comp,
		Coverage:             coverage(devs, sel),
	}
	return res
}

func coverage(devs []deviation.Deviation, sel *selection) Coverage {
	sevs := make(map[values.Severity]bool)
	periods := make(map[values.TimePeriod]bool)
	officers := make(map[string]bool)
	types := make(map[deviation.Type]bool)
	for _, d := range devs {
		sevs[d.Severity] = true
		if p, ok := values.PeriodOfTime(d.DetectedAt); ok {
			periods[p] = true
		}
		officers[d.OfficerID] = true
		types[d.Type] = true
	}

	selTypes := make(map[deviation.Type]bool)
	for i := range sel.stages {
		selTypes[devs[i].Type] = true
	}

	c := Coverage{
		SeverityLevelsPresent: len(sevs),
		TimePeriodsPresent:    len(periods),
		OfficersPresent:       len(officers),
		DeviationTypes:        len(selTypes),
		DeviationTypesPresent: len(types),
	}
	for _, sev := range values.Severities() {
		if !sevs[sev] {
			continue
		}
		if sel.severity[sev] > 0 {
			c.SeverityLevels++
		} else {
			c.MissingSeverities = append(c.MissingSeverities, sev)
		}
	}
	for _, p := range values.TimePeriods() {
		if !periods[p] {
			continue
		}
		if sel.period[p] > 0 {
			c.TimePeriods++
		} else {
			c.MissingTimePeriods = append(c.MissingTimePeriods, p)
		}
	}
	for o := range officers {
		if sel.officer[o] > 0 {
			c.Officers++
		}
	}
	return c
}

func firstWhere(devs []deviation.Deviation, sel *selection, match func(deviation.Deviation) bool) (int, bool) {
	for i, d := range devs {
		if !sel.has(i) && match(d) {
			return i, true
		}
	}
	return 0, false
}

// officersByFrequency orders officers by deviation count, then id.
func officersByFrequency(devs []deviation.Deviation) []string {
	counts := make(map[string]int)
	for _, d := range devs {
		counts[d.OfficerID]++
	}
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// byScore orders indices most anomalous first, ties by index.
func byScore(scores []float64, n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if len(scores) == n {
		sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })
	}
	return order
}
