package statistics

import (
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Config holds summarizer settings
type Config struct {
	TopTypes          int
	TopOfficers       int
	TopCases          int
	ConcentrationTopK int
	// ConcentrationThreshold is the top-K share (percent) above which
	// deviations count as concentrated.
	ConcentrationThreshold float64
	HighRiskThreshold      float64
	// SeverityWeight blends severity score against concentration in the
	// composite risk; the remainder goes to concentration.
	SeverityWeight float64
}

// DefaultConfig returns the stock summarizer settings
func DefaultConfig() Config {
	return Config{
		TopTypes:               10,
		TopOfficers:            20,
		TopCases:               10,
		ConcentrationTopK:      5,
		ConcentrationThreshold: 50,
		HighRiskThreshold:      50,
		SeverityWeight:         0.6,
	}
}

// Summarizer computes population statistics
type Summarizer struct {
	logger *zap.Logger
	config Config
}

// NewSummarizer creates a new summarizer
func NewSummarizer(logger *zap.Logger, config Config) *Summarizer {
	return &Summarizer{
		logger: logger.Named("statistics"),
		config: config,
	}
}

// Summarize computes the summary over every deviation given. It never
// samples.
func (s *Summarizer) Summarize(devs []deviation.Deviation) *Summary {
	n := len(devs)

	caseCounts := make(map[string]int)
	officerCounts := make(map[string]int)
	typeCounts := make(map[deviation.Type]int)
	sevCounts := make(map[values.Severity]int)
	officerCases := make(map[string]map[string]bool)
	caseOfficers := make(map[string]map[string]bool)

	for _, d := range devs {
		caseCounts[d.CaseID]++
		officerCounts[d.OfficerID]++
		typeCounts[d.Type]++
		sevCounts[d.Severity]++
		addRelation(officerCases, d.OfficerID, d.CaseID)
		addRelation(caseOfficers, d.CaseID, d.OfficerID)
	}

	summary := &Summary{
		Overview: Overview{
			TotalDeviations:      n,
			UniqueCases:          len(caseCounts),
			UniqueOfficers:       len(officerCounts),
			UniqueTypes:          len(typeCounts),
			AvgDeviationsPerCase: values.Ratio(n, len(caseCounts)),
			AvgPerOfficer:        values.Ratio(n, len(officerCounts)),
		},
		SeverityDistribution: severityDistribution(sevCounts, n),
		TopDeviationTypes:    topTypes(typeCounts, n, s.config.TopTypes),
		TypeCategories:       categories(typeCounts, n),
		TemporalPatterns:     temporalPatterns(devs),
		OfficerStats:         entityStats(officerCounts, officerCases, n, s.config.TopOfficers),
		CaseStats:            entityStats(caseCounts, caseOfficers, n, s.config.TopCases),
		Correlations:         s.correlations(devs),
	}
	summary.RiskIndicators = s.riskIndicators(summary, sevCounts, officerCounts, typeCounts, n)

	s.logger.Info("Statistical summary computed",
		zap.Int("deviations", n),
		zap.Int("cases", summary.Overview.UniqueCases),
		zap.Int("officers", summary.Overview.UniqueOfficers),
		zap.Float64("severity_score", summary.SeverityDistribution.Score),
		zap.Float64("composite_risk", summary.RiskIndicators.Composite.Score))

	return summary
}

func severityDistribution(counts map[values.Severity]int, n int) SeverityDistribution {
	dist := SeverityDistribution{Counts: make(map[values.Severity]int)}

	weighted := 0
	best := 0
	for _, sev := range values.Severities() {
		c := counts[sev]
		dist.Counts[sev] = c
		dist.Levels = append(dist.Levels, SeverityLevel{Severity: sev, Count: c, Percentage: values.Percent(c, n)})
		weighted += c * sev.Weight()
		if c > best {
			best, dist.MostCommon = c, sev
		}
	}

	if n > 0 {
		dist.Score = values.Round(float64(weighted)/float64(n)*25, 2)
	}
	dist.Assessment = assessSeverity(dist.Score)
	return dist
}

func assessSeverity(score float64) string {
	switch {
	case score >= 75:
		return "Very High Risk - Immediate attention required"
	case score >= 60:
		return "High Risk - Urgent remediation needed"
	case score >= 45:
		return "Moderate Risk - Action plan required"
	case score >= 30:
		return "Low Risk - Monitoring recommended"
	default:
		return "Minimal Risk - Routine oversight"
	}
}

func topTypes(counts map[deviation.Type]int, n, k int) []TypeCount {
	keys := make([]string, 0, len(counts))
	for t := range counts {
		keys = append(keys, string(t))
	}
	ranked := rank(keys, func(key string) int { return counts[deviation.Type(key)] })

	out := make([]TypeCount, 0, k)
	for _, key := range truncate(ranked, k) {
		c := counts[deviation.Type(key)]
		out = append(out, TypeCount{Type: deviation.Type(key), Count: c, Percentage: values.Percent(c, n)})
	}
	return out
}

func categories(typeCounts map[deviation.Type]int, n int) []CategoryCount {
	byCat := make(map[deviation.Category]*CategoryCount)
	for t, c := range typeCounts {
		cat := t.Category()
		cc, ok := byCat[cat]
		if !ok {
			cc = &CategoryCount{Category: cat}
			byCat[cat] = cc
		}
		cc.Count += c
		cc.Types = append(cc.Types, t)
	}

	keys := make([]string, 0, len(byCat))
	for cat := range byCat {
		keys = append(keys, string(cat))
	}
	out := make([]CategoryCount, 0, len(keys))
	for _, key := range rank(keys, func(key string) int { return byCat[deviation.Category(key)].Count }) {
		cc := byCat[deviation.Category(key)]
		sort.Slice(cc.Types, func(i, j int) bool { return cc.Types[i] < cc.Types[j] })
		cc.Percentage = values.Percent(cc.Count, n)
		out = append(out, *cc)
	}
	return out
}

func temporalPatterns(devs []deviation.Deviation) TemporalPatterns {
	hours := make([]int, 24)
	days := make([]int, 7)
	periods := make(map[values.TimePeriod]int)
	var earliest, latest time.Time
	total := 0

	for _, d := range devs {
		if d.DetectedAt.IsZero() {
			continue
		}
		total++
		at := d.DetectedAt
		hours[at.Hour()]++
		days[(int(at.Weekday())+6)%7]++
		periods[values.PeriodOf(at.Hour())]++
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
		if latest.IsZero() || at.After(latest) {
			latest = at
		}
	}

	if total == 0 {
		return TemporalPatterns{}
	}

	tp := TemporalPatterns{
		HasTemporalData:     true,
		TotalWithTimestamps: total,
		HourDistribution:    hours,
		DateRange: &DateRange{
			Earliest: earliest.Format("2006-01-02"),
			Latest:   latest.Format("2006-01-02"),
		},
	}
	for i, name := range dayNames {
		tp.DayDistribution = append(tp.DayDistribution, DayCount{Day: name, Count: days[i]})
	}
	for _, p := range values.TimePeriods() {
		if c := periods[p]; c > 0 {
			tp.PeriodDistribution = append(tp.PeriodDistribution,
				PeriodCount{Period: p, Count: c, Percentage: values.Percent(c, total)})
		}
	}
	tp.PeakHours = peakIndexes(hours, 3)
	for _, i := range peakIndexes(days, 3) {
		tp.PeakDays = append(tp.PeakDays, dayNames[i])
	}
	return tp
}

// peakIndexes returns up to k non-empty buckets, busiest first.
func peakIndexes(counts []int, k int) []int {
	idx := make([]int, 0, len(counts))
	for i, c := range counts {
		if c > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return counts[idx[a]] > counts[idx[b]] })
	if len(idx) > k {
		idx = idx[:k]
	}
	return idx
}

func entityStats(counts map[string]int, related map[string]map[string]bool, n, k int) EntityStats {
	keys := make([]string, 0, len(counts))
	for id := range counts {
		keys = append(keys, id)
	}
	ranked := rank(keys, func(id string) int { return counts[id] })

	stats := EntityStats{Total: len(counts)}
	for _, id := range truncate(ranked, k) {
		stats.Top = append(stats.Top, EntityCount{
			ID:         id,
			Count:      counts[id],
			Percentage: values.Percent(counts[id], n),
			Related:    len(related[id]),
		})
	}

	xs := make([]float64, len(ranked))
	for i, id := range ranked {
		xs[i] = float64(counts[id])
	}
	stats.Distribution = distribution(xs)
	return stats
}

func distribution(xs []float64) DistStats {
	if len(xs) == 0 {
		return DistStats{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	d := DistStats{
		Mean:   values.Round(stat.Mean(sorted, nil), 2),
		Median: values.Round(median(sorted), 2),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
	}
	if len(sorted) > 1 {
		d.StdDev = values.Round(stat.StdDev(sorted, nil), 2)
	}
	return d
}

func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func (s *Summarizer) correlations(devs []deviation.Deviation) Correlations {
	bySev := make(map[values.Severity]map[deviation.Type]int)
	officerSev := make(map[string]map[values.Severity]int)

	for _, d := range devs {
		if bySev[d.Severity] == nil {
			bySev[d.Severity] = make(map[deviation.Type]int)
		}
		bySev[d.Severity][d.Type]++
		if officerSev[d.OfficerID] == nil {
			officerSev[d.OfficerID] = make(map[values.Severity]int)
		}
		officerSev[d.OfficerID][d.Severity]++
	}

	corr := Correlations{SeverityToTypes: make(map[values.Severity][]TypeCount)}
	for _, sev := range values.Severities() {
		types, ok := bySev[sev]
		if !ok {
			continue
		}
		total := 0
		for _, c := range types {
			total += c
		}
		corr.SeverityToTypes[sev] = topTypes(types, total, 3)
	}

	for officer, sevs := range officerSev {
		total := 0
		for _, c := range sevs {
			total += c
		}
		crit, high := sevs[values.SeverityCritical], sevs[values.SeverityHigh]
		score := float64(crit*4+high*3) / float64(total*4) * 100
		if score > s.config.HighRiskThreshold {
			corr.HighRiskOfficers = append(corr.HighRiskOfficers, OfficerRisk{
				OfficerID:     officer,
				RiskScore:     values.Round(score, 2),
				CriticalCount: crit,
				HighCount:     high,
				Total:         total,
			})
		}
	}
	sort.Slice(corr.HighRiskOfficers, func(i, j int) bool {
		a, b := corr.HighRiskOfficers[i], corr.HighRiskOfficers[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		return a.OfficerID < b.OfficerID
	})
	if len(corr.HighRiskOfficers) > 10 {
		corr.HighRiskOfficers = corr.HighRiskOfficers[:10]
	}
	return corr
}

func (s *Summarizer) riskIndicators(summary *Summary, sevCounts map[values.Severity]int, officerCounts map[string]int, typeCounts map[deviation.Type]int, n int) RiskIndicators {
	var ri RiskIndicators
	if n == 0 {
		ri.CriticalMassAssessment = assessCriticalMass(0)
		ri.IssueDiversity.Assessment = "Low diversity"
		ri.Composite.Level = riskLevel(0)
		return ri
	}

	critPct := float64(sevCounts[values.SeverityCritical]) / float64(n) * 100
	highPct := float64(sevCounts[values.SeverityHigh]) / float64(n) * 100
	mass := critPct + 0.75*highPct
	ri.CriticalMassScore = values.Round(mass, 2)
	ri.CriticalMassAssessment = assessCriticalMass(mass)

	officers := make([]string, 0, len(officerCounts))
	for id := range officerCounts {
		officers = append(officers, id)
	}
	topK := 0
	for _, id := range truncate(rank(officers, func(id string) int { return officerCounts[id] }), s.config.ConcentrationTopK) {
		topK += officerCounts[id]
	}
	share := float64(topK) / float64(n) * 100
	ri.Concentration = Concentration{
		TopK:           s.config.ConcentrationTopK,
		TopKPercentage: values.Round(share, 2),
		IsConcentrated: share > s.config.ConcentrationThreshold,
		UniqueOfficers: len(officerCounts),
	}

	ri.IssueDiversity = Diversity{
		UniqueTypes: len(typeCounts),
		Score:       values.Percent(len(typeCounts), n),
		Assessment:  "Low diversity",
	}
	if len(typeCounts) > 15 {
		ri.IssueDiversity.Assessment = "High diversity"
	}

	w := s.config.SeverityWeight
	composite := w*summary.SeverityDistribution.Score + (1-w)*share
	ri.Composite = CompositeRisk{Score: values.Round(composite, 2), Level: riskLevel(composite)}
	return ri
}

func assessCriticalMass(score float64) string {
	switch {
	case score >= 75:
		return "Critical - Systemic compliance failure"
	case score >= 50:
		return "Severe - Immediate executive attention required"
	case score >= 30:
		return "Elevated - Management intervention needed"
	case score >= 15:
		return "Moderate - Enhanced monitoring required"
	default:
		return "Normal - Routine oversight sufficient"
	}
}

func riskLevel(score float64) string {
	switch {
	case score >= 75:
		return "critical"
	case score >= 50:
		return "high"
	case score >= 25:
		return "medium"
	default:
		return "low"
	}
}

// rank orders keys by count descending, then key ascending.
func rank(keys []string, count func(string) int) []string {
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := count(keys[i]), count(keys[j])
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func truncate(keys []string, k int) []string {
	if k >= 0 && len(keys) > k {
		return keys[:k]
	}
	return keys
}

func addRelation(m map[string]map[string]bool, from, to string) {
	if m[from] == nil {
		m[from] = make(map[string]bool)
	}
	m[from][to] = true
}
