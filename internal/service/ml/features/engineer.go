package features

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/deviation"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

// Config holds feature settings
type Config struct {
	MaxTerms    int
	MinDF       int
	MaxDFRatio  float64
	TopTypes    int
	TopOfficers int
}

// DefaultConfig returns the stock feature settings
func DefaultConfig() Config {
	return Config{
		MaxTerms:    100,
		MinDF:       2,
		MaxDFRatio:  0.8,
		TopTypes:    20,
		TopOfficers: 20,
	}
}

// Schema is the fitted feature layout; every vector it produces has Dim()
// columns regardless of the data.
type Schema struct {
	config     Config
	vocab      *vocabulary
	types      []deviation.Type
	typeIndex  map[deviation.Type]int
	officers   []string
	offIndex   map[string]int
	maxDescLen int
}

// Engineer fits schemas over deviation populations
type Engineer struct {
	logger *zap.Logger
	config Config
}

// NewEngineer creates a new feature engineer
func NewEngineer(logger *zap.Logger, config Config) *Engineer {
	return &Engineer{
		logger: logger.Named("features"),
		config: config,
	}
}

// Fit learns the vocabulary and the top types and officers.
func (e *Engineer) Fit(devs []deviation.Deviation) *Schema {
	docs := make([]string, len(devs))
	typeCounts := make(map[string]int)
	officerCounts := make(map[string]int)
	maxLen := 1
	for i, d := range devs {
		docs[i] = d.Description
		typeCounts[string(d.Type)]++
		officerCounts[d.OfficerID]++
		if l := utf8.RuneCountInString(d.Description); l > maxLen {
			maxLen = l
		}
	}

	s := &Schema{
		config:     e.config,
		vocab:      fitVocabulary(docs, e.config.MaxTerms, e.config.MinDF, e.config.MaxDFRatio),
		typeIndex:  make(map[deviation.Type]int),
		offIndex:   make(map[string]int),
		maxDescLen: maxLen,
	}
	for i, t := range topK(typeCounts, e.config.TopTypes) {
		s.types = append(s.types, deviation.Type(t))
		s.typeIndex[deviation.Type(t)] = i
	}
	for i, o := range topK(officerCounts, e.config.TopOfficers) {
		s.officers = append(s.officers, o)
		s.offIndex[o] = i
	}

	e.logger.Info("Feature schema fitted",
		zap.Int("deviations", len(devs)),
		zap.Int("terms", len(s.vocab.terms)),
		zap.Int("types", len(s.types)),
		zap.Int("officers", len(s.officers)),
		zap.Int("dimensions", s.Dim()))

	return s
}

// FitTransform fits a schema and encodes the same population.
func (e *Engineer) FitTransform(devs []deviation.Deviation) (*Schema, [][]float64) {
	s := e.Fit(devs)
	return s, s.Transform(devs)
}

// Dim is the vector width.
func (s *Schema) Dim() int {
	return s.config.MaxTerms + s.config.TopTypes + 1 + 1 + 2 + s.config.TopOfficers + 1 + 1
}

func (s *Schema) typeOffset() int     { return s.config.MaxTerms }
func (s *Schema) severityOffset() int { return s.typeOffset() + s.config.TopTypes + 1 }
func (s *Schema) temporalOffset() int { return s.severityOffset() + 1 }
func (s *Schema) officerOffset() int  { return s.temporalOffset() + 2 }
func (s *Schema) lengthOffset() int   { return s.officerOffset() + s.config.TopOfficers + 1 }

// Transform encodes each deviation. Unknown types and officers land in the
// overflow column; unknown terms contribute nothing.
func (s *Schema) Transform(devs []deviation.Deviation) [][]float64 {
	out := make([][]float64, len(devs))
	for i, d := range devs {
		out[i] = s.vector(d)
	}
	return out
}

func (s *Schema) vector(d deviation.Deviation) []float64 {
	v := make([]float64, s.Dim())

	s.vocab.weights(d.Description, v[:len(s.vocab.terms)])

	if i, ok := s.typeIndex[d.Type]; ok {
		v[s.typeOffset()+i] = 1
	} else {
		v[s.typeOffset()+s.config.TopTypes] = 1
	}

	sev := d.Severity
	if !sev.IsValid() {
		sev = values.SeverityLow
	}
	v[s.severityOffset()] = float64(sev.Weight()) / 4

	hour, day := 0.5, 0.5
	if !d.DetectedAt.IsZero() {
		hour = float64(d.DetectedAt.Hour()) / 24
		day = float64((int(d.DetectedAt.Weekday())+6)%7) / 7
	}
	v[s.temporalOffset()] = hour
	v[s.temporalOffset()+1] = day

	if i, ok := s.offIndex[d.OfficerID]; ok {
		v[s.officerOffset()+i] = 1
	} else {
		v[s.officerOffset()+s.config.TopOfficers] = 1
	}

	length := float64(utf8.RuneCountInString(d.Description)) / float64(s.maxDescLen)
	if length > 1 {
		length = 1
	}
	v[s.lengthOffset()] = length

	return v
}

// FeatureNames labels every column.
func (s *Schema) FeatureNames() []string {
	names := make([]string, 0, s.Dim())
	for i := 0; i < s.config.MaxTerms; i++ {
		if i < len(s.vocab.terms) {
			names = append(names, "tfidf_"+s.vocab.terms[i])
		} else {
			names = append(names, fmt.Sprintf("tfidf_unused_%d", i))
		}
	}
	for i := 0; i < s.config.TopTypes; i++ {
		if i < len(s.types) {
			names = append(names, "type_"+string(s.types[i]))
		} else {
			names = append(names, fmt.Sprintf("type_unused_%d", i))
		}
	}
	names = append(names, "type_other", "severity_score", "hour_normalized", "day_of_week_normalized")
	for i := 0; i < s.config.TopOfficers; i++ {
		if i < len(s.officers) {
			names = append(names, "officer_"+s.officers[i])
		} else {
			names = append(names, fmt.Sprintf("officer_unused_%d", i))
		}
	}
	return append(names, "officer_other", "description_length")
}

// Terms returns the fitted vocabulary.
func (s *Schema) Terms() []string {
	return append([]string(nil), s.vocab.terms...)
}

func topK(counts map[string]int, k int) []string {
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
