package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: AUDITOR_ANALYSIS__TARGET_SAMPLE_SIZE sets
// analysis.target_sample_size.
const EnvPrefix = "AUDITOR_"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"oneof=development staging production test"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	Detection DetectionConfig `koanf:"detection"`
	Cleaning  CleaningConfig  `koanf:"cleaning"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type DetectionConfig struct {
	// Workers bounds concurrent case evaluation; 0 means one per CPU.
	Workers          int                    `koanf:"workers" validate:"gte=0"`
	MinTotalDuration time.Duration          `koanf:"min_total_duration" validate:"gte=0"`
	MaxStepGap       time.Duration          `koanf:"max_step_gap" validate:"gte=0"`
	StepCatalog      []StepAliasConfig      `koanf:"step_catalog" validate:"dive"`
	ApprovalPolicies []ApprovalPolicyConfig `koanf:"approval_policies" validate:"dive"`
}

type StepAliasConfig struct {
	Name    string   `koanf:"name" validate:"required"`
	Aliases []string `koanf:"aliases"`
}

type ApprovalPolicyConfig struct {
	Name     string   `koanf:"name" validate:"required"`
	StepName string   `koanf:"step_name" validate:"required"`
	Triggers []string `koanf:"triggers"`
	Keywords []string `koanf:"keywords" validate:"min=1"`
	Baseline bool     `koanf:"baseline"`
}

type CleaningConfig struct {
	DedupePrefixLength   int     `koanf:"dedupe_prefix_length" validate:"gte=1"`
	MinDescriptionLength int     `koanf:"min_description_length" validate:"gte=0"`
	DuplicateWeight      float64 `koanf:"duplicate_weight" validate:"gte=0"`
	FixWeight            float64 `koanf:"fix_weight" validate:"gte=0"`
	MissingWeight        float64 `koanf:"missing_weight" validate:"gte=0"`
}

type AnalysisConfig struct {
	ActivationThreshold int `koanf:"activation_threshold" validate:"gte=1"`

	MaxTerms    int     `koanf:"max_terms" validate:"gte=0"`
	MinDF       int     `koanf:"min_df" validate:"gte=1"`
	MaxDF       float64 `koanf:"max_df" validate:"gt=0,lte=1"`
	TopTypes    int     `koanf:"top_types" validate:"gte=0"`
	TopOfficers int     `koanf:"top_officers" validate:"gte=0"`

	DBSCANEps                 float64 `koanf:"dbscan_eps" validate:"gt=0"`
	DBSCANMinSamples          int     `koanf:"dbscan_min_samples" validate:"gte=1"`
	MinClusters               int     `koanf:"min_clusters" validate:"gte=1"`
	MaxClusters               int     `koanf:"max_clusters" validate:"gte=1"`
	FallbackK                 int     `koanf:"fallback_k" validate:"gte=2"`
	KMeansInit                int     `koanf:"kmeans_init" validate:"gte=1"`
	KMeansMaxIter             int     `koanf:"kmeans_max_iter" validate:"gte=1"`
	RepresentativesPerCluster int     `koanf:"representatives_per_cluster" validate:"gte=1"`

	Contamination  float64 `koanf:"contamination" validate:"gt=0,lte=0.5"`
	Trees          int     `koanf:"trees" validate:"gte=1"`
	MaxTreeSamples int     `koanf:"max_tree_samples" validate:"gte=2"`

	TargetSampleSize   int `koanf:"target_sample_size" validate:"gte=1"`
	SoftCap            int `koanf:"soft_cap" validate:"gte=0"`
	MaxOfficerBackfill int `koanf:"max_officer_backfill" validate:"gte=0"`

	Seed int64 `koanf:"seed"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	ServiceName   string        `koanf:"service_name" validate:"required"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplingRate  float64       `koanf:"sampling_rate" validate:"gte=0,lte=1"`
	ExportTimeout time.Duration `koanf:"export_timeout" validate:"gte=0"`
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gt=0"`
}

type MetricsConfig struct {
	// TextfilePath, when set, receives a Prometheus textfile after each run.
	TextfilePath string `koanf:"textfile_path"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Version:     "dev",
		Environment: "production",
		LogLevel:    "info",
		Detection: DetectionConfig{
			MinTotalDuration: time.Hour,
			MaxStepGap:       7 * 24 * time.Hour,
		},
		Cleaning: CleaningConfig{
			DedupePrefixLength:   100,
			MinDescriptionLength: 10,
			DuplicateWeight:      0.25,
			FixWeight:            0.25,
			MissingWeight:        0.5,
		},
		Analysis: AnalysisConfig{
			ActivationThreshold:       10,
			MaxTerms:                  100,
			MinDF:                     2,
			MaxDF:                     0.8,
			TopTypes:                  20,
			TopOfficers:               20,
			DBSCANEps:                 0.5,
			DBSCANMinSamples:          5,
			MinClusters:               2,
			MaxClusters:               20,
			FallbackK:                 10,
			KMeansInit:                10,
			KMeansMaxIter:             300,
			RepresentativesPerCluster: 5,
			Contamination:             0.1,
			Trees:                     100,
			MaxTreeSamples:            256,
			TargetSampleSize:          75,
			SoftCap:                   100,
			MaxOfficerBackfill:        5,
			Seed:                      42,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "compliance-auditor",
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			FlushInterval: 5 * time.Second,
		},
	}
}

// Load layers defaults, the optional YAML file at path and AUDITOR_
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.NewConfigurationError("config_file", err.Error()).WithCause(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.NewConfigurationError("config", "cannot decode configuration").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and cross-field constraints. The error names
// the offending key.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewConfigurationError(keyOf(fe.Namespace()),
				fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value())).WithCause(err)
		}
		return errors.NewConfigurationError("config", err.Error()).WithCause(err)
	}

	if c.Analysis.MinClusters > c.Analysis.MaxClusters {
		return errors.NewConfigurationError("analysis.min_clusters", "cannot exceed analysis.max_clusters")
	}
	if c.Cleaning.DuplicateWeight+c.Cleaning.FixWeight+c.Cleaning.MissingWeight <= 0 {
		return errors.NewConfigurationError("cleaning.weights", "must sum to more than zero")
	}
	return nil
}

// keyOf strips the root type from a validator namespace.
func keyOf(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
