package main

import (
	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/config"
	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/telemetry"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/cleaning"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/detection"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/pipeline"
)

// pipelineConfig maps the loaded configuration onto stage settings. Empty
// step catalog and policy lists keep the built-in tables.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.ActivationThreshold = cfg.Analysis.ActivationThreshold

	det := cfg.Detection
	if det.Workers > 0 {
		pc.Detection.Workers = det.Workers
	}
	pc.Detection.MinTotalDuration = det.MinTotalDuration
	pc.Detection.MaxStepGap = det.MaxStepGap
	if len(det.StepCatalog) > 0 {
		pc.Detection.StepCatalog = make(detection.StepCatalog, 0, len(det.StepCatalog))
		for _, s := range det.StepCatalog {
			pc.Detection.StepCatalog = append(pc.Detection.StepCatalog, detection.StepAlias{
				Name:    s.Name,
				Aliases: s.Aliases,
			})
		}
	}
	if len(det.ApprovalPolicies) > 0 {
		pc.Detection.ApprovalPolicies = make(detection.PolicyTable, 0, len(det.ApprovalPolicies))
		for _, p := range det.ApprovalPolicies {
			pc.Detection.ApprovalPolicies = append(pc.Detection.ApprovalPolicies, detection.ApprovalPolicy{
				Name:     p.Name,
				StepName: p.StepName,
				Triggers: p.Triggers,
				Keywords: p.Keywords,
				Baseline: p.Baseline,
			})
		}
	}

	pc.Cleaning.DedupePrefixLength = cfg.Cleaning.DedupePrefixLength
	pc.Cleaning.MinDescriptionLength = cfg.Cleaning.MinDescriptionLength
	pc.Cleaning.Weights = cleaning.Weights{
		Duplicates: cfg.Cleaning.DuplicateWeight,
		Fixes:      cfg.Cleaning.FixWeight,
		Missing:    cfg.Cleaning.MissingWeight,
	}

	an := cfg.Analysis
	pc.Features.MaxTerms = an.MaxTerms
	pc.Features.MinDF = an.MinDF
	pc.Features.MaxDFRatio = an.MaxDF
	pc.Features.TopTypes = an.TopTypes
	pc.Features.TopOfficers = an.TopOfficers

	pc.Clustering.Eps = an.DBSCANEps
	pc.Clustering.MinSamples = an.DBSCANMinSamples
	pc.Clustering.MinClusters = an.MinClusters
	pc.Clustering.MaxClusters = an.MaxClusters
	pc.Clustering.FallbackK = an.FallbackK
	pc.Clustering.KMeansInit = an.KMeansInit
	pc.Clustering.KMeansMaxIter = an.KMeansMaxIter
	pc.Clustering.RepresentativesPerCluster = an.RepresentativesPerCluster
	pc.Clustering.Seed = an.Seed

	pc.Anomaly.Contamination = an.Contamination
	pc.Anomaly.Trees = an.Trees
	pc.Anomaly.MaxSamples = an.MaxTreeSamples
	pc.Anomaly.Seed = an.Seed

	pc.Sampling.TargetSampleSize = an.TargetSampleSize
	pc.Sampling.SoftCap = an.SoftCap
	pc.Sampling.MaxOfficerBackfill = an.MaxOfficerBackfill
	return pc
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	serviceVersion := cfg.Version
	if serviceVersion == "" || serviceVersion == "dev" {
		serviceVersion = version
	}
	return telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		FlushInterval:  cfg.Telemetry.FlushInterval,
	}
}
