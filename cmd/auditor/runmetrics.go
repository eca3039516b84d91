package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vedangtiwari01-dev/vs-demo/internal/service/detection"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/pipeline"
)

// runMetrics describes the last CLI run for the node-exporter textfile
// collector. The registry is private and flushed to disk on exit.
type runMetrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	duration    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
	records     *prometheus.GaugeVec
	deviations  *prometheus.GaugeVec
	anomalies   prometheus.Gauge
	clusters    prometheus.Gauge
	compression prometheus.Gauge
	quality     prometheus.Gauge
	mlApplied   prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auditor",
			Subsystem: "run",
			Name:      "total",
			Help:      "Runs by command and result",
		}, []string{"command", "result"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of the last run",
		}, []string{"command"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "run",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}, []string{"command"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "input",
			Name:      "records",
			Help:      "Input records of the last run by disposition",
		}, []string{"disposition"}),
		deviations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "deviations",
			Name:      "count",
			Help:      "Deviations of the last run by pipeline stage",
		}, []string{"stage"}),
		anomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "ml",
			Name:      "anomalies",
			Help:      "Deviations flagged anomalous in the last run",
		}),
		clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "ml",
			Name:      "clusters",
			Help:      "Clusters found in the last run",
		}),
		compression: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "ml",
			Name:      "compression_ratio",
			Help:      "Cleaned population size over sample size",
		}),
		quality: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "cleaning",
			Name:      "quality_score",
			Help:      "Data-quality score of the last run, 0 to 100",
		}),
		mlApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auditor",
			Subsystem: "ml",
			Name:      "applied",
			Help:      "1 when the ML stages ran in the last run",
		}),
	}

	m.registry.MustRegister(
		m.runs, m.duration, m.lastSuccess, m.records, m.deviations,
		m.anomalies, m.clusters, m.compression, m.quality, m.mlApplied,
	)
	return m
}

func (m *runMetrics) observeFailure(command string) {
	m.runs.WithLabelValues(command, "error").Inc()
}

func (m *runMetrics) observeDetection(res *detection.Result, rejected int, elapsed time.Duration) {
	m.succeeded("detect", elapsed)
	m.records.WithLabelValues("rejected").Set(float64(rejected))
	m.records.WithLabelValues("cases_evaluated").Set(float64(res.CasesEvaluated))
	m.records.WithLabelValues("cases_failed").Set(float64(len(res.Failures)))
	m.deviations.WithLabelValues("detected").Set(float64(len(res.Deviations)))
}

func (m *runMetrics) observeAnalysis(res *pipeline.Result, elapsed time.Duration) {
	m.succeeded("analyze", elapsed)
	if res.Detection != nil {
		m.records.WithLabelValues("cases_evaluated").Set(float64(res.Detection.CasesEvaluated))
		m.records.WithLabelValues("cases_failed").Set(float64(len(res.Detection.Failures)))
		m.deviations.WithLabelValues("detected").Set(float64(len(res.Detection.Deviations)))
	}

	payload := res.Payload
	dq := payload.DataQuality
	m.records.WithLabelValues("rejected").Set(float64(dq.InputRejected))
	m.deviations.WithLabelValues("received").Set(float64(dq.OriginalCount))
	m.deviations.WithLabelValues("cleaned").Set(float64(dq.FinalCount))
	m.deviations.WithLabelValues("forwarded").Set(float64(len(payload.Deviations)))
	m.quality.Set(dq.Score)

	ml := payload.MLSummary
	if ml == nil || !ml.Applied {
		m.mlApplied.Set(0)
		m.anomalies.Set(0)
		m.clusters.Set(0)
		m.compression.Set(1)
		return
	}
	m.mlApplied.Set(1)
	m.anomalies.Set(float64(ml.AnomaliesDetected))
	m.clusters.Set(float64(ml.ClustersFound))
	m.compression.Set(ml.CompressionRatio)
}

func (m *runMetrics) succeeded(command string, elapsed time.Duration) {
	m.runs.WithLabelValues(command, "success").Inc()
	m.duration.WithLabelValues(command).Set(elapsed.Seconds())
	m.lastSuccess.WithLabelValues(command).SetToCurrentTime()
}

func (m *runMetrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
