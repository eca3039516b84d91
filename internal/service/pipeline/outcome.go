package pipeline

import (
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/anomaly"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/clustering"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/ml/sampling"
)

// Outcome is either Skipped or Applied.
type Outcome interface {
	outcome()
}

// Skipped means the ML stages did not run and the full cleaned set was
// forwarded.
type Skipped struct {
	Reason  string
	Count   int
	Minimum int
}

// Applied carries the annotations of a full ML run
type Applied struct {
	FeatureCount int
	Clusters     *clustering.Result
	Anomalies    *anomaly.Result
	Analysis     anomaly.Analysis
	Sample       *sampling.Result
}

func (Skipped) outcome() {}
func (Applied) outcome() {}
