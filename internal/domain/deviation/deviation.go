package deviation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/values"
)

// namespace for name-based deviation ids
var idNamespace = uuid.MustParse("6f1c2d4e-8a1b-4c3d-9e5f-7a8b9c0d1e2f")

// Deviation is a detected violation of a compliance rule
type Deviation struct {
	ID               string          `json:"id"`
	CaseID           string          `json:"case_id"`
	OfficerID        string          `json:"officer_id"`
	Type             Type            `json:"deviation_type"`
	Severity         values.Severity `json:"severity"`
	Description      string          `json:"description"`
	ExpectedBehavior string          `json:"expected_behavior,omitempty"`
	ActualBehavior   string          `json:"actual_behavior,omitempty"`
	RuleID           string          `json:"rule_id,omitempty"`
	Note             string          `json:"note,omitempty"`
	DetectedAt       time.Time       `json:"detected_at"`
	DuplicateCount   int             `json:"duplicate_count"`
}

// NewID derives a stable id from the deviation's identifying content, so
// identical input produces identical ids across runs.
func NewID(caseID string, t Type, description string, ordinal int) string {
	name := fmt.Sprintf("%s|%s|%s|%d", caseID, t, description, ordinal)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// Annotated is a deviation carrying per-run ML annotations
type Annotated struct {
	Deviation
	Cluster      string   `json:"cluster,omitempty"`
	IsAnomaly    bool     `json:"is_anomaly"`
	AnomalyScore *float64 `json:"anomaly_score,omitempty"`
}

// NoiseCluster labels points that met no density criterion.
const NoiseCluster = "noise"

// ClusterLabel renders a numeric cluster label.
func ClusterLabel(label int) string {
	if label < 0 {
		return NoiseCluster
	}
	return fmt.Sprintf("cluster_%d", label)
}
