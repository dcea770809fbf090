package ledger

import (
	"fmt"
	"sort"

	"github.com/NFTX-project/accounting/pkg/types/numbers"
)

type AnomalyKind string

const (
	// AnomalyKind_OversizedWithdrawal: a withdrawal larger than the recorded stake.
	// Magnitude is the shortfall.
	AnomalyKind_OversizedWithdrawal AnomalyKind = "OversizedWithdrawal"
	// AnomalyKind_PortionOverflow: a computed portion above 1.0. Magnitude is
	// the amount above the unit.
	AnomalyKind_PortionOverflow AnomalyKind = "PortionOverflow"
	// AnomalyKind_OverDistribution: rewards for one fee receipt summed to more
	// than the receipt. Magnitude is the excess.
	AnomalyKind_OverDistribution AnomalyKind = "OverDistribution"
)

var AnomalyKinds = []AnomalyKind{
	AnomalyKind_OversizedWithdrawal,
	AnomalyKind_PortionOverflow,
	AnomalyKind_OverDistribution,
}

// Anomaly is a non-fatal inconsistency found while replaying. It carries
// enough context to find and audit the event that caused it.
type Anomaly struct {
	Kind      AnomalyKind    `json:"kind"`
	Sequence  int            `json:"sequence"`
	Time      uint64         `json:"time"`
	Vault     string         `json:"vault"`
	User      string         `json:"user,omitempty"`
	Magnitude numbers.Amount `json:"magnitude"`
	Message   string         `json:"message"`
}

func (a *Anomaly) String() string {
	return fmt.Sprintf("%s at event %d (time %d) vault=%s user=%s magnitude=%s: %s",
		a.Kind, a.Sequence, a.Time, a.Vault, a.User, a.Magnitude.String(), a.Message)
}

// AnomalyLog collects anomalies for a single run. It is not safe for
// concurrent use; parallel replays keep one log per vault and merge them.
type AnomalyLog struct {
	anomalies []*Anomaly
}

func NewAnomalyLog() *AnomalyLog {
	return &AnomalyLog{
		anomalies: make([]*Anomaly, 0),
	}
}

func (al *AnomalyLog) Record(a *Anomaly) {
	al.anomalies = append(al.anomalies, a)
}

func (al *AnomalyLog) All() []*Anomaly {
	return al.anomalies
}

func (al *AnomalyLog) Len() int {
	return len(al.anomalies)
}

func (al *AnomalyLog) ByKind(kind AnomalyKind) []*Anomaly {
	out := make([]*Anomaly, 0)
	for _, a := range al.anomalies {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// CountByKind returns the number of anomalies of every kind, including zeros.
func (al *AnomalyLog) CountByKind() map[AnomalyKind]int {
	counts := make(map[AnomalyKind]int, len(AnomalyKinds))
	for _, k := range AnomalyKinds {
		counts[k] = 0
	}
	for _, a := range al.anomalies {
		counts[a.Kind]++
	}
	return counts
}

// mergeAnomalyLogs combines per-vault logs into event order. Anomalies raised
// by the same event keep the order they were recorded in.
func mergeAnomalyLogs(logs []*AnomalyLog) *AnomalyLog {
	merged := NewAnomalyLog()
	for _, l := range logs {
		merged.anomalies = append(merged.anomalies, l.anomalies...)
	}
	sort.SliceStable(merged.anomalies, func(i, j int) bool {
		return merged.anomalies[i].Sequence < merged.anomalies[j].Sequence
	})
	return merged
}
