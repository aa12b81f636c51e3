package history

import (
	"fmt"
	"sort"
)

// Classification buckets a unit's recent stability
type Classification string

const (
	StablePass Classification = "stable-pass"
	StableFail Classification = "stable-fail"
	Flaky      Classification = "flaky"
)

const (
	// DefaultThreshold is the instability ratio above which a unit is
	// classified flaky
	DefaultThreshold = 0.2

	// DefaultWindow is the number of recent records considered
	DefaultWindow = 10
)

// FlakinessScore is the derived stability signal for one unit. It is a
// pure function of the record sequence it was computed from and is never
// persisted as source of truth.
type FlakinessScore struct {
	TestID           string         `json:"test_id"`
	InstabilityRatio float64        `json:"instability_ratio"`
	Classification   Classification `json:"classification"`
	SampleSize       int            `json:"sample_size"`
}

// Analyzer computes flakiness scores from a store's record sequences
type Analyzer struct {
	store     *Store
	threshold float64
	window    int
}

// NewAnalyzer creates an analyzer over the given store. A zero threshold
// or window selects the defaults.
func NewAnalyzer(store *Store, threshold float64, window int) (*Analyzer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Analyzer{
		store:     store,
		threshold: threshold,
		window:    window,
	}, nil
}

// Analyze computes the flakiness score for one unit over the last
// window-many records
func (a *Analyzer) Analyze(testID string) (FlakinessScore, error) {
	records := a.store.Records(testID, Query{Limit: a.window})
	if len(records) == 0 {
		return FlakinessScore{}, fmt.Errorf("no history for test %q", testID)
	}
	return Score(testID, records, a.threshold), nil
}

// AnalyzeAll computes scores for every unit in the store, sorted by
// instability ratio descending (ties by id for a stable order)
func (a *Analyzer) AnalyzeAll() []FlakinessScore {
	ids := a.store.TestIDs()
	scores := make([]FlakinessScore, 0, len(ids))
	for _, id := range ids {
		score, err := a.Analyze(id)
		if err != nil {
			continue
		}
		scores = append(scores, score)
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].InstabilityRatio != scores[j].InstabilityRatio {
			return scores[i].InstabilityRatio > scores[j].InstabilityRatio
		}
		return scores[i].TestID < scores[j].TestID
	})
	return scores
}

// Score classifies a record sequence. The instability ratio is the
// fraction of consecutive records whose status changed: transitions
// divided by K-1 for K records. A single record carries no ratio and
// classifies directly from its status. Recomputing over the same
// sequence always yields the same score.
func Score(testID string, records []Record, threshold float64) FlakinessScore {
	k := len(records)
	score := FlakinessScore{
		TestID:     testID,
		SampleSize: k,
	}
	if k == 0 {
		score.Classification = StableFail
		return score
	}

	last := records[k-1].Status
	if k < 2 {
		score.Classification = classify(last.IsPass())
		return score
	}

	transitions := 0
	for i := 1; i < k; i++ {
		if records[i].Status != records[i-1].Status {
			transitions++
		}
	}
	score.InstabilityRatio = float64(transitions) / float64(k-1)

	switch {
	case transitions == 0:
		score.Classification = classify(last.IsPass())
	case score.InstabilityRatio > threshold:
		score.Classification = Flaky
	default:
		score.Classification = classify(majorityPass(records))
	}
	return score
}

func classify(pass bool) Classification {
	if pass {
		return StablePass
	}
	return StableFail
}

// majorityPass reports whether passing runs dominate the window, with
// ties breaking toward the most recent status
func majorityPass(records []Record) bool {
	passes := 0
	for _, rec := range records {
		if rec.Status.IsPass() {
			passes++
		}
	}
	fails := len(records) - passes
	if passes == fails {
		return records[len(records)-1].Status.IsPass()
	}
	return passes > fails
}
