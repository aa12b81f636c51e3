package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-infra/scenario-acceptor/types"
)

func recordsFromStatuses(statuses ...types.Status) []Record {
	base := time.Now().Add(-time.Duration(len(statuses)) * time.Hour)
	records := make([]Record, 0, len(statuses))
	for i, status := range statuses {
		records = append(records, Record{
			TestID:    "unit",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Status:    status,
		})
	}
	return records
}

func TestScoreInstabilityRatio(t *testing.T) {
	tests := []struct {
		name           string
		statuses       []types.Status
		expectedRatio  float64
		expectedClass  Classification
		expectedSample int
	}{
		{
			name: "Alternating heavily is flaky",
			statuses: []types.Status{
				types.StatusPassed, types.StatusPassed, types.StatusFailed,
				types.StatusPassed, types.StatusFailed,
			},
			expectedRatio:  0.75, // 3 transitions over 4 adjacent pairs
			expectedClass:  Flaky,
			expectedSample: 5,
		},
		{
			name: "All passing is stable-pass",
			statuses: []types.Status{
				types.StatusPassed, types.StatusPassed, types.StatusPassed,
			},
			expectedRatio:  0,
			expectedClass:  StablePass,
			expectedSample: 3,
		},
		{
			name: "All failing is stable-fail",
			statuses: []types.Status{
				types.StatusFailed, types.StatusFailed,
			},
			expectedRatio:  0,
			expectedClass:  StableFail,
			expectedSample: 2,
		},
		{
			name: "One transition in ten is below threshold",
			statuses: []types.Status{
				types.StatusFailed, types.StatusPassed, types.StatusPassed,
				types.StatusPassed, types.StatusPassed, types.StatusPassed,
				types.StatusPassed, types.StatusPassed, types.StatusPassed,
				types.StatusPassed,
			},
			expectedRatio:  1.0 / 9.0,
			expectedClass:  StablePass, // majority passing
			expectedSample: 10,
		},
		{
			name: "Errors count as non-passing",
			statuses: []types.Status{
				types.StatusPassed, types.StatusError, types.StatusPassed,
				types.StatusTimeout, types.StatusPassed,
			},
			expectedRatio:  1.0,
			expectedClass:  Flaky,
			expectedSample: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score("unit", recordsFromStatuses(tt.statuses...), DefaultThreshold)
			assert.InDelta(t, tt.expectedRatio, score.InstabilityRatio, 1e-9)
			assert.Equal(t, tt.expectedClass, score.Classification)
			assert.Equal(t, tt.expectedSample, score.SampleSize)
		})
	}
}

func TestScoreSingleRecord(t *testing.T) {
	pass := Score("unit", recordsFromStatuses(types.StatusPassed), DefaultThreshold)
	assert.Equal(t, StablePass, pass.Classification)
	assert.Equal(t, 0.0, pass.InstabilityRatio, "a single record carries no ratio")
	assert.Equal(t, 1, pass.SampleSize)

	fail := Score("unit", recordsFromStatuses(types.StatusFailed), DefaultThreshold)
	assert.Equal(t, StableFail, fail.Classification)
}

func TestScoreMajorityTieBreaksToMostRecent(t *testing.T) {
	// Two passes, two fails, one transition: ratio 1/3 stays under a
	// threshold of 0.5, so the majority rule decides
	statuses := []types.Status{
		types.StatusPassed, types.StatusPassed,
		types.StatusFailed, types.StatusFailed,
	}
	score := Score("unit", recordsFromStatuses(statuses...), 0.5)
	assert.Equal(t, StableFail, score.Classification,
		"an even split should break toward the most recent status")

	reversed := []types.Status{
		types.StatusFailed, types.StatusFailed,
		types.StatusPassed, types.StatusPassed,
	}
	score = Score("unit", recordsFromStatuses(reversed...), 0.5)
	assert.Equal(t, StablePass, score.Classification)
}

func TestScoreIsDeterministic(t *testing.T) {
	records := recordsFromStatuses(
		types.StatusPassed, types.StatusFailed, types.StatusPassed,
		types.StatusPassed, types.StatusFailed,
	)

	first := Score("unit", records, DefaultThreshold)
	second := Score("unit", records, DefaultThreshold)
	assert.Equal(t, first, second, "recomputing over the same sequence must yield the same score")
}

func TestAnalyzerDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	a, err := NewAnalyzer(s, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, a.threshold)
	assert.Equal(t, DefaultWindow, a.window)

	_, err = NewAnalyzer(nil, 0, 0)
	require.Error(t, err)
}

func TestAnalyzeUsesRecentWindow(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now().Add(-20 * time.Hour)

	// Ancient flapping followed by a long stable tail
	var results []types.ExecutionResult
	for i := 0; i < 6; i++ {
		status := types.StatusPassed
		if i%2 == 0 {
			status = types.StatusFailed
		}
		results = append(results, resultAt("unit", status, base.Add(time.Duration(i)*time.Hour)))
	}
	for i := 6; i < 16; i++ {
		results = append(results, resultAt("unit", types.StatusPassed, base.Add(time.Duration(i)*time.Hour)))
	}
	require.NoError(t, s.AppendRun(results))

	a, err := NewAnalyzer(s, DefaultThreshold, 10)
	require.NoError(t, err)

	score, err := a.Analyze("unit")
	require.NoError(t, err)
	assert.Equal(t, StablePass, score.Classification,
		"flapping outside the window should not taint the score")
	assert.Equal(t, 10, score.SampleSize)
}

func TestAnalyzeNoHistory(t *testing.T) {
	s, _ := newTestStore(t)
	a, err := NewAnalyzer(s, 0, 0)
	require.NoError(t, err)

	_, err = a.Analyze("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history")
}

func TestAnalyzeAllSortedByInstability(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now().Add(-5 * time.Hour)

	appendStatuses := func(id string, statuses ...types.Status) {
		var results []types.ExecutionResult
		for i, status := range statuses {
			results = append(results, resultAt(id, status, base.Add(time.Duration(i)*time.Hour)))
		}
		require.NoError(t, s.AppendRun(results))
	}

	appendStatuses("steady", types.StatusPassed, types.StatusPassed, types.StatusPassed)
	appendStatuses("wobbly", types.StatusPassed, types.StatusFailed, types.StatusPassed)
	appendStatuses("broken", types.StatusFailed, types.StatusFailed, types.StatusFailed)

	a, err := NewAnalyzer(s, 0, 0)
	require.NoError(t, err)

	scores := a.AnalyzeAll()
	require.Len(t, scores, 3)
	assert.Equal(t, "wobbly", scores[0].TestID, "most unstable should sort first")
	assert.Equal(t, Flaky, scores[0].Classification)

	// The two stable units tie at ratio zero and sort by id
	assert.Equal(t, "broken", scores[1].TestID)
	assert.Equal(t, "steady", scores[2].TestID)
}
