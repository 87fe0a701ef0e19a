package eval

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Daham-Mustaf/semantic-policy-generation/pipeline"
)

func sampleResults() []CaseResult {
	return []CaseResult{
		{
			CaseID:   "basic-access",
			Expected: pipeline.StatusSuccess,
			Outcome: &pipeline.Outcome{
				Status:   pipeline.StatusSuccess,
				Attempts: []pipeline.Attempt{{Number: 1}, {Number: 2}},
			},
			Duration: 1200 * time.Millisecond,
			Match:    true,
		},
		{
			CaseID:   "temporal-conflict",
			Expected: pipeline.StatusRejected,
			Outcome:  &pipeline.Outcome{Status: pipeline.StatusRejected},
			Duration: 400 * time.Millisecond,
			Match:    true,
		},
		{
			CaseID:   "flaky-repair",
			Expected: pipeline.StatusSuccess,
			Outcome: &pipeline.Outcome{
				Status:   pipeline.StatusFailed,
				Attempts: []pipeline.Attempt{{Number: 1}, {Number: 2}, {Number: 3}, {Number: 4}},
			},
			Duration: 2 * time.Second,
			Match:    false,
		},
		{
			CaseID:   "unasserted",
			Outcome:  &pipeline.Outcome{Status: pipeline.StatusNeedsInput},
			Duration: 300 * time.Millisecond,
			Match:    true,
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Asserted, "the unasserted case carries no expectation")
	assert.Equal(t, 2, s.Matched)
	assert.Equal(t, 1, s.ByStatus[pipeline.StatusSuccess])
	assert.Equal(t, 1, s.ByStatus[pipeline.StatusRejected])
	assert.Equal(t, 1, s.ByStatus[pipeline.StatusFailed])
	assert.Equal(t, 1, s.ByStatus[pipeline.StatusNeedsInput])
	// Two runs reached the loop with 2 and 4 attempts.
	assert.InDelta(t, 3.0, s.MeanAttempts, 0.001)
	assert.Equal(t, 3900*time.Millisecond, s.TotalDuration)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.MeanAttempts)
}

func TestRenderTable(t *testing.T) {
	var buf strings.Builder
	RenderTable(&buf, sampleResults())
	out := buf.String()

	assert.Contains(t, out, "basic-access")
	assert.Contains(t, out, "temporal-conflict")
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "NO", "a missed expectation stands out")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "TOTAL")
}
