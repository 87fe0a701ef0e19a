package eval

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Daham-Mustaf/semantic-policy-generation/pipeline"
)

// Summary aggregates a batch run.
type Summary struct {
	Total    int                     `json:"total"`
	ByStatus map[pipeline.Status]int `json:"by_status"`

	// Asserted counts cases that declared an expectation; Matched counts
	// those whose terminal status met it.
	Asserted int `json:"asserted"`
	Matched  int `json:"matched"`

	// MeanAttempts is the average repair loop attempts over runs that
	// reached the loop.
	MeanAttempts float64 `json:"mean_attempts"`

	TotalDuration time.Duration `json:"total_duration"`
}

// Summarize aggregates case results.
func Summarize(results []CaseResult) Summary {
	s := Summary{
		Total:    len(results),
		ByStatus: map[pipeline.Status]int{},
	}

	loopRuns := 0
	totalAttempts := 0
	for _, r := range results {
		s.TotalDuration += r.Duration
		if r.Outcome != nil {
			s.ByStatus[r.Outcome.Status]++
			if n := len(r.Outcome.Attempts); n > 0 {
				loopRuns++
				totalAttempts += n
			}
		}
		if r.Expected != "" {
			s.Asserted++
			if r.Match {
				s.Matched++
			}
		}
	}
	if loopRuns > 0 {
		s.MeanAttempts = float64(totalAttempts) / float64(loopRuns)
	}
	return s
}

// RenderTable writes a per-case table plus the aggregate footer.
func RenderTable(w io.Writer, results []CaseResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Case", "Status", "Expected", "Match", "Attempts", "Duration"})

	for _, r := range results {
		status := "-"
		attempts := 0
		if r.Outcome != nil {
			status = string(r.Outcome.Status)
			attempts = len(r.Outcome.Attempts)
		}
		expected := string(r.Expected)
		if expected == "" {
			expected = "-"
		}
		match := ""
		if r.Expected != "" {
			if r.Match {
				match = "yes"
			} else {
				match = "NO"
			}
		}
		t.AppendRow(table.Row{r.CaseID, status, expected, match, attempts, r.Duration.Round(time.Millisecond)})
	}

	s := Summarize(results)
	t.AppendFooter(table.Row{"total", s.Total, s.Asserted, s.Matched, "", s.TotalDuration.Round(time.Millisecond)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}
