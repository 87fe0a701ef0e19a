// Package eval runs the pipeline over requirement datasets and aggregates the
// outcomes for regression tracking.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Daham-Mustaf/semantic-policy-generation/pipeline"
)

// Case is one dataset entry: a requirement plus the expected terminal status.
type Case struct {
	// ID identifies the case across runs. Unique within a dataset.
	ID string `json:"id"`

	// Requirement is the natural-language policy requirement.
	Requirement string `json:"requirement"`

	// Expected is the status the pipeline should reach, empty when the case
	// only exercises the pipeline without asserting an outcome.
	Expected pipeline.Status `json:"expected,omitempty"`

	// Notes is free-text context for the case author.
	Notes string `json:"notes,omitempty"`
}

// datasetFile is the on-disk form: either a single case or a list.
type datasetFile struct {
	Cases []Case `json:"cases"`
}

// LoadDataset collects cases from every JSON file matching the glob patterns.
// Patterns support doublestar syntax, e.g. "testdata/**/*.json". Cases are
// returned sorted by ID; duplicate IDs are an error.
func LoadDataset(patterns ...string) ([]Case, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad dataset pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no dataset files match %v", patterns)
	}

	seen := map[string]string{}
	var cases []Case
	for _, path := range paths {
		fileCases, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for _, c := range fileCases {
			if c.ID == "" {
				return nil, fmt.Errorf("%s: case without id", path)
			}
			if c.Requirement == "" {
				return nil, fmt.Errorf("%s: case %s has no requirement", path, c.ID)
			}
			if prev, ok := seen[c.ID]; ok {
				return nil, fmt.Errorf("duplicate case id %q in %s and %s", c.ID, prev, path)
			}
			seen[c.ID] = path
			cases = append(cases, c)
		}
	}

	sort.Slice(cases, func(i, j int) bool { return cases[i].ID < cases[j].ID })
	return cases, nil
}

func loadFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}

	var file datasetFile
	if err := json.Unmarshal(data, &file); err == nil && len(file.Cases) > 0 {
		return file.Cases, nil
	}

	// Fall back to a bare case list, then a single case.
	var list []Case
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single Case
	if err := json.Unmarshal(data, &single); err == nil && single.ID != "" {
		return []Case{single}, nil
	}

	return nil, fmt.Errorf("%s: not a recognizable dataset file", path)
}
