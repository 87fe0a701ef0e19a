package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"decision": "APPROVED"}`,
			want:    `{"decision": "APPROVED"}`,
		},
		{
			name:    "markdown code block",
			content: "Here is the result:\n```json\n{\"decision\": \"APPROVED\"}\n```\nDone.",
			want:    `{"decision": "APPROVED"}`,
		},
		{
			name:    "code block without language tag",
			content: "```\n{\"uid\": \"policy_x\"}\n```",
			want:    `{"uid": "policy_x"}`,
		},
		{
			name:    "object embedded in prose",
			content: `The policy is {"uid": "policy_x"} as requested.`,
			want:    `{"uid": "policy_x"}`,
		},
		{
			name:    "no object",
			content: "I could not produce a policy.",
			want:    "",
		},
		{
			name:    "empty input",
			content: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.content); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONCleansArtifacts(t *testing.T) {
	content := `{
	"uid": "policy_x", // the identifier
	"rules": [
		{"kind": "permission", "action": "read",},
	],
}`

	raw := ExtractJSON(content)
	if raw == "" {
		t.Fatal("expected JSON to be extracted")
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("cleaned JSON does not parse: %v\n%s", err, raw)
	}
	if parsed["uid"] != "policy_x" {
		t.Errorf("unexpected uid: %v", parsed["uid"])
	}
}

func TestExtractJSONPreservesURLsInStrings(t *testing.T) {
	content := `{"target": "http://example.com/dataset"}`

	raw := ExtractJSON(content)
	var parsed map[string]string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("JSON does not parse: %v", err)
	}
	if parsed["target"] != "http://example.com/dataset" {
		t.Errorf("URL was mangled: %q", parsed["target"])
	}
}
