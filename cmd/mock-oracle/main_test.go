package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadFixturesSequencing(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "policy-repair.1.json", `{"attempt": 1}`)
	writeFixture(t, dir, "policy-repair.2.json", `{"attempt": 2}`)
	writeFixture(t, dir, "policy-repair.json", `{"attempt": "final"}`)
	writeFixture(t, dir, "policy-reasoner.json", `{"findings": []}`)

	fixtures, err := loadFixtures(dir)
	require.NoError(t, err)

	require.Len(t, fixtures["policy-repair"], 3)
	assert.Equal(t, `{"attempt": 1}`, fixtures["policy-repair"][0])
	assert.Equal(t, `{"attempt": "final"}`, fixtures["policy-repair"][2])
	require.Len(t, fixtures["policy-reasoner"], 1)
}

func TestLoadFixturesRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "broken.json", `not json`)

	_, err := loadFixtures(dir)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestLoadFixturesEmptyDir(t *testing.T) {
	_, err := loadFixtures(t.TempDir())
	assert.ErrorContains(t, err, "no fixture files")
}

func completionRequest(t *testing.T, srv *server, model string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: "prompt"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleChatCompletions(rec, req)
	return rec
}

func TestChatCompletionsWalksSequence(t *testing.T) {
	srv := newServer(map[string][]string{
		"policy-repair": {`{"pass": 1}`, `{"pass": 2}`},
	}, testLogger())

	contents := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		rec := completionRequest(t, srv, "policy-repair")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp chatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Choices, 1)
		contents = append(contents, resp.Choices[0].Message.Content)
	}

	assert.Equal(t, `{"pass": 1}`, contents[0])
	assert.Equal(t, `{"pass": 2}`, contents[1])
	assert.Equal(t, `{"pass": 2}`, contents[2], "exhausted sequence repeats the last fixture")
}

func TestChatCompletionsUnknownModel(t *testing.T) {
	srv := newServer(map[string][]string{}, testLogger())
	rec := completionRequest(t, srv, "no-such-model")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsAndRequests(t *testing.T) {
	srv := newServer(map[string][]string{
		"policy-reasoner": {`{"findings": []}`},
	}, testLogger())

	completionRequest(t, srv, "policy-reasoner")
	completionRequest(t, srv, "policy-reasoner")

	rec := httptest.NewRecorder()
	srv.handleStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	var stats struct {
		TotalCalls   int            `json:"total_calls"`
		CallsByModel map[string]int `json:"calls_by_model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalCalls)
	assert.Equal(t, 2, stats.CallsByModel["policy-reasoner"])

	rec = httptest.NewRecorder()
	srv.handleRequests(rec, httptest.NewRequest(http.MethodGet, "/requests?model=policy-reasoner&call=2", nil))
	var reqs struct {
		RequestsByModel map[string][]capturedRequest `json:"requests_by_model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqs))
	require.Len(t, reqs.RequestsByModel["policy-reasoner"], 1)
	assert.Equal(t, 2, reqs.RequestsByModel["policy-reasoner"][0].CallIndex)
	assert.Equal(t, "prompt", reqs.RequestsByModel["policy-reasoner"][0].Messages[0].Content)
}
