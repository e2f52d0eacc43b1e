package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/vapora/pkg/engine/report"
	"github.com/DrSkyle/vapora/pkg/graph"
	"github.com/DrSkyle/vapora/pkg/scorer"
)

func sampleSummary() report.Summary {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return report.Summary{
		RunID:         "abc",
		Seed:          "7656",
		SeedLabel:     "robin",
		StartedAt:     start,
		FinishedAt:    start.Add(time.Minute),
		Complete:      true,
		Graph:         graph.Summary{Nodes: 12, Edges: 30, Communities: 3, Hubs: []string{"1"}},
		TopCandidates: []scorer.Candidate{{ID: "42", Score: 2.5, Mutual: 2}},
		Flagged:       1,
	}
}

func TestSendRunSummary(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
	}))
	defer srv.Close()

	client := NewSlackClient(srv.URL, "#osint")
	require.NoError(t, client.SendRunSummary(context.Background(), sampleSummary()))
	body := <-bodies

	assert.Equal(t, "#osint", body["channel"])
	raw, _ := json.Marshal(body["blocks"])
	text := string(raw)
	assert.True(t, strings.Contains(text, "robin (7656)"))
	assert.True(t, strings.Contains(text, "`42` score 2.50"))
	assert.True(t, strings.Contains(text, "flagged_nodes.csv"))
}

func TestSendRunSummaryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackClient(srv.URL, "").SendRunSummary(context.Background(), sampleSummary())
	assert.ErrorContains(t, err, "403")
}

func TestSendRunSummaryWithoutWebhook(t *testing.T) {
	assert.NoError(t, NewSlackClient("", "").SendRunSummary(context.Background(), sampleSummary()))
}
