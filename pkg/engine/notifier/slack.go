package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DrSkyle/vapora/pkg/engine/report"
)

// SlackClient handles Slack notifications.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: Override default channel
	HTTP       *http.Client
}

// NewSlackClient initializes the Slack integration.
func NewSlackClient(webhookURL string, channel string) *SlackClient {
	return &SlackClient{
		WebhookURL: webhookURL,
		Channel:    channel,
		HTTP:       &http.Client{Timeout: 10 * time.Second},
	}
}

// SendRunSummary posts a run summary. A client without a webhook is a no-op.
func (s *SlackClient) SendRunSummary(ctx context.Context, summary report.Summary) error {
	if s.WebhookURL == "" {
		return nil
	}
	return s.send(ctx, s.constructPayload(summary))
}

func (s *SlackClient) send(ctx context.Context, payload map[string]interface{}) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}
	return nil
}

// constructPayload builds the message blocks.
func (s *SlackClient) constructPayload(summary report.Summary) map[string]interface{} {
	statusIcon := "🟢"
	if !summary.Complete {
		statusIcon = "🟡"
	}

	seed := summary.Seed
	if summary.SeedLabel != "" && summary.SeedLabel != summary.Seed {
		seed = fmt.Sprintf("%s (%s)", summary.SeedLabel, summary.Seed)
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": fmt.Sprintf("%s Social graph scan: %s", statusIcon, seed),
			},
		},
		{
			"type": "context",
			"elements": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Run:* %s | *Finished:* %s | *Took:* %s",
						summary.RunID, summary.FinishedAt.Format("2006-01-02 15:04"), summary.Duration().Round(time.Second)),
				},
			},
		},
		{
			"type": "divider",
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Nodes:*\n%d", summary.Graph.Nodes)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Edges:*\n%d", summary.Graph.Edges)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Communities:*\n%d", summary.Graph.Communities)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Hubs:*\n%d", len(summary.Graph.Hubs))},
			},
		},
	}

	if len(summary.TopCandidates) > 0 {
		var lines []string
		for i, c := range summary.TopCandidates {
			if i == 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("%d. `%s` score %.2f (%d mutual)", i+1, c.ID, c.Score, c.Mutual))
		}
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": "*Probable close associates*\n" + strings.Join(lines, "\n"),
			},
		})
	}

	if summary.Flagged > 0 {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("⚠️ *%d rule matches* written to flagged_nodes.csv", summary.Flagged),
			},
		})
	}

	payload := map[string]interface{}{
		"blocks": blocks,
	}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	return payload
}
