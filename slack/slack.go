// Package slack posts high-risk meal alerts to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"glucoplate"

	"github.com/google/uuid"
)

type Client struct {
	webhookURL string
	channel    string
	httpClient glucoplate.HTTPClient
}

func NewClient(webhookURL, channel string, httpClient glucoplate.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: httpClient,
	}
}

// NotifyMealAlert posts a summary of a meal graded avoid.
func (c *Client) NotifyMealAlert(ctx context.Context, alert glucoplate.MealAlert) error {
	return c.PostMessage(ctx, FormatMealAlert(alert))
}

func (c *Client) PostMessage(ctx context.Context, message string) error {
	body := map[string]any{"text": message}
	if c.channel != "" {
		body["channel"] = c.channel
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// FormatMealAlert renders an alert as Slack mrkdwn. Details are listed in
// name order so the message is stable.
func FormatMealAlert(alert glucoplate.MealAlert) string {
	var b strings.Builder

	fmt.Fprintf(&b, ":warning: *High-risk meal* (%s analysis)", alert.Source)
	if alert.UserID != uuid.Nil {
		fmt.Fprintf(&b, " for user `%s`", alert.UserID)
	}
	b.WriteString("\n")

	t := alert.Totals
	fmt.Fprintf(&b, "Totals: %.0f kcal, carbs %.1fg, sugar %.1fg, GI %d\n", t.Calories, t.Carbs, t.Sugar, t.GlycemicIndex)

	for _, f := range alert.Verdict.Flags {
		fmt.Fprintf(&b, "• %s %.1f exceeds %.0f (%s)\n", f.Metric, f.Value, f.Limit, f.Level)
	}

	names := make([]string, 0, len(alert.Verdict.Details))
	for name := range alert.Verdict.Details {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "• %s: %s\n", name, alert.Verdict.Details[name].Suitability)
	}

	return strings.TrimRight(b.String(), "\n")
}
