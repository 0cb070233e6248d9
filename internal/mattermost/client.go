// Package mattermost provides webhook client for sending notifications to Mattermost.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aimd54/penpath/internal/config"
	"github.com/aimd54/penpath/pkg/logger"
)

const botUsername = "Penpath Coach"

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Mattermost client.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Message represents a Mattermost message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Pretext  string  `json:"pretext,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

// SendMessage sends a message to Mattermost.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}
	if msg.Username == "" {
		msg.Username = botUsername
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

// LevelUp describes a promotion worth announcing.
type LevelUp struct {
	FullName   string
	LevelID    uint
	LevelTitle string
	TotalXP    int
	XPGained   int
	Challenge  string
}

// SendLevelUp announces that a writer reached a new level.
func (c *Client) SendLevelUp(ctx context.Context, up LevelUp) error {
	name := up.FullName
	if name == "" {
		name = "A writer"
	}

	text := fmt.Sprintf("🎉 **%s** reached level %d: **%s**", name, up.LevelID, up.LevelTitle)

	return c.SendMessage(ctx, &Message{
		Text: text,
		Attachments: []Attachment{{
			Fallback: text,
			Color:    "#36a64f",
			Fields: []Field{
				{Short: true, Title: "Total XP", Value: fmt.Sprintf("%d", up.TotalXP)},
				{Short: true, Title: "XP gained", Value: fmt.Sprintf("+%d", up.XPGained)},
				{Short: false, Title: "Challenge", Value: up.Challenge},
			},
		}},
	})
}

// SweepSummary reports one run of the challenge supply sweep.
type SweepSummary struct {
	Profiles    int
	Replenished int
	Created     int
	Failed      int
	Duration    time.Duration
}

// SendSweepSummary posts the outcome of a supply sweep. Runs that changed
// nothing and had no failures are not posted.
func (c *Client) SendSweepSummary(ctx context.Context, s SweepSummary) error {
	if s.Replenished == 0 && s.Failed == 0 {
		c.log.Debug().Msg("Supply sweep changed nothing, skipping summary")
		return nil
	}

	color := "#36a64f"
	if s.Failed > 0 {
		color = "#e8a317"
	}

	text := fmt.Sprintf("### 📝 Challenge supply sweep\n\nRefilled **%d** of %d writers with **%d** new challenges.",
		s.Replenished, s.Profiles, s.Created)
	if s.Failed > 0 {
		text += fmt.Sprintf("\n⚠️ %d refills failed, see logs.", s.Failed)
	}

	return c.SendMessage(ctx, &Message{
		Text: text,
		Attachments: []Attachment{{
			Fallback: text,
			Color:    color,
			Footer:   fmt.Sprintf("took %s", s.Duration.Round(time.Millisecond)),
		}},
	})
}
