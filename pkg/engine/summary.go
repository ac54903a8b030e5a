package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/models"
)

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"CPU Performance", []string{"cpu", "processor"}},
	{"Memory Usage", []string{"memory", "ram"}},
	{"Disk I/O", []string{"disk", "storage"}},
	{"Network", []string{"network", "bandwidth"}},
	{"Alerts", []string{"alert", "alarm"}},
	{"System Health", []string{"health", "status"}},
	{"Services", []string{"service", "app"}},
}

// Summary describes the session at a glance, with topics extracted from the
// user's messages.
func (e *Engine) Summary(ctx context.Context, sessionID string) models.ConversationSummary {
	history, err := e.store.History(ctx, sessionID, 0)
	if err != nil {
		e.logger.Warn("failed to load history for summary",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	summary := models.ConversationSummary{
		SessionID:    sessionID,
		MessageCount: len(history),
		StartTime:    time.Now(),
		LastActivity: time.Now(),
		Topics:       extractTopics(history),
	}

	if len(history) > 0 {
		summary.StartTime = history[0].Timestamp
		summary.LastActivity = history[len(history)-1].Timestamp
	}

	return summary
}

func extractTopics(history []models.ChatMessage) []string {
	seen := make(map[string]struct{})

	var topics []string

	for i := range history {
		if history[i].Sender != models.SenderUser {
			continue
		}

		lower := strings.ToLower(history[i].Content)

		for _, t := range topicKeywords {
			if _, ok := seen[t.topic]; ok {
				continue
			}

			for _, kw := range t.keywords {
				if strings.Contains(lower, kw) {
					seen[t.topic] = struct{}{}

					topics = append(topics, t.topic)

					break
				}
			}
		}
	}

	return topics
}
