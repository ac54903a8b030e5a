/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package engine orchestrates one conversation turn end to end: persist the
// inbound message, parse it, route the structured query across healthy
// connectors, synthesize a reply and persist it.
package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/connector"
	"github.com/kestrelmon/kestrel/pkg/models"
	"github.com/kestrelmon/kestrel/pkg/nlp"
	"github.com/kestrelmon/kestrel/pkg/session"
)

const defaultHistoryLimit = 10

// Engine processes conversation turns. It holds no mutable state across
// turns beyond its immutable collaborators; health and data are always
// fetched fresh.
type Engine struct {
	registry     *connector.Registry
	parser       *nlp.Parser
	synthesizer  *nlp.Synthesizer
	store        session.Store
	historyLimit int
	logger       *zap.Logger
}

// New builds an engine.
func New(registry *connector.Registry, parser *nlp.Parser, synthesizer *nlp.Synthesizer,
	store session.Store, historyLimit int, logger *zap.Logger) *Engine {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	return &Engine{
		registry:     registry,
		parser:       parser,
		synthesizer:  synthesizer,
		store:        store,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// ProcessMessage runs one turn. Persistence is best-effort: a failed store
// write is logged and never aborts the turn.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, text string) models.ChatMessage {
	userMsg := models.ChatMessage{
		Content:   text,
		Sender:    models.SenderUser,
		Timestamp: time.Now(),
	}

	if err := e.store.Push(ctx, sessionID, userMsg); err != nil {
		e.logger.Warn("failed to persist user message",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	history, err := e.store.History(ctx, sessionID, e.historyLimit)
	if err != nil {
		e.logger.Warn("failed to load history", zap.String("session_id", sessionID), zap.Error(err))
	}

	e.logger.Debug("processing turn",
		zap.String("session_id", sessionID),
		zap.Int("history", len(history)))

	services, metrics := e.enumerate(ctx)

	desc := e.parser.Parse(ctx, text, services, metrics)

	reply := e.dispatch(ctx, desc)

	assistantMsg := models.ChatMessage{
		Content:   reply,
		Sender:    models.SenderAssistant,
		Timestamp: time.Now(),
		Metadata: map[string]string{
			"intent":     desc.Intent,
			"query_type": string(desc.Kind),
			"connectors": strings.Join(e.registry.Names(), ","),
		},
	}

	if err := e.store.Push(ctx, sessionID, assistantMsg); err != nil {
		e.logger.Warn("failed to persist assistant message",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	return assistantMsg
}

// enumerate resolves the registry's current service and metric-name sets.
func (e *Engine) enumerate(ctx context.Context) (services, metrics []string) {
	for _, summary := range e.registry.AllSummaries(ctx) {
		services = append(services, summary.Services...)
		metrics = append(metrics, summary.MetricNames...)
	}

	return services, metrics
}

func (e *Engine) dispatch(ctx context.Context, desc *models.QueryDescriptor) string {
	lower := strings.ToLower(desc.Original)

	switch {
	case desc.Kind == models.KindAlerts || desc.Intent == "alerts":
		return e.handleAlerts(ctx, desc)
	case desc.Kind == models.KindHealth || desc.Intent == "health":
		return e.handleHealth(ctx)
	case desc.Kind == models.KindServices ||
		(desc.Intent == "unknown" && strings.Contains(lower, "service")):
		return e.handleServices(ctx)
	default:
		return e.handleMetrics(ctx, desc)
	}
}

// History returns the session's recent messages in chronological order.
func (e *Engine) History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	return e.store.History(ctx, sessionID, limit)
}

// ClearSession drops a session's history.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	return e.store.Clear(ctx, sessionID)
}

// Registry exposes the connector registry for status endpoints.
func (e *Engine) Registry() *connector.Registry {
	return e.registry
}
