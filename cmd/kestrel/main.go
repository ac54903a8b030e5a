package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kestrelmon/kestrel/pkg/api"
	"github.com/kestrelmon/kestrel/pkg/config"
	"github.com/kestrelmon/kestrel/pkg/connector"
	"github.com/kestrelmon/kestrel/pkg/engine"
	"github.com/kestrelmon/kestrel/pkg/lifecycle"
	"github.com/kestrelmon/kestrel/pkg/llm"
	"github.com/kestrelmon/kestrel/pkg/logger"
	"github.com/kestrelmon/kestrel/pkg/nlp"
	"github.com/kestrelmon/kestrel/pkg/session"
)

func main() {
	configPath := flag.String("config", "/etc/kestrel/kestrel.json", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath string) error {
	var cfg config.Config
	if err := config.LoadAndValidate(configPath, &cfg); err != nil {
		return err
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	store, err := newStore(&cfg, zlog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	registry := connector.NewFromConfig(&cfg, zlog)

	var client llm.Client
	if cfg.LLM.Complete() {
		client = llm.NewOpenAIClient(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			MaxRequests: cfg.LLM.MaxRequests,
			RateWindow:  time.Duration(cfg.LLM.RateWindow),
		}, zlog)
	} else {
		zlog.Info("no language model configured, using deterministic parsing and responses")
	}

	eng := engine.New(
		registry,
		nlp.NewParser(client, zlog),
		nlp.NewSynthesizer(client, zlog),
		store,
		cfg.Session.HistoryLimit,
		zlog)

	server := api.NewServer(eng, api.AuthOptions{
		Enabled:   cfg.Auth.Enabled,
		JWTSecret: cfg.Auth.JWTSecret,
	}, splitOrigins(cfg.CORSOrigins), zlog)

	return lifecycle.RunServer(context.Background(), &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "kestrel",
		Handler:     server.Handler(),
		Logger:      zlog,
	})
}

func newStore(cfg *config.Config, zlog *zap.Logger) (session.Store, error) {
	opts := session.Options{
		MaxMessages: cfg.Session.MaxMessages,
		Retention:   time.Duration(cfg.Session.Retention),
	}

	if cfg.Session.DBPath == "" {
		zlog.Info("using in-memory session store")
		return session.NewMemoryStore(opts), nil
	}

	return session.NewSQLiteStore(cfg.Session.DBPath, opts, zlog)
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}
