package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spigell/interview-caller/internal/ai/gemini"
	"github.com/spigell/interview-caller/internal/bolna"
	"github.com/spigell/interview-caller/internal/calls"
	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/executions"
	"github.com/spigell/interview-caller/internal/httpapi"
	"github.com/spigell/interview-caller/internal/outcome"
	"github.com/spigell/interview-caller/internal/secrets"
	"github.com/spigell/interview-caller/internal/webhook"
	"go.uber.org/zap"
)

// application wires the stores and services shared by all commands.
type application struct {
	config       *Config
	logger       *zap.Logger
	candidates   *candidates.Store
	executions   *executions.Store
	archive      *webhook.ArchiveStore
	unidentified *webhook.UnidentifiedStore
	dispatcher   *webhook.Dispatcher
	// provider is nil when Bolna credentials are missing.
	provider *bolna.Client
}

func newApplication(ctx context.Context, config *Config, logger *zap.Logger) (*application, error) {
	dir := strings.TrimSpace(config.Storage.DataDir)
	if dir == "" {
		dir = "data"
	}

	a := &application{
		config:       config,
		logger:       logger,
		candidates:   candidates.NewStore(filepath.Join(dir, candidates.FileName), logger.Named("candidates")),
		executions:   executions.NewStore(filepath.Join(dir, executions.FileName), logger.Named("executions")),
		archive:      webhook.NewArchiveStore(filepath.Join(dir, webhook.ArchiveFileName)),
		unidentified: webhook.NewUnidentifiedStore(filepath.Join(dir, webhook.UnidentifiedFileName), config.Storage.UnidentifiedLimit),
	}

	classifiers, err := newClassifiers(ctx, config.Classifier, logger)
	if err != nil {
		return nil, err
	}

	a.dispatcher = webhook.NewDispatcher(
		a.candidates,
		a.executions,
		a.archive,
		a.unidentified,
		outcome.NewResolver(logger.Named("outcome"), classifiers...),
		webhook.Config{InterimTranscriptMin: config.Webhook.InterimTranscriptMin},
		logger.Named("webhook"),
	)

	a.provider, err = newProvider(config.Bolna, logger)
	if err != nil {
		logger.Warn("call provider disabled", zap.Error(err))
	}

	return a, nil
}

func newProvider(cfg *BolnaConfig, logger *zap.Logger) (*bolna.Client, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "bolna api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "BOLNA_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	agentID := strings.TrimSpace(cfg.AgentID)
	if agentID == "" {
		return nil, fmt.Errorf("bolna agent id is not configured (set bolna.agent-id or AGENT_ID)")
	}

	client := bolna.New(logger.Named("bolna"), apiKey, agentID, strings.TrimSpace(cfg.CallerID))
	if url := strings.TrimSpace(cfg.APIURL); url != "" {
		client.APIURL = url
	}
	return client, nil
}

// newClassifiers returns the transcript classifiers in the order they are
// consulted. Gemini, when enabled, goes before the regex rules.
func newClassifiers(ctx context.Context, cfg *ClassifierConfig, logger *zap.Logger) ([]outcome.Classifier, error) {
	regex := outcome.NewRegexClassifier()
	if cfg == nil || cfg.Gemini == nil || !cfg.Gemini.Enabled {
		return []outcome.Classifier{regex}, nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set classifier.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	minConfidence := cfg.Gemini.MinimumConfidence
	if minConfidence < 0 {
		minConfidence = 0
	}

	classifierLogger := logger.Named("gemini").With(
		zap.Float64("minimum_confidence", minConfidence),
	)
	classifier := gemini.NewClassifier(generator, classifierLogger, minConfidence, cfg.Gemini.MaxLogLength)

	return []outcome.Classifier{classifier, regex}, nil
}

func (a *application) placer() *calls.Placer {
	if a.provider == nil {
		return nil
	}
	return calls.NewPlacer(a.candidates, a.executions, a.provider, a.logger.Named("calls"))
}

func (a *application) checker() *calls.Checker {
	if a.provider == nil {
		return nil
	}
	return calls.NewChecker(a.provider, a.dispatcher, a.logger.Named("calls"))
}

func (a *application) httpDependencies() httpapi.Dependencies {
	deps := httpapi.Dependencies{
		Candidates: a.candidates,
		Executions: a.executions,
		Archive:    a.archive,
		Dispatcher: a.dispatcher,
		Placer:     a.placer(),
		Checker:    a.checker(),
	}
	if a.provider != nil {
		deps.Fetcher = a.provider
	}
	return deps
}
