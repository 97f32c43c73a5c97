// Package app wires configuration, storage, clients and services into the
// shared application core.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/contra/internal/clients/gemini"
	"github.com/bobmcallan/contra/internal/clients/newsapi"
	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/services/analyzer"
	"github.com/bobmcallan/contra/internal/services/fundamentals"
	"github.com/bobmcallan/contra/internal/services/news"
	"github.com/bobmcallan/contra/internal/services/peers"
	"github.com/bobmcallan/contra/internal/services/signal"
	"github.com/bobmcallan/contra/internal/storage"
)

// App holds all initialized services, clients and storage. It is the shared
// core behind cmd/contra-server.
type App struct {
	Config             *common.Config
	Logger             *common.Logger
	Storage            *storage.Manager
	GeminiClient       interfaces.GeminiClient
	NewsClient         interfaces.NewsClient
	NewsService        interfaces.NewsService
	FundamentalService interfaces.FundamentalService
	PeerService        interfaces.PeerService
	SignalService      interfaces.SignalService
	Coordinator        *analyzer.Coordinator
	StartupTime        time.Time
}

// NewApp initializes configuration, storage, clients and services.
// configPath may be empty, in which case CONTRA_CONFIG and the default
// location are tried in turn.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("CONTRA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join("config", "contra.toml")
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Clients.Gemini.APIKey == "" {
		logger.Warn().Msg("Gemini API key not configured - analysis will degrade to neutral defaults")
	}
	geminiClient, err := gemini.NewClient(ctx, config.Clients.Gemini.APIKey,
		gemini.WithModel(config.Clients.Gemini.Model),
		gemini.WithRetry(config.Clients.Gemini.MaxRetries, config.Clients.Gemini.GetInitialDelay()),
		gemini.WithLogger(logger),
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	if config.Clients.News.APIKey == "" {
		logger.Warn().Msg("News API key not configured - news stage will report no articles")
	}
	newsClient := newsapi.NewClient(config.Clients.News.APIKey,
		newsapi.WithBaseURL(config.Clients.News.BaseURL),
		newsapi.WithRateLimit(config.Clients.News.RateLimit),
		newsapi.WithTimeout(config.Clients.News.GetTimeout()),
		newsapi.WithLogger(logger),
	)

	newsService := news.NewService(newsClient, geminiClient, logger)
	fundamentalService := fundamentals.NewService(storageManager.TickerStore(), storageManager.DocumentIndex(), geminiClient, logger)
	peerService := peers.NewService(storageManager.TickerStore(), geminiClient, logger)
	signalService := signal.NewService(geminiClient, logger)

	coordinator := analyzer.NewCoordinator(
		storageManager.JobStore(),
		newsService,
		fundamentalService,
		peerService,
		signalService,
		logger,
	)

	logger.Info().
		Str("environment", config.Environment).
		Int("companies", storageManager.TickerStore().Count()).
		Msg("Application initialized")

	return &App{
		Config:             config,
		Logger:             logger,
		Storage:            storageManager,
		GeminiClient:       geminiClient,
		NewsClient:         newsClient,
		NewsService:        newsService,
		FundamentalService: fundamentalService,
		PeerService:        peerService,
		SignalService:      signalService,
		Coordinator:        coordinator,
		StartupTime:        time.Now(),
	}, nil
}

// Close releases application resources.
func (a *App) Close() error {
	return a.Storage.Close()
}
