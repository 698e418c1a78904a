package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/insight/internal/clients/gemini"
	"github.com/bobmcallan/insight/internal/clients/quartr"
	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/services/acquisition"
	"github.com/bobmcallan/insight/internal/services/answer"
	"github.com/bobmcallan/insight/internal/services/chat"
	"github.com/bobmcallan/insight/internal/services/transcript"
	"github.com/bobmcallan/insight/internal/storage"
	"github.com/bobmcallan/insight/internal/storage/universe"
)

// App holds all initialized services, clients, and the MCP server.
// It is the shared core used by cmd/insight-server and cmd/insight.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.ObjectStore
	Directory   interfaces.CompanyDirectory
	Resolver    interfaces.CompanyResolver
	Provider    interfaces.ProviderClient
	LLM         interfaces.LLMClient
	Normalizer  interfaces.TranscriptNormalizer
	Acquisition interfaces.AcquisitionService
	Answers     interfaces.AnswerService
	Chat        *chat.Service
	MCPServer   *server.MCPServer
	StartupTime time.Time

	// ConfigErr is the startup validation result; nil when complete.
	ConfigErr error

	schedulerCancel context.CancelFunc
	closers         []func() error
}

// Dependencies overrides the external collaborators built by New.
// Nil fields are constructed from the configuration.
type Dependencies struct {
	Provider  interfaces.ProviderClient
	LLM       interfaces.LLMClient
	Store     interfaces.ObjectStore
	Directory interfaces.CompanyDirectory
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath, then INSIGHT_CONFIG, then insight.toml
// next to the binary, then config/insight.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("INSIGHT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "insight.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/insight.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes every service.
// configPath may be empty, in which case the default resolution logic is used.
// overrides are applied to the loaded configuration before anything is built.
func NewApp(configPath string, overrides ...func(*common.Config)) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, o := range overrides {
		o(config)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return New(context.Background(), config, logger, Dependencies{})
}

// New wires the application from an already loaded configuration.
// Missing credentials disable the features that need them; storage and
// directory failures are fatal.
func New(ctx context.Context, config *common.Config, logger *common.Logger, deps Dependencies) (*App, error) {
	startupStart := time.Now()
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		StartupTime: startupStart,
	}

	a.ConfigErr = config.Validate()
	if a.ConfigErr != nil {
		for _, e := range unwrapJoined(a.ConfigErr) {
			logger.Warn().Str("problem", e.Error()).Msg("Configuration incomplete")
		}
	}

	// Object store
	a.Store = deps.Store
	if a.Store == nil {
		store, err := storage.NewObjectStore(ctx, logger, &config.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	}

	// Company directory
	a.Directory = deps.Directory
	if a.Directory == nil {
		dir, err := universe.Open(ctx, logger, &config.Universe)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open company directory: %w", err)
		}
		a.Directory = dir
		a.closers = append(a.closers, dir.Close)
	}

	// Document provider
	a.Provider = deps.Provider
	if a.Provider == nil {
		if config.Provider.APIKey == "" {
			logger.Warn().Msg("Quartr API key not configured - document acquisition will return no documents")
		}
		a.Provider = quartr.NewClient(config.Provider.APIKey,
			quartr.WithBaseURL(config.Provider.BaseURL),
			quartr.WithAppHost(config.Provider.AppHost),
			quartr.WithLogger(logger),
			quartr.WithRateLimit(config.Provider.RateLimit),
			quartr.WithTimeout(config.Provider.GetTimeout()),
			quartr.WithEventLimit(config.Provider.EventLimit),
		)
	}

	// Language model
	a.LLM = deps.LLM
	if a.LLM == nil {
		if config.LLM.APIKey == "" {
			logger.Warn().Msg("Gemini API key not configured - questions cannot be answered")
		} else {
			client, err := gemini.NewClient(ctx, config.LLM.APIKey,
				gemini.WithLogger(logger),
				gemini.WithModel(config.LLM.Model),
				gemini.WithTimeout(config.LLM.GetTimeout()),
			)
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
			} else {
				a.LLM = client
				a.closers = append(a.closers, client.Close)
			}
		}
	}

	// Services
	a.Resolver = universe.NewResolver(a.Directory, a.Provider, logger)
	a.Normalizer = transcript.NewNormalizer(a.Provider, logger)
	a.Acquisition = acquisition.NewService(a.Provider, a.Normalizer, a.Store, logger)

	a.Answers = answer.NewService(a.Store, a.LLM, logger,
		answer.WithTemperature(config.LLM.Temperature),
		answer.WithMaxOutputTokens(config.LLM.MaxOutputTokens),
	)
	a.Chat = chat.NewService(a.Resolver, a.Acquisition, a.Answers, logger,
		chat.WithSessionTTL(config.Chat.GetSessionTTL()),
	)

	// MCP server
	a.MCPServer = server.NewMCPServer(
		"insight",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)
	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// unwrapJoined flattens an errors.Join result.
func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, then close clients and stores in reverse.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}

// StartScheduler launches the background directory refresh and session sweep.
func (a *App) StartScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startScheduler(schedulerCtx, a.Directory, a.Chat, a.Logger, a.Config.Universe.GetRefreshInterval())
}

// ErrEmptyCompanyName is returned when a lookup is made without a name.
var ErrEmptyCompanyName = errors.New("company name is required")

// ResolveCompany finds a company by provider id or name and fills in its provider id.
func (a *App) ResolveCompany(ctx context.Context, ref string) (*models.Company, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyCompanyName
	}
	if c, err := a.Directory.ByProviderID(ctx, ref); err == nil {
		return c, nil
	}
	if c, err := a.Directory.ByISIN(ctx, ref); err == nil {
		return a.Resolver.Resolve(ctx, c.Name)
	}
	return a.Resolver.Resolve(ctx, ref)
}

// AcquireDocuments resolves a company and runs one acquisition for it.
func (a *App) AcquireDocuments(ctx context.Context, ref string) (*models.Manifest, error) {
	start := time.Now()
	company, err := a.ResolveCompany(ctx, ref)
	if err != nil {
		return nil, err
	}
	records, err := a.Acquisition.Acquire(ctx, *company)
	if err != nil {
		return nil, err
	}
	return &models.Manifest{
		Company:   *company,
		Documents: records,
		Elapsed:   time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

// AskCompany acquires a company's documents and answers one question about them.
func (a *App) AskCompany(ctx context.Context, ref, question string) (*models.Answer, error) {
	manifest, err := a.AcquireDocuments(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(manifest.Documents) == 0 {
		return &models.Answer{Text: chat.NoDocumentsMessage, Sources: []models.Source{}}, nil
	}
	return a.Answers.Answer(ctx, question, manifest.Documents)
}
