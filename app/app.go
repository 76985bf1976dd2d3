// Package app wires configuration, logging, probing, the model client and
// the correction loop into one run.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/OmBiradar/deepruster/agentloop"
	"github.com/OmBiradar/deepruster/config"
	"github.com/OmBiradar/deepruster/extract"
	"github.com/OmBiradar/deepruster/logging"
	"github.com/OmBiradar/deepruster/toolchain"
	"github.com/OmBiradar/deepruster/unifiedllm"
	"github.com/OmBiradar/deepruster/workspace"
)

// Prober detects the host and compiler details.
type Prober interface {
	Probe(ctx context.Context) (*toolchain.SystemDetails, error)
}

// App runs the generate, compile and correct loop once. The factory
// fields default to the real implementations and can be replaced in tests.
type App struct {
	cfg *config.Config
	log *logging.Logger
	// ownLog is set when the App opened the log file and must close it.
	ownLog    bool
	observers []agentloop.Observer

	NewProber   func(profile toolchain.Profile, log *logging.Logger) Prober
	NewAdapter  func(cfg unifiedllm.BackendConfig) (unifiedllm.ProviderAdapter, error)
	NewCompiler func(profile toolchain.Profile, binary, dir string, timeout time.Duration) agentloop.Compiler
}

// Option configures an App.
type Option func(*App)

// WithLogger uses log instead of opening the configured log file. The
// caller keeps ownership of log.
func WithLogger(log *logging.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithObserver forwards loop events to obs.
func WithObserver(obs agentloop.Observer) Option {
	return func(a *App) { a.observers = append(a.observers, obs) }
}

// New opens the log and validates cfg. The log comes first so that a
// rejected configuration is recorded at ERROR like any other failure;
// only a log that cannot be opened is reported to the caller alone.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg: cfg,
		NewProber: func(p toolchain.Profile, log *logging.Logger) Prober {
			return toolchain.NewProber(p, log)
		},
		NewAdapter: unifiedllm.NewAdapter,
		NewCompiler: func(p toolchain.Profile, binary, dir string, timeout time.Duration) agentloop.Compiler {
			return toolchain.NewCompiler(p, binary, dir, timeout)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		log, err := logging.New(logging.Config{
			Path:         cfg.Logging.File,
			Console:      cfg.Logging.Console,
			ConsoleLevel: cfg.Logging.Level,
		})
		if err != nil {
			return nil, err
		}
		a.log = log
		a.ownLog = true
	}
	if err := cfg.Validate(); err != nil {
		err = a.fatal(fmt.Errorf("invalid configuration: %w", err))
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Logger returns the run's logger.
func (a *App) Logger() *logging.Logger { return a.log }

// Close releases the log file if the App opened it.
func (a *App) Close() error {
	if a.ownLog {
		return a.log.Close()
	}
	return nil
}

// Probe runs the environment prober for the configured toolchain.
func (a *App) Probe(ctx context.Context) (toolchain.Profile, *toolchain.SystemDetails, error) {
	profile, err := toolchain.LookupProfile(a.cfg.Toolchain.Name)
	if err != nil {
		a.log.Error(err.Error())
		return nil, nil, err
	}
	details, err := a.NewProber(profile, a.log).Probe(ctx)
	if err != nil {
		return profile, nil, err
	}
	return profile, details, nil
}

// Run executes one full run. The environment is probed before the
// output directory is touched, so a failed probe leaves it as it was.
func (a *App) Run(ctx context.Context) (*agentloop.Summary, error) {
	cfg := a.cfg
	a.log.Info("Program started")

	profile, details, err := a.Probe(ctx)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.New(cfg.Output.Dir, profile.SourceExt())
	if err != nil {
		return nil, a.fatal(err)
	}
	existed, err := ws.Reset()
	if err != nil {
		return nil, a.fatal(err)
	}
	if existed {
		a.log.Info("Deleted directory: " + cfg.Output.Dir)
	} else {
		a.log.Info("Directory does not exist: " + cfg.Output.Dir)
	}

	task, err := cfg.ResolveTask()
	if err != nil {
		return nil, a.fatal(err)
	}

	client, err := a.newClient()
	if err != nil {
		return nil, a.fatal(err)
	}
	defer client.Close()
	a.log.Info(fmt.Sprintf("Model %s initialized", cfg.Model.Name),
		zap.String("backend", cfg.Model.Backend),
		zap.String("base_url", cfg.Model.BaseURL))

	retry := unifiedllm.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Model.MaxRetries
	retry.OnRetry = func(err error, attempt int, delay time.Duration) {
		a.log.Warn("Retrying model request",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	gen := agentloop.NewClientGenerator(client, agentloop.GeneratorConfig{
		Model: cfg.Model.Name,
		Retry: &retry,
	})

	compileTimeout, err := cfg.GetCompileTimeout()
	if err != nil {
		return nil, a.fatal(err)
	}
	compiler := a.NewCompiler(profile, details.CompilerPath, ws.Dir(), compileTimeout)

	loopCfg := agentloop.Config{
		Task:               task,
		Language:           profile.Language(),
		FileName:           profile.EntryFile(),
		MaxIterations:      cfg.Loop.MaxIterations,
		OnMissingFence:     cfg.Extract.OnMissingFence,
		MaxDiagnosticChars: cfg.Prompt.MaxDiagnosticChars,
		MaxDiagnosticLines: cfg.Prompt.MaxDiagnosticLines,
		RepeatWindow:       cfg.Loop.RepeatWindow,
	}
	if cfg.Prompt.IncludeEnvironment {
		loopCfg.SystemPrompt = agentloop.BuildEnvironmentContext(details, profile.Binary())
	}

	var loopOpts []agentloop.Option
	for _, obs := range a.observers {
		loopOpts = append(loopOpts, agentloop.WithObserver(obs))
	}
	loop, err := agentloop.New(loopCfg, gen, extract.New(cfg.Extract.Kind, profile.Language()), ws, compiler, a.log, loopOpts...)
	if err != nil {
		return nil, a.fatal(err)
	}

	summary, err := loop.Run(ctx)
	if err != nil {
		return summary, err
	}
	stats := gen.Stats()
	a.log.Info("Model usage",
		zap.Int("calls", stats.Calls),
		zap.Int("attempts", stats.Attempts),
		zap.Int("input_tokens", stats.Usage.InputTokens),
		zap.Int("output_tokens", stats.Usage.OutputTokens),
		zap.Int("total_tokens", stats.Usage.TotalTokens),
		zap.Duration("latency", stats.Latency))
	a.log.Info("Program completed", zap.String("run_id", summary.RunID), zap.String("source", summary.SourcePath))
	return summary, nil
}

func (a *App) newClient() (*unifiedllm.Client, error) {
	cfg := a.cfg.Model
	adapter, err := a.NewAdapter(unifiedllm.BackendConfig{
		Backend:     cfg.Backend,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Name,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	timeout, err := a.cfg.GetModelTimeout()
	if err != nil {
		return nil, err
	}
	return unifiedllm.NewClient(
		unifiedllm.WithProvider(adapter.Name(), adapter),
		unifiedllm.WithMiddleware(
			unifiedllm.LoggingMiddleware(a.log),
			unifiedllm.TimeoutMiddleware(timeout),
		),
	), nil
}

// fatal logs err at ERROR and returns it.
func (a *App) fatal(err error) error {
	a.log.Error(err.Error())
	return err
}
