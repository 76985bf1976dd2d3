package agentloop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OmBiradar/deepruster/extract"
	"github.com/OmBiradar/deepruster/logging"
	"github.com/OmBiradar/deepruster/toolchain"
)

var (
	// ErrEmptyResponse means the model returned nothing usable.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrNoCodeBlock means the response had no fenced code block and the
	// missing-fence policy is "fail".
	ErrNoCodeBlock = errors.New("model response contains no code block")
	// ErrIterationLimit means MaxIterations compiles failed.
	ErrIterationLimit = errors.New("iteration limit reached without a clean compile")
)

// Missing-fence policies.
const (
	OnMissingFenceFail = "fail"
	OnMissingFenceRaw  = "raw"
)

// Writer stores the source for one iteration and returns its path.
type Writer interface {
	WriteSource(iteration int, code string) (string, error)
}

// Compiler compiles one source file.
type Compiler interface {
	Compile(ctx context.Context, sourcePath string) (*toolchain.CompileResult, error)
	ErrorCount(r *toolchain.CompileResult) (int, bool)
}

// Config holds loop settings.
type Config struct {
	Task     string `json:"task"`
	Language string `json:"language"`  // e.g. "rust"
	FileName string `json:"file_name"` // name used in the prompt, e.g. "main.rs"

	// MaxIterations caps the number of compiles. 0 = unlimited.
	MaxIterations int `json:"max_iterations"`
	// OnMissingFence is "fail" (default) or "raw".
	OnMissingFence string `json:"on_missing_fence"`
	// MaxDiagnosticChars and MaxDiagnosticLines cap the compiler text in a
	// correction prompt. 0 = full text.
	MaxDiagnosticChars int `json:"max_diagnostic_chars"`
	MaxDiagnosticLines int `json:"max_diagnostic_lines"`
	// RepeatWindow is how many previous sources are checked for repeats.
	RepeatWindow int `json:"repeat_window"`
	// SystemPrompt is sent with every request when set.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		Language:       "rust",
		FileName:       "main.rs",
		MaxIterations:  0, // unlimited
		OnMissingFence: OnMissingFenceFail,
		RepeatWindow:   3,
	}
}

// Option configures a Loop.
type Option func(*Loop)

// WithObserver registers an event observer.
func WithObserver(obs Observer) Option {
	return func(l *Loop) {
		l.emitter.observers = append(l.emitter.observers, obs)
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(l *Loop) {
		l.emitter.runID = id
	}
}

// Loop drives one task to a compiling program. A Loop runs once.
type Loop struct {
	cfg       Config
	gen       Generator
	extractor extract.Extractor
	writer    Writer
	compiler  Compiler
	log       *logging.Logger
	prompts   *PromptBuilder
	emitter   *emitter
	history   *sourceHistory

	state     State
	iteration int
	source    string
	records   []IterationRecord
	attempts  []Attempt
	started   time.Time
}

// New creates a Loop.
func New(cfg Config, gen Generator, extractor extract.Extractor, writer Writer, compiler Compiler, log *logging.Logger, opts ...Option) (*Loop, error) {
	if strings.TrimSpace(cfg.Task) == "" {
		return nil, errors.New("agentloop: task is required")
	}
	if gen == nil || extractor == nil || writer == nil || compiler == nil {
		return nil, errors.New("agentloop: generator, extractor, writer and compiler are required")
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("agentloop: max iterations must not be negative, got %d", cfg.MaxIterations)
	}
	switch cfg.OnMissingFence {
	case "":
		cfg.OnMissingFence = OnMissingFenceFail
	case OnMissingFenceFail, OnMissingFenceRaw:
	default:
		return nil, fmt.Errorf("agentloop: unknown missing-fence policy %q", cfg.OnMissingFence)
	}
	if log == nil {
		log = logging.Nop()
	}

	l := &Loop{
		cfg:       cfg,
		gen:       gen,
		extractor: extractor,
		writer:    writer,
		compiler:  compiler,
		log:       log,
		prompts:   NewPromptBuilder(cfg.Language, cfg.FileName),
		emitter:   &emitter{runID: uuid.New().String()},
		history:   newSourceHistory(cfg.RepeatWindow),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// RunID returns the run identifier.
func (l *Loop) RunID() string { return l.emitter.runID }

// State returns the current state.
func (l *Loop) State() State { return l.state }

// Records returns the failed-iteration records so far.
func (l *Loop) Records() []IterationRecord {
	out := make([]IterationRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Run executes the loop until a clean compile or a fatal error. On
// success it returns the summary; on failure the summary so far is
// returned alongside the error.
func (l *Loop) Run(ctx context.Context) (*Summary, error) {
	if l.state != "" {
		return nil, errors.New("agentloop: loop already ran")
	}
	l.started = time.Now()
	l.transition(StateInit)
	l.iteration = 1
	l.log.Info("Selected project: " + l.cfg.Task)

	prompt, err := l.prompts.Initial(l.cfg.Task)
	if err != nil {
		return l.fail(err)
	}
	correction := false

	for {
		if err := ctx.Err(); err != nil {
			return l.fail(fmt.Errorf("run cancelled: %w", err))
		}

		// GENERATING
		l.transition(StateGenerating)
		code, err := l.generate(ctx, prompt)
		if err != nil {
			return l.fail(err)
		}
		if prev := l.history.Observe(l.iteration, code); prev > 0 {
			l.log.Warn(fmt.Sprintf("Model returned the same source as iteration %d", prev),
				zap.Int("iteration", l.iteration))
			l.emitter.emit(EventRepeatedSource, l.state, l.iteration, nil, map[string]interface{}{
				"previous_iteration": prev,
			})
		}
		l.source = code

		// WRITING
		l.transition(StateWriting)
		path, err := l.writer.WriteSource(l.iteration, code)
		if err != nil {
			return l.fail(fmt.Errorf("write iteration %d: %w", l.iteration, err))
		}
		l.log.Info("File generated", zap.String("path", path))

		// COMPILING
		l.transition(StateCompiling)
		result, err := l.compiler.Compile(ctx, path)
		if err != nil {
			return l.fail(fmt.Errorf("compile iteration %d: %w", l.iteration, err))
		}
		l.attempts = append(l.attempts, Attempt{
			Iteration:  l.iteration,
			Correction: correction,
			SourcePath: path,
			Source:     code,
			ExitCode:   result.ExitCode,
			TimedOut:   result.TimedOut,
			Duration:   result.Duration,
		})

		if result.Succeeded() {
			l.log.Info("Code compiled")
			l.log.Info("Compilation successful with 0 warnings and 0 errors")
			l.transition(StateSucceeded)
			return l.succeed(path), nil
		}

		l.recordFailure(result)
		if l.cfg.MaxIterations > 0 && l.iteration >= l.cfg.MaxIterations {
			return l.fail(fmt.Errorf("%w (%d iterations)", ErrIterationLimit, l.iteration))
		}

		// CORRECTING
		l.transition(StateCorrecting)
		l.log.Info("Trying to correct the code")
		prompt, err = l.prompts.Correction(l.cfg.Task, l.source, l.diagnostics(result))
		if err != nil {
			return l.fail(err)
		}
		l.iteration++
		correction = true
	}
}

// generate calls the model and extracts the code block.
func (l *Loop) generate(ctx context.Context, prompt string) (string, error) {
	response, err := l.gen.Generate(ctx, l.cfg.SystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generate iteration %d: %w", l.iteration, err)
	}
	if strings.TrimSpace(response) == "" {
		return "", ErrEmptyResponse
	}
	l.log.Info("Response generated", zap.Int("chars", len(response)))

	block := l.extractor.Extract(response)
	switch {
	case !block.Found && l.cfg.OnMissingFence == OnMissingFenceRaw:
		l.log.Warn("No code block in response, using the raw response")
		l.emitter.emit(EventWarning, l.state, l.iteration, ErrNoCodeBlock, nil)
		return strings.TrimSpace(response), nil
	case !block.Found:
		return "", ErrNoCodeBlock
	case block.Code == "":
		return "", fmt.Errorf("%w: code block is empty", ErrEmptyResponse)
	}
	if block.Unterminated {
		l.log.Warn("Code block is not terminated, using the rest of the response")
	}
	l.log.Info("Code extracted")
	return block.Code, nil
}

// recordFailure parses the error count and appends an IterationRecord.
func (l *Loop) recordFailure(result *toolchain.CompileResult) {
	count, known := l.compiler.ErrorCount(result)
	rec := IterationRecord{Iteration: l.iteration, ErrorCount: count, Known: known}
	l.records = append(l.records, rec)

	switch {
	case result.TimedOut:
		l.log.Error("Compilation timed out", zap.Int("iteration", l.iteration))
	case known:
		l.log.Error(fmt.Sprintf("Compilation failed with %d errors", count))
	default:
		l.log.Error("Compilation failed with an unknown number of errors")
	}
	l.emitter.emit(EventCompileFailed, l.state, l.iteration, nil, map[string]interface{}{
		"exit_code":   result.ExitCode,
		"error_count": count,
		"known":       known,
	})
}

// diagnostics is the compiler text embedded in the correction prompt.
func (l *Loop) diagnostics(result *toolchain.CompileResult) string {
	text := result.Stderr
	if strings.TrimSpace(text) == "" {
		text = result.Output()
	}
	if result.TimedOut && strings.TrimSpace(text) == "" {
		text = "compilation timed out"
	}
	return TruncateDiagnostics(text, l.cfg.MaxDiagnosticChars, l.cfg.MaxDiagnosticLines)
}

func (l *Loop) transition(to State) {
	from := l.state
	l.state = to
	l.log.Info("State "+string(to),
		zap.String("from", string(from)),
		zap.Int("iteration", l.iteration))
	l.emitter.emit(EventTransition, to, l.iteration, nil, map[string]interface{}{
		"from": string(from),
	})
}

func (l *Loop) fail(err error) (*Summary, error) {
	l.log.Error(err.Error(), zap.Int("iteration", l.iteration), zap.String("state", string(l.state)))
	l.state = StateFailed
	l.emitter.emit(EventTransition, StateFailed, l.iteration, err, nil)
	return l.summary(""), err
}

func (l *Loop) succeed(path string) *Summary {
	s := l.summary(path)
	l.log.Info(fmt.Sprintf("Program completed by correcting itself %d times", l.iteration))
	for _, line := range s.Lines() {
		l.log.Info(line)
	}
	return s
}

func (l *Loop) summary(path string) *Summary {
	return &Summary{
		RunID:      l.emitter.runID,
		State:      l.state,
		Iterations: l.iteration,
		Records:    l.Records(),
		Attempts:   append([]Attempt(nil), l.attempts...),
		SourcePath: path,
		Source:     l.source,
		Duration:   time.Since(l.started),
	}
}
