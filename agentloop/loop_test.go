package agentloop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/OmBiradar/deepruster/extract"
	"github.com/OmBiradar/deepruster/logging"
	"github.com/OmBiradar/deepruster/toolchain"
	"github.com/OmBiradar/deepruster/workspace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const task = "Implement a basic calculator that can perform addition, subtraction, multiplication, and division"

// scriptedGenerator returns its responses in order and records prompts.
type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
	systems   []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	g.systems = append(g.systems, system)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i >= len(g.responses) {
		return g.responses[len(g.responses)-1], nil
	}
	return g.responses[i], nil
}

// scriptedCompiler returns canned results in order.
type scriptedCompiler struct {
	results []*toolchain.CompileResult
	err     error
	paths   []string
}

func (c *scriptedCompiler) Compile(ctx context.Context, sourcePath string) (*toolchain.CompileResult, error) {
	c.paths = append(c.paths, sourcePath)
	if c.err != nil {
		return nil, c.err
	}
	i := len(c.paths) - 1
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	r := *c.results[i]
	r.SourceFile = sourcePath
	return &r, nil
}

func (c *scriptedCompiler) ErrorCount(r *toolchain.CompileResult) (int, bool) {
	if r.TimedOut {
		return 0, false
	}
	return toolchain.RustcDiagnostics{}.ErrorCount(r.Stdout, r.Stderr)
}

func ok() *toolchain.CompileResult { return &toolchain.CompileResult{ExitCode: 0} }

func failed(stderr string) *toolchain.CompileResult {
	return &toolchain.CompileResult{ExitCode: 1, Stderr: stderr}
}

func fenced(code string) string {
	return "Here you go:\n```rust\n" + code + "\n```\nEnjoy."
}

type harness struct {
	gen      *scriptedGenerator
	compiler *scriptedCompiler
	ws       *workspace.Workspace
	logs     *observer.ObservedLogs
	events   []Event
}

func newHarness(t *testing.T, cfg Config, gen *scriptedGenerator, compiler *scriptedCompiler) (*Loop, *harness) {
	t.Helper()
	ws, err := workspace.New(filepath.Join(t.TempDir(), "generated_code"), ".rs")
	require.NoError(t, err)
	_, err = ws.Reset()
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{gen: gen, compiler: compiler, ws: ws, logs: logs}

	if cfg.Task == "" {
		cfg.Task = task
	}
	if cfg.Language == "" {
		cfg.Language = "rust"
		cfg.FileName = "main.rs"
	}
	loop, err := New(cfg, gen, extract.New("scanner", "rust"), ws, compiler,
		logging.NewFromZap(zap.New(core)),
		WithObserver(func(e Event) { h.events = append(h.events, e) }),
		WithRunID("run-1"))
	require.NoError(t, err)
	return loop, h
}

func (h *harness) states() []State {
	var out []State
	for _, e := range h.events {
		if e.Kind == EventTransition {
			out = append(out, e.State)
		}
	}
	return out
}

func TestLoopSucceedsFirstTry(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("fn main() {}")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{ok()}}
	loop, h := newHarness(t, Config{}, gen, compiler)

	summary, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, summary.State)
	assert.Equal(t, 1, summary.Iterations)
	assert.Empty(t, summary.Records)
	assert.Len(t, gen.prompts, 1)
	assert.Len(t, compiler.paths, 1)
	assert.Equal(t, "run-1", summary.RunID)

	sources, err := h.ws.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	data, err := os.ReadFile(sources[0])
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}\n", string(data))
	assert.Equal(t, "main_1.rs", filepath.Base(summary.SourcePath))

	assert.Equal(t, []State{StateInit, StateGenerating, StateWriting, StateCompiling, StateSucceeded}, h.states())
	assert.Equal(t, 0, h.logs.FilterMessageSnippet("Iteration ").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("Program completed by correcting itself 1 times").Len())
}

func TestLoopCorrectsAfterFailure(t *testing.T) {
	stderr := "error[E0425]: cannot find value `y` in this scope\n\nerror: aborting due to 2 previous errors\n"
	gen := &scriptedGenerator{responses: []string{
		fenced("fn main() { x + y }"),
		fenced("fn main() {}"),
	}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{failed(stderr), ok()}}
	loop, h := newHarness(t, Config{}, gen, compiler)

	summary, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, summary.State)
	assert.Equal(t, 2, summary.Iterations)
	assert.Equal(t, []IterationRecord{{Iteration: 1, ErrorCount: 2, Known: true}}, summary.Records)
	assert.Equal(t, []string{"Iteration 1: 2 errors"}, summary.Lines())

	require.Len(t, gen.prompts, 2)
	assert.True(t, strings.HasPrefix(gen.prompts[1], "Correct the following Rust code for "+task))
	assert.Contains(t, gen.prompts[1], "fn main() { x + y }")
	assert.Contains(t, gen.prompts[1], "\n\nErrors\n\n"+stderr)

	assert.Equal(t, "main_1.rs", filepath.Base(compiler.paths[0]))
	assert.Equal(t, "main_2.rs", filepath.Base(compiler.paths[1]))
	assert.Len(t, summary.Attempts, 2)
	assert.True(t, summary.Attempts[1].Correction)

	assert.Equal(t, []State{
		StateInit,
		StateGenerating, StateWriting, StateCompiling, StateCorrecting,
		StateGenerating, StateWriting, StateCompiling, StateSucceeded,
	}, h.states())
	assert.Equal(t, 1, h.logs.FilterMessage("Iteration 1: 2 errors").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("Compilation failed with 2 errors").FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestLoopUnknownErrorCount(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("fn main() {"), fenced("fn main() {}")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{failed("something odd happened"), ok()}}
	loop, h := newHarness(t, Config{}, gen, compiler)

	summary, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []IterationRecord{{Iteration: 1, Known: false}}, summary.Records)
	assert.Equal(t, "Iteration 1: unknown errors", summary.Records[0].String())
	assert.Equal(t, 1, h.logs.FilterMessage("Compilation failed with an unknown number of errors").Len())
}

func TestLoopIterationIndicesIncrease(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("a"), fenced("b"), fenced("c"), fenced("d")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{
		failed("error: aborting due to 1 previous error"),
		failed("error: aborting due to 4 previous errors"),
		failed("nothing"),
		ok(),
	}}
	loop, _ := newHarness(t, Config{}, gen, compiler)

	summary, err := loop.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Records, 3)
	for i, rec := range summary.Records {
		assert.Equal(t, i+1, rec.Iteration)
	}
	assert.Equal(t, 4, summary.Iterations)
	// exactly one clean compile, and it is the last one
	clean := 0
	for _, a := range summary.Attempts {
		if a.ExitCode == 0 {
			clean++
		}
	}
	assert.Equal(t, 1, clean)
	assert.Equal(t, 0, summary.Attempts[len(summary.Attempts)-1].ExitCode)
}

func TestLoopIterationLimit(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("bad 1"), fenced("bad 2"), fenced("bad 3")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{failed("error: aborting due to 1 previous error")}}
	loop, h := newHarness(t, Config{MaxIterations: 2}, gen, compiler)

	summary, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrIterationLimit)
	assert.Len(t, compiler.paths, 2)
	assert.Equal(t, StateFailed, summary.State)
	assert.Len(t, summary.Records, 2)
	assert.Equal(t, StateFailed, loop.State())
	states := h.states()
	assert.Equal(t, StateFailed, states[len(states)-1])
}

func TestLoopEmptyResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"   \n"}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{ok()}}
	loop, h := newHarness(t, Config{}, gen, compiler)

	_, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.Empty(t, compiler.paths)
	assert.Equal(t, 1, h.logs.FilterLevelExact(zapcore.ErrorLevel).Len())

	sources, err := h.ws.Sources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestLoopEmptyCodeBlock(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"```rust\n```"}}
	loop, _ := newHarness(t, Config{}, gen, &scriptedCompiler{results: []*toolchain.CompileResult{ok()}})

	_, err := loop.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestLoopMissingFence(t *testing.T) {
	t.Run("fail", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"fn main() {}"}}
		compiler := &scriptedCompiler{results: []*toolchain.CompileResult{ok()}}
		loop, _ := newHarness(t, Config{}, gen, compiler)

		_, err := loop.Run(context.Background())
		require.ErrorIs(t, err, ErrNoCodeBlock)
		assert.Empty(t, compiler.paths)
	})

	t.Run("raw", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"  fn main() {}\n"}}
		compiler := &scriptedCompiler{results: []*toolchain.CompileResult{ok()}}
		loop, h := newHarness(t, Config{OnMissingFence: OnMissingFenceRaw}, gen, compiler)

		summary, err := loop.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "fn main() {}", summary.Source)
		assert.Equal(t, 1, h.logs.FilterLevelExact(zapcore.WarnLevel).Len())
	})
}

func TestLoopGeneratorError(t *testing.T) {
	boom := errors.New("connection refused")
	gen := &scriptedGenerator{responses: []string{""}, errs: []error{boom}}
	loop, _ := newHarness(t, Config{}, gen, &scriptedCompiler{results: []*toolchain.CompileResult{ok()}})

	_, err := loop.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestLoopWriteFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("fn main() {}")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{ok()}}
	loop, h := newHarness(t, Config{}, gen, compiler)

	// Replace the output directory with a file so writes fail.
	require.NoError(t, os.RemoveAll(h.ws.Dir()))
	require.NoError(t, os.WriteFile(h.ws.Dir(), []byte("x"), 0o644))

	_, err := loop.Run(context.Background())
	require.ErrorIs(t, err, workspace.ErrWriteFailure)
	assert.Empty(t, compiler.paths)
}

func TestLoopCompilerStartFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("fn main() {}")}}
	compiler := &scriptedCompiler{err: errors.New("exec: rustc: not found")}
	loop, _ := newHarness(t, Config{}, gen, compiler)

	summary, err := loop.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, summary.State)
}

func TestLoopCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scriptedGenerator{responses: []string{fenced("fn main() {}")}}
	loop, _ := newHarness(t, Config{}, gen, &scriptedCompiler{results: []*toolchain.CompileResult{ok()}})

	_, err := loop.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.prompts)
}

func TestLoopRunsOnce(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("fn main() {}")}}
	loop, _ := newHarness(t, Config{}, gen, &scriptedCompiler{results: []*toolchain.CompileResult{ok()}})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	_, err = loop.Run(context.Background())
	assert.Error(t, err)
}

func TestLoopRepeatedSourceWarning(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("same"), fenced("same"), fenced("fixed")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{
		failed("error: aborting due to 1 previous error"),
		failed("error: aborting due to 1 previous error"),
		ok(),
	}}
	loop, h := newHarness(t, Config{RepeatWindow: 3}, gen, compiler)

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.logs.FilterMessage("Model returned the same source as iteration 1").Len())

	repeats := 0
	for _, e := range h.events {
		if e.Kind == EventRepeatedSource {
			repeats++
			assert.Equal(t, 2, e.Iteration)
		}
	}
	assert.Equal(t, 1, repeats)
}

func TestLoopDiagnosticTruncation(t *testing.T) {
	stderr := strings.Repeat("e", 500) + "\nerror: aborting due to 9 previous errors"
	gen := &scriptedGenerator{responses: []string{fenced("a"), fenced("b")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{failed(stderr), ok()}}
	loop, _ := newHarness(t, Config{MaxDiagnosticChars: 100}, gen, compiler)

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[1], "characters removed from the middle")
	assert.NotContains(t, gen.prompts[1], strings.Repeat("e", 200))
}

func TestLoopSystemPrompt(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("fn main() {}")}}
	loop, _ := newHarness(t, Config{SystemPrompt: "<environment>\n</environment>"}, gen,
		&scriptedCompiler{results: []*toolchain.CompileResult{ok()}})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"<environment>\n</environment>"}, gen.systems)
}

func TestLoopTimedOutCompile(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{fenced("loop {}"), fenced("fn main() {}")}}
	compiler := &scriptedCompiler{results: []*toolchain.CompileResult{
		{ExitCode: -1, TimedOut: true},
		ok(),
	}}
	loop, _ := newHarness(t, Config{}, gen, compiler)

	summary, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []IterationRecord{{Iteration: 1, Known: false}}, summary.Records)
	assert.Contains(t, gen.prompts[1], "compilation timed out")
}

func TestNewValidation(t *testing.T) {
	gen := &scriptedGenerator{}
	compiler := &scriptedCompiler{}
	ex := extract.New("scanner", "rust")
	ws, err := workspace.New(t.TempDir(), ".rs")
	require.NoError(t, err)

	_, err = New(Config{}, gen, ex, ws, compiler, nil)
	assert.Error(t, err, "task required")

	_, err = New(Config{Task: task, MaxIterations: -1}, gen, ex, ws, compiler, nil)
	assert.Error(t, err)

	_, err = New(Config{Task: task, OnMissingFence: "guess"}, gen, ex, ws, compiler, nil)
	assert.Error(t, err)

	loop, err := New(Config{Task: task}, gen, ex, ws, compiler, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, loop.RunID())
	assert.Equal(t, OnMissingFenceFail, loop.cfg.OnMissingFence)
}
