package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

const waitDelay = 2 * time.Second

// CompileResult holds the outcome of one compiler invocation.
type CompileResult struct {
	SourceFile string        `json:"source_file"`
	ExitCode   int           `json:"exit_code"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	TimedOut   bool          `json:"timed_out"`
	Duration   time.Duration `json:"duration"`
}

// Succeeded reports a clean compile.
func (r *CompileResult) Succeeded() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Output returns combined stdout and stderr.
func (r *CompileResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Compiler runs the external compiler on one source file at a time.
// There are no retries here; retrying is the correction loop's job.
type Compiler struct {
	profile Profile
	binary  string
	workDir string
	timeout time.Duration
}

// NewCompiler creates a Compiler that runs binary (normally the path
// found by the Prober) inside workDir. A zero timeout waits forever.
func NewCompiler(profile Profile, binary, workDir string, timeout time.Duration) *Compiler {
	if binary == "" {
		binary = profile.Binary()
	}
	return &Compiler{
		profile: profile,
		binary:  binary,
		workDir: workDir,
		timeout: timeout,
	}
}

// Profile returns the toolchain this compiler drives.
func (c *Compiler) Profile() Profile { return c.profile }

// Compile compiles sourcePath and waits for the compiler to exit. A
// non-zero exit status is reported in the result, not as an error; an
// error means the compiler could not be run at all.
func (c *Compiler) Compile(ctx context.Context, sourcePath string) (*CompileResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	file := filepath.Base(sourcePath)
	cmd := exec.CommandContext(ctx, c.binary, c.profile.CompileArgs(file)...)
	cmd.Dir = c.workDir
	if cmd.Dir == "" {
		cmd.Dir = filepath.Dir(sourcePath)
	}
	// Grandchildren can hold the output pipes open after a kill.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &CompileResult{
		SourceFile: sourcePath,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Duration:   time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.TimedOut = true
			result.ExitCode = -1
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("run %s: %w", c.binary, err)
		}
	}

	return result, nil
}

// ErrorCount parses the number of errors out of a failed result.
func (c *Compiler) ErrorCount(r *CompileResult) (int, bool) {
	if r.TimedOut {
		return 0, false
	}
	return c.profile.ErrorCount(r.Stdout, r.Stderr)
}
