// Package toolchain detects the host environment and drives the external
// compiler: probing CPU family, pointer width and compiler version at
// startup, compiling one source file per iteration, and counting errors
// in the compiler's diagnostics.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/bits"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/OmBiradar/deepruster/logging"
)

// Startup failures. All of them are fatal.
var (
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	ErrCompilerNotFound        = errors.New("compiler not found")
	ErrUnparseableVersion      = errors.New("cannot parse compiler version")
)

// Machine families.
const (
	MachineARM = "ARM"
	MachineX86 = "x86"
)

// Pointer widths.
const (
	Arch32 = "32bit"
	Arch64 = "64bit"
)

// SystemDetails is filled once at startup and read-only afterwards.
type SystemDetails struct {
	Machine         string `json:"machine"`
	Architecture    string `json:"architecture"`
	CompilerVersion string `json:"compiler_version"`
	CompilerPath    string `json:"compiler_path"`
	OSName          string `json:"os_name"`
	OSVersion       string `json:"os_version"`
}

// HostInfo is the raw, unnormalized view of the host.
type HostInfo struct {
	Machine   string
	OSName    string
	OSVersion string
}

// Prober detects SystemDetails. The function fields default to the real
// host and can be replaced in tests.
type Prober struct {
	profile Profile
	log     *logging.Logger

	Host         func() (HostInfo, error)
	PointerWidth func() int
	LookPath     func(file string) (string, error)
	RunVersion   func(ctx context.Context, path string, args ...string) (string, error)
}

// NewProber creates a prober for the given toolchain.
func NewProber(profile Profile, log *logging.Logger) *Prober {
	return &Prober{
		profile:      profile,
		log:          log,
		Host:         hostInfo,
		PointerWidth: func() int { return bits.UintSize },
		LookPath:     exec.LookPath,
		RunVersion:   runVersion,
	}
}

// Probe inspects the host and the compiler. It stops at the first
// failure; every failure is logged before it is returned.
func (p *Prober) Probe(ctx context.Context) (*SystemDetails, error) {
	details := &SystemDetails{}

	host, err := p.Host()
	if err != nil {
		p.log.Error("Cannot read host information", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedArchitecture, err)
	}

	machine, ok := NormalizeMachine(host.Machine)
	if !ok {
		p.log.Error(fmt.Sprintf("Unsupported architecture: %s", host.Machine))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, host.Machine)
	}
	details.Machine = machine
	p.log.Info(fmt.Sprintf("Machine : %s", details.Machine))

	width := p.PointerWidth()
	switch width {
	case 64:
		details.Architecture = Arch64
	case 32:
		details.Architecture = Arch32
	default:
		p.log.Error(fmt.Sprintf("Unsupported architecture: %dbit", width))
		return nil, fmt.Errorf("%w: %d-bit pointers", ErrUnsupportedArchitecture, width)
	}
	p.log.Info(fmt.Sprintf("Architecture : %s", details.Architecture))

	details.OSName = host.OSName
	details.OSVersion = host.OSVersion
	p.log.Info(fmt.Sprintf("Operating system : %s", details.OSName))
	p.log.Info(fmt.Sprintf("OS version : %s", details.OSVersion))

	path, err := p.LookPath(p.profile.Binary())
	if err != nil {
		p.log.Error(fmt.Sprintf("Compiler %s not found", p.profile.Binary()), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrCompilerNotFound, p.profile.Binary())
	}
	details.CompilerPath = path

	out, err := p.RunVersion(ctx, path, p.profile.VersionArgs()...)
	if err != nil {
		p.log.Error("Cannot get the version of the compiler", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnparseableVersion, err)
	}
	version, ok := p.profile.ParseVersion(out)
	if !ok || !semver.IsValid("v"+version) {
		p.log.Error(fmt.Sprintf("Cannot get the version of the compiler: %s", strings.TrimSpace(out)))
		return nil, fmt.Errorf("%w: %q", ErrUnparseableVersion, strings.TrimSpace(out))
	}
	details.CompilerVersion = version
	p.log.Info(fmt.Sprintf("Compiler version : %s", details.CompilerVersion))

	return details, nil
}

// NormalizeMachine maps a raw machine name onto ARM or x86.
func NormalizeMachine(raw string) (string, bool) {
	m := strings.ToLower(raw)
	switch {
	case strings.Contains(m, "arm"), strings.Contains(m, "aarch64"):
		return MachineARM, true
	case strings.Contains(m, "x86"), strings.Contains(m, "amd64"),
		strings.Contains(m, "i386"), strings.Contains(m, "i686"):
		return MachineX86, true
	default:
		return "", false
	}
}

func runVersion(ctx context.Context, path string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return stdout.String(), err
	}
	return stdout.String(), nil
}
