package toolchain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Profile describes one compiler toolchain: how to find it, how to read
// its version, how to compile a single source file, and how to count the
// errors in its diagnostics.
type Profile interface {
	// ID returns the profile identifier (e.g. "rustc", "gcc", "go").
	ID() string

	// Language is the name the model knows the language by. It is used in
	// prompts and as the fence language tag stripped during extraction.
	Language() string

	// Binary is the executable looked up on PATH.
	Binary() string

	// SourceExt is the extension of generated source files, with the dot.
	SourceExt() string

	// EntryFile is the conventional file name mentioned in prompts.
	EntryFile() string

	// VersionArgs are passed to Binary to print its version.
	VersionArgs() []string

	// ParseVersion pulls MAJOR.MINOR.PATCH out of the version output.
	ParseVersion(output string) (string, bool)

	// CompileArgs returns the arguments that compile sourceFile, a bare
	// file name relative to the working directory.
	CompileArgs(sourceFile string) []string

	DiagnosticParser
}

// BaseProfile provides the common fields and default implementations.
type BaseProfile struct {
	id             string
	language       string
	binary         string
	sourceExt      string
	entryFile      string
	versionArgs    []string
	versionPattern *regexp.Regexp
	diagnostics    DiagnosticParser
}

func (p *BaseProfile) ID() string            { return p.id }
func (p *BaseProfile) Language() string      { return p.language }
func (p *BaseProfile) Binary() string        { return p.binary }
func (p *BaseProfile) SourceExt() string     { return p.sourceExt }
func (p *BaseProfile) EntryFile() string     { return p.entryFile }
func (p *BaseProfile) VersionArgs() []string { return append([]string(nil), p.versionArgs...) }

func (p *BaseProfile) ParseVersion(output string) (string, bool) {
	m := p.versionPattern.FindStringSubmatch(strings.TrimSpace(output))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (p *BaseProfile) ErrorCount(stdout, stderr string) (int, bool) {
	return p.diagnostics.ErrorCount(stdout, stderr)
}

var profiles = map[string]func() Profile{
	"rustc": func() Profile { return NewRustcProfile() },
	"gcc":   func() Profile { return NewGCCProfile() },
	"go":    func() Profile { return NewGoProfile() },
}

// DefaultProfileID is the toolchain used when none is configured.
const DefaultProfileID = "rustc"

// LookupProfile returns the profile registered under id.
func LookupProfile(id string) (Profile, error) {
	if id == "" {
		id = DefaultProfileID
	}
	ctor, ok := profiles[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("unknown toolchain %q (known: %s)", id, strings.Join(ProfileIDs(), ", "))
	}
	return ctor(), nil
}

// ProfileIDs lists the registered profile identifiers in sorted order.
func ProfileIDs() []string {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
