package toolchain

import (
	"regexp"
	"strings"
)

// GoProfile builds single-file Go programs with "go build".
type GoProfile struct {
	BaseProfile
}

// NewGoProfile creates the go profile. "go version" prints
// "go version go1.24.7 linux/amd64".
func NewGoProfile() *GoProfile {
	return &GoProfile{
		BaseProfile: BaseProfile{
			id:             "go",
			language:       "go",
			binary:         "go",
			sourceExt:      ".go",
			entryFile:      "main.go",
			versionArgs:    []string{"version"},
			versionPattern: regexp.MustCompile(`go(\d+\.\d+\.\d+)`),
			diagnostics:    LineCountDiagnostics{Pattern: regexp.MustCompile(`(?m)^\S+\.go:\d+:\d+: `)},
		},
	}
}

func (p *GoProfile) CompileArgs(sourceFile string) []string {
	return []string{"build", "-o", strings.TrimSuffix(sourceFile, p.sourceExt), sourceFile}
}
