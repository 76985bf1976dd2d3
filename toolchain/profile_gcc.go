package toolchain

import (
	"regexp"
	"strings"
)

// GCCProfile compiles single-file C programs with gcc.
type GCCProfile struct {
	BaseProfile
}

// NewGCCProfile creates the gcc profile. The first line of gcc --version
// looks like "gcc (Ubuntu 13.2.0-23ubuntu4) 13.2.0".
func NewGCCProfile() *GCCProfile {
	return &GCCProfile{
		BaseProfile: BaseProfile{
			id:             "gcc",
			language:       "c",
			binary:         "gcc",
			sourceExt:      ".c",
			entryFile:      "main.c",
			versionArgs:    []string{"--version"},
			versionPattern: regexp.MustCompile(`(?m)^gcc .*?(\d+\.\d+\.\d+)\s*$`),
			diagnostics:    LineCountDiagnostics{Pattern: regexp.MustCompile(`(?m): (fatal )?error: `)},
		},
	}
}

func (p *GCCProfile) CompileArgs(sourceFile string) []string {
	return []string{sourceFile, "-o", strings.TrimSuffix(sourceFile, p.sourceExt)}
}
