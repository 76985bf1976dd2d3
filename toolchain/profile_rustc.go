package toolchain

import "regexp"

// RustcProfile compiles single-file Rust programs with rustc.
type RustcProfile struct {
	BaseProfile
}

// NewRustcProfile creates the rustc profile.
//
// rustc prints "rustc 1.75.0 (82e1608df 2023-12-21)" for --version and
// ends a failed build with "error: aborting due to 3 previous errors".
func NewRustcProfile() *RustcProfile {
	return &RustcProfile{
		BaseProfile: BaseProfile{
			id:             "rustc",
			language:       "rust",
			binary:         "rustc",
			sourceExt:      ".rs",
			entryFile:      "main.rs",
			versionArgs:    []string{"--version"},
			versionPattern: regexp.MustCompile(`^rustc (\d+\.\d+\.\d+)`),
			diagnostics:    RustcDiagnostics{},
		},
	}
}

func (p *RustcProfile) CompileArgs(sourceFile string) []string {
	return []string{sourceFile}
}
