package toolchain

import (
	"regexp"
	"strconv"
)

// DiagnosticParser counts the errors a failed compile reported. The
// second result is false when the count cannot be determined; callers
// record that as unknown, never as zero.
type DiagnosticParser interface {
	ErrorCount(stdout, stderr string) (int, bool)
}

var rustcAbortPattern = regexp.MustCompile(`aborting due to (\d+) previous error`)

// RustcDiagnostics reads the trailing "aborting due to N previous
// error(s)" summary that rustc prints on failure.
type RustcDiagnostics struct{}

func (RustcDiagnostics) ErrorCount(stdout, stderr string) (int, bool) {
	for _, text := range []string{stderr, stdout} {
		m := rustcAbortPattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// LineCountDiagnostics counts the lines matching Pattern across both
// streams. Zero matches means unknown.
type LineCountDiagnostics struct {
	Pattern *regexp.Regexp
}

func (d LineCountDiagnostics) ErrorCount(stdout, stderr string) (int, bool) {
	n := len(d.Pattern.FindAllStringIndex(stderr, -1)) + len(d.Pattern.FindAllStringIndex(stdout, -1))
	if n == 0 {
		return 0, false
	}
	return n, true
}
