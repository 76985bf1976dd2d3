package agentloop

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// sourceSignature computes a deterministic signature for generated source,
// ignoring surrounding whitespace.
func sourceSignature(source string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(source)))
	return fmt.Sprintf("%x", h[:8])
}

// sourceHistory remembers the signatures of recent iterations.
type sourceHistory struct {
	window     int
	iterations []int
	sigs       []string
}

func newSourceHistory(window int) *sourceHistory {
	return &sourceHistory{window: window}
}

// Observe records the source for iteration and returns the most recent
// earlier iteration within the window that produced the same source, or 0.
func (h *sourceHistory) Observe(iteration int, source string) int {
	if h.window <= 0 {
		return 0
	}
	sig := sourceSignature(source)

	repeated := 0
	for i := len(h.sigs) - 1; i >= 0; i-- {
		if h.sigs[i] == sig {
			repeated = h.iterations[i]
			break
		}
	}

	h.sigs = append(h.sigs, sig)
	h.iterations = append(h.iterations, iteration)
	if len(h.sigs) > h.window {
		h.sigs = h.sigs[1:]
		h.iterations = h.iterations[1:]
	}
	return repeated
}
