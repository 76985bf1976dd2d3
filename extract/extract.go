// Package extract pulls the program out of a free-form model response.
//
// Two extractors are provided. Scanner walks the raw text looking for
// triple-backtick delimiters anywhere in the response. Markdown parses the
// response as CommonMark with goldmark and takes the first fenced code
// block, falling back to Scanner when the response has no block-level
// fence. Neither one fails: a response without a code block yields a
// Block with Found set to false, and the caller decides what that means.
package extract

import "strings"

// Fence is the code block delimiter.
const Fence = "```"

// Block is the result of an extraction.
type Block struct {
	// Code is the trimmed block body, language tag removed.
	Code string
	// Language is the tag that was stripped, if any.
	Language string
	// Found is false when the response had no opening fence.
	Found bool
	// Unterminated is true when the opening fence was never closed and
	// Code runs to the end of the response.
	Unterminated bool
}

// Extractor locates the first code block in a response.
type Extractor interface {
	Extract(response string) Block
}

// New returns the extractor registered under kind ("scanner" or
// "markdown"). tag is the language tag to strip from the block.
func New(kind, tag string) Extractor {
	switch strings.ToLower(kind) {
	case "markdown":
		return NewMarkdown(tag)
	default:
		return NewScanner(tag)
	}
}
