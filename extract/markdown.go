package extract

import (
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// Markdown takes the first fenced code block of the parsed document.
// Responses whose fences are not at the start of a line fall through to
// a Scanner.
type Markdown struct {
	tag      string
	fallback *Scanner
}

// NewMarkdown creates a Markdown extractor. tag is only used by the
// fallback scanner; goldmark separates the info string on its own.
func NewMarkdown(tag string) *Markdown {
	return &Markdown{tag: tag, fallback: NewScanner(tag)}
}

func (m *Markdown) Extract(response string) Block {
	source := []byte(response)
	doc := getMarkdownParser().Parser().Parse(text.NewReader(source))

	var block *ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fenced, ok := n.(*ast.FencedCodeBlock); ok {
			block = fenced
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if block == nil {
		return m.fallback.Extract(response)
	}

	var code strings.Builder
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		code.Write(segment.Value(source))
	}

	return Block{
		Code:     strings.TrimSpace(code.String()),
		Language: string(block.Language(source)),
		Found:    true,
		// goldmark closes an unterminated fence at end of document.
		Unterminated: !hasClosingFence(response, block, source),
	}
}

// hasClosingFence reports whether a line closing the block's opening
// delimiter follows the block body. A closing fence uses the same
// character as the opening one and is at least as long.
func hasClosingFence(response string, block *ast.FencedCodeBlock, source []byte) bool {
	open, openEnd := openingFence(response, block)
	if open == "" {
		return false
	}
	after := openEnd
	if lines := block.Lines(); lines.Len() > 0 {
		after = lines.At(lines.Len() - 1).Stop
	}
	if after > len(source) {
		return false
	}
	for _, line := range strings.Split(response[after:], "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, open) && strings.Trim(trimmed, open[:1]) == "" {
			return true
		}
	}
	return false
}

// openingFence returns the delimiter run that opened block and the offset
// just past its line. The line is located from the info string or the
// first body line; a bare empty block falls back to the first fence line
// in the response.
func openingFence(response string, block *ast.FencedCodeBlock) (string, int) {
	lineStart := -1
	switch {
	case block.Info != nil:
		lineStart = strings.LastIndexByte(response[:block.Info.Segment.Start], '\n') + 1
	case block.Lines().Len() > 0:
		// The newline before the first body line ends the fence line.
		if nl := strings.LastIndexByte(response[:block.Lines().At(0).Start], '\n'); nl >= 0 {
			lineStart = strings.LastIndexByte(response[:nl], '\n') + 1
		}
	}
	for off := 0; lineStart < 0 && off < len(response); {
		line, _, _ := strings.Cut(response[off:], "\n")
		if fenceRun(line) != "" {
			lineStart = off
			break
		}
		off += len(line) + 1
	}
	if lineStart < 0 {
		return "", 0
	}

	lineEnd := len(response)
	if nl := strings.IndexByte(response[lineStart:], '\n'); nl >= 0 {
		lineEnd = lineStart + nl + 1
	}
	return fenceRun(response[lineStart:lineEnd]), lineEnd
}

// fenceRun returns the leading run of backticks or tildes on line when it
// is long enough to be a fence.
func fenceRun(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" || (trimmed[0] != '`' && trimmed[0] != '~') {
		return ""
	}
	n := len(trimmed) - len(strings.TrimLeft(trimmed, trimmed[:1]))
	if n < len(Fence) {
		return ""
	}
	return trimmed[:n]
}
