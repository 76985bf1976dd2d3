package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type scanState int

const (
	seekingOpen scanState = iota
	inBlock
	closed
)

// Scanner finds the text between the first fence and the next one.
//
// The body starts immediately after the opening delimiter, so an info
// string such as "rust" is part of the body until it is stripped. Only
// the configured tag is stripped, and only when it is a whole word at the
// start of the body: with tag "c", "```cpp" keeps its info string.
type Scanner struct {
	tag string
}

// NewScanner creates a Scanner that strips tag from the block body.
func NewScanner(tag string) *Scanner {
	return &Scanner{tag: tag}
}

func (s *Scanner) Extract(response string) Block {
	state := seekingOpen
	bodyStart, bodyEnd := 0, len(response)

	pos := 0
	for state != closed {
		idx := strings.Index(response[pos:], Fence)
		if idx < 0 {
			break
		}
		at := pos + idx
		switch state {
		case seekingOpen:
			bodyStart = at + len(Fence)
			state = inBlock
		case inBlock:
			bodyEnd = at
			state = closed
		}
		pos = at + len(Fence)
	}

	switch state {
	case seekingOpen:
		return Block{}
	case inBlock:
		b := s.finish(response[bodyStart:])
		b.Unterminated = true
		return b
	default:
		return s.finish(response[bodyStart:bodyEnd])
	}
}

func (s *Scanner) finish(body string) Block {
	b := Block{Found: true}
	if hasTag(body, s.tag) {
		body = body[len(s.tag):]
		b.Language = s.tag
	}
	b.Code = strings.TrimSpace(body)
	return b
}

// hasTag reports whether body starts with tag followed by whitespace or
// the end of the body.
func hasTag(body, tag string) bool {
	if tag == "" || !strings.HasPrefix(body, tag) {
		return false
	}
	rest := body[len(tag):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}
