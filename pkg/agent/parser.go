// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package agent

import "strings"

// Invocation is one tool call recovered from model output.
type Invocation struct {
	Name     string
	Argument string
}

const (
	fenceToolCode = "```tool_code"
	fenceJSON     = "```json"
	fenceClose    = "```"
)

// ExtractInvocations scans free-form model text left to right and returns
// every tool invocation it can recover, in textual order. Three envelopes
// are recognized: [NAME: arg], a ```tool_code fence, and a ```json fence
// whose first non-whitespace content looks like NAME:. Malformed or
// unregistered candidates are skipped silently; the scan resumes one rune
// past the opening delimiter so a bad candidate cannot hide a valid one
// inside it.
func ExtractInvocations(content string, isRegistered func(name string) bool) []Invocation {
	var tools []Invocation
	chars := []rune(content)
	n := len(chars)
	i := 0

	for i < n {
		markerLen := 0
		fenced := false

		if chars[i] == '[' {
			markerLen = 1
		} else if hasPrefixAt(chars, i, fenceToolCode) {
			markerLen = len(fenceToolCode)
			fenced = true
		} else if hasPrefixAt(chars, i, fenceJSON) && jsonFenceIsTool(chars, i+len(fenceJSON)) {
			markerLen = len(fenceJSON)
			fenced = true
		}

		if markerLen == 0 {
			i++
			continue
		}

		j := i + markerLen
		for j < n && isSpace(chars[j]) {
			j++
		}
		nameStart := j
		for j < n && isNameRune(chars[j]) {
			j++
		}

		if j < nameStart+2 || j >= n || chars[j] != ':' {
			// Not a tool name. Resume just past the opening delimiter.
			i++
			continue
		}
		name := string(chars[nameStart:j])

		argStart := j + 1
		end, ok := scanBody(chars, argStart, fenced)
		if !ok {
			// Unterminated envelope.
			i++
			continue
		}

		if !isRegistered(name) {
			i++
			continue
		}

		tools = append(tools, Invocation{
			Name:     name,
			Argument: strings.TrimSpace(string(chars[argStart:end])),
		})
		if fenced {
			i = end + len(fenceClose)
		} else {
			i = end + 1
		}
	}
	return tools
}

// scanBody finds the closing delimiter of an envelope body starting at
// pos: the ] that returns bracket depth to zero, or the next closing
// fence. Quote state ("," ', `) and backslash escapes are tracked so
// delimiters inside quoted text do not close the envelope.
func scanBody(chars []rune, pos int, fenced bool) (end int, ok bool) {
	depth := 1
	inQuote := false
	var quoteChar rune
	escape := false

	for cur := pos; cur < len(chars); cur++ {
		if fenced && !inQuote && hasPrefixAt(chars, cur, fenceClose) {
			return cur, true
		}
		c := chars[cur]
		switch {
		case escape:
			escape = false
		case c == '\\':
			escape = true
		case inQuote:
			if c == quoteChar {
				inQuote = false
			}
		case c == '"' || c == '\'' || c == '`':
			inQuote = true
			quoteChar = c
		case !fenced && c == '[':
			depth++
		case !fenced && c == ']':
			depth--
			if depth == 0 {
				return cur, true
			}
		}
	}
	return 0, false
}

// jsonFenceIsTool reports whether a ```json fence opening at pos is a
// tool call rather than an ordinary JSON sample: the first non-whitespace
// content must be an uppercase identifier of length >= 2 followed by ':'.
func jsonFenceIsTool(chars []rune, pos int) bool {
	for pos < len(chars) && isSpace(chars[pos]) {
		pos++
	}
	nameStart := pos
	for pos < len(chars) && isNameRune(chars[pos]) {
		pos++
	}
	return pos >= nameStart+2 && pos < len(chars) && chars[pos] == ':'
}

func hasPrefixAt(chars []rune, pos int, prefix string) bool {
	for _, p := range prefix {
		if pos >= len(chars) || chars[pos] != p {
			return false
		}
		pos++
	}
	return true
}

func isNameRune(c rune) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
