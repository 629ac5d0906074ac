package skills

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// SplitArguments splits a skill argument on whitespace while
// respecting single/double quotes and backslash escapes.
func SplitArguments(s string) []string {
	var words []string
	var word strings.Builder
	inQuote := false
	var quoteChar rune
	escaped := false

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for _, c := range s {
		switch {
		case escaped:
			word.WriteRune(c)
			escaped = false
		case c == '\\':
			escaped = true
		case inQuote:
			if c == quoteChar {
				inQuote = false
			} else {
				word.WriteRune(c)
			}
		case c == '"' || c == '\'':
			inQuote = true
			quoteChar = c
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			word.WriteRune(c)
		}
	}
	flush()
	return words
}

// TryParseJSON parses the argument as a JSON object when possible.
// Skills accept either JSON arguments or the flag syntax; this handles
// the former.
func TryParseJSON(arg string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(arg), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// SanitizePath trims whitespace and surrounding quotes from a path
// argument and expands a leading tilde.
func SanitizePath(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), `"'`)
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(trimmed, "~"), "/"))
		}
	}
	return trimmed
}

// Unescape resolves the escape sequences an LLM commonly emits inside
// quoted arguments: \n, \r, \t, \\, \", \'.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i+1 >= len(runes) {
			b.WriteRune(runes[i])
			continue
		}
		switch runes[i+1] {
		case 'n':
			b.WriteRune('\n')
			i++
		case 'r':
			b.WriteRune('\r')
			i++
		case 't':
			b.WriteRune('\t')
			i++
		case '\\', '"', '\'':
			b.WriteRune(runes[i+1])
			i++
		default:
			b.WriteRune('\\')
		}
	}
	return b.String()
}

// flagToken extracts a single-token `--flag=` value from anywhere in
// the argument and returns the argument with the flag removed, so
// token flags can appear in any order relative to trailing-rest flags
// like --content=.
func flagToken(arg, marker string) (rest, value string, found bool) {
	idx := strings.Index(arg, marker)
	if idx == -1 {
		return arg, "", false
	}
	tail := arg[idx+len(marker):]
	end := strings.IndexAny(tail, " \t\n\r")
	if end == -1 {
		end = len(tail)
	}
	value = strings.Trim(tail[:end], `"'`)
	rest = arg[:idx] + tail[end:]
	return rest, value, true
}

// flagValue extracts the value of a `--flag=` marker from a raw
// argument, returning the text before the marker and the (unquoted)
// value. Found is false when the marker is absent.
func flagValue(arg, marker string) (before, value string, found bool) {
	idx := strings.Index(arg, marker)
	if idx == -1 {
		return arg, "", false
	}
	before = arg[:idx]
	value = strings.TrimSpace(arg[idx+len(marker):])
	value = strings.Trim(value, `"'`)
	return before, value, true
}
