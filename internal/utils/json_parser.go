// Package utils holds helpers for coping with model output
package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON is returned when no JSON value can be recovered from the input
var ErrNoJSON = errors.New("no JSON found in model output")

var (
	fencedJSON     = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAny      = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.+?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKey    = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	listItemPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
)

// ParseAIJSON decodes JSON from model output. The output may be bare
// JSON, fenced in a markdown code block, embedded in prose, or carry the
// usual defects (trailing commas, unquoted keys, single quotes).
func ParseAIJSON(input string, target any) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return fmt.Errorf("parse model output: %w", ErrNoJSON)
	}

	candidates := []string{input}
	if s := fromCodeFence(input); s != "" {
		candidates = append(candidates, s)
	}
	if s := firstBalanced(input); s != "" {
		candidates = append(candidates, s)
	}

	for _, c := range candidates {
		if json.Unmarshal([]byte(c), target) == nil {
			return nil
		}
	}
	for _, c := range candidates {
		if json.Unmarshal([]byte(repair(c)), target) == nil {
			return nil
		}
	}
	return fmt.Errorf("parse model output %q: %w", truncate(input, 100), ErrNoJSON)
}

// ParseAIStringList decodes a list of strings from model output. It
// accepts a JSON array, an object holding one array field such as
// {"questions": [...]}, or failing both a plain bulleted or numbered
// list with one item per line.
func ParseAIStringList(input string) ([]string, error) {
	var list []string
	if err := ParseAIJSON(input, &list); err == nil {
		return compact(list), nil
	}

	var obj map[string]json.RawMessage
	if err := ParseAIJSON(input, &obj); err == nil {
		for _, raw := range obj {
			if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
				return compact(list), nil
			}
		}
	}

	for _, line := range strings.Split(input, "\n") {
		if !listItemPrefix.MatchString(line) {
			continue
		}
		item := strings.Trim(listItemPrefix.ReplaceAllString(line, ""), " \"'")
		list = append(list, item)
	}
	list = compact(list)
	if len(list) == 0 {
		return nil, fmt.Errorf("parse string list %q: %w", truncate(input, 100), ErrNoJSON)
	}
	return list, nil
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fromCodeFence(input string) string {
	if m := fencedJSON.FindStringSubmatch(input); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := fencedAny.FindStringSubmatch(input); len(m) > 1 {
		content := strings.TrimSpace(m[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}
	return ""
}

// firstBalanced returns the first complete object or array in input,
// whichever opens earlier.
func firstBalanced(input string) string {
	obj := strings.IndexByte(input, '{')
	arr := strings.IndexByte(input, '[')
	switch {
	case obj < 0 && arr < 0:
		return ""
	case arr < 0 || (obj >= 0 && obj < arr):
		if s := balanced(input[obj:], '{', '}'); s != "" {
			return s
		}
		if arr >= 0 {
			return balanced(input[arr:], '[', ']')
		}
	default:
		if s := balanced(input[arr:], '[', ']'); s != "" {
			return s
		}
		if obj >= 0 {
			return balanced(input[obj:], '{', '}')
		}
	}
	return ""
}

func balanced(input string, open, close byte) string {
	depth := 0
	inString := false
	escape := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return input[:i+1]
			}
		}
	}
	return ""
}

func repair(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = unquotedKey.ReplaceAllString(s, `$1"$2"$3`)
	s = singleToDoubleQuotes(s)
	return controlChars.ReplaceAllString(s, "")
}

// singleToDoubleQuotes swaps single quotes that delimit values for double
// quotes. Apostrophes inside words are left alone.
func singleToDoubleQuotes(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	inDouble := false
	inSingle := false
	escape := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escape {
			b.WriteByte(ch)
			escape = false
			continue
		}
		switch ch {
		case '\\':
			escape = true
		case '"':
			if inSingle {
				b.WriteString(`\"`)
				continue
			}
			inDouble = !inDouble
		case '\'':
			if inDouble {
				break
			}
			if inSingle {
				if next := nextNonSpace(input, i+1); next == ',' || next == '}' || next == ']' || next == ':' || next == 0 {
					inSingle = false
					b.WriteByte('"')
					continue
				}
				break
			}
			if prev := prevNonSpace(input, i-1); prev == ':' || prev == ',' || prev == '[' || prev == '{' || prev == 0 {
				inSingle = true
				b.WriteByte('"')
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func prevNonSpace(s string, i int) byte {
	for ; i >= 0; i-- {
		if s[i] != ' ' && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			return s[i]
		}
	}
	return 0
}

func nextNonSpace(s string, i int) byte {
	for ; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
			return s[i]
		}
	}
	return 0
}

// truncate cuts s to at most n bytes without splitting a character
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
