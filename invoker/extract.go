package invoker

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Extract recovers a JSON object from free-form model output. Candidates are
// tried in order: the whole trimmed text, the first ```json fenced block, the
// first fenced block of any kind, then every balanced {...} span from left to
// right. The first candidate that is a valid JSON object wins.
func Extract(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	if obj, ok := parseObject(text); ok {
		return obj, true
	}
	if block, ok := fenced(text, "```json"); ok {
		if obj, ok := parseObject(block); ok {
			return obj, true
		}
	}
	if block, ok := fenced(text, "```"); ok {
		if obj, ok := parseObject(block); ok {
			return obj, true
		}
	}
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if span, ok := balancedObject(text[start:]); ok {
			if obj, ok := parseObject(span); ok {
				return obj, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

func parseObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !gjson.Valid(s) {
		return nil, false
	}
	res := gjson.Parse(s)
	if !res.IsObject() {
		return nil, false
	}
	obj, ok := res.Value().(map[string]any)
	return obj, ok
}

// fenced returns the body of the first block opened by marker and closed by ```.
func fenced(text, marker string) (string, bool) {
	i := strings.Index(text, marker)
	if i < 0 {
		return "", false
	}
	body := text[i+len(marker):]
	if marker == "```" {
		// skip an info string such as ```javascript
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		}
	}
	j := strings.Index(body, "```")
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:j]), true
}

// balancedObject returns the prefix of s (which starts with '{') up to its
// matching closing brace, ignoring braces inside string literals.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
