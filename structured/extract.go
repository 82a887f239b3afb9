package structured

import (
	"strings"
)

// Format identifies the payload syntax found in generated text.
type Format int

const (
	FormatNone Format = iota
	FormatYAML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "none"
	}
}

const fence = "```"

// Extract locates the structured payload in a model response. Fenced code
// blocks win; a block tagged json, or one whose body opens with a brace or
// bracket, is JSON and anything else fenced is YAML. Unfenced text is
// searched for a balanced JSON value first, then for a run of key: value lines.
func Extract(response string) (string, Format) {
	if body, lang, ok := fencedBlock(response); ok {
		if lang == "json" || looksLikeJSON(body) {
			return body, FormatJSON
		}
		return body, FormatYAML
	}

	if body := balancedJSON(response); body != "" {
		return body, FormatJSON
	}

	if body := yamlLines(response); body != "" {
		return body, FormatYAML
	}
	return "", FormatNone
}

// fencedBlock returns the body and language tag of the first fenced block.
func fencedBlock(response string) (body, lang string, ok bool) {
	start := strings.Index(response, fence)
	if start == -1 {
		return "", "", false
	}
	rest := response[start+len(fence):]

	// The language tag runs to the end of the opening line.
	newline := strings.IndexByte(rest, '\n')
	if newline == -1 {
		return "", "", false
	}
	lang = strings.ToLower(strings.TrimSpace(rest[:newline]))
	rest = rest[newline+1:]

	end := strings.Index(rest, fence)
	if end == -1 {
		return "", "", false
	}
	return strings.TrimSpace(rest[:end]), lang, true
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// balancedJSON returns the first brace-balanced object in s, skipping braces
// inside string literals.
func balancedJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// yamlLines collects the first run of lines that look like YAML mappings or
// sequence items.
func yamlLines(response string) string {
	var collected []string
	started := false

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)

		if !started {
			if isKeyLine(trimmed) {
				started = true
			} else {
				continue
			}
		}

		indented := len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
		if trimmed != "" && !indented && !isKeyLine(trimmed) &&
			!strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "#") {
			break
		}
		collected = append(collected, line)
	}

	return strings.TrimSpace(strings.Join(collected, "\n"))
}

func isKeyLine(trimmed string) bool {
	colon := strings.Index(trimmed, ":")
	if colon <= 0 {
		return false
	}
	// URLs are prose, not keys.
	return !strings.HasPrefix(trimmed[colon:], "://")
}
