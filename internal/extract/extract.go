// Package extract contains the heuristics for pulling code blocks and JSON
// objects out of free-form model output. All regex and tie-break logic lives
// here so pipeline stages are insulated from parser changes.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// codeIndicators are tokens that mark an untagged fenced block as code.
var codeIndicators = []string{"import", "def", "print", "for", "if", "="}

var (
	taggedFenceRe   = regexp.MustCompile("(?s)```python\\s*\\n(.*?)\\n```")
	untaggedFenceRe = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n```")
	inlineTaggedRe  = regexp.MustCompile("(?s)```python(.*?)```")
	inlineFenceRe   = regexp.MustCompile("(?s)```(.*?)```")
	thinkTagRe      = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// StripThinking removes <think>...</think> blocks emitted by reasoning models.
func StripThinking(text string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(text, ""))
}

// Code extracts one code block from markdown-formatted text.
//
// Tiers, in priority order: a fence tagged with the target language; an
// untagged fence containing a code-indicative token; an inline tagged fence;
// any remaining fence with a code-indicative token. Within a tier the longest
// candidate wins, since models sometimes emit a short exploratory snippet
// before the real solution. No match returns the empty string, which callers
// treat as "no code was generated", not as an error.
func Code(text string) string {
	if text == "" {
		return ""
	}
	text = StripThinking(text)

	if m := longestMatch(taggedFenceRe.FindAllStringSubmatch(text, -1), false); m != "" {
		return m
	}
	if m := longestMatch(untaggedFenceRe.FindAllStringSubmatch(text, -1), true); m != "" {
		return m
	}
	if m := longestMatch(inlineTaggedRe.FindAllStringSubmatch(text, -1), false); m != "" {
		return m
	}
	return longestMatch(inlineFenceRe.FindAllStringSubmatch(text, -1), true)
}

// longestMatch returns the longest trimmed submatch, optionally requiring a
// code-indicative token.
func longestMatch(matches [][]string, requireIndicator bool) string {
	var best string
	for _, m := range matches {
		candidate := m[1]
		if requireIndicator && !looksLikeCode(candidate) {
			continue
		}
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	return strings.TrimSpace(best)
}

func looksLikeCode(s string) bool {
	for _, tok := range codeIndicators {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// JSONObject extracts the first balanced JSON object found in free text,
// tolerating markdown fences and surrounding prose, and unmarshals it into
// dst. It returns false on any parse failure; callers fall back to their
// safe default rather than erroring.
func JSONObject(text string, dst any) bool {
	if text == "" {
		return false
	}
	text = StripThinking(text)

	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end, ok := balancedEnd(text, start); ok {
			if err := json.Unmarshal([]byte(text[start:end+1]), dst); err == nil {
				return true
			}
			// A balanced span that fails to parse is skipped; the next
			// opening brace may begin the real object.
		}
	}
	return false
}

// balancedEnd scans from an opening brace and returns the index of its
// matching close, honoring JSON string escapes.
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
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
				return i, true
			}
		}
	}
	return 0, false
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a solution name from a task description. Used as a fallback
// when the naming collaborator is unavailable.
func Slug(description string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(description), "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return strings.Trim(s, "-")
}
