package llm

import (
	"regexp"
	"strings"
)

const codeFence = "```"

// thinkTagPattern matches <think>...</think> tags that reasoning models may emit before the answer.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// UnwrapFences removes the wrappers models put around JSON despite being told not to:
// a leading <think> block, a leading ``` fence with an optional info string
// (```json), a trailing ``` fence, and surrounding whitespace.
// It does not validate the remaining text and is idempotent.
func UnwrapFences(response string) string {
	s := strings.TrimSpace(thinkTagPattern.ReplaceAllString(response, ""))

	if rest, ok := strings.CutPrefix(s, codeFence); ok {
		s = stripInfoString(rest)
	}

	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, codeFence); ok {
		s = strings.TrimSpace(rest)
	}

	return s
}

// stripInfoString drops the language tag that may follow an opening fence.
// With a newline the whole first line is the tag. Without one ("```json{...}")
// the tag is only dropped when JSON follows it, so "```true```" keeps its body.
func stripInfoString(rest string) string {
	if i := strings.IndexByte(rest, '\n'); i >= 0 && isInfoString(strings.TrimSpace(rest[:i])) {
		return rest[i+1:]
	}

	tagEnd := 0
	for tagEnd < len(rest) && isInfoChar(rest[tagEnd]) {
		tagEnd++
	}
	body := strings.TrimLeft(rest[tagEnd:], " \t")
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return body
	}
	return rest
}

func isInfoString(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isInfoChar(s[i]) {
			return false
		}
	}
	return true
}

func isInfoChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '+' || c == '.'
}
