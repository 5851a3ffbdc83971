package llm

import (
	"regexp"
	"strings"

	"github.com/aeonisk/arbiter/internal/domain"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	bareObjectRe  = regexp.MustCompile(`(?s)\{.*\}`)
	bareArrayRe   = regexp.MustCompile(`(?s)\[.*\]`)
)

// ExtractJSONObject pulls the first JSON object out of a free-text model
// response: a fenced code block wins, then a bare {...} span. A response
// with neither is a typed parse error, never a silent miss.
func ExtractJSONObject(response string) (string, error) {
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		inner := strings.TrimSpace(m[1])
		if obj := bareObjectRe.FindString(inner); obj != "" {
			return obj, nil
		}
	}
	if obj := bareObjectRe.FindString(response); obj != "" {
		return obj, nil
	}
	return "", domain.ErrNoJSONInResponse
}

// ExtractJSONArray pulls the first JSON array out of a free-text model
// response, with the same fence-then-bare precedence as ExtractJSONObject.
func ExtractJSONArray(response string) (string, error) {
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		inner := strings.TrimSpace(m[1])
		if arr := bareArrayRe.FindString(inner); arr != "" {
			return arr, nil
		}
	}
	if arr := bareArrayRe.FindString(response); arr != "" {
		return arr, nil
	}
	return "", domain.ErrNoJSONInResponse
}
