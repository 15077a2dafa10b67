package ai

import (
	"strings"
	"unicode"

	"github.com/DartonStaker/appapost/internal/policy"
)

// truncateToLimit cuts text down to at most limit runes, ending in the
// truncation marker. A cut landing inside a hashtag backs off to the
// preceding word boundary so no half-hashtag ships.
func truncateToLimit(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	markerLen := len([]rune(policy.TruncationMarker))
	cut := limit - markerLen
	if cut <= 0 {
		return policy.TruncationMarker
	}
	head := runes[:cut]

	// Mid-token cut?
	if !unicode.IsSpace(runes[cut]) {
		if idx := lastSpaceIndex(head); idx >= 0 {
			token := string(head[idx+1:])
			if strings.HasPrefix(token, "#") {
				head = head[:idx]
			}
		}
	}

	for len(head) > 0 && unicode.IsSpace(head[len(head)-1]) {
		head = head[:len(head)-1]
	}
	return string(head) + policy.TruncationMarker
}

func lastSpaceIndex(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
