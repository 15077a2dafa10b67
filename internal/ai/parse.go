package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawPlatformBlock is the model's output shape before policy
// enforcement.
type rawPlatformBlock struct {
	Platform string       `json:"platform"`
	Variants []rawVariant `json:"variants"`
}

type rawVariant struct {
	Text      string   `json:"text"`
	Format    string   `json:"format"`
	MediaURLs []string `json:"media_urls"`
	Hashtags  []string `json:"hashtags"`
}

// parseVariantBlocks decodes the model's reply. Models love wrapping
// JSON in markdown fences and surrounding prose, so the payload is
// sliced from the first '[' to the last ']' after unfencing.
func parseVariantBlocks(raw string) ([]rawPlatformBlock, error) {
	payload := stripCodeFence(raw)

	start := strings.Index(payload, "[")
	end := strings.LastIndex(payload, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no array found", ErrParseFailure)
	}
	payload = payload[start : end+1]

	var blocks []rawPlatformBlock
	if err := json.Unmarshal([]byte(payload), &blocks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrParseFailure)
	}
	return blocks, nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag like "json" on the opening fence.
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "[{") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
