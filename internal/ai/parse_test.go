package ai

import (
	"errors"
	"testing"
)

func TestParseVariantBlocksPlainArray(t *testing.T) {
	blocks, err := parseVariantBlocks(`[{"platform":"x","variants":[{"text":"hi","format":"text"}]}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Platform != "x" || len(blocks[0].Variants) != 1 {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestParseVariantBlocksUnwrapsCodeFence(t *testing.T) {
	raw := "```json\n[{\"platform\":\"instagram\",\"variants\":[{\"text\":\"hello\"}]}]\n```"
	blocks, err := parseVariantBlocks(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if blocks[0].Platform != "instagram" {
		t.Fatalf("unexpected platform %q", blocks[0].Platform)
	}
}

func TestParseVariantBlocksSlicesSurroundingProse(t *testing.T) {
	raw := "Here are your captions:\n[{\"platform\":\"x\",\"variants\":[{\"text\":\"hi\"}]}]\nEnjoy!"
	blocks, err := parseVariantBlocks(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestParseVariantBlocksRejectsMalformedPayloads(t *testing.T) {
	cases := []string{
		"",
		"no json here",
		"[not valid json]",
		"[]",
		`{"platform":"x"}`,
	}
	for _, raw := range cases {
		if _, err := parseVariantBlocks(raw); !errors.Is(err, ErrParseFailure) {
			t.Fatalf("%q: expected ErrParseFailure, got %v", raw, err)
		}
	}
}
