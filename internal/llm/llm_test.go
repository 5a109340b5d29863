package llm

import "testing"

func TestBedrockModelTranslation(t *testing.T) {
	got := translateModelForBedrock("claude-sonnet-4-20250514")
	if got != "us.anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("translated = %q", got)
	}

	// Unknown models pass through untouched.
	got = translateModelForBedrock("us.anthropic.custom-v1:0")
	if got != "us.anthropic.custom-v1:0" {
		t.Errorf("passthrough = %q", got)
	}
}
