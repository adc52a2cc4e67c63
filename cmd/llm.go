package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/workbench-dev/workbench/internal/llm"
)

// newLLMClient builds an Anthropic client from config, falling back to the
// standard environment variable. Returns nil when no key is available so
// callers can degrade gracefully.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}

	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}
