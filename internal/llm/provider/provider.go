// Package provider selects the configured extraction backend.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/llm"
	"github.com/joseph-ayodele/hotel-reports/internal/llm/gemini"
	"github.com/joseph-ayodele/hotel-reports/internal/llm/openai"
)

// New returns the DocumentExtractor named by cfg.Provider.
func New(cfg common.LLMConfig, logger *slog.Logger) (llm.DocumentExtractor, error) {
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			Timeout:      cfg.Timeout,
			StrictSchema: cfg.StrictSchema,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			Timeout:      cfg.Timeout,
			StrictSchema: cfg.StrictSchema,
		}, logger), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown llm provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}
