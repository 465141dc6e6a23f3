package ai

import (
	"errors"

	"github.com/perceptra/braingym/internal/ai/gemini"
	"github.com/perceptra/braingym/internal/game"
)

type Config struct {
	APIKey      string
	BaseURL     string
	ImageModel  string
	VisionModel string
}

// New builds the puzzle provider for the configured backend. Currently
// Gemini only.
func New(cfg Config) (game.Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	return gemini.New(cfg.APIKey, cfg.BaseURL, cfg.ImageModel, cfg.VisionModel), nil
}
