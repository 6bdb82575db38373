package insight

import (
	"context"

	"github.com/bouyassine11/AnalytIQ/internal/ai"
)

// RuntimeGenerator adapts an ai.Runtime to Generator.
type RuntimeGenerator struct {
	Runtime     ai.Runtime
	Model       string
	MaxTokens   int
	Temperature float64
}

func (g *RuntimeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.Runtime.Generate(ctx, ai.NewRequest(g.Model, system, prompt, g.MaxTokens, g.Temperature))
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
