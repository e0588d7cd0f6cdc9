// Package narrative produces an optional plain-language summary of an
// analysis using OpenAI. It is decoration over the statistics; its absence
// or failure never affects the pipeline output.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/surftemp/internal/stats"
)

// Generator summarizes aggregated statistics via the OpenAI API.
type Generator struct {
	client openai.Client
	model  openai.ChatModel
}

// NewGenerator creates a generator. It reads the OPENAI_API_KEY environment
// variable for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Summarize asks the model for a short description of the temperature
// regime captured by the series.
func (g *Generator) Summarize(ctx context.Context, series stats.TimeSeries) (string, error) {
	prompt := BuildPrompt(series)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You summarize land surface temperature statistics for a general audience in at most four sentences. Use degrees Celsius."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt formats the aggregated statistics as a compact textual table
// for the model.
func BuildPrompt(series stats.TimeSeries) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Land surface temperature observations: %d\n", series.Overall.Count)
	if series.Overall.Mean.Valid {
		fmt.Fprintf(&b, "Overall: mean %.1f, min %.1f, max %.1f, stddev %.1f\n",
			series.Overall.Mean.Float64, series.Overall.Min.Float64,
			series.Overall.Max.Float64, series.Overall.StdDev.Float64)
	}
	b.WriteString("Seasonal means:\n")
	for _, s := range series.Seasonal {
		if s.Mean.Valid {
			fmt.Fprintf(&b, "  %s: %.1f (%d scenes)\n", s.Season, s.Mean.Float64, s.Count)
		}
	}
	b.WriteString("Yearly means:\n")
	for _, y := range series.Yearly {
		if y.Mean.Valid {
			fmt.Fprintf(&b, "  %d: %.1f (%d scenes)\n", y.Year, y.Mean.Float64, y.Count)
		}
	}
	return b.String()
}
