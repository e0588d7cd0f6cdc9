package narrative

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/lox/surftemp/internal/models"
	"github.com/lox/surftemp/internal/stats"
)

func TestBuildPrompt(t *testing.T) {
	records := []models.ObservationRecord{
		{Year: 2020, Month: 1, LSTMean: sql.NullFloat64{Float64: 18.2, Valid: true}},
		{Year: 2020, Month: 7, LSTMean: sql.NullFloat64{Float64: 31.4, Valid: true}},
		{Year: 2021, Month: 7, LSTMean: sql.NullFloat64{Float64: 33.0, Valid: true}},
	}
	series := stats.Aggregate(records, 2020, 2021)

	prompt := BuildPrompt(series)

	for _, want := range []string{
		"observations: 3",
		"Overall: mean 27.5",
		"Winter: 18.2 (1 scenes)",
		"Monsoon: 32.2 (2 scenes)",
		"2020: 24.8 (2 scenes)",
		"2021: 33.0 (1 scenes)",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Empty buckets stay out of the prompt.
	if strings.Contains(prompt, "Spring") {
		t.Errorf("prompt should omit empty Spring bucket:\n%s", prompt)
	}
}

func TestBuildPromptEmptySeries(t *testing.T) {
	prompt := BuildPrompt(stats.Aggregate(nil, 2020, 2020))
	if !strings.Contains(prompt, "observations: 0") {
		t.Errorf("prompt = %q", prompt)
	}
	if strings.Contains(prompt, "Overall:") {
		t.Error("empty series must not report overall statistics")
	}
}
