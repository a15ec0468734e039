package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/config"
	"github.com/hyperjump/vidlens/internal/llm"
)

func TestParseText(t *testing.T) {
	out := "Here you go\nSUMMARY: A talk about Go.\nTOPICS: [goroutines, channels , , scheduler]\nQUOTES: Share memory by communicating | Don't panic |"
	res := ParseText(out)
	if res.Summary != "A talk about Go." {
		t.Errorf("summary = %q", res.Summary)
	}
	if strings.Join(res.Topics, ";") != "goroutines;channels;scheduler" {
		t.Errorf("topics = %v", res.Topics)
	}
	if len(res.KeyQuotes) != 2 || res.KeyQuotes[1] != "Don't panic" {
		t.Errorf("quotes = %v", res.KeyQuotes)
	}
}

func TestParseTextFallbackSummary(t *testing.T) {
	long := strings.Repeat("a", 250)
	if got := ParseText(long).Summary; got != strings.Repeat("a", 200)+"..." {
		t.Errorf("long summary = %q", got)
	}
	if got := ParseText("short answer").Summary; got != "short answer" {
		t.Errorf("short summary = %q", got)
	}
}

func TestAnalyzeStructured(t *testing.T) {
	m := &llm.Mock{Handler: func(ctx context.Context, req llm.Request) (string, error) {
		if req.Schema == nil {
			t.Error("expected schema request")
		}
		return `{"summary":"S","topics":["a","b","c","d","e","f","g","h"],"key_quotes":["q"],"sentiment":"positive","target_audience":"devs"}`, nil
	}}
	res, err := NewGenerator(m, config.AnalysisConfig{}, true, zap.NewNop()).Analyze(context.Background(), "t", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary != "S" || len(res.Topics) != 7 || res.Sentiment != "positive" || res.TargetAudience != "devs" {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(m.Calls()[0].Prompt, "Untitled Video") || !strings.Contains(m.Calls()[0].Prompt, "No description provided") {
		t.Error("placeholders missing from prompt")
	}
}

func TestAnalyzeFallsBackToText(t *testing.T) {
	m := &llm.Mock{Handler: func(ctx context.Context, req llm.Request) (string, error) {
		if req.Schema != nil {
			return "not json", nil
		}
		return "SUMMARY: text summary\nTOPICS: x, y", nil
	}}
	res, err := NewGenerator(m, config.AnalysisConfig{}, true, nil).Analyze(context.Background(), strings.Repeat("w", 5000), "T", "D")
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary != "text summary" || len(res.Topics) != 2 || res.KeyQuotes == nil {
		t.Errorf("result = %+v", res)
	}
	calls := m.Calls()
	if len(calls) != 2 || strings.Contains(calls[1].Prompt, strings.Repeat("w", 4001)) {
		t.Error("transcript should be truncated to 4000 characters")
	}
}

func TestAnalyzeLLMError(t *testing.T) {
	boom := errors.New("unavailable")
	m := &llm.Mock{Handler: func(context.Context, llm.Request) (string, error) { return "", boom }}
	if _, err := NewGenerator(m, config.AnalysisConfig{}, false, nil).Analyze(context.Background(), "t", "", ""); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}

func TestSummaryAndTopics(t *testing.T) {
	m := llm.NewMock("  A summary.  ", " Go, Concurrency ,, Testing,a,b,c,d,e ")
	g := NewGenerator(m, config.AnalysisConfig{}, false, nil)
	ctx := context.Background()

	s, err := g.Summary(ctx, "t", "Title")
	if err != nil || s != "A summary." {
		t.Errorf("summary=%q err=%v", s, err)
	}
	if m.Calls()[0].Temperature != 0.7 {
		t.Errorf("temperature = %v", m.Calls()[0].Temperature)
	}
	topics, err := g.Topics(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 7 || topics[0] != "Go" || topics[1] != "Concurrency" || topics[2] != "Testing" {
		t.Errorf("topics = %v", topics)
	}
}

func TestZeroTemperatureIsKept(t *testing.T) {
	m := llm.NewMock("A summary.")
	g := NewGenerator(m, config.AnalysisConfig{Temperature: config.Float64(0)}, false, nil)
	if _, err := g.Summary(context.Background(), "t", ""); err != nil {
		t.Fatal(err)
	}
	if got := m.Calls()[0].Temperature; got != 0 {
		t.Errorf("temperature = %v, want 0", got)
	}
}

func TestTopicsEmpty(t *testing.T) {
	g := NewGenerator(llm.NewMock(" , ,"), config.AnalysisConfig{}, false, nil)
	if _, err := g.Topics(context.Background(), "t"); !errors.Is(err, ErrNoContent) {
		t.Errorf("got %v", err)
	}
}
