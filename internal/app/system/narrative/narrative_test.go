package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/analytics/series"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/openai/openai-go/option"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func input(lti int, hours int64) Input {
	m := period.MustParse("2025-05")
	return Input{
		EmployerID:   primitive.NewObjectID(),
		EmployerName: "Harbor Freight Lines",
		Month:        m,
		Metrics:      rates.Calculate(m, rates.Counts{LTI: lti, MTI: 1, DaysLost: 6}, decimal.NewFromInt(hours), true, rates.DefaultPolicy()),
	}
}

func TestTemplate_Sufficient(t *testing.T) {
	text, err := Template{}.Generate(context.Background(), input(1, 125_000))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{
		"Safety summary for Harbor Freight Lines, 2025-05.",
		"Hours worked: 125,000 (sufficient).",
		"1 LTI, 1 MTI, 0 FAI, 0 other; 6 days lost.",
		"LTIFR 8.00, TRIFR 16.00, MTIFR 8.00 per million hours.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "threshold") {
		t.Error("sufficient month must not carry the threshold caveat")
	}
}

func TestTemplate_InsufficientAndUndefined(t *testing.T) {
	text, _ := Template{}.Generate(context.Background(), input(1, 400))
	if !strings.Contains(text, "below the reporting threshold") {
		t.Errorf("expected threshold caveat, got:\n%s", text)
	}

	text, _ = Template{}.Generate(context.Background(), input(1, 0))
	if !strings.Contains(text, "not defined") {
		t.Errorf("expected undefined-rate sentence, got:\n%s", text)
	}
	if strings.Contains(text, "LTIFR 0.00") {
		t.Error("zero hours must never render as a zero rate")
	}
}

func TestTemplate_Trend(t *testing.T) {
	in := input(1, 100_000) // LTIFR 10
	p := rates.DefaultPolicy()
	for i, lti := range []int{2, 4} { // 20, 40
		mm := rates.Calculate(period.MustParse("2025-03").AddMonths(i), rates.Counts{LTI: lti}, decimal.NewFromInt(100_000), true, p)
		in.Series = append(in.Series, series.Point{Month: mm.Month, Metrics: mm})
	}
	low := rates.Calculate(period.MustParse("2025-05"), rates.Counts{}, decimal.NewFromInt(10), true, p)
	in.Series = append(in.Series, series.Point{Month: low.Month, Metrics: low})

	text, _ := Template{}.Generate(context.Background(), in)
	if !strings.Contains(text, "Trailing average LTIFR: 30.00 across 2 of 3 months.") {
		t.Errorf("unexpected trend:\n%s", text)
	}
	if !strings.Contains(text, "20.00 below the trailing average") {
		t.Errorf("expected comparison to average:\n%s", text)
	}
}

func TestTemplate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Template{}).Generate(ctx, input(0, 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFormatHours(t *testing.T) {
	cases := map[string]string{"0": "0", "999": "999", "1000": "1,000", "1234567.6": "1,234,568"}
	for in, want := range cases {
		if got := formatHours(decimal.RequireFromString(in)); got != want {
			t.Errorf("formatHours(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenAI_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "resp_1",
			"object": "response",
			"status": "completed",
			"model": "gpt-4o-mini",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "  A calm month.  ", "annotations": []}]
			}]
		}`)
	}))
	defer srv.Close()

	g := NewOpenAI("test-key", "", option.WithBaseURL(srv.URL))
	if g.Name() != "openai:"+DefaultModel {
		t.Errorf("Name: got %q", g.Name())
	}
	text, err := g.Generate(context.Background(), input(0, 100_000))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "A calm month." {
		t.Errorf("text: got %q", text)
	}
	if body["model"] != DefaultModel {
		t.Errorf("model sent: %v", body["model"])
	}
	if s, _ := body["input"].(string); !strings.Contains(s, "Harbor Freight Lines") {
		t.Errorf("prompt missing facts: %q", s)
	}
}

func TestOpenAI_ClientErrorIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	g := NewOpenAI("test-key", "nope", option.WithBaseURL(srv.URL))
	_, err := g.Generate(context.Background(), input(0, 100_000))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("client retries must be disabled, got %d calls", calls)
	}
	if !strings.Contains(err.Error(), "openai responses") {
		t.Errorf("unexpected error: %v", err)
	}
}
