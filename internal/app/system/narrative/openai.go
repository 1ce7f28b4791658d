package narrative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/safetyhub/internal/app/system/retry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const instructions = `You write the monthly workplace safety summary for one employer.
Use only the facts given. Do not invent incidents, sites, people or numbers.
A rate marked below the reporting threshold must not be compared or ranked.
Write three short plain-text paragraphs: overview, rates, trend.`

// OpenAI generates narratives with the Responses API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a generator. The client's own retries are disabled; the
// caller's retry policy governs.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (g *OpenAI) Name() string { return "openai:" + g.model }

// Prompt is the user input sent to the model.
func Prompt(in Input) string {
	return "Facts:\n- " + strings.Join(Facts(in), "\n- ")
}

func (g *OpenAI) Generate(ctx context.Context, in Input) (string, error) {
	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(g.model),
		Instructions: param.NewOpt(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(Prompt(in)),
		},
	}
	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusTooManyRequests && apiErr.StatusCode != http.StatusRequestTimeout {
			return "", retry.Permanent(fmt.Errorf("openai responses: %w", err))
		}
		return "", fmt.Errorf("openai responses: %w", err)
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", errors.New("openai responses: empty output")
	}
	return text, nil
}
