package main

import (
	"context"
	"fmt"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/time/rate"

	"github.com/hupe1980/agoramesh/config"
	"github.com/hupe1980/agoramesh/model"
	"github.com/hupe1980/agoramesh/model/anthropic"
	"github.com/hupe1980/agoramesh/model/ollama"
	"github.com/hupe1980/agoramesh/model/openai"
)

// newModel builds the configured backend. The default model name targets
// Ollama, so hosted backends fall back to their SDK default unless a model
// was configured explicitly.
func newModel(s config.BackendSettings) (model.Model, error) {
	name := s.Model
	hosted := name
	if hosted == config.Default().Backend.Model {
		hosted = ""
	}

	switch s.Name {
	case config.BackendOllama:
		return ollama.NewModel(func(o *ollama.Options) {
			o.BaseURL = s.BaseURL
			o.Model = name
		}), nil
	case config.BackendOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if hosted != "" {
				o.Model = hosted
			}
			o.BaseURL = s.BaseURL
			o.APIKey = s.APIKey
		}), nil
	case config.BackendAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if hosted != "" {
				o.Model = sdkanthropic.Model(hosted)
			}
			o.BaseURL = s.BaseURL
			o.APIKey = s.APIKey
		}), nil
	case config.BackendMock:
		return model.NewMockModel("mock").SetFallback(dryRunAnswer), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", s.Name)
	}
}

func newRateLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

const stancesPrefix = "Valid stances for this scenario: "

// dryRunAnswer picks one of the advertised stances by seed parity so that
// mock runs exercise the whole pipeline without a backend.
func dryRunAnswer(_ context.Context, req model.Request) (*model.Response, error) {
	var stances []string
	for _, line := range strings.Split(req.System, "\n") {
		if rest, ok := strings.CutPrefix(line, stancesPrefix); ok {
			stances = strings.Split(rest, ", ")
		}
	}
	if len(stances) == 0 {
		return &model.Response{Text: "no stances advertised"}, nil
	}
	pick := 0
	if req.Seed != nil && *req.Seed%2 == 1 {
		pick = len(stances) - 1
	}
	return &model.Response{
		Text: fmt.Sprintf(`{"stance":%q,"rationale":"dry run","changed":false,"change_reason":"NO_CHANGE"}`, stances[pick]),
	}, nil
}
