package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/KNICEX/auto-trader/internal/service/llm"
	"github.com/google/generative-ai-go/genai"
)

const defaultModel = "gemini-2.0-flash"

var _ llm.Service = (*Service)(nil)

type Service struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewService(client *genai.Client, opts ...Option) *Service {
	svc := &Service{
		client: client,
		model:  client.GenerativeModel(defaultModel),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type Option func(service *Service)

// WithModel 覆盖默认模型, 需要最先应用
func WithModel(name string) Option {
	return func(service *Service) {
		if name != "" {
			service.model = service.client.GenerativeModel(name)
		}
	}
}

func WithTemperature(temp float32) Option {
	return func(service *Service) {
		service.model.SetTemperature(temp)
	}
}

// WithJSONResponse 要求模型直接返回 json
func WithJSONResponse() Option {
	return func(service *Service) {
		service.model.ResponseMIMEType = "application/json"
	}
}

func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(q.Content))
	if err != nil {
		return llm.Answer{}, fmt.Errorf("gemini generate: %w", err)
	}
	ans := llm.Answer{
		Content: parseResponse(resp),
	}
	if resp.UsageMetadata != nil {
		ans.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		ans.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return ans, nil
}

func parseResponse(resp *genai.GenerateContentResponse) string {
	var resStr strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for i, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			if text, ok := part.(genai.Text); ok {
				if i > 0 {
					resStr.WriteString("\n")
				}
				resStr.WriteString(string(text))
			} else {
				return ""
			}
		}
	}
	return resStr.String()
}
