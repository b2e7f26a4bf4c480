package ioc

import (
	"context"

	"github.com/KNICEX/auto-trader/internal/config"
	"github.com/KNICEX/auto-trader/internal/service/llm"
	"github.com/KNICEX/auto-trader/internal/service/llm/gemini"
	"github.com/KNICEX/auto-trader/internal/service/strategy"
	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	"google.golang.org/api/option"
)

func InitGeminiCli(cfg config.GeminiConfig) *genai.Client {
	if len(cfg.ApiKey) == 0 {
		panic("no gemini api key set")
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.ApiKey[0]))
	if err != nil {
		panic(err)
	}
	return cli
}

// InitLLM 只有启用了 llm 策略才创建客户端, 否则返回 nil
func InitLLM(cfg config.Config) llm.Service {
	needed := lo.ContainsBy(cfg.Strategies, func(s strategy.Config) bool {
		return s.Name == "llm"
	})
	if !needed {
		return nil
	}
	return gemini.NewService(InitGeminiCli(cfg.LLM.Gemini),
		gemini.WithModel(cfg.LLM.Gemini.Model),
		gemini.WithTemperature(0.2),
		gemini.WithJSONResponse(),
	)
}
