package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/KNICEX/auto-trader/internal/service/llm"
)

// Params 策略参数, 配置文件里是数值 map
type Params map[string]float64

func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(math.Round(v))
	}
	return def
}

type Config struct {
	Name   string `mapstructure:"name" yaml:"name" validate:"required,oneof=sma rsi bollinger llm"`
	Params Params `mapstructure:"params" yaml:"params,omitempty"`
}

// New 按配置创建策略, llmSvc 只有 llm 策略需要
func New(cfg Config, llmSvc llm.Service) (Strategy, error) {
	switch strings.ToLower(cfg.Name) {
	case "sma":
		return NewSMACrossStrategy(smaParams(cfg.Params))
	case "rsi":
		return NewRSIStrategy(rsiParams(cfg.Params))
	case "bollinger":
		return NewBollingerStrategy(bollingerParams(cfg.Params))
	case "llm":
		return NewLLMStrategy(llmSvc, cfg.Params.Int("lookback", 30))
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
	}
}

// NewAll 创建全部策略, 任何一个配置错误都直接返回
func NewAll(cfgs []Config, llmSvc llm.Service) ([]Strategy, error) {
	res := make([]Strategy, 0, len(cfgs))
	for i, cfg := range cfgs {
		s, err := New(cfg, llmSvc)
		if err != nil {
			return nil, fmt.Errorf("strategies[%d]: %w", i, err)
		}
		res = append(res, s)
	}
	return res, nil
}

// MaxLookback 所有策略中最大的回看长度
func MaxLookback(strategies []Strategy) int {
	res := 0
	for _, s := range strategies {
		res = max(res, s.Lookback())
	}
	return res
}
