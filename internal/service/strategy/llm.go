package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/KNICEX/auto-trader/internal/service/llm"
	"github.com/samber/lo"
)

var _ Strategy = (*LLMStrategy)(nil)

// LLMStrategy 让大模型对最近的K线给出买卖判断; 结果不保证可复现, 默认不启用
type LLMStrategy struct {
	llmSvc   llm.Service
	lookback int
}

func NewLLMStrategy(llmSvc llm.Service, lookback int) (*LLMStrategy, error) {
	if llmSvc == nil {
		return nil, fmt.Errorf("llm strategy: no llm service configured")
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("llm strategy: invalid lookback %d", lookback)
	}
	return &LLMStrategy{llmSvc: llmSvc, lookback: lookback}, nil
}

func (s *LLMStrategy) Name() string {
	return "llm"
}

func (s *LLMStrategy) Lookback() int {
	return s.lookback
}

type llmVerdict struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (s *LLMStrategy) GenerateSignal(ctx context.Context, snapshot Snapshot) (Signal, error) {
	if snapshot.Len() < s.lookback {
		return Signal{}, fmt.Errorf("llm: need %d klines, got %d: %w", s.lookback, snapshot.Len(), ErrInsufficientData)
	}

	recent := snapshot.Klines[snapshot.Len()-s.lookback:]
	rows := lo.Map(recent, func(k exchange.Kline, _ int) string {
		return fmt.Sprintf("%s o=%s h=%s l=%s c=%s v=%s",
			k.OpenTime.UTC().Format("2006-01-02 15:04"), k.Open, k.High, k.Low, k.Close, k.Volume)
	})
	prompt := fmt.Sprintf("这是交易对 %s 最近 %d 根 %s K线数据:\n%s\n"+
		"只做现货多头, 请判断现在应该买入(BUY), 卖出(SELL)还是观望(HOLD), 没有明确机会请回答 HOLD, "+
		"并给出一个0-1的置信度(confidence)和理由(reason), 请按如下json格式回复我: "+
		`{"direction": "BUY | SELL | HOLD", "confidence": 0-1, "reason": "判断的原因"}`,
		snapshot.TradingPair, len(recent), snapshot.Interval, strings.Join(rows, "\n"))

	answer, err := s.llmSvc.AskOnce(ctx, llm.Question{Content: prompt})
	if err != nil {
		return Signal{}, err
	}

	var verdict llmVerdict
	if err = extractAnswer(answer, &verdict); err != nil {
		return Signal{}, fmt.Errorf("llm: parse answer: %w", err)
	}

	direction := Direction(strings.ToUpper(strings.TrimSpace(verdict.Direction)))
	switch direction {
	case DirectionBuy, DirectionSell, DirectionHold:
	default:
		return Signal{}, fmt.Errorf("llm: unknown direction %q", verdict.Direction)
	}
	strength := lo.Clamp(verdict.Confidence, 0, 1)
	if direction == DirectionHold {
		strength = 0
	}
	sig := newSignal(s.Name(), snapshot, direction, strength, verdict.Reason)
	sig.Metadata = map[string]any{
		"input_token":  answer.InputToken,
		"output_token": answer.OutputToken,
	}
	return sig, nil
}

// extractAnswer 兼容 ```json 代码块包裹的回复
func extractAnswer(answer llm.Answer, v any) error {
	content := strings.TrimSpace(answer.Content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) < 3 {
			return fmt.Errorf("invalid answer format")
		}
		content = strings.Join(lines[1:len(lines)-1], "\n")
	}
	return json.Unmarshal([]byte(content), v)
}
