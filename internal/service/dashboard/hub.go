package dashboard

import (
	"slices"
	"sync"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/analytics"
	"github.com/KNICEX/auto-trader/internal/service/portfolio"
	"github.com/KNICEX/auto-trader/internal/service/strategy"
)

// DecisionRecord 一次非观望决策及风控/执行结果
type DecisionRecord struct {
	At           time.Time
	Decision     strategy.Decision
	Approved     bool
	RejectReason string
	Executed     bool
	Detail       string
}

// State 每轮结束后发布给看板的只读快照
type State struct {
	EngineState     string
	TradingEnabled  bool
	Tick            uint64
	UpdatedAt       time.Time
	Account         portfolio.AccountState
	OpenPositions   []portfolio.Position
	ClosedPositions []portfolio.Position
	Signals         []strategy.Signal
	Decisions       []DecisionRecord
	Report          analytics.Report
}

// clone 切片复制一份, 发布后调用方再修改也不影响看板
func (s State) clone() State {
	s.OpenPositions = slices.Clone(s.OpenPositions)
	s.ClosedPositions = slices.Clone(s.ClosedPositions)
	s.Signals = slices.Clone(s.Signals)
	s.Decisions = slices.Clone(s.Decisions)
	return s
}

// Hub 保存最新状态并推送给订阅者; 慢订阅者只会丢掉中间状态
type Hub struct {
	mu     sync.RWMutex
	latest State
	subs   map[int]chan State
	nextId int
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]chan State),
	}
}

func (h *Hub) Publish(state State) {
	state = state.clone()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = state
	for _, ch := range h.subs {
		// 丢掉还没被读走的旧状态
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

func (h *Hub) Latest() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe 返回状态通道和取消函数, 取消后通道关闭
func (h *Hub) Subscribe() (<-chan State, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextId
	h.nextId++
	ch := make(chan State, 1)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}
