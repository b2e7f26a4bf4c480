package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server 看板只读 HTTP 接口, 没有任何修改状态的路由
type Server struct {
	hub     *Hub
	metrics http.Handler
	logger  *slog.Logger

	upgrader   websocket.Upgrader
	httpServer *http.Server
}

func NewServer(hub *Hub, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		hub:     hub,
		metrics: metrics,
		logger:  logger.With("component", "dashboard"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
	return s
}

func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/positions/closed", s.handleClosedPositions).Methods(http.MethodGet)
	api.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	api.HandleFunc("/decisions", s.handleDecisions).Methods(http.MethodGet)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	router.HandleFunc("/ws", s.handleWebSocket)
	return router
}

// Run 监听 addr 直到 ctx 取消
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()
	s.logger.Info("dashboard listening", "addr", listener.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

// limitParam 解析 ?limit=, 非法或缺省返回 def
func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func head[T any](items []T, n int) []T {
	if n < len(items) {
		return items[:n]
	}
	return items
}

// tail 信号和决策按时间升序保存, 取最新的 n 条
func tail[T any](items []T, n int) []T {
	if n < len(items) {
		return items[len(items)-n:]
	}
	return items
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Latest())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Latest().OpenPositions)
}

func (s *Server) handleClosedPositions(w http.ResponseWriter, r *http.Request) {
	closed := s.hub.Latest().ClosedPositions
	s.writeJSON(w, head(closed, limitParam(r, len(closed))))
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	signals := s.hub.Latest().Signals
	s.writeJSON(w, tail(signals, limitParam(r, len(signals))))
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	decisions := s.hub.Latest().Decisions
	s.writeJSON(w, tail(decisions, limitParam(r, len(decisions))))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.hub.Latest().Report)
}

// handleWebSocket 先推一次最新状态, 之后每次发布都推送
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	states, cancel := s.hub.Subscribe()
	defer cancel()

	// 读循环只用来感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.hub.Latest()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if err := conn.WriteJSON(state); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
