package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier 模拟通知
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event Event) error {
	return m.Called(ctx, event).Error(0)
}

func testEvent() Event {
	return Event{
		Kind:    EventPositionOpened,
		Pair:    "BTC/USDT",
		Message: "opened",
		Fields:  map[string]any{"price": "100"},
		At:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifier(t *testing.T) {
	var mu sync.Mutex
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(NewRestyWebhookService(resty.New()), srv.URL)
	require.NoError(t, n.Notify(context.Background(), testEvent()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "position_opened", got["kind"])
	assert.Equal(t, "BTC/USDT", got["pair"])
	assert.Equal(t, "2024-01-01T00:00:00Z", got["at"])
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(NewRestyWebhookService(resty.New()), srv.URL)
	assert.ErrorContains(t, n.Notify(context.Background(), testEvent()), "status 500")
}

func TestMulti(t *testing.T) {
	ok := new(MockNotifier)
	ok.On("Notify", mock.Anything, mock.Anything).Return(nil)
	bad := new(MockNotifier)
	bad.On("Notify", mock.Anything, mock.Anything).Return(errors.New("down"))

	err := Multi{ok, bad}.Notify(context.Background(), testEvent())
	assert.ErrorContains(t, err, "down")
	ok.AssertNumberOfCalls(t, "Notify", 1)
}

func TestAsyncNotifier(t *testing.T) {
	done := make(chan struct{})
	next := new(MockNotifier)
	next.On("Notify", mock.Anything, mock.Anything).Return(errors.New("down")).Run(func(args mock.Arguments) {
		close(done)
	})

	a := NewAsyncNotifier(next, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, a.Notify(ctx, testEvent()))
	// 调用方取消不影响后台发送
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async notify not delivered")
	}
}
