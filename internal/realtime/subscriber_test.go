package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamInvokesCallbackPerEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "/Posts.json", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: put\ndata: {\"path\": \"/\", \"data\": {}}\n\n")
		fmt.Fprint(w, "event: keep-alive\ndata: null\n\n")
		fmt.Fprint(w, "event: patch\ndata: {\"path\": \"/post1\", \"data\": {}}\n\n")
	}))
	defer server.Close()

	sub := NewSubscriber(server.URL, time.Second, nil)
	var calls int32
	err := sub.stream(context.Background(), "Posts", func(subtree string) {
		assert.Equal(t, "Posts", subtree)
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, err)
	// keep-alive frames must not trigger a refresh.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWatchReconnectsUntilCancelled(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: put\ndata: {}\n\n")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := NewSubscriber(server.URL, 10*time.Millisecond, nil)

	var calls int32
	sub.Watch(ctx, func(string) { atomic.AddInt32(&calls, 1) }, "Chats")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&hits) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}
