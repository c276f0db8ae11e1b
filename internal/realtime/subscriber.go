package realtime

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SnapshotFunc is invoked with the subtree name whenever the mirror reports
// a change. It must be idempotent: the stream replays the current state on
// every (re)connect, so the first event after connecting is not a delta.
type SnapshotFunc func(subtree string)

// Subscriber keeps one server-sent-events subscription per watched subtree
// and reconnects with a fixed delay when the stream drops.
type Subscriber struct {
	baseURL        string
	client         *http.Client
	logger         *zap.Logger
	reconnectDelay time.Duration
}

// NewSubscriber constructs a Subscriber.
func NewSubscriber(baseURL string, reconnectDelay time.Duration, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Subscriber{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         &http.Client{},
		logger:         logger,
		reconnectDelay: reconnectDelay,
	}
}

// Watch subscribes to the named subtrees and invokes onChange for every
// event until the context is cancelled. Each subtree gets its own stream.
func (s *Subscriber) Watch(ctx context.Context, onChange SnapshotFunc, subtrees ...string) {
	for _, subtree := range subtrees {
		go s.watchOne(ctx, subtree, onChange)
	}
}

func (s *Subscriber) watchOne(ctx context.Context, subtree string, onChange SnapshotFunc) {
	for {
		if err := s.stream(ctx, subtree, onChange); err != nil && ctx.Err() == nil {
			s.logger.Warn("event stream dropped", zap.String("subtree", subtree), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Subscriber) stream(ctx context.Context, subtree string, onChange SnapshotFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+subtree+".json", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			// put carries the replayed snapshot or a changed path, patch a
			// partial update; both mean the subtree moved.
			if event == "put" || event == "patch" {
				onChange(subtree)
			}
			event = ""
		}
	}
	return scanner.Err()
}
