package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abel-mek/school-roster-api/internal/models"
	"github.com/abel-mek/school-roster-api/pkg/config"
)

// MirrorRepository fetches flat entity subtrees from the upstream
// realtime-database REST endpoint. A missing subtree, an empty body or an
// unreachable mirror all yield an empty map, never an error: downstream
// joins must tolerate partial data. No retries, no caching.
type MirrorRepository struct {
	baseURL   string
	chatsPath string
	client    *http.Client
	logger    *zap.Logger
	metrics   MirrorMetrics
}

// MirrorMetrics receives fetch timings; nil disables instrumentation.
type MirrorMetrics interface {
	ObserveMirrorFetch(subtree string, duration time.Duration)
}

// NewMirrorRepository constructs a mirror client.
func NewMirrorRepository(cfg config.MirrorConfig, logger *zap.Logger, metrics MirrorMetrics) *MirrorRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	chatsPath := strings.Trim(cfg.ChatsPath, "/")
	if chatsPath == "" {
		chatsPath = models.SubtreeChats
	}
	return &MirrorRepository{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		chatsPath: chatsPath,
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		logger:    logger,
		metrics:   metrics,
	}
}

// Subtree fetches one named subtree as {recordId: record}.
func (r *MirrorRepository) Subtree(ctx context.Context, name string) map[string]json.RawMessage {
	raw := r.fetch(ctx, name)
	if len(raw) == 0 {
		return map[string]json.RawMessage{}
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		r.logger.Warn("mirror subtree not an object", zap.String("subtree", name), zap.Error(err))
		return map[string]json.RawMessage{}
	}
	if records == nil {
		return map[string]json.RawMessage{}
	}
	return records
}

// Subtrees fetches several subtrees as independent concurrent requests with
// no ordering guarantee between them.
func (r *MirrorRepository) Subtrees(ctx context.Context, names ...string) map[string]map[string]json.RawMessage {
	out := make(map[string]map[string]json.RawMessage, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			records := r.Subtree(ctx, name)
			mu.Lock()
			out[name] = records
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return out
}

// Record fetches a single nested record, e.g. LessonPlans/<teacherKey>/<courseId>.
// Absent records yield nil.
func (r *MirrorRepository) Record(ctx context.Context, segments ...string) json.RawMessage {
	return r.fetch(ctx, segments...)
}

// DeleteUnread clears a chat's unread counter for one user by writing null,
// per the mirror's boundary contract.
func (r *MirrorRepository) DeleteUnread(ctx context.Context, chatID, userID string) error {
	target := r.endpoint(r.chatsPath, chatID, "unread", userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader([]byte("null")))
	if err != nil {
		return fmt.Errorf("build unread clear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("clear unread for chat %s: %w", chatID, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("clear unread for chat %s: mirror returned %d", chatID, resp.StatusCode)
	}
	return nil
}

func (r *MirrorRepository) fetch(ctx context.Context, segments ...string) json.RawMessage {
	target := r.endpoint(segments...)
	if r.metrics != nil && len(segments) > 0 {
		start := time.Now()
		defer func() { r.metrics.ObserveMirrorFetch(segments[0], time.Since(start)) }()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		r.logger.Warn("mirror request build failed", zap.String("url", target), zap.Error(err))
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("mirror unreachable", zap.String("url", target), zap.Error(err))
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("mirror fetch failed", zap.String("url", target), zap.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Warn("mirror body read failed", zap.String("url", target), zap.Error(err))
		return nil
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

func (r *MirrorRepository) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return r.baseURL + "/" + strings.Join(escaped, "/") + ".json"
}
