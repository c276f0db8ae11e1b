package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/abel-mek/school-roster-api/internal/dto"
	"github.com/abel-mek/school-roster-api/internal/models"
	appErrors "github.com/abel-mek/school-roster-api/pkg/errors"
)

type notificationSource interface {
	Subtrees(ctx context.Context, names ...string) map[string]map[string]json.RawMessage
	DeleteUnread(ctx context.Context, chatID, userID string) error
}

// NotificationService aggregates announcement posts and chat unread counts
// into one per-user feed. The feed is derived on every fetch; the only
// persisted state is the per-user seen-post set.
type NotificationService struct {
	mirror     notificationSource
	kv         kvStore
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	postWindow time.Duration
	cacheTTL   time.Duration
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(mirror notificationSource, kv kvStore, cache *CacheService, logger *zap.Logger, postWindow, cacheTTL time.Duration) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &NotificationService{
		mirror:     mirror,
		kv:         kv,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
		postWindow: postWindow,
		cacheTTL:   cacheTTL,
	}
}

// Feed builds the merged notification list for one user: unseen posts plus
// chats carrying an unread count for them, newest first. Seen posts are
// dropped at the source stage, so they never influence the unseen count.
func (s *NotificationService) Feed(ctx context.Context, userID string) (*dto.NotificationFeedResponse, bool, error) {
	if userID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}

	cacheKey := fmt.Sprintf("notif:feed:%s", userID)
	if s.cache.Enabled() {
		var cached dto.NotificationFeedResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	raw := s.mirror.Subtrees(ctx, models.SubtreePosts, models.SubtreeChats)
	posts := models.DecodePosts(raw[models.SubtreePosts])
	chats := models.DecodeChats(raw[models.SubtreeChats])

	seen := s.seenPosts(ctx, userID)
	cutoff := time.Time{}
	if s.postWindow > 0 {
		cutoff = s.now().Add(-s.postWindow)
	}

	items := make([]models.NotificationItem, 0, len(posts)+len(chats))
	for id, post := range posts {
		if _, done := seen[id]; done {
			continue
		}
		if !cutoff.IsZero() && !post.CreatedAt.IsZero() && post.CreatedAt.Before(cutoff) {
			continue
		}
		items = append(items, models.NotificationItem{
			ID:       id,
			Kind:     models.NotificationKindPost,
			Title:    post.Title,
			Body:     post.Body,
			SortTime: post.CreatedAt,
		})
	}
	for id, chat := range chats {
		unread := chat.Unread[userID]
		if unread <= 0 {
			continue
		}
		items = append(items, models.NotificationItem{
			ID:       "chat:" + id,
			Kind:     models.NotificationKindMessage,
			Title:    chat.Title,
			Body:     chat.LastMessage,
			ChatID:   id,
			Unread:   unread,
			SortTime: chat.LastMessageAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].SortTime.Equal(items[j].SortTime) {
			return items[i].SortTime.After(items[j].SortTime)
		}
		return items[i].ID < items[j].ID
	})

	resp := &dto.NotificationFeedResponse{Items: items, UnseenCount: len(items)}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)
	}
	return resp, false, nil
}

// MarkSeen records a post into the user's seen set so subsequent feeds omit
// it. Marking an already-seen post is a no-op.
func (s *NotificationService) MarkSeen(ctx context.Context, userID, postID string) error {
	if userID == "" || postID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "user id and post id are required")
	}
	if err := s.kv.AddToSet(ctx, seenScope(userID), "posts", postID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record seen post")
	}
	s.invalidateFeed(ctx, userID)
	return nil
}

// ClearUnread zeroes one chat's unread counter for the user by deleting it
// at the mirror boundary.
func (s *NotificationService) ClearUnread(ctx context.Context, userID, chatID string) error {
	if userID == "" || chatID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "user id and chat id are required")
	}
	if err := s.mirror.DeleteUnread(ctx, chatID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear unread counter")
	}
	s.invalidateFeed(ctx, userID)
	return nil
}

// InvalidateFeed drops the cached feed for one user. Called when upstream
// data changed out of band (realtime refresh hints).
func (s *NotificationService) InvalidateFeed(ctx context.Context, userID string) {
	s.invalidateFeed(ctx, userID)
}

func (s *NotificationService) invalidateFeed(ctx context.Context, userID string) {
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("notif:feed:%s", userID))
	}
}

// seenPosts loads the user's seen-post ids. A failing store degrades to an
// empty set: the user sees the post again rather than losing the feed.
func (s *NotificationService) seenPosts(ctx context.Context, userID string) map[string]struct{} {
	members, err := s.kv.SetMembers(ctx, seenScope(userID), "posts")
	if err != nil {
		s.logger.Warn("seen set unavailable", zap.String("user_id", userID), zap.Error(err))
		return map[string]struct{}{}
	}
	out := make(map[string]struct{}, len(members))
	for _, id := range members {
		out[id] = struct{}{}
	}
	return out
}

func seenScope(userID string) string {
	return fmt.Sprintf("seenposts:%s", userID)
}
