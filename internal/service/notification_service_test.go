package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotificationSource struct {
	subtrees map[string]map[string]json.RawMessage
	cleared  [][2]string
	clearErr error
}

func (s *stubNotificationSource) Subtrees(_ context.Context, names ...string) map[string]map[string]json.RawMessage {
	out := make(map[string]map[string]json.RawMessage, len(names))
	for _, name := range names {
		records, ok := s.subtrees[name]
		if !ok {
			records = map[string]json.RawMessage{}
		}
		out[name] = records
	}
	return out
}

func (s *stubNotificationSource) DeleteUnread(_ context.Context, chatID, userID string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = append(s.cleared, [2]string{chatID, userID})
	return nil
}

type stubKV struct {
	values map[string]string
	sets   map[string][]string
	err    error
}

func (s *stubKV) key(scope, key string) string { return scope + "/" + key }

func (s *stubKV) Get(_ context.Context, scope, key string) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	value, ok := s.values[s.key(scope, key)]
	return value, ok, nil
}

func (s *stubKV) Set(_ context.Context, scope, key, value string) error {
	if s.err != nil {
		return s.err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[s.key(scope, key)] = value
	return nil
}

func (s *stubKV) AddToSet(_ context.Context, scope, key, member string) error {
	if s.err != nil {
		return s.err
	}
	if s.sets == nil {
		s.sets = make(map[string][]string)
	}
	s.sets[s.key(scope, key)] = append(s.sets[s.key(scope, key)], member)
	return nil
}

func (s *stubKV) SetMembers(_ context.Context, scope, key string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sets[s.key(scope, key)], nil
}

func notificationFixtureSource() *stubNotificationSource {
	return &stubNotificationSource{subtrees: map[string]map[string]json.RawMessage{
		"Posts": {
			"post1": json.RawMessage(`{"title": "Sports day", "body": "Friday", "createdAt": "2025-09-08T10:00:00Z"}`),
			"post2": json.RawMessage(`{"title": "Exam schedule", "createdAt": "2025-09-09T10:00:00Z"}`),
		},
		"Chats": {
			"chatA": json.RawMessage(`{"title": "Grade 4 parents", "lastMessage": "See you", "lastMessageAt": "2025-09-10T08:00:00Z", "unread": {"u1": 3}}`),
			"chatB": json.RawMessage(`{"title": "Staff", "lastMessage": "ok", "lastMessageAt": "2025-09-10T09:00:00Z", "unread": {"u2": 1}}`),
		},
	}}
}

func TestFeedMergesPostsAndUnreadChats(t *testing.T) {
	svc := NewNotificationService(notificationFixtureSource(), &stubKV{}, nil, nil, 0, 0)

	resp, cached, err := svc.Feed(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, 3, resp.UnseenCount)

	// Newest first: chatA's message beats both posts; chatB is not for u1.
	assert.Equal(t, "chat:chatA", resp.Items[0].ID)
	assert.Equal(t, 3, resp.Items[0].Unread)
	assert.Equal(t, "chatA", resp.Items[0].ChatID)
	assert.Equal(t, "post2", resp.Items[1].ID)
	assert.Equal(t, "post1", resp.Items[2].ID)
}

func TestFeedDropsSeenPostsAtSource(t *testing.T) {
	kv := &stubKV{sets: map[string][]string{"seenposts:u1/posts": {"post1"}}}
	svc := NewNotificationService(notificationFixtureSource(), kv, nil, nil, 0, 0)

	resp, _, err := svc.Feed(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.UnseenCount)
	for _, item := range resp.Items {
		assert.NotEqual(t, "post1", item.ID)
	}
}

func TestFeedAppliesPostWindow(t *testing.T) {
	svc := NewNotificationService(notificationFixtureSource(), &stubKV{}, nil, nil, 24*time.Hour, 0)
	svc.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC) }

	resp, _, err := svc.Feed(context.Background(), "u1")
	require.NoError(t, err)
	// post1 (Sep 8) falls outside the 24h window; post2 and chatA stay.
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "chat:chatA", resp.Items[0].ID)
	assert.Equal(t, "post2", resp.Items[1].ID)
}

func TestFeedToleratesSeenSetFailure(t *testing.T) {
	kv := &stubKV{err: errors.New("redis down")}
	svc := NewNotificationService(notificationFixtureSource(), kv, nil, nil, 0, 0)

	resp, _, err := svc.Feed(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, resp.Items, 3)
}

func TestFeedWithEmptyMirror(t *testing.T) {
	source := &stubNotificationSource{subtrees: map[string]map[string]json.RawMessage{}}
	svc := NewNotificationService(source, &stubKV{}, nil, nil, 0, 0)

	resp, _, err := svc.Feed(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.UnseenCount)
}

func TestMarkSeenRecordsPost(t *testing.T) {
	kv := &stubKV{}
	svc := NewNotificationService(notificationFixtureSource(), kv, nil, nil, 0, 0)

	require.NoError(t, svc.MarkSeen(context.Background(), "u1", "post1"))
	assert.Equal(t, []string{"post1"}, kv.sets["seenposts:u1/posts"])
}

func TestClearUnreadDelegatesToMirror(t *testing.T) {
	source := notificationFixtureSource()
	svc := NewNotificationService(source, &stubKV{}, nil, nil, 0, 0)

	require.NoError(t, svc.ClearUnread(context.Background(), "u1", "chatA"))
	require.Len(t, source.cleared, 1)
	assert.Equal(t, [2]string{"chatA", "u1"}, source.cleared[0])
}

func TestClearUnreadSurfacesMirrorFailure(t *testing.T) {
	source := notificationFixtureSource()
	source.clearErr = errors.New("mirror returned 500")
	svc := NewNotificationService(source, &stubKV{}, nil, nil, 0, 0)

	err := svc.ClearUnread(context.Background(), "u1", "chatA")
	require.Error(t, err)
}
