package models

import (
	"encoding/json"
	"time"
)

// NotificationKind tags entries of the aggregated feed.
type NotificationKind string

const (
	NotificationKindPost    NotificationKind = "post"
	NotificationKindMessage NotificationKind = "message"
)

// NotificationItem is one entry of the merged feed. Items are derived on
// every fetch; only the per-user seen set is persisted.
type NotificationItem struct {
	ID       string           `json:"id"`
	Kind     NotificationKind `json:"kind"`
	Title    string           `json:"title"`
	Body     string           `json:"body,omitempty"`
	ChatID   string           `json:"chat_id,omitempty"`
	Unread   int              `json:"unread,omitempty"`
	SortTime time.Time        `json:"sort_time"`
}

// Post mirrors a record from the Posts subtree.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	AuthorID  string    `json:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat mirrors a record from the Chats subtree; Unread counts are keyed by
// user id and live on the chat record itself.
type Chat struct {
	ID            string         `json:"id"`
	Title         string         `json:"title,omitempty"`
	LastMessage   string         `json:"last_message,omitempty"`
	LastMessageAt time.Time      `json:"last_message_at"`
	Unread        map[string]int `json:"unread,omitempty"`
}

// NormalizePost builds a Post from a raw mirror record.
func NormalizePost(id string, rec map[string]interface{}) Post {
	return Post{
		ID:        id,
		Title:     pickString(rec, "title", "subject", "heading"),
		Body:      pickString(rec, "body", "content", "text"),
		AuthorID:  pickString(rec, "authorId", "userId", "postedBy"),
		CreatedAt: pickTime(rec, "createdAt", "timestamp", "postedAt"),
	}
}

// NormalizeChat builds a Chat from a raw mirror record.
func NormalizeChat(id string, rec map[string]interface{}) Chat {
	chat := Chat{
		ID:            id,
		Title:         pickString(rec, "title", "name"),
		LastMessage:   pickString(rec, "lastMessage", "last_message"),
		LastMessageAt: pickTime(rec, "lastMessageAt", "updatedAt", "timestamp"),
	}
	if counts, ok := rec["unread"].(map[string]interface{}); ok {
		chat.Unread = make(map[string]int, len(counts))
		for userID, value := range counts {
			if n, ok := value.(float64); ok && n > 0 {
				chat.Unread[userID] = int(n)
			}
		}
	}
	return chat
}

// DecodePosts converts a raw Posts subtree into typed records.
func DecodePosts(raw map[string]json.RawMessage) map[string]Post {
	out := make(map[string]Post, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizePost(id, rec)
	}
	return out
}

// DecodeChats converts a raw Chats subtree into typed records.
func DecodeChats(raw map[string]json.RawMessage) map[string]Chat {
	out := make(map[string]Chat, len(raw))
	for id, rec := range decodeRecords(raw) {
		out[id] = NormalizeChat(id, rec)
	}
	return out
}

// pickTime parses the first usable timestamp among the ordered source
// fields. Accepts RFC3339 strings and epoch milliseconds.
func pickTime(rec map[string]interface{}, keys ...string) time.Time {
	for _, key := range keys {
		switch v := rec[key].(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return ts
			}
			if ts, err := time.Parse("2006-01-02", v); err == nil {
				return ts
			}
		case float64:
			if v > 0 {
				return time.UnixMilli(int64(v)).UTC()
			}
		}
	}
	return time.Time{}
}
