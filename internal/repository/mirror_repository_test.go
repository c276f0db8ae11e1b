package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abel-mek/school-roster-api/pkg/config"
)

func newMirror(t *testing.T, handler http.HandlerFunc) *MirrorRepository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewMirrorRepository(config.MirrorConfig{BaseURL: server.URL, FetchTimeout: time.Second}, zap.NewNop(), nil)
}

func TestMirrorSubtree(t *testing.T) {
	repo := newMirror(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Users.json", r.URL.Path)
		w.Write([]byte(`{"u1":{"name":"Abel"},"u2":{"name":"Sara"}}`)) //nolint:errcheck
	})

	records := repo.Subtree(context.Background(), "Users")
	require.Len(t, records, 2)
	assert.Contains(t, records, "u1")
}

func TestMirrorSubtreeMissingYieldsEmptyMap(t *testing.T) {
	repo := newMirror(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	records := repo.Subtree(context.Background(), "Courses")
	require.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMirrorSubtreeNullBodyYieldsEmptyMap(t *testing.T) {
	repo := newMirror(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null")) //nolint:errcheck
	})

	records := repo.Subtree(context.Background(), "Courses")
	assert.Empty(t, records)
}

func TestMirrorUnreachableYieldsEmptyMap(t *testing.T) {
	repo := NewMirrorRepository(config.MirrorConfig{BaseURL: "http://127.0.0.1:1", FetchTimeout: 100 * time.Millisecond}, zap.NewNop(), nil)

	records := repo.Subtree(context.Background(), "Users")
	require.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMirrorSubtreesFetchesIndependently(t *testing.T) {
	var calls int32
	repo := newMirror(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path == "/Users.json" {
			w.Write([]byte(`{"u1":{"name":"Abel"}}`)) //nolint:errcheck
			return
		}
		http.NotFound(w, r)
	})

	out := repo.Subtrees(context.Background(), "Users", "Students")
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Len(t, out["Users"], 1)
	assert.Empty(t, out["Students"])
}

func TestMirrorRecord(t *testing.T) {
	repo := newMirror(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/LessonPlans/t-9/9_A_Math.json", r.URL.Path)
		w.Write([]byte(`{"weeks":[{"week":1,"days":[]}]}`)) //nolint:errcheck
	})

	raw := repo.Record(context.Background(), "LessonPlans", "t-9", "9_A_Math")
	require.NotNil(t, raw)
	var rec map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Contains(t, rec, "weeks")
}

func TestMirrorDeleteUnread(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	repo := newMirror(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		buf := make([]byte, 32)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	})

	err := repo.DeleteUnread(context.Background(), "chat-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/Chats/chat-1/unread/u1.json", gotPath)
	assert.Equal(t, "null", gotBody)
}
