package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNotifyUserSendsDirectMessage(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	var posted []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/users.list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"ok": true,
			"members": [
				{"id": "U1", "name": "jsmith", "profile": {"display_name": "John"}},
				{"id": "U2", "name": "gone", "deleted": true}
			],
			"response_metadata": {"next_cursor": ""}
		}`))
	})
	mux.HandleFunc("/conversations.open", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true, "channel": {"id": "D1"}}`))
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		posted = append(posted, params)
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	clt := NewClient("token", "#warden", "", WithBaseURL(srv.URL))

	err := clt.NotifyUser(context.Background(), "jsmith", "your merge request looks inactive")
	require.NoError(t, err)

	require.Len(t, posted, 1)
	assert.Equal(t, "D1", posted[0]["channel"])
	assert.Equal(t, "your merge request looks inactive", posted[0]["text"])
}

func TestNotifyUserFallsBackToErrorChannel(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	var posted []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/users.list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true, "members": []}`))
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		posted = append(posted, params)
		_, _ = w.Write([]byte(`{"ok": true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	clt := NewClient("token", "#warden", "", WithBaseURL(srv.URL))

	err := clt.NotifyUser(context.Background(), "unknown", "ping")
	require.NoError(t, err)

	require.Len(t, posted, 1)
	assert.Equal(t, "#warden", posted[0]["channel"])
	assert.Equal(t, "@unknown: ping", posted[0]["text"])
}

func TestNotifyDebugWithoutChannelIsANop(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	clt := NewClient("token", "#warden", "", WithBaseURL("http://unreachable.invalid"))

	require.NoError(t, clt.NotifyDebug(context.Background(), "noise"))
}

func TestCallReportsSlackErrors(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	clt := NewClient("token", "#warden", "", WithBaseURL(srv.URL))

	err := clt.NotifyError(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
