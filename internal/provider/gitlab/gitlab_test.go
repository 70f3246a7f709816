package gitlab

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/wardenbot/warden/internal/provider"
)

const pushEventPayload = `{
  "object_kind": "push",
  "ref": "refs/heads/tkt_4261_fix_login",
  "checkout_sha": "da1560886d4f094c3e6c9ef40349f7d38b5d27d7",
  "user_username": "jsmith",
  "project_id": 15,
  "project": {
    "id": 15,
    "name": "vault"
  }
}`

const branchDeletionPayload = `{
  "object_kind": "push",
  "ref": "refs/heads/tkt_4261_fix_login",
  "checkout_sha": null,
  "user_username": "jsmith",
  "project_id": 15,
  "project": {
    "id": 15,
    "name": "vault"
  }
}`

const mergeRequestEventPayload = `{
  "object_kind": "merge_request",
  "user": {
    "username": "jsmith"
  },
  "project": {
    "id": 15,
    "name": "vault"
  },
  "object_attributes": {
    "iid": 23,
    "source_project_id": 15,
    "source_branch": "tkt_4261_fix_login",
    "target_branch": "master",
    "title": "Tkt 4261: Fix login",
    "description": "Closes #4261",
    "state": "opened",
    "work_in_progress": false,
    "milestone_id": 3,
    "author_id": 12,
    "action": "open",
    "url": "https://gitlab.example.com/vault/-/merge_requests/23"
  },
  "labels": [
    {"title": "Test"}
  ]
}`

func newHookRequest(t *testing.T, eventType, payload string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-Gitlab-Event", eventType)
	req.Header.Set("X-Gitlab-Event-UUID", "9cf32c2a-4b17-43d1-90b1-fbfae7e6c863")

	return req
}

func TestHTTPHandlerPushEvent(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	evChan := make(chan *provider.Event, 1)
	t.Cleanup(func() { close(evChan) })

	p := New(evChan)

	respRecorder := httptest.NewRecorder()
	p.HTTPHandler(respRecorder, newHookRequest(t, "Push Hook", pushEventPayload))
	require.Equal(t, 200, respRecorder.Code)

	event := <-evChan

	assert.Equal(t, "gitlab", event.Provider)
	assert.Equal(t, "9cf32c2a-4b17-43d1-90b1-fbfae7e6c863", event.DeliveryID)
	assert.Equal(t, provider.KindPush, event.Kind)

	require.NotNil(t, event.Push)
	assert.Equal(t, 15, event.Push.ProjectID)
	assert.Equal(t, "vault", event.Push.ProjectName)
	assert.Equal(t, "tkt_4261_fix_login", event.Push.Branch)
	assert.Equal(t, "da1560886d4f094c3e6c9ef40349f7d38b5d27d7", event.Push.CheckoutSHA)
	assert.Equal(t, "jsmith", event.Push.UserUsername)
	assert.False(t, event.Push.Deleted())
}

func TestHTTPHandlerBranchDeletion(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	evChan := make(chan *provider.Event, 1)
	t.Cleanup(func() { close(evChan) })

	p := New(evChan)

	respRecorder := httptest.NewRecorder()
	p.HTTPHandler(respRecorder, newHookRequest(t, "Push Hook", branchDeletionPayload))
	require.Equal(t, 200, respRecorder.Code)

	event := <-evChan

	require.NotNil(t, event.Push)
	assert.True(t, event.Push.Deleted())
}

func TestHTTPHandlerMergeRequestEvent(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	evChan := make(chan *provider.Event, 1)
	t.Cleanup(func() { close(evChan) })

	p := New(evChan)

	respRecorder := httptest.NewRecorder()
	p.HTTPHandler(respRecorder, newHookRequest(t, "Merge Request Hook", mergeRequestEventPayload))
	require.Equal(t, 200, respRecorder.Code)

	event := <-evChan

	assert.Equal(t, provider.KindMergeRequest, event.Kind)

	mr := event.MergeRequest
	require.NotNil(t, mr)
	assert.Equal(t, 15, mr.ProjectID)
	assert.Equal(t, 23, mr.IID)
	assert.Equal(t, "tkt_4261_fix_login", mr.SourceBranch)
	assert.Equal(t, "master", mr.TargetBranch)
	assert.Equal(t, "opened", mr.State)
	assert.Equal(t, "open", mr.Action)
	assert.Equal(t, []string{"Test"}, mr.Labels)
	assert.Equal(t, "jsmith", mr.UserUsername)
}

func TestHTTPHandlerRejectsWrongToken(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	evChan := make(chan *provider.Event, 1)
	p := New(evChan, WithSecretToken("s3cret"))

	req := newHookRequest(t, "Push Hook", pushEventPayload)
	req.Header.Set("X-Gitlab-Token", "wrong")

	respRecorder := httptest.NewRecorder()
	p.HTTPHandler(respRecorder, req)

	assert.Equal(t, http.StatusForbidden, respRecorder.Code)
	assert.Empty(t, evChan)
}

func TestHTTPHandlerRejectsMalformedPayload(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	evChan := make(chan *provider.Event, 1)
	p := New(evChan)

	respRecorder := httptest.NewRecorder()
	p.HTTPHandler(respRecorder, newHookRequest(t, "Push Hook", "{ not json"))

	assert.Equal(t, http.StatusBadRequest, respRecorder.Code)
	assert.Empty(t, evChan)
}

func TestHTTPHandlerIgnoresUnsupportedHookTypes(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	evChan := make(chan *provider.Event, 1)
	p := New(evChan)

	respRecorder := httptest.NewRecorder()
	p.HTTPHandler(respRecorder, newHookRequest(t, "Note Hook", `{"object_kind": "note"}`))

	assert.Equal(t, 200, respRecorder.Code)
	assert.Empty(t, evChan)
}

func TestHTTPHandlerAnswers503WhenQueueIsFull(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	evChan := make(chan *provider.Event) // unbuffered, send always blocks
	p := New(evChan)

	respRecorder := httptest.NewRecorder()
	p.HTTPHandler(respRecorder, newHookRequest(t, "Push Hook", pushEventPayload))

	assert.Equal(t, http.StatusServiceUnavailable, respRecorder.Code)
}
