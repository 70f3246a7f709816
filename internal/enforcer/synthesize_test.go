package enforcer

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenbot/warden/internal/enforcer/mocks"
	"github.com/wardenbot/warden/internal/gitlabclt"
)

func TestSynthesizeSiblingMR(t *testing.T) {
	mockctrl := gomock.NewController(t)
	e := newTestEnforcer(t, multiMainPolicies,
		mocks.NewMockGitlabClient(mockctrl), mocks.NewMockNotifier(mockctrl))

	policy, ok := e.policies.PolicyFor(projectName)
	require.True(t, ok)

	parent := &gitlabclt.MergeRequest{
		IID:          3,
		Title:        "Fix login",
		Description:  "Closes #100",
		SourceBranch: "tkt_v1_100_fix",
		TargetBranch: "v1/dev",
		Labels:       []string{"Test", "no-changelog"},
	}

	spec := synthesizeSiblingMR(policy, parent, "v3")

	assert.Equal(t, "tkt_v3_100_fix", spec.SourceBranch)
	assert.Equal(t, "v3/dev", spec.TargetBranch)
	assert.Equal(t, "Fix login (v3 edition)", spec.Title)
	assert.Contains(t, spec.Description, "Closes #100")
	assert.Contains(t, spec.Description, "!3")
	// the no-changelog label is not duplicated
	assert.ElementsMatch(t, []string{"Test", "no-changelog"}, spec.Labels)
}

func TestIgnoreQuerySkipsMatchingEvents(t *testing.T) {
	const policies = `
projects:
  vault:
    ignore_query: '.user_username == "renovate"'
`

	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	e := newTestEnforcer(t, policies, clt, notifier)

	event := pushEvent("tkt_100_fix", "da1560886d")
	event.JSON = []byte(`{"user_username": "renovate"}`)

	outcome, err := e.HandlePush(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "ignored by project filter", outcome)
}

func TestInvalidIgnoreQueryFailsConstruction(t *testing.T) {
	const policies = `
projects:
  vault:
    ignore_query: '.user_username =='
`

	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	_, err := New(clt, notifier, loadPolicies(t, policies), nil)
	require.Error(t, err)
}
