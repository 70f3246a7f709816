package enforcer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/wardenbot/warden/internal/cfg"
	"github.com/wardenbot/warden/internal/enforcer/mocks"
	"github.com/wardenbot/warden/internal/gitlabclt"
	"github.com/wardenbot/warden/internal/provider"
)

const projectName = "vault"
const projectID = 1

const multiMainPolicies = `
projects:
  vault:
    branch_regex: '^(?:tkt|mig|sup|exp)_(?P<version>v\d+)_(?P<iid>\d+|y2k)[-_].+'
    main_branches: [v1, v2, v3]
    disabled_checks: [issue_metadata]
`

const singleMainPolicies = `
projects:
  vault:
    disabled_checks: [issue_metadata]
`

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func loadPolicies(t *testing.T, doc string) *cfg.Policies {
	t.Helper()

	policies, err := cfg.LoadPolicies(strings.NewReader(doc))
	require.NoError(t, err)

	return policies
}

func newTestEnforcer(t *testing.T, policiesDoc string, clt GitlabClient, notifier Notifier) *Enforcer {
	t.Helper()
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	e, err := New(clt, notifier, loadPolicies(t, policiesDoc), nil)
	require.NoError(t, err)

	return e
}

func pushEvent(branch, checkoutSHA string) *provider.Event {
	return &provider.Event{
		Provider:   "gitlab",
		DeliveryID: "delivery-1",
		Kind:       provider.KindPush,
		Push: &provider.PushEvent{
			ProjectID:    projectID,
			ProjectName:  projectName,
			Ref:          "refs/heads/" + branch,
			Branch:       branch,
			CheckoutSHA:  checkoutSHA,
			UserUsername: "jsmith",
		},
	}
}

func openMRsCall(clt *mocks.MockGitlabClient, sourceBranch string, result ...*gitlabclt.MergeRequest) *gomock.Call {
	return clt.EXPECT().
		MergeRequests(gomock.Any(), projectID, gitlabclt.MRFilters{
			SourceBranch: sourceBranch,
			State:        "opened",
			Scope:        "all",
		}).
		Return(result, nil)
}

func TestHandlePushPropagatesSiblingMR(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	parent := &gitlabclt.MergeRequest{
		IID:            3,
		ProjectID:      projectID,
		Title:          "Fix login",
		Description:    "Closes #100",
		State:          "opened",
		SourceBranch:   "tkt_v1_100_fix",
		TargetBranch:   "v1/dev",
		Labels:         []string{"Test"},
		AuthorUsername: "paula",
	}

	issue := &gitlabclt.Issue{IID: 100, ProjectID: projectID, State: "opened"}

	clt.EXPECT().
		Issue(gomock.Any(), projectID, 100).
		Return(issue, nil).
		AnyTimes()

	clt.EXPECT().
		RelatedMergeRequests(gomock.Any(), projectID, 100).
		Return([]*gitlabclt.MergeRequest{parent}, nil)

	openMRsCall(clt, "tkt_v1_100_fix", parent)
	openMRsCall(clt, "tkt_v2_100_fix")

	var createdSpec *gitlabclt.NewMergeRequest
	clt.EXPECT().
		CreateMergeRequest(gomock.Any(), projectID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int, spec *gitlabclt.NewMergeRequest) (*gitlabclt.MergeRequest, error) {
			createdSpec = spec
			return &gitlabclt.MergeRequest{
				IID:          7,
				ProjectID:    projectID,
				Title:        spec.Title,
				State:        "opened",
				SourceBranch: spec.SourceBranch,
				TargetBranch: spec.TargetBranch,
				Labels:       spec.Labels,
			}, nil
		})

	clt.EXPECT().
		MergeRequestComments(gomock.Any(), projectID, 7).
		Return(nil, nil)

	var comment string
	clt.EXPECT().
		CommentMergeRequest(gomock.Any(), projectID, 7, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ int, body string) error {
			comment = body
			return nil
		})

	// conflict-check retry lookup, the sibling branch does not exist
	clt.EXPECT().
		Branch(gomock.Any(), projectID, "tkt_v1_100_fix").
		Return(nil, nil)

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	outcome, err := e.HandlePush(context.Background(), pushEvent("tkt_v2_100_fix", "da1560886d"))
	require.NoError(t, err)
	assert.Equal(t, "merge request created", outcome)

	require.NotNil(t, createdSpec)
	assert.Equal(t, "tkt_v2_100_fix", createdSpec.SourceBranch)
	assert.Equal(t, "v2/dev", createdSpec.TargetBranch)
	assert.Equal(t, "Fix login (v2 edition)", createdSpec.Title)
	assert.ElementsMatch(t, []string{"Test", "no-changelog"}, createdSpec.Labels)
	assert.Contains(t, createdSpec.Description, "!3")

	assert.Contains(t, comment, "@paula")
	assert.Contains(t, comment, "!3")
}

func TestHandlePushAmbiguousParent(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	// the multiple-merge-requests label keeps the label synchronizer
	// away, only the parent scan runs
	issue := &gitlabclt.Issue{
		IID:       100,
		ProjectID: projectID,
		State:     "opened",
		Labels:    []string{"multiple-merge-requests"},
	}

	clt.EXPECT().
		Issue(gomock.Any(), projectID, 100).
		Return(issue, nil).
		AnyTimes()

	openMRsCall(clt, "tkt_v1_100_fix",
		&gitlabclt.MergeRequest{IID: 3, State: "opened", SourceBranch: "tkt_v1_100_fix"},
		&gitlabclt.MergeRequest{IID: 4, State: "opened", SourceBranch: "tkt_v1_100_fix"},
	)

	notifier.EXPECT().
		NotifyDebug(gomock.Any(), gomock.Any()).
		Return(nil)

	// conflict-check retry lookup, the sibling branch does not exist
	clt.EXPECT().
		Branch(gomock.Any(), projectID, "tkt_v1_100_fix").
		Return(nil, nil)

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	outcome, err := e.HandlePush(context.Background(), pushEvent("tkt_v2_100_fix", "da1560886d"))
	require.NoError(t, err)
	assert.Equal(t, "could not determine parent", outcome)
}

func TestHandlePushIsIdempotent(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	// the sentinel branch is not tied to an issue, issue lookups must
	// not happen
	parent := &gitlabclt.MergeRequest{IID: 3, State: "opened", SourceBranch: "tkt_v1_y2k_fix"}
	existing := &gitlabclt.MergeRequest{IID: 9, State: "opened", SourceBranch: "tkt_v2_y2k_fix"}

	openMRsCall(clt, "tkt_v1_y2k_fix", parent)
	openMRsCall(clt, "tkt_v2_y2k_fix", existing)

	clt.EXPECT().
		Branch(gomock.Any(), projectID, "tkt_v1_y2k_fix").
		Return(nil, nil)

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	outcome, err := e.HandlePush(context.Background(), pushEvent("tkt_v2_y2k_fix", "da1560886d"))
	require.NoError(t, err)
	assert.Equal(t, "merge request exists already", outcome)
}

func TestHandlePushIgnoresBranchDeletion(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	outcome, err := e.HandlePush(context.Background(), pushEvent("tkt_v2_100_fix", ""))
	require.NoError(t, err)
	assert.Equal(t, "branch deleted, nothing to do", outcome)
}

func TestHandlePushRejectsUnconfiguredProject(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	event := pushEvent("tkt_v2_100_fix", "da1560886d")
	event.Push.ProjectName = "unregistered"

	_, err := e.HandlePush(context.Background(), event)

	var confErr *ConfigurationMissingError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "unregistered", confErr.Project)
}

func TestHandlePushNamingViolation(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	// naming violations are a team problem, they go to the error channel
	var message string
	notifier.EXPECT().
		NotifyError(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, text string) error {
			message = text
			return nil
		})

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	outcome, err := e.HandlePush(context.Background(), pushEvent("feature-foo", "da1560886d"))
	require.NoError(t, err)
	assert.Equal(t, "naming violation", outcome)

	assert.Contains(t, message, "feature-foo")
	assert.Contains(t, message, "naming convention")
}

func TestHandlePushReportsMissingIssueMetadata(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	const policies = `
projects:
  vault:
    disabled_checks: [title]
`

	mr := &gitlabclt.MergeRequest{
		IID:          40,
		ProjectID:    projectID,
		State:        "opened",
		SourceBranch: "tkt_100_fix",
	}

	// neither priority nor severity label, no weight either
	issue := &gitlabclt.Issue{
		IID:       100,
		ProjectID: projectID,
		State:     "opened",
		Labels:    []string{"Test"},
	}

	clt.EXPECT().
		Issue(gomock.Any(), projectID, 100).
		Return(issue, nil).
		AnyTimes()

	clt.EXPECT().
		RelatedMergeRequests(gomock.Any(), projectID, 100).
		Return([]*gitlabclt.MergeRequest{mr}, nil)

	var message string
	notifier.EXPECT().
		NotifyDebug(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, text string) error {
			message = text
			return nil
		})

	e := newTestEnforcer(t, policies, clt, notifier)

	outcome, err := e.HandlePush(context.Background(), pushEvent("tkt_100_fix", "da1560886d"))
	require.NoError(t, err)
	assert.Equal(t, "processed, no multi-main propagation", outcome)

	assert.Contains(t, message, "issue #100")
	assert.Contains(t, message, "a priority label")
	assert.Contains(t, message, "a severity label")
	assert.Contains(t, message, "a weight")
}

func TestHandlePushIgnoresProtectedBranches(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	for _, branch := range []string{"master", "main", "staging", "v2/dev"} {
		outcome, err := e.HandlePush(context.Background(), pushEvent(branch, "da1560886d"))
		require.NoError(t, err)
		assert.Equal(t, "protected branch, nothing to do", outcome)
	}
}

func errContains(t *testing.T, err error, substr string) {
	t.Helper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), substr)
}

func TestHandlePushGatewayFailureAbortsEvent(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	clt.EXPECT().
		MergeRequests(gomock.Any(), projectID, gomock.Any()).
		Return(nil, errors.New("gateway timeout"))

	e := newTestEnforcer(t, multiMainPolicies, clt, notifier)

	_, err := e.HandlePush(context.Background(), pushEvent("tkt_v2_y2k_fix", "da1560886d"))
	errContains(t, err, "gateway timeout")
}
