package enforcer

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenbot/warden/internal/branchname"
	"github.com/wardenbot/warden/internal/enforcer/mocks"
	"github.com/wardenbot/warden/internal/gitlabclt"
)

func issueRef(t *testing.T, e *Enforcer, branch string) *branchname.Ref {
	t.Helper()

	policy, ok := e.policies.PolicyFor(projectName)
	require.True(t, ok)

	ref, err := branchname.Resolve(policy, branch)
	require.NoError(t, err)

	return ref
}

func TestSyncIssueStateTransitions(t *testing.T) {
	type testcase struct {
		name        string
		mrState     string
		mrDraft     bool
		issueLabels []string

		expectLabels []string
		expectClose  bool
		expectNoCall bool
	}

	testcases := []testcase{
		{
			name:         "draftSetsAccepted",
			mrState:      "opened",
			mrDraft:      true,
			issueLabels:  []string{"Test", "priority::high"},
			expectLabels: []string{"priority::high", "Accepted"},
		},
		{
			name:         "openedSetsTest",
			mrState:      "opened",
			issueLabels:  []string{"Accepted"},
			expectLabels: []string{"Test"},
		},
		{
			name:        "mergedClosesIssue",
			mrState:     "merged",
			issueLabels: []string{"Test"},
			expectClose: true,
		},
		{
			name:         "closedRemovesStatusLabels",
			mrState:      "closed",
			issueLabels:  []string{"Accepted", "priority::high"},
			expectLabels: []string{"priority::high"},
		},
		{
			name:         "openedIsIdempotent",
			mrState:      "opened",
			issueLabels:  []string{"Test"},
			expectNoCall: true,
		},
		{
			name:         "closedLeavesIssueOpen",
			mrState:      "closed",
			issueLabels:  []string{"priority::high"},
			expectNoCall: true,
		},
		{
			name:         "multipleMRLabelGuards",
			mrState:      "opened",
			issueLabels:  []string{"Accepted", "multiple-merge-requests"},
			expectNoCall: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			mockctrl := gomock.NewController(t)
			clt := mocks.NewMockGitlabClient(mockctrl)
			notifier := mocks.NewMockNotifier(mockctrl)

			e := newTestEnforcer(t, singleMainPolicies, clt, notifier)
			ref := issueRef(t, e, "tkt_100_fix")

			issue := &gitlabclt.Issue{
				IID:       100,
				ProjectID: projectID,
				State:     "opened",
				Labels:    tc.issueLabels,
			}

			clt.EXPECT().Issue(gomock.Any(), projectID, 100).Return(issue, nil)

			if !tc.expectNoCall {
				clt.EXPECT().
					UpdateIssue(gomock.Any(), projectID, 100, gomock.Any()).
					DoAndReturn(func(_ context.Context, _, _ int, upd *gitlabclt.IssueUpdate) error {
						if tc.expectLabels != nil {
							assert.ElementsMatch(t, tc.expectLabels, upd.Labels)
						}

						if tc.expectClose {
							require.NotNil(t, upd.StateEvent)
							assert.Equal(t, "close", *upd.StateEvent)
						} else {
							assert.Nil(t, upd.StateEvent)
						}

						return nil
					})
			}

			mr := &gitlabclt.MergeRequest{
				IID:          40,
				ProjectID:    projectID,
				State:        tc.mrState,
				Draft:        tc.mrDraft,
				SourceBranch: "tkt_100_fix",
			}

			policy, _ := e.policies.PolicyFor(projectName)
			err := e.syncIssueState(context.Background(), e.logger, policy, projectID, ref, mr)
			require.NoError(t, err)
		})
	}
}

// Applying a transition twice converges: the second application sees the
// label set the first one produced and performs no further mutation.
func TestSyncIssueStateConverges(t *testing.T) {
	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGitlabClient(mockctrl)
	notifier := mocks.NewMockNotifier(mockctrl)

	e := newTestEnforcer(t, singleMainPolicies, clt, notifier)
	ref := issueRef(t, e, "tkt_100_fix")
	policy, _ := e.policies.PolicyFor(projectName)

	issue := &gitlabclt.Issue{
		IID:       100,
		ProjectID: projectID,
		State:     "opened",
		Labels:    []string{"Accepted"},
	}

	clt.EXPECT().Issue(gomock.Any(), projectID, 100).Return(issue, nil).Times(2)

	// exactly one mutation, the replay finds the converged label set
	clt.EXPECT().
		UpdateIssue(gomock.Any(), projectID, 100, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ int, upd *gitlabclt.IssueUpdate) error {
			issue.Labels = upd.Labels
			return nil
		})

	mr := &gitlabclt.MergeRequest{
		IID:          40,
		ProjectID:    projectID,
		State:        "opened",
		SourceBranch: "tkt_100_fix",
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, e.syncIssueState(context.Background(), e.logger, policy, projectID, ref, mr))
	}

	assert.ElementsMatch(t, []string{"Test"}, issue.Labels)
}
