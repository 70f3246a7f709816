package branchname

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenbot/warden/internal/cfg"
)

func singleMainPolicy(t *testing.T) *cfg.ProjectPolicy {
	t.Helper()

	return &cfg.ProjectPolicy{
		Project:     "cli",
		BranchRegex: regexp.MustCompile(cfg.DefaultBranchRegex),
	}
}

func multiMainPolicy(t *testing.T) *cfg.ProjectPolicy {
	t.Helper()

	return &cfg.ProjectPolicy{
		Project:      "backend",
		BranchRegex:  regexp.MustCompile(`^(?:tkt|mig|sup|exp)_(?P<version>v\d+)_(?P<iid>\d+|y2k)[-_].+`),
		MainBranches: []string{"v1", "v2", "v3"},
	}
}

func TestResolveDefaultPattern(t *testing.T) {
	policy := singleMainPolicy(t)

	testcases := []struct {
		branch   string
		issueIID int
		hasIssue bool
	}{
		{branch: "tkt_1234_fix_login", issueIID: 1234, hasIssue: true},
		{branch: "mig_7-schema-change", issueIID: 7, hasIssue: true},
		{branch: "sup_y2k_customer_hotfix", hasIssue: false},
		{branch: "exp_99_try-new-parser", issueIID: 99, hasIssue: true},
	}

	for _, tc := range testcases {
		t.Run(tc.branch, func(t *testing.T) {
			ref, err := Resolve(policy, tc.branch)
			require.NoError(t, err)
			assert.Equal(t, tc.issueIID, ref.IssueIID)
			assert.Equal(t, tc.hasIssue, ref.HasIssue)
			assert.Empty(t, ref.Version)
		})
	}
}

func TestResolveProtectedBranches(t *testing.T) {
	policy := singleMainPolicy(t)
	policy.BranchExceptions = []string{"gh-pages"}

	for _, branch := range []string{"master", "main", "dev", "staging", "v2/dev", "release/master", "gh-pages"} {
		t.Run(branch, func(t *testing.T) {
			_, err := Resolve(policy, branch)
			assert.ErrorIs(t, err, ErrProtected)
		})
	}
}

func TestResolveNamingViolation(t *testing.T) {
	policy := singleMainPolicy(t)

	_, err := Resolve(policy, "feature/shiny")

	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "feature/shiny", violation.Branch)
	assert.Equal(t, "cli", violation.Project)
}

func TestResolveMultiMainVersionGroup(t *testing.T) {
	policy := multiMainPolicy(t)

	ref, err := Resolve(policy, "tkt_v2_100_fix")
	require.NoError(t, err)
	assert.Equal(t, 100, ref.IssueIID)
	assert.True(t, ref.HasIssue)
	assert.Equal(t, "v2", ref.Version)
}

func TestResolveMultiMainSubstringScan(t *testing.T) {
	policy := multiMainPolicy(t)
	policy.BranchRegex = regexp.MustCompile(cfg.DefaultBranchRegex)

	// no version capture group, the family member is found by substring
	ref, err := Resolve(policy, "tkt_100_fix_v3_build")
	require.NoError(t, err)
	assert.Equal(t, "v3", ref.Version)
}

func TestVersionOrdering(t *testing.T) {
	policy := multiMainPolicy(t)

	assert.Empty(t, PreviousVersions(policy, "v1"))
	assert.Equal(t, []string{"v1"}, PreviousVersions(policy, "v2"))
	assert.Equal(t, []string{"v2", "v1"}, PreviousVersions(policy, "v3"))

	assert.Equal(t, []string{"v2", "v3"}, NextVersions(policy, "v1"))
	assert.Equal(t, []string{"v3"}, NextVersions(policy, "v2"))
	assert.Empty(t, NextVersions(policy, "v3"))

	assert.Empty(t, PreviousVersions(policy, "v9"))
	assert.Empty(t, NextVersions(policy, "v9"))
}

func TestSiblingBranchAndNormalize(t *testing.T) {
	policy := multiMainPolicy(t)

	assert.Equal(t, "tkt_v1_100_fix", SiblingBranch("tkt_v2_100_fix", "v2", "v1"))

	assert.Equal(t,
		Normalize(policy, "tkt_v1_200_x"),
		Normalize(policy, "tkt_v2_200_x"),
	)
	assert.NotEqual(t,
		Normalize(policy, "tkt_v1_200_x"),
		Normalize(policy, "tkt_v2_201_y"),
	)
}

func TestIntegrationBranch(t *testing.T) {
	assert.Equal(t, "v2/dev", IntegrationBranch("v2"))
}
