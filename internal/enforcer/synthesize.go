package enforcer

import (
	"fmt"

	"github.com/wardenbot/warden/internal/branchname"
	"github.com/wardenbot/warden/internal/cfg"
	"github.com/wardenbot/warden/internal/gitlabclt"
)

// synthesizeSiblingMR derives the merge request data for propagating
// parent to targetVersion. It is a pure function, the network effects
// happen in the caller.
//
// The labels are the parent's plus the no-changelog marker, the
// changelog entry already travelled with the parent. Assignee and
// milestone are deliberately not copied, they are filled from the linked
// issue afterwards.
func synthesizeSiblingMR(
	policy *cfg.ProjectPolicy,
	parent *gitlabclt.MergeRequest,
	targetVersion string,
) *gitlabclt.NewMergeRequest {
	sourceVersion := versionOfBranch(policy, parent.SourceBranch)

	return &gitlabclt.NewMergeRequest{
		SourceBranch: branchname.SiblingBranch(parent.SourceBranch, sourceVersion, targetVersion),
		TargetBranch: branchname.IntegrationBranch(targetVersion),
		Title:        fmt.Sprintf("%s (%s edition)", parent.Title, targetVersion),
		Description:  parent.Description + attributionFooter(parent),
		Labels:       unionLabels(parent.Labels, policy.Labels.NoChangelog),
	}
}

// versionOfBranch resolves the family version token of a branch name,
// empty when it has none.
func versionOfBranch(policy *cfg.ProjectPolicy, branch string) string {
	ref, err := branchname.Resolve(policy, branch)
	if err != nil {
		return ""
	}

	return ref.Version
}

// unionLabels appends extra to labels unless already present.
func unionLabels(labels []string, extra string) []string {
	for _, label := range labels {
		if label == extra {
			return append([]string{}, labels...)
		}
	}

	result := make([]string, 0, len(labels)+1)
	result = append(result, labels...)

	return append(result, extra)
}
