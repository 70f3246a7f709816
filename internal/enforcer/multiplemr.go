package enforcer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/branchname"
	"github.com/wardenbot/warden/internal/cfg"
	"github.com/wardenbot/warden/internal/gitlabclt"
	"github.com/wardenbot/warden/internal/logfields"
)

// syncMultipleMRLabel labels the issue of ref with the
// multiple-merge-requests label when more than one open merge request
// implements it. The label makes the issue-state synchronizer stand
// back, the states of independent merge requests must not fight over
// one issue.
func (e *Enforcer) syncMultipleMRLabel(
	ctx context.Context,
	logger *zap.Logger,
	policy *cfg.ProjectPolicy,
	projectID int,
	ref *branchname.Ref,
) error {
	if !ref.HasIssue {
		return nil
	}

	issue, err := e.issueOf(ctx, projectID, ref)
	if err != nil || issue == nil {
		return err
	}

	if hasLabel(issue.Labels, policy.Labels.MultipleMR) {
		return nil
	}

	implementing, err := e.implementingMergeRequests(ctx, policy, projectID, issue.IID)
	if err != nil {
		return err
	}

	if len(implementing) <= 1 {
		return nil
	}

	upd := gitlabclt.IssueUpdate{
		Labels: unionLabels(issue.Labels, policy.Labels.MultipleMR),
	}

	if err := e.clt.UpdateIssue(ctx, projectID, issue.IID, &upd); err != nil {
		return fmt.Errorf("labeling issue #%d as multiply implemented failed: %w", issue.IID, err)
	}

	logger.Info("issue is implemented by several merge requests, labeled it",
		logfields.Event("issue_labeled_multiple_mrs"),
		logfields.Issue(issue.IID),
		logfields.Label(policy.Labels.MultipleMR),
	)

	return nil
}

// implementingMergeRequests returns the open merge requests whose source
// branch encodes issueIID. Merge requests that merely mention the issue
// are filtered out.
func (e *Enforcer) implementingMergeRequests(
	ctx context.Context,
	policy *cfg.ProjectPolicy,
	projectID, issueIID int,
) ([]*gitlabclt.MergeRequest, error) {
	related, err := e.clt.RelatedMergeRequests(ctx, projectID, issueIID)
	if err != nil {
		return nil, fmt.Errorf("listing merge requests related to issue #%d failed: %w", issueIID, err)
	}

	var result []*gitlabclt.MergeRequest

	for _, mr := range related {
		if mr.Finished() {
			continue
		}

		mrRef, err := branchname.Resolve(policy, mr.SourceBranch)
		if err != nil || !mrRef.HasIssue || mrRef.IssueIID != issueIID {
			continue
		}

		result = append(result, mr)
	}

	return result, nil
}

func hasLabel(labels []string, name string) bool {
	for _, label := range labels {
		if label == name {
			return true
		}
	}

	return false
}
