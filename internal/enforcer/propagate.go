package enforcer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/branchname"
	"github.com/wardenbot/warden/internal/cfg"
	"github.com/wardenbot/warden/internal/gitlabclt"
	"github.com/wardenbot/warden/internal/logfields"
)

// ensureSiblingMR creates the merge request for a pushed multi-main
// branch by cloning the merge request of its closest preceding sibling.
//
// The existence check and the creation are not atomic, two overlapping
// pushes can create two merge requests. The single-consumer event loop
// rules that out within one process; across instances the duplicate is
// operator-visible and accepted.
func (e *Enforcer) ensureSiblingMR(
	ctx context.Context,
	logger *zap.Logger,
	policy *cfg.ProjectPolicy,
	projectID int,
	ref *branchname.Ref,
) (string, error) {
	parent, err := e.findParentMR(ctx, policy, projectID, ref)
	if err != nil {
		var ambiguous *AmbiguousParentError
		if errors.As(err, &ambiguous) {
			logger.Info("propagation skipped, parent merge request is ambiguous",
				logfields.Event("propagation_ambiguous_parent"),
				logfields.Branch(ambiguous.Branch),
				zap.Int("candidates", ambiguous.Count),
			)

			e.notifyDebug(ctx, ambiguous.Error())

			return "could not determine parent", nil
		}

		return "", err
	}

	existing, err := e.openMergeRequests(ctx, projectID, ref.Branch)
	if err != nil {
		return "", err
	}

	if len(existing) > 0 {
		return "merge request exists already", nil
	}

	if parent == nil {
		return "no parent merge request to propagate from", nil
	}

	spec := synthesizeSiblingMR(policy, parent, ref.Version)

	created, err := e.clt.CreateMergeRequest(ctx, projectID, spec)
	if err != nil {
		return "", fmt.Errorf("creating merge request for branch %q failed: %w", ref.Branch, err)
	}

	metrics.CreatedMRsInc(policy.Project)
	logger.Info("sibling merge request created",
		logfields.Event("merge_request_propagated"),
		logfields.MergeRequest(created.IID),
		logfields.TargetBranch(created.TargetBranch),
	)

	if err := e.fillFieldsFromIssue(ctx, projectID, ref, created); err != nil {
		return "", err
	}

	_, err = e.postGuardedComment(ctx, policy, projectID, created.IID,
		msgAutoCreated(e.mentionUsername(ctx, logger, parent), parent),
	)
	if err != nil {
		return "", err
	}

	return "merge request created", nil
}

// mentionUsername returns the user to address on a propagated merge
// request. List records sometimes omit the author username, then it is
// resolved via the author id.
func (e *Enforcer) mentionUsername(ctx context.Context, logger *zap.Logger, mr *gitlabclt.MergeRequest) string {
	if name := mr.MentionUsername(); name != "" {
		return name
	}

	name, err := e.clt.Username(ctx, mr.AuthorID)
	if err != nil {
		logger.Warn("resolving username of merge request author failed",
			logfields.MergeRequest(mr.IID),
			zap.Int("gitlab.user_id", mr.AuthorID),
			zap.Error(err),
		)

		return ""
	}

	return name
}

// findParentMR picks the merge request to clone: the first preceding
// sibling branch, nearest version first, with exactly one open merge
// request. A sibling with several open merge requests is ambiguous and
// aborts the scan, guessing the wrong parent is worse than not
// propagating.
func (e *Enforcer) findParentMR(
	ctx context.Context,
	policy *cfg.ProjectPolicy,
	projectID int,
	ref *branchname.Ref,
) (*gitlabclt.MergeRequest, error) {
	for _, version := range branchname.PreviousVersions(policy, ref.Version) {
		sibling := branchname.SiblingBranch(ref.Branch, ref.Version, version)

		candidates, err := e.openMergeRequests(ctx, projectID, sibling)
		if err != nil {
			return nil, err
		}

		switch len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0], nil
		default:
			return nil, &AmbiguousParentError{
				Project: policy.Project,
				Branch:  sibling,
				Count:   len(candidates),
			}
		}
	}

	return nil, nil
}
