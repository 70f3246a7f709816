package enforcer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/branchname"
	"github.com/wardenbot/warden/internal/cfg"
	"github.com/wardenbot/warden/internal/gitlabclt"
	"github.com/wardenbot/warden/internal/logfields"
	"github.com/wardenbot/warden/internal/provider"
)

// conflictCheckJobName is the CI job that detects merge conflicts between
// sibling branches, it is re-run when a sibling changes.
const conflictCheckJobName = "merge_conflict_check"

// HandlePush runs the push-driven checks: issue metadata, the
// multiple-merge-requests label, sibling merge-request propagation and
// conflict-check job retries.
func (e *Enforcer) HandlePush(ctx context.Context, event *provider.Event) (string, error) {
	ev := event.Push
	logger := e.logger.With(event.LogFields()...)

	policy, err := e.policyFor(ctx, event)
	if err != nil {
		return "rejected", err
	}

	if policy == nil {
		return "ignored by project filter", nil
	}

	// a push without a checkout sha is a branch deletion, acting on it
	// would resurrect the branch as a new merge request
	if ev.Deleted() {
		return "branch deleted, nothing to do", nil
	}

	ref, err := branchname.Resolve(policy, ev.Branch)
	if err != nil {
		if errors.Is(err, branchname.ErrProtected) {
			return "protected branch, nothing to do", nil
		}

		var violation *branchname.ViolationError
		if errors.As(err, &violation) {
			metrics.NamingViolationsInc(policy.Project)
			e.notifyError(ctx, fmt.Sprintf(
				"branch %q of project %s violates the naming convention, pushes to it are not processed",
				ev.Branch, policy.Project,
			))

			return "naming violation", nil
		}

		return "", err
	}

	if err := e.checkIssueMetadata(ctx, logger, policy, ev.ProjectID, ref); err != nil {
		return "", err
	}

	if err := e.syncMultipleMRLabel(ctx, logger, policy, ev.ProjectID, ref); err != nil {
		return "", err
	}

	if !policy.MultiMain() || ref.Version == "" {
		return "processed, no multi-main propagation", nil
	}

	outcome, err := e.ensureSiblingMR(ctx, logger, policy, ev.ProjectID, ref)
	if err != nil {
		return outcome, err
	}

	e.retryConflictChecks(ctx, logger, policy, ev.ProjectID, ref)

	return outcome, nil
}

// checkIssueMetadata verifies that the issue linked to ref carries a
// priority label, a severity label and a weight. Missing metadata is an
// operational finding, it is never surfaced to the merge request author.
func (e *Enforcer) checkIssueMetadata(
	ctx context.Context,
	logger *zap.Logger,
	policy *cfg.ProjectPolicy,
	projectID int,
	ref *branchname.Ref,
) error {
	if policy.CheckDisabled(cfg.CheckIssueMetadata) || !ref.HasIssue {
		return nil
	}

	issue, err := e.issueOf(ctx, projectID, ref)
	if err != nil || issue == nil {
		return err
	}

	var missing []string

	if !hasLabelPrefix(issue.Labels, "priority::") {
		missing = append(missing, "a priority label")
	}

	if !hasLabelPrefix(issue.Labels, "severity::") {
		missing = append(missing, "a severity label")
	}

	if issue.Weight == 0 {
		missing = append(missing, "a weight")
	}

	if len(missing) == 0 {
		return nil
	}

	logger.Info("issue is missing metadata",
		logfields.Event("issue_metadata_missing"),
		logfields.Issue(issue.IID),
		zap.Strings("missing", missing),
	)

	e.notifyDebug(ctx, msgIssueMetadataMissing(policy.Project, issue.IID, missing))

	return nil
}

// issueOf fetches the issue encoded in ref, nil when the branch carries
// the no-issue sentinel or the issue does not exist.
func (e *Enforcer) issueOf(ctx context.Context, projectID int, ref *branchname.Ref) (*gitlabclt.Issue, error) {
	if !ref.HasIssue {
		return nil, nil
	}

	issue, err := e.clt.Issue(ctx, projectID, ref.IssueIID)
	if err != nil {
		return nil, fmt.Errorf("fetching issue #%d failed: %w", ref.IssueIID, err)
	}

	return issue, nil
}

func hasLabelPrefix(labels []string, prefix string) bool {
	for _, label := range labels {
		if strings.HasPrefix(label, prefix) {
			return true
		}
	}

	return false
}

// retryConflictChecks re-runs the conflict-check CI job on the last
// commit of every preceding sibling branch. The checks compare against
// the pushed branch, their old results are outdated now.
// Failures are logged only, the push was already processed.
func (e *Enforcer) retryConflictChecks(
	ctx context.Context,
	logger *zap.Logger,
	policy *cfg.ProjectPolicy,
	projectID int,
	ref *branchname.Ref,
) {
	for _, version := range branchname.PreviousVersions(policy, ref.Version) {
		sibling := branchname.SiblingBranch(ref.Branch, ref.Version, version)

		branch, err := e.clt.Branch(ctx, projectID, sibling)
		if err != nil {
			logger.Warn("fetching sibling branch for conflict-check retry failed",
				logfields.Branch(sibling),
				zap.Error(err),
			)
			continue
		}

		if branch == nil {
			continue
		}

		statuses, err := e.clt.CommitStatuses(ctx, projectID, branch.LastCommitSHA)
		if err != nil {
			logger.Warn("fetching commit statuses for conflict-check retry failed",
				logfields.Branch(sibling),
				logfields.Commit(branch.LastCommitSHA),
				zap.Error(err),
			)
			continue
		}

		for _, status := range statuses {
			if status.Name != conflictCheckJobName {
				continue
			}

			if err := e.clt.RetryJob(ctx, projectID, status.ID); err != nil {
				logger.Warn("retrying conflict-check job failed",
					logfields.Branch(sibling),
					zap.Int("gitlab.job_id", status.ID),
					zap.Error(err),
				)
				continue
			}

			logger.Debug("conflict-check job retried",
				logfields.Event("conflict_check_retried"),
				logfields.Branch(sibling),
				zap.Int("gitlab.job_id", status.ID),
			)
		}
	}
}
