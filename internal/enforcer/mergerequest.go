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

const draftTitlePrefix = "Draft: "

// HandleMergeRequest runs the merge-request-driven checks: branch
// naming, changelog presence, issue reference and title quality, field
// filling, issue-state synchronization and the unmerged-sibling warning
// after merges.
func (e *Enforcer) HandleMergeRequest(ctx context.Context, event *provider.Event) (string, error) {
	ev := event.MergeRequest
	logger := e.logger.With(event.LogFields()...)

	policy, err := e.policyFor(ctx, event)
	if err != nil {
		return "rejected", err
	}

	if policy == nil {
		return "ignored by project filter", nil
	}

	if e.botUsername != "" && ev.UserUsername == e.botUsername {
		return "own event, ignored", nil
	}

	if hasLabel(ev.Labels, policy.Labels.SkipAll) {
		return "skip label present, ignored", nil
	}

	mr, err := e.clt.MergeRequest(ctx, ev.ProjectID, ev.IID)
	if err != nil {
		return "", fmt.Errorf("fetching merge request !%d failed: %w", ev.IID, err)
	}

	if hasLabel(mr.Labels, policy.Labels.SkipAll) {
		return "skip label present, ignored", nil
	}

	ref, err := e.resolveMRBranch(ctx, logger, policy, mr)
	if err != nil {
		return "", err
	}

	if !mr.Finished() {
		if err := e.checkChangelog(ctx, policy, ev.ProjectID, mr); err != nil {
			return "", err
		}

		if err := e.ensureIssueReference(ctx, ev.ProjectID, ref, mr); err != nil {
			return "", err
		}

		if err := e.checkTitle(ctx, policy, ev.ProjectID, mr); err != nil {
			return "", err
		}

		if ref != nil {
			if err := e.fillFieldsFromIssue(ctx, ev.ProjectID, ref, mr); err != nil {
				return "", err
			}
		}
	}

	// a second merge request for an issue usually appears as an MR event,
	// its branch push happened before the merge request existed
	if ref != nil {
		if err := e.syncMultipleMRLabel(ctx, logger, policy, ev.ProjectID, ref); err != nil {
			return "", err
		}
	}

	if err := e.syncIssueState(ctx, logger, policy, ev.ProjectID, ref, mr); err != nil {
		return "", err
	}

	if mr.State == "merged" {
		mergedBy := mr.MergedByUsername
		if mergedBy == "" {
			mergedBy = ev.UserUsername
		}

		if err := e.warnUnmergedSiblings(ctx, logger, policy, ev.ProjectID, mr, mergedBy); err != nil {
			return "", err
		}
	}

	return "processed", nil
}

// resolveMRBranch resolves the source branch of mr. Naming violations
// surface as a duplicate-guarded comment; they return a nil Ref and no
// error so the remaining checks still run.
func (e *Enforcer) resolveMRBranch(
	ctx context.Context,
	logger *zap.Logger,
	policy *cfg.ProjectPolicy,
	mr *gitlabclt.MergeRequest,
) (*branchname.Ref, error) {
	ref, err := branchname.Resolve(policy, mr.SourceBranch)
	if err == nil {
		return ref, nil
	}

	if errors.Is(err, branchname.ErrProtected) {
		return nil, nil
	}

	var violation *branchname.ViolationError
	if !errors.As(err, &violation) {
		return nil, err
	}

	metrics.NamingViolationsInc(policy.Project)
	logger.Info("merge request source branch violates the naming policy",
		logfields.Event("naming_violation"),
	)

	if mr.Finished() {
		return nil, nil
	}

	_, err = e.postGuardedComment(ctx, policy, mr.ProjectID, mr.IID,
		msgNamingViolation(mr, policy.BranchRegex.String()),
	)

	return nil, err
}

// changelogMatch classifies the changed files of a merge request with
// respect to the changelog requirement.
type changelogMatch int

const (
	changelogMissing changelogMatch = iota
	// changelogWrongType: a changelog file was touched, but none with the
	// configured extension. The changelog generator will not pick it up.
	changelogWrongType
	changelogSatisfied
)

// checkChangelog verifies that the merge request touches a changelog
// file with the configured extension. Violations are commented once and
// mark the merge request a draft; a changelog file with the wrong
// extension gets its own message.
func (e *Enforcer) checkChangelog(
	ctx context.Context,
	policy *cfg.ProjectPolicy,
	projectID int,
	mr *gitlabclt.MergeRequest,
) error {
	if policy.CheckDisabled(cfg.CheckChangelog) || hasLabel(mr.Labels, policy.Labels.NoChangelog) {
		return nil
	}

	files, err := e.clt.MergeRequestChangedFiles(ctx, projectID, mr.IID)
	if err != nil {
		return fmt.Errorf("listing changed files of merge request !%d failed: %w", mr.IID, err)
	}

	var body string

	switch matchChangelog(policy, files) {
	case changelogSatisfied:
		return nil
	case changelogWrongType:
		body = msgWrongChangelogType(mr, policy.ChangelogFiletype)
	default:
		body = msgMissingChangelog(mr, policy.ChangelogFiletype)
	}

	posted, err := e.postGuardedComment(ctx, policy, projectID, mr.IID, body)
	if err != nil {
		return err
	}

	if !posted || mr.Draft {
		return nil
	}

	title := draftTitlePrefix + mr.Title
	upd := gitlabclt.MergeRequestUpdate{Title: &title}

	if err := e.clt.UpdateMergeRequest(ctx, projectID, mr.IID, &upd); err != nil {
		return fmt.Errorf("marking merge request !%d as draft failed: %w", mr.IID, err)
	}

	return nil
}

func matchChangelog(policy *cfg.ProjectPolicy, files []string) changelogMatch {
	result := changelogMissing

	for _, file := range files {
		base := file
		if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
			base = file[idx+1:]
		}

		for _, exception := range policy.ChangelogExceptions {
			if base == exception {
				return changelogSatisfied
			}
		}

		if !strings.HasPrefix(base, "CHANGELOG") {
			continue
		}

		if strings.HasSuffix(base, policy.ChangelogFiletype) {
			return changelogSatisfied
		}

		result = changelogWrongType
	}

	return result
}

// ensureIssueReference prepends a "Closes #<iid>" line to the merge
// request description when the branch encodes an issue the description
// does not mention.
func (e *Enforcer) ensureIssueReference(
	ctx context.Context,
	projectID int,
	ref *branchname.Ref,
	mr *gitlabclt.MergeRequest,
) error {
	if ref == nil || !ref.HasIssue {
		return nil
	}

	issueRef := fmt.Sprintf("#%d", ref.IssueIID)
	if strings.Contains(mr.Description, issueRef) {
		return nil
	}

	description := fmt.Sprintf("Closes %s\n\n%s", issueRef, mr.Description)
	upd := gitlabclt.MergeRequestUpdate{Description: &description}

	if err := e.clt.UpdateMergeRequest(ctx, projectID, mr.IID, &upd); err != nil {
		return fmt.Errorf("adding issue reference to merge request !%d failed: %w", mr.IID, err)
	}

	mr.Description = description

	return nil
}

// checkTitle nags about titles that only repeat the ticket number.
func (e *Enforcer) checkTitle(
	ctx context.Context,
	policy *cfg.ProjectPolicy,
	projectID int,
	mr *gitlabclt.MergeRequest,
) error {
	if policy.CheckDisabled(cfg.CheckTitle) {
		return nil
	}

	title := strings.ToLower(strings.TrimPrefix(mr.Title, draftTitlePrefix))
	if !strings.HasPrefix(title, "tkt ") {
		return nil
	}

	_, err := e.postGuardedComment(ctx, policy, projectID, mr.IID, msgBadTitle(mr))

	return err
}

// warnUnmergedSiblings posts a warning on every open sibling merge
// request of a later version after mr was merged. The warning names the
// merging user and is duplicate-guarded.
func (e *Enforcer) warnUnmergedSiblings(
	ctx context.Context,
	logger *zap.Logger,
	policy *cfg.ProjectPolicy,
	projectID int,
	mr *gitlabclt.MergeRequest,
	mergedBy string,
) error {
	if !policy.MultiMain() {
		return nil
	}

	ref, err := branchname.Resolve(policy, mr.SourceBranch)
	if err != nil || !ref.HasIssue || ref.Version == "" {
		return nil
	}

	related, err := e.clt.RelatedMergeRequests(ctx, projectID, ref.IssueIID)
	if err != nil {
		return fmt.Errorf("listing merge requests related to issue #%d failed: %w", ref.IssueIID, err)
	}

	normalized := branchname.Normalize(policy, mr.SourceBranch)
	laterVersions := branchname.NextVersions(policy, ref.Version)

	for _, sibling := range related {
		if sibling.Finished() {
			continue
		}

		if branchname.Normalize(policy, sibling.SourceBranch) != normalized {
			continue
		}

		if versionIn(policy, sibling.SourceBranch, laterVersions) {
			posted, err := e.postGuardedComment(ctx, policy, projectID, sibling.IID,
				msgSuperiorMerged(mergedBy, mr.SourceBranch, sibling.SourceBranch),
			)
			if err != nil {
				return err
			}

			if posted {
				logger.Info("warned about unmerged sibling merge request",
					logfields.Event("unmerged_sibling_warned"),
					logfields.MergeRequest(sibling.IID),
					logfields.Branch(sibling.SourceBranch),
				)
			}
		}
	}

	return nil
}

func versionIn(policy *cfg.ProjectPolicy, branch string, versions []string) bool {
	ref, err := branchname.Resolve(policy, branch)
	if err != nil {
		return false
	}

	for _, version := range versions {
		if ref.Version == version {
			return true
		}
	}

	return false
}
