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

// labelTransition describes the issue mutation for one merge-request
// state. Both workflow labels are always removed first, AddLabel is the
// at most one that comes back. The mutation is a full label-set
// replacement, applying it twice yields the same set.
type labelTransition struct {
	// AddLabel selects the workflow label to set, as a LabelSet field
	// accessor so the configured name is used.
	AddLabel   func(*cfg.LabelSet) string
	CloseIssue bool
}

// issueTransitions is the merge-request state to issue mutation table.
var issueTransitions = map[string]labelTransition{
	"draft":  {AddLabel: func(l *cfg.LabelSet) string { return l.Accepted }},
	"opened": {AddLabel: func(l *cfg.LabelSet) string { return l.Test }},
	"merged": {CloseIssue: true},
	"closed": {},
}

// mrStateKey maps a merge request to its issueTransitions key.
func mrStateKey(mr *gitlabclt.MergeRequest) string {
	if mr.State == "opened" && mr.Draft {
		return "draft"
	}

	return mr.State
}

// syncIssueState applies the workflow-label transition for mr's state to
// its linked issue.
//
// Issues carrying the multiple-merge-requests label are left alone, the
// states of several independent merge requests must not fight over one
// issue. Issues that are not resolvable from the branch name are left
// alone too.
func (e *Enforcer) syncIssueState(
	ctx context.Context,
	logger *zap.Logger,
	policy *cfg.ProjectPolicy,
	projectID int,
	ref *branchname.Ref,
	mr *gitlabclt.MergeRequest,
) error {
	if ref == nil || !ref.HasIssue {
		return nil
	}

	transition, known := issueTransitions[mrStateKey(mr)]
	if !known {
		return nil
	}

	issue, err := e.issueOf(ctx, projectID, ref)
	if err != nil || issue == nil {
		return err
	}

	if hasLabel(issue.Labels, policy.Labels.MultipleMR) {
		return nil
	}

	newLabels := removeLabels(issue.Labels, policy.Labels.Accepted, policy.Labels.Test)
	if transition.AddLabel != nil {
		newLabels = append(newLabels, transition.AddLabel(&policy.Labels))
	}

	upd := gitlabclt.IssueUpdate{}

	if !equalLabelSets(issue.Labels, newLabels) {
		upd.Labels = newLabels
	}

	if transition.CloseIssue && issue.State != "closed" {
		stateEvent := "close"
		upd.StateEvent = &stateEvent
	}

	if upd.Labels == nil && upd.StateEvent == nil {
		return nil
	}

	if err := e.clt.UpdateIssue(ctx, projectID, issue.IID, &upd); err != nil {
		return fmt.Errorf("synchronizing state of issue #%d failed: %w", issue.IID, err)
	}

	logger.Info("issue state synchronized",
		logfields.Event("issue_state_synchronized"),
		logfields.Issue(issue.IID),
		zap.String("merge_request_state", mrStateKey(mr)),
	)

	return nil
}

func removeLabels(labels []string, remove ...string) []string {
	result := make([]string, 0, len(labels))

outer:
	for _, label := range labels {
		for _, r := range remove {
			if label == r {
				continue outer
			}
		}

		result = append(result, label)
	}

	return result
}

// equalLabelSets compares two label slices order-insensitively.
func equalLabelSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	set := make(map[string]int, len(a))
	for _, label := range a {
		set[label]++
	}

	for _, label := range b {
		set[label]--
		if set[label] < 0 {
			return false
		}
	}

	return true
}
