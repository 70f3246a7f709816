package enforcer

import (
	"context"
	"fmt"

	"github.com/wardenbot/warden/internal/branchname"
	"github.com/wardenbot/warden/internal/gitlabclt"
)

// fillFieldsFromIssue copies the milestone and, when the merge request
// has no assignee, the single assignee of the linked issue onto the
// merge request. Fields already set on the merge request win.
func (e *Enforcer) fillFieldsFromIssue(
	ctx context.Context,
	projectID int,
	ref *branchname.Ref,
	mr *gitlabclt.MergeRequest,
) error {
	issue, err := e.issueOf(ctx, projectID, ref)
	if err != nil || issue == nil {
		return err
	}

	var upd gitlabclt.MergeRequestUpdate

	if mr.MilestoneID == 0 && issue.MilestoneID != 0 {
		milestoneID := issue.MilestoneID
		upd.MilestoneID = &milestoneID
	}

	if mr.AssigneeID == 0 && len(issue.AssigneeIDs) == 1 {
		assigneeID := issue.AssigneeIDs[0]
		upd.AssigneeID = &assigneeID
	}

	if upd.Empty() {
		return nil
	}

	if err := e.clt.UpdateMergeRequest(ctx, projectID, mr.IID, &upd); err != nil {
		return fmt.Errorf("filling fields of merge request !%d from issue #%d failed: %w", mr.IID, issue.IID, err)
	}

	return nil
}
