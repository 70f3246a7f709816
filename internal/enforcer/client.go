package enforcer

import (
	"context"

	"github.com/wardenbot/warden/internal/gitlabclt"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/wardenbot/warden/internal/enforcer GitlabClient,Notifier

// GitlabClient is the remote repository gateway consumed by the enforcer.
type GitlabClient interface {
	Issue(ctx context.Context, projectID, issueIID int) (*gitlabclt.Issue, error)
	UpdateIssue(ctx context.Context, projectID, issueIID int, upd *gitlabclt.IssueUpdate) error
	MergeRequests(ctx context.Context, projectID int, filters gitlabclt.MRFilters) ([]*gitlabclt.MergeRequest, error)
	MergeRequest(ctx context.Context, projectID, mrIID int) (*gitlabclt.MergeRequest, error)
	CreateMergeRequest(ctx context.Context, projectID int, mr *gitlabclt.NewMergeRequest) (*gitlabclt.MergeRequest, error)
	UpdateMergeRequest(ctx context.Context, projectID, mrIID int, upd *gitlabclt.MergeRequestUpdate) error
	RelatedMergeRequests(ctx context.Context, projectID, issueIID int) ([]*gitlabclt.MergeRequest, error)
	CommentMergeRequest(ctx context.Context, projectID, mrIID int, body string) error
	MergeRequestComments(ctx context.Context, projectID, mrIID int) ([]*gitlabclt.Comment, error)
	MergeRequestChangedFiles(ctx context.Context, projectID, mrIID int) ([]string, error)
	Branch(ctx context.Context, projectID int, name string) (*gitlabclt.Branch, error)
	Username(ctx context.Context, userID int) (string, error)
	CommitStatuses(ctx context.Context, projectID int, sha string) ([]*gitlabclt.CommitStatus, error)
	RetryJob(ctx context.Context, projectID, jobID int) error
}

// Notifier delivers operational messages. Infrastructure problems go to
// the error channel, policy noise to the debug channel, never to merge
// request authors.
type Notifier interface {
	NotifyError(ctx context.Context, text string) error
	NotifyDebug(ctx context.Context, text string) error
}
