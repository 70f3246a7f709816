package gitlabclt

import (
	"context"

	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/logfields"
)

// DryClient is a gateway decorator that does not change anything on the
// remote host.
// Mutating operations are simulated and always succeed, reads are forwarded
// to the wrapped Service.
type DryClient struct {
	clt    Service
	logger *zap.Logger
}

func NewDryClient(clt Service, logger *zap.Logger) *DryClient {
	return &DryClient{
		clt:    clt,
		logger: logger.Named("dry_gitlab_client"),
	}
}

func (c *DryClient) Issue(ctx context.Context, projectID, issueIID int) (*Issue, error) {
	return c.clt.Issue(ctx, projectID, issueIID)
}

func (c *DryClient) Issues(ctx context.Context, projectID int, filters IssueFilters) ([]*Issue, error) {
	return c.clt.Issues(ctx, projectID, filters)
}

func (c *DryClient) UpdateIssue(_ context.Context, projectID, issueIID int, _ *IssueUpdate) error {
	c.logger.Info(
		"simulated issue update",
		logfields.ProjectID(projectID),
		logfields.Issue(issueIID),
	)

	return nil
}

func (c *DryClient) MergeRequests(ctx context.Context, projectID int, filters MRFilters) ([]*MergeRequest, error) {
	return c.clt.MergeRequests(ctx, projectID, filters)
}

func (c *DryClient) MergeRequest(ctx context.Context, projectID, mrIID int) (*MergeRequest, error) {
	return c.clt.MergeRequest(ctx, projectID, mrIID)
}

func (c *DryClient) CreateMergeRequest(_ context.Context, projectID int, mr *NewMergeRequest) (*MergeRequest, error) {
	c.logger.Info(
		"simulated merge request creation",
		logfields.ProjectID(projectID),
		logfields.Branch(mr.SourceBranch),
		logfields.TargetBranch(mr.TargetBranch),
	)

	return &MergeRequest{
		ProjectID:       projectID,
		SourceProjectID: projectID,
		Title:           mr.Title,
		Description:     mr.Description,
		State:           "opened",
		SourceBranch:    mr.SourceBranch,
		TargetBranch:    mr.TargetBranch,
		Labels:          mr.Labels,
	}, nil
}

func (c *DryClient) UpdateMergeRequest(_ context.Context, projectID, mrIID int, _ *MergeRequestUpdate) error {
	c.logger.Info(
		"simulated merge request update",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(mrIID),
	)

	return nil
}

func (c *DryClient) RelatedMergeRequests(ctx context.Context, projectID, issueIID int) ([]*MergeRequest, error) {
	return c.clt.RelatedMergeRequests(ctx, projectID, issueIID)
}

func (c *DryClient) CommentMergeRequest(_ context.Context, projectID, mrIID int, body string) error {
	c.logger.Info(
		"simulated merge request comment",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(mrIID),
		zap.String("body", body),
	)

	return nil
}

func (c *DryClient) MergeRequestComments(ctx context.Context, projectID, mrIID int) ([]*Comment, error) {
	return c.clt.MergeRequestComments(ctx, projectID, mrIID)
}

func (c *DryClient) MergeRequestChangedFiles(ctx context.Context, projectID, mrIID int) ([]string, error) {
	return c.clt.MergeRequestChangedFiles(ctx, projectID, mrIID)
}

func (c *DryClient) Branch(ctx context.Context, projectID int, name string) (*Branch, error) {
	return c.clt.Branch(ctx, projectID, name)
}

func (c *DryClient) Username(ctx context.Context, userID int) (string, error) {
	return c.clt.Username(ctx, userID)
}

func (c *DryClient) CommitStatuses(ctx context.Context, projectID int, sha string) ([]*CommitStatus, error) {
	return c.clt.CommitStatuses(ctx, projectID, sha)
}

func (c *DryClient) RetryJob(_ context.Context, projectID, jobID int) error {
	c.logger.Info(
		"simulated job retry",
		logfields.ProjectID(projectID),
		zap.Int("job_id", jobID),
	)

	return nil
}
