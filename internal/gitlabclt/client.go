// Package gitlabclt provides the typed gateway to the GitLab API.
package gitlabclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/logfields"
	"github.com/wardenbot/warden/internal/wardenerr"
)

const loggerName = "gitlab_client"

const perPage = 100

// Client is a GitLab API client.
// Methods return a wardenerr.RetryableError when an operation failed in a
// way that can be retried, e.g. when the API rate limit is exceeded.
// Lookups of optional records (Issue, Branch) return nil without an error
// on 404 responses.
type Client struct {
	clt    *gitlab.Client
	logger *zap.Logger
}

// New returns a new GitLab API client.
// baseURL may be empty, gitlab.com is used then.
func New(apiToken, baseURL string) (*Client, error) {
	var opts []gitlab.ClientOptionFunc
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}

	clt, err := gitlab.NewClient(apiToken, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		clt:    clt,
		logger: zap.L().Named(loggerName),
	}, nil
}

func (clt *Client) Issue(ctx context.Context, projectID, issueIID int) (*Issue, error) {
	issue, resp, err := clt.clt.Issues.GetIssue(projectID, issueIID, gitlab.WithContext(ctx))
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}

		return nil, clt.wrapRetryableErrors(err)
	}

	return toIssue(issue), nil
}

func (clt *Client) Issues(ctx context.Context, projectID int, filters IssueFilters) ([]*Issue, error) {
	opt := gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}

	if filters.State != "" {
		opt.State = gitlab.Ptr(filters.State)
	}

	if filters.Scope != "" {
		opt.Scope = gitlab.Ptr(filters.Scope)
	}

	if len(filters.Labels) > 0 {
		labels := gitlab.LabelOptions(filters.Labels)
		opt.Labels = &labels
	}

	var result []*Issue

	for {
		issues, resp, err := clt.clt.Issues.ListProjectIssues(projectID, &opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		for _, issue := range issues {
			result = append(result, toIssue(issue))
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opt.Page = resp.NextPage
	}
}

func (clt *Client) UpdateIssue(ctx context.Context, projectID, issueIID int, upd *IssueUpdate) error {
	opt := gitlab.UpdateIssueOptions{
		StateEvent: upd.StateEvent,
	}

	if upd.Labels != nil {
		labels := gitlab.LabelOptions(upd.Labels)
		opt.Labels = &labels
	}

	_, _, err := clt.clt.Issues.UpdateIssue(projectID, issueIID, &opt, gitlab.WithContext(ctx))

	return clt.wrapRetryableErrors(err)
}

func (clt *Client) MergeRequests(ctx context.Context, projectID int, filters MRFilters) ([]*MergeRequest, error) {
	opt := gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}

	if filters.SourceBranch != "" {
		opt.SourceBranch = gitlab.Ptr(filters.SourceBranch)
	}

	if filters.TargetBranch != "" {
		opt.TargetBranch = gitlab.Ptr(filters.TargetBranch)
	}

	if filters.State != "" {
		opt.State = gitlab.Ptr(filters.State)
	}

	if filters.Scope != "" {
		opt.Scope = gitlab.Ptr(filters.Scope)
	}

	if filters.WIP != "" {
		opt.WIP = gitlab.Ptr(filters.WIP)
	}

	var result []*MergeRequest

	for {
		mrs, resp, err := clt.clt.MergeRequests.ListProjectMergeRequests(projectID, &opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		for _, mr := range mrs {
			result = append(result, toMergeRequest(mr))
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opt.Page = resp.NextPage
	}
}

func (clt *Client) MergeRequest(ctx context.Context, projectID, mrIID int) (*MergeRequest, error) {
	mr, _, err := clt.clt.MergeRequests.GetMergeRequest(projectID, mrIID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return toMergeRequest(mr), nil
}

func (clt *Client) CreateMergeRequest(ctx context.Context, projectID int, mr *NewMergeRequest) (*MergeRequest, error) {
	labels := gitlab.LabelOptions(mr.Labels)

	opt := gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(mr.Title),
		Description:  gitlab.Ptr(mr.Description),
		SourceBranch: gitlab.Ptr(mr.SourceBranch),
		TargetBranch: gitlab.Ptr(mr.TargetBranch),
		Labels:       &labels,
	}

	created, _, err := clt.clt.MergeRequests.CreateMergeRequest(projectID, &opt, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	clt.logger.Info(
		"merge request created",
		logfields.Event("gitlab_mr_created"),
		logfields.ProjectID(projectID),
		logfields.MergeRequest(created.IID),
		logfields.Branch(mr.SourceBranch),
		logfields.TargetBranch(mr.TargetBranch),
	)

	return toMergeRequest(created), nil
}

func (clt *Client) UpdateMergeRequest(ctx context.Context, projectID, mrIID int, upd *MergeRequestUpdate) error {
	opt := gitlab.UpdateMergeRequestOptions{
		Title:       upd.Title,
		Description: upd.Description,
		AssigneeID:  upd.AssigneeID,
		MilestoneID: upd.MilestoneID,
	}

	_, _, err := clt.clt.MergeRequests.UpdateMergeRequest(projectID, mrIID, &opt, gitlab.WithContext(ctx))

	return clt.wrapRetryableErrors(err)
}

func (clt *Client) RelatedMergeRequests(ctx context.Context, projectID, issueIID int) ([]*MergeRequest, error) {
	opt := gitlab.ListMergeRequestsRelatedToIssueOptions{PerPage: perPage}

	var result []*MergeRequest

	for {
		mrs, resp, err := clt.clt.Issues.ListMergeRequestsRelatedToIssue(projectID, issueIID, &opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		for _, mr := range mrs {
			result = append(result, toMergeRequest(mr))
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opt.Page = resp.NextPage
	}
}

func (clt *Client) CommentMergeRequest(ctx context.Context, projectID, mrIID int, body string) error {
	opt := gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(body)}

	_, _, err := clt.clt.Notes.CreateMergeRequestNote(projectID, mrIID, &opt, gitlab.WithContext(ctx))

	return clt.wrapRetryableErrors(err)
}

func (clt *Client) MergeRequestComments(ctx context.Context, projectID, mrIID int) ([]*Comment, error) {
	opt := gitlab.ListMergeRequestNotesOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}

	var result []*Comment

	for {
		notes, resp, err := clt.clt.Notes.ListMergeRequestNotes(projectID, mrIID, &opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		for _, note := range notes {
			comment := Comment{
				Body:           note.Body,
				AuthorUsername: note.Author.Username,
			}

			if note.CreatedAt != nil {
				comment.CreatedAt = *note.CreatedAt
			}

			result = append(result, &comment)
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opt.Page = resp.NextPage
	}
}

func (clt *Client) MergeRequestChangedFiles(ctx context.Context, projectID, mrIID int) ([]string, error) {
	opt := gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}

	var result []string

	for {
		diffs, resp, err := clt.clt.MergeRequests.ListMergeRequestDiffs(projectID, mrIID, &opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		for _, diff := range diffs {
			result = append(result, diff.NewPath)
		}

		if resp.NextPage == 0 {
			return result, nil
		}

		opt.Page = resp.NextPage
	}
}

func (clt *Client) Branch(ctx context.Context, projectID int, name string) (*Branch, error) {
	branch, resp, err := clt.clt.Branches.GetBranch(projectID, name, gitlab.WithContext(ctx))
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}

		return nil, clt.wrapRetryableErrors(err)
	}

	result := Branch{Name: branch.Name}

	if branch.Commit != nil {
		result.LastCommitSHA = branch.Commit.ID

		if branch.Commit.CreatedAt != nil {
			result.LastCommitCreatedAt = *branch.Commit.CreatedAt
		}
	}

	return &result, nil
}

func (clt *Client) Username(ctx context.Context, userID int) (string, error) {
	user, _, err := clt.clt.Users.GetUser(userID, gitlab.GetUsersOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return "", clt.wrapRetryableErrors(err)
	}

	return user.Username, nil
}

func (clt *Client) CommitStatuses(ctx context.Context, projectID int, sha string) ([]*CommitStatus, error) {
	opt := gitlab.GetCommitStatusesOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage},
	}

	statuses, _, err := clt.clt.Commits.GetCommitStatuses(projectID, sha, &opt, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	result := make([]*CommitStatus, 0, len(statuses))
	for _, status := range statuses {
		result = append(result, &CommitStatus{
			ID:     status.ID,
			Name:   status.Name,
			Status: status.Status,
		})
	}

	return result, nil
}

func (clt *Client) RetryJob(ctx context.Context, projectID, jobID int) error {
	_, _, err := clt.clt.Jobs.RetryJob(projectID, jobID, gitlab.WithContext(ctx))
	return clt.wrapRetryableErrors(err)
}

func toMergeRequest(mr *gitlab.MergeRequest) *MergeRequest {
	result := MergeRequest{
		IID:             mr.IID,
		ProjectID:       mr.ProjectID,
		SourceProjectID: mr.SourceProjectID,
		Title:           mr.Title,
		Description:     mr.Description,
		State:           mr.State,
		Draft:           mr.Draft || mr.WorkInProgress,
		SourceBranch:    mr.SourceBranch,
		TargetBranch:    mr.TargetBranch,
		Labels:          append([]string{}, mr.Labels...),
		WebURL:          mr.WebURL,
	}

	if mr.Author != nil {
		result.AuthorID = mr.Author.ID
		result.AuthorUsername = mr.Author.Username
	}

	if mr.Assignee != nil {
		result.AssigneeID = mr.Assignee.ID
		result.AssigneeUsername = mr.Assignee.Username
	}

	if mr.Milestone != nil {
		result.MilestoneID = mr.Milestone.ID
	}

	if mr.MergedBy != nil {
		result.MergedByUsername = mr.MergedBy.Username
	}

	if mr.CreatedAt != nil {
		result.CreatedAt = *mr.CreatedAt
	}

	return &result
}

func toIssue(issue *gitlab.Issue) *Issue {
	result := Issue{
		IID:         issue.IID,
		ProjectID:   issue.ProjectID,
		Title:       issue.Title,
		Description: issue.Description,
		State:       issue.State,
		Labels:      append([]string{}, issue.Labels...),
		Weight:      issue.Weight,
		WebURL:      issue.WebURL,
	}

	if issue.Milestone != nil {
		result.MilestoneID = issue.Milestone.ID
	}

	for _, assignee := range issue.Assignees {
		result.AssigneeIDs = append(result.AssigneeIDs, assignee.ID)
		result.AssigneeUsernames = append(result.AssigneeUsernames, assignee.Username)
	}

	if issue.Author != nil {
		result.AuthorUsername = issue.Author.Username
	}

	if issue.UpdatedAt != nil {
		result.UpdatedAt = *issue.UpdatedAt
	}

	return &result
}

func isNotFound(resp *gitlab.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

func (clt *Client) wrapRetryableErrors(err error) error {
	if err == nil {
		return nil
	}

	var respErr *gitlab.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return err
	}

	code := respErr.Response.StatusCode

	if code == http.StatusTooManyRequests {
		retryAfter := time.Now().Add(time.Minute)

		clt.logger.Info(
			"api rate limit exceeded",
			logfields.Event("gitlab_api_rate_limit_exceeded"),
			zap.Time("earliest_retry", retryAfter),
		)

		return wardenerr.NewRetryableError(err, retryAfter)
	}

	if code >= 500 && code < 600 {
		return wardenerr.NewRetryableAnytimeError(fmt.Errorf("gitlab api returned status %d: %w", code, err))
	}

	return err
}
