package gitlabclt

import (
	"context"
	"time"
)

// MergeRequest is the gateway's view of a merge request, identified by
// (project id, iid).
type MergeRequest struct {
	IID             int
	ProjectID       int
	SourceProjectID int

	Title       string
	Description string

	// State is one of "opened", "merged", "closed", "locked".
	State string
	Draft bool

	SourceBranch string
	TargetBranch string

	Labels []string

	AuthorID         int
	AuthorUsername   string
	AssigneeID       int
	AssigneeUsername string
	MilestoneID      int

	// MergedByUsername is only set on full records fetched via
	// MergeRequest(), list endpoints omit it.
	MergedByUsername string

	WebURL    string
	CreatedAt time.Time
}

func (m *MergeRequest) Finished() bool {
	return m.State == "closed" || m.State == "merged"
}

// MentionUsername returns the user to address in comments on the merge
// request, the assignee when there is one, the author otherwise.
func (m *MergeRequest) MentionUsername() string {
	if m.AssigneeUsername != "" {
		return m.AssigneeUsername
	}

	return m.AuthorUsername
}

type Issue struct {
	IID       int
	ProjectID int

	Title       string
	Description string
	State       string

	Labels []string

	MilestoneID       int
	AssigneeIDs       []int
	AssigneeUsernames []string
	AuthorUsername    string

	// Weight is 0 when unset, the API does not distinguish an explicit
	// zero weight from an absent one.
	Weight int

	WebURL    string
	UpdatedAt time.Time
}

type Comment struct {
	Body           string
	AuthorUsername string
	CreatedAt      time.Time
}

type Branch struct {
	Name                string
	LastCommitSHA       string
	LastCommitCreatedAt time.Time
}

type CommitStatus struct {
	ID     int
	Name   string
	Status string
}

// NewMergeRequest is the data for creating a merge request.
type NewMergeRequest struct {
	SourceBranch string
	TargetBranch string
	Title        string
	Description  string
	Labels       []string
}

// MergeRequestUpdate lists merge-request fields to change, nil fields are
// left untouched.
type MergeRequestUpdate struct {
	Title       *string
	Description *string
	AssigneeID  *int
	MilestoneID *int
}

func (u *MergeRequestUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.AssigneeID == nil && u.MilestoneID == nil
}

// IssueUpdate lists issue fields to change.
// A non-nil Labels is a full replacement of the issue's label set.
type IssueUpdate struct {
	Labels []string
	// StateEvent is "close" or "reopen" when set.
	StateEvent *string
}

// MRFilters narrows merge-request list queries, zero values are not sent.
type MRFilters struct {
	SourceBranch string
	TargetBranch string
	State        string
	Scope        string
	WIP          string
}

// IssueFilters narrows issue list queries.
type IssueFilters struct {
	State  string
	Scope  string
	Labels []string
}

// Service is the full operation set of the remote repository gateway.
// Client implements it against the live API, CachingClient and DryClient
// decorate it.
type Service interface {
	Issue(ctx context.Context, projectID, issueIID int) (*Issue, error)
	Issues(ctx context.Context, projectID int, filters IssueFilters) ([]*Issue, error)
	UpdateIssue(ctx context.Context, projectID, issueIID int, upd *IssueUpdate) error
	MergeRequests(ctx context.Context, projectID int, filters MRFilters) ([]*MergeRequest, error)
	MergeRequest(ctx context.Context, projectID, mrIID int) (*MergeRequest, error)
	CreateMergeRequest(ctx context.Context, projectID int, mr *NewMergeRequest) (*MergeRequest, error)
	UpdateMergeRequest(ctx context.Context, projectID, mrIID int, upd *MergeRequestUpdate) error
	RelatedMergeRequests(ctx context.Context, projectID, issueIID int) ([]*MergeRequest, error)
	CommentMergeRequest(ctx context.Context, projectID, mrIID int, body string) error
	MergeRequestComments(ctx context.Context, projectID, mrIID int) ([]*Comment, error)
	MergeRequestChangedFiles(ctx context.Context, projectID, mrIID int) ([]string, error)
	Branch(ctx context.Context, projectID int, name string) (*Branch, error)
	Username(ctx context.Context, userID int) (string, error)
	CommitStatuses(ctx context.Context, projectID int, sha string) ([]*CommitStatus, error)
	RetryJob(ctx context.Context, projectID, jobID int) error
}
