package gitlabclt

import (
	"context"
	"fmt"

	"github.com/wardenbot/warden/internal/lookupcache"
)

// CachingClient decorates a Service with a process-lifetime cache for
// read-mostly lookups.
// Comments are never cached, they serve as the idempotency ledger for the
// duplicate-comment guard and must be read fresh.
// Mutations pass through and flush the whole cache, slightly stale reads
// between mutation and flush are tolerated by the callers.
type CachingClient struct {
	clt   Service
	cache *lookupcache.Cache
}

func NewCachingClient(clt Service, cache *lookupcache.Cache) *CachingClient {
	return &CachingClient{clt: clt, cache: cache}
}

func (c *CachingClient) Issue(ctx context.Context, projectID, issueIID int) (*Issue, error) {
	key := fmt.Sprintf("issue/%d/%d", projectID, issueIID)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.Issue(ctx, projectID, issueIID)
	})
	if err != nil {
		return nil, err
	}

	return val.(*Issue), nil
}

func (c *CachingClient) Issues(ctx context.Context, projectID int, filters IssueFilters) ([]*Issue, error) {
	key := fmt.Sprintf("issues/%d/%+v", projectID, filters)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.Issues(ctx, projectID, filters)
	})
	if err != nil {
		return nil, err
	}

	return val.([]*Issue), nil
}

func (c *CachingClient) UpdateIssue(ctx context.Context, projectID, issueIID int, upd *IssueUpdate) error {
	err := c.clt.UpdateIssue(ctx, projectID, issueIID, upd)
	if err == nil {
		c.cache.InvalidateAll()
	}

	return err
}

func (c *CachingClient) MergeRequests(ctx context.Context, projectID int, filters MRFilters) ([]*MergeRequest, error) {
	key := fmt.Sprintf("mrs/%d/%+v", projectID, filters)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.MergeRequests(ctx, projectID, filters)
	})
	if err != nil {
		return nil, err
	}

	return val.([]*MergeRequest), nil
}

func (c *CachingClient) MergeRequest(ctx context.Context, projectID, mrIID int) (*MergeRequest, error) {
	key := fmt.Sprintf("mr/%d/%d", projectID, mrIID)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.MergeRequest(ctx, projectID, mrIID)
	})
	if err != nil {
		return nil, err
	}

	return val.(*MergeRequest), nil
}

func (c *CachingClient) CreateMergeRequest(ctx context.Context, projectID int, mr *NewMergeRequest) (*MergeRequest, error) {
	created, err := c.clt.CreateMergeRequest(ctx, projectID, mr)
	if err == nil {
		c.cache.InvalidateAll()
	}

	return created, err
}

func (c *CachingClient) UpdateMergeRequest(ctx context.Context, projectID, mrIID int, upd *MergeRequestUpdate) error {
	err := c.clt.UpdateMergeRequest(ctx, projectID, mrIID, upd)
	if err == nil {
		c.cache.InvalidateAll()
	}

	return err
}

func (c *CachingClient) RelatedMergeRequests(ctx context.Context, projectID, issueIID int) ([]*MergeRequest, error) {
	key := fmt.Sprintf("relatedmrs/%d/%d", projectID, issueIID)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.RelatedMergeRequests(ctx, projectID, issueIID)
	})
	if err != nil {
		return nil, err
	}

	return val.([]*MergeRequest), nil
}

func (c *CachingClient) CommentMergeRequest(ctx context.Context, projectID, mrIID int, body string) error {
	return c.clt.CommentMergeRequest(ctx, projectID, mrIID, body)
}

func (c *CachingClient) MergeRequestComments(ctx context.Context, projectID, mrIID int) ([]*Comment, error) {
	return c.clt.MergeRequestComments(ctx, projectID, mrIID)
}

func (c *CachingClient) MergeRequestChangedFiles(ctx context.Context, projectID, mrIID int) ([]string, error) {
	key := fmt.Sprintf("mrdiff/%d/%d", projectID, mrIID)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.MergeRequestChangedFiles(ctx, projectID, mrIID)
	})
	if err != nil {
		return nil, err
	}

	return val.([]string), nil
}

func (c *CachingClient) Branch(ctx context.Context, projectID int, name string) (*Branch, error) {
	key := fmt.Sprintf("branch/%d/%s", projectID, name)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.Branch(ctx, projectID, name)
	})
	if err != nil {
		return nil, err
	}

	return val.(*Branch), nil
}

func (c *CachingClient) Username(ctx context.Context, userID int) (string, error) {
	key := fmt.Sprintf("username/%d", userID)

	val, err := c.cache.Get(key, func() (any, error) {
		return c.clt.Username(ctx, userID)
	})
	if err != nil {
		return "", err
	}

	return val.(string), nil
}

func (c *CachingClient) CommitStatuses(ctx context.Context, projectID int, sha string) ([]*CommitStatus, error) {
	return c.clt.CommitStatuses(ctx, projectID, sha)
}

func (c *CachingClient) RetryJob(ctx context.Context, projectID, jobID int) error {
	return c.clt.RetryJob(ctx, projectID, jobID)
}
