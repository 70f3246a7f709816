package gitlabclt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/lookupcache"
)

// stubService embeds Service, only the overridden methods may be called.
type stubService struct {
	Service

	issueCalls  int
	listCalls   int
	createCalls int
}

func (s *stubService) Issue(context.Context, int, int) (*Issue, error) {
	s.issueCalls++
	return &Issue{IID: 7}, nil
}

func (s *stubService) MergeRequests(context.Context, int, MRFilters) ([]*MergeRequest, error) {
	s.listCalls++
	return []*MergeRequest{{IID: s.listCalls}}, nil
}

func (s *stubService) CreateMergeRequest(context.Context, int, *NewMergeRequest) (*MergeRequest, error) {
	s.createCalls++
	return &MergeRequest{IID: 99}, nil
}

func TestCachingClientCachesReads(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	stub := stubService{}
	clt := NewCachingClient(&stub, lookupcache.New())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		issue, err := clt.Issue(ctx, 1, 7)
		require.NoError(t, err)
		require.Equal(t, 7, issue.IID)
	}

	assert.Equal(t, 1, stub.issueCalls)
}

func TestCachingClientFlushesOnMutation(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	stub := stubService{}
	clt := NewCachingClient(&stub, lookupcache.New())
	ctx := context.Background()

	filters := MRFilters{SourceBranch: "tkt_1_x"}

	_, err := clt.MergeRequests(ctx, 1, filters)
	require.NoError(t, err)
	_, err = clt.MergeRequests(ctx, 1, filters)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.listCalls)

	_, err = clt.CreateMergeRequest(ctx, 1, &NewMergeRequest{})
	require.NoError(t, err)

	_, err = clt.MergeRequests(ctx, 1, filters)
	require.NoError(t, err)
	assert.Equal(t, 2, stub.listCalls, "mr list must be re-fetched after a mutation")
}

func TestCachingClientUsesDistinctFilterKeys(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	stub := stubService{}
	clt := NewCachingClient(&stub, lookupcache.New())
	ctx := context.Background()

	_, err := clt.MergeRequests(ctx, 1, MRFilters{SourceBranch: "a"})
	require.NoError(t, err)
	_, err = clt.MergeRequests(ctx, 1, MRFilters{SourceBranch: "b"})
	require.NoError(t, err)

	assert.Equal(t, 2, stub.listCalls)
}
