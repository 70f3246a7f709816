package commentguard

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"github.com/wardenbot/warden/internal/gitlabclt"
)

func comments(bodies ...string) []*gitlabclt.Comment {
	result := make([]*gitlabclt.Comment, 0, len(bodies))
	for _, body := range bodies {
		result = append(result, &gitlabclt.Comment{Body: body})
	}

	return result
}

func TestStripMention(t *testing.T) {
	assert.Equal(t, "please add a changelog entry", StripMention("@alice: please add a changelog entry"))
	assert.Equal(t, "no mention here", StripMention("no mention here"))
}

func TestAlwaysAllow(t *testing.T) {
	guard := New(AlwaysAllow, 0, nil)

	assert.True(t, guard.Allow("hi", comments("hi")))
}

func TestSuppressDuplicate(t *testing.T) {
	guard := New(SuppressIfDuplicate, 0, nil)

	existing := comments("@bob: please add a changelog entry")

	assert.False(t, guard.Allow("@alice: please add a changelog entry", existing),
		"same message for a different assignee is a duplicate")
	assert.True(t, guard.Allow("@alice: the pipeline failed", existing))
}

func TestSuppressDuplicateWithinWindow(t *testing.T) {
	clk := clock.NewMock()
	guard := New(SuppressIfDuplicateWithin, 7*24*time.Hour, clk)

	old := &gitlabclt.Comment{
		Body:      "@alice: this merge request looks inactive",
		CreatedAt: clk.Now(),
	}

	assert.False(t, guard.Allow("@alice: this merge request looks inactive", []*gitlabclt.Comment{old}))

	clk.Add(8 * 24 * time.Hour)
	assert.True(t, guard.Allow("@alice: this merge request looks inactive", []*gitlabclt.Comment{old}),
		"window expired, the reminder may be repeated")
}
