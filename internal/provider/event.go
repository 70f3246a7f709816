// Package provider defines the events that webhook providers emit towards
// the event loop.
package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/logfields"
)

// Kind identifies the hook type of an event.
type Kind string

const (
	KindPush         Kind = "push"
	KindMergeRequest Kind = "merge_request"
)

// PushEvent describes a branch push.
type PushEvent struct {
	ProjectID   int
	ProjectName string
	Ref         string
	// Branch is Ref with the refs/heads/ prefix removed.
	Branch string
	// CheckoutSHA is empty when the push deleted the branch.
	CheckoutSHA  string
	UserUsername string
}

// Deleted reports whether the push removed the branch.
func (p *PushEvent) Deleted() bool {
	return p.CheckoutSHA == ""
}

// MergeRequestEvent describes a change of a merge request.
type MergeRequestEvent struct {
	// ProjectID is the ID of the source project, merge request lookups
	// and updates go through it.
	ProjectID    int
	ProjectName  string
	IID          int
	SourceBranch string
	TargetBranch string
	Title        string
	Description  string
	State        string
	Draft        bool
	Labels       []string
	MilestoneID  int
	AuthorID     int
	Action       string
	UserUsername string
	URL          string
}

// Event is a validated webhook delivery.
type Event struct {
	// JSON is the raw hook payload, kept for filter evaluation.
	JSON       []byte
	Provider   string
	DeliveryID string
	Kind       Kind
	// Exactly one of the following is set, matching Kind.
	Push         *PushEvent
	MergeRequest *MergeRequestEvent
}

func (e *Event) String() string {
	return fmt.Sprintf("%s (deliveryID: %s)", e.Kind, e.DeliveryID)
}

// ProjectName returns the name of the repository the event belongs to.
func (e *Event) ProjectName() string {
	switch e.Kind {
	case KindPush:
		return e.Push.ProjectName
	case KindMergeRequest:
		return e.MergeRequest.ProjectName
	default:
		return ""
	}
}

func (e *Event) LogFields() []zap.Field {
	fields := make([]zap.Field, 0, 7) // cap == max. size of fields we append

	fields = append(fields, logfields.EventProvider(e.Provider))

	if e.DeliveryID != "" {
		fields = append(fields, zap.String("gitlab.delivery_id", e.DeliveryID))
	}

	if e.Kind != "" {
		fields = append(fields, zap.String("gitlab.event_kind", string(e.Kind)))
	}

	switch {
	case e.Push != nil:
		fields = append(fields,
			logfields.Project(e.Push.ProjectName),
			logfields.Branch(e.Push.Branch),
		)
		if e.Push.CheckoutSHA != "" {
			fields = append(fields, logfields.Commit(e.Push.CheckoutSHA))
		}

	case e.MergeRequest != nil:
		fields = append(fields,
			logfields.Project(e.MergeRequest.ProjectName),
			logfields.MergeRequest(e.MergeRequest.IID),
			logfields.Branch(e.MergeRequest.SourceBranch),
		)
	}

	return fields
}

// ParseError reports a hook payload that could not be turned into an
// Event. Deliveries failing with it are rejected, not queued.
type ParseError struct {
	EventType string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s hook payload failed: %s", e.EventType, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
