// Package enforcer processes webhook events and enforces the repository
// hygiene policies: branch naming, changelog presence, issue-label
// synchronization and multi-main merge-request propagation.
package enforcer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/itchyny/gojq"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/cfg"
	"github.com/wardenbot/warden/internal/commentguard"
	"github.com/wardenbot/warden/internal/gitlabclt"
	"github.com/wardenbot/warden/internal/logfields"
	"github.com/wardenbot/warden/internal/provider"
)

const loggerName = "enforcer"

const defEventTimeout = 5 * time.Minute

// Enforcer consumes events from a bounded channel, one at a time, and
// runs the policy checks for them. Read-then-act sequences are safe
// within one process because of the single consumer; races across
// instances or overlapping webhook redeliveries are accepted.
type Enforcer struct {
	clt      GitlabClient
	notifier Notifier
	policies *cfg.Policies

	ch     <-chan *provider.Event
	logger *zap.Logger

	eventTimeout time.Duration
	botUsername  string
	clock        clock.Clock

	dedupGuard    *commentguard.Guard
	ignoreQueries map[string]*gojq.Query

	wg sync.WaitGroup
}

type option func(*Enforcer)

// WithEventTimeout bounds the processing time of a single event.
func WithEventTimeout(timeout time.Duration) option {
	return func(e *Enforcer) {
		e.eventTimeout = timeout
	}
}

// WithBotUsername enables suppression of merge-request events caused by
// the bot's own API user, it prevents feedback loops.
func WithBotUsername(username string) option {
	return func(e *Enforcer) {
		e.botUsername = username
	}
}

// WithClock replaces the wall clock, it exists for tests.
func WithClock(clk clock.Clock) option {
	return func(e *Enforcer) {
		e.clock = clk
	}
}

// New returns an Enforcer reading from eventChan.
// It fails when a project policy carries an ignore query that does not
// parse.
func New(
	clt GitlabClient,
	notifier Notifier,
	policies *cfg.Policies,
	eventChan <-chan *provider.Event,
	opts ...option,
) (*Enforcer, error) {
	e := Enforcer{
		clt:          clt,
		notifier:     notifier,
		policies:     policies,
		ch:           eventChan,
		logger:       zap.L().Named(loggerName),
		eventTimeout: defEventTimeout,
		clock:        clock.New(),
	}

	for _, opt := range opts {
		opt(&e)
	}

	e.dedupGuard = commentguard.New(commentguard.SuppressIfDuplicate, 0, e.clock)

	e.ignoreQueries = map[string]*gojq.Query{}
	for _, name := range policies.ProjectNames() {
		policy, _ := policies.PolicyFor(name)
		if policy.IgnoreQuery == "" {
			continue
		}

		query, err := gojq.Parse(policy.IgnoreQuery)
		if err != nil {
			return nil, fmt.Errorf("parsing ignore query of project %q failed: %w", name, err)
		}

		e.ignoreQueries[name] = query
	}

	return &e, nil
}

// Start runs the event loop in a goroutine.
func (e *Enforcer) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.EventLoop()
	}()
}

// Stop waits until the event loop terminated.
// The loop terminates when the event channel is closed.
func (e *Enforcer) Stop() {
	e.logger.Debug("enforcer terminating")
	e.wg.Wait()
	e.logger.Debug("enforcer terminated")
}

// EventLoop processes events until the channel is closed. One event is
// processed to completion before the next is read.
func (e *Enforcer) EventLoop() {
	e.logger.Info("enforcer event loop started")

	for event := range e.ch {
		e.ProcessEvent(context.Background(), event)
	}

	e.logger.Info("enforcer event loop terminated")
}

// ProcessEvent runs the policy checks for a single event.
// Failures are logged and surfaced to the operational channel; the event
// is not retried, redelivery is the webhook sender's responsibility.
func (e *Enforcer) ProcessEvent(ctx context.Context, event *provider.Event) {
	metrics.ProcessedEventsInc()

	logger := e.logger.With(event.LogFields()...)
	logger.Debug("event received")

	ctx, cancel := context.WithTimeout(ctx, e.eventTimeout)
	defer cancel()

	var outcome string
	var err error

	switch event.Kind {
	case provider.KindPush:
		outcome, err = e.HandlePush(ctx, event)
	case provider.KindMergeRequest:
		outcome, err = e.HandleMergeRequest(ctx, event)
	default:
		logger.Debug("event ignored, unsupported kind",
			logfields.Event("event_ignored"),
		)
		return
	}

	if err != nil {
		logger.Error("processing event failed",
			logfields.Event("event_processing_failed"),
			logfields.Outcome(outcome),
			zap.Error(err),
		)

		e.notifyError(ctx, fmt.Sprintf(
			"processing %s event for project %s failed: %s",
			event.Kind, event.ProjectName(), err,
		))

		return
	}

	logger.Info("event processed",
		logfields.Event("event_processed"),
		logfields.Outcome(outcome),
	)
}

// policyFor resolves the project policy of an event and evaluates its
// ignore query against the raw payload.
func (e *Enforcer) policyFor(ctx context.Context, event *provider.Event) (*cfg.ProjectPolicy, error) {
	name := event.ProjectName()

	policy, exist := e.policies.PolicyFor(name)
	if !exist {
		return nil, &ConfigurationMissingError{Project: name}
	}

	query, exist := e.ignoreQueries[name]
	if !exist {
		return policy, nil
	}

	ignore, err := evalBoolQuery(ctx, query, event.JSON)
	if err != nil {
		return nil, fmt.Errorf("evaluating ignore query failed: %w", err)
	}

	if ignore {
		return nil, nil
	}

	return policy, nil
}

// evalBoolQuery runs a jq query against a JSON document and interprets
// the single result as boolean.
func evalBoolQuery(ctx context.Context, query *gojq.Query, doc []byte) (bool, error) {
	var unmarshalled any

	if err := json.Unmarshal(doc, &unmarshalled); err != nil {
		return false, fmt.Errorf("unmarshalling json failed: %w", err)
	}

	iter := query.RunWithContext(ctx, unmarshalled)

	result, ok := iter.Next()
	if !ok {
		return false, fmt.Errorf("json query returned 0 results, expected 1, query: %q", query.String())
	}

	if err, isErr := result.(error); isErr {
		return false, fmt.Errorf("json query returned error, query: %q: %w", query.String(), err)
	}

	if _, hasMore := iter.Next(); hasMore {
		return false, fmt.Errorf("json query returned multiple results, expected 1, query: %q", query.String())
	}

	boolResult, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("json query evaluated to %T, expected boolean, query: %q", result, query.String())
	}

	return boolResult, nil
}

// postGuardedComment posts body on a merge request unless an equivalent
// comment exists already. It reports whether the comment was posted.
func (e *Enforcer) postGuardedComment(
	ctx context.Context,
	policy *cfg.ProjectPolicy,
	projectID, mrIID int,
	body string,
) (bool, error) {
	comments, err := e.clt.MergeRequestComments(ctx, projectID, mrIID)
	if err != nil {
		return false, fmt.Errorf("listing comments of merge request !%d failed: %w", mrIID, err)
	}

	if !e.dedupGuard.Allow(body, comments) {
		metrics.CommentsInc(policy.Project, commentResultSuppressedVal)
		return false, nil
	}

	if err := e.clt.CommentMergeRequest(ctx, projectID, mrIID, body); err != nil {
		return false, fmt.Errorf("commenting merge request !%d failed: %w", mrIID, err)
	}

	metrics.CommentsInc(policy.Project, commentResultPostedVal)

	return true, nil
}

func (e *Enforcer) notifyError(ctx context.Context, text string) {
	if err := e.notifier.NotifyError(ctx, text); err != nil {
		e.logger.Warn("sending operational error notification failed",
			logfields.Event("notification_failed"),
			zap.Error(err),
		)
	}
}

func (e *Enforcer) notifyDebug(ctx context.Context, text string) {
	if err := e.notifier.NotifyDebug(ctx, text); err != nil {
		e.logger.Warn("sending operational debug notification failed",
			logfields.Event("notification_failed"),
			zap.Error(err),
		)
	}
}

// openMergeRequests lists the non-closed merge requests whose source
// branch is sourceBranch.
func (e *Enforcer) openMergeRequests(ctx context.Context, projectID int, sourceBranch string) ([]*gitlabclt.MergeRequest, error) {
	mrs, err := e.clt.MergeRequests(ctx, projectID, gitlabclt.MRFilters{
		SourceBranch: sourceBranch,
		State:        "opened",
		Scope:        "all",
	})
	if err != nil {
		return nil, fmt.Errorf("listing merge requests for branch %q failed: %w", sourceBranch, err)
	}

	return mrs, nil
}
