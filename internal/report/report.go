// Package report finds stalled work and reminds the people who can
// unblock it: draft merge requests without recent activity, issues
// waiting on a decision and accepted issues nobody picked up.
// The schedule that triggers a report is the caller's business.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/commentguard"
	"github.com/wardenbot/warden/internal/gitlabclt"
	"github.com/wardenbot/warden/internal/logfields"
)

const loggerName = "report"

const (
	// staleAfter is the activity age beyond which a draft merge request
	// counts as stale.
	staleAfter = 30 * 24 * time.Hour
	// commentWindow suppresses repeated stale reminders, an identical
	// comment younger than this blocks a new one.
	commentWindow = 7 * 24 * time.Hour
)

const (
	defWaitingDecisionLabel = "waiting-decision"
	defAcceptedLabel        = "Accepted"
	defDontRushLabel        = "dont-rush-me"
)

// decisionDirective is the description line listing the users a
// waiting-decision issue waits for, e.g. "WFD: alice, bob".
const decisionDirective = "WFD:"

// experimentalBranchPrefix marks branches exempt from stale reporting.
const experimentalBranchPrefix = "exp_"

// GitlabClient is the gateway subset the reporter consumes.
type GitlabClient interface {
	MergeRequests(ctx context.Context, projectID int, filters gitlabclt.MRFilters) ([]*gitlabclt.MergeRequest, error)
	Branch(ctx context.Context, projectID int, name string) (*gitlabclt.Branch, error)
	MergeRequestComments(ctx context.Context, projectID, mrIID int) ([]*gitlabclt.Comment, error)
	CommentMergeRequest(ctx context.Context, projectID, mrIID int, body string) error
	Issues(ctx context.Context, projectID int, filters gitlabclt.IssueFilters) ([]*gitlabclt.Issue, error)
}

// Notifier delivers the per-user digests.
type Notifier interface {
	NotifyError(ctx context.Context, text string) error
	NotifyUser(ctx context.Context, username, text string) error
}

// Retryer repeats failed notifier sends.
type Retryer interface {
	Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error
}

// Reporter assembles and delivers the stale-work report.
type Reporter struct {
	clt      GitlabClient
	notifier Notifier
	retryer  Retryer
	clock    clock.Clock
	logger   *zap.Logger

	projects      []int
	formerMembers map[string]struct{}

	waitingDecisionLabel string
	acceptedLabel        string
	dontRushLabel        string

	staleGuard *commentguard.Guard
}

type option func(*Reporter)

// WithClock replaces the wall clock, it exists for tests.
func WithClock(clk clock.Clock) option {
	return func(r *Reporter) {
		r.clock = clk
	}
}

// WithFormerMembers names users that left the team. Their stale merge
// requests are reported to the operational channel instead of to them.
func WithFormerMembers(usernames []string) option {
	return func(r *Reporter) {
		for _, name := range usernames {
			r.formerMembers[name] = struct{}{}
		}
	}
}

// WithLabels overrides the workflow label names the reporter queries.
func WithLabels(waitingDecision, accepted, dontRush string) option {
	return func(r *Reporter) {
		r.waitingDecisionLabel = waitingDecision
		r.acceptedLabel = accepted
		r.dontRushLabel = dontRush
	}
}

func New(clt GitlabClient, notifier Notifier, retryer Retryer, projects []int, opts ...option) *Reporter {
	r := Reporter{
		clt:                  clt,
		notifier:             notifier,
		retryer:              retryer,
		clock:                clock.New(),
		logger:               zap.L().Named(loggerName),
		projects:             projects,
		formerMembers:        map[string]struct{}{},
		waitingDecisionLabel: defWaitingDecisionLabel,
		acceptedLabel:        defAcceptedLabel,
		dontRushLabel:        defDontRushLabel,
	}

	for _, opt := range opts {
		opt(&r)
	}

	r.staleGuard = commentguard.New(commentguard.SuppressIfDuplicateWithin, commentWindow, r.clock)

	return &r
}

// digest collects the reminder lines per recipient username.
type digest map[string][]string

func (d digest) add(username, line string) {
	if username == "" {
		return
	}

	d[username] = append(d[username], line)
}

// Run assembles the report for all configured projects and delivers the
// per-user digests. Failures in one project do not stop the others.
func (r *Reporter) Run(ctx context.Context) error {
	summary := digest{}

	var failed int

	for _, projectID := range r.projects {
		logger := r.logger.With(logfields.ProjectID(projectID))

		if err := r.reportProject(ctx, logger, projectID, summary); err != nil {
			failed++
			logger.Error("assembling report for project failed",
				logfields.Event("report_project_failed"),
				zap.Error(err),
			)
		}
	}

	r.deliverDigests(ctx, summary)

	if failed > 0 {
		return fmt.Errorf("report failed for %d of %d projects", failed, len(r.projects))
	}

	return nil
}

func (r *Reporter) reportProject(ctx context.Context, logger *zap.Logger, projectID int, summary digest) error {
	if err := r.reportStaleMergeRequests(ctx, logger, projectID, summary); err != nil {
		return err
	}

	if err := r.reportDecisionIssues(ctx, projectID, summary); err != nil {
		return err
	}

	return r.reportAcceptedIssues(ctx, projectID, summary)
}

// reportStaleMergeRequests finds draft merge requests without commit
// activity for staleAfter and reminds their owners, at most once per
// commentWindow.
func (r *Reporter) reportStaleMergeRequests(ctx context.Context, logger *zap.Logger, projectID int, summary digest) error {
	mrs, err := r.clt.MergeRequests(ctx, projectID, gitlabclt.MRFilters{
		State: "opened",
		Scope: "all",
		WIP:   "yes",
	})
	if err != nil {
		return fmt.Errorf("listing draft merge requests failed: %w", err)
	}

	for _, mr := range mrs {
		if strings.HasPrefix(mr.SourceBranch, experimentalBranchPrefix) {
			continue
		}

		if hasLabel(mr.Labels, r.dontRushLabel) {
			continue
		}

		stale, err := r.isStale(ctx, projectID, mr)
		if err != nil {
			return err
		}

		if !stale {
			continue
		}

		if err := r.remindStaleMR(ctx, logger, projectID, mr, summary); err != nil {
			return err
		}
	}

	return nil
}

// isStale reports whether mr had no commit activity for staleAfter.
// The source branch's last commit date decides; a deleted branch falls
// back to the merge request's creation date.
func (r *Reporter) isStale(ctx context.Context, projectID int, mr *gitlabclt.MergeRequest) (bool, error) {
	lastActivity := mr.CreatedAt

	branch, err := r.clt.Branch(ctx, projectID, mr.SourceBranch)
	if err != nil {
		return false, fmt.Errorf("fetching branch %q failed: %w", mr.SourceBranch, err)
	}

	if branch != nil && !branch.LastCommitCreatedAt.IsZero() {
		lastActivity = branch.LastCommitCreatedAt
	}

	return r.clock.Now().Sub(lastActivity) > staleAfter, nil
}

func (r *Reporter) remindStaleMR(ctx context.Context, logger *zap.Logger, projectID int, mr *gitlabclt.MergeRequest, summary digest) error {
	owner := mr.MentionUsername()

	if _, former := r.formerMembers[owner]; former {
		r.notifyOperator(ctx, fmt.Sprintf(
			"merge request %s is stale and its owner %s is no longer on the team, it needs a new owner",
			mr.WebURL, owner,
		))

		return nil
	}

	body := msgStaleMR(owner)

	comments, err := r.clt.MergeRequestComments(ctx, projectID, mr.IID)
	if err != nil {
		return fmt.Errorf("listing comments of merge request !%d failed: %w", mr.IID, err)
	}

	if r.staleGuard.Allow(body, comments) {
		if err := r.clt.CommentMergeRequest(ctx, projectID, mr.IID, body); err != nil {
			return fmt.Errorf("commenting merge request !%d failed: %w", mr.IID, err)
		}

		logger.Debug("stale merge request reminded",
			logfields.Event("stale_mr_reminded"),
			logfields.MergeRequest(mr.IID),
		)
	}

	summary.add(owner, fmt.Sprintf("stale merge request: %s (%s)", mr.Title, mr.WebURL))

	return nil
}

// reportDecisionIssues reminds the users named in the decision directive
// of waiting-decision issues.
func (r *Reporter) reportDecisionIssues(ctx context.Context, projectID int, summary digest) error {
	issues, err := r.clt.Issues(ctx, projectID, gitlabclt.IssueFilters{
		State:  "opened",
		Scope:  "all",
		Labels: []string{r.waitingDecisionLabel},
	})
	if err != nil {
		return fmt.Errorf("listing waiting-decision issues failed: %w", err)
	}

	for _, issue := range issues {
		for _, username := range DecisionUsers(issue.Description) {
			summary.add(username, fmt.Sprintf("issue waiting for your decision: %s (%s)", issue.Title, issue.WebURL))
		}
	}

	return nil
}

// reportAcceptedIssues reminds assignees of accepted but unstarted
// issues.
func (r *Reporter) reportAcceptedIssues(ctx context.Context, projectID int, summary digest) error {
	issues, err := r.clt.Issues(ctx, projectID, gitlabclt.IssueFilters{
		State:  "opened",
		Scope:  "all",
		Labels: []string{r.acceptedLabel},
	})
	if err != nil {
		return fmt.Errorf("listing accepted issues failed: %w", err)
	}

	for _, issue := range issues {
		for _, username := range issue.AssigneeUsernames {
			summary.add(username, fmt.Sprintf("accepted issue without progress: %s (%s)", issue.Title, issue.WebURL))
		}
	}

	return nil
}

// DecisionUsers extracts the usernames from the decision directive line
// of an issue description. An absent directive yields nil.
func DecisionUsers(description string) []string {
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, decisionDirective) {
			continue
		}

		var result []string
		for _, name := range strings.Split(strings.TrimPrefix(line, decisionDirective), ",") {
			name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "@"))
			if name != "" {
				result = append(result, name)
			}
		}

		return result
	}

	return nil
}

// deliverDigests sends every user their digest as a direct message.
// Sends are retried, a user that can not be reached does not block the
// others.
func (r *Reporter) deliverDigests(ctx context.Context, summary digest) {
	for username, lines := range summary {
		text := msgDigest(lines)

		err := r.retryer.Run(ctx, func(ctx context.Context) error {
			return r.notifier.NotifyUser(ctx, username, text)
		}, []zap.Field{zap.String("slack.username", username)})
		if err != nil {
			r.logger.Warn("delivering digest failed",
				logfields.Event("report_digest_delivery_failed"),
				zap.String("slack.username", username),
				zap.Error(err),
			)
		}
	}
}

func (r *Reporter) notifyOperator(ctx context.Context, text string) {
	if err := r.notifier.NotifyError(ctx, text); err != nil {
		r.logger.Warn("sending operational notification failed",
			logfields.Event("notification_failed"),
			zap.Error(err),
		)
	}
}

func msgStaleMR(username string) string {
	return fmt.Sprintf(
		"@%s: this merge request has had no activity for more than 30 days. "+
			"Please finish it, close it, or label it accordingly.",
		username,
	)
}

func msgDigest(lines []string) string {
	var b strings.Builder

	b.WriteString("Your pending work items:\n")
	for _, line := range lines {
		b.WriteString("  - ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func hasLabel(labels []string, name string) bool {
	for _, label := range labels {
		if label == name {
			return true
		}
	}

	return false
}
