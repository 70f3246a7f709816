// Package gitlab receives gitlab webhook deliveries, validates them and
// forwards them as events to a channel.
package gitlab

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	gitlab "github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/logfields"
	"github.com/wardenbot/warden/internal/provider"
)

const loggerName = "gitlab-event-provider"

// Provider listens for gitlab-webhook http-requests at a http-server
// handler, validates and converts the requests to Events and forwards
// them to an event channel.
type Provider struct {
	logger      *zap.Logger
	secretToken []byte
	c           chan<- *provider.Event
}

type option func(*Provider)

// WithSecretToken enables validation of the X-Gitlab-Token header.
func WithSecretToken(token string) option {
	return func(p *Provider) {
		p.secretToken = []byte(token)
	}
}

func New(eventChan chan<- *provider.Event, opts ...option) *Provider {
	p := Provider{
		c: eventChan,
	}

	for _, o := range opts {
		o(&p)
	}

	if p.logger == nil {
		p.logger = zap.L().Named(loggerName)
	}

	return &p
}

func (p *Provider) HTTPHandler(resp http.ResponseWriter, req *http.Request) {
	deliveryID := req.Header.Get("X-Gitlab-Event-UUID")
	hookType := gitlab.HookEventType(req)

	logger := p.logger.With(
		logfields.EventProvider("gitlab"),
		zap.String("gitlab.delivery_id", deliveryID),
		zap.String("gitlab.webhook_type", string(hookType)),
	)

	if len(p.secretToken) != 0 {
		token := []byte(req.Header.Get("X-Gitlab-Token"))
		if subtle.ConstantTimeCompare(token, p.secretToken) != 1 {
			logger.Info(
				"received http request with missing or wrong secret token",
				logfields.Event("gitlab_http_request_token_mismatch"),
			)
			http.Error(resp, "invalid token", http.StatusForbidden)
			return
		}
	}

	payload, err := io.ReadAll(req.Body)
	if err != nil {
		logger.Info(
			"reading http request body failed",
			logfields.Event("gitlab_http_request_read_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Debug(
		"received http request",
		logfields.Event("gitlab_event_received"),
		zap.ByteString("http_body", payload),
	)

	event, err := toEvent(hookType, deliveryID, payload)
	if err != nil {
		var parseErr *provider.ParseError
		if errors.As(err, &parseErr) {
			logger.Info(
				"received invalid http request, parsing failed",
				logfields.Event("gitlab_event_parsing_failed"),
				zap.Error(err),
			)
			http.Error(resp, err.Error(), http.StatusBadRequest)
			return
		}

		logger.Error(
			"processing hook payload failed",
			logfields.Event("gitlab_event_processing_failed"),
			zap.Error(err),
		)
		http.Error(resp, err.Error(), http.StatusInternalServerError)
		return
	}

	if event == nil {
		logger.Debug("ignoring event, event type is unsupported",
			logfields.Event("gitlab_unsupported_event_received"),
		)
		return
	}

	select {
	case p.c <- event:
		logger.Debug("event forwarded to channel",
			logfields.Event("gitlab_event_forwarded"),
		)

	default:
		logger.Warn(
			"event lost, forwarding event to channel failed",
			zap.String("error", "could not forward event to channel, send would have blocked"),
			logfields.Event("gitlab_forwarding_event_failed"),
		)

		http.Error(resp, "queue full", http.StatusServiceUnavailable)
		return
	}
}

// toEvent converts a hook payload to a provider event. It returns
// (nil, nil) for hook types the event loop does not process.
func toEvent(hookType gitlab.EventType, deliveryID string, payload []byte) (*provider.Event, error) {
	switch hookType {
	case gitlab.EventTypePush, gitlab.EventTypeMergeRequest:
	default:
		return nil, nil
	}

	parsed, err := gitlab.ParseWebhook(hookType, payload)
	if err != nil {
		return nil, &provider.ParseError{EventType: string(hookType), Err: err}
	}

	ev := provider.Event{
		JSON:       payload,
		Provider:   "gitlab",
		DeliveryID: deliveryID,
	}

	switch parsed := parsed.(type) {
	case *gitlab.PushEvent:
		branch, isBranch := strings.CutPrefix(parsed.Ref, "refs/heads/")
		if !isBranch {
			// tag pushes arrive as tag_push hooks, a push hook with a
			// non-branch ref is malformed
			return nil, &provider.ParseError{
				EventType: string(hookType),
				Err:       errors.New("push ref is not a branch ref: " + parsed.Ref),
			}
		}

		if parsed.ProjectID == 0 {
			return nil, &provider.ParseError{
				EventType: string(hookType),
				Err:       errors.New("push event is missing the project id"),
			}
		}

		ev.Kind = provider.KindPush
		ev.Push = &provider.PushEvent{
			ProjectID:    parsed.ProjectID,
			ProjectName:  parsed.Project.Name,
			Ref:          parsed.Ref,
			Branch:       branch,
			CheckoutSHA:  parsed.CheckoutSHA,
			UserUsername: parsed.UserUsername,
		}

	case *gitlab.MergeEvent:
		attrs := parsed.ObjectAttributes

		if attrs.IID == 0 || attrs.SourceProjectID == 0 {
			return nil, &provider.ParseError{
				EventType: string(hookType),
				Err:       errors.New("merge request event is missing the iid or source project id"),
			}
		}

		labels := make([]string, 0, len(parsed.Labels))
		for _, label := range parsed.Labels {
			labels = append(labels, label.Title)
		}

		var username string
		if parsed.User != nil {
			username = parsed.User.Username
		}

		ev.Kind = provider.KindMergeRequest
		ev.MergeRequest = &provider.MergeRequestEvent{
			ProjectID:    attrs.SourceProjectID,
			ProjectName:  parsed.Project.Name,
			IID:          attrs.IID,
			SourceBranch: attrs.SourceBranch,
			TargetBranch: attrs.TargetBranch,
			Title:        attrs.Title,
			Description:  attrs.Description,
			State:        attrs.State,
			Draft:        attrs.WorkInProgress,
			Labels:       labels,
			MilestoneID:  attrs.MilestoneID,
			AuthorID:     attrs.AuthorID,
			Action:       attrs.Action,
			UserUsername: username,
			URL:          attrs.URL,
		}

	default:
		return nil, nil
	}

	return &ev, nil
}
