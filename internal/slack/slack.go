// Package slack sends operational notifications via the slack web API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/wardenbot/warden/internal/wardenerr"
)

const (
	loggerName = "slack"
	apiBaseURL = "https://slack.com/api"
)

// Client posts messages to slack channels and users.
// A username directory is fetched lazily and cached for the lifetime of
// the process.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	channel      string
	debugChannel string
	logger       *zap.Logger

	mu        sync.Mutex
	userIDs   map[string]string
	usersRead bool
}

type option func(*Client)

// WithBaseURL overrides the slack API base URL, it exists for tests.
func WithBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient returns a client that authenticates with the given bot
// token. Error notifications go to channel, debug notifications to
// debugChannel.
func NewClient(token, channel, debugChannel string, opts ...option) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	clt := Client{
		httpClient:   oauth2.NewClient(context.Background(), ts),
		baseURL:      apiBaseURL,
		channel:      channel,
		debugChannel: debugChannel,
		logger:       zap.L().Named(loggerName),
		userIDs:      map[string]string{},
	}

	for _, opt := range opts {
		opt(&clt)
	}

	return &clt
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`

	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`

	Members []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Deleted bool   `json:"deleted"`
		Profile struct {
			DisplayName string `json:"display_name"`
		} `json:"profile"`
	} `json:"members"`

	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (*apiResponse, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s parameters failed: %w", method, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wardenerr.NewRetryableAnytimeError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Now().Add(time.Minute)
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Now().Add(time.Duration(secs) * time.Second)
		}

		return nil, wardenerr.NewRetryableError(
			fmt.Errorf("%s: slack answered with status %d", method, resp.StatusCode),
			retryAfter,
		)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%s: slack answered with status %d", method, resp.StatusCode)
		if resp.StatusCode >= 500 {
			return nil, wardenerr.NewRetryableAnytimeError(err)
		}

		return nil, err
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding %s response failed: %w", method, err)
	}

	if !parsed.OK {
		return nil, fmt.Errorf("%s: slack answered with error: %s", method, parsed.Error)
	}

	return &parsed, nil
}

func (c *Client) postMessage(ctx context.Context, channel, text string) error {
	_, err := c.call(ctx, "chat.postMessage", map[string]any{
		"channel": channel,
		"text":    text,
	})

	return err
}

// NotifyError posts text to the error channel.
func (c *Client) NotifyError(ctx context.Context, text string) error {
	return c.postMessage(ctx, c.channel, text)
}

// NotifyDebug posts text to the debug channel, if one is configured.
func (c *Client) NotifyDebug(ctx context.Context, text string) error {
	if c.debugChannel == "" {
		return nil
	}

	return c.postMessage(ctx, c.debugChannel, text)
}

// NotifyUser sends text as a direct message to the slack user whose
// username matches username. Users that can not be resolved get the
// message posted to the error channel instead, prefixed with their
// name, so it is not lost.
func (c *Client) NotifyUser(ctx context.Context, username, text string) error {
	userID, err := c.lookupUserID(ctx, username)
	if err != nil {
		return err
	}

	if userID == "" {
		c.logger.Debug("slack user not found, redirecting message to error channel",
			zap.String("slack.username", username),
		)

		return c.postMessage(ctx, c.channel, fmt.Sprintf("@%s: %s", username, text))
	}

	resp, err := c.call(ctx, "conversations.open", map[string]any{
		"users": userID,
	})
	if err != nil {
		return err
	}

	return c.postMessage(ctx, resp.Channel.ID, text)
}

func (c *Client) lookupUserID(ctx context.Context, username string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.usersRead {
		if err := c.fetchUsers(ctx); err != nil {
			return "", err
		}

		c.usersRead = true
	}

	return c.userIDs[username], nil
}

func (c *Client) fetchUsers(ctx context.Context) error {
	cursor := ""

	for {
		params := map[string]any{"limit": 200}
		if cursor != "" {
			params["cursor"] = cursor
		}

		resp, err := c.call(ctx, "users.list", params)
		if err != nil {
			return err
		}

		for _, member := range resp.Members {
			if member.Deleted {
				continue
			}

			c.userIDs[member.Name] = member.ID
			if member.Profile.DisplayName != "" {
				c.userIDs[member.Profile.DisplayName] = member.ID
			}
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return nil
		}
	}
}

// Discard is a notifier that drops all messages. It serves as
// replacement when no slack token is configured.
type Discard struct{}

func (Discard) NotifyError(context.Context, string) error        { return nil }
func (Discard) NotifyDebug(context.Context, string) error        { return nil }
func (Discard) NotifyUser(context.Context, string, string) error { return nil }
