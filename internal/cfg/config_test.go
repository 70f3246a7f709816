package cfg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	const tomlCfg = `
http_server_listen_addr = ":8080"
gitlab_webhook_endpoint = "/hooks/gitlab"
gitlab_api_token = "secret"
bot_username = "warden"
event_timeout = "2m"
report_interval = "24h"
report_projects = [10, 20]

[slack]
api_token = "xoxb-secret"
error_channel = "ops-errors"
`

	config, err := Load(strings.NewReader(tomlCfg))
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.HTTPListenAddr)
	assert.Equal(t, "/hooks/gitlab", config.GitlabWebhookEndpoint)
	assert.Equal(t, "warden", config.BotUsername)
	assert.Equal(t, 2*time.Minute, config.EventTimeout)
	assert.Equal(t, DefCacheFlushInterval, config.CacheFlushInterval)
	assert.Equal(t, 24*time.Hour, config.ReportInterval)
	assert.Equal(t, []int{10, 20}, config.ReportProjects)
	assert.Equal(t, "ops-errors", config.Slack.ErrorChannel)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, "/webhook", config.GitlabWebhookEndpoint)
	assert.Equal(t, "logfmt", config.LogFormat)
	assert.Equal(t, DefEventTimeout, config.EventTimeout)
	assert.Zero(t, config.ReportInterval)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	_, err := Load(strings.NewReader(`event_timeout = "soon"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event_timeout")
}
