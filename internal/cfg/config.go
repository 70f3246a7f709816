package cfg

import (
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
)

// Config is the warden server configuration, loaded from a TOML file.
type Config struct {
	HTTPListenAddr        string `toml:"http_server_listen_addr"`
	HTTPSListenAddr       string `toml:"https_server_listen_addr"`
	HTTPSCertFile         string `toml:"https_ssl_cert_file"`
	HTTPSKeyFile          string `toml:"https_ssl_key_file"`
	GitlabWebhookEndpoint string `toml:"gitlab_webhook_endpoint"`
	GitlabWebhookToken    string `toml:"gitlab_webhook_token"`
	GitlabAPIToken        string `toml:"gitlab_api_token"`
	GitlabURL             string `toml:"gitlab_url"`
	BotUsername           string `toml:"bot_username"`
	DryRun                bool   `toml:"dry_run"`

	// PoliciesFile is the path of the YAML file containing the
	// per-project policies.
	PoliciesFile string `toml:"policies_file"`

	LogFormat  string `toml:"log_format"`
	LogTimeKey string `toml:"log_time_key"`
	LogLevel   string `toml:"log_level"`

	// Durations use the Go duration syntax, e.g. "5m" or "1h30m".
	EventTimeoutRaw       string `toml:"event_timeout"`
	CacheFlushIntervalRaw string `toml:"cache_flush_interval"`
	ReportIntervalRaw     string `toml:"report_interval"`

	ReportProjects      []int    `toml:"report_projects"`
	ReportFormerMembers []string `toml:"report_former_members"`

	Slack SlackConfig `toml:"slack"`

	EventTimeout       time.Duration `toml:"-"`
	CacheFlushInterval time.Duration `toml:"-"`
	// ReportInterval is 0 when periodic reporting is disabled.
	ReportInterval time.Duration `toml:"-"`
}

type SlackConfig struct {
	APIToken     string `toml:"api_token"`
	ErrorChannel string `toml:"error_channel"`
	DebugChannel string `toml:"debug_channel"`
}

const (
	DefEventTimeout       = 5 * time.Minute
	DefCacheFlushInterval = 30 * time.Minute
)

func Load(reader io.Reader) (*Config, error) {
	result := Config{
		GitlabWebhookEndpoint: "/webhook",
		LogFormat:             "logfmt",
		LogLevel:              "info",
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	if err := result.parseDurations(); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *Config) parseDurations() error {
	var err error

	r.EventTimeout, err = parseDuration("event_timeout", r.EventTimeoutRaw, DefEventTimeout)
	if err != nil {
		return err
	}

	r.CacheFlushInterval, err = parseDuration("cache_flush_interval", r.CacheFlushIntervalRaw, DefCacheFlushInterval)
	if err != nil {
		return err
	}

	r.ReportInterval, err = parseDuration("report_interval", r.ReportIntervalRaw, 0)

	return err
}

func parseDuration(key, val string, def time.Duration) (time.Duration, error) {
	if val == "" {
		return def, nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}

	return d, nil
}

func (r *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(r)
}
