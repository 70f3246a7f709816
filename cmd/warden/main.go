package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wardenbot/warden/internal/cfg"
	"github.com/wardenbot/warden/internal/enforcer"
	"github.com/wardenbot/warden/internal/gitlabclt"
	"github.com/wardenbot/warden/internal/logfields"
	"github.com/wardenbot/warden/internal/lookupcache"
	"github.com/wardenbot/warden/internal/provider"
	"github.com/wardenbot/warden/internal/provider/gitlab"
	"github.com/wardenbot/warden/internal/report"
	"github.com/wardenbot/warden/internal/retryer"
	"github.com/wardenbot/warden/internal/slack"
)

const appName = "warden"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

const EventChannelBufferSize = 1024

// notifier is the union of the notification methods the components use.
type notifier interface {
	NotifyError(ctx context.Context, text string) error
	NotifyDebug(ctx context.Context, text string) error
	NotifyUser(ctx context.Context, username, text string) error
}

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught, terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)
	}
}

func startHTTPSServer(listenAddr string, certFile, keyFile string, mux *http.ServeMux) {
	httpsServer := http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	goodbye.Register(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating https server",
			logfields.Event("https_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		err := httpsServer.Shutdown(ctx)
		if err != nil {
			logger.Warn(
				"shutting down https server failed",
				logfields.Event("https_server_termination_failed"),
				zap.Error(err),
			)
		}
	})

	go func() {
		defer panicHandler()

		logger.Info(
			"https server started",
			logfields.Event("https_server_started"),
			zap.String("listenAddr", listenAddr),
		)

		err := httpsServer.ListenAndServeTLS(certFile, keyFile)
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("https server terminated", logfields.Event("https_server_terminated"))
			return
		}

		logger.Fatal(
			"https server terminated unexpectedly",
			logfields.Event("https_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

func startHTTPServer(listenAddr string, mux *http.ServeMux) {
	httpServer := http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	goodbye.Register(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating http server",
			logfields.Event("http_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		err := httpServer.Shutdown(ctx)
		if err != nil {
			logger.Warn(
				"shutting down http server failed",
				logfields.Event("http_server_termination_failed"),
				zap.Error(err),
			)
		}
	})

	go func() {
		defer panicHandler()

		logger.Info(
			"http server started",
			logfields.Event("http_server_started"),
			zap.String("listenAddr", listenAddr),
		)

		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("http server terminated", logfields.Event("http_server_terminated"))
			return
		}

		logger.Fatal(
			"http server terminated unexpectedly",
			logfields.Event("http_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

type arguments struct {
	Verbose     *bool
	ConfigFile  *string
	ShowVersion *bool
}

var args arguments

const defConfigFile = "/etc/warden/config.toml"

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			defConfigFile,
			"path to the warden configuration file",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nReceive GitLab webhook events and enforce repository policies.\n", appName)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	file, err := os.Open(*args.ConfigFile)
	exitOnErr("could not open configuration file", err)
	defer file.Close()

	config, err := cfg.Load(file)
	if err != nil {
		exitOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)
	}

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	})
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func mustInitGitlabClient(config *cfg.Config, cache *lookupcache.Cache) gitlabclt.Service {
	clt, err := gitlabclt.New(config.GitlabAPIToken, config.GitlabURL)
	exitOnErr("could not initialize gitlab client", err)

	var service gitlabclt.Service = gitlabclt.NewCachingClient(clt, cache)

	if config.DryRun {
		logger.Info(
			"dry-run mode enabled, mutating gitlab operations are only logged",
			logfields.Event("dry_run_enabled"),
		)

		service = gitlabclt.NewDryClient(service, logger)
	}

	return service
}

func initNotifier(config *cfg.Config) notifier {
	if config.Slack.APIToken == "" {
		logger.Info(
			"no slack api token configured, notifications are disabled",
			logfields.Event("notifications_disabled"),
		)

		return slack.Discard{}
	}

	return slack.NewClient(
		config.Slack.APIToken,
		config.Slack.ErrorChannel,
		config.Slack.DebugChannel,
	)
}

// startCacheFlusher flushes the lookup cache periodically, it bounds the
// staleness caused by changes that do not arrive as webhook events.
func startCacheFlusher(cache *lookupcache.Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})

	goodbye.Register(func(context.Context, os.Signal) {
		ticker.Stop()
		close(stop)
	})

	go func() {
		defer panicHandler()

		for {
			select {
			case <-ticker.C:
				cache.InvalidateAll()
				logger.Debug(
					"lookup cache flushed",
					logfields.Event("cache_flushed"),
				)
			case <-stop:
				return
			}
		}
	}()
}

// startReporter runs the stale-work report periodically.
func startReporter(reporter *report.Reporter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})

	goodbye.Register(func(context.Context, os.Signal) {
		ticker.Stop()
		close(stop)
	})

	go func() {
		defer panicHandler()

		for {
			select {
			case <-ticker.C:
				if err := reporter.Run(context.Background()); err != nil {
					logger.Error(
						"stale-work report failed",
						logfields.Event("report_failed"),
						zap.Error(err),
					)
				}
			case <-stop:
				return
			}
		}
	}()
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	config := mustParseCfg()

	mustInitLogger(config)

	policies, err := cfg.LoadPoliciesFile(config.PoliciesFile)
	exitOnErr(fmt.Sprintf("could not load policies file: %s", config.PoliciesFile), err)

	logger.Info(
		"loaded cfg file",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("policies_file", config.PoliciesFile),
		zap.String("http_server_listen_addr", config.HTTPListenAddr),
		zap.String("https_server_listen_addr", config.HTTPSListenAddr),
		zap.String("gitlab_url", config.GitlabURL),
		zap.String("gitlab_webhook_endpoint", config.GitlabWebhookEndpoint),
		zap.String("gitlab_webhook_token", hide(config.GitlabWebhookToken)),
		zap.String("gitlab_api_token", hide(config.GitlabAPIToken)),
		zap.String("slack_api_token", hide(config.Slack.APIToken)),
		zap.String("bot_username", config.BotUsername),
		zap.Bool("dry_run", config.DryRun),
		zap.String("log_format", config.LogFormat),
		zap.String("log_time_key", config.LogTimeKey),
		zap.String("log_level", config.LogLevel),
		zap.Duration("event_timeout", config.EventTimeout),
		zap.Duration("cache_flush_interval", config.CacheFlushInterval),
		zap.Duration("report_interval", config.ReportInterval),
		zap.Strings("projects", policies.ProjectNames()),
	)

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
	})

	if config.HTTPListenAddr == "" && config.HTTPSListenAddr == "" {
		fmt.Fprintf(os.Stderr, "https_server_listen_addr or http_server_listen_addr must be defined in the config file, both are unset")
		os.Exit(1)
	}

	cache := lookupcache.New()
	gitlabClient := mustInitGitlabClient(config, cache)
	slackNotifier := initNotifier(config)

	evChan := make(chan *provider.Event, EventChannelBufferSize)

	enf, err := enforcer.New(
		gitlabClient,
		slackNotifier,
		policies,
		evChan,
		enforcer.WithEventTimeout(config.EventTimeout),
		enforcer.WithBotUsername(config.BotUsername),
	)
	exitOnErr("could not initialize enforcer", err)

	enf.Start()

	mux := http.NewServeMux()

	gl := gitlab.New(
		evChan,
		gitlab.WithSecretToken(config.GitlabWebhookToken),
	)

	mux.HandleFunc(config.GitlabWebhookEndpoint, gl.HTTPHandler)
	logger.Info(
		"registered gitlab webhook event http endpoint",
		logfields.Event("gitlab_http_handler_registered"),
		zap.String("endpoint", config.GitlabWebhookEndpoint),
	)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "%s %s is running\n", appName, Version)
	})

	if config.HTTPListenAddr != "" {
		startHTTPServer(config.HTTPListenAddr, mux)
	}

	if config.HTTPSListenAddr != "" {
		startHTTPSServer(
			config.HTTPSListenAddr,
			config.HTTPSCertFile,
			config.HTTPSKeyFile,
			mux,
		)
	}

	// registered after the http servers so that the servers stop
	// accepting webhooks before the event channel is closed
	goodbye.Register(func(context.Context, os.Signal) {
		logger.Debug(
			"stopping enforcer",
			logfields.Event("enforcer_stopping"),
		)

		close(evChan)
		enf.Stop()
	})

	startCacheFlusher(cache, config.CacheFlushInterval)

	if config.ReportInterval > 0 && len(config.ReportProjects) > 0 {
		notifyRetryer := retryer.New()

		goodbye.Register(func(context.Context, os.Signal) {
			notifyRetryer.Stop()
		})

		reporter := report.New(
			gitlabClient,
			slackNotifier,
			notifyRetryer,
			config.ReportProjects,
			report.WithFormerMembers(config.ReportFormerMembers),
		)

		startReporter(reporter, config.ReportInterval)
		logger.Info(
			"periodic stale-work report enabled",
			logfields.Event("report_enabled"),
			zap.Duration("interval", config.ReportInterval),
			zap.Ints("projects", config.ReportProjects),
		)
	}

	select {}
}
