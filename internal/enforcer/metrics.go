package enforcer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/logfields"
)

const metricNamespace = "warden_enforcer"

const (
	processedEventsMetricName  = "processed_events_total"
	createdMRsMetricName       = "created_merge_requests_total"
	commentsMetricName         = "comments_total"
	namingViolationsMetricName = "naming_violations_total"
)

const (
	projectLabel = "project"
	resultLabel  = "result"
)

type commentResultVal string

const (
	commentResultPostedVal     commentResultVal = "posted"
	commentResultSuppressedVal commentResultVal = "suppressed"
)

type metricCollector struct {
	logger           *zap.Logger
	processedEvents  prometheus.Counter
	createdMRs       *prometheus.CounterVec
	comments         *prometheus.CounterVec
	namingViolations *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		processedEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      processedEventsMetricName,
				Help:      "count of processed webhook events",
			},
		),
		createdMRs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      createdMRsMetricName,
				Help:      "count of merge requests created by propagation",
			},
			[]string{projectLabel},
		),
		comments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      commentsMetricName,
				Help:      "count of posted and duplicate-suppressed comments",
			},
			[]string{projectLabel, resultLabel},
		),
		namingViolations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      namingViolationsMetricName,
				Help:      "count of branch naming policy violations",
			},
			[]string{projectLabel},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func (m *metricCollector) ProcessedEventsInc() {
	m.processedEvents.Inc()
}

func (m *metricCollector) CreatedMRsInc(project string) {
	cnt, err := m.createdMRs.GetMetricWith(prometheus.Labels{projectLabel: project})
	if err != nil {
		m.logGetMetricFailed(createdMRsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) CommentsInc(project string, result commentResultVal) {
	cnt, err := m.comments.GetMetricWith(prometheus.Labels{
		projectLabel: project,
		resultLabel:  string(result),
	})
	if err != nil {
		m.logGetMetricFailed(commentsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) NamingViolationsInc(project string) {
	cnt, err := m.namingViolations.GetMetricWith(prometheus.Labels{projectLabel: project})
	if err != nil {
		m.logGetMetricFailed(namingViolationsMetricName, err)
		return
	}

	cnt.Inc()
}
