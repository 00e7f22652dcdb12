package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

const (
	MetricsNamespace = "opspec"
)

var (
	Debug                bool = true
	validStatuses             = []types.Status{types.StatusPassed, types.StatusFailed, types.StatusPending, types.StatusSkipped}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	casesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cases_total",
		Help:      "Count of cases by outcome",
	}, []string{
		"suite",
		"result",
	})

	caseAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "case_attempts_total",
		Help:      "Count of case attempts, including retries and repeated runs",
	}, []string{
		"suite",
	})

	caseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "case_duration_seconds",
		Help:      "Duration of executed cases",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{
		"suite",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of a run",
	}, []string{
		"run_id",
		"result",
	})

	runCases = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_cases",
		Help:      "Number of cases of a run by outcome",
	}, []string{
		"run_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordCase counts one case outcome
func RecordCase(suite string, status types.Status, attempts int, elapsed time.Duration) {
	if !slices.Contains(validStatuses, status) {
		log.Error("RecordCase - invalid status", "status", status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "cases_total",
			"suite", suite,
			"result", status)
	}
	casesTotal.WithLabelValues(suite, string(status)).Inc()
	if attempts > 0 {
		caseAttempts.WithLabelValues(suite).Add(float64(attempts))
		caseDuration.WithLabelValues(suite).Observe(elapsed.Seconds())
	}
}

// RecordRun sets the gauges describing a finished run
func RecordRun(runID string, passed bool, stats types.ResultStats, duration time.Duration) {
	result := "pass"
	if !passed {
		result = "fail"
	}
	runResults.WithLabelValues(runID, result).Set(1)
	runCases.WithLabelValues(runID, string(types.StatusPassed)).Set(float64(stats.Passed))
	runCases.WithLabelValues(runID, string(types.StatusFailed)).Set(float64(stats.Failed))
	runCases.WithLabelValues(runID, string(types.StatusPending)).Set(float64(stats.Pending))
	runCases.WithLabelValues(runID, string(types.StatusSkipped)).Set(float64(stats.Skipped))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

// WriteTextfile writes every registered metric in the node-exporter textfile format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
