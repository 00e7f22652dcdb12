package runner

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// ProgressIndicator receives run progress. Suites may report concurrently.
type ProgressIndicator interface {
	StartRun(totalCases int)
	StartSuite(suiteName string, selectedCases int)
	StartCase(caseName string)
	UpdateCase(caseName string, status types.Status)
	CompleteSuite(suiteName string)
	CompleteRun()
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(totalCases int)                         {}
func (n *noOpProgressIndicator) StartSuite(suiteName string, selectedCases int)  {}
func (n *noOpProgressIndicator) StartCase(caseName string)                       {}
func (n *noOpProgressIndicator) UpdateCase(caseName string, status types.Status) {}
func (n *noOpProgressIndicator) CompleteSuite(suiteName string)                  {}
func (n *noOpProgressIndicator) CompleteRun()                                    {}

// logProgressIndicator reports progress through the logger, with a periodic
// summary of the longest running cases.
type logProgressIndicator struct {
	logger log.Logger
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
	mu     sync.RWMutex

	completedCases int
	totalCases     int
	runStartTime   time.Time
	suiteStart     map[string]time.Time
	runningCases   map[string]time.Time
}

// NewLogProgressIndicator creates a progress indicator that logs updates
func NewLogProgressIndicator(logger log.Logger, updateInterval time.Duration) ProgressIndicator {
	if updateInterval == 0 {
		updateInterval = DefaultProgressInterval
	}
	indicator := &logProgressIndicator{
		logger:       logger,
		ticker:       time.NewTicker(updateInterval),
		stopCh:       make(chan struct{}),
		suiteStart:   make(map[string]time.Time),
		runningCases: make(map[string]time.Time),
	}
	go indicator.progressReporter()
	return indicator
}

func (c *logProgressIndicator) StartRun(totalCases int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalCases = totalCases
	c.completedCases = 0
	c.runStartTime = time.Now()
	c.logger.Info("Starting run", "selectedCases", totalCases)
}

func (c *logProgressIndicator) StartSuite(suiteName string, selectedCases int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suiteStart[suiteName] = time.Now()
	c.logger.Info("Starting suite", "suite", suiteName, "selectedCases", selectedCases)
}

func (c *logProgressIndicator) StartCase(caseName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runningCases[caseName] = time.Now()
	c.logger.Debug("Case started", "case", caseName, "running", len(c.runningCases))
}

func (c *logProgressIndicator) UpdateCase(caseName string, status types.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.runningCases, caseName)
	c.completedCases++
	c.logger.Debug("Case completed", "case", caseName, "status", status,
		"completed", c.completedCases, "total", c.totalCases)
}

func (c *logProgressIndicator) CompleteSuite(suiteName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	duration := time.Since(c.suiteStart[suiteName]).Truncate(time.Millisecond)
	delete(c.suiteStart, suiteName)
	c.logger.Info("Completed suite", "suite", suiteName, "duration", duration)
}

func (c *logProgressIndicator) CompleteRun() {
	c.mu.RLock()
	duration := time.Since(c.runStartTime).Truncate(time.Millisecond)
	c.logger.Info("Completed run", "completed", c.completedCases, "total", c.totalCases, "duration", duration)
	c.mu.RUnlock()
	c.stop()
}

func (c *logProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *logProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var percentComplete float64
	if c.totalCases > 0 {
		percentComplete = float64(c.completedCases) * 100.0 / float64(c.totalCases)
	}
	c.logger.Info("Progress update",
		"completed", c.completedCases,
		"total", c.totalCases,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"numRunning", len(c.runningCases),
		"longestRunning", formatRunningCases(c.runningCases, 3),
	)
}

func (c *logProgressIndicator) stop() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.stopCh)
	})
}

// formatRunningCases lists the longest running cases first
func formatRunningCases(running map[string]time.Time, maxShow int) string {
	if len(running) == 0 {
		return ""
	}
	type runningCase struct {
		name     string
		duration time.Duration
	}
	now := time.Now()
	cases := make([]runningCase, 0, len(running))
	for name, started := range running {
		cases = append(cases, runningCase{name: name, duration: now.Sub(started)})
	}
	sort.Slice(cases, func(i, j int) bool {
		return cases[i].duration > cases[j].duration
	})

	var parts []string
	for i, rc := range cases {
		if i >= maxShow {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%v)", rc.name, rc.duration.Truncate(time.Second)))
	}
	if len(cases) > maxShow {
		parts = append(parts, fmt.Sprintf("+%d more", len(cases)-maxShow))
	}
	return strings.Join(parts, ", ")
}

// barProgressIndicator renders a progress bar of completed cases
type barProgressIndicator struct {
	out io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar

	passed int
	failed int
}

// NewBarProgressIndicator creates a progress indicator that draws a bar on out
func NewBarProgressIndicator(out io.Writer) ProgressIndicator {
	return &barProgressIndicator{out: out}
}

func (b *barProgressIndicator) StartRun(totalCases int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar = progressbar.NewOptions(totalCases,
		progressbar.OptionSetDescription(barDescription(0, 0)),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(b.out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (b *barProgressIndicator) StartSuite(suiteName string, selectedCases int) {}
func (b *barProgressIndicator) StartCase(caseName string)                      {}
func (b *barProgressIndicator) CompleteSuite(suiteName string)                 {}

func (b *barProgressIndicator) UpdateCase(caseName string, status types.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return
	}
	switch status {
	case types.StatusPassed:
		b.passed++
	case types.StatusFailed:
		b.failed++
	}
	_ = b.bar.Add(1)
	b.bar.Describe(barDescription(b.passed, b.failed))
}

func (b *barProgressIndicator) CompleteRun() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

func barDescription(passed, failed int) string {
	return color.CyanString("Running cases: ") +
		color.GreenString("[passed: %d", passed) +
		" | " +
		color.RedString("failed: %d]", failed)
}
