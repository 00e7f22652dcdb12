package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

const (
	RunDirectoryPrefix = "testrun-"
	SummaryFilename    = "summary.log"
	ResultsFilename    = "results.json"
	AllLogsFilename    = "all.log"
	FailedDirname      = "failed"
)

// ResultSink consumes the results of one run
type ResultSink interface {
	// Consume processes a single case result
	Consume(suite string, result *types.CaseResult) error
	// Complete is called once every result has been consumed
	Complete(run *types.RunResult) error
}

// FileLogger writes the outputs of one run to <baseDir>/testrun-<runID>/
type FileLogger struct {
	baseDir      string
	logDir       string
	runID        string
	mu           sync.Mutex
	sinks        []ResultSink
	asyncWriters map[string]*AsyncFile
}

// AsyncFile is a file written by a background goroutine
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
	err     error
}

// NewAsyncFile creates path and starts its writer
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}
	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}
	af.wg.Add(1)
	go af.processQueue()
	return af, nil
}

// Write queues a copy of data
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()
	if af.stopped {
		return fmt.Errorf("async file is closed")
	}
	af.queue <- append([]byte(nil), data...)
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()
	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil && af.err == nil {
			af.err = err
		}
	}
}

// Close flushes queued writes and closes the file. The first write error, if
// any, is returned.
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	if err := af.file.Close(); err != nil {
		return err
	}
	return af.err
}

// NewFileLogger creates the run directory and the default sinks: a combined
// case log, one file per failed case, the text summary, the JSON results and
// the HTML page.
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	for _, dir := range []string{logDir, filepath.Join(logDir, FailedDirname)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	htmlSink, err := NewHTMLResultsSink(logDir)
	if err != nil {
		return nil, err
	}
	l := &FileLogger{
		baseDir:      baseDir,
		logDir:       logDir,
		runID:        runID,
		asyncWriters: make(map[string]*AsyncFile),
	}
	l.sinks = []ResultSink{
		&AllLogsFileSink{logger: l},
		&FailedCaseFileSink{logger: l},
		NewTextSummarySink(logDir),
		NewJSONResultsSink(logDir),
		htmlSink,
	}
	return l, nil
}

// AddSink registers an additional sink
func (l *FileLogger) AddSink(sink ResultSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// LogDir returns the run directory
func (l *FileLogger) LogDir() string {
	return l.logDir
}

// RunID returns the run the logger writes for
func (l *FileLogger) RunID() string {
	return l.runID
}

// WriteRun feeds every case result of run to the sinks, completes them and
// closes the files they opened. Every sink is completed even when one fails.
func (l *FileLogger) WriteRun(run *types.RunResult) error {
	l.mu.Lock()
	sinks := append([]ResultSink(nil), l.sinks...)
	l.mu.Unlock()

	var errs []string
	for _, suite := range run.Suites {
		for _, r := range suite.Results {
			for _, sink := range sinks {
				if err := sink.Consume(suite.Name, r); err != nil {
					errs = append(errs, err.Error())
				}
			}
		}
	}
	for _, sink := range sinks {
		if err := sink.Complete(run); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := l.closeWriters(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("writing run %s: %s", l.runID, strings.Join(errs, "; "))
	}
	return nil
}

func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.asyncWriters[path]; ok {
		return w, nil
	}
	w, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = w
	return w, nil
}

func (l *FileLogger) closeWriters() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var first error
	for path, w := range l.asyncWriters {
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing %s: %w", path, err)
		}
		delete(l.asyncWriters, path)
	}
	return first
}

// AllLogsFileSink appends one block per case to all.log
type AllLogsFileSink struct {
	logger *FileLogger
}

func (s *AllLogsFileSink) Consume(suite string, r *types.CaseResult) error {
	w, err := s.logger.getAsyncWriter(filepath.Join(s.logger.logDir, AllLogsFilename))
	if err != nil {
		return err
	}
	return w.Write([]byte(caseBlock(suite, r)))
}

func (s *AllLogsFileSink) Complete(*types.RunResult) error { return nil }

// FailedCaseFileSink writes one file per failed case under failed/
type FailedCaseFileSink struct {
	logger *FileLogger
}

func (s *FailedCaseFileSink) Consume(suite string, r *types.CaseResult) error {
	if r.Status != types.StatusFailed {
		return nil
	}
	name := SafeFilename(suite+"_"+r.FullPath()) + ".log"
	path := filepath.Join(s.logger.logDir, FailedDirname, name)
	if err := os.WriteFile(path, []byte(caseBlock(suite, r)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *FailedCaseFileSink) Complete(*types.RunResult) error { return nil }

// caseBlock is the plain-text record of one case
func caseBlock(suite string, r *types.CaseResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s > %s: %s (%s", strings.ToUpper(string(r.Status)), suite, r.FullPath(), r.Elapsed, attemptsText(r))
	b.WriteString(")\n")
	if msg := r.Message(); msg != "" {
		fmt.Fprintf(&b, "  %s\n", stripansi.Strip(msg))
	}
	if r.Failure != nil && !r.Failure.Location.IsZero() {
		fmt.Fprintf(&b, "  at %s\n", r.Failure.Location)
	}
	for _, step := range r.ByLog {
		fmt.Fprintf(&b, "  STEP: %s\n", stripansi.Strip(step))
	}
	for _, step := range r.Steps {
		fmt.Fprintf(&b, "  step %q: %s\n", step.Name, step.Status)
	}
	return b.String()
}

func attemptsText(r *types.CaseResult) string {
	if r.Attempts == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", r.Attempts)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFilename turns a case path into a file name
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, " > ", "__")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if len(name) > 200 {
		name = name[:200]
	}
	if name == "" {
		return "unnamed"
	}
	return name
}
