package glucoplate

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// NewLogger builds a slog.Logger from cfg and installs it as the default.
// Format "json" writes JSON lines; anything else writes text with source info.
func NewLogger(cfg LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: !strings.EqualFold(cfg.Format, "json"),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RecognitionLogger records one entry per recognition run.
type RecognitionLogger interface {
	LogRun(run RunLog) error
}

// NewRunLogFilePath returns a timestamped path for a file-backed run log.
func NewRunLogFilePath(label string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_", " ", "_").Replace(strings.ToLower(label)),
	)
}

// RunLog captures the provider attempts and merged output of one recognition run.
type RunLog struct {
	Timestamp  time.Time            `json:"timestamp"`
	ImageBytes int                  `json:"image_bytes"`
	Providers  []ProviderAttemptLog `json:"providers"`
	Merged     []RecognizedItem     `json:"merged"`
	DurationMS int64                `json:"duration_ms"`
}

// ProviderAttemptLog is the tagged outcome of a single provider call.
type ProviderAttemptLog struct {
	Provider   string           `json:"provider"`
	Outcome    string           `json:"outcome"`
	Attempts   int              `json:"attempts"`
	Items      []RecognizedItem `json:"items,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// FileRecognitionLogger buffers runs and writes them out on Flush. It suits a
// single CLI session; servers should use JSONLinesRecognitionLogger.
type FileRecognitionLogger struct {
	mu     sync.Mutex
	runs   []RunLog
	writer io.Writer
}

func NewFileRecognitionLogger(writer io.Writer) *FileRecognitionLogger {
	return &FileRecognitionLogger{
		runs:   make([]RunLog, 0),
		writer: writer,
	}
}

func (l *FileRecognitionLogger) LogRun(run RunLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return nil
}

// Flush writes all buffered runs as one indented JSON document and clears the buffer.
func (l *FileRecognitionLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"recognition_session": map[string]any{
			"timestamp": time.Now(),
			"runs":      l.runs,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recognition log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write recognition log: %w", err)
	}

	l.runs = l.runs[:0]
	return nil
}

type NoOpRecognitionLogger struct{}

func NewNoOpRecognitionLogger() *NoOpRecognitionLogger {
	return &NoOpRecognitionLogger{}
}

func (NoOpRecognitionLogger) LogRun(RunLog) error { return nil }

// JSONLinesRecognitionLogger writes each run as one JSON line as soon as it
// is logged. Long-running processes use it so nothing is held in memory.
type JSONLinesRecognitionLogger struct {
	mu  sync.Mutex
	out io.Writer
}

func NewJSONLinesRecognitionLogger(out io.Writer) *JSONLinesRecognitionLogger {
	return &JSONLinesRecognitionLogger{out: out}
}

// NewStdoutRecognitionLogger logs to stdout (for Lambda/CloudWatch).
func NewStdoutRecognitionLogger() *JSONLinesRecognitionLogger {
	return NewJSONLinesRecognitionLogger(os.Stdout)
}

func (l *JSONLinesRecognitionLogger) LogRun(run RunLog) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.out.Write(append(data, '\n'))
	return err
}
