package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type RunLogger struct {
	file       *os.File
	logger     *log.Logger
	multiWrite io.Writer
}

// NewLogger writes leveled lines to w only.
func NewLogger(w io.Writer) *RunLogger {
	return &RunLogger{
		logger:     log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		multiWrite: w,
	}
}

// NewRunLogger logs to stdout and, when logsDir is set, to
// <logsDir>/<name>/run_<name>_<timestamp>.log as well.
func NewRunLogger(logsDir, name string) (*RunLogger, error) {
	if logsDir == "" {
		return NewLogger(os.Stdout), nil
	}

	// Sanitize name for file system
	sanitized := strings.ReplaceAll(strings.ToLower(name), " ", "_")

	dir := filepath.Join(logsDir, sanitized)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(dir, fmt.Sprintf("run_%s_%s.log", sanitized, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	multiWrite := io.MultiWriter(os.Stdout, file)
	logger := log.New(multiWrite, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	return &RunLogger{
		file:       file,
		logger:     logger,
		multiWrite: multiWrite,
	}, nil
}

func (rl *RunLogger) LogInfo(format string, v ...interface{}) {
	rl.log("INFO", format, v...)
}

func (rl *RunLogger) LogError(format string, v ...interface{}) {
	rl.log("ERROR", format, v...)
}

func (rl *RunLogger) LogDebug(format string, v ...interface{}) {
	rl.log("DEBUG", format, v...)
}

// Writer exposes the underlying destination, e.g. for gin's logger middleware.
func (rl *RunLogger) Writer() io.Writer {
	return rl.multiWrite
}

func (rl *RunLogger) log(level string, format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	rl.logger.Printf("[%s] %s", level, message)
}

func (rl *RunLogger) Close() error {
	if rl.file == nil {
		return nil
	}
	return rl.file.Close()
}
