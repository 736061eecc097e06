package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LatestLink is the symlink in a log directory that points at the newest run log.
const LatestLink = "latest.log"

// FileLogger writes a timestamped log file per run, for long-running
// commands whose console output is not kept. The newest file is reachable
// through LatestLink.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates logDir if needed and opens "<prefix>-YYYYMMDD-HHMMSS.log" in it.
func NewFileLogger(logDir, prefix, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("%s-%s.log", prefix, stamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, LatestLink)
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.writeRunLog(fmt.Sprintf("=== dirstat %s log, started %s ===\n", prefix, time.Now().Format(time.RFC3339)))
	return fl, nil
}

// Path returns the run log file.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.LogDebug(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.LogInfo(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.LogWarn(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.LogError(fmt.Sprintf(format, args...))
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}

// multiLogger fans each message out to several loggers.
type multiLogger []Logger

// Tee returns a Logger that writes every message to each of loggers.
func Tee(loggers ...Logger) Logger {
	return multiLogger(loggers)
}

func (m multiLogger) LogDebug(msg string) {
	for _, l := range m {
		l.LogDebug(msg)
	}
}

func (m multiLogger) LogInfo(msg string) {
	for _, l := range m {
		l.LogInfo(msg)
	}
}

func (m multiLogger) LogWarn(msg string) {
	for _, l := range m {
		l.LogWarn(msg)
	}
}

func (m multiLogger) LogError(msg string) {
	for _, l := range m {
		l.LogError(msg)
	}
}

func (m multiLogger) Debugf(format string, args ...interface{}) {
	m.LogDebug(fmt.Sprintf(format, args...))
}

func (m multiLogger) Infof(format string, args ...interface{}) {
	m.LogInfo(fmt.Sprintf(format, args...))
}

func (m multiLogger) Warnf(format string, args ...interface{}) {
	m.LogWarn(fmt.Sprintf(format, args...))
}

func (m multiLogger) Errorf(format string, args ...interface{}) {
	m.LogError(fmt.Sprintf(format, args...))
}
