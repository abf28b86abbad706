package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to the console and to per-level files in logDir.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: logDir}
	if err := l.setupLoggers(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// NewDiscard returns a Logger that drops everything. Used in tests.
func NewDiscard() *Logger {
	return &Logger{
		infoLog:    log.New(io.Discard, "", 0),
		warningLog: log.New(io.Discard, "", 0),
		errorLog:   log.New(io.Discard, "", 0),
	}
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers() error {
	infoFile, err := l.openLogFile("info.log")
	if err != nil {
		return err
	}
	warningFile, err := l.openLogFile("warning.log")
	if err != nil {
		return err
	}
	errorFile, err := l.openLogFile("error.log")
	if err != nil {
		return err
	}

	infoWriter := io.MultiWriter(os.Stdout, infoFile)
	warningWriter := io.MultiWriter(os.Stdout, warningFile)
	errorWriter := io.MultiWriter(os.Stderr, errorFile)

	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
	return nil
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) (*os.File, error) {
	file, err := os.OpenFile(filepath.Join(l.logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.output(l.infoLog, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.output(l.warningLog, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.output(l.errorLog, format, v...)
}

func (l *Logger) output(target *log.Logger, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// depth 3: output -> Info/Warning/Error -> caller
	target.Output(3, fmt.Sprintf(format, v...))
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}
	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("File %s has been cleared.", fileName)
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
