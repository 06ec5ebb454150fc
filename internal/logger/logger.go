package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Environment variable naming the log file. Unset means log output is discarded.
const envLogPath = "TEMPSTORE_LOG"

var (
	mu      sync.Mutex
	std     *log.Logger
	logFile *os.File
)

// InitFromEnv initializes the logger from TEMPSTORE_LOG. Without it, log
// lines are dropped: a library should not create files nobody asked for.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		mu.Lock()
		defer mu.Unlock()
		if std == nil {
			std = log.New(io.Discard, "", 0)
		}
		return nil
	}
	return Init(path)
}

// Init initializes the logger to write to the provided file path.
// It creates parent directories if needed and opens the file in append mode.
// Calling Init again after a successful Init is a no-op until Close.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return nil
}

// Close closes the underlying log file, if open, and resets the logger.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	std = nil
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Infof logs informational messages.
func Infof(format string, args ...any) { write("INFO", format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write("WARN", format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write("ERROR", format, args...) }

func write(level string, format string, args ...any) {
	mu.Lock()
	l := std
	mu.Unlock()
	if l == nil {
		// Fallback: initialize from the environment on first use.
		_ = InitFromEnv()
		mu.Lock()
		l = std
		mu.Unlock()
	}
	if l != nil {
		l.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
