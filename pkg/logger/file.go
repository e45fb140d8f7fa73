package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OpenFileOutput opens (creating directories as needed) an append-only log
// file suitable for SetOutputs. The caller owns closing it.
func OpenFileOutput(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// Cleaner deletes log files past their retention age on a fixed interval.
type Cleaner struct {
	dir       string
	retention time.Duration
	stop      chan struct{}
}

func NewCleaner(dir string, retention time.Duration) *Cleaner {
	return &Cleaner{dir: dir, retention: retention, stop: make(chan struct{})}
}

// CleanOnce removes every regular file in the log directory older than the
// retention age. A missing directory is not an error.
func (c *Cleaner) CleanOnce() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}
	cutoff := time.Now().Add(-c.retention)
	return filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				Error("logger: cannot remove %s: %v", path, err)
				return err
			}
			Debug("logger: removed expired log %s", path)
		}
		return nil
	})
}

// Start runs CleanOnce on the interval until Stop.
func (c *Cleaner) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.CleanOnce(); err != nil {
					Error("logger: log cleanup failed: %v", err)
				}
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *Cleaner) Stop() {
	close(c.stop)
}
