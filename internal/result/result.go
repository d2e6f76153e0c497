// Package result defines the terminal outcome records of task executions and
// the append-only result log they are written to. The result log is separate
// from the diagnostic log: it carries only terminal successes and failures
// meant for human review.
package result

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Status is the terminal state of one task execution.
type Status string

const (
	// StatusSuccess means the pipeline produced generated text.
	StatusSuccess Status = "success"
	// StatusFailure means the pipeline ended with a classified failure.
	StatusFailure Status = "failure"
)

// Record is the write-once outcome of one task execution.
type Record struct {
	ID        string    // unique run identifier
	Task      string    // task name
	Model     string    // inference model name
	Status    Status    // success or failure
	Kind      string    // failure classification, empty on success
	Content   string    // generated text, or the failure message
	Timestamp time.Time // when the outcome was produced
}

// Sink receives terminal outcome records.
type Sink interface {
	Write(rec Record) error
}

// FileSink appends records to a log file, one line per record. Writes are
// serialized; the file is opened once and kept open for the sink's lifetime.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) the result log at path in append mode,
// creating parent directories as needed.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create result log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open result log %s: %w", path, err)
	}
	return &FileSink{file: file}, nil
}

// Write appends one record.
func (s *FileSink) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := formatRecord(rec)
	if _, err := s.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append result record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// formatRecord renders one record as a single log line. Newlines inside the
// content are escaped so every record stays on one line.
func formatRecord(rec Record) string {
	content := strings.ReplaceAll(rec.Content, "\n", `\n`)

	parts := []string{
		rec.Timestamp.Format(time.RFC3339),
		"task=" + rec.Task,
		"status=" + string(rec.Status),
	}
	if rec.Kind != "" {
		parts = append(parts, "kind="+rec.Kind)
	}
	if rec.Model != "" {
		parts = append(parts, "model="+rec.Model)
	}
	parts = append(parts, content)

	return strings.Join(parts, " | ")
}
