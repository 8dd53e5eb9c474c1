package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tripscope/tripscope-cli/internal/models"
)

// Recorder writes revealed replay events to an NDJSON file, one event per
// line. The output is loadable again as a dataset.
type Recorder struct {
	file   *os.File
	writer *bufio.Writer
	count  int
	closed bool
	mu     sync.Mutex
}

// NewRecorder creates a recorder writing to filename, truncating it.
func NewRecorder(filename string) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	return &Recorder{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Record appends one event as a JSON line.
func (r *Recorder) Record(event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := r.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	r.count++
	return nil
}

// RecordFromChannel drains events from a channel into the file until the
// channel closes or ctx is cancelled.
func (r *Recorder) RecordFromChannel(ctx context.Context, events <-chan models.Event) error {
	for {
		select {
		case <-ctx.Done():
			return r.Close()
		case event, ok := <-events:
			if !ok {
				return r.Close()
			}
			if err := r.Record(event); err != nil {
				return err
			}
		}
	}
}

// Count returns the number of events recorded so far.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes and closes the recording file. Further calls are no-ops,
// so RecordFromChannel and a caller's deferred Close can both run.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.writer.Flush(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
