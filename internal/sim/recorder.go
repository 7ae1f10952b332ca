package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Recorder appends one JSON line per workflow event to a per-session log
// file, for offline inspection of simulated interviews.
type Recorder struct {
	file *os.File
	enc  *json.Encoder
	path string
}

// NewRecorder creates the log directory if needed and opens a timestamped
// file for the session.
func NewRecorder(dir, sessionID string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("interview_%s_%s.jsonl", time.Now().Format("20060102_150405"), sessionID)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	return &Recorder{file: f, enc: json.NewEncoder(f), path: f.Name()}, nil
}

// Path returns the log file location.
func (r *Recorder) Path() string { return r.path }

// Write appends one event line. The payload must be JSON-serialisable.
func (r *Recorder) Write(event string, payload any) error {
	return r.enc.Encode(map[string]any{
		"event":     event,
		"timestamp": time.Now().Format(time.RFC3339),
		"data":      payload,
	})
}

// Close flushes and closes the log file.
func (r *Recorder) Close() error { return r.file.Close() }
