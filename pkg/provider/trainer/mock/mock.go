// Package mock provides a test double for the trainer.Trainer interface.
package mock

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/hermes-asr/pkg/provider/trainer"
)

// Trainer is a mock implementation of trainer.Trainer.
type Trainer struct {
	mu sync.Mutex

	// Files are written into job.OutputDir (name → contents) before Train
	// returns.
	Files map[string]string

	// Err, if non-nil, is returned from Train after Files are written.
	Err error

	// Calls records every job passed to Train.
	Calls []trainer.Job
}

// Train records job, writes Files and returns Err.
func (m *Trainer) Train(_ context.Context, job trainer.Job) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, job)
	files, trainErr := m.Files, m.Err
	m.mu.Unlock()

	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(job.OutputDir, name), []byte(contents), 0o644); err != nil {
			return err
		}
	}
	return trainErr
}

// CallCount returns the number of Train calls. Thread-safe.
func (m *Trainer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Ensure Trainer implements trainer.Trainer at compile time.
var _ trainer.Trainer = (*Trainer)(nil)
