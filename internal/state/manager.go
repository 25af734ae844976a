package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melih-ucgun/clonectl/internal/consts"
)

const logVersion = "1.0"

// FileSystem defines minimum operations required for storage.
// This interface matches core.FileSystem methods used here.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// Manager owns the Operation Log and the Change Log of one working
// directory. It uses a Mutex so fleet runs can share it.
type Manager struct {
	OperationsPath string
	ChangesPath    string
	FS             FileSystem
	// MaxEntries caps the Operation Log; the oldest entries are dropped.
	MaxEntries int
	mu         sync.Mutex
}

// NewManager creates a manager for the two log files under dir.
func NewManager(dir string, fs FileSystem) *Manager {
	return &Manager{
		OperationsPath: filepath.Join(dir, consts.OperationsFileName),
		ChangesPath:    filepath.Join(dir, consts.ChangeLogFileName),
		FS:             fs,
		MaxEntries:     1000,
	}
}

func (m *Manager) read(path string, v any) error {
	data, err := m.FS.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt log %s: %w", path, err)
	}
	return nil
}

func (m *Manager) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := m.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return m.FS.WriteFile(path, data, 0644)
}

// Append adds an entry to the Operation Log. Missing ids and timestamps are
// filled in.
func (m *Manager) Append(entry OperationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var log OperationLog
	if err := m.read(m.OperationsPath, &log); err != nil {
		return err
	}
	log.Version = logVersion
	log.Entries = append(log.Entries, entry)
	if m.MaxEntries > 0 && len(log.Entries) > m.MaxEntries {
		log.Entries = log.Entries[len(log.Entries)-m.MaxEntries:]
	}
	return m.write(m.OperationsPath, log)
}

// Operations returns a copy of the Operation Log entries, oldest first.
func (m *Manager) Operations() ([]OperationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var log OperationLog
	if err := m.read(m.OperationsPath, &log); err != nil {
		return nil, err
	}
	return log.Entries, nil
}

// ReplaceChanges overwrites the Change Log with the pending changes of a run.
func (m *Manager) ReplaceChanges(runID, target string, pending []ChangeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pending == nil {
		pending = []ChangeEntry{}
	}
	return m.write(m.ChangesPath, ChangeLog{
		RunID:   runID,
		Target:  target,
		Updated: time.Now(),
		Pending: pending,
	})
}

// Changes reads the Change Log written by the last run.
func (m *Manager) Changes() (ChangeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var log ChangeLog
	err := m.read(m.ChangesPath, &log)
	return log, err
}
