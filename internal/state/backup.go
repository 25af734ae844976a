package state

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// BackupManager keeps a copy of a snapshot document before save overwrites it.
type BackupManager struct {
	BaseDir string
	FS      FileSystem
}

func NewBackupManager(baseDir string, fs FileSystem) *BackupManager {
	return &BackupManager{BaseDir: baseDir, FS: fs}
}

// CreateBackup copies sourcePath to BaseDir/<runID>/<basename>.
// Returns the backup path, or "" when there was nothing to back up.
func (bm *BackupManager) CreateBackup(runID, sourcePath string) (string, error) {
	data, err := bm.FS.ReadFile(sourcePath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil // Nothing to backup
	}
	if err != nil {
		return "", err
	}

	backupDir := filepath.Join(bm.BaseDir, runID)
	backupPath := filepath.Join(backupDir, filepath.Base(sourcePath))

	if err := bm.FS.MkdirAll(backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}
	// Belge şifreli olabilir, izinleri dar tut.
	if err := bm.FS.WriteFile(backupPath, data, 0600); err != nil {
		return "", err
	}
	return backupPath, nil
}
