package consts

import (
	"os"
	"path/filepath"
)

// Constants for configuration paths and defaults
const (
	DefaultDirName     = ".clonectl"
	DefaultSnapshot    = "clone.json"
	ConfigFileName     = "clonectl.yaml"
	EnvFileName        = ".env"
	OperationsFileName = "operations.json"
	ChangeLogFileName  = "changelog.json"
	BackupDirName      = "backups"
	AgeIdentityFile    = "age.key"
)

// GetStateDir returns the directory holding the logs of the working directory
func GetStateDir() string {
	return DefaultDirName
}

// GetTargetStateDir returns the log directory of one fleet target
func GetTargetStateDir(target string) string {
	return filepath.Join(GetStateDir(), "targets", target)
}

// GetAgeIdentityPath returns the default age identity file (user home aware)
func GetAgeIdentityPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDirName, AgeIdentityFile), nil
}
