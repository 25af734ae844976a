package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clonectl.yaml")
	data := `
address: ilo-lab.example.net
username: deploy
insecure: true
reset_interval: 5s
concurrency: 2
targets:
  - name: rack7-u12
    address: 10.0.7.12
  - name: rack7-u14
    address: 10.0.7.14
    username: other
    insecure: false
    snapshot: "{{ .Name }}.json"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.ResetInterval)
	assert.Equal(t, 10*time.Minute, cfg.ReconnectTimeout)
	assert.Equal(t, "clone.json", cfg.Snapshot)
	require.Len(t, cfg.Targets, 2)

	first := cfg.Resolve(cfg.Targets[0])
	assert.Equal(t, "deploy", first.Username)
	assert.True(t, *first.Insecure)
	assert.Equal(t, "clone.json", first.Snapshot)

	second, ok := cfg.Target("rack7-u14")
	require.True(t, ok)
	second = cfg.Resolve(second)
	assert.Equal(t, "other", second.Username)
	assert.False(t, *second.Insecure)
	assert.Equal(t, "{{ .Name }}.json", second.Snapshot)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CLONECTL_ADDRESS":  "10.1.1.1",
		"CLONECTL_PASSWORD": "s3cret",
		"CLONECTL_INSECURE": "true",
		"CLONECTL_TIMEOUT":  "90s",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "10.1.1.1", cfg.Address)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 90*time.Second, cfg.Timeout)

	env["CLONECTL_INSECURE"] = "maybe"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CLONECTL_TEST_USER=fromfile\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("CLONECTL_TEST_USER") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "fromfile", os.Getenv("CLONECTL_TEST_USER"))
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Targets = []Target{{Name: "no-address"}}
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Concurrency = 0
	assert.Error(t, cfg.Validate())
}
