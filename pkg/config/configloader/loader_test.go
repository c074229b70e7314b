package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
	Hydration struct {
		Timeout time.Duration `koanf:"timeout"`
		Policy  string        `koanf:"policy"`
	} `koanf:"hydration"`
}

func (c *testConfig) Validate() error {
	if c.Log.Level == "invalid" {
		return errors.New("invalid level")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Precedence(t *testing.T) {
	// given
	dir := t.TempDir()
	configFile := writeFile(t, dir, "config.yaml", "log:\n  level: info\nhydration:\n  timeout: 3s\n  policy: yaml\n")
	envFile := writeFile(t, dir, ".env", "LOADERTEST_HYDRATION_POLICY=dotenv\nOTHER_KEY=ignored\n")
	t.Setenv("LOADERTEST_LOG_LEVEL", "debug")

	// when
	cfg, err := Load[*testConfig]("loadertest",
		WithConfigFile(configFile),
		WithEnvFile(envFile),
		WithDefaults(map[string]any{"hydration.timeout": "10s", "hydration.policy": "default"}),
	)

	// then
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "system env has the highest priority")
	assert.Equal(t, "dotenv", cfg.Hydration.Policy, ".env overrides yaml")
	assert.Equal(t, 3*time.Second, cfg.Hydration.Timeout, "yaml overrides defaults")
}

func TestLoad_DefaultsOnly(t *testing.T) {
	// given
	dir := t.TempDir()

	// when
	cfg, err := Load[*testConfig]("loadertest",
		WithConfigFile(filepath.Join(dir, "missing.yaml")),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithDefaults(map[string]any{"hydration.timeout": "10s", "log.level": "warn"}),
	)

	// then
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Hydration.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ValidationError(t *testing.T) {
	// given
	dir := t.TempDir()
	configFile := writeFile(t, dir, "config.yaml", "log:\n  level: invalid\n")

	// when
	_, err := Load[*testConfig]("loadertest",
		WithConfigFile(configFile),
		WithEnvFile(filepath.Join(dir, "missing.env")),
	)

	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_MalformedYAMLIsSkipped(t *testing.T) {
	// given
	dir := t.TempDir()
	configFile := writeFile(t, dir, "config.yaml", "log: [unclosed\n")

	// when
	cfg, err := Load[*testConfig]("loadertest",
		WithConfigFile(configFile),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithDefaults(map[string]any{"log.level": "warn"}),
	)

	// then
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvKey(t *testing.T) {
	toKey := envKey("CART_")
	assert.Equal(t, "hydration.timeout", toKey("CART_HYDRATION_TIMEOUT"))
	assert.Equal(t, "log.level", toKey("cart_log_level"))
}
