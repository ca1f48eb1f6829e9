package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/kpideck/internal/errors"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{EnvSource, EnvDelimiter, EnvCurrency, EnvAddr, EnvFetchTimeout, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Source:       ".",
		Delimiter:    ',',
		Currency:     "$",
		Addr:         ":8080",
		FetchTimeout: 15 * time.Second,
		LogLevel:     "info",
	}, cfg)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSource, "https://extracts.example.com/kpi")
	t.Setenv(EnvDelimiter, "tab")
	t.Setenv(EnvCurrency, "€")
	t.Setenv(EnvFetchTimeout, "2s")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://extracts.example.com/kpi", cfg.Source)
	assert.Equal(t, '\t', cfg.Delimiter)
	assert.Equal(t, "€", cfg.Currency)
	assert.Equal(t, 2*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{EnvDelimiter, ";;"},
		{EnvDelimiter, `"`},
		{EnvFetchTimeout, "soon"},
		{EnvFetchTimeout, "-1s"},
		{EnvLogLevel, "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
			assert.Equal(t, tt.key, errors.GetField(err))
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvCurrency)
	t.Cleanup(func() { os.Unsetenv(EnvCurrency) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KPIDECK_CURRENCY=£\n"), 0o600))

	cfg, err := Load(path, filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "£", cfg.Currency)
}
